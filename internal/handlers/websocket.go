package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/thereayou/voxus-chat/internal/delivery"
	"github.com/thereayou/voxus-chat/internal/middleware"
	ws "github.com/thereayou/voxus-chat/internal/websocket"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	router   *delivery.Router
	upgrader websocket.Upgrader
	rps      rate.Limit
	burst    int
	log      *zap.Logger
}

func NewWebSocketHandler(hub *ws.Hub, router *delivery.Router, allowedOrigins []string, rps float64, burst int, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		router: router,
		rps:    rate.Limit(rps),
		burst:  burst,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts the configured origins. Requests without an Origin
// header come from non-browser clients and are let through. With no origins
// configured it returns nil, which leaves gorilla's same-host check in place.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}

	origins := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		origins[strings.ToLower(strings.TrimRight(origin, "/"))] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := origins[strings.ToLower(origin)]
		return ok
	}
}

// HandleWebSocket upgrades a JWT-verified request. The connection stays
// unauthenticated until it sends an auth event naming the same user.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("ws_upgrade_failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, userID, rate.NewLimiter(h.rps, h.burst))
	h.hub.Attach(client)

	go client.WritePump()
	go client.ReadPump(h.router)
}
