package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/voxus-chat/internal/database"
	"github.com/thereayou/voxus-chat/internal/middleware"
	"github.com/thereayou/voxus-chat/internal/websocket"
)

type UserHandler struct {
	db  *database.Database
	hub *websocket.Hub
	log *zap.Logger
}

func NewUserHandler(db *database.Database, hub *websocket.Hub, log *zap.Logger) *UserHandler {
	return &UserHandler{db: db, hub: hub, log: log}
}

type userEntry struct {
	ID         uint64    `json:"id"`
	Username   string    `json:"username"`
	Online     bool      `json:"online"`
	Unread     int64     `json:"unread"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// GetMe returns the current user.
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	user, err := h.db.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"created_at":   user.CreatedAt,
		"last_seen_at": user.LastSeenAt,
	})
}

// ListUsers lists everyone else with presence and unread count.
func (h *UserHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.CurrentUserID(c)

	users, err := h.db.ListUsersExcept(ctx, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	unread, err := h.db.UnreadCountsBySender(ctx, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	result := make([]userEntry, 0, len(users))
	for _, u := range users {
		result = append(result, userEntry{
			ID:         u.ID,
			Username:   u.Username,
			Online:     h.hub.IsOnline(u.ID),
			Unread:     unread[u.ID],
			LastSeenAt: u.LastSeenAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"users": result})
}

// OnlineUsers returns the ids of users with a live authenticated connection.
func (h *UserHandler) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": h.hub.OnlineUsers()})
}
