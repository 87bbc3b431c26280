package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/thereayou/voxus-chat/internal/config"
	"github.com/thereayou/voxus-chat/internal/database"
	"github.com/thereayou/voxus-chat/internal/delivery"
	"github.com/thereayou/voxus-chat/internal/handlers"
	"github.com/thereayou/voxus-chat/internal/logger"
	"github.com/thereayou/voxus-chat/internal/middleware"
	"github.com/thereayou/voxus-chat/internal/storage"
	"github.com/thereayou/voxus-chat/internal/websocket"
	"github.com/thereayou/voxus-chat/pkg/auth"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Config     config.Config
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Hub        *websocket.Hub
	Delivery   *delivery.Router
	Files      *storage.LocalStore
	Log        *zap.Logger
}

// NewServer connects to postgres and, when REDIS_URL is set, to redis, then
// wires everything together.
func NewServer(cfg config.Config, log *zap.Logger) (*Server, error) {
	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("postgres connect failed: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			db.Close()
			return nil, fmt.Errorf("redis connect failed: %w", err)
		}
	} else {
		log.Warn("redis_disabled", zap.String("reason", "REDIS_URL is not set; logout will not revoke tokens"))
	}

	return New(cfg, db, rdb, log)
}

// New builds a server around already opened stores. rdb may be nil.
func New(cfg config.Config, db *database.Database, rdb *redis.Client, log *zap.Logger) (*Server, error) {
	files, err := storage.NewLocalStore(cfg.UploadDir, cfg.MaxUploadBytes, log.Named("storage"))
	if err != nil {
		return nil, err
	}

	var blacklist *middleware.TokenBlacklist
	if rdb != nil {
		blacklist = middleware.NewTokenBlacklist(rdb)
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	hub := websocket.NewHub(log.Named("hub"))
	router := delivery.NewRouter(db, hub, files, cfg.ReadReceiptMode, log.Named("delivery"))

	engine := gin.New()
	engine.Use(gin.Recovery(), logger.GinLogger(log.Named("http")))
	engine.MaxMultipartMemory = cfg.MaxUploadBytes

	APIEndpoints(engine, Handlers{
		Auth:       handlers.NewAuthHandler(db, jwtMgr, blacklist, log),
		User:       handlers.NewUserHandler(db, hub, log),
		Message:    handlers.NewMessageHandler(db, router, files, cfg.HistoryLimit, log),
		Group:      handlers.NewGroupHandler(db, router, files, cfg.HistoryLimit, log),
		Reaction:   handlers.NewReactionHandler(db, router, log),
		Attachment: handlers.NewAttachmentHandler(db, router, files, log),
		Search:     handlers.NewSearchHandler(db, log),
		WebSocket:  handlers.NewWebSocketHandler(hub, router, cfg.AllowedOrigins, cfg.WSRateRPS, cfg.WSRateBurst, log.Named("ws")),
	}, middleware.AuthMiddleware(jwtMgr, blacklist, log), middleware.WSAuthMiddleware(jwtMgr, blacklist, log))

	return &Server{
		Config:     cfg,
		Router:     engine,
		DB:         db,
		Redis:      rdb,
		JWTManager: jwtMgr,
		Hub:        hub,
		Delivery:   router,
		Files:      files,
		Log:        log,
	}, nil
}

// Run serves until ctx is cancelled, then drains HTTP requests, closes live
// connections and releases the stores.
func (s *Server) Run(ctx context.Context) error {
	go s.Hub.Run()

	srv := &http.Server{
		Addr:              ":" + s.Config.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Log.Info("server_starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	s.Log.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.Log.Error("http_shutdown_failed", zap.Error(err))
	}

	s.Hub.Stop()
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.Log.Warn("redis_close_failed", zap.Error(err))
		}
	}
	if err := s.DB.Close(); err != nil {
		s.Log.Warn("db_close_failed", zap.Error(err))
	}
	return runErr
}
