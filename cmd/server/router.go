package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thereayou/voxus-chat/internal/handlers"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	User       *handlers.UserHandler
	Message    *handlers.MessageHandler
	Group      *handlers.GroupHandler
	Reaction   *handlers.ReactionHandler
	Attachment *handlers.AttachmentHandler
	Search     *handlers.SearchHandler
	WebSocket  *handlers.WebSocketHandler
}

func APIEndpoints(r *gin.Engine, h Handlers, authMW, wsAuthMW gin.HandlerFunc) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", authMW, h.Auth.Logout)
	}

	r.GET("/ws", wsAuthMW, h.WebSocket.HandleWebSocket)

	// API endpoints
	api := r.Group("/api/v1", authMW)
	{
		api.GET("/users", h.User.ListUsers)
		api.GET("/users/me", h.User.GetMe)
		api.GET("/users/online", h.User.OnlineUsers)

		api.GET("/conversations/:userId/messages", h.Message.GetConversation)
		api.POST("/conversations/:userId/messages", h.Message.SendMessage)
		api.POST("/conversations/:userId/read", h.Message.MarkConversationRead)
		api.DELETE("/messages/:id", h.Message.DeleteMessage)
		api.POST("/messages/:id/read", h.Message.MarkRead)
		api.GET("/unread", h.Message.UnreadCount)

		api.GET("/groups", h.Group.ListGroups)
		api.POST("/groups", h.Group.CreateGroup)
		api.GET("/groups/available", h.Group.AvailableGroups)
		api.GET("/groups/:id", h.Group.GetGroup)
		api.PATCH("/groups/:id", h.Group.RenameGroup)
		api.DELETE("/groups/:id", h.Group.DeleteGroup)
		api.POST("/groups/:id/members", h.Group.AddMember)
		api.DELETE("/groups/:id/members/:userId", h.Group.RemoveMember)
		api.GET("/groups/:id/messages", h.Group.GetMessages)
		api.POST("/groups/:id/messages", h.Group.SendMessage)

		api.GET("/messages/:id/reactions", h.Reaction.List)
		api.POST("/messages/:id/reactions", h.Reaction.Toggle)
		api.GET("/reactions", h.Reaction.Available)

		api.POST("/attachments", h.Attachment.Upload)
		api.GET("/messages/:id/attachments", h.Attachment.List)
		api.GET("/files/:name", h.Attachment.Download)

		api.GET("/search", h.Search.Search)
	}
}
