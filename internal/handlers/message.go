package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/voxus-chat/internal/apperr"
	"github.com/thereayou/voxus-chat/internal/database"
	"github.com/thereayou/voxus-chat/internal/delivery"
	"github.com/thereayou/voxus-chat/internal/handlers/dto"
	"github.com/thereayou/voxus-chat/internal/middleware"
	"github.com/thereayou/voxus-chat/internal/storage"
	"github.com/thereayou/voxus-chat/internal/websocket"
)

type MessageHandler struct {
	db           *database.Database
	router       *delivery.Router
	files        *storage.LocalStore
	log          *zap.Logger
	historyLimit int
}

func NewMessageHandler(db *database.Database, router *delivery.Router, files *storage.LocalStore, historyLimit int, log *zap.Logger) *MessageHandler {
	return &MessageHandler{db: db, router: router, files: files, historyLimit: historyLimit, log: log}
}

// GetConversation returns one page of the direct conversation with :userId.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.CurrentUserID(c)

	partnerID, ok := paramID(c, "userId")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", h.historyLimit)
	if !ok {
		return
	}
	before, ok := queryUint(c, "before")
	if !ok {
		return
	}
	if _, err := h.db.GetUser(ctx, partnerID); err != nil {
		respondError(c, h.log, err)
		return
	}

	page, err := h.db.ConversationPage(ctx, userID, partnerID, limit, before)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	views, err := messageViews(ctx, h.db, userID, page.Messages)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.HistoryResponse{Messages: views, HasMore: page.HasMore})
}

// SendMessage stores a direct message to :userId and pushes it live.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	receiverID, ok := paramID(c, "userId")
	if !ok {
		return
	}
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	msg, err := h.router.SendDirect(c.Request.Context(), delivery.DirectEvent{
		SenderID:   delivery.ID(userID),
		ReceiverID: delivery.ID(receiverID),
		Body:       req.Body,
		MessageID:  delivery.ID(req.MessageID),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewMessageResponse(msg))
}

// DeleteMessage removes one of the caller's own messages and its files.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	removed, err := h.db.DeleteMessage(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	for _, a := range removed {
		if err := h.files.Remove(a.StoredName); err != nil {
			h.log.Warn("attachment_file_remove_failed", zap.String("stored_name", a.StoredName), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// MarkRead marks a single received message read and tells its sender.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.CurrentUserID(c)

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	msg, err := h.db.GetMessage(ctx, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if msg.ReceiverID == nil || *msg.ReceiverID != userID {
		respondError(c, h.log, apperr.Authorization("only the receiver can mark message %d read", id))
		return
	}

	if err := h.db.MarkRead(ctx, id); err != nil {
		respondError(c, h.log, err)
		return
	}

	author := msg.Counterpart(userID)
	h.router.Notify([]uint64{author}, 0, websocket.TypeRead, dto.ReadReceipt{
		SenderID:   userID,
		ReceiverID: author,
		MessageID:  id,
	})
	c.JSON(http.StatusOK, gin.H{"message_id": id, "is_read": true})
}

// MarkConversationRead marks everything :userId sent to the caller as read.
func (h *MessageHandler) MarkConversationRead(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	partnerID, ok := paramID(c, "userId")
	if !ok {
		return
	}

	n, err := h.db.MarkConversationRead(c.Request.Context(), userID, partnerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if n > 0 {
		h.router.Notify([]uint64{partnerID}, 0, websocket.TypeRead, dto.ReadReceipt{
			SenderID:   userID,
			ReceiverID: partnerID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"marked": n})
}

// UnreadCount reports the caller's unread direct messages, optionally only
// those from one sender.
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.CurrentUserID(c)

	from, ok := queryUint(c, "from")
	if !ok {
		return
	}

	var (
		n   int64
		err error
	)
	if from != 0 {
		n, err = h.db.UnreadCountFrom(ctx, userID, from)
	} else {
		n, err = h.db.UnreadCount(ctx, userID)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": n})
}
