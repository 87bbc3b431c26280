package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/voxus-chat/internal/database"
	"github.com/thereayou/voxus-chat/internal/delivery"
	"github.com/thereayou/voxus-chat/internal/handlers/dto"
	"github.com/thereayou/voxus-chat/internal/middleware"
	"github.com/thereayou/voxus-chat/internal/models"
	"github.com/thereayou/voxus-chat/internal/websocket"
)

type ReactionHandler struct {
	db     *database.Database
	router *delivery.Router
	log    *zap.Logger
}

func NewReactionHandler(db *database.Database, router *delivery.Router, log *zap.Logger) *ReactionHandler {
	return &ReactionHandler{db: db, router: router, log: log}
}

// Toggle adds or removes the caller's reaction and pushes the new summary to
// the other participants.
func (h *ReactionHandler) Toggle(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.CurrentUserID(c)

	messageID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.ToggleReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.ReactionType == "" && req.Emoji == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reaction_type or emoji is required"})
		return
	}

	result, err := h.router.ToggleReaction(ctx, userID, messageID, req.Kind())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	participants, err := h.router.Participants(ctx, result.Message)
	if err != nil {
		h.log.Error("reaction_participants_failed", zap.Uint64("message_id", messageID), zap.Error(err))
	} else {
		h.router.Notify(participants, userID, websocket.TypeReaction, result.Update)
	}

	c.JSON(http.StatusOK, dto.ToggleReactionResponse{
		Added:         result.Added,
		Reactions:     result.Reactions,
		UserReactions: result.UserReactions,
	})
}

// List returns who reacted to a message and how.
func (h *ReactionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	messageID, ok := paramID(c, "id")
	if !ok {
		return
	}
	msg, err := h.db.GetMessage(ctx, messageID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.router.CanAccess(ctx, middleware.CurrentUserID(c), msg); err != nil {
		respondError(c, h.log, err)
		return
	}

	reactions, err := h.db.MessageReactions(ctx, messageID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	details := make([]dto.ReactionDetail, 0, len(reactions))
	for _, r := range reactions {
		details = append(details, dto.ReactionDetail{
			UserID:       r.UserID,
			Username:     r.User.Username,
			ReactionType: r.ReactionType,
			Glyph:        r.ReactionType.Glyph(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"message_id": messageID, "reactions": details})
}

func (h *ReactionHandler) Available(c *gin.Context) {
	kinds := make([]dto.ReactionKind, 0, len(models.ReactionTypes))
	for _, t := range models.ReactionTypes {
		kinds = append(kinds, dto.ReactionKind{Type: t, Glyph: t.Glyph()})
	}
	c.JSON(http.StatusOK, gin.H{"reactions": kinds})
}
