package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/voxus-chat/internal/apperr"
	"github.com/thereayou/voxus-chat/internal/database"
	"github.com/thereayou/voxus-chat/internal/handlers/dto"
	"github.com/thereayou/voxus-chat/internal/models"
)

// respondError writes the status that matches err's class. Persistence
// failures are logged and reported without driver detail.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("request_failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func paramID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryUint returns 0 for an absent parameter and false for a malformed one.
func queryUint(c *gin.Context, name string) (uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}

// pageLimit keeps a requested page size within what the store will return.
func pageLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > database.MaxHistoryLimit {
		return database.MaxHistoryLimit
	}
	return limit
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// messageViews builds API responses for messages as seen by userID, with the
// reaction summary and the user's own reactions filled in.
func messageViews(ctx context.Context, db *database.Database, userID uint64, msgs []models.Message) ([]dto.MessageResponse, error) {
	views := make([]dto.MessageResponse, 0, len(msgs))
	if len(msgs) == 0 {
		return views, nil
	}

	ids := make([]uint64, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].ID
	}
	summary, err := db.ReactionSummary(ctx, ids)
	if err != nil {
		return nil, err
	}
	mine, err := db.UserReactions(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	for i := range msgs {
		view := dto.NewMessageResponse(&msgs[i])
		view.Reactions = summary[msgs[i].ID]
		view.MyReactions = mine[msgs[i].ID]
		views = append(views, view)
	}
	return views, nil
}
