package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/voxus-chat/internal/database"
	"github.com/thereayou/voxus-chat/internal/handlers/dto"
	"github.com/thereayou/voxus-chat/internal/middleware"
)

const (
	dateOnly           = "2006-01-02"
	defaultSearchLimit = 20
)

type SearchHandler struct {
	db  *database.Database
	log *zap.Logger
}

func NewSearchHandler(db *database.Database, log *zap.Logger) *SearchHandler {
	return &SearchHandler{db: db, log: log}
}

// parseDate accepts YYYY-MM-DD or RFC3339. A bare date used as an upper bound
// covers the whole day.
func parseDate(raw string, upper bool) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(dateOnly, raw); err == nil {
		if upper {
			t = t.Add(24 * time.Hour)
		}
		return t, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func (h *SearchHandler) Search(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	partnerID, ok := queryUint(c, "partner_id")
	if !ok {
		return
	}
	senderID, ok := queryUint(c, "sender_id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", defaultSearchLimit)
	if !ok {
		return
	}
	limit = pageLimit(limit, defaultSearchLimit)
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	from, ok := parseDate(c.Query("date_from"), false)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_from"})
		return
	}
	to, ok := parseDate(c.Query("date_to"), true)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_to"})
		return
	}

	ctx := c.Request.Context()
	result, err := h.db.Search(ctx, userID, database.SearchQuery{
		Term:      strings.TrimSpace(c.Query("q")),
		PartnerID: partnerID,
		SenderID:  senderID,
		From:      from,
		To:        to,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	views, err := messageViews(ctx, h.db, userID, result.Messages)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.SearchResponse{
		Messages: views,
		Total:    result.Total,
		HasMore:  result.HasMore,
		Offset:   offset,
		Limit:    limit,
	})
}
