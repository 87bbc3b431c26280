package database

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/thereayou/voxus-chat/internal/apperr"
	"github.com/thereayou/voxus-chat/internal/models"
)

// SearchQuery filters are combined with AND. Zero values mean "not set".
type SearchQuery struct {
	Term      string
	PartnerID uint64 // direct conversation with this user
	SenderID  uint64
	From      time.Time // inclusive
	To        time.Time // exclusive
	Limit     int
	Offset    int
}

func (q SearchQuery) empty() bool {
	return strings.TrimSpace(q.Term) == "" &&
		q.PartnerID == 0 &&
		q.SenderID == 0 &&
		q.From.IsZero() &&
		q.To.IsZero()
}

type SearchResult struct {
	Messages []models.Message
	Total    int64
	HasMore  bool
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search looks through the messages visible to owner: its direct messages and
// the messages of groups it belongs to. A query with neither a term nor a
// filter is rejected instead of scanning everything.
func (d *Database) Search(ctx context.Context, owner uint64, q SearchQuery) (*SearchResult, error) {
	if q.empty() {
		return nil, apperr.Validation("search term or filters required")
	}
	if q.Offset < 0 {
		return nil, apperr.Validation("offset must not be negative")
	}
	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		return nil, apperr.Validation("date_from must be before date_to")
	}
	limit := clampLimit(q.Limit)

	memberOf := d.db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", owner)

	base := d.db.WithContext(ctx).Model(&models.Message{}).
		Where("((kind = ? AND (sender_id = ? OR receiver_id = ?)) OR (kind = ? AND group_id IN (?)))",
			models.KindDirect, owner, owner, models.KindGroup, memberOf)

	if term := strings.TrimSpace(q.Term); term != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		base = base.Where(`LOWER(body) LIKE ? ESCAPE '\'`, pattern)
	}
	if q.PartnerID != 0 {
		base = base.Where("(kind = ? AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)))",
			models.KindDirect, owner, q.PartnerID, q.PartnerID, owner)
	}
	if q.SenderID != 0 {
		base = base.Where("sender_id = ?", q.SenderID)
	}
	if !q.From.IsZero() {
		base = base.Where("created_at >= ?", q.From.UTC())
	}
	if !q.To.IsZero() {
		base = base.Where("created_at < ?", q.To.UTC())
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, translate("search count", err)
	}

	var messages []models.Message
	err := base.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(q.Offset).
		Preload("Sender").
		Find(&messages).Error
	if err != nil {
		return nil, translate("search", err)
	}
	reverse(messages)

	return &SearchResult{
		Messages: messages,
		Total:    total,
		HasMore:  int64(q.Offset+limit) < total,
	}, nil
}
