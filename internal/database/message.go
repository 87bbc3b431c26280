package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/thereayou/voxus-chat/internal/apperr"
	"github.com/thereayou/voxus-chat/internal/models"
)

// SaveMessage inserts a direct or group message. On success msg carries the
// assigned id and timestamp; on failure nothing was written.
func (d *Database) SaveMessage(ctx context.Context, msg *models.Message) error {
	if err := msg.Validate(); err != nil {
		return apperr.Validation("%v", err)
	}
	if msg.Body == "" {
		return apperr.Validation("message body is required")
	}

	msg.ID = 0
	msg.IsRead = false
	if err := d.db.WithContext(ctx).Omit("Sender", "Attachments").Create(msg).Error; err != nil {
		return translate("save message", err)
	}
	if msg.ID == 0 {
		return apperr.Persistence("save message", nil)
	}
	return nil
}

func (d *Database) GetMessage(ctx context.Context, id uint64) (*models.Message, error) {
	var message models.Message
	err := d.db.WithContext(ctx).
		Preload("Sender").
		Preload("Attachments").
		First(&message, "id = ?", id).Error
	if err != nil {
		return nil, translate("message", err)
	}
	return &message, nil
}

// Page is one slice of history, oldest first. HasMore reports whether older
// messages exist before Messages[0].
type Page struct {
	Messages []models.Message
	HasMore  bool
}

// FetchConversation returns up to limit direct messages exchanged between a
// and b, oldest first. A non-zero before restricts the page to older ids.
func (d *Database) FetchConversation(ctx context.Context, a, b uint64, limit int, before uint64) ([]models.Message, error) {
	page, err := d.ConversationPage(ctx, a, b, limit, before)
	if err != nil {
		return nil, err
	}
	return page.Messages, nil
}

func (d *Database) ConversationPage(ctx context.Context, a, b uint64, limit int, before uint64) (*Page, error) {
	query := d.db.WithContext(ctx).
		Where("kind = ? AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))",
			models.KindDirect, a, b, b, a)

	return d.fetchPage(query, limit, before, "fetch conversation")
}

// FetchGroupMessages returns up to limit messages of a group, oldest first.
func (d *Database) FetchGroupMessages(ctx context.Context, groupID uint64, limit int, before uint64) ([]models.Message, error) {
	page, err := d.GroupPage(ctx, groupID, limit, before)
	if err != nil {
		return nil, err
	}
	return page.Messages, nil
}

func (d *Database) GroupPage(ctx context.Context, groupID uint64, limit int, before uint64) (*Page, error) {
	query := d.db.WithContext(ctx).
		Where("kind = ? AND group_id = ?", models.KindGroup, groupID)

	return d.fetchPage(query, limit, before, "fetch group messages")
}

// fetchPage reads one row past the limit to learn whether older history
// remains.
func (d *Database) fetchPage(query *gorm.DB, limit int, before uint64, op string) (*Page, error) {
	if before > 0 {
		query = query.Where("id < ?", before)
	}
	limit = clampLimit(limit)

	var messages []models.Message
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Preload("Sender").
		Preload("Attachments").
		Find(&messages).Error
	if err != nil {
		return nil, translate(op, err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	// newest-first from the index, oldest-first for display
	reverse(messages)
	return &Page{Messages: messages, HasMore: hasMore}, nil
}

func (d *Database) MarkRead(ctx context.Context, messageID uint64) error {
	res := d.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", messageID).
		Update("is_read", true)
	if res.Error != nil {
		return translate("mark read", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("message")
	}
	return nil
}

// MarkConversationRead flags every unread message from counterpart to owner
// as read and reports how many changed.
func (d *Database) MarkConversationRead(ctx context.Context, owner, counterpart uint64) (int64, error) {
	res := d.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", owner, counterpart, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, translate("mark conversation read", res.Error)
	}
	return res.RowsAffected, nil
}

func (d *Database) UnreadCount(ctx context.Context, owner uint64) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", owner, false).
		Count(&count).Error
	return count, translate("unread count", err)
}

type unreadRow struct {
	SenderID uint64
	Unread   int64
}

// UnreadCountsBySender returns owner's unread direct messages keyed by sender.
// Senders with nothing unread are absent.
func (d *Database) UnreadCountsBySender(ctx context.Context, owner uint64) (map[uint64]int64, error) {
	var rows []unreadRow
	err := d.db.WithContext(ctx).Model(&models.Message{}).
		Select("sender_id, COUNT(*) AS unread").
		Where("receiver_id = ? AND is_read = ?", owner, false).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate("unread counts", err)
	}

	counts := make(map[uint64]int64, len(rows))
	for _, r := range rows {
		counts[r.SenderID] = r.Unread
	}
	return counts, nil
}

func (d *Database) UnreadCountFrom(ctx context.Context, owner, sender uint64) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", owner, sender, false).
		Count(&count).Error
	return count, translate("unread count", err)
}

// DeleteMessage removes a message owned by requester together with its
// reactions and attachment rows. The removed attachments are returned so the
// caller can delete the stored files.
func (d *Database) DeleteMessage(ctx context.Context, id, requester uint64) ([]models.Attachment, error) {
	var removed []models.Attachment

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var message models.Message
		if err := tx.First(&message, "id = ?", id).Error; err != nil {
			return err
		}
		if message.SenderID != requester {
			return apperr.Authorization("only the sender can delete message %d", id)
		}

		if err := tx.Where("message_id = ?", id).Find(&removed).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", id).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", id).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Message{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate("message", err)
	}
	return removed, nil
}
