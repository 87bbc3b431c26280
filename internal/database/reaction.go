package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/thereayou/voxus-chat/internal/apperr"
	"github.com/thereayou/voxus-chat/internal/models"
)

// ToggleReaction removes the (message, user, type) reaction when present and
// adds it otherwise. It reports whether the reaction is present afterwards.
func (d *Database) ToggleReaction(ctx context.Context, messageID, userID uint64, reactionType models.ReactionType) (bool, error) {
	if !reactionType.Valid() {
		return false, apperr.Validation("invalid reaction type %q", reactionType)
	}

	var added bool
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.Reaction
		err := tx.Where("message_id = ? AND user_id = ? AND reaction_type = ?", messageID, userID, reactionType).
			Limit(1).
			Find(&existing).Error
		if err != nil {
			return err
		}

		if len(existing) > 0 {
			added = false
			return tx.Delete(&models.Reaction{}, "id = ?", existing[0].ID).Error
		}

		added = true
		return tx.Omit("User").Create(&models.Reaction{
			MessageID:    messageID,
			UserID:       userID,
			ReactionType: reactionType,
		}).Error
	})
	if err != nil {
		return false, translate("toggle reaction", err)
	}
	return added, nil
}

// ReactionSummary aggregates reactions per message, highest count first.
func (d *Database) ReactionSummary(ctx context.Context, messageIDs []uint64) (map[uint64][]models.ReactionCount, error) {
	summary := make(map[uint64][]models.ReactionCount)
	if len(messageIDs) == 0 {
		return summary, nil
	}

	var rows []struct {
		MessageID    uint64
		ReactionType models.ReactionType
		Count        int64
	}
	err := d.db.WithContext(ctx).Model(&models.Reaction{}).
		Select("message_id, reaction_type, COUNT(*) AS count").
		Where("message_id IN ?", messageIDs).
		Group("message_id, reaction_type").
		Order("message_id ASC").
		Order("count DESC").
		Order("reaction_type ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, translate("reaction summary", err)
	}

	for _, r := range rows {
		summary[r.MessageID] = append(summary[r.MessageID], models.ReactionCount{
			Type:  r.ReactionType,
			Glyph: r.ReactionType.Glyph(),
			Count: r.Count,
		})
	}
	return summary, nil
}

// UserReactions returns, per message, the reaction types userID has applied.
func (d *Database) UserReactions(ctx context.Context, userID uint64, messageIDs []uint64) (map[uint64][]models.ReactionType, error) {
	result := make(map[uint64][]models.ReactionType)
	if len(messageIDs) == 0 {
		return result, nil
	}

	var reactions []models.Reaction
	err := d.db.WithContext(ctx).
		Where("user_id = ? AND message_id IN ?", userID, messageIDs).
		Order("id ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, translate("user reactions", err)
	}

	for _, r := range reactions {
		result[r.MessageID] = append(result[r.MessageID], r.ReactionType)
	}
	return result, nil
}

// MessageReactions lists individual reactions on one message with the
// reacting user loaded, oldest first.
func (d *Database) MessageReactions(ctx context.Context, messageID uint64) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := d.db.WithContext(ctx).
		Preload("User").
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, translate("message reactions", err)
	}
	return reactions, nil
}
