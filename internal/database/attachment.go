package database

import (
	"context"

	"github.com/thereayou/voxus-chat/internal/apperr"
	"github.com/thereayou/voxus-chat/internal/models"
)

// AttachFile links an already stored file to an existing message.
func (d *Database) AttachFile(ctx context.Context, attachment *models.Attachment) error {
	if attachment.MessageID == 0 || attachment.StoredName == "" {
		return apperr.Validation("attachment needs a message id and a stored name")
	}

	var count int64
	err := d.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", attachment.MessageID).Count(&count).Error
	if err != nil {
		return translate("attach file", err)
	}
	if count == 0 {
		return apperr.NotFound("message")
	}

	attachment.ID = 0
	return translate("attach file", d.db.WithContext(ctx).Create(attachment).Error)
}

func (d *Database) MessageAttachments(ctx context.Context, messageID uint64) ([]models.Attachment, error) {
	var attachments []models.Attachment
	err := d.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("id ASC").
		Find(&attachments).Error
	if err != nil {
		return nil, translate("message attachments", err)
	}
	return attachments, nil
}

func (d *Database) AttachmentByStoredName(ctx context.Context, name string) (*models.Attachment, error) {
	var attachment models.Attachment
	if err := d.db.WithContext(ctx).First(&attachment, "stored_name = ?", name).Error; err != nil {
		return nil, translate("attachment", err)
	}
	return &attachment, nil
}
