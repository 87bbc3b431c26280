package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type MessageKind string

const (
	KindDirect MessageKind = "direct"
	KindGroup  MessageKind = "group"
)

var ErrRecipientMismatch = errors.New("message must carry exactly one of receiver or group matching its kind")

// Message is immutable once stored apart from IsRead and its attachments.
type Message struct {
	ID         uint64      `gorm:"primaryKey;autoIncrement"`
	SenderID   uint64      `gorm:"not null;index"`
	ReceiverID *uint64     `gorm:"index:idx_messages_receiver_read,priority:1"`
	GroupID    *uint64     `gorm:"index"`
	Body       string      `gorm:"type:text;not null"`
	Kind       MessageKind `gorm:"size:10;not null;default:'direct'"`
	IsRead     bool        `gorm:"not null;default:false;index:idx_messages_receiver_read,priority:2"`
	CreatedAt  time.Time   `gorm:"index"`

	// Associations
	Sender      User         `gorm:"foreignKey:SenderID"`
	Attachments []Attachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

// Validate checks the recipient invariant.
func (m *Message) Validate() error {
	switch m.Kind {
	case KindDirect:
		if m.ReceiverID == nil || m.GroupID != nil {
			return ErrRecipientMismatch
		}
	case KindGroup:
		if m.GroupID == nil || m.ReceiverID != nil {
			return ErrRecipientMismatch
		}
	default:
		return ErrRecipientMismatch
	}
	return nil
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	return m.Validate()
}

// Counterpart returns the other participant of a direct message from the
// point of view of userID.
func (m *Message) Counterpart(userID uint64) uint64 {
	if m.ReceiverID == nil {
		return 0
	}
	if m.SenderID == userID {
		return *m.ReceiverID
	}
	return m.SenderID
}
