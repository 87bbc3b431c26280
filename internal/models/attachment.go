package models

import "time"

type Attachment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`
	// MessageID is the owning message; one message may carry several files.
	MessageID uint64 `gorm:"not null;index"`
	// StoredName is generated server side, OriginalName is whatever the client sent.
	StoredName   string `gorm:"size:255;not null;uniqueIndex"`
	OriginalName string `gorm:"size:255;not null"`
	Path         string `gorm:"size:500;not null"`
	Size         int64  `gorm:"not null"`
	MimeType     string `gorm:"size:100;not null"`
	CreatedAt    time.Time
}
