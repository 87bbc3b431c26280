package models

import (
	"time"
)

type Group struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"size:100;not null"`
	CreatorID uint64    `gorm:"not null;index"`
	CreatedAt time.Time

	Creator User `gorm:"foreignKey:CreatorID"`
}

// GROUPS is a keyword in both sqlite and postgres window syntax.
func (Group) TableName() string { return "chat_groups" }

type GroupMember struct {
	GroupID  uint64 `gorm:"primaryKey;autoIncrement:false"`
	UserID   uint64 `gorm:"primaryKey;autoIncrement:false;index"`
	JoinedAt time.Time
}

type GroupMemberInfo struct {
	UserID   uint64    `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

// GroupSummary is a group as seen from one member's group list.
type GroupSummary struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	CreatorID   uint64    `json:"creator_id"`
	CreatorName string    `json:"creator_name"`
	MemberCount int64     `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	JoinedAt    time.Time `json:"joined_at,omitempty"`
}
