package dto

import "github.com/thereayou/voxus-chat/internal/models"

// Outbound live-channel payloads. Message events reuse MessageResponse.

type AuthSuccess struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
}

type TypingEvent struct {
	SenderID   uint64 `json:"sender_id"`
	ReceiverID uint64 `json:"receiver_id"`
	IsTyping   bool   `json:"is_typing"`
}

// ReadReceipt is pushed to the author of read messages. Pending marks the
// sender-side acknowledgment that a message was accepted for delivery; it
// says nothing about the recipient having seen it.
type ReadReceipt struct {
	SenderID   uint64 `json:"sender_id,omitempty"`
	ReceiverID uint64 `json:"receiver_id"`
	MessageID  uint64 `json:"message_id,omitempty"`
	Pending    bool   `json:"pending,omitempty"`
}

type ReactionUpdate struct {
	MessageID    uint64                 `json:"message_id"`
	UserID       uint64                 `json:"user_id"`
	ReactionType models.ReactionType    `json:"reaction_type"`
	Glyph        string                 `json:"glyph"`
	Added        bool                   `json:"added"`
	Reactions    []models.ReactionCount `json:"reactions"`
}

// ToggleReactionRequest names the reaction either by type or by its emoji.
type ToggleReactionRequest struct {
	ReactionType models.ReactionType `json:"reaction_type"`
	Emoji        string              `json:"emoji"`
}

// Kind resolves the requested reaction. An unknown emoji is passed through so
// validation reports it.
func (r ToggleReactionRequest) Kind() models.ReactionType {
	if r.ReactionType != "" {
		return r.ReactionType
	}
	if t, ok := models.ReactionTypeForGlyph(r.Emoji); ok {
		return t
	}
	return models.ReactionType(r.Emoji)
}

type ToggleReactionResponse struct {
	Added         bool                   `json:"added"`
	Reactions     []models.ReactionCount `json:"reactions"`
	UserReactions []models.ReactionType  `json:"user_reactions"`
}

type ReactionDetail struct {
	UserID       uint64              `json:"user_id"`
	Username     string              `json:"username"`
	ReactionType models.ReactionType `json:"reaction_type"`
	Glyph        string              `json:"glyph"`
}

type ReactionKind struct {
	Type  models.ReactionType `json:"type"`
	Glyph string              `json:"glyph"`
}
