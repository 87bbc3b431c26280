package dto

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/thereayou/voxus-chat/internal/models"
)

type UserInfo struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

type AttachmentResponse struct {
	ID           uint64 `json:"id"`
	MessageID    uint64 `json:"message_id"`
	StoredName   string `json:"stored_name"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
	SizeHuman    string `json:"size_human"`
	MimeType     string `json:"mime_type"`
	URL          string `json:"url"`
}

func NewAttachmentResponse(a models.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:           a.ID,
		MessageID:    a.MessageID,
		StoredName:   a.StoredName,
		OriginalName: a.OriginalName,
		Size:         a.Size,
		SizeHuman:    humanize.IBytes(uint64(a.Size)),
		MimeType:     a.MimeType,
		URL:          "/api/v1/files/" + a.StoredName,
	}
}

// MessageResponse is the shape of a message both in history responses and in
// live message / group_message events.
type MessageResponse struct {
	ID            uint64                 `json:"id"`
	SenderID      uint64                 `json:"sender_id"`
	ReceiverID    *uint64                `json:"receiver_id,omitempty"`
	GroupID       *uint64                `json:"group_id,omitempty"`
	Body          string                 `json:"body"`
	Kind          models.MessageKind     `json:"kind"`
	IsRead        bool                   `json:"is_read"`
	CreatedAt     time.Time              `json:"created_at"`
	Sender        *UserInfo              `json:"sender,omitempty"`
	HasAttachment bool                   `json:"has_attachment"`
	Attachments   []AttachmentResponse   `json:"attachments,omitempty"`
	Reactions     []models.ReactionCount `json:"reactions,omitempty"`
	MyReactions   []models.ReactionType  `json:"my_reactions,omitempty"`
}

func NewMessageResponse(m *models.Message) MessageResponse {
	resp := MessageResponse{
		ID:            m.ID,
		SenderID:      m.SenderID,
		ReceiverID:    m.ReceiverID,
		GroupID:       m.GroupID,
		Body:          m.Body,
		Kind:          m.Kind,
		IsRead:        m.IsRead,
		CreatedAt:     m.CreatedAt,
		HasAttachment: len(m.Attachments) > 0,
	}
	if m.Sender.ID != 0 {
		resp.Sender = &UserInfo{ID: m.Sender.ID, Username: m.Sender.Username}
	}
	for _, a := range m.Attachments {
		resp.Attachments = append(resp.Attachments, NewAttachmentResponse(a))
	}
	return resp
}

type SendMessageRequest struct {
	Body      string `json:"body" binding:"required"`
	// MessageID is set when the message was already stored through another
	// channel; the router then only dispatches it.
	MessageID uint64 `json:"message_id,omitempty"`
}

type HistoryResponse struct {
	Messages []MessageResponse `json:"messages"`
	HasMore  bool              `json:"has_more"`
}

type SearchResponse struct {
	Messages []MessageResponse `json:"messages"`
	Total    int64             `json:"total"`
	HasMore  bool              `json:"has_more"`
	Offset   int               `json:"offset"`
	Limit    int               `json:"limit"`
}
