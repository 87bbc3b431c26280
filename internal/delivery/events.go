package delivery

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/thereayou/voxus-chat/internal/apperr"
	"github.com/thereayou/voxus-chat/internal/models"
)

// ID decodes an identifier given either as a JSON number or as a numeric
// string. Anything else is a validation error.
type ID uint64

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}

	raw := string(b)
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(b, &raw); err != nil {
			return apperr.Validation("malformed id")
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*id = 0
			return nil
		}
	}

	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return apperr.Validation("id %s is not numeric", raw)
	}
	*id = ID(n)
	return nil
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return apperr.Validation("event has no data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return err
		}
		return apperr.Validation("malformed event: %v", err)
	}
	return nil
}

type AuthEvent struct {
	UserID   ID     `json:"user_id"`
	Username string `json:"username"`
}

func (e AuthEvent) Validate() error {
	if e.UserID == 0 || strings.TrimSpace(e.Username) == "" {
		return apperr.Validation("auth requires user_id and username")
	}
	return nil
}

// DirectEvent carries a direct message. A non-zero MessageID marks a message
// that is already stored; it is dispatched without being saved again.
type DirectEvent struct {
	SenderID   ID     `json:"sender_id"`
	ReceiverID ID     `json:"receiver_id"`
	Body       string `json:"body"`
	MessageID  ID     `json:"message_id,omitempty"`
}

func (e DirectEvent) Validate() error {
	if e.SenderID == 0 || e.ReceiverID == 0 {
		return apperr.Validation("message requires sender_id and receiver_id")
	}
	if e.MessageID == 0 && strings.TrimSpace(e.Body) == "" {
		return apperr.Validation("message body is required")
	}
	return nil
}

type GroupEvent struct {
	SenderID  ID     `json:"sender_id"`
	GroupID   ID     `json:"group_id"`
	Body      string `json:"body"`
	MessageID ID     `json:"message_id,omitempty"`
}

func (e GroupEvent) Validate() error {
	if e.SenderID == 0 || e.GroupID == 0 {
		return apperr.Validation("group message requires sender_id and group_id")
	}
	if e.MessageID == 0 && strings.TrimSpace(e.Body) == "" {
		return apperr.Validation("message body is required")
	}
	return nil
}

type TypingEvent struct {
	SenderID   ID   `json:"sender_id"`
	ReceiverID ID   `json:"receiver_id"`
	IsTyping   bool `json:"is_typing"`
}

func (e TypingEvent) Validate() error {
	if e.SenderID == 0 || e.ReceiverID == 0 {
		return apperr.Validation("typing requires sender_id and receiver_id")
	}
	return nil
}

// ReadEvent says SenderID has read what ReceiverID sent them.
type ReadEvent struct {
	SenderID   ID `json:"sender_id"`
	ReceiverID ID `json:"receiver_id"`
	MessageID  ID `json:"message_id,omitempty"`
}

func (e ReadEvent) Validate() error {
	if e.SenderID == 0 || e.ReceiverID == 0 {
		return apperr.Validation("read requires sender_id and receiver_id")
	}
	return nil
}

type ReactionEvent struct {
	MessageID    ID                  `json:"message_id"`
	ReactionType models.ReactionType `json:"reaction_type"`
}

func (e ReactionEvent) Validate() error {
	if e.MessageID == 0 {
		return apperr.Validation("reaction requires message_id")
	}
	if !e.ReactionType.Valid() {
		return apperr.Validation("invalid reaction type %q", e.ReactionType)
	}
	return nil
}
