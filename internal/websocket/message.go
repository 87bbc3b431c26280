package websocket

import (
	"encoding/json"
	"time"
)

// MessageType tags every frame on the live channel.
type MessageType string

const (
	// inbound
	TypeAuth         MessageType = "auth"
	TypeMessage      MessageType = "message"
	TypeGroupMessage MessageType = "group_message"
	TypeTyping       MessageType = "typing"
	TypeRead         MessageType = "read"
	TypeReaction     MessageType = "reaction"

	// outbound only
	TypeAuthSuccess MessageType = "auth_success"
	TypeError       MessageType = "error"

	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Message is the envelope for both directions. Data holds the event body.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func encode(msgType MessageType, data interface{}) ([]byte, error) {
	msg := Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
	}

	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = jsonData
	}

	return json.Marshal(msg)
}
