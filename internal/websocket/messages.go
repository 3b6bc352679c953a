package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/satriahrh/wawa/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeChat         MessageType = "chat"
	MessageTypeChatResponse MessageType = "chat_response"
	MessageTypePing         MessageType = "ping"
	MessageTypePong         MessageType = "pong"
)

// InboundMessage is a frame sent by the client. A frame without a type is a
// chat message.
type InboundMessage struct {
	Type    MessageType `json:"type,omitempty"`
	Message string      `json:"message"`
	ID      string      `json:"id,omitempty"`
}

// ChatResponseMessage answers one chat frame. Status mirrors the HTTP status
// POST /chat would have returned.
type ChatResponseMessage struct {
	Type     MessageType              `json:"type"`
	ID       string                   `json:"id,omitempty"`
	Status   int                      `json:"status"`
	Messages []domain.ResponseMessage `json:"messages"`
	Error    string                   `json:"error,omitempty"`
}

// PongMessage answers an application level ping
type PongMessage struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id,omitempty"`
}

// ParseInboundMessage decodes a client frame
func ParseInboundMessage(data []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return InboundMessage{}, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		msg.Type = MessageTypeChat
	}
	switch msg.Type {
	case MessageTypeChat, MessageTypePing:
		return msg, nil
	default:
		return InboundMessage{}, fmt.Errorf("unsupported message type: %s", msg.Type)
	}
}

// NewChatResponse wraps an envelope in a chat_response frame
func NewChatResponse(id string, status int, envelope *domain.ResponseEnvelope) ChatResponseMessage {
	messages := []domain.ResponseMessage{}
	if envelope != nil && envelope.Messages != nil {
		messages = envelope.Messages
	}
	return ChatResponseMessage{
		Type:     MessageTypeChatResponse,
		ID:       id,
		Status:   status,
		Messages: messages,
	}
}
