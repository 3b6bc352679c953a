package repositories

import "context"

// Role tells whose turn a chat message is
type Role string

const (
	UserRole   Role = "user"
	AvatarRole Role = "avatar"
)

// ChatMessage is one turn of a conversation with the backend
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LargeLanguageModel is the conversational backend that writes reply drafts
type LargeLanguageModel interface {
	// GenerateChat opens a session whose first turns are history
	GenerateChat(ctx context.Context, history []ChatMessage) (ChatSession, error)
}

// ChatSession is one open conversation. It is not safe for concurrent use.
type ChatSession interface {
	// SendMessage returns the backend's raw answer to message
	SendMessage(ctx context.Context, message ChatMessage) (ChatMessage, error)
}
