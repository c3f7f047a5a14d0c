package thread

import (
	"context"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// HistoryLimit caps how many prior messages seed a new turn.
const HistoryLimit = 10

// Thread is a conversation container.
type Thread struct {
	ID        uint
	PublicID  string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one turn inside a thread.
type Message struct {
	ID        uint
	ThreadID  uint
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Repository persists threads and their messages.
type Repository interface {
	CreateThread(ctx context.Context, t *Thread) (*Thread, error)
	FindThread(ctx context.Context, publicID string) (*Thread, error)
	ListThreads(ctx context.Context, limit int) ([]Thread, error)
	AppendMessage(ctx context.Context, m *Message) (*Message, error)
	// RecentMessages returns the newest limit messages in chronological order.
	RecentMessages(ctx context.Context, threadID uint, limit int) ([]Message, error)
}
