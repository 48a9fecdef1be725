package core

import (
	"context"

	"github.com/dkeye/chatrelay/internal/domain"
)

// Broadcaster delivers named events to live connections.
// Implementations must not block on slow receivers.
type Broadcaster interface {
	SendTo(conn ConnID, event string, payload any)
	SendToAll(event string, payload any, exclude ...ConnID)
}

// HistoryStore is the external system of record for chat messages.
// Every error returned wraps ErrStoreUnavailable.
type HistoryStore interface {
	FetchAll(ctx context.Context) ([]domain.ChatMessage, error)
	Append(ctx context.Context, username, text string) (domain.ChatMessage, error)
	IsUsernameTaken(ctx context.Context, username string) (bool, error)
}
