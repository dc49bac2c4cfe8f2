// Package history keeps the recent chat log a gateway replays to new clients.
package history

import (
	"context"

	"github.com/nfrund/homeplace/internal/protocol"
)

// Store is an append-only chat log.
type Store interface {
	Append(ctx context.Context, msg protocol.ChatMessage) error
	// Recent returns up to n newest messages, oldest first. n <= 0 means all retained.
	Recent(ctx context.Context, n int) ([]protocol.ChatMessage, error)
	Close() error
}
