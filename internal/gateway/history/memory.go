package history

import (
	"context"
	"sync"

	"github.com/nfrund/homeplace/internal/protocol"
)

// MemoryStore retains the last capacity messages in a ring buffer.
type MemoryStore struct {
	mu       sync.RWMutex
	records  []protocol.ChatMessage
	capacity int
	last     int
}

// NewMemoryStore returns a ring of the given capacity (minimum 1).
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{capacity: max(capacity, 1), last: -1}
}

func (s *MemoryStore) Append(_ context.Context, msg protocol.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) < s.capacity {
		s.records = append(s.records, msg)
		s.last++
		return nil
	}
	s.last = (s.last + 1) % s.capacity
	s.records[s.last] = msg
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, n int) ([]protocol.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := len(s.records)
	if n <= 0 || n > size {
		n = size
	}
	out := make([]protocol.ChatMessage, 0, n)
	// Oldest of the n newest sits n-1 slots behind last.
	start := s.last - n + 1
	for i := 0; i < n; i++ {
		idx := ((start+i)%size + size) % size
		out = append(out, s.records[idx])
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
