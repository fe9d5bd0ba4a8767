package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/model"
)

// MemoryStore provides an in-memory HistoryStore implementation for tests.
// It mirrors SQLite behavior for validation and ordering.
type MemoryStore struct {
	mu sync.RWMutex

	now func() time.Time

	nextID   int64
	messages []model.Message
}

// NewMemory creates a MemoryStore using time.Now().UTC().
func NewMemory() *MemoryStore {
	return NewMemoryWithClock(func() time.Time { return time.Now().UTC() })
}

// NewMemoryWithClock creates a MemoryStore with a custom clock.
func NewMemoryWithClock(now func() time.Time) *MemoryStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &MemoryStore{now: now, nextID: 1}
}

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}

// AppendMessage records one broadcast line in the history.
func (s *MemoryStore) AppendMessage(m *model.Message) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("store: append message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = s.nextID
	s.nextID++
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	s.messages = append(s.messages, *m)
	return nil
}

// ListMessages returns recorded messages in append order.
func (s *MemoryStore) ListMessages(filters model.MessageFilters) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Message
	for _, m := range s.messages {
		if filters.LimitToSender != nil && m.Sender != *filters.LimitToSender {
			continue
		}
		out = append(out, m)
	}

	if filters.PageSize != nil {
		offset := int64(0)
		if filters.Offset != nil {
			offset = *filters.Offset
		}
		if offset > int64(len(out)) {
			offset = int64(len(out))
		}
		end := offset + *filters.PageSize
		if end > int64(len(out)) {
			end = int64(len(out))
		}
		out = out[offset:end]
	}
	return out, nil
}

// Len returns the number of stored messages.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
