package store

import "github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/model"

// HistoryStore is the append-only sink for broadcast chat text.
//
// Implementations include the default SQLite store and an in-memory store
// for tests. Append failures are logged by the caller and never surfaced to
// chat clients.
type HistoryStore interface {
	// AppendMessage records one broadcast line. On success the message ID
	// is filled in.
	AppendMessage(m *model.Message) error

	// ListMessages returns recorded messages in append order, optionally
	// filtered and paged.
	ListMessages(filters model.MessageFilters) ([]model.Message, error)

	// Close closes the underlying storage.
	Close() error
}

// Compile-time checks.
var (
	_ HistoryStore = (*Store)(nil)
	_ HistoryStore = (*MemoryStore)(nil)
)
