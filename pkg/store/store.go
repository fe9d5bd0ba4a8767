// Package store provides SQLite-backed persistence for the chat history log.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/model"
)

const dbTimeLayout = "2006-01-02 15:04:05"

// Store provides database access to the chat history.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}

	ctx := context.Background()

	// Enable WAL mode for better concurrent read performance
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set WAL: %w", err)
	}
	// Set busy timeout to avoid "database is locked" under concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set busy_timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		sender     TEXT    NOT NULL DEFAULT '',
		body       TEXT    NOT NULL CHECK(length(body) > 0),
		created_at TEXT    NOT NULL DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendMessage records one broadcast line in the history.
func (s *Store) AppendMessage(m *model.Message) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("store: append message: %w", err)
	}

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.Exec(
		"INSERT INTO messages (sender, body, created_at) VALUES (?, ?, ?)",
		m.Sender, m.Body, createdAt.UTC().Format(dbTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("store: append message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: append message id: %w", err)
	}
	m.ID = id
	m.CreatedAt = createdAt
	return nil
}

// ListMessages returns recorded messages in append order.
func (s *Store) ListMessages(filters model.MessageFilters) ([]model.Message, error) {
	var (
		where []string
		args  []any
	)
	if filters.LimitToSender != nil {
		where = append(where, "sender = ?")
		args = append(args, *filters.LimitToSender)
	}

	query := "SELECT id, sender, body, created_at FROM messages"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	if filters.PageSize != nil {
		query += " LIMIT ?"
		args = append(args, *filters.PageSize)
		if filters.Offset != nil {
			query += " OFFSET ?"
			args = append(args, *filters.Offset)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []model.Message
	for rows.Next() {
		var (
			m  model.Message
			ts string
		)
		if err := rows.Scan(&m.ID, &m.Sender, &m.Body, &ts); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		created, err := time.Parse(dbTimeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("store: parse message time: %w", err)
		}
		m.CreatedAt = created.UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	return messages, nil
}
