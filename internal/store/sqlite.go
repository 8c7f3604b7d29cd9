package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/mcpchat/internal/domain"
)

// SQLiteStore implements Store on SQLite for installs that outgrow the
// single-file JSON layout. Put keeps the same snapshot semantics as the file
// store: the session row and its full message set are replaced in one
// transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			conversation_id TEXT PRIMARY KEY,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			conversation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			PRIMARY KEY (conversation_id, seq),
			FOREIGN KEY (conversation_id) REFERENCES sessions(conversation_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the session with its full message history.
func (s *SQLiteStore) Get(ctx context.Context, conversationID string) (*domain.Session, error) {
	session, err := s.getSessionRow(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	messages, err := s.getMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	session.Messages = messages
	return session, nil
}

func (s *SQLiteStore) getSessionRow(ctx context.Context, conversationID string) (*domain.Session, error) {
	var session domain.Session
	var metadata sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, metadata, created_at, updated_at FROM sessions WHERE conversation_id = ?`,
		conversationID).Scan(&session.ConversationID, &metadata, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, conversationID)
	}
	if err != nil {
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		session.Metadata = []byte(metadata.String)
	}
	return &session, nil
}

func (s *SQLiteStore) getMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE conversation_id = ? ORDER BY seq`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Put replaces the session row and its message set in one transaction.
func (s *SQLiteStore) Put(ctx context.Context, session *domain.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var metadata any
	if session.Metadata != nil {
		metadata = string(session.Metadata)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (conversation_id, metadata, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(conversation_id) DO UPDATE SET metadata = excluded.metadata, updated_at = excluded.updated_at`,
		session.ConversationID, metadata, session.CreatedAt, session.UpdatedAt); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id = ?`, session.ConversationID); err != nil {
		return err
	}
	for i, m := range session.Messages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (conversation_id, seq, role, content) VALUES (?, ?, ?, ?)`,
			session.ConversationID, i, m.Role, m.Content); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete removes the session and its messages.
func (s *SQLiteStore) Delete(ctx context.Context, conversationID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns every session with its message history.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sessions := make([]domain.Session, 0, len(ids))
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}
