// Package store defines session persistence and its implementations.
package store

import (
	"context"
	"fmt"

	"github.com/xiaot623/mcpchat/internal/config"
	"github.com/xiaot623/mcpchat/internal/domain"
)

// Store is the durable mapping of conversation id to session. Implementations
// own the session records exclusively: Get and List return copies, and every
// mutation persists synchronously before returning.
type Store interface {
	// Get returns the session or domain.ErrSessionNotFound.
	Get(ctx context.Context, conversationID string) (*domain.Session, error)

	// Put inserts or replaces the session and persists.
	Put(ctx context.Context, session *domain.Session) error

	// Delete removes the session if present and persists. Deleting a missing
	// id is not an error; the bool reports whether anything was removed.
	Delete(ctx context.Context, conversationID string) (bool, error)

	// List returns every known session.
	List(ctx context.Context) ([]domain.Session, error)

	// Close releases resources.
	Close() error
}

// New builds the store selected by the configuration.
func New(cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case "", "file":
		return NewFileStore(cfg.DataDir)
	case "sqlite":
		return NewSQLiteStore(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
