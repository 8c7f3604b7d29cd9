package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/mcpchat/internal/domain"
)

// newConversationID generates an opaque id. It is unguessable enough for
// casual link-sharing privacy; holding the id grants full read/delete access,
// there is no further auth boundary.
func newConversationID() string {
	return "mcp-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// CreateSession builds a fresh session with empty history and the given
// metadata, stores it, and returns its summary.
func (s *Service) CreateSession(ctx context.Context, metadata json.RawMessage) (domain.Summary, error) {
	now := time.Now()
	session := &domain.Session{
		ConversationID: newConversationID(),
		Messages:       []domain.Message{},
		Metadata:       metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Put(ctx, session); err != nil {
		return domain.Summary{}, fmt.Errorf("failed to store session: %w", err)
	}
	return session.Summarize(), nil
}

// GetSession returns the summary projection, never the raw message history.
func (s *Service) GetSession(ctx context.Context, conversationID string) (domain.Summary, error) {
	if conversationID == "" {
		return domain.Summary{}, fmt.Errorf("%w: conversationId is required", domain.ErrInvalidInput)
	}

	session, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return domain.Summary{}, err
	}
	return session.Summarize(), nil
}

// GetMessages returns the full ordered message history.
func (s *Service) GetMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversationId is required", domain.ErrInvalidInput)
	}

	session, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return session.Messages, nil
}

// DeleteSession removes the session. Deleting a missing id reports false
// rather than an error.
func (s *Service) DeleteSession(ctx context.Context, conversationID string) (bool, error) {
	if conversationID == "" {
		return false, fmt.Errorf("%w: conversationId is required", domain.ErrInvalidInput)
	}

	deleted, err := s.store.Delete(ctx, conversationID)
	if err == nil && deleted {
		s.dropSessionLock(conversationID)
	}
	return deleted, err
}

// ListSessions returns one entry per known session, most recent activity
// first. No pagination; the result set is assumed small.
func (s *Service) ListSessions(ctx context.Context) ([]domain.ListEntry, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	entries := make([]domain.ListEntry, 0, len(sessions))
	for _, session := range sessions {
		entries = append(entries, domain.ListEntry{
			ID:           session.ConversationID,
			Date:         session.UpdatedAt,
			MessageCount: len(session.Messages),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries, nil
}
