package store

import (
	"context"
	"errors"
	"testing"

	"github.com/xiaot623/mcpchat/internal/domain"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	want := newSession("mcp-sq1")
	if err := s.Put(ctx, want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get(ctx, "mcp-sq1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
	if got.Messages[0].Role != "user" || got.Messages[1].Role != "assistant" {
		t.Fatalf("message order not preserved: %+v", got.Messages)
	}
	if string(got.Metadata) != `{"client":"test"}` {
		t.Fatalf("metadata mismatch: %s", got.Metadata)
	}
}

func TestSQLiteStorePutReplacesMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	session := newSession("mcp-sq2")
	if err := s.Put(ctx, session); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	session.Messages = append(session.Messages, domain.Message{Role: "user", Content: "again"})
	if err := s.Put(ctx, session); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	got, err := s.Get(ctx, "mcp-sq2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Messages) != 3 || got.Messages[2].Content != "again" {
		t.Fatalf("unexpected messages after replace: %+v", got.Messages)
	}
}

func TestSQLiteStoreGetMissing(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.Get(context.Background(), "mcp-nope")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSQLiteStoreDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	if err := s.Put(ctx, newSession("mcp-sq3")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	deleted, err := s.Delete(ctx, "mcp-sq3")
	if err != nil || !deleted {
		t.Fatalf("first delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = s.Delete(ctx, "mcp-sq3")
	if err != nil || deleted {
		t.Fatalf("second delete: deleted=%v err=%v", deleted, err)
	}

	// Messages must be gone with the session.
	if _, err := s.Get(ctx, "mcp-sq3"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestSQLiteStoreList(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	for _, id := range []string{"mcp-l1", "mcp-l2"} {
		if err := s.Put(ctx, newSession(id)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	sessions, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	for _, session := range sessions {
		if len(session.Messages) != 2 {
			t.Fatalf("list entry missing messages: %+v", session)
		}
	}
}
