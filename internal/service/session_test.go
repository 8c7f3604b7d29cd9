package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/xiaot623/mcpchat/internal/adapter/llm"
	"github.com/xiaot623/mcpchat/internal/config"
	"github.com/xiaot623/mcpchat/internal/domain"
	"github.com/xiaot623/mcpchat/tests/helpers"
)

func newTestService(t *testing.T) (*Service, *llm.MockClient) {
	t.Helper()

	mock := llm.NewMockClient()
	cfg := &config.Config{LLMModel: "mock-gpt-4"}
	return New(helpers.NewTestFileStore(t), mock, cfg), mock
}

func TestCreateThenGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.CreateSession(ctx, json.RawMessage(`{"client":"web"}`))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if !strings.HasPrefix(created.ConversationID, "mcp-") {
		t.Fatalf("unexpected id: %s", created.ConversationID)
	}
	if created.MessageCount != 0 {
		t.Fatalf("expected messageCount 0, got %d", created.MessageCount)
	}

	got, err := svc.GetSession(ctx, created.ConversationID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.ConversationID != created.ConversationID || got.MessageCount != 0 {
		t.Fatalf("unexpected summary: %+v", got)
	}
	if string(got.Metadata) != `{"client":"web"}` {
		t.Fatalf("metadata not preserved: %s", got.Metadata)
	}
}

func TestGetNeverCreated(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetSession(context.Background(), "mcp-ghost")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetMissingConversationID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetSession(context.Background(), "")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeleteTwice(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.CreateSession(ctx, nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	deleted, err := svc.DeleteSession(ctx, created.ConversationID)
	if err != nil || !deleted {
		t.Fatalf("first delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = svc.DeleteSession(ctx, created.ConversationID)
	if err != nil || deleted {
		t.Fatalf("second delete: deleted=%v err=%v", deleted, err)
	}
}

func TestDeleteReapsSessionLock(t *testing.T) {
	ctx := context.Background()
	svc, mock := newTestService(t)
	mock.Reply = "ok"

	created, err := svc.CreateSession(ctx, nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	err = svc.ChatStream(ctx, ChatRequest{
		ConversationID: created.ConversationID,
		Messages:       []domain.Message{{Role: "user", Content: "hello"}},
	}, nil)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	svc.mu.Lock()
	_, held := svc.locks[created.ConversationID]
	svc.mu.Unlock()
	if !held {
		t.Fatalf("expected a lock entry after a chat round")
	}

	if _, err := svc.DeleteSession(ctx, created.ConversationID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	svc.mu.Lock()
	_, held = svc.locks[created.ConversationID]
	svc.mu.Unlock()
	if held {
		t.Fatalf("lock entry survived delete")
	}
}

func TestListAfterCreateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	const n, m = 5, 2
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		created, err := svc.CreateSession(ctx, nil)
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		ids = append(ids, created.ConversationID)
	}
	for i := 0; i < m; i++ {
		if _, err := svc.DeleteSession(ctx, ids[i]); err != nil {
			t.Fatalf("DeleteSession failed: %v", err)
		}
	}

	entries, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(entries) != n-m {
		t.Fatalf("expected %d entries, got %d", n-m, len(entries))
	}
	for _, e := range entries {
		if e.MessageCount != 0 {
			t.Fatalf("unexpected messageCount: %+v", e)
		}
	}
}

func TestConversationIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newConversationID()
		if seen[id] {
			t.Fatalf("duplicate id: %s", id)
		}
		seen[id] = true
	}
}
