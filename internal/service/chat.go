package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xiaot623/mcpchat/internal/adapter/llm"
	"github.com/xiaot623/mcpchat/internal/domain"
)

// ChatRequest is one inbound chat turn: the client's message list and,
// for persisted conversations, the session id.
type ChatRequest struct {
	ConversationID string
	Messages       []domain.Message
}

// ChatStream runs one chat round. Content deltas are relayed to onDelta as
// they arrive from the provider.
//
// With a conversation id, the newest inbound message (which must have role
// "user") is appended and persisted before the provider call, and the full
// assembled reply is appended as an assistant message once the stream
// finishes. Without an id the request is a pure passthrough and nothing is
// persisted.
//
// The provider call is detached from the caller's context: a disconnect stops
// the relay but generation runs to completion and the append-on-finish still
// happens.
func (s *Service) ChatStream(ctx context.Context, req ChatRequest, onDelta func(string) error) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("%w: messages are required", domain.ErrInvalidInput)
	}

	if req.ConversationID == "" {
		_, err := s.stream(ctx, req.Messages, onDelta)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrUpstream, err)
		}
		return nil
	}

	// One in-flight mutation per session: hold the lock across the whole
	// read-append-stream-append round.
	lock := s.sessionLock(req.ConversationID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.store.Get(ctx, req.ConversationID)
	if err != nil {
		return err
	}

	newest := req.Messages[len(req.Messages)-1]
	if newest.Role != domain.RoleUser {
		return fmt.Errorf("%w: newest message must have role %q, got %q", domain.ErrInvalidInput, domain.RoleUser, newest.Role)
	}

	before := session.Messages

	// A fresh session picks up a leading system instruction from the first
	// request.
	if len(session.Messages) == 0 && len(req.Messages) > 1 && req.Messages[0].Role == domain.RoleSystem {
		session.Messages = append(session.Messages, req.Messages[0])
	}
	session.Messages = append(session.Messages, newest)
	session.UpdatedAt = time.Now()

	// The user turn is persisted before the provider call. On upstream
	// failure it stays recorded unless rollback is configured.
	if err := s.store.Put(ctx, session); err != nil {
		return fmt.Errorf("failed to persist user turn: %w", err)
	}

	reply, err := s.stream(ctx, session.Messages, onDelta)
	if err != nil {
		if s.config.RollbackUserTurnOnError {
			session.Messages = before
			session.UpdatedAt = time.Now()
			if putErr := s.store.Put(ctx, session); putErr != nil {
				log.Printf("ERROR: failed to roll back user turn for %s: %v", session.ConversationID, putErr)
			}
		}
		return fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}

	session.Messages = append(session.Messages, domain.Message{
		Role:    domain.RoleAssistant,
		Content: reply,
	})
	session.UpdatedAt = time.Now()
	if err := s.store.Put(ctx, session); err != nil {
		return fmt.Errorf("failed to persist assistant turn: %w", err)
	}
	return nil
}

// stream submits the history to the provider and assembles the full reply
// from the delta stream. Relay failures are swallowed after the first one so
// the stream keeps draining and the reply can still be recorded.
func (s *Service) stream(ctx context.Context, history []domain.Message, onDelta func(string) error) (string, error) {
	req := &llm.ChatCompletionRequest{
		Model:    s.config.LLMModel,
		Messages: toChatMessages(history),
	}

	var reply strings.Builder
	var relayErr error

	_, err := s.llmClient.CreateChatCompletionStream(context.WithoutCancel(ctx), req, func(chunk *llm.StreamChunk) error {
		for _, choice := range chunk.Choices {
			if choice.Delta == nil || choice.Delta.Content == "" {
				continue
			}
			reply.WriteString(choice.Delta.Content)
			if relayErr == nil && onDelta != nil {
				if err := onDelta(choice.Delta.Content); err != nil {
					relayErr = err
					log.Printf("WARN: stream relay failed, draining provider stream: %v", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply.String(), nil
}

// ListModels retrieves the provider's model list.
func (s *Service) ListModels(ctx context.Context) ([]llm.Model, error) {
	return s.llmClient.ListModels(ctx)
}

func toChatMessages(messages []domain.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, len(messages))
	for i, m := range messages {
		out[i] = llm.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
