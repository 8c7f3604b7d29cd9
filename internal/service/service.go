// Package service implements the session lifecycle and the chat completion
// bridge on top of the store and the LLM provider client.
package service

import (
	"sync"

	"github.com/xiaot623/mcpchat/internal/adapter/llm"
	"github.com/xiaot623/mcpchat/internal/config"
	"github.com/xiaot623/mcpchat/internal/store"
)

type Service struct {
	store     store.Store
	llmClient llm.LLMClient
	config    *config.Config

	// locks holds one mutex per conversation id so at most one mutation is
	// in flight per session. Entries are dropped when the session is
	// deleted, keeping the set bounded by the live sessions.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(st store.Store, llmClient llm.LLMClient, cfg *config.Config) *Service {
	return &Service{
		store:     st,
		llmClient: llmClient,
		config:    cfg,
		locks:     make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex guarding the read-append-persist sequence for
// one conversation.
func (s *Service) sessionLock(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[conversationID] = lock
	}
	return lock
}

// dropSessionLock discards the mutex of a deleted conversation.
func (s *Service) dropSessionLock(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, conversationID)
}
