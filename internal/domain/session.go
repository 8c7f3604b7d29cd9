// Package domain defines the core types shared across the service.
package domain

import (
	"encoding/json"
	"time"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session represents one conversation: an ordered message history plus
// client-supplied metadata, addressed by an opaque conversation id.
type Session struct {
	ConversationID string          `json:"conversationId"`
	Messages       []Message       `json:"messages"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Clone returns a deep copy so callers never alias the stored history.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	if s.Metadata != nil {
		cp.Metadata = make(json.RawMessage, len(s.Metadata))
		copy(cp.Metadata, s.Metadata)
	}
	return &cp
}

// Summary is the projection returned by get: everything except the raw
// message history.
type Summary struct {
	ConversationID string          `json:"conversationId"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	MessageCount   int             `json:"messageCount"`
}

// ListEntry is one row of the session browser listing. Date is the last
// activity timestamp.
type ListEntry struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	MessageCount int       `json:"messageCount"`
}

// Summarize builds the get projection for a session.
func (s *Session) Summarize() Summary {
	return Summary{
		ConversationID: s.ConversationID,
		Metadata:       s.Metadata,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		MessageCount:   len(s.Messages),
	}
}
