package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/xiaot623/mcpchat/internal/domain"
)

// sessionsFileName is the fixed file under the data directory holding the
// whole session map as one JSON document.
const sessionsFileName = "sessions.json"

// FileStore keeps the full session map in memory and rewrites a single JSON
// file on every mutation. The in-memory map is the source of truth: a failed
// write is logged and the caller still sees success, so a transient disk
// failure never loses data already served, only durability across a restart.
//
// A single mutex serializes save(), so concurrent mutations never interleave
// partial snapshots on the shared file.
type FileStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	path     string
}

// NewFileStore creates the data directory if absent and loads any previously
// persisted sessions. A corrupt or unreadable file is logged and replaced by
// an empty map rather than failing startup.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	s := &FileStore{
		sessions: make(map[string]*domain.Session),
		path:     filepath.Join(dataDir, sessionsFileName),
	}
	s.load()
	return s, nil
}

func (s *FileStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARN: failed to read %s, starting empty: %v", s.path, err)
		}
		return
	}

	sessions := make(map[string]*domain.Session)
	if err := json.Unmarshal(data, &sessions); err != nil {
		log.Printf("WARN: failed to parse %s, starting empty: %v", s.path, err)
		return
	}
	s.sessions = sessions
}

// save rewrites the whole file. Caller must hold the write lock. The snapshot
// goes to a temp file first and is renamed over the target, so an interrupted
// write never truncates the live file.
func (s *FileStore) save() {
	data, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		log.Printf("ERROR: failed to marshal sessions: %v", err)
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Printf("ERROR: failed to write %s: %v", tmp, err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		log.Printf("ERROR: failed to replace %s: %v", s.path, err)
	}
}

// Get returns a copy of the session or domain.ErrSessionNotFound.
func (s *FileStore) Get(ctx context.Context, conversationID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, conversationID)
	}
	return session.Clone(), nil
}

// Put inserts or replaces the session and rewrites the file.
func (s *FileStore) Put(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ConversationID] = session.Clone()
	s.save()
	return nil
}

// Delete removes the session if present and rewrites the file.
func (s *FileStore) Delete(ctx context.Context, conversationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[conversationID]; !ok {
		return false, nil
	}
	delete(s.sessions, conversationID)
	s.save()
	return true, nil
}

// List returns copies of every known session.
func (s *FileStore) List(ctx context.Context) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]domain.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, *session.Clone())
	}
	return sessions, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
