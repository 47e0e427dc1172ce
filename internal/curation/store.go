package curation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Store errors.
var (
	// ErrSessionNotFound is returned when no session exists for the key.
	ErrSessionNotFound = errors.New("curation session not found")

	// ErrVersionConflict is returned when a Put carries a stale version,
	// meaning another writer checkpointed the session first. Two concurrent
	// resumes for one session ID is a caller error; the version check is
	// how the store surfaces it instead of silently losing a write.
	ErrVersionConflict = errors.New("curation session version conflict")
)

// Store is the checkpoint layer the workflow suspends and resumes through.
// Implementations must support at-most-one-writer-at-a-time semantics per
// session ID; optimistic versioning (reject stale Version on Put, bump on
// success) is the expected mechanism.
type Store interface {
	Get(ctx context.Context, id string) (*SessionState, error)
	Put(ctx context.Context, state *SessionState) error
}

// MemoryStore keeps checkpoints in process memory. Suitable for single
// process deployments and tests only: a restart loses every in-flight
// conversation. Production deployments use the database-backed store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	versions map[string]int64
}

// NewMemoryStore creates an empty in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		versions: make(map[string]int64),
	}
}

// Get returns a deep copy of the checkpointed session.
func (s *MemoryStore) Get(_ context.Context, id string) (*SessionState, error) {
	s.mu.RLock()
	raw, ok := s.sessions[id]
	version := s.versions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	var state SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	state.Version = version
	return &state, nil
}

// Put checkpoints the session. The state's Version must match the stored
// one (zero for a new session); on success the stored version is bumped and
// written back to state.
func (s *MemoryStore) Put(_ context.Context, state *SessionState) error {
	if !state.Valid() {
		return errors.New("refusing to store malformed session state")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.versions[state.ID]; ok && current != state.Version {
		return fmt.Errorf("session %s: %w", state.ID, ErrVersionConflict)
	}

	next := state.Version + 1
	state.Version = next

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", state.ID, err)
	}

	s.sessions[state.ID] = raw
	s.versions[state.ID] = next
	return nil
}

var _ Store = (*MemoryStore)(nil)
