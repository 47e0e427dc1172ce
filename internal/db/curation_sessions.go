package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-gem-curator/internal/curation"
)

// CurationSessionStore implements curation.Store on PostgreSQL. Sessions
// are checkpointed as JSONB with an optimistic version column, so a
// process restart loses nothing and two concurrent resumes for the same
// session cannot silently overwrite each other.
type CurationSessionStore struct {
	pool *pgxpool.Pool
}

// Get implements curation.Store.
func (s *CurationSessionStore) Get(ctx context.Context, id string) (*curation.SessionState, error) {
	query := `SELECT state, version FROM curation_sessions WHERE id = $1`

	var raw []byte
	var version int64
	err := s.pool.QueryRow(ctx, query, id).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, curation.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session %s: %w", id, err)
	}

	var state curation.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	state.Version = version
	return &state, nil
}

// Put implements curation.Store. The version in state must match the
// stored row (zero for a new session); the stored version is bumped
// atomically with the write and written back to state.
func (s *CurationSessionStore) Put(ctx context.Context, state *curation.SessionState) error {
	if !state.Valid() {
		return errors.New("refusing to store malformed session state")
	}

	next := state.Version + 1
	state.Version = next

	raw, err := json.Marshal(state)
	if err != nil {
		state.Version = next - 1
		return fmt.Errorf("encoding session %s: %w", state.ID, err)
	}

	query := `
		INSERT INTO curation_sessions (id, state, version, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			version = EXCLUDED.version,
			updated_at = NOW()
		WHERE curation_sessions.version = $4
		RETURNING version
	`
	var stored int64
	err = s.pool.QueryRow(ctx, query, state.ID, raw, next, next-1).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		state.Version = next - 1
		return fmt.Errorf("session %s: %w", state.ID, curation.ErrVersionConflict)
	}
	if err != nil {
		state.Version = next - 1
		return fmt.Errorf("storing session %s: %w", state.ID, err)
	}
	return nil
}

var _ curation.Store = (*CurationSessionStore)(nil)
