// Package databasesql provides a database/sql brain-id store for PostgreSQL.
// Register the lib/pq driver (or any driver accepting pq.Array values) and
// pass the *sql.DB:
//
//	db, _ := sql.Open("postgres", connStr)
//	store := databasesql.New(db)
package databasesql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/youssefsiam38/contextgc"
	"github.com/youssefsiam38/contextgc/brainstore"
)

// Store implements brainstore.Store and brainstore.BatchLookup on a *sql.DB.
type Store struct {
	db *sql.DB
}

var (
	_ brainstore.Store       = (*Store)(nil)
	_ brainstore.BatchLookup = (*Store)(nil)
)

// New creates a Store on db.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// getExecutor returns the executor from context if present, otherwise the pool.
func (s *Store) getExecutor(ctx context.Context) brainstore.Executor {
	if exec := brainstore.ExecutorFromContext(ctx); exec != nil {
		return exec
	}
	return &executor{q: s.db}
}

// Migrate creates the brain-id table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.getExecutor(ctx).Exec(ctx, brainstore.Schema); err != nil {
		return contextgc.NewStoreError("Migrate", "", fmt.Errorf("failed to create schema: %w", err))
	}
	return nil
}

// BrainID implements brainstore.Lookup.
func (s *Store) BrainID(ctx context.Context, sessionID, messageID string) (int, bool, error) {
	query := `
		SELECT brain_id
		FROM contextgc_brain_ids
		WHERE session_id = $1 AND message_id = $2
	`

	var id int
	err := s.getExecutor(ctx).QueryRow(ctx, query, sessionID, messageID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, contextgc.NewStoreError("BrainID", sessionID, fmt.Errorf("failed to get brain id: %w", err))
	}
	return id, true, nil
}

// BrainIDs implements brainstore.BatchLookup.
func (s *Store) BrainIDs(ctx context.Context, sessionID string, messageIDs []string) (map[string]int, error) {
	ids := make(map[string]int, len(messageIDs))
	if len(messageIDs) == 0 {
		return ids, nil
	}

	// Use pq.Array for PostgreSQL array parameter
	query := `
		SELECT message_id, brain_id
		FROM contextgc_brain_ids
		WHERE session_id = $1 AND message_id = ANY($2)
	`

	rows, err := s.getExecutor(ctx).Query(ctx, query, sessionID, pq.Array(messageIDs))
	if err != nil {
		return nil, contextgc.NewStoreError("BrainIDs", sessionID, fmt.Errorf("failed to query brain ids: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var messageID string
		var id int
		if err := rows.Scan(&messageID, &id); err != nil {
			return nil, contextgc.NewStoreError("BrainIDs", sessionID, fmt.Errorf("failed to scan brain id: %w", err))
		}
		ids[messageID] = id
	}
	if err := rows.Err(); err != nil {
		return nil, contextgc.NewStoreError("BrainIDs", sessionID, fmt.Errorf("failed to iterate brain ids: %w", err))
	}
	return ids, nil
}

// SetBrainID implements brainstore.Store.
func (s *Store) SetBrainID(ctx context.Context, sessionID, messageID string, brainID int) error {
	if sessionID == "" {
		return contextgc.NewStoreError("SetBrainID", "", contextgc.ErrSessionRequired)
	}

	query := `
		INSERT INTO contextgc_brain_ids (session_id, message_id, brain_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (session_id, message_id)
		DO UPDATE SET brain_id = EXCLUDED.brain_id, updated_at = NOW()
	`

	if _, err := s.getExecutor(ctx).Exec(ctx, query, sessionID, messageID, brainID); err != nil {
		return contextgc.NewStoreError("SetBrainID", sessionID, fmt.Errorf("failed to set brain id: %w", err))
	}
	return nil
}

// ClearSession implements brainstore.Store.
func (s *Store) ClearSession(ctx context.Context, sessionID string) error {
	query := `DELETE FROM contextgc_brain_ids WHERE session_id = $1`

	if _, err := s.getExecutor(ctx).Exec(ctx, query, sessionID); err != nil {
		return contextgc.NewStoreError("ClearSession", sessionID, fmt.Errorf("failed to clear session: %w", err))
	}
	return nil
}
