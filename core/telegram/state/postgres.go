package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	selectStateSQL = `SELECT state FROM fsm_sessions WHERE user_id = $1`
	upsertStateSQL = `INSERT INTO fsm_sessions (user_id, state, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`
)

// SQLStore implements Store on the fsm_sessions table.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLStore wraps a connected database whose schema is migrated.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// Get loads the label for userID.
func (s *SQLStore) Get(ctx context.Context, userID int64) (State, bool, error) {
	var raw string
	if err := s.db.GetContext(ctx, &raw, selectStateSQL, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select state: %w", err)
	}
	st, ok := decode([]byte(raw))
	return st, ok, nil
}

// Set upserts the label for userID.
func (s *SQLStore) Set(ctx context.Context, userID int64, st State) error {
	if _, err := s.db.ExecContext(ctx, upsertStateSQL, userID, string(st), s.now().UTC()); err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
