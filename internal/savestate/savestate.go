// Package savestate implements the PriceSaveStateStore: persists each
// subgraph's learned policy parameters across restarts so PriceBanditLoop
// can resume instead of relearning from scratch. Table creation is lazy and
// upserts go through sqlx directly — a struct-to-table ORM is overkill for a
// single upsert/read pair against one table.
package savestate

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
)

// Row is one subgraph's saved policy state.
type Row struct {
	Subgraph   subgraphid.ID
	LastUpdate time.Time
	Mean       float64
	Stddev     float64
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS price_save_state (
	subgraph    char(46)         PRIMARY KEY,
	last_update timestamptz      NOT NULL,
	mean        double precision NOT NULL,
	stddev      double precision NOT NULL
)`

const upsertSQL = `
INSERT INTO price_save_state (subgraph, last_update, mean, stddev)
	VALUES ($1, $2, $3, $4)
ON CONFLICT (subgraph) DO UPDATE SET
	last_update = EXCLUDED.last_update,
	mean        = EXCLUDED.mean,
	stddev      = EXCLUDED.stddev
`

const selectSQL = `
SELECT last_update, mean, stddev
FROM price_save_state
WHERE subgraph = $1
`

// Store is the PriceSaveStateStore. Table creation is lazy: the first
// Save or Load call issues CREATE TABLE IF NOT EXISTS.
type Store struct {
	db *sqlx.DB

	once      sync.Once
	createErr error
}

// New wraps db. db is the shared pool opened by internal/pgdb.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ensureTable(ctx context.Context) error {
	s.once.Do(func() {
		_, s.createErr = s.db.ExecContext(ctx, createTableSQL)
	})
	return s.createErr
}

// Save upserts the current policy state for subgraph.
func (s *Store) Save(ctx context.Context, subgraph subgraphid.ID, mean, stddev float64) error {
	if err := s.ensureTable(ctx); err != nil {
		return fmt.Errorf("savestate: creating table: %w", err)
	}
	_, err := s.db.ExecContext(ctx, upsertSQL, subgraph.Base58(), time.Now().UTC(), mean, stddev)
	if err != nil {
		return fmt.Errorf("savestate: upserting %s: %w", subgraph.Base58(), err)
	}
	return nil
}

// Load reads the saved policy state for subgraph. A nil Row with a nil
// error means no save state exists yet — expected for a freshly-allocated
// subgraph, never treated as an error.
func (s *Store) Load(ctx context.Context, subgraph subgraphid.ID) (*Row, error) {
	if err := s.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("savestate: creating table: %w", err)
	}

	var row struct {
		LastUpdate time.Time `db:"last_update"`
		Mean       float64   `db:"mean"`
		Stddev     float64   `db:"stddev"`
	}
	err := s.db.GetContext(ctx, &row, selectSQL, subgraph.Base58())
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("savestate: loading %s: %w", subgraph.Base58(), err)
	}
	return &Row{
		Subgraph:   subgraph,
		LastUpdate: row.LastUpdate,
		Mean:       row.Mean,
		Stddev:     row.Stddev,
	}, nil
}
