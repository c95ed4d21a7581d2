// Package pgdb bootstraps the single shared Postgres connection pool used by
// internal/savestate and internal/logsdb, opened through
// github.com/jackc/pgx/v4/stdlib as the database/sql driver and wrapped in
// github.com/jmoiron/sqlx for the query helpers both callers need.
package pgdb

import (
	"fmt"

	_ "github.com/jackc/pgx/v4/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"

	"github.com/semiotic-ai/autoagora-go/internal/config"
)

// Open connects to Postgres using cfg and returns a pool capped at
// cfg.PostgresMaxConnections, defaulting to a single connection if
// unconfigured or set below 1.
func Open(cfg *config.Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDatabase, cfg.PostgresUsername, cfg.PostgresPassword,
	)

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgdb: connecting to postgres: %w", err)
	}

	maxConns := cfg.PostgresMaxConnections
	if maxConns < 1 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)

	return db, nil
}
