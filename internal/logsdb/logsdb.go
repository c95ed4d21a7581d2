// Package logsdb implements the QueryLogsStore: reads the query_logs table
// graph-node's query-log exporter already populates, and owns the
// mrq_query_logs table the MRQ active-probing loop writes to.
package logsdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sapcc/go-bits/logg"

	"github.com/semiotic-ai/autoagora-go/internal/util"
)

// DefaultMinCount is the default minimum execution count: a query skeleton
// needs at least this many logged executions to be reported.
const DefaultMinCount = 100

// QueryStats is one row of GetMostFrequentQueries' result. Query is already
// reformatted (ReformatQueryBody applied, variable definitions stripped).
type QueryStats struct {
	QueryHash    []byte
	Query        string
	Count        int64
	MinTimeMs    float64
	MaxTimeMs    float64
	AvgTimeMs    float64
	StddevTimeMs float64
}

// rawQueryStats is the direct SQL scan target, before reformatting.
type rawQueryStats struct {
	QueryHash    []byte  `db:"query_hash"`
	Query        string  `db:"query"`
	Count        int64   `db:"count"`
	MinTimeMs    float64 `db:"min_time"`
	MaxTimeMs    float64 `db:"max_time"`
	AvgTimeMs    float64 `db:"avg_time"`
	StddevTimeMs float64 `db:"stddev_time"`
}

// NullTimeCandidate is one row of GetMostFrequentQueriesNullTime's result:
// a query skeleton whose rows have no timing yet, and so is a candidate for
// active MRQ probing. Query is already reformatted.
type NullTimeCandidate struct {
	QueryHash []byte
	Query     string
	Count     int64
}

type rawNullTimeCandidate struct {
	QueryHash []byte `db:"query_hash"`
	Query     string `db:"query"`
	Count     int64  `db:"count"`
}

const createMRQTableSQL = `
CREATE TABLE IF NOT EXISTS mrq_query_logs (
	id               uuid             PRIMARY KEY,
	subgraph         char(46)         NOT NULL,
	query_hash       bytea            NOT NULL REFERENCES query_skeletons (hash),
	timestamp        timestamptz      NOT NULL,
	query_time_ms    integer,
	query_variables  text
)`

// getMFQQueryLogsSQL aggregates per-skeleton timing stats from query_logs.
const getMFQQueryLogsSQL = `
SELECT
	query_logs.query_hash AS query_hash,
	query_skeletons.query AS query,
	count(query_logs.id) AS count,
	min(query_logs.query_time_ms) AS min_time,
	max(query_logs.query_time_ms) AS max_time,
	avg(query_logs.query_time_ms) AS avg_time,
	coalesce(stddev(query_logs.query_time_ms), 0) AS stddev_time
FROM query_logs
JOIN query_skeletons ON query_skeletons.hash = query_logs.query_hash
WHERE query_logs.subgraph = $1
GROUP BY query_logs.query_hash, query_skeletons.query
HAVING count(query_logs.id) >= $2
ORDER BY count DESC
`

// getMFQMRQLogsSQL is GET_MFQ_MRQ_LOGS: identical shape, sourced from the
// MRQ probe's own log table instead of graph-node's passive one.
const getMFQMRQLogsSQL = `
SELECT
	mrq_query_logs.query_hash AS query_hash,
	query_skeletons.query AS query,
	count(mrq_query_logs.id) AS count,
	min(mrq_query_logs.query_time_ms) AS min_time,
	max(mrq_query_logs.query_time_ms) AS max_time,
	avg(mrq_query_logs.query_time_ms) AS avg_time,
	coalesce(stddev(mrq_query_logs.query_time_ms), 0) AS stddev_time
FROM mrq_query_logs
JOIN query_skeletons ON query_skeletons.hash = mrq_query_logs.query_hash
WHERE mrq_query_logs.subgraph = $1
GROUP BY mrq_query_logs.query_hash, query_skeletons.query
HAVING count(mrq_query_logs.id) >= $2
ORDER BY count DESC
`

// getMFQNullTimeSQL selects MRQ candidates: query skeletons with enough
// volume in query_logs but no timing recorded for any of their rows yet.
const getMFQNullTimeSQL = `
SELECT
	query_logs.query_hash AS query_hash,
	query_skeletons.query AS query,
	count(query_logs.id) AS count
FROM query_logs
JOIN query_skeletons ON query_skeletons.hash = query_logs.query_hash
WHERE query_logs.subgraph = $1 AND query_logs.query_time_ms IS NULL
GROUP BY query_logs.query_hash, query_skeletons.query
HAVING count(query_logs.id) >= $2
ORDER BY count DESC
`

const getQueryLogsIDSQL = `
SELECT id FROM query_logs WHERE query_hash = $1
`

const getQueryVariablesSQL = `
SELECT query_variables FROM query_logs WHERE id = $1
`

const insertMRQLogSQL = `
INSERT INTO mrq_query_logs (id, subgraph, query_hash, timestamp, query_time_ms, query_variables)
VALUES ($1, $2, $3, $4, $5, $6)
`

// Store is the QueryLogsStore. The mrq_query_logs table is created lazily on
// first use rather than via migration, since it's the only table this
// package owns — query_logs and query_skeletons belong to graph-node and are
// never created here.
type Store struct {
	db *sqlx.DB

	mrqTableCreated bool
}

// New wraps db, the shared pool opened by internal/pgdb.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// EnsureMRQTable issues CREATE TABLE IF NOT EXISTS for mrq_query_logs. It is
// idempotent and safe to call before every MRQLoop insert.
func (s *Store) EnsureMRQTable(ctx context.Context) error {
	if s.mrqTableCreated {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, createMRQTableSQL); err != nil {
		return fmt.Errorf("logsdb: creating mrq_query_logs: %w", err)
	}
	s.mrqTableCreated = true
	return nil
}

// GetMostFrequentQueries returns every query skeleton for subgraph with at
// least minCount logged executions, most frequent first. Pass mrqTable=true
// to source counts from mrq_query_logs instead of graph-node's query_logs.
func (s *Store) GetMostFrequentQueries(ctx context.Context, subgraph string, minCount int64, mrqTable bool) ([]QueryStats, error) {
	query := getMFQQueryLogsSQL
	if mrqTable {
		query = getMFQMRQLogsSQL
	}
	var raw []rawQueryStats
	if err := s.db.SelectContext(ctx, &raw, query, subgraph, minCount); err != nil {
		return nil, fmt.Errorf("logsdb: GetMostFrequentQueries(%s): %w", subgraph, err)
	}

	rows := make([]QueryStats, 0, len(raw))
	for _, r := range raw {
		reformatted, err := ReformatQueryBody(r.Query)
		if err != nil {
			// One bad skeleton shouldn't block publishing the rest.
			logg.Error("logsdb: dropping unparseable query skeleton for subgraph %s: %s", subgraph, err.Error())
			continue
		}
		rows = append(rows, QueryStats{
			QueryHash:    r.QueryHash,
			Query:        reformatted,
			Count:        r.Count,
			MinTimeMs:    r.MinTimeMs,
			MaxTimeMs:    r.MaxTimeMs,
			AvgTimeMs:    r.AvgTimeMs,
			StddevTimeMs: r.StddevTimeMs,
		})
	}
	return rows, nil
}

// GetMostFrequentQueriesNullTime returns candidate query skeletons for MRQ
// active probing: high-volume in query_logs, but not yet timed.
func (s *Store) GetMostFrequentQueriesNullTime(ctx context.Context, subgraph string, minCount int64) ([]NullTimeCandidate, error) {
	var raw []rawNullTimeCandidate
	if err := s.db.SelectContext(ctx, &raw, getMFQNullTimeSQL, subgraph, minCount); err != nil {
		return nil, fmt.Errorf("logsdb: GetMostFrequentQueriesNullTime(%s): %w", subgraph, err)
	}

	rows := make([]NullTimeCandidate, 0, len(raw))
	for _, r := range raw {
		reformatted, err := ReformatQueryBody(r.Query)
		if err != nil {
			logg.Error("logsdb: dropping unparseable MRQ candidate for subgraph %s: %s", subgraph, err.Error())
			continue
		}
		rows = append(rows, NullTimeCandidate{
			QueryHash: r.QueryHash,
			Query:     reformatted,
			Count:     r.Count,
		})
	}
	return rows, nil
}

// GetQueryLogsID returns every query_logs.id recorded for the given query
// skeleton hash, used by the MRQ loop to pick a representative set of
// stored variable bindings to replay.
func (s *Store) GetQueryLogsID(ctx context.Context, queryHash []byte) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := s.db.SelectContext(ctx, &ids, getQueryLogsIDSQL, queryHash); err != nil {
		return nil, fmt.Errorf("logsdb: GetQueryLogsID: %w", err)
	}
	return ids, nil
}

// GetQueryVariables decodes the JSON-encoded query_variables column stored
// against query_logs.id into a positional list of values.
func (s *Store) GetQueryVariables(ctx context.Context, id uuid.UUID) ([]any, error) {
	var raw sql.NullString
	if err := s.db.GetContext(ctx, &raw, getQueryVariablesSQL, id); err != nil {
		return nil, fmt.Errorf("logsdb: GetQueryVariables(%s): %w", id, err)
	}
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var vars []any
	if err := json.Unmarshal([]byte(raw.String), &vars); err != nil {
		return nil, fmt.Errorf("logsdb: decoding query_variables for %s: %w", id, err)
	}
	return vars, nil
}

// SaveMRQQueryLog inserts one MRQ active-probe measurement. The row id is
// generated here rather than left to a table default, so that callers can
// log it before the insert commits.
func (s *Store) SaveMRQQueryLog(ctx context.Context, subgraph string, queryHash []byte, queryTimeMs int, variables []any) (uuid.UUID, error) {
	if err := s.EnsureMRQTable(ctx); err != nil {
		return uuid.UUID{}, err
	}

	encoded, err := util.RenderListToJSON("query_variables", variables)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("logsdb: %w", err)
	}
	variablesText := sql.NullString{String: encoded, Valid: encoded != ""}

	id := uuid.New()
	_, err = s.db.ExecContext(ctx, insertMRQLogSQL, id, subgraph, queryHash, time.Now().UTC(), queryTimeMs, variablesText)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("logsdb: inserting mrq_query_logs row: %w", err)
	}
	return id, nil
}
