// Package config builds the single immutable configuration snapshot that
// cmd/autoagora wires into every other package. Flags are parsed with
// github.com/spf13/pflag, with an environment-variable fallback read through
// github.com/sapcc/go-bits/osext, so every setting can be supplied either as
// a CLI flag or as an AUTOAGORA_* variable for container deployments that
// prefer env-based config.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sapcc/go-bits/osext"
	"github.com/spf13/pflag"
)

// Config is the process-wide, read-only snapshot built once at startup by
// Load. Nothing mutates it afterwards; it is passed by reference to every
// supervisor and loop constructor.
type Config struct {
	IndexerAgentMgmtEndpoint     string
	IndexerServiceMetricsEndpoint string
	GraphNodeQueryEndpoint       string

	PostgresHost          string
	PostgresPort          string
	PostgresDatabase      string
	PostgresUsername      string
	PostgresPassword      string
	PostgresMaxConnections int

	RelativeQueryCosts               bool
	RelativeQueryCostsExcludeSubgraphs []string
	RelativeQueryCostsRefreshInterval time.Duration

	MultiRootQueries bool

	QPSObservationDuration time.Duration

	ManualEntryPath string

	LogLevel string
	JSONLogs bool
}

// Defaults chosen to keep an under-configured deployment running rather
// than refusing to start: a single Postgres connection, an hour between
// relative-cost model rebuilds, and a minute of QPS observation before the
// bandit loop starts acting on it.
const (
	defaultRelativeQueryCostsRefreshInterval = 3600 * time.Second
	defaultQPSObservationDuration            = 60 * time.Second
	defaultPostgresMaxConnections            = 1
	defaultPostgresHost                      = "localhost"
	defaultPostgresPort                      = "5432"
	defaultPostgresDatabase                  = "autoagora"
	defaultPostgresUsername                  = "postgres"
	defaultLogLevel                          = "WARNING"
)

// Load parses argv (typically os.Args[1:]) into a Config, falling back to
// the AUTOAGORA_* environment variables named below for any flag not given
// on the command line. A required flag left unset on both paths is returned
// as an error rather than defaulted, since guessing an indexer endpoint
// would send traffic to the wrong place.
func Load(argv []string) (*Config, error) {
	fs := pflag.NewFlagSet("autoagora", pflag.ContinueOnError)

	indexerAgentMgmtEndpoint := fs.String("indexer-agent-mgmt-endpoint", osext.GetenvOrDefault("AUTOAGORA_INDEXER_AGENT_MGMT_ENDPOINT", ""),
		"URL to the indexer-agent management GraphQL endpoint.")
	indexerServiceMetricsEndpoint := fs.String("indexer-service-metrics-endpoint", osext.GetenvOrDefault("AUTOAGORA_INDEXER_SERVICE_METRICS_ENDPOINT", ""),
		"Comma-separated Prometheus URLs, or a single scheme://service:port/path for Kubernetes endpoint discovery.")
	graphNodeQueryEndpoint := fs.String("graph-node-query-endpoint", osext.GetenvOrDefault("AUTOAGORA_GRAPH_NODE_QUERY_ENDPOINT", ""),
		"GraphQL endpoint used by the MRQ active-probing loop.")

	postgresHost := fs.String("postgres-host", osext.GetenvOrDefault("AUTOAGORA_POSTGRES_HOST", defaultPostgresHost), "Postgres host.")
	postgresPort := fs.String("postgres-port", osext.GetenvOrDefault("AUTOAGORA_POSTGRES_PORT", defaultPostgresPort), "Postgres port.")
	postgresDatabase := fs.String("postgres-database", osext.GetenvOrDefault("AUTOAGORA_POSTGRES_DATABASE", defaultPostgresDatabase), "Postgres database name.")
	postgresUsername := fs.String("postgres-username", osext.GetenvOrDefault("AUTOAGORA_POSTGRES_USERNAME", defaultPostgresUsername), "Postgres username.")
	postgresPassword := fs.String("postgres-password", osext.GetenvOrDefault("AUTOAGORA_POSTGRES_PASSWORD", ""), "Postgres password.")
	postgresMaxConnections := fs.Int("postgres-max-connections", envInt("AUTOAGORA_POSTGRES_MAX_CONNECTIONS", defaultPostgresMaxConnections), "Maximum size of the shared Postgres connection pool.")

	relativeQueryCosts := fs.Bool("relative-query-costs", osext.GetenvBool("AUTOAGORA_RELATIVE_QUERY_COSTS"), "Enable the relative-cost ModelBuilderLoop.")
	relativeQueryCostsExclude := fs.String("relative-query-costs-exclude-subgraphs", osext.GetenvOrDefault("AUTOAGORA_RELATIVE_QUERY_COSTS_EXCLUDE_SUBGRAPHS", ""),
		"Comma-separated subgraph IDs excluded from all control loops.")
	relativeQueryCostsRefreshInterval := fs.Duration("relative-query-costs-refresh-interval", envDuration("AUTOAGORA_RELATIVE_QUERY_COSTS_REFRESH_INTERVAL", defaultRelativeQueryCostsRefreshInterval),
		"Cadence between ModelBuilderLoop publishes.")

	multiRootQueries := fs.Bool("multi-root-queries", osext.GetenvBool("AUTOAGORA_MULTI_ROOT_QUERIES"), "Enable the MRQLoop active-probing loop.")

	qpsObservationDuration := fs.Duration("qps-observation-duration", envDuration("AUTOAGORA_QPS_OBSERVATION_DURATION", defaultQPSObservationDuration),
		"Window over which SubgraphPricingEnv measures queries-per-second.")

	manualEntryPath := fs.String("manual-entry-path", osext.GetenvOrDefault("AUTOAGORA_MANUAL_ENTRY_PATH", ""),
		"Directory holding <SubgraphId>.agora manual cost-model fragments.")

	logLevel := fs.String("log-level", osext.GetenvOrDefault("AUTOAGORA_LOG_LEVEL", defaultLogLevel), "DEBUG, INFO, WARNING, ERROR or CRITICAL (aliased to logg levels).")
	jsonLogs := fs.Bool("json-logs", osext.GetenvBool("AUTOAGORA_JSON_LOGS"), "Emit logs as JSON, compatible with GKE's log ingestion.")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}

	cfg := &Config{
		IndexerAgentMgmtEndpoint:           *indexerAgentMgmtEndpoint,
		IndexerServiceMetricsEndpoint:      *indexerServiceMetricsEndpoint,
		GraphNodeQueryEndpoint:             *graphNodeQueryEndpoint,
		PostgresHost:                       *postgresHost,
		PostgresPort:                       *postgresPort,
		PostgresDatabase:                   *postgresDatabase,
		PostgresUsername:                   *postgresUsername,
		PostgresPassword:                   *postgresPassword,
		PostgresMaxConnections:             *postgresMaxConnections,
		RelativeQueryCosts:                 *relativeQueryCosts,
		RelativeQueryCostsExcludeSubgraphs: splitCSV(*relativeQueryCostsExclude),
		RelativeQueryCostsRefreshInterval:  *relativeQueryCostsRefreshInterval,
		MultiRootQueries:                   *multiRootQueries,
		QPSObservationDuration:             *qpsObservationDuration,
		ManualEntryPath:                    *manualEntryPath,
		LogLevel:                           *logLevel,
		JSONLogs:                           *jsonLogs,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.IndexerAgentMgmtEndpoint == "" {
		return fmt.Errorf("config: --indexer-agent-mgmt-endpoint is required")
	}
	if c.IndexerServiceMetricsEndpoint == "" {
		return fmt.Errorf("config: --indexer-service-metrics-endpoint is required")
	}
	return nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, def int) int {
	v := osext.GetenvOrDefault(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := osext.GetenvOrDefault(key, "")
	if v == "" {
		return def
	}
	// Accept a bare number of seconds as well as a Go duration string, since
	// operators copying values from dashboards tend to paste plain seconds.
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
