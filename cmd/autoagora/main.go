// Command autoagora runs the pricing control plane: one PriceBanditLoop per
// allocated subgraph, brought up and down by an AllocationSupervisor,
// alongside a Prometheus metrics server. Startup failures go straight to
// logg.Fatal rather than being retried, since a bad config or an
// unreachable database at boot isn't going to fix itself.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sapcc/go-bits/logg"

	"github.com/semiotic-ai/autoagora-go/internal/config"
	"github.com/semiotic-ai/autoagora-go/internal/graphnode"
	"github.com/semiotic-ai/autoagora-go/internal/indexeragent"
	"github.com/semiotic-ai/autoagora-go/internal/logsdb"
	"github.com/semiotic-ai/autoagora-go/internal/metricsendpoints"
	"github.com/semiotic-ai/autoagora-go/internal/metricsserver"
	"github.com/semiotic-ai/autoagora-go/internal/pgdb"
	"github.com/semiotic-ai/autoagora-go/internal/savestate"
	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
	"github.com/semiotic-ai/autoagora-go/internal/supervisor"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logg.Fatal(err.Error())
	}
	logg.ShowDebug = cfg.LogLevel == "DEBUG"

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := pgdb.Open(cfg)
	if err != nil {
		logg.Fatal("connecting to postgres: %s", err.Error())
	}

	endpoints, err := metricsendpoints.New(cfg.IndexerServiceMetricsEndpoint)
	if err != nil {
		logg.Fatal("configuring indexer-service-metrics-endpoint: %s", err.Error())
	}

	excluded := make(map[subgraphid.ID]struct{}, len(cfg.RelativeQueryCostsExcludeSubgraphs))
	for _, raw := range cfg.RelativeQueryCostsExcludeSubgraphs {
		id, err := subgraphid.ParseBase58(raw)
		if err != nil {
			logg.Fatal("relative-query-costs-exclude-subgraphs: %s", err.Error())
		}
		excluded[id] = struct{}{}
	}

	registry := prometheus.NewRegistry()
	gauges := metricsserver.NewGauges(registry)

	sup := supervisor.New(supervisor.Config{
		Indexer:                indexeragent.New(cfg.IndexerAgentMgmtEndpoint),
		GraphNode:              graphnode.New(cfg.GraphNodeQueryEndpoint),
		Endpoints:              endpoints,
		Logs:                   logsdb.New(db),
		SaveState:              savestate.New(db),
		Gauges:                 gauges,
		ExcludeSubgraphs:       excluded,
		RelativeQueryCosts:     cfg.RelativeQueryCosts,
		MultiRootQueries:       cfg.MultiRootQueries,
		RefreshInterval:        cfg.RelativeQueryCostsRefreshInterval,
		QPSObservationDuration: cfg.QPSObservationDuration,
		ManualEntryPath:        cfg.ManualEntryPath,
	})

	go sup.Run(ctx)

	if err := metricsserver.Serve(ctx, ":8000", registry); err != nil {
		logg.Fatal("metrics server: %s", err.Error())
	}
}
