package modelbuilder

import (
	"context"
	"time"

	"github.com/sapcc/go-bits/logg"

	"github.com/semiotic-ai/autoagora-go/internal/indexeragent"
	"github.com/semiotic-ai/autoagora-go/internal/logsdb"
	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
)

// Loop is the ModelBuilderLoop: periodically mines query_logs for subgraph
// and pushes a freshly rendered cost-model document.
type Loop struct {
	Subgraph        subgraphid.ID
	Indexer         *indexeragent.Client
	Logs            *logsdb.Store
	ManualEntryPath string

	// RefreshInterval is the fixed cadence between publishes. Zero is not a
	// valid value; callers must set it from config.
	RefreshInterval time.Duration

	// TimeNow and Sleep are injectable for tests.
	TimeNow func() time.Time
	Sleep   func(context.Context, time.Duration) error

	// LogError receives every recoverable error encountered in Run; the
	// default logs at WARNING via logg.
	LogError func(format string, args ...any)
}

// NewLoop constructs a Loop with its runtime defaults wired in.
func NewLoop(subgraph subgraphid.ID, indexer *indexeragent.Client, logs *logsdb.Store, manualEntryPath string, refreshInterval time.Duration) *Loop {
	return &Loop{
		Subgraph:        subgraph,
		Indexer:         indexer,
		Logs:            logs,
		ManualEntryPath: manualEntryPath,
		RefreshInterval: refreshInterval,
		TimeNow:         time.Now,
		Sleep:           sleepContext,
		LogError:        logg.Error,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run builds and publishes a cost-model document, then sleeps
// RefreshInterval, forever until ctx is cancelled. A single failed cycle
// (query log error, GraphQL mutation error) is logged and retried next
// cycle rather than terminating the loop.
func (l *Loop) Run(ctx context.Context) {
	for {
		if err := l.runOnce(ctx); err != nil {
			l.LogError("modelbuilder: subgraph %s: %s", l.Subgraph.Base58(), err.Error())
		}
		if err := l.Sleep(ctx, l.RefreshInterval); err != nil {
			return
		}
	}
}

func (l *Loop) runOnce(ctx context.Context) error {
	manualEntry, _, err := ManualEntry(l.ManualEntryPath, l.Subgraph)
	if err != nil {
		return err
	}

	queries, err := l.Logs.GetMostFrequentQueries(ctx, l.Subgraph.Base58(), logsdb.DefaultMinCount, false)
	if err != nil {
		return err
	}

	model, err := Build(manualEntry, queries)
	if err != nil {
		return err
	}

	return l.Indexer.SetCostModel(ctx, l.Subgraph, &model, nil)
}
