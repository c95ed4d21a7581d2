// Package mrq implements the MRQLoop: for subgraphs with multi-root queries
// whose cost graph-node cannot estimate passively, it actively replays
// stored variable bindings against graph-node and times them, then feeds
// those timings back into the cost-model builder.
package mrq

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sapcc/go-bits/logg"

	"github.com/semiotic-ai/autoagora-go/internal/graphnode"
	"github.com/semiotic-ai/autoagora-go/internal/indexeragent"
	"github.com/semiotic-ai/autoagora-go/internal/logsdb"
	"github.com/semiotic-ai/autoagora-go/internal/modelbuilder"
	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
)

// probeIterations is measure_query_time's default iteration count: how many
// random historical variable bindings are replayed per candidate query
// before its timing is considered representative.
const probeIterations = 100

// logNormalMu and logNormalSigma parameterize the MRQ loop's publish
// cadence: the sleep interval between cycles is drawn from a log-normal
// distribution rather than a fixed duration, so that many subgraphs running
// MRQ probing concurrently don't all hit graph-node on the same tick.
const (
	logNormalMu    = 0.4
	logNormalSigma = 0.2
)

// Loop is the MRQLoop.
type Loop struct {
	Subgraph        subgraphid.ID
	Indexer         *indexeragent.Client
	GraphNode       *graphnode.Client
	Logs            *logsdb.Store
	ManualEntryPath string

	TimeNow func() time.Time
	Sleep   func(context.Context, time.Duration) error
	Rand    func() float64 // uniform [0,1); overridable for deterministic tests

	LogError func(format string, args ...any)
}

// NewLoop constructs a Loop with its runtime defaults wired in.
func NewLoop(subgraph subgraphid.ID, indexer *indexeragent.Client, graphNode *graphnode.Client, logs *logsdb.Store, manualEntryPath string) *Loop {
	return &Loop{
		Subgraph:        subgraph,
		Indexer:         indexer,
		GraphNode:       graphNode,
		Logs:            logs,
		ManualEntryPath: manualEntryPath,
		TimeNow:         time.Now,
		Sleep:           sleepContext,
		Rand:            rand.Float64,
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

// Run probes, builds, and publishes forever until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	for {
		if err := l.runOnce(ctx); err != nil {
			l.LogError("mrq: subgraph %s: %s", l.Subgraph.Base58(), err.Error())
		}
		if err := l.Sleep(ctx, l.nextInterval()); err != nil {
			return
		}
	}
}

// nextInterval draws this cycle's sleep duration from the configured
// log-normal distribution.
func (l *Loop) nextInterval() time.Duration {
	normal := logNormalMu + logNormalSigma*sampleStandardNormal(l.Rand)
	seconds := math.Exp(normal)
	return time.Duration(seconds * float64(time.Second))
}

// sampleStandardNormal draws N(0,1) via the Box-Muller transform from two
// uniform draws, so Loop.Rand (a plain float64 generator) is enough to make
// the whole cadence deterministic in tests.
func sampleStandardNormal(uniform func() float64) float64 {
	u1 := uniform()
	if u1 <= 0 {
		u1 = 1e-12
	}
	u2 := uniform()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

func (l *Loop) runOnce(ctx context.Context) error {
	candidates, err := l.Logs.GetMostFrequentQueriesNullTime(ctx, l.Subgraph.Base58(), logsdb.DefaultMinCount)
	if err != nil {
		return fmt.Errorf("listing mrq candidates: %w", err)
	}

	for _, candidate := range candidates {
		if err := l.probe(ctx, candidate); err != nil {
			l.LogError("mrq: probing candidate for subgraph %s: %s", l.Subgraph.Base58(), err.Error())
		}
	}

	queries, err := l.Logs.GetMostFrequentQueries(ctx, l.Subgraph.Base58(), logsdb.DefaultMinCount, true)
	if err != nil {
		return fmt.Errorf("reading mrq query stats: %w", err)
	}

	manualEntry, _, err := modelbuilder.ManualEntry(l.ManualEntryPath, l.Subgraph)
	if err != nil {
		return err
	}

	model, err := modelbuilder.Build(manualEntry, queries)
	if err != nil {
		return err
	}

	return l.Indexer.SetCostModel(ctx, l.Subgraph, &model, nil)
}

// probe replays probeIterations historical variable bindings for one
// candidate query skeleton against graph-node, timing each execution and
// recording it.
func (l *Loop) probe(ctx context.Context, candidate logsdb.NullTimeCandidate) error {
	ids, err := l.Logs.GetQueryLogsID(ctx, candidate.QueryHash)
	if err != nil {
		return fmt.Errorf("listing query_logs rows for hash: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	for i := 0; i < probeIterations; i++ {
		id := ids[int(l.Rand()*float64(len(ids)))%len(ids)]

		variables, err := l.Logs.GetQueryVariables(ctx, id)
		if err != nil {
			return fmt.Errorf("reading stored variables for %s: %w", id, err)
		}

		// The reformatted query body dropped its original variable names
		// along with its variable definitions, so the positional bindings
		// are replayed under the same $_0, $_1, ... names ReformatQueryBody
		// implicitly assumes.
		named := make(map[string]any, len(variables))
		for i, v := range variables {
			named[fmt.Sprintf("_%d", i)] = v
		}

		var into map[string]any
		start := time.Now()
		if err := l.GraphNode.Query(ctx, candidate.Query, named, &into); err != nil {
			l.LogError("mrq: probe iteration for subgraph %s failed, skipping: %s", l.Subgraph.Base58(), err.Error())
			continue
		}
		elapsedMs := int(time.Since(start).Milliseconds())

		if _, err := l.Logs.SaveMRQQueryLog(ctx, l.Subgraph.Base58(), candidate.QueryHash, elapsedMs, variables); err != nil {
			return fmt.Errorf("saving mrq probe result: %w", err)
		}
	}
	return nil
}
