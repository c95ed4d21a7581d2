// Package pricingenv adapts the bandit's abstract action/observation
// interface to the real indexer: applying a price multiplier and reporting
// back a queries-per-second reward signal.
package pricingenv

import (
	"context"
	"net/http"
	"time"

	"github.com/sapcc/go-bits/retry"

	"github.com/semiotic-ai/autoagora-go/internal/costmodel"
	"github.com/semiotic-ai/autoagora-go/internal/indexeragent"
	"github.com/semiotic-ai/autoagora-go/internal/metricsendpoints"
	"github.com/semiotic-ai/autoagora-go/internal/querycounts"
	"github.com/semiotic-ai/autoagora-go/internal/retryutil"
	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
)

// gatewaySettleDelay is how long the gateway takes to start routing traffic
// at a newly-set price before a QPS sample would reflect it; not
// configurable since it's a property of the gateway, not a tuning knob.
const gatewaySettleDelay = 60 * time.Second

// counterRetryAttempts and counterRetryElapsed bound queriesPerSecond's
// counter sampling (up to 10 attempts over up to 10 minutes) so a
// persistently unreachable metrics endpoint doesn't stall the bandit loop
// forever.
const (
	counterRetryAttempts = 10
	counterRetryElapsed  = 10 * time.Minute
)

// Env is the SubgraphPricingEnv: applies a price multiplier to one
// subgraph's cost model and reports back its queries-per-second.
type Env struct {
	Subgraph   subgraphid.ID
	Indexer    *indexeragent.Client
	Endpoints  metricsendpoints.Endpoints
	HTTPClient *http.Client

	lastChangeTime time.Time
	hasChanged     bool

	// TimeNow and Sleep are injectable for tests.
	TimeNow func() time.Time
	Sleep   func(context.Context, time.Duration) error
}

// New constructs an Env for one allocated subgraph.
func New(subgraph subgraphid.ID, indexer *indexeragent.Client, endpoints metricsendpoints.Endpoints) *Env {
	return &Env{
		Subgraph:   subgraph,
		Indexer:    indexer,
		Endpoints:  endpoints,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		TimeNow:    time.Now,
		Sleep:      sleepContext,
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

// SetCostMultiplier reads the subgraph's current cost variables, overwrites
// only GLOBAL_COST_MULTIPLIER, and writes the variables back (the model
// document is left untouched).
func (e *Env) SetCostMultiplier(ctx context.Context, multiplier float64) error {
	vars, err := e.Indexer.GetCostVariables(ctx, e.Subgraph)
	if err != nil {
		return err
	}
	if vars == nil {
		vars = costmodel.Default()
	}
	vars[costmodel.GlobalCostMultiplierKey] = multiplier

	if err := e.Indexer.SetCostModel(ctx, e.Subgraph, nil, vars); err != nil {
		return err
	}
	e.lastChangeTime = e.TimeNow()
	e.hasChanged = true
	return nil
}

// QueriesPerSecond waits out the gateway settle delay (if a cost change is
// still within its window), samples the query counter twice windowSeconds
// apart, and returns the rate of change.
func (e *Env) QueriesPerSecond(ctx context.Context, window time.Duration) (float64, error) {
	if e.hasChanged {
		elapsed := e.TimeNow().Sub(e.lastChangeTime)
		if elapsed < gatewaySettleDelay {
			if err := e.Sleep(ctx, gatewaySettleDelay-elapsed); err != nil {
				return 0, err
			}
		}
	}

	backoff := retry.ExponentialBackoff{Factor: 2, MaxInterval: 30 * time.Second}

	var count1 int64
	t1 := e.TimeNow()
	err := retryutil.Bounded(ctx, backoff, counterRetryAttempts, counterRetryElapsed, func() error {
		n, err := querycounts.Count(ctx, e.HTTPClient, e.Endpoints, e.Subgraph)
		if err != nil {
			return err
		}
		count1 = n
		t1 = e.TimeNow()
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := e.Sleep(ctx, window); err != nil {
		return 0, err
	}

	var count2 int64
	t2 := e.TimeNow()
	err = retryutil.Bounded(ctx, backoff, counterRetryAttempts, counterRetryElapsed, func() error {
		n, err := querycounts.Count(ctx, e.HTTPClient, e.Endpoints, e.Subgraph)
		if err != nil {
			return err
		}
		count2 = n
		t2 = e.TimeNow()
		return nil
	})
	if err != nil {
		return 0, err
	}

	elapsed := t2.Sub(t1).Seconds()
	if elapsed <= 0 {
		return 0, nil
	}
	return float64(count2-count1) / elapsed, nil
}
