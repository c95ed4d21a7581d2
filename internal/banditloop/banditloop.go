// Package banditloop implements the PriceBanditLoop: the per-subgraph
// control loop that publishes a price multiplier, observes the resulting
// queries-per-second, and updates a RollingPPOBandit policy.
package banditloop

import (
	"context"
	"encoding/binary"
	"math"
	"math/rand"
	"time"

	"github.com/sapcc/go-bits/logg"

	"github.com/semiotic-ai/autoagora-go/internal/bandit"
	"github.com/semiotic-ai/autoagora-go/internal/metricsserver"
	"github.com/semiotic-ai/autoagora-go/internal/policy"
	"github.com/semiotic-ai/autoagora-go/internal/pricingenv"
	"github.com/semiotic-ai/autoagora-go/internal/savestate"
	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
)

// defaultMeanScaled and defaultStddev are the initial policy parameters
// used when no save state exists, or it's too stale to trust.
const (
	defaultMeanScaled = 5e-8
	defaultStddev     = 1e-1
)

// saveStateMaxAge bounds how stale a save-state row may be before it's
// discarded in favor of the defaults above.
const saveStateMaxAge = 24 * time.Hour

// RollingPPOBufferSize, RollingPPOEntropyCoeff, RollingPPOEpsClip,
// RollingPPOIterations and RollingPPOLearningRate are the RollingPPOBandit's
// tuned defaults: a small rolling window keeps the policy responsive to
// recent demand shifts without over-updating on any single observation.
const (
	RollingPPOBufferSize   = 10
	RollingPPOEntropyCoeff = 1e-1
	RollingPPOEpsClip      = 0.1
	RollingPPOIterations   = 10
	RollingPPOLearningRate = 0.01
)

// Loop is the PriceBanditLoop for one subgraph.
type Loop struct {
	Subgraph  subgraphid.ID
	Env       *pricingenv.Env
	SaveState *savestate.Store
	Gauges    *metricsserver.Gauges
	Bandit    *bandit.Bandit

	// ObservationWindow is queriesPerSecond's sampling window.
	ObservationWindow time.Duration

	TimeNow  func() time.Time
	Sleep    func(context.Context, time.Duration) error
	LogError func(format string, args ...any)
}

// New constructs a Loop, resolving the initial policy from save state.
func New(ctx context.Context, subgraph subgraphid.ID, env *pricingenv.Env, saveState *savestate.Store, gauges *metricsserver.Gauges, observationWindow time.Duration) (*Loop, error) {
	meanScaled, stddev := defaultMeanScaled, defaultStddev

	row, err := saveState.Load(ctx, subgraph)
	if err != nil {
		// A save-state read failure shouldn't keep the subgraph from
		// getting priced at all; fall back to the defaults and let the
		// next successful save re-establish continuity.
		logg.Error("banditloop: subgraph %s: loading save state: %s", subgraph.Base58(), err.Error())
	} else {
		meanScaled, stddev = resolveInitialPolicy(row, time.Now(), meanScaled, stddev)
	}

	// Seed independently per subgraph so concurrently-started loops don't
	// sample identical action sequences.
	rng := rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(subgraph[:8])) ^ time.Now().UnixNano())) //nolint:gosec // policy sampling is not security-sensitive
	p := policy.NewScaledGaussian(meanScaled, stddev, rng)
	opt := bandit.NewRollingPPO(RollingPPOLearningRate, RollingPPOEpsClip, RollingPPOIterations, RollingPPOEntropyCoeff)
	b := bandit.New(p, opt, RollingPPOBufferSize)

	return &Loop{
		Subgraph:          subgraph,
		Env:               env,
		SaveState:         saveState,
		Gauges:            gauges,
		Bandit:            b,
		ObservationWindow: observationWindow,
		TimeNow:           time.Now,
		Sleep:             sleepContext,
		LogError:          logg.Error,
	}, nil
}

// resolveInitialPolicy picks the save-state row's parameters when present
// and not stale, falling back to defaults otherwise.
func resolveInitialPolicy(row *savestate.Row, now time.Time, defaultMean, defaultStddev float64) (mean, stddev float64) {
	if row != nil && now.Sub(row.LastUpdate) < saveStateMaxAge {
		return row.Mean, row.Stddev
	}
	return defaultMean, defaultStddev
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

// Run executes the publish/observe/update cycle forever until ctx is
// cancelled. Overflow in the policy's Scaled() mapping is fatal and is
// returned, signaling the caller (AllocationSupervisor) to tear this
// subgraph's tasks down.
func (l *Loop) Run(ctx context.Context) error {
	policyState := l.Bandit.Policy
	var lastReward float64
	for {
		if ctx.Err() != nil {
			return nil
		}

		mean, stddev := policyState.CurrentMean(), policyState.CurrentStddev()

		// Save state before the action step: a crash mid-action still
		// resumes close to the last committed policy instead of losing a
		// full cycle of learning.
		if err := l.SaveState.Save(ctx, l.Subgraph, mean, stddev); err != nil {
			l.LogError("banditloop: subgraph %s: saving state: %s", l.Subgraph.Base58(), err.Error())
		}

		multiplier, err := l.Bandit.GetAction()
		if err != nil {
			return err
		}
		l.Gauges.Publish(l.Subgraph, mean, stddev, multiplier, lastReward)

		if err := l.Env.SetCostMultiplier(ctx, multiplier); err != nil {
			l.LogError("banditloop: subgraph %s: setCostMultiplier: %s", l.Subgraph.Base58(), err.Error())
			if err := l.Sleep(ctx, l.ObservationWindow); err != nil {
				return nil
			}
			continue
		}

		qps, err := l.Env.QueriesPerSecond(ctx, l.ObservationWindow)
		if err != nil {
			l.LogError("banditloop: subgraph %s: queriesPerSecond: %s", l.Subgraph.Base58(), err.Error())
			continue
		}

		reward := rewardFor(qps, multiplier)
		lastReward = reward
		l.Gauges.Publish(l.Subgraph, mean, stddev, multiplier, reward)
		l.Bandit.AddReward(reward)

		if _, _, err := l.Bandit.UpdatePolicy(); err != nil {
			return err
		}
	}
}

// rewardFor computes the bandit's reward signal (qps * multiplier),
// clamping a NaN or infinite result to 0 so a single bad observation
// can't poison the optimizer's buffer.
func rewardFor(qps, multiplier float64) float64 {
	reward := qps * multiplier
	if math.IsNaN(reward) || math.IsInf(reward, 0) {
		return 0
	}
	return reward
}
