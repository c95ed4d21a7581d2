package banditloop

import (
	"math"
	"testing"
	"time"

	"github.com/semiotic-ai/autoagora-go/internal/savestate"
	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
)

func mustSubgraph(t *testing.T) subgraphid.ID {
	t.Helper()
	id, err := subgraphid.ParseBase58("Qmadj8x9km1YEyKmRnJ6EkC2zpJZFCfTyTZpuqC3j6e1QH")
	if err != nil {
		t.Fatalf("ParseBase58: %v", err)
	}
	return id
}

func TestResolveInitialPolicyUsesFreshSaveState(t *testing.T) {
	now := time.Unix(1700000000, 0)
	row := &savestate.Row{Subgraph: mustSubgraph(t), LastUpdate: now.Add(-time.Hour), Mean: 1.23, Stddev: 4.56}

	mean, stddev := resolveInitialPolicy(row, now, defaultMeanScaled, defaultStddev)
	if mean != 1.23 || stddev != 4.56 {
		t.Fatalf("resolveInitialPolicy() = (%v, %v), want (1.23, 4.56)", mean, stddev)
	}
}

func TestResolveInitialPolicyFallsBackWhenStale(t *testing.T) {
	now := time.Unix(1700000000, 0)
	row := &savestate.Row{Subgraph: mustSubgraph(t), LastUpdate: now.Add(-48 * time.Hour), Mean: 1.23, Stddev: 4.56}

	mean, stddev := resolveInitialPolicy(row, now, defaultMeanScaled, defaultStddev)
	if mean != defaultMeanScaled || stddev != defaultStddev {
		t.Fatalf("resolveInitialPolicy() = (%v, %v), want defaults (%v, %v)", mean, stddev, defaultMeanScaled, defaultStddev)
	}
}

func TestResolveInitialPolicyFallsBackWhenAbsent(t *testing.T) {
	now := time.Unix(1700000000, 0)
	mean, stddev := resolveInitialPolicy(nil, now, defaultMeanScaled, defaultStddev)
	if mean != defaultMeanScaled || stddev != defaultStddev {
		t.Fatalf("resolveInitialPolicy(nil) = (%v, %v), want defaults", mean, stddev)
	}
}

func TestRewardForMultipliesQPSAndMultiplier(t *testing.T) {
	if got := rewardFor(10, 1.5); got != 15 {
		t.Fatalf("rewardFor(10, 1.5) = %v, want 15", got)
	}
}

func TestRewardForClampsNaNAndInf(t *testing.T) {
	if got := rewardFor(math.NaN(), 1); got != 0 {
		t.Fatalf("rewardFor(NaN, 1) = %v, want 0", got)
	}
	if got := rewardFor(math.Inf(1), 1); got != 0 {
		t.Fatalf("rewardFor(+Inf, 1) = %v, want 0", got)
	}
	if got := rewardFor(math.Inf(-1), 1); got != 0 {
		t.Fatalf("rewardFor(-Inf, 1) = %v, want 0", got)
	}
}
