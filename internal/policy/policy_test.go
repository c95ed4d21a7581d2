package policy

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestScaleInverseScaleRoundTrip(t *testing.T) {
	// Scaled and inverseBidScale must invert each other across the range of
	// internal-space actions the policy can produce.
	p := NewScaledGaussian(5e-8, 1e-1, rand.New(rand.NewSource(1)))
	for _, x := range []float64{-50, -10, -1, 0, 1, 10, 49.9} {
		scaled, err := p.Scaled(x)
		if err != nil {
			t.Fatalf("Scaled(%v): %v", x, err)
		}
		back := inverseBidScale(scaled)
		if math.Abs(back-x) > 1e-9 {
			t.Fatalf("round trip for x=%v: got %v, diff %v", x, back, math.Abs(back-x))
		}
	}
}

func TestScaledOverflowIsError(t *testing.T) {
	p := NewScaledGaussian(5e-8, 1e-1, rand.New(rand.NewSource(1)))
	_, err := p.Scaled(1000)
	if err == nil {
		t.Fatal("expected an overflow error for a very large internal action")
	}
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected errors.Is(err, ErrOverflow), got %v", err)
	}
}

func TestCurrentMeanClampedAtUpperBound(t *testing.T) {
	p := NewScaledGaussian(1, 1e-1, rand.New(rand.NewSource(1))) // way above the 1e-1 clamp
	if got := p.CurrentMean(); got > 1e-1+1e-9 {
		t.Fatalf("CurrentMean() = %v, want <= 1e-1", got)
	}
}

func TestSampleLogProbMatchesSamplingDistribution(t *testing.T) {
	p := NewScaledGaussian(5e-8, 1e-1, rand.New(rand.NewSource(9)))
	action, logProb := p.Sample()
	want := p.LogProb(action)
	if math.Abs(logProb-want) > 1e-9 {
		t.Fatalf("Sample() log_prob = %v, want %v (matching LogProb at sample time)", logProb, want)
	}
}

func TestDeterministicHasNoTrainableParameters(t *testing.T) {
	d := NewDeterministic(0.5)
	if params := d.TrainableParameters(); params != nil {
		t.Fatalf("Deterministic.TrainableParameters() = %v, want nil", params)
	}
}

func TestFactoryRejectsUnknownKind(t *testing.T) {
	_, err := New("not-a-kind", 5e-8, 1e-1, nil)
	if err == nil {
		t.Fatal("expected an error for an unknown policy kind")
	}
}

func TestFactoryBuildsScaledGaussian(t *testing.T) {
	p, err := New("scaled_gaussian", 5e-8, 1e-1, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("New(scaled_gaussian): %v", err)
	}
	if _, ok := p.(*ScaledGaussian); !ok {
		t.Fatalf("New(scaled_gaussian) returned %T, want *ScaledGaussian", p)
	}
}
