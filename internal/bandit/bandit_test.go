package bandit

import (
	"math"
	"math/rand"
	"testing"

	"github.com/semiotic-ai/autoagora-go/internal/policy"
)

func TestRollingPPOBufferBehavior(t *testing.T) {
	// With a buffer size of 10, 50 consecutive (action, reward) pairs
	// should produce at least one non-null loss after tick 10, and the
	// buffer should never grow past 10.
	p := policy.NewScaledGaussian(5e-8, 1e-1, rand.New(rand.NewSource(42)))
	opt := NewRollingPPO(0.01, 0.1, 10, 1e-1)
	b := New(p, opt, 10)

	sawLoss := false
	for i := 0; i < 50; i++ {
		multiplier, err := b.GetAction()
		if err != nil {
			t.Fatalf("GetAction() at tick %d: %v", i, err)
		}
		b.AddReward(multiplier * 10)

		loss, ok, err := b.UpdatePolicy()
		if err != nil {
			t.Fatalf("UpdatePolicy() at tick %d: %v", i, err)
		}
		if b.Experience.Len() > 10 {
			t.Fatalf("buffer grew to %d entries at tick %d, want <= 10", b.Experience.Len(), i)
		}
		if ok {
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				t.Fatalf("loss at tick %d is not finite: %v", i, loss)
			}
			if i >= 9 {
				sawLoss = true
			}
		}
	}
	if !sawLoss {
		t.Fatal("expected at least one non-null loss after tick 10")
	}
}

func TestPPOClearsBufferAfterUpdate(t *testing.T) {
	p := policy.NewScaledGaussian(5e-8, 1e-1, rand.New(rand.NewSource(7)))
	opt := NewPPO(0.01, 0.1, 10, 1e-1)
	b := New(p, opt, 3)

	for i := 0; i < 3; i++ {
		multiplier, err := b.GetAction()
		if err != nil {
			t.Fatalf("GetAction(): %v", err)
		}
		b.AddReward(multiplier)
	}

	_, ok, err := b.UpdatePolicy()
	if err != nil {
		t.Fatalf("UpdatePolicy(): %v", err)
	}
	if !ok {
		t.Fatal("expected an update once the buffer is full")
	}
	if b.Experience.Len() != 0 {
		t.Fatalf("non-rolling PPO must clear the buffer after update, got len=%d", b.Experience.Len())
	}
}

func TestUpdatePolicyReturnsNoUpdateUntilBufferFull(t *testing.T) {
	p := policy.NewScaledGaussian(5e-8, 1e-1, rand.New(rand.NewSource(3)))
	opt := NewRollingPPO(0.01, 0.1, 10, 1e-1)
	b := New(p, opt, 10)

	for i := 0; i < 9; i++ {
		multiplier, err := b.GetAction()
		if err != nil {
			t.Fatalf("GetAction(): %v", err)
		}
		b.AddReward(multiplier)
		_, ok, err := b.UpdatePolicy()
		if err != nil {
			t.Fatalf("UpdatePolicy(): %v", err)
		}
		if ok {
			t.Fatalf("expected no update before the buffer is full, got update at tick %d", i)
		}
	}
}

func TestBufferInconsistentIsFatal(t *testing.T) {
	exp := NewExperience(10)
	exp.AddAction(1, 0.5)
	exp.AddReward(1)
	exp.AddReward(2) // now rewards has 2 entries, actions/logProbs have 1

	err := exp.Validate()
	if err == nil {
		t.Fatal("expected an error for inconsistent buffer lengths")
	}
}

func TestAdvantagesSingleRewardIsIdentity(t *testing.T) {
	got := Advantages([]float64{3.5})
	if len(got) != 1 || got[0] != 3.5 {
		t.Fatalf("Advantages([3.5]) = %v, want [3.5]", got)
	}
}

func TestAdvantagesStandardizes(t *testing.T) {
	got := Advantages([]float64{1, 2, 3})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Mean should be ~0 after standardization.
	mean := (got[0] + got[1] + got[2]) / 3
	if math.Abs(mean) > 1e-6 {
		t.Fatalf("standardized mean = %v, want ~0", mean)
	}
}
