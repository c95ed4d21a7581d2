package retryutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sapcc/go-bits/retry"
)

func TestForeverSucceedsEventually(t *testing.T) {
	eb := retry.ExponentialBackoff{Factor: 1, MaxInterval: time.Millisecond}
	attempts := 0
	err := Forever(context.Background(), eb, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Forever() = %v, want nil", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestForeverStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	eb := retry.ExponentialBackoff{Factor: 1, MaxInterval: time.Millisecond}

	attempts := 0
	err := Forever(ctx, eb, func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("always fails")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Forever() = %v, want context.Canceled", err)
	}
}

func TestBoundedSucceedsWithinAttempts(t *testing.T) {
	eb := retry.ExponentialBackoff{Factor: 2, MaxInterval: time.Millisecond}
	attempts := 0
	err := Bounded(context.Background(), eb, 5, time.Second, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Bounded() = %v, want nil", err)
	}
}

func TestBoundedGivesUpAfterMaxAttempts(t *testing.T) {
	eb := retry.ExponentialBackoff{Factor: 2, MaxInterval: time.Millisecond}
	attempts := 0
	err := Bounded(context.Background(), eb, 3, time.Second, func() error {
		attempts++
		return errors.New("always fails")
	})
	if !errors.Is(err, ErrGaveUp) {
		t.Fatalf("Bounded() = %v, want ErrGaveUp", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestBoundedRespectsMaxElapsed(t *testing.T) {
	eb := retry.ExponentialBackoff{Factor: 2, MaxInterval: time.Millisecond}
	start := time.Now()
	err := Bounded(context.Background(), eb, 1000, 10*time.Millisecond, func() error {
		return errors.New("always fails")
	})
	if !errors.Is(err, ErrGaveUp) {
		t.Fatalf("Bounded() = %v, want ErrGaveUp", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("Bounded() took %s, want well under 200ms", elapsed)
	}
}
