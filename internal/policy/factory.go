package policy

import (
	"fmt"
	"math/rand"
)

// New maps a configuration key to a concrete ActionStrategy constructor.
// Only "scaled_gaussian", "gaussian" and "deterministic" are recognized; any
// other kind means the config was typo'd or the binary is stale relative to
// its deployment config, so the caller should treat it as fatal rather than
// retry.
func New(kind string, initialMean, initialStddev float64, rng *rand.Rand) (ActionStrategy, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(1)) //nolint:gosec // not security-sensitive
	}
	switch kind {
	case "scaled_gaussian":
		return NewScaledGaussian(initialMean, initialStddev, rng), nil
	case "gaussian":
		return NewGaussian(initialMean, initialStddev, rng), nil
	case "deterministic":
		return NewDeterministic(initialMean), nil
	default:
		return nil, fmt.Errorf("policy: unknown action strategy kind %q", kind)
	}
}
