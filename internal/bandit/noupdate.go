package bandit

import "github.com/semiotic-ai/autoagora-go/internal/policy"

// NoUpdate is the factory's "no_update" key: a PolicyOptimizer that never
// trains. Useful for heuristic/random agents that still need to satisfy
// the PolicyOptimizer interface.
type NoUpdate struct{}

func (NoUpdate) Update(policy.ActionStrategy, *Experience) (float64, bool, error) {
	return 0, false, nil
}
