package bandit

import "github.com/semiotic-ai/autoagora-go/internal/policy"

// Bandit composes an ActionStrategy and a PolicyOptimizer around a shared
// Experience buffer: GetAction samples and records an action, AddReward
// aligns a reward with the most recent action, and UpdatePolicy runs the
// optimizer once the buffer is full.
type Bandit struct {
	Policy     policy.ActionStrategy
	Optimizer  PolicyOptimizer
	Experience *Experience
}

// New constructs a Bandit around the given policy, optimizer and buffer
// size.
func New(p policy.ActionStrategy, opt PolicyOptimizer, bufferMaxSize int) *Bandit {
	return &Bandit{
		Policy:     p,
		Optimizer:  opt,
		Experience: NewExperience(bufferMaxSize),
	}
}

// GetAction samples the policy, buffers (action, log_prob), and returns the
// scaled multiplier. A Scaled() overflow is a fatal, non-recoverable
// condition: an action that can't be represented as a finite multiplier
// means the policy has diverged and needs a fresh start, not a retry.
func (b *Bandit) GetAction() (float64, error) {
	action, logProb := b.Policy.Sample()
	b.Experience.AddAction(action, logProb)
	scaled, err := b.Policy.Scaled(action)
	if err != nil {
		return 0, err
	}
	return scaled, nil
}

// AddReward appends a reward aligned with the most recently sampled action.
func (b *Bandit) AddReward(reward float64) {
	b.Experience.AddReward(reward)
}

// UpdatePolicy runs one optimizer step. ok is false when the buffer isn't
// yet full — the caller should treat this as "no update happened" rather
// than an error.
func (b *Bandit) UpdatePolicy() (loss float64, ok bool, err error) {
	return b.Optimizer.Update(b.Policy, b.Experience)
}
