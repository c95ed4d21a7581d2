// Package bandit implements the rolling-PPO optimizer that turns a rolling
// window of (action, log-prob, reward) triples into a clipped-ratio
// policy-gradient update with entropy regularization and a soft pull back
// toward the initial policy.
package bandit

import (
	"math"

	"github.com/semiotic-ai/autoagora-go/internal/autoerr"
)

// Experience is an ordered, FIFO-evicted sequence of
// (action, log_prob_at_sample_time, reward) triples, bounded by MaxSize.
type Experience struct {
	MaxSize int

	actions  []float64
	logProbs []float64
	rewards  []float64
}

// NewExperience constructs an empty buffer with the given maximum size.
func NewExperience(maxSize int) *Experience {
	return &Experience{MaxSize: maxSize}
}

// AddAction appends a freshly sampled (action, log_prob) pair.
func (e *Experience) AddAction(action, logProb float64) {
	e.actions = append(e.actions, action)
	e.logProbs = append(e.logProbs, logProb)
}

// AddReward appends a reward, aligned with the most recently added action.
func (e *Experience) AddReward(reward float64) {
	e.rewards = append(e.rewards, reward)
}

// Len returns the number of actions currently buffered.
func (e *Experience) Len() int { return len(e.actions) }

// Full reports whether the buffer has reached MaxSize entries.
func (e *Experience) Full() bool { return len(e.actions) == e.MaxSize }

// Validate checks that all three buffers are the same length. A mismatch
// means an action was sampled without a matching reward (or vice versa)
// somewhere upstream, and the batch can no longer be trusted.
func (e *Experience) Validate() error {
	if len(e.actions) != len(e.rewards) || len(e.actions) != len(e.logProbs) {
		return autoerr.WrapFatal("bandit.Experience.Validate", autoerr.ErrBufferInconsistent)
	}
	return nil
}

// Truncate evicts from the front until the buffer is at most MaxSize long.
func (e *Experience) Truncate() {
	if e.MaxSize <= 0 {
		return
	}
	for len(e.actions) > e.MaxSize {
		e.actions = e.actions[1:]
		e.rewards = e.rewards[1:]
		e.logProbs = e.logProbs[1:]
	}
}

// Clear empties the buffer (the non-rolling variant's post-update step).
func (e *Experience) Clear() {
	e.actions = nil
	e.rewards = nil
	e.logProbs = nil
}

// Snapshot returns read-only copies of the three parallel slices.
func (e *Experience) Snapshot() (actions, logProbs, rewards []float64) {
	return append([]float64(nil), e.actions...),
		append([]float64(nil), e.logProbs...),
		append([]float64(nil), e.rewards...)
}

// Advantages computes the standardized advantage,
// (r - mean(r)) / (stddev(r) + 1e-10), for each reward, or returns the
// rewards verbatim when there are too few to estimate a stddev from.
func Advantages(rewards []float64) []float64 {
	if len(rewards) <= 1 {
		return append([]float64(nil), rewards...)
	}
	mean := 0.0
	for _, r := range rewards {
		mean += r
	}
	mean /= float64(len(rewards))

	variance := 0.0
	for _, r := range rewards {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(rewards))
	stddev := math.Sqrt(variance)

	out := make([]float64, len(rewards))
	for i, r := range rewards {
		out[i] = (r - mean) / (stddev + 1e-10)
	}
	return out
}
