package bandit

import "github.com/semiotic-ai/autoagora-go/internal/policy"

// PPO is the clears-the-buffer PPO variant: logp_old is re-evaluated fresh
// under the current policy at the start of the update, and the experience
// buffer is cleared afterward so the next batch starts from scratch.
type PPO struct {
	EpsClip      float64
	PPOIterations int
	EntropyCoeff float64
	Adam         *Adam
}

// NewPPO constructs a PPO optimizer with the usual clipped-surrogate
// defaults (eps 0.1, 10 iterations, entropy coeff 1e-1, Adam learning rate
// 0.01) unless overridden.
func NewPPO(learningRate float64, epsClip float64, ppoIterations int, entropyCoeff float64) *PPO {
	return &PPO{
		EpsClip:       epsClip,
		PPOIterations: ppoIterations,
		EntropyCoeff:  entropyCoeff,
		Adam:          NewAdam(learningRate, 2),
	}
}

func (o *PPO) Update(p policy.ActionStrategy, exp *Experience) (float64, bool, error) {
	if err := exp.Validate(); err != nil {
		return 0, false, err
	}
	exp.Truncate()
	if !exp.Full() {
		return 0, false, nil
	}

	actions, _, rewards := exp.Snapshot()
	advantages := Advantages(rewards)

	logpOld := make([]float64, len(actions))
	for i, a := range actions {
		logpOld[i] = p.LogProb(a)
	}

	initMean, initLogStddev := initialParamsOf(p)

	var loss float64
	for i := 0; i < o.PPOIterations; i++ {
		loss = ppoIteration(p, o.Adam, actions, logpOld, advantages, o.EpsClip, o.EntropyCoeff, initMean, initLogStddev)
	}

	exp.Clear()
	return loss, true, nil
}

// RollingPPO is identical in update algorithm to PPO, but logp_old comes
// from the buffer's stored sample-time log-probs and the buffer is never
// cleared after an update — only truncated to MaxSize (FIFO) — so the
// policy keeps learning from a sliding window of recent experience instead
// of resetting after every batch.
type RollingPPO struct {
	EpsClip       float64
	PPOIterations int
	EntropyCoeff  float64
	Adam          *Adam
}

// NewRollingPPO constructs the default price-bandit optimizer: buffer size
// 10, entropy coeff 1e-1, eps 0.1, 10 PPO iterations, Adam lr 0.01.
func NewRollingPPO(learningRate, epsClip float64, ppoIterations int, entropyCoeff float64) *RollingPPO {
	return &RollingPPO{
		EpsClip:       epsClip,
		PPOIterations: ppoIterations,
		EntropyCoeff:  entropyCoeff,
		Adam:          NewAdam(learningRate, 2),
	}
}

func (o *RollingPPO) Update(p policy.ActionStrategy, exp *Experience) (float64, bool, error) {
	if err := exp.Validate(); err != nil {
		return 0, false, err
	}
	exp.Truncate()
	if !exp.Full() {
		return 0, false, nil
	}

	actions, logpOld, rewards := exp.Snapshot()
	advantages := Advantages(rewards)
	initMean, initLogStddev := initialParamsOf(p)

	var loss float64
	for i := 0; i < o.PPOIterations; i++ {
		loss = ppoIteration(p, o.Adam, actions, logpOld, advantages, o.EpsClip, o.EntropyCoeff, initMean, initLogStddev)
	}

	return loss, true, nil
}
