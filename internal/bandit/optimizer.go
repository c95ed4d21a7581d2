package bandit

import (
	"math"

	"github.com/semiotic-ai/autoagora-go/internal/policy"
)

// PolicyOptimizer is the optimizer half of a policy/optimizer pair: the
// bandit type holds one ActionStrategy (policy) and one PolicyOptimizer by
// composition, and the optimizer borrows parameter handles from the policy
// rather than owning them, so a policy can be swapped or reset without the
// optimizer holding a stale reference.
type PolicyOptimizer interface {
	// Update runs the optimizer's training step against exp's current
	// contents. ok is false when exp is not yet full; loss is only
	// meaningful when ok is true.
	Update(p policy.ActionStrategy, exp *Experience) (loss float64, ok bool, err error)
}

// pullTerms computes a soft pull toward the initial policy distribution,
// using the raw (unclamped) trainable parameters, to keep the policy from
// drifting arbitrarily far from its starting point over many updates.
// Gradients are returned per-parameter so they can be added directly to the
// per-iteration gradient accumulator.
func pullTerms(mean, logStddev, initialMean, initialLogStddev float64) (loss float64, dMean, dLogStddev float64) {
	meanDiff := mean - initialMean
	loss += math.Abs(meanDiff) * 1e-1
	if meanDiff >= 0 {
		dMean = 1e-1
	} else {
		dMean = -1e-1
	}

	if logStddev > initialLogStddev {
		loss += (logStddev - initialLogStddev) * 1e-1
		dLogStddev = 1e-1
	}
	return loss, dMean, dLogStddev
}

// ppoIteration runs one PPO gradient step against the stored
// actions/advantages, using logpOld as the fixed reference distribution.
// Returns the batch-mean loss for this iteration.
func ppoIteration(p policy.ActionStrategy, opt *Adam, actions, logpOld, advantages []float64, epsClip, entropyCoeff float64, initialMean, initialLogStddev float64) float64 {
	params := p.TrainableParameters()
	if len(params) == 0 {
		// Deterministic policy: nothing to optimize.
		return 0
	}
	n := float64(len(actions))
	grad := make([]float64, len(params))
	var batchLoss float64

	for i, a := range actions {
		logpNew := p.LogProb(a)
		ratio := math.Exp(logpNew - logpOld[i])
		unclamped := ratio * advantages[i]
		clippedRatio := clamp(ratio, 1-epsClip, 1+epsClip)
		clamped := clippedRatio * advantages[i]

		var ppoLoss float64
		dLogProb, _ := p.Gradients(a)
		if unclamped <= clamped {
			ppoLoss = -unclamped
			for j := range grad {
				grad[j] += -advantages[i] * ratio * dLogProb[j] / n
			}
		} else {
			ppoLoss = -clamped
			if ratio > 1-epsClip && ratio < 1+epsClip {
				for j := range grad {
					grad[j] += -advantages[i] * ratio * dLogProb[j] / n
				}
			}
			// else: ratio clipped to a constant, zero gradient contribution.
		}
		batchLoss += ppoLoss / n
	}

	_, dEntropy := p.Gradients(actions[0])
	entropy := p.Entropy()
	batchLoss += entropyCoeff * (-entropy)
	for j := range grad {
		grad[j] += entropyCoeff * (-dEntropy[j])
	}

	if len(params) >= 2 {
		pullLoss, dMean, dLogStddev := pullTerms(*params[0], *params[1], initialMean, initialLogStddev)
		batchLoss += pullLoss
		grad[0] += dMean
		grad[1] += dLogStddev
	}

	opt.Step(params, grad)
	return batchLoss
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// initialParams is satisfied by ScaledGaussian/Gaussian to recover the
// immutable initial mean/log-stddev needed for the pull terms.
type initialParams interface {
	InitialMean() float64
	InitialLogStddev() float64
}

func initialParamsOf(p policy.ActionStrategy) (mean, logStddev float64) {
	if ip, ok := p.(initialParams); ok {
		return ip.InitialMean(), ip.InitialLogStddev()
	}
	return 0, 0
}
