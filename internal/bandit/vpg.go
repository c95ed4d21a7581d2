package bandit

import (
	"math"

	"github.com/semiotic-ai/autoagora-go/internal/policy"
)

// VPG is the vanilla-policy-gradient optimizer (factory key "vpg"): a
// single gradient step per update, no clipped ratio, with a log-stddev
// floor penalty (exp(-logStddev-5)) to discourage the policy from
// collapsing to zero variance. Clears the buffer after each update.
type VPG struct {
	Adam *Adam
}

// NewVPG constructs a VPG optimizer with the given learning rate.
func NewVPG(learningRate float64) *VPG {
	return &VPG{Adam: NewAdam(learningRate, 2)}
}

func (o *VPG) Update(p policy.ActionStrategy, exp *Experience) (float64, bool, error) {
	if err := exp.Validate(); err != nil {
		return 0, false, err
	}
	exp.Truncate()
	if !exp.Full() {
		return 0, false, nil
	}

	actions, _, rewards := exp.Snapshot()
	advantages := Advantages(rewards)
	params := p.TrainableParameters()
	if len(params) == 0 {
		exp.Clear()
		return 0, true, nil
	}

	n := float64(len(actions))
	grad := make([]float64, len(params))
	var loss float64
	for i, a := range actions {
		logProb := p.LogProb(a)
		dLogProb, _ := p.Gradients(a)
		loss += (-logProb * advantages[i]) / n
		for j := range grad {
			grad[j] += (-advantages[i] * dLogProb[j]) / n
		}
	}

	if len(params) >= 2 {
		logStddev := *params[1]
		floorPenalty := expNeg(logStddev, 5)
		loss += floorPenalty
		grad[1] += -floorPenalty // d/dlogStddev[exp(-logStddev-5)] = -exp(-logStddev-5)
	}

	o.Adam.Step(params, grad)
	exp.Clear()
	return loss, true, nil
}

func expNeg(logStddev, shift float64) float64 {
	return math.Exp(-logStddev - shift)
}
