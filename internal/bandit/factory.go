package bandit

import "fmt"

// New maps a configuration key ("vpg", "ppo", "rolling_ppo", "no_update")
// to a concrete PolicyOptimizer. An unknown key is a misconfiguration the
// caller should treat as fatal rather than silently default.
func New(kind string, learningRate, epsClip float64, ppoIterations int, entropyCoeff float64) (PolicyOptimizer, error) {
	switch kind {
	case "vpg":
		return NewVPG(learningRate), nil
	case "ppo":
		return NewPPO(learningRate, epsClip, ppoIterations, entropyCoeff), nil
	case "rolling_ppo":
		return NewRollingPPO(learningRate, epsClip, ppoIterations, entropyCoeff), nil
	case "no_update":
		return NoUpdate{}, nil
	default:
		return nil, fmt.Errorf("bandit: unknown policy optimizer kind %q", kind)
	}
}
