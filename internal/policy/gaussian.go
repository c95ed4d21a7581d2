package policy

import "math"

// Gaussian is the unscaled counterpart of ScaledGaussian: the action lives
// directly in the regular action space, with no exp(x)*1e-6 projection.
// Useful for agents whose action doesn't represent a price multiplier, or
// for testing the optimizer against a simpler, linear-space distribution.
type Gaussian struct {
	mean      float64
	logStddev float64

	initialMean      float64
	initialLogStddev float64

	rng randSource
}

type randSource interface {
	NormFloat64() float64
}

// NewGaussian constructs a Gaussian policy with its parameters directly in
// action space (no inverse-scale projection).
func NewGaussian(initialMean, initialStddev float64, rng randSource) *Gaussian {
	return &Gaussian{
		mean:             initialMean,
		logStddev:        math.Log(initialStddev),
		initialMean:      initialMean,
		initialLogStddev: math.Log(initialStddev),
		rng:              rng,
	}
}

func (p *Gaussian) stddevInternal() float64 { return math.Exp(p.logStddev) }

func (p *Gaussian) Sample() (float64, float64) {
	action := p.mean + p.stddevInternal()*p.rng.NormFloat64()
	return action, normLogPDF(action, p.mean, p.stddevInternal())
}

func (p *Gaussian) Scaled(actionInternal float64) (float64, error) {
	return actionInternal, nil
}

func (p *Gaussian) LogProb(actionInternal float64) float64 {
	return normLogPDF(actionInternal, p.mean, p.stddevInternal())
}

func (p *Gaussian) Entropy() float64 {
	sigma := p.stddevInternal()
	return 0.5 * math.Log(2*math.Pi*math.E*sigma*sigma)
}

func (p *Gaussian) CurrentMean() float64   { return p.mean }
func (p *Gaussian) CurrentStddev() float64 { return p.stddevInternal() }

func (p *Gaussian) TrainableParameters() []*float64 {
	return []*float64{&p.mean, &p.logStddev}
}

func (p *Gaussian) Gradients(actionInternal float64) ([]float64, []float64) {
	sigma := p.stddevInternal()
	diff := actionInternal - p.mean
	dLogProbMean := diff / (sigma * sigma)
	dLogProbLogStddev := (diff*diff)/(sigma*sigma) - 1
	return []float64{dLogProbMean, dLogProbLogStddev}, []float64{0, 1}
}

// Deterministic always returns the same action with log-prob 0 and no
// trainable parameters. A bandit composed with this strategy must use
// NoUpdate as its optimizer, since there's nothing here to train.
type Deterministic struct {
	action float64
}

// NewDeterministic constructs a Deterministic policy around a fixed action.
func NewDeterministic(action float64) *Deterministic {
	return &Deterministic{action: action}
}

func (p *Deterministic) Sample() (float64, float64)             { return p.action, 0 }
func (p *Deterministic) Scaled(a float64) (float64, error)       { return a, nil }
func (p *Deterministic) LogProb(float64) float64                 { return 0 }
func (p *Deterministic) Entropy() float64                        { return 0 }
func (p *Deterministic) CurrentMean() float64                    { return p.action }
func (p *Deterministic) CurrentStddev() float64                  { return 0 }
func (p *Deterministic) TrainableParameters() []*float64         { return nil }
func (p *Deterministic) Gradients(float64) ([]float64, []float64) { return nil, nil }
