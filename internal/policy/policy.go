// Package policy implements a scalar "price multiplier" represented as a
// stochastic action strategy. Parameters are kept in log-space for
// numerical stability; the emitted action is the exponential of a Gaussian
// sample times a fixed scale factor.
//
// A single ActionStrategy interface with two concrete implementations,
// chosen by a small factory, stands in for what would otherwise be a policy
// composed with an action mixin at construction time.
package policy

import (
	"fmt"
	"math"
	"math/rand"
)

// scaleFactor is the fixed multiplier applied to exp(sample) to recover the
// external "scaled" price-multiplier space.
const scaleFactor = 1e-6

// meanScaledClampMax is the upper bound on the scaled mean, expressed in
// scaled space, keeping a runaway policy from driving the price multiplier
// unreasonably high.
const meanScaledClampMax = 1e-1

// ActionStrategy samples a scalar action from an internal distribution and
// maps it into the externally visible scaled price-multiplier space.
type ActionStrategy interface {
	// Sample draws one action in internal space and returns it alongside
	// the log-density of the sampling distribution at that point — the
	// log-prob that must be recorded at sample time for PPO's importance
	// ratio to be correct.
	Sample() (actionInternal, logProb float64)

	// Scaled maps an internal-space action to the external multiplier.
	// Returns autoerr.ErrOverflow (via a wrapped error) instead of
	// silently returning NaN/Inf on overflow, since a silently corrupted
	// price multiplier is worse than a loop that stops and gets restarted.
	Scaled(actionInternal float64) (float64, error)

	// LogProb returns the log-density of actionInternal under the
	// current (not necessarily the sampling-time) distribution. Used by
	// PPO to compute logp_new.
	LogProb(actionInternal float64) float64

	// Entropy returns the current distribution's differential entropy.
	Entropy() float64

	// CurrentMean returns the externally-viewable scaled mean, after the
	// upper-bound clamp.
	CurrentMean() float64

	// CurrentStddev returns the raw (unscaled) standard deviation,
	// exp(log_stddev).
	CurrentStddev() float64

	// TrainableParameters returns handles to the strategy's trainable
	// scalar parameters, or nil for strategies with none (Deterministic).
	// The bandit optimizer borrows these handles rather than owning
	// them — ownership stays with the policy.
	TrainableParameters() []*float64

	// Gradients returns d(logDensity)/d(param) and d(entropy)/d(param)
	// for each trainable parameter, evaluated at actionInternal under the
	// current distribution. Hand-coded closed form rather than autodiff,
	// since there are only ever one or two trainable parameters.
	Gradients(actionInternal float64) (dLogProb, dEntropy []float64)
}

// ScaledGaussian samples a log-space Gaussian and exponentiates it into a
// scaled price multiplier.
type ScaledGaussian struct {
	mean      float64
	logStddev float64

	initialMean      float64
	initialLogStddev float64

	rng *rand.Rand
}

// NewScaledGaussian constructs a ScaledGaussian policy. initialMeanScaled
// and initialStddevScaled are both in external (scaled) space.
func NewScaledGaussian(initialMeanScaled, initialStddevScaled float64, rng *rand.Rand) *ScaledGaussian {
	if rng == nil {
		rng = rand.New(rand.NewSource(1)) //nolint:gosec // policy sampling is not security-sensitive
	}
	mean := inverseBidScale(initialMeanScaled)
	logStddev := inverseBidScale(initialStddevScaled)
	return &ScaledGaussian{
		mean:             mean,
		logStddev:        logStddev,
		initialMean:      mean,
		initialLogStddev: logStddev,
		rng:              rng,
	}
}

func inverseBidScale(x float64) float64 {
	return math.Log(x * 1e6)
}

func (p *ScaledGaussian) clampedMean() float64 {
	max := inverseBidScale(meanScaledClampMax)
	if p.mean > max {
		return max
	}
	return p.mean
}

func (p *ScaledGaussian) stddevInternal() float64 {
	return math.Exp(p.logStddev)
}

// Sample implements ActionStrategy.
func (p *ScaledGaussian) Sample() (float64, float64) {
	mean := p.clampedMean()
	stddev := p.stddevInternal()
	action := mean + stddev*p.rng.NormFloat64()
	return action, normLogPDF(action, mean, stddev)
}

// Scaled implements ActionStrategy.
func (p *ScaledGaussian) Scaled(actionInternal float64) (float64, error) {
	scaled := math.Exp(actionInternal) * scaleFactor
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return 0, fmt.Errorf("policy: scaled(%g) overflowed: %w", actionInternal, errOverflow)
	}
	return scaled, nil
}

// LogProb implements ActionStrategy.
func (p *ScaledGaussian) LogProb(actionInternal float64) float64 {
	return normLogPDF(actionInternal, p.clampedMean(), p.stddevInternal())
}

// Entropy implements ActionStrategy. Differential entropy of a normal
// distribution: 0.5*log(2*pi*e*sigma^2).
func (p *ScaledGaussian) Entropy() float64 {
	sigma := p.stddevInternal()
	return 0.5 * math.Log(2*math.Pi*math.E*sigma*sigma)
}

// CurrentMean implements ActionStrategy.
func (p *ScaledGaussian) CurrentMean() float64 {
	scaled, _ := p.Scaled(p.clampedMean())
	return scaled
}

// CurrentStddev implements ActionStrategy.
func (p *ScaledGaussian) CurrentStddev() float64 {
	return p.stddevInternal()
}

// TrainableParameters implements ActionStrategy.
func (p *ScaledGaussian) TrainableParameters() []*float64 {
	return []*float64{&p.mean, &p.logStddev}
}

// InitialMean returns the immutable initial mean, in internal space.
func (p *ScaledGaussian) InitialMean() float64 { return p.initialMean }

// InitialLogStddev returns the immutable initial log-stddev, in internal space.
func (p *ScaledGaussian) InitialLogStddev() float64 { return p.initialLogStddev }

// Gradients implements ActionStrategy. For a ~N(mean, sigma) evaluated at x
// with sigma = exp(logStddev):
//
//	d/dmean logp   = (x - mean) / sigma^2
//	d/dlogStddev logp = ((x - mean)^2 / sigma^2) - 1
//	d/dmean entropy    = 0
//	d/dlogStddev entropy = 1
func (p *ScaledGaussian) Gradients(actionInternal float64) ([]float64, []float64) {
	mean := p.clampedMean()
	sigma := p.stddevInternal()
	diff := actionInternal - mean
	dLogProbMean := diff / (sigma * sigma)
	dLogProbLogStddev := (diff*diff)/(sigma*sigma) - 1
	dEntropyMean := 0.0
	dEntropyLogStddev := 1.0
	return []float64{dLogProbMean, dLogProbLogStddev}, []float64{dEntropyMean, dEntropyLogStddev}
}

func normLogPDF(x, mean, stddev float64) float64 {
	diff := x - mean
	return -0.5*math.Log(2*math.Pi) - math.Log(stddev) - (diff*diff)/(2*stddev*stddev)
}

var errOverflow = fmt.Errorf("numeric overflow in scaled action mapping")

// ErrOverflow is returned (wrapped) by Scaled when the mapping overflows.
// Exported so callers can errors.Is against it without importing autoerr.
var ErrOverflow = errOverflow
