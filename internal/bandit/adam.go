package bandit

import "math"

// Adam is a small hand-rolled Adam/AdamW step, parametrized by the two
// trainable scalars a ScaledGaussianPolicy exposes. A full tensor/autodiff
// library is overkill for optimizing a two-parameter distribution, so the
// gradient update is coded directly against those two scalars.
//
// Set WeightDecay > 0 to get the AdamW variant (decoupled weight decay,
// applied directly to the parameter before the gradient step).
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	WeightDecay  float64

	m    []float64
	v    []float64
	step int
}

// NewAdam constructs an Adam optimizer with the usual beta/epsilon defaults
// for n trainable parameters, given a learning rate.
func NewAdam(learningRate float64, n int) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		m:            make([]float64, n),
		v:            make([]float64, n),
	}
}

// NewAdamW constructs the decoupled-weight-decay variant.
func NewAdamW(learningRate, weightDecay float64, n int) *Adam {
	a := NewAdam(learningRate, n)
	a.WeightDecay = weightDecay
	return a
}

// Step applies one gradient-descent update to params, in place, given the
// gradient of the loss with respect to each parameter.
func (a *Adam) Step(params []*float64, grads []float64) {
	a.step++
	t := float64(a.step)
	biasCorrection1 := 1 - math.Pow(a.Beta1, t)
	biasCorrection2 := 1 - math.Pow(a.Beta2, t)

	for i, p := range params {
		g := grads[i]
		if a.WeightDecay > 0 {
			*p -= a.LearningRate * a.WeightDecay * *p
		}

		a.m[i] = a.Beta1*a.m[i] + (1-a.Beta1)*g
		a.v[i] = a.Beta2*a.v[i] + (1-a.Beta2)*g*g

		mHat := a.m[i] / biasCorrection1
		vHat := a.v[i] / biasCorrection2

		*p -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
	}
}
