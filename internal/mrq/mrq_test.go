package mrq

import "testing"

func TestNextIntervalIsPositiveAndDeterministic(t *testing.T) {
	calls := []float64{0.5, 0.5, 0.1, 0.9}
	i := 0
	l := &Loop{Rand: func() float64 {
		v := calls[i%len(calls)]
		i++
		return v
	}}

	d1 := l.nextInterval()
	if d1 <= 0 {
		t.Fatalf("nextInterval() = %v, want positive", d1)
	}

	i = 0
	d2 := l.nextInterval()
	if d1 != d2 {
		t.Fatalf("nextInterval() not deterministic for the same Rand sequence: %v != %v", d1, d2)
	}
}

func TestSampleStandardNormalGuardsAgainstZero(t *testing.T) {
	v := sampleStandardNormal(func() float64 { return 0 })
	if v != v { // NaN check
		t.Fatalf("sampleStandardNormal with u1=0 produced NaN")
	}
}
