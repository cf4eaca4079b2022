package network

import (
	"math"
	"math/rand"
)

// minSlack keeps sampled contour lengths strictly above the bond span, where
// the worm-like chain force diverges.
const minSlack = 1.05

// LengthSampler draws bond rest lengths. A non-positive Mean, or StressFree,
// makes every bond start at its current span.
type LengthSampler struct {
	Mean       float64
	Std        float64
	StressFree bool
}

func (s LengthSampler) Sample(rng *rand.Rand, span float64) float64 {
	if s.StressFree || s.Mean <= 0 {
		return span
	}
	l := s.Mean
	if rng != nil && s.Std > 0 {
		l += s.Std * rng.NormFloat64()
	}
	return math.Max(l, span*minSlack)
}
