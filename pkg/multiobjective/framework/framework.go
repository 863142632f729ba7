package framework

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// Bounds is the closed interval [L, H] of one decision variable.
type Bounds struct {
	L float64
	H float64
}

// Clamp restricts v to the interval.
func (b Bounds) Clamp(v float64) float64 {
	return math.Max(b.L, math.Min(b.H, v))
}

// Width returns H - L.
func (b Bounds) Width() float64 {
	return b.H - b.L
}

// ValidateBounds checks that every interval is finite and ordered.
func ValidateBounds(bounds []Bounds) error {
	if len(bounds) == 0 {
		return errors.New("no decision variables")
	}
	for i, b := range bounds {
		if math.IsNaN(b.L) || math.IsNaN(b.H) || math.IsInf(b.L, 0) || math.IsInf(b.H, 0) {
			return fmt.Errorf("variable %d: bounds must be finite", i)
		}
		if b.L > b.H {
			return fmt.Errorf("variable %d: lower bound %g above upper bound %g", i, b.L, b.H)
		}
	}
	return nil
}

// SBX performs simulated binary crossover on real-valued vectors, respecting
// the variable bounds.
type SBX struct {
	// Prob is the probability that a pair of parents is recombined at all.
	Prob float64
	// Eta is the distribution index; larger values keep children closer to their parents.
	Eta float64
	// VarProb is the per-variable recombination probability, 0.5 if zero.
	VarProb float64
}

// Do returns two children of p1 and p2. The parents are not modified.
func (op SBX) Do(p1, p2 []float64, bounds []Bounds, rng *rand.Rand) ([]float64, []float64) {
	c1 := slices.Clone(p1)
	c2 := slices.Clone(p2)
	if rng.Float64() >= op.Prob {
		return c1, c2
	}
	varProb := op.VarProb
	if varProb == 0 {
		varProb = 0.5
	}

	for i := range c1 {
		if rng.Float64() > varProb || math.Abs(p1[i]-p2[i]) <= 1e-14 {
			continue
		}
		b := bounds[i]
		y1, y2 := math.Min(p1[i], p2[i]), math.Max(p1[i], p2[i])
		delta := y2 - y1
		u := rng.Float64()

		beta := 1 + 2*(y1-b.L)/delta
		low := 0.5 * ((y1 + y2) - sbxSpread(beta, op.Eta, u)*delta)
		beta = 1 + 2*(b.H-y2)/delta
		high := 0.5 * ((y1 + y2) + sbxSpread(beta, op.Eta, u)*delta)

		low, high = b.Clamp(low), b.Clamp(high)
		if rng.Float64() < 0.5 {
			low, high = high, low
		}
		c1[i], c2[i] = low, high
	}
	return c1, c2
}

func sbxSpread(beta, eta, u float64) float64 {
	alpha := 2 - math.Pow(beta, -(eta+1))
	if u <= 1/alpha {
		return math.Pow(u*alpha, 1/(eta+1))
	}
	return math.Pow(1/(2-u*alpha), 1/(eta+1))
}

// PolynomialMutation perturbs real-valued vectors with the bounded
// polynomial distribution.
type PolynomialMutation struct {
	// Prob is the per-variable mutation probability, 1/len(x) if zero.
	Prob float64
	// Eta is the distribution index.
	Eta float64
}

// Do mutates x in place.
func (op PolynomialMutation) Do(x []float64, bounds []Bounds, rng *rand.Rand) {
	prob := op.Prob
	if prob == 0 && len(x) > 0 {
		prob = 1 / float64(len(x))
	}
	mutPow := 1 / (op.Eta + 1)

	for i := range x {
		if rng.Float64() >= prob {
			continue
		}
		b := bounds[i]
		width := b.Width()
		if width == 0 {
			continue
		}
		y := x[i]
		delta1 := (y - b.L) / width
		delta2 := (b.H - y) / width

		var deltaq float64
		if r := rng.Float64(); r < 0.5 {
			val := 2*r + (1-2*r)*math.Pow(1-delta1, op.Eta+1)
			deltaq = math.Pow(val, mutPow) - 1
		} else {
			val := 2*(1-r) + 2*(r-0.5)*math.Pow(1-delta2, op.Eta+1)
			deltaq = 1 - math.Pow(val, mutPow)
		}
		x[i] = b.Clamp(y + deltaq*width)
	}
}
