package framework

import "math/rand/v2"

// LatinHypercube draws n points inside bounds so that every variable has
// exactly one sample in each of n equal-width strata.
func LatinHypercube(n int, bounds []Bounds, rng *rand.Rand) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, len(bounds))
	}
	if n == 0 {
		return points
	}
	for j, b := range bounds {
		perm := rng.Perm(n)
		for i := range points {
			u := (float64(perm[i]) + rng.Float64()) / float64(n)
			points[i][j] = b.Clamp(b.L + u*b.Width())
		}
	}
	return points
}

// RandomSampling draws n points uniformly inside bounds.
func RandomSampling(n int, bounds []Bounds, rng *rand.Rand) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		x := make([]float64, len(bounds))
		for j, b := range bounds {
			x[j] = b.L + rng.Float64()*b.Width()
		}
		points[i] = x
	}
	return points
}
