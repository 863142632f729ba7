package algorithms

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/framework"
)

func TestClosestDirection(t *testing.T) {
	dirs := [][]float64{{1, 0}, {0.5, 0.5}, {0, 1}}
	j, d := closestDirection([]float64{0.9, 0.1}, dirs)
	assert.Equal(t, 0, j)
	assert.InDelta(t, 0.1, d, 1e-12)

	j, d = closestDirection([]float64{0.3, 0.3}, dirs)
	assert.Equal(t, 1, j)
	assert.InDelta(t, 0, d, 1e-12)
}

func TestNicheSelectPrefersEmptyNiches(t *testing.T) {
	dirs := [][]float64{{1, 0}, {0.5, 0.5}, {0, 1}}
	admitted := []framework.Individual{
		{Objectives: []float64{0, 1}},
	}
	last := []framework.Individual{
		{Objectives: []float64{0.05, 0.95}}, // crowds the admitted niche
		{Objectives: []float64{1, 0}},
		{Objectives: []float64{0.6, 0.4}},
		{Objectives: []float64{0.45, 0.5}},
	}
	first := append(append([]framework.Individual{}, admitted...), last...)
	rng := rand.New(rand.NewPCG(3, 3))

	got := nicheSelect(admitted, last, first, 2, dirs, rng)
	require.Len(t, got, 3)
	niches := map[int]bool{}
	for _, ind := range got {
		niches[ind.Niche] = true
	}
	assert.Len(t, niches, 3, "each direction should receive one member")

	// The member closest to the middle direction wins its niche.
	for _, ind := range got[1:] {
		if ind.Niche == 1 {
			assert.Equal(t, []float64{0.45, 0.5}, ind.Objectives)
			assert.Less(t, ind.NicheDistance, 0.1)
		}
	}
}

func TestNicheSelectDegenerateFront(t *testing.T) {
	// Identical objectives must not divide by zero.
	last := make([]framework.Individual, 5)
	for i := range last {
		last[i] = framework.Individual{Objectives: []float64{2, 2}}
	}
	got := nicheSelect(nil, last, last, 3, framework.DasDennis(2, 4), rand.New(rand.NewPCG(1, 1)))
	require.Len(t, got, 3)
	for _, ind := range got {
		assert.False(t, math.IsNaN(ind.NicheDistance))
	}
}
