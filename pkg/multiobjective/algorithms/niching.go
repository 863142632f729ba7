package algorithms

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/framework"
)

const normEpsilon = 1e-12

// nicheSelect fills admitted up to len(admitted)+remaining with members of
// last, the front that does not fit entirely. Objectives are translated by the
// ideal point and scaled by the extent of the first front, every candidate is
// attached to its closest reference direction, and the least crowded niches
// receive members first.
func nicheSelect(admitted, last, first []framework.Individual, remaining int, refDirs [][]float64, rng *rand.Rand) []framework.Individual {
	nObj := len(refDirs[0])
	ideal := make([]float64, nObj)
	worst := make([]float64, nObj)
	for m := range ideal {
		ideal[m] = math.Inf(1)
		worst[m] = math.Inf(-1)
	}
	for _, group := range [][]framework.Individual{admitted, last} {
		for _, ind := range group {
			for m, v := range ind.Objectives {
				ideal[m] = math.Min(ideal[m], v)
				worst[m] = math.Max(worst[m], v)
			}
		}
	}
	scale := make([]float64, nObj)
	for m := range scale {
		nadir := math.Inf(-1)
		for _, ind := range first {
			nadir = math.Max(nadir, ind.Objectives[m])
		}
		scale[m] = nadir - ideal[m]
		if scale[m] <= normEpsilon {
			scale[m] = worst[m] - ideal[m]
		}
		if scale[m] <= normEpsilon {
			scale[m] = 1
		}
	}

	associate := func(ind *framework.Individual) {
		p := make([]float64, nObj)
		for m := range p {
			p[m] = (ind.Objectives[m] - ideal[m]) / scale[m]
		}
		ind.Niche, ind.NicheDistance = closestDirection(p, refDirs)
	}

	counts := make([]int, len(refDirs))
	for i := range admitted {
		associate(&admitted[i])
		counts[admitted[i].Niche]++
	}
	for i := range last {
		associate(&last[i])
	}

	taken := make([]bool, len(last))
	for chosen := 0; chosen < remaining; chosen++ {
		// Niches that still have unselected candidates.
		minCount := math.MaxInt
		var niches []int
		for j := range refDirs {
			if !hasCandidate(last, taken, j) {
				continue
			}
			switch {
			case counts[j] < minCount:
				minCount = counts[j]
				niches = append(niches[:0], j)
			case counts[j] == minCount:
				niches = append(niches, j)
			}
		}
		niche := niches[rng.IntN(len(niches))]

		var members []int
		for i, ind := range last {
			if !taken[i] && ind.Niche == niche {
				members = append(members, i)
			}
		}
		pick := members[rng.IntN(len(members))]
		if counts[niche] == 0 {
			pick = members[0]
			for _, i := range members[1:] {
				if last[i].NicheDistance < last[pick].NicheDistance {
					pick = i
				}
			}
		}
		taken[pick] = true
		counts[niche]++
		admitted = append(admitted, last[pick])
	}
	return admitted
}

func hasCandidate(last []framework.Individual, taken []bool, niche int) bool {
	for i, ind := range last {
		if !taken[i] && ind.Niche == niche {
			return true
		}
	}
	return false
}

// closestDirection returns the index of the direction with the smallest
// perpendicular distance to p, and that distance.
func closestDirection(p []float64, refDirs [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	proj := make([]float64, len(p))
	for j, d := range refDirs {
		norm := floats.Dot(d, d)
		if norm > 0 {
			floats.ScaleTo(proj, floats.Dot(p, d)/norm, d)
		} else {
			floats.Scale(0, proj)
		}
		if dist := floats.Distance(p, proj, 2); dist < bestDist {
			best, bestDist = j, dist
		}
	}
	return best, bestDist
}
