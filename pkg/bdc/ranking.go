package bdc

import (
	"cmp"
	"slices"

	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/framework"
)

// DefaultTopN is the length of the best-solutions report.
const DefaultTopN = 10

// RankedSolution is one entry of the best-solutions report. Rank starts at 1.
type RankedSolution struct {
	Rank       int
	Parameters []float64
	Objectives []float64
	Constraint float64
	Key        string
}

// OptimalSet returns the feasible members of the first non-dominated front,
// or the whole population when no member qualifies.
func OptimalSet(population []framework.Individual) []framework.Individual {
	var opt []framework.Individual
	for _, ind := range population {
		if ind.Rank == 0 && ind.Feasible() {
			opt = append(opt, ind)
		}
	}
	if len(opt) == 0 {
		return population
	}
	return opt
}

// RankSolutions orders population ascending by objective 1, then 2 and so on,
// keeping population order for full ties, and returns at most n entries.
// A non-positive n returns every member.
func RankSolutions(population []framework.Individual, n int, decimals int) []RankedSolution {
	order := make([]int, len(population))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return compareObjectives(population[a].Objectives, population[b].Objectives)
	})
	if n > 0 && n < len(order) {
		order = order[:n]
	}

	out := make([]RankedSolution, len(order))
	for rank, i := range order {
		ind := population[i]
		params := RoundVector(ind.Variables, decimals)
		out[rank] = RankedSolution{
			Rank:       rank + 1,
			Parameters: params,
			Objectives: slices.Clone(ind.Objectives),
			Constraint: ind.Constraint,
			Key:        CandidateKey(params),
		}
	}
	return out
}

func compareObjectives(a, b []float64) int {
	for m := range min(len(a), len(b)) {
		if c := cmp.Compare(a[m], b[m]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}
