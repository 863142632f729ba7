package framework

// NonDominatedSort performs constraint-domination non-dominated sorting on
// the population. It sets the Rank of every individual and returns the fronts
// as indices into population, best front first.
func NonDominatedSort(population []Individual) [][]int {
	if len(population) == 0 {
		return nil
	}
	var fronts [][]int
	dominated := make([][]int, len(population))
	domCount := make([]int, len(population))

	// Calculate domination for each pair
	for i := 0; i < len(population); i++ {
		for j := i + 1; j < len(population); j++ {
			if ConstrainedDominates(population[i], population[j]) {
				dominated[i] = append(dominated[i], j)
				domCount[j]++
			} else if ConstrainedDominates(population[j], population[i]) {
				dominated[j] = append(dominated[j], i)
				domCount[i]++
			}
		}
	}

	// Find first front
	var currentFront []int
	for i := range population {
		if domCount[i] == 0 {
			population[i].Rank = 0
			currentFront = append(currentFront, i)
		}
	}

	// Find subsequent fronts
	frontIndex := 0
	for len(currentFront) > 0 {
		fronts = append(fronts, currentFront)
		var nextFront []int
		for _, idx := range currentFront {
			for _, dominatedIdx := range dominated[idx] {
				domCount[dominatedIdx]--
				if domCount[dominatedIdx] == 0 {
					population[dominatedIdx].Rank = frontIndex + 1
					nextFront = append(nextFront, dominatedIdx)
				}
			}
		}
		frontIndex++
		currentFront = nextFront
	}

	return fronts
}

// Dominates checks if individual a dominates individual b
func Dominates(a, b Individual) bool {
	better := false
	for i := 0; i < len(a.Objectives); i++ {
		if a.Objectives[i] > b.Objectives[i] {
			return false
		}
		if a.Objectives[i] < b.Objectives[i] {
			better = true
		}
	}
	return better
}

// ConstrainedDominates applies constraint domination: a feasible individual
// beats an infeasible one, two infeasible individuals are compared by their
// violation and two feasible ones by Pareto dominance.
func ConstrainedDominates(a, b Individual) bool {
	av, bv := a.Violation(), b.Violation()
	switch {
	case av == 0 && bv == 0:
		return Dominates(a, b)
	case av == 0:
		return true
	case bv == 0:
		return false
	default:
		return av < bv
	}
}

// Fronts groups population by the indices returned from NonDominatedSort.
func Fronts(population []Individual, indices [][]int) [][]Individual {
	fronts := make([][]Individual, len(indices))
	for i, front := range indices {
		fronts[i] = make([]Individual, len(front))
		for j, idx := range front {
			fronts[i][j] = population[idx]
		}
	}
	return fronts
}
