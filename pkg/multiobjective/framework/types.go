package framework

import (
	"context"
	"slices"
)

// Individual represents a solution in the population
type Individual struct {
	Variables  []float64
	Objectives []float64
	// Constraint is the aggregated constraint value, <= 0 means feasible.
	Constraint float64

	// Rank is the index of the non-dominated front the individual belongs to.
	Rank int
	// Distance is the crowding distance within its front.
	Distance float64
	// Niche is the reference direction the individual is associated with, -1 if none.
	Niche int
	// NicheDistance is the perpendicular distance to that direction.
	NicheDistance float64
}

// Feasible reports whether the individual satisfies its constraint.
func (ind Individual) Feasible() bool {
	return ind.Constraint <= 0
}

// Violation returns the amount of constraint violation, zero when feasible.
func (ind Individual) Violation() float64 {
	return max(0, ind.Constraint)
}

// Clone returns a deep copy of ind.
func (ind Individual) Clone() Individual {
	ind.Variables = slices.Clone(ind.Variables)
	ind.Objectives = slices.Clone(ind.Objectives)
	return ind
}

// ObjectiveSpacePoint represents an N-dimensional point in the objective space.
// As an example, for a problem with 2 objective functions f1 and f2, a point
// in the objective space could be [f1(x'), f2(x')], for the input of x'.
type ObjectiveSpacePoint []float64

// Evaluation is the score of one decision vector.
type Evaluation struct {
	Objectives []float64
	Constraint float64
}

// Problem describes the contract a specific multi-objective problem needs to implement.
// All objectives are minimized.
type Problem interface {
	Name() string

	Bounds() []Bounds
	NumObjectives() int

	// Evaluate scores x. A returned error aborts the whole run, so
	// implementations report per-candidate failures through the Evaluation.
	Evaluate(ctx context.Context, x []float64) (Evaluation, error)
}

// ParetoFronter is implemented by problems with a known true Pareto front.
type ParetoFronter interface {
	TrueParetoFront(int) []ObjectiveSpacePoint
}

// Algorithm describes the contract that a MOO algorithm needs to implement.
type Algorithm interface {
	Name() string
	Run(ctx context.Context, problem Problem) ([]Individual, error)
}
