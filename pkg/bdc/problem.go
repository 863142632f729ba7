package bdc

import (
	"context"
	"fmt"

	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/framework"
)

const ProblemName = "BDC"

// Problem exposes the evaluator to the optimizer.
type Problem struct {
	evaluator *Evaluator
	bounds    []framework.Bounds
}

var _ framework.Problem = &Problem{}

// NewProblem returns the taper problem over the box [lower, upper].
func NewProblem(e *Evaluator, lower, upper []float64) (*Problem, error) {
	if len(lower) != NumVariables || len(upper) != NumVariables {
		return nil, fmt.Errorf("bounds need %d entries, got %d lower and %d upper", NumVariables, len(lower), len(upper))
	}
	bounds := make([]framework.Bounds, NumVariables)
	for i := range bounds {
		bounds[i] = framework.Bounds{L: lower[i], H: upper[i]}
	}
	if err := framework.ValidateBounds(bounds); err != nil {
		return nil, err
	}
	return &Problem{evaluator: e, bounds: bounds}, nil
}

func (p *Problem) Name() string {
	return ProblemName
}

func (p *Problem) Bounds() []framework.Bounds {
	return p.bounds
}

func (p *Problem) NumObjectives() int {
	return NumObjectives
}

// Evaluate scores x. Only cancellation of ctx is reported as an error.
func (p *Problem) Evaluate(ctx context.Context, x []float64) (framework.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return framework.Evaluation{}, err
	}
	res := p.evaluator.Evaluate(ctx, x)
	if res.Status == StatusOracleFailed {
		if err := ctx.Err(); err != nil {
			return framework.Evaluation{}, err
		}
	}
	return framework.Evaluation{Objectives: res.Objectives, Constraint: res.Constraint}, nil
}

// DuplicateKey identifies offspring that round to the same candidate.
func (p *Problem) DuplicateKey(x []float64) string {
	return CandidateKey(RoundVector(x, p.evaluator.cfg.Decimals))
}
