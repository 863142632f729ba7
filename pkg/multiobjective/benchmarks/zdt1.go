package benchmarks

import (
	"context"
	"math"

	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/framework"
)

const (
	Name = "ZDT1"
)

// ZDT1 is a benchmark function used to test the correctness
// of multi-objective algorithms. For more details, check the article below:
// https://datacrayon.com/practical-evolutionary-algorithms/synthetic-objective-functions-and-zdt1/
type ZDT1 struct {
	numVars int
	// MinX0, when positive, makes every x[0] below it infeasible.
	MinX0 float64
}

func NewZDT1(numVars int) *ZDT1 {
	return &ZDT1{
		numVars: numVars,
	}
}

func (p *ZDT1) Name() string {
	return Name
}

func (p *ZDT1) NumObjectives() int {
	return 2
}

func (p *ZDT1) Evaluate(ctx context.Context, x []float64) (framework.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return framework.Evaluation{}, err
	}
	e := framework.Evaluation{Objectives: []float64{f1(x), f2(x)}}
	if p.MinX0 > 0 {
		e.Constraint = p.MinX0 - x[0]
	}
	return e, nil
}

// f1 is the first ZDT1 benchmark objective
func f1(x []float64) float64 {
	return x[0]
}

// f2 is the second ZDT1 benchmark objective
func f2(x []float64) float64 {
	g := 1.0
	for i := 1; i < len(x); i++ {
		g += 9.0 * x[i] / float64(len(x)-1)
	}
	return g * (1.0 - math.Sqrt(x[0]/g))
}

func (p *ZDT1) Bounds() []framework.Bounds {
	b := make([]framework.Bounds, p.numVars)
	for i := range p.numVars {
		b[i] = framework.Bounds{
			L: 0.0,
			H: 1.0,
		}
	}
	return b
}

// TrueParetoFront generates numPoints points on the true Pareto front for ZDT1
func (p *ZDT1) TrueParetoFront(numPoints int) []framework.ObjectiveSpacePoint {
	points := make([]framework.ObjectiveSpacePoint, 0, numPoints)
	for i := 0; i < numPoints; i++ {
		x := float64(i) / float64(max(numPoints-1, 1))
		if x < p.MinX0 {
			continue
		}
		points = append(points, framework.ObjectiveSpacePoint{
			x, 1.0 - math.Sqrt(x),
		})
	}
	return points
}
