package algorithms

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/benchmarks"
	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/framework"
	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/util"
)

func zdt1Config(pop, gens int) Config {
	cfg := DefaultConfig()
	cfg.PopSize = pop
	cfg.NumGenerations = gens
	return cfg
}

// Test problem: ZDT1 benchmark function
func TestNSGAIIWithZDT1(t *testing.T) {
	numVars := 30
	popSize := 100

	// Create the ZDT1 problem instance
	zdt1 := benchmarks.NewZDT1(numVars)

	// Create NSGA-II instance
	nsga := NewNSGAII(zdt1Config(popSize, 250))

	// Run algorithm
	finalPop, err := nsga.Run(context.Background(), zdt1)
	require.NoError(t, err)

	// Basic validation
	require.Len(t, finalPop, popSize)

	// Verify Pareto front characteristics
	fronts := framework.Fronts(finalPop, framework.NonDominatedSort(finalPop))
	require.NotEmpty(t, fronts, "No fronts found in final population")

	firstFront := fronts[0]
	results := make([]framework.ObjectiveSpacePoint, len(firstFront))
	for i := range len(firstFront) {
		results[i] = firstFront[i].Objectives
	}
	_, err = util.PlotResults(t.TempDir(), results, zdt1, Name)
	assert.NoError(t, err, "Plot failed")

	// Check if first front is non-dominated
	for i := 0; i < len(firstFront); i++ {
		for j := 0; j < len(firstFront); j++ {
			if i != j && framework.Dominates(firstFront[i], firstFront[j]) {
				t.Error("First front contains dominated solutions")
			}
		}
	}

	// The front should be close to f2 = 1 - sqrt(f1).
	var gap float64
	for _, ind := range firstFront {
		gap += ind.Objectives[1] - (1 - math.Sqrt(ind.Objectives[0]))
	}
	assert.Less(t, gap/float64(len(firstFront)), 0.25)
}

func TestNSGAIIIsDeterministic(t *testing.T) {
	run := func(workers int) []framework.Individual {
		cfg := zdt1Config(20, 5)
		cfg.Workers = workers
		pop, err := NewNSGAII(cfg).Run(context.Background(), benchmarks.NewZDT1(12))
		require.NoError(t, err)
		return pop
	}
	a, b := run(1), run(1)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("two runs with the same seed differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(a, run(4)); diff != "" {
		t.Errorf("parallel evaluation changed the result (-serial +parallel):\n%s", diff)
	}

	cfg := zdt1Config(20, 5)
	cfg.Seed = 7
	other, err := NewNSGAII(cfg).Run(context.Background(), benchmarks.NewZDT1(12))
	require.NoError(t, err)
	assert.NotEqual(t, a[0].Variables, other[0].Variables)
}

func TestNSGAIIConstrained(t *testing.T) {
	zdt1 := benchmarks.NewZDT1(10)
	zdt1.MinX0 = 0.3
	pop, err := NewNSGAII(zdt1Config(40, 40)).Run(context.Background(), zdt1)
	require.NoError(t, err)
	for _, ind := range pop {
		assert.True(t, ind.Feasible(), "infeasible survivor %v", ind.Variables)
		assert.GreaterOrEqual(t, ind.Variables[0], 0.3)
	}
}

func TestNSGAIIWithReferenceDirections(t *testing.T) {
	cfg := zdt1Config(24, 30)
	cfg.RefDirs = framework.DasDennis(2, 23)
	pop, err := NewNSGAII(cfg).Run(context.Background(), benchmarks.NewZDT1(8))
	require.NoError(t, err)
	require.Len(t, pop, 24)
	niched := 0
	for _, ind := range pop {
		if ind.Niche >= 0 {
			niched++
			assert.Less(t, ind.Niche, len(cfg.RefDirs))
		}
	}
	assert.Positive(t, niched)

	cfg.RefDirs = framework.DasDennis(3, 4)
	_, err = NewNSGAII(cfg).Run(context.Background(), benchmarks.NewZDT1(8))
	assert.Error(t, err, "direction dimension must match the objectives")
}

func TestNSGAIICallback(t *testing.T) {
	var gens []int
	var evals []int
	cfg := zdt1Config(10, 4)
	cfg.Callback = func(g Generation) {
		gens = append(gens, g.Index)
		evals = append(evals, g.Evaluations)
		assert.Len(t, g.Population, 10)
	}
	_, err := NewNSGAII(cfg).Run(context.Background(), benchmarks.NewZDT1(5))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, gens)
	assert.Equal(t, []int{10, 20, 30, 40}, evals)
}

type countingProblem struct {
	*benchmarks.ZDT1
	calls  atomic.Int64
	cancel func()
	after  int64
}

func (p *countingProblem) Evaluate(ctx context.Context, x []float64) (framework.Evaluation, error) {
	if p.calls.Add(1) == p.after {
		p.cancel()
	}
	return p.ZDT1.Evaluate(ctx, x)
}

func TestNSGAIICancellation(t *testing.T) {
	for _, workers := range []int{1, 3} {
		ctx, cancel := context.WithCancel(context.Background())
		p := &countingProblem{ZDT1: benchmarks.NewZDT1(5), cancel: cancel, after: 15}
		cfg := zdt1Config(10, 50)
		cfg.Workers = workers
		_, err := NewNSGAII(cfg).Run(ctx, p)
		assert.True(t, errors.Is(err, context.Canceled), "workers=%d: %v", workers, err)
		assert.Less(t, p.calls.Load(), int64(50*10))
		cancel()
	}
}

func TestNSGAIIDefaults(t *testing.T) {
	cfg := NewNSGAII(Config{}).Config()
	assert.Equal(t, DefaultPopSize, cfg.PopSize)
	assert.Equal(t, DefaultPopSize, cfg.NumOffspring)
	assert.Equal(t, DefaultNumGenerations, cfg.NumGenerations)
	assert.Equal(t, 1, cfg.Workers)
	assert.NotNil(t, cfg.DuplicateKey)
	assert.Equal(t, DefaultCrossoverProb, NewNSGAII(DefaultConfig()).Config().CrossoverProb)
}

func TestNSGAIIWithoutCrossover(t *testing.T) {
	cfg := zdt1Config(10, 3)
	cfg.CrossoverProb = 0
	n := NewNSGAII(cfg)
	assert.Zero(t, n.Config().CrossoverProb)

	pop, err := n.Run(context.Background(), benchmarks.NewZDT1(5))
	require.NoError(t, err)
	assert.Len(t, pop, 10)
}

func TestMateEliminatesDuplicates(t *testing.T) {
	// A single-point search space forces every child to be a duplicate.
	n := NewNSGAII(Config{EliminateDuplicates: true, PopSize: 4, MaxMatingAttempts: 3})
	bounds := []framework.Bounds{{L: 0.5, H: 0.5}}
	pop := []framework.Individual{{Variables: []float64{0.5}, Objectives: []float64{0, 0}}}
	rng := rand.New(rand.NewPCG(1, 1))
	children := n.mate(pop, bounds, framework.SBX{Prob: 1, Eta: 15}, framework.PolynomialMutation{Eta: 20}, rng)
	assert.Empty(t, children)

	n = NewNSGAII(Config{EliminateDuplicates: true, PopSize: 6})
	pop = []framework.Individual{
		{Variables: []float64{0.1, 0.1}, Objectives: []float64{0, 1}},
		{Variables: []float64{0.9, 0.9}, Objectives: []float64{1, 0}},
	}
	children = n.mate(pop, []framework.Bounds{{L: 0, H: 1}, {L: 0, H: 1}}, framework.SBX{Prob: 1, Eta: 15}, framework.PolynomialMutation{Eta: 20}, rng)
	require.Len(t, children, 6)
	seen := map[string]bool{"0.1,0.1": true, "0.9,0.9": true}
	for _, c := range children {
		key := VariablesKey(c)
		assert.False(t, seen[key], "duplicate child %s", key)
		seen[key] = true
	}
}

func TestNSGAIIRejectsEmptyProblem(t *testing.T) {
	_, err := NewNSGAII(zdt1Config(10, 2)).Run(context.Background(), benchmarks.NewZDT1(0))
	assert.Error(t, err, "a problem without variables is rejected")
}
