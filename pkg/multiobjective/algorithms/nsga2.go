package algorithms

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sourcegraph/conc/pool"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/framework"
)

const (
	Name = "NSGA-II"

	DefaultPopSize           = 50
	DefaultNumGenerations    = 100
	DefaultCrossoverProb     = 0.9
	DefaultCrossoverEta      = 15
	DefaultMutationEta       = 20
	DefaultMaxMatingAttempts = 100
	DefaultSeed              = 1
)

// Generation is handed to Config.Callback after every generation.
type Generation struct {
	// Index starts at 1 for the evaluated initial population.
	Index int
	// Evaluations is the cumulative number of problem evaluations.
	Evaluations int
	Population  []framework.Individual
}

// Config holds the NSGA-II parameters. Zero sizes, distribution indices and
// Workers take the defaults above. CrossoverProb is used as given, so a zero
// value disables recombination; start from DefaultConfig for the usual 0.9.
// A zero MutationProb selects 1/n_var.
type Config struct {
	PopSize        int
	NumOffspring   int
	NumGenerations int

	CrossoverProb float64
	CrossoverEta  float64
	MutationProb  float64
	MutationEta   float64

	// EliminateDuplicates rejects offspring whose DuplicateKey is already
	// present in the population or among earlier offspring.
	EliminateDuplicates bool
	DuplicateKey        func([]float64) string
	MaxMatingAttempts   int

	Seed uint64

	// RefDirs switches truncation of the splitting front from crowding
	// distance to reference-direction niching. Each direction needs one
	// entry per objective.
	RefDirs [][]float64

	// Workers bounds parallel evaluations within a generation.
	Workers int

	// Callback is notified after each generation. It must not retain or
	// modify the population.
	Callback func(Generation)
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		PopSize:             DefaultPopSize,
		NumGenerations:      DefaultNumGenerations,
		CrossoverProb:       DefaultCrossoverProb,
		CrossoverEta:        DefaultCrossoverEta,
		MutationEta:         DefaultMutationEta,
		EliminateDuplicates: true,
		MaxMatingAttempts:   DefaultMaxMatingAttempts,
		Seed:                DefaultSeed,
		Workers:             1,
	}
}

// NSGAII represents the NSGA-II algorithm configuration
type NSGAII struct {
	cfg Config
}

// NewNSGAII creates a new instance of NSGA-II with given parameters
func NewNSGAII(cfg Config) *NSGAII {
	if cfg.PopSize <= 0 {
		cfg.PopSize = DefaultPopSize
	}
	if cfg.NumOffspring <= 0 {
		cfg.NumOffspring = cfg.PopSize
	}
	if cfg.NumGenerations <= 0 {
		cfg.NumGenerations = DefaultNumGenerations
	}
	if cfg.CrossoverEta == 0 {
		cfg.CrossoverEta = DefaultCrossoverEta
	}
	if cfg.MutationEta == 0 {
		cfg.MutationEta = DefaultMutationEta
	}
	if cfg.MaxMatingAttempts <= 0 {
		cfg.MaxMatingAttempts = DefaultMaxMatingAttempts
	}
	if cfg.DuplicateKey == nil {
		cfg.DuplicateKey = VariablesKey
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &NSGAII{cfg: cfg}
}

func (n *NSGAII) Name() string {
	return Name
}

// Config returns the effective configuration.
func (n *NSGAII) Config() Config {
	return n.cfg
}

// VariablesKey identifies a decision vector by its shortest exact decimal form.
func VariablesKey(x []float64) string {
	parts := make([]string, len(x))
	for i, v := range x {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Run executes the NSGA-II algorithm and returns the final population with
// ranks and crowding distances assigned. Cancelling ctx aborts the run
// between evaluations.
func (n *NSGAII) Run(ctx context.Context, problem framework.Problem) ([]framework.Individual, error) {
	logger := klog.FromContext(ctx).WithValues("algorithm", Name, "problem", problem.Name())
	bounds := problem.Bounds()
	if err := framework.ValidateBounds(bounds); err != nil {
		return nil, err
	}
	for _, dir := range n.cfg.RefDirs {
		if len(dir) != problem.NumObjectives() {
			return nil, fmt.Errorf("reference direction has %d components, problem has %d objectives", len(dir), problem.NumObjectives())
		}
	}

	rng := rand.New(rand.NewPCG(n.cfg.Seed, n.cfg.Seed^0x9e3779b97f4a7c15))
	sbx := framework.SBX{Prob: n.cfg.CrossoverProb, Eta: n.cfg.CrossoverEta}
	pm := framework.PolynomialMutation{Prob: n.cfg.MutationProb, Eta: n.cfg.MutationEta}

	initial := framework.LatinHypercube(n.cfg.PopSize, bounds, rng)
	if n.cfg.EliminateDuplicates {
		initial = n.unique(initial, sets.New[string]())
	}
	population, err := n.evaluate(ctx, problem, initial)
	if err != nil {
		return nil, err
	}
	evaluations := len(population)
	population = n.survive(population, len(population), rng)
	n.notify(1, evaluations, population)
	logger.V(2).Info("Initial population evaluated", "size", len(population))

	for gen := 2; gen <= n.cfg.NumGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		children := n.mate(population, bounds, sbx, pm, rng)
		if len(children) == 0 {
			logger.Info("No new offspring could be produced, stopping early", "generation", gen)
			break
		}

		offspring, err := n.evaluate(ctx, problem, children)
		if err != nil {
			return nil, err
		}
		evaluations += len(offspring)

		// Combine populations
		combined := append(slices.Clip(population), offspring...)
		population = n.survive(combined, n.cfg.PopSize, rng)
		n.notify(gen, evaluations, population)
		logger.V(4).Info("Generation finished", "generation", gen, "evaluations", humanize.Comma(int64(evaluations)))
	}

	return population, nil
}

func (n *NSGAII) notify(gen, evaluations int, population []framework.Individual) {
	if n.cfg.Callback != nil {
		n.cfg.Callback(Generation{Index: gen, Evaluations: evaluations, Population: population})
	}
}

// unique drops vectors whose key is in seen or repeats within xs, recording
// the survivors in seen.
func (n *NSGAII) unique(xs [][]float64, seen sets.Set[string]) [][]float64 {
	out := xs[:0]
	for _, x := range xs {
		key := n.cfg.DuplicateKey(x)
		if seen.Has(key) {
			continue
		}
		seen.Insert(key)
		out = append(out, x)
	}
	return out
}

// mate produces up to NumOffspring children by tournament selection, SBX and
// polynomial mutation. Duplicates are re-mated for at most MaxMatingAttempts
// rounds.
func (n *NSGAII) mate(population []framework.Individual, bounds []framework.Bounds, sbx framework.SBX, pm framework.PolynomialMutation, rng *rand.Rand) [][]float64 {
	seen := sets.New[string]()
	if n.cfg.EliminateDuplicates {
		for _, ind := range population {
			seen.Insert(n.cfg.DuplicateKey(ind.Variables))
		}
	}

	var offspring [][]float64
	for attempt := 0; attempt < n.cfg.MaxMatingAttempts && len(offspring) < n.cfg.NumOffspring; attempt++ {
		missing := n.cfg.NumOffspring - len(offspring)
		batch := make([][]float64, 0, missing+1)
		for len(batch) < missing {
			parent1 := n.TournamentSelect(population, rng)
			parent2 := n.TournamentSelect(population, rng)
			child1, child2 := sbx.Do(parent1.Variables, parent2.Variables, bounds, rng)
			pm.Do(child1, bounds, rng)
			pm.Do(child2, bounds, rng)
			batch = append(batch, child1, child2)
		}
		batch = batch[:missing]
		if n.cfg.EliminateDuplicates {
			batch = n.unique(batch, seen)
		}
		offspring = append(offspring, batch...)
	}
	return offspring
}

// TournamentSelect runs a binary tournament: lower constraint violation wins,
// then lower rank, then larger crowding distance. With reference directions
// the crowding comparison is replaced by a coin flip.
func (n *NSGAII) TournamentSelect(population []framework.Individual, rng *rand.Rand) framework.Individual {
	a := population[rng.IntN(len(population))]
	b := population[rng.IntN(len(population))]

	av, bv := a.Violation(), b.Violation()
	switch {
	case av > 0 || bv > 0:
		if av < bv {
			return a
		} else if bv < av {
			return b
		}
	case a.Rank != b.Rank:
		if a.Rank < b.Rank {
			return a
		}
		return b
	case len(n.cfg.RefDirs) == 0 && a.Distance != b.Distance:
		if a.Distance > b.Distance {
			return a
		}
		return b
	}
	if rng.IntN(2) == 0 {
		return a
	}
	return b
}

// survive keeps size individuals of population, front by front.
func (n *NSGAII) survive(population []framework.Individual, size int, rng *rand.Rand) []framework.Individual {
	fronts := framework.Fronts(population, framework.NonDominatedSort(population))
	next := make([]framework.Individual, 0, size)

	for _, front := range fronts {
		CrowdingDistance(front)
		if len(next)+len(front) <= size {
			next = append(next, front...)
			if len(next) == size {
				break
			}
			continue
		}

		remaining := size - len(next)
		if len(n.cfg.RefDirs) > 0 {
			next = nicheSelect(next, front, fronts[0], remaining, n.cfg.RefDirs, rng)
		} else {
			// If needed, add remaining individuals based on crowding distance
			slices.SortStableFunc(front, func(a, b framework.Individual) int {
				return -compareFloat(a.Distance, b.Distance)
			})
			next = append(next, front[:remaining]...)
		}
		break
	}
	return next
}

// CrowdingDistance calculates crowding distance for individuals in a front.
// The order of front is not changed.
func CrowdingDistance(front []framework.Individual) {
	if len(front) <= 2 {
		for i := range front {
			front[i].Distance = math.Inf(1)
		}
		return
	}

	numObjectives := len(front[0].Objectives)
	for i := range front {
		front[i].Distance = 0
	}

	order := make([]int, len(front))
	for m := 0; m < numObjectives; m++ {
		for i := range order {
			order[i] = i
		}
		// Sort by each objective
		slices.SortStableFunc(order, func(a, b int) int {
			return compareFloat(front[a].Objectives[m], front[b].Objectives[m])
		})

		first, last := order[0], order[len(order)-1]
		objectiveRange := front[last].Objectives[m] - front[first].Objectives[m]
		if objectiveRange == 0 {
			continue
		}
		// Set boundary points to infinity
		front[first].Distance = math.Inf(1)
		front[last].Distance = math.Inf(1)

		// Calculate distance for intermediate points
		for i := 1; i < len(order)-1; i++ {
			front[order[i]].Distance += (front[order[i+1]].Objectives[m] - front[order[i-1]].Objectives[m]) / objectiveRange
		}
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// evaluate scores xs, in parallel when Workers > 1. Results keep the order of xs.
func (n *NSGAII) evaluate(ctx context.Context, problem framework.Problem, xs [][]float64) ([]framework.Individual, error) {
	out := make([]framework.Individual, len(xs))
	eval := func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		e, err := problem.Evaluate(ctx, xs[i])
		if err != nil {
			return err
		}
		if len(e.Objectives) != problem.NumObjectives() {
			return fmt.Errorf("%s returned %d objectives, want %d", problem.Name(), len(e.Objectives), problem.NumObjectives())
		}
		out[i] = framework.Individual{
			Variables:  xs[i],
			Objectives: e.Objectives,
			Constraint: e.Constraint,
			Niche:      -1,
		}
		return nil
	}

	if n.cfg.Workers <= 1 || len(xs) <= 1 {
		for i := range xs {
			if err := eval(ctx, i); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	p := pool.New().WithMaxGoroutines(n.cfg.Workers).WithContext(ctx).WithCancelOnError()
	for i := range xs {
		p.Go(func(ctx context.Context) error {
			return eval(ctx, i)
		})
	}
	if err := p.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return nil, errors.Join(ctxErr, err)
		}
		return nil, err
	}
	return out, nil
}
