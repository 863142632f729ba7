package bdc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/siph-lab/bdc-optimizer/apis/config/v1alpha1"
	"github.com/siph-lab/bdc-optimizer/pkg/archive"
	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/algorithms"
	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/framework"
	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/util"
	"github.com/siph-lab/bdc-optimizer/pkg/oracle"
	"github.com/siph-lab/bdc-optimizer/pkg/smatrix"
)

// Artifact file names inside the output directory.
const (
	HistoryPlotFile = "objective_history.png"
	ParetoPlotFile  = "pareto_front.html"
	WorkbookFile    = "population.xlsx"
	ReportFile      = "report.txt"
)

// RunOptions adjusts a run beyond its configuration.
type RunOptions struct {
	// Oracle replaces the oracle selected by the solver configuration.
	Oracle oracle.Oracle
	// Out receives the per-generation display and the final report, nothing when nil.
	Out io.Writer
}

// Outcome is everything a finished run produced.
type Outcome struct {
	Report     Report
	Population []framework.Individual
	History    *util.History
	Metrics    *Metrics
	// Evaluations is the archive ledger, empty when no archive is configured.
	Evaluations []archive.Record
	// Artifacts lists the files written to the output directory.
	Artifacts []string
}

// NewOracle builds the oracle selected by the solver configuration.
func NewOracle(s v1alpha1.SolverArgs) (oracle.Oracle, error) {
	var o oracle.Oracle
	switch {
	case s.DryRun:
		o = oracle.NewCoupler(0.707, 0.707, 0)
	case s.Command != "":
		o = &oracle.Exec{
			Command:    s.Command,
			Args:       s.Args,
			Env:        s.Env,
			OutputName: s.OutputName,
		}
	default:
		return nil, errors.New("no solver command configured")
	}
	if s.ReusePersisted {
		o = &oracle.Cached{Next: o}
	}
	return o, nil
}

// EvaluatorConfigFor derives the evaluator configuration from a defaulted
// run configuration.
func EvaluatorConfigFor(cfg *v1alpha1.OptimizationConfig) EvaluatorConfig {
	ecfg := DefaultEvaluatorConfig()
	ecfg.Sweep = smatrix.Sweep{
		Start: ptr.Deref(cfg.Sweep.Start, ecfg.Sweep.Start),
		Stop:  ptr.Deref(cfg.Sweep.Stop, ecfg.Sweep.Stop),
		Count: ptr.Deref(cfg.Sweep.Count, ecfg.Sweep.Count),
	}
	ecfg.Center = ptr.Deref(cfg.Sweep.Center, ecfg.Center)
	if cfg.Design.DataRoot != "" {
		ecfg.DataRoot = cfg.Design.DataRoot
	}
	if cfg.Design.DataTag != "" {
		ecfg.DataTag = cfg.Design.DataTag
	}
	ecfg.MinFeature = ptr.Deref(cfg.Design.MinFeature, ecfg.MinFeature)
	ecfg.Decimals = ptr.Deref(cfg.Design.Decimals, ecfg.Decimals)
	ecfg.Fields.WgWidth = ptr.Deref(cfg.Design.WgWidth, ecfg.Fields.WgWidth)
	ecfg.Fields.CladdingOffset = ptr.Deref(cfg.Design.CladdingOffset, ecfg.Fields.CladdingOffset)
	ecfg.MeshAccuracy = ptr.Deref(cfg.Solver.MeshAccuracy, ecfg.MeshAccuracy)
	if len(cfg.Solver.Materials) > 0 {
		ecfg.Materials = cfg.Solver.Materials
	}
	ecfg.Memoize = ptr.Deref(cfg.Optimizer.Memoize, ecfg.Memoize)
	return ecfg
}

// AlgorithmConfigFor derives the NSGA-II configuration. MutationProb stays
// zero when unset so the algorithm applies 1/n_var. A configured zero
// CrossoverProb is kept.
func AlgorithmConfigFor(cfg *v1alpha1.OptimizationConfig) algorithms.Config {
	o := cfg.Optimizer
	acfg := algorithms.DefaultConfig()
	acfg.PopSize = ptr.Deref(o.PopSize, acfg.PopSize)
	acfg.NumOffspring = ptr.Deref(o.NumOffspring, acfg.PopSize)
	acfg.NumGenerations = ptr.Deref(o.NumGenerations, acfg.NumGenerations)
	acfg.CrossoverProb = ptr.Deref(o.CrossoverProb, acfg.CrossoverProb)
	acfg.CrossoverEta = ptr.Deref(o.CrossoverEta, acfg.CrossoverEta)
	acfg.MutationProb = ptr.Deref(o.MutationProb, 0)
	acfg.MutationEta = ptr.Deref(o.MutationEta, acfg.MutationEta)
	acfg.EliminateDuplicates = ptr.Deref(o.EliminateDuplicates, acfg.EliminateDuplicates)
	acfg.Seed = ptr.Deref(o.Seed, acfg.Seed)
	acfg.Workers = ptr.Deref(o.Workers, acfg.Workers)
	if p := ptr.Deref(o.RefDirPartitions, 0); p > 0 {
		acfg.RefDirs = framework.DasDennis(NumObjectives, p)
	}
	return acfg
}

// Run optimizes the coupler described by cfg, which must already be
// defaulted and validated, and writes the configured artifacts.
func Run(ctx context.Context, cfg *v1alpha1.OptimizationConfig, opts RunOptions) (*Outcome, error) {
	logger := klog.FromContext(ctx)

	o := opts.Oracle
	if o == nil {
		var err error
		if o, err = NewOracle(cfg.Solver); err != nil {
			return nil, err
		}
	}

	outDir := cfg.Output.Dir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	ecfg := EvaluatorConfigFor(cfg)
	metrics := NewMetrics()
	ecfg.Metrics = metrics
	var store archive.Store
	if cfg.Output.Archive != "" {
		var err error
		if store, err = archive.NewStore(cfg.Output.Archive, cfg.Output.ArchivePath); err != nil {
			return nil, err
		}
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("opening evaluation archive: %w", err)
		}
		defer store.Close()
		ecfg.Archive = store
	}

	evaluator, err := NewEvaluator(ecfg, o)
	if err != nil {
		return nil, err
	}
	problem, err := NewProblem(evaluator, cfg.Design.LowerBounds, cfg.Design.UpperBounds)
	if err != nil {
		return nil, err
	}

	progress := NewProgress(opts.Out, logger, metrics)
	acfg := AlgorithmConfigFor(cfg)
	acfg.DuplicateKey = problem.DuplicateKey
	acfg.Callback = progress.Observe
	algorithm := algorithms.NewNSGAII(acfg)

	logger.Info("Starting optimization",
		"algorithm", algorithm.Name(), "popSize", acfg.PopSize, "generations", acfg.NumGenerations,
		"refDirs", len(acfg.RefDirs), "workers", acfg.Workers, "sweep", ecfg.Sweep, "center", ecfg.Center)
	population, err := algorithm.Run(ctx, problem)
	if err != nil {
		return nil, fmt.Errorf("optimization aborted: %w", err)
	}

	out := &Outcome{
		Report: Report{
			Solutions:   RankSolutions(OptimalSet(population), ptr.Deref(cfg.Optimizer.TopN, DefaultTopN), ecfg.Decimals),
			Generations: progress.History.Len(),
			Evaluations: progress.Evaluations(),
			WgWidth:     ecfg.Fields.WgWidth,
		},
		Population: population,
		History:    progress.History,
		Metrics:    metrics,
	}
	if store != nil {
		if out.Evaluations, err = store.List(ctx); err != nil {
			return nil, fmt.Errorf("reading evaluation archive: %w", err)
		}
	}
	if err := writeArtifacts(out, cfg.Output, opts.Out); err != nil {
		return out, err
	}
	logger.Info("Optimization finished", "evaluations", out.Report.Evaluations, "artifacts", out.Artifacts)
	return out, nil
}

func writeArtifacts(out *Outcome, o v1alpha1.OutputArgs, w io.Writer) error {
	var errs []error
	add := func(name string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("writing %s: %w", name, err))
			return
		}
		out.Artifacts = append(out.Artifacts, name)
	}

	if ptr.Deref(o.HistoryPlot, true) {
		path := filepath.Join(o.Dir, HistoryPlotFile)
		add(path, out.History.SavePNG(path))
	}
	if ptr.Deref(o.ParetoPlot, true) {
		path := filepath.Join(o.Dir, ParetoPlotFile)
		add(path, saveParetoPlot(path, out.Population, out.Report))
	}
	if o.Workbook {
		path := filepath.Join(o.Dir, WorkbookFile)
		add(path, out.Report.SaveWorkbook(path, out.Population, out.Evaluations))
	}
	if o.MetricsFile != "" {
		add(o.MetricsFile, out.Metrics.WriteTextfile(o.MetricsFile))
	}

	path := filepath.Join(o.Dir, ReportFile)
	f, err := os.Create(path)
	if err == nil {
		err = out.Report.WriteText(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	add(path, err)

	if w != nil {
		fmt.Fprintln(w)
		out.Report.WriteTable(w)
		if err := out.Report.WriteText(w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func saveParetoPlot(path string, population []framework.Individual, r Report) error {
	var front, rest []framework.ObjectiveSpacePoint
	for _, ind := range population {
		if !ind.Feasible() {
			continue
		}
		if ind.Rank == 0 {
			front = append(front, ind.Objectives)
		} else {
			rest = append(rest, ind.Objectives)
		}
	}
	best := make([]framework.ObjectiveSpacePoint, len(r.Solutions))
	for i, s := range r.Solutions {
		best[i] = s.Objectives
	}
	return util.SaveParetoScatter(path, util.ScatterOptions{
		Title: "Final population",
		XName: ObjectiveNames[0],
		YName: ObjectiveNames[1],
		X:     0,
		Y:     1,
	},
		util.Series{Name: "First front", Points: front},
		util.Series{Name: "Dominated", Points: rest, Symbol: "rect"},
		util.Series{Name: "Best solutions", Points: best, Symbol: "triangle"},
	)
}
