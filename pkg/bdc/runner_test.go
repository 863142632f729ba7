package bdc

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"k8s.io/utils/ptr"

	"github.com/siph-lab/bdc-optimizer/apis/config/v1alpha1"
	"github.com/siph-lab/bdc-optimizer/pkg/archive"
	"github.com/siph-lab/bdc-optimizer/pkg/geometry"
	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/algorithms"
	"github.com/siph-lab/bdc-optimizer/pkg/oracle"
	"github.com/siph-lab/bdc-optimizer/pkg/smatrix"
)

// coupledModeOracle is a lossless coupled-mode approximation whose coupling
// grows with taper length and shrinks with spacing.
func coupledModeOracle(_ context.Context, req oracle.Request) (*smatrix.SMatrix, error) {
	f := req.Device.Fields
	wl := req.Sweep.Values()
	m := smatrix.New(req.Device.PortNames(), wl)
	bar := make([]complex128, len(wl))
	cross := make([]complex128, len(wl))
	refl := make([]complex128, len(wl))
	mean := 0.0
	for _, w := range f.UpperWidths {
		mean += w
	}
	mean /= float64(len(f.UpperWidths))
	for i, w := range wl {
		kappa := 0.4 * math.Exp(-(f.CouplerSpacing-0.18)*4) * (1 + 3*(w-1.31)*(mean-0.38))
		theta := kappa * (f.TaperLength + f.WgLength)
		r := 0.02 * f.CouplerSpacing
		amp := math.Sqrt(1 - r*r)
		bar[i] = complex(amp*math.Cos(theta), 0)
		cross[i] = cmplx.Rect(amp*math.Abs(math.Sin(theta)), math.Pi/2)
		refl[i] = complex(r, 0)
	}
	for _, term := range []struct {
		dst    string
		values []complex128
	}{
		{geometry.PortOut1, bar},
		{geometry.PortOut2, cross},
		{geometry.PortIn1, refl},
	} {
		if err := m.SetTerm(geometry.PortIn1, term.dst, term.values); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func testRunConfig(t *testing.T, mutate func(*v1alpha1.OptimizationConfig)) *v1alpha1.OptimizationConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := &v1alpha1.OptimizationConfig{}
	cfg.Design.DataRoot = filepath.Join(dir, "data")
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Optimizer.PopSize = ptr.To(20)
	cfg.Optimizer.NumGenerations = ptr.To(5)
	cfg.Solver.DryRun = true
	if mutate != nil {
		mutate(cfg)
	}
	v1alpha1.SetDefaults_OptimizationConfig(cfg)
	require.Empty(t, v1alpha1.ValidateOptimizationConfig(cfg))
	return cfg
}

func TestRunDryRun(t *testing.T) {
	cfg := testRunConfig(t, func(c *v1alpha1.OptimizationConfig) {
		c.Output.Workbook = true
		c.Output.Archive = "sqlite"
		c.Output.MetricsFile = filepath.Join(c.Output.Dir, "metrics.prom")
	})
	var out bytes.Buffer
	res, err := Run(context.Background(), cfg, RunOptions{Out: &out})
	require.NoError(t, err)

	assert.Len(t, res.Population, 20)
	assert.Equal(t, 5, res.Report.Generations)
	assert.Len(t, res.Report.Solutions, 10)
	for _, s := range res.Report.Solutions {
		for m, v := range s.Objectives {
			assert.InDelta(t, 0, v, 1e-3, ObjectiveNames[m])
		}
	}

	for _, name := range []string{HistoryPlotFile, ParetoPlotFile, WorkbookFile, ReportFile, "metrics.prom", "evaluations.db"} {
		_, err := os.Stat(filepath.Join(cfg.Output.Dir, name))
		assert.NoError(t, err, name)
	}
	assert.Len(t, res.Artifacts, 5)
	assert.Contains(t, out.String(), "OPTIMIZATION RESULTS")
	assert.Contains(t, out.String(), "n_gen")

	// Every distinct candidate was persisted by the evaluator.
	store := archive.NewSQLiteStore(cfg.Output.ArchivePath)
	require.NoError(t, store.Init(context.Background()))
	defer store.Close()
	records, err := store.List(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, records)
	for _, rec := range records {
		if rec.Status != string(StatusOK) {
			continue
		}
		_, err := os.Stat(filepath.Join(cfg.Design.DataRoot, cfg.Design.DataTag, rec.Key, "smatrix.s4p"))
		assert.NoError(t, err, rec.Key)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	run := func() []RankedSolution {
		cfg := testRunConfig(t, func(c *v1alpha1.OptimizationConfig) {
			c.Output.HistoryPlot = ptr.To(false)
			c.Output.ParetoPlot = ptr.To(false)
		})
		res, err := Run(context.Background(), cfg, RunOptions{Oracle: oracle.Func(coupledModeOracle)})
		require.NoError(t, err)
		return res.Report.Solutions
	}
	first, second := run(), run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("runs with the same seed differ (-first +second):\n%s", diff)
	}
}

func TestRunWithInfeasibleRegion(t *testing.T) {
	cfg := testRunConfig(t, func(c *v1alpha1.OptimizationConfig) {
		lower := slices.Clone(v1alpha1.DefaultLowerBounds)
		lower[IndexCouplerSpacing] = 0.1
		c.Design.LowerBounds = lower
		c.Optimizer.RefDirPartitions = ptr.To(0)
		c.Output.HistoryPlot = ptr.To(false)
	})
	res, err := Run(context.Background(), cfg, RunOptions{Oracle: oracle.Func(coupledModeOracle)})
	require.NoError(t, err)
	// Below-floor candidates never outrank feasible ones in the report.
	assert.Equal(t, 0.0, res.Report.Solutions[0].Constraint)
}

func TestRunSurvivesOracleFailures(t *testing.T) {
	var calls atomic.Int32
	everyThird := oracle.Func(func(ctx context.Context, req oracle.Request) (*smatrix.SMatrix, error) {
		if calls.Add(1)%3 == 0 {
			return nil, errors.New("solver crashed")
		}
		return coupledModeOracle(ctx, req)
	})
	always := oracle.Func(func(context.Context, oracle.Request) (*smatrix.SMatrix, error) {
		return nil, errors.New("license server unreachable")
	})

	for name, tc := range map[string]struct {
		oracle       oracle.Oracle
		allSentinels bool
	}{
		"every third call fails": {oracle: everyThird},
		"every call fails":       {oracle: always, allSentinels: true},
	} {
		t.Run(name, func(t *testing.T) {
			cfg := testRunConfig(t, func(c *v1alpha1.OptimizationConfig) {
				c.Output.HistoryPlot = ptr.To(false)
				c.Output.ParetoPlot = ptr.To(false)
			})
			res, err := Run(context.Background(), cfg, RunOptions{Oracle: tc.oracle})
			require.NoError(t, err)
			assert.Len(t, res.Population, 20)
			require.NotEmpty(t, res.Report.Solutions)

			if tc.allSentinels {
				for _, s := range res.Report.Solutions {
					assert.Equal(t, SentinelObjectives(), s.Objectives, s.Key)
				}
				return
			}
			assert.NotEqual(t, SentinelObjectives(), res.Report.Solutions[0].Objectives)
		})
	}
	assert.Positive(t, calls.Load())
}

func TestRunExportsMemoryArchive(t *testing.T) {
	cfg := testRunConfig(t, func(c *v1alpha1.OptimizationConfig) {
		c.Output.Archive = "memory"
		c.Output.Workbook = true
		c.Output.HistoryPlot = ptr.To(false)
		c.Output.ParetoPlot = ptr.To(false)
	})
	res, err := Run(context.Background(), cfg, RunOptions{Oracle: oracle.Func(coupledModeOracle)})
	require.NoError(t, err)
	require.NotEmpty(t, res.Evaluations)

	keys := make(map[string]bool, len(res.Evaluations))
	for _, rec := range res.Evaluations {
		keys[rec.Key] = true
	}
	for _, s := range res.Report.Solutions {
		assert.True(t, keys[s.Key], "reported solution %s missing from the archive", s.Key)
	}

	fx, err := excelize.OpenFile(filepath.Join(cfg.Output.Dir, WorkbookFile))
	require.NoError(t, err)
	defer fx.Close()
	rows, err := fx.GetRows(evaluationsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, len(res.Evaluations)+1)
}

func TestRunWithoutArchive(t *testing.T) {
	cfg := testRunConfig(t, func(c *v1alpha1.OptimizationConfig) {
		c.Output.HistoryPlot = ptr.To(false)
		c.Output.ParetoPlot = ptr.To(false)
	})
	res, err := Run(context.Background(), cfg, RunOptions{Oracle: oracle.Func(coupledModeOracle)})
	require.NoError(t, err)
	assert.Empty(t, res.Evaluations)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, testRunConfig(t, nil), RunOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewOracle(t *testing.T) {
	_, err := NewOracle(v1alpha1.SolverArgs{})
	assert.Error(t, err)

	o, err := NewOracle(v1alpha1.SolverArgs{DryRun: true})
	require.NoError(t, err)
	assert.IsType(t, &oracle.Constant{}, o)

	o, err = NewOracle(v1alpha1.SolverArgs{Command: "solver", ReusePersisted: true})
	require.NoError(t, err)
	require.IsType(t, &oracle.Cached{}, o)
	assert.IsType(t, &oracle.Exec{}, o.(*oracle.Cached).Next)
}

func TestAlgorithmConfigFor(t *testing.T) {
	cfg := testRunConfig(t, nil)
	acfg := AlgorithmConfigFor(cfg)
	assert.Equal(t, 20, acfg.PopSize)
	assert.Equal(t, 20, acfg.NumOffspring)
	assert.Equal(t, 5, acfg.NumGenerations)
	assert.Zero(t, acfg.MutationProb)
	assert.Len(t, acfg.RefDirs, 210)
	assert.True(t, acfg.EliminateDuplicates)
}

func TestAlgorithmConfigKeepsZeroCrossover(t *testing.T) {
	cfg := testRunConfig(t, func(c *v1alpha1.OptimizationConfig) {
		c.Optimizer.CrossoverProb = ptr.To(0.0)
	})
	assert.Zero(t, algorithms.NewNSGAII(AlgorithmConfigFor(cfg)).Config().CrossoverProb)

	cfg = testRunConfig(t, nil)
	assert.Equal(t, v1alpha1.DefaultCrossoverProb, algorithms.NewNSGAII(AlgorithmConfigFor(cfg)).Config().CrossoverProb)
}
