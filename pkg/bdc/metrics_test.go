package bdc

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/algorithms"
	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/framework"
	"github.com/siph-lab/bdc-optimizer/pkg/oracle"
)

func TestMetricsObserveEvaluation(t *testing.T) {
	m := NewMetrics()
	m.ObserveEvaluation(Result{Status: StatusOK, Duration: time.Second})
	m.ObserveEvaluation(Result{Status: StatusOK, Memoized: true})
	m.ObserveEvaluation(Result{Status: StatusInfeasible})
	m.ObserveEvaluation(Result{Status: StatusOracleFailed, Duration: time.Millisecond})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.evaluations.WithLabelValues(string(StatusOK))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues(string(StatusInfeasible))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.memoHits))
	assert.EqualValues(t, 2, durationSamples(t, m))

	expected := `
# HELP bdc_evaluations_total Candidate evaluations by outcome
# TYPE bdc_evaluations_total counter
bdc_evaluations_total{status="infeasible"} 1
bdc_evaluations_total{status="ok"} 2
bdc_evaluations_total{status="oracle-failed"} 1
`
	require.NoError(t, testutil.CollectAndCompare(m.evaluations, strings.NewReader(expected)))
}

func durationSamples(t *testing.T, m *Metrics) uint64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "bdc_evaluation_duration_seconds" {
			return f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatal("duration histogram not registered")
	return 0
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveEvaluation(Result{Status: StatusOK})
	m.PersistFailed()
	m.ObserveGeneration(3, []float64{1})
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")))
}

func TestMetricsTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveGeneration(7, []float64{0.1, 0.2, 0.3, 0.4, 0.5})
	assert.Equal(t, 7.0, testutil.ToFloat64(m.generation))
	assert.Equal(t, 0.3, testutil.ToFloat64(m.best.WithLabelValues(ObjectiveNames[2])))

	path := filepath.Join(t.TempDir(), "metrics", "run.prom")
	require.NoError(t, m.WriteTextfile(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "bdc_generation 7")
}

func TestProgressObserve(t *testing.T) {
	var buf bytes.Buffer
	m := NewMetrics()
	p := NewProgress(&buf, logr.Discard(), m)
	pop := []framework.Individual{
		{Objectives: []float64{0.2, 0.1, 0.3, 0.4, 0.5}},
		{Objectives: []float64{0.1, 0.4, 0.3, 0.4, 0.05}},
		{Objectives: []float64{0, 0, 0, 0, 0}, Constraint: 1},
	}
	p.Observe(algorithms.Generation{Index: 1, Evaluations: 3, Population: pop})
	p.Observe(algorithms.Generation{Index: 2, Evaluations: 1500, Population: pop[:1]})

	require.Equal(t, 2, p.History.Len())
	assert.Equal(t, []float64{0.1, 0.1, 0.3, 0.4, 0.05}, p.History.Best[0])
	assert.Equal(t, 1500, p.Evaluations())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.generation))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4, "header, rule and one line per generation")
	assert.Contains(t, lines[0], "f5_min")
	assert.Contains(t, lines[3], "1,500")
}

func TestProblemAdapter(t *testing.T) {
	e := newTestEvaluator(t, testEvaluatorConfig(t), oracle.NewCoupler(0.707, 0.707, 0))
	lower := make([]float64, NumVariables)
	upper := make([]float64, NumVariables)
	for i := range upper {
		lower[i], upper[i] = 0.1, 1
	}
	p, err := NewProblem(e, lower, upper)
	require.NoError(t, err)
	assert.Equal(t, NumObjectives, p.NumObjectives())
	assert.Len(t, p.Bounds(), NumVariables)

	eval, err := p.Evaluate(context.Background(), reference)
	require.NoError(t, err)
	assert.Zero(t, eval.Constraint)
	assert.Len(t, eval.Objectives, NumObjectives)
	assert.Equal(t, referenceKey, p.DuplicateKey(reference))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Evaluate(ctx, reference)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewProblem(e, lower[:3], upper)
	assert.Error(t, err)
	upper[0] = 0
	_, err = NewProblem(e, lower, upper)
	assert.Error(t, err)
}
