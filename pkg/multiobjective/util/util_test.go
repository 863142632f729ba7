package util

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/benchmarks"
	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/framework"
)

func TestRenderParetoScatter(t *testing.T) {
	var buf bytes.Buffer
	err := RenderParetoScatter(&buf, ScatterOptions{Title: "Pareto front", XName: "obj1", YName: "obj2", X: 0, Y: 1},
		Series{Name: "population", Points: []framework.ObjectiveSpacePoint{{0.1, 0.2, 9}, {0.3, 0.1, 9}}},
	)
	require.NoError(t, err)
	html := buf.String()
	assert.Contains(t, html, "Pareto front")
	assert.Contains(t, html, "population")

	err = RenderParetoScatter(&buf, ScatterOptions{X: 0, Y: 3},
		Series{Name: "short", Points: []framework.ObjectiveSpacePoint{{1, 2}}})
	assert.Error(t, err)
}

func TestPlotResults(t *testing.T) {
	dir := t.TempDir()
	zdt1 := benchmarks.NewZDT1(3)
	path, err := PlotResults(dir, []framework.ObjectiveSpacePoint{{0.5, 0.4}}, zdt1, "NSGA-II")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ZDT1_NSGA-II_results.html"), path)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "True Pareto Front"))

	_, err = PlotResults(dir, nil, zdt1, "NSGA-II")
	assert.Error(t, err)
	_, err = PlotResults(dir, []framework.ObjectiveSpacePoint{{1, 2, 3}}, zdt1, "NSGA-II")
	assert.Error(t, err)
}

func TestBestObjectives(t *testing.T) {
	pop := []framework.Individual{
		{Objectives: []float64{3, 1}},
		{Objectives: []float64{1, 4}},
		{Objectives: []float64{0, 0}, Constraint: 1},
	}
	assert.Equal(t, []float64{1, 1}, BestObjectives(pop, 2))
	assert.Equal(t, []float64{0, 0}, BestObjectives(pop[2:], 2), "infeasible members count when nothing is feasible")
}

func TestHistoryPNG(t *testing.T) {
	h := NewHistory("a", "b", "c")
	_, err := h.Plots()
	assert.Error(t, err)

	for gen := 1; gen <= 4; gen++ {
		pop := []framework.Individual{{Objectives: []float64{1 / float64(gen), 2, float64(gen)}}}
		h.Record(gen, pop)
	}
	require.Equal(t, 4, h.Len())
	assert.Equal(t, []float64{0.25, 2, 4}, h.Best[3])

	path := filepath.Join(t.TempDir(), "out", "objective_history.png")
	require.NoError(t, h.SavePNG(path))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
	assert.Positive(t, img.Bounds().Dy())
}
