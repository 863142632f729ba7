package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/framework"
)

// Series is one named set of points in a scatter plot.
type Series struct {
	Name   string
	Points []framework.ObjectiveSpacePoint
	// Symbol is an echarts symbol name, "circle" if empty.
	Symbol string
}

// ScatterOptions describes a 2D objective-space scatter plot.
type ScatterOptions struct {
	Title string
	XName string
	YName string
	// X and Y select the plotted objectives.
	X, Y int
}

// NewParetoScatter builds a scatter chart of the selected objectives of every series.
func NewParetoScatter(o ScatterOptions, series ...Series) (*charts.Scatter, error) {
	for _, s := range series {
		for _, p := range s.Points {
			if o.X >= len(p) || o.Y >= len(p) {
				return nil, fmt.Errorf("series %q: point has %d objectives, cannot plot %d vs %d", s.Name, len(p), o.X+1, o.Y+1)
			}
		}
	}

	// Create scatter chart
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: o.Title,
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: o.XName,
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: o.YName,
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}))

	for _, s := range series {
		symbol := s.Symbol
		if symbol == "" {
			symbol = "circle"
		}
		data := make([]opts.ScatterData, len(s.Points))
		for i, p := range s.Points {
			data[i] = opts.ScatterData{
				Value:      []float64{p[o.X], p[o.Y]},
				Symbol:     symbol,
				SymbolSize: 10,
			}
		}
		scatter.AddSeries(s.Name, data)
	}
	scatter.SetSeriesOptions(
		charts.WithLabelOpts(opts.Label{
			Show: opts.Bool(false),
		}),
		charts.WithEmphasisOpts(opts.Emphasis{}),
	)
	return scatter, nil
}

// RenderParetoScatter writes the chart as a standalone HTML page.
func RenderParetoScatter(w io.Writer, o ScatterOptions, series ...Series) error {
	scatter, err := NewParetoScatter(o, series...)
	if err != nil {
		return err
	}
	return scatter.Render(w)
}

// SaveParetoScatter renders the chart to path, creating parent directories.
func SaveParetoScatter(path string, o ScatterOptions, series ...Series) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderParetoScatter(f, o, series...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// PlotResults creates a scatter plot in dir comparing the true Pareto front of
// the given problem with the solutions found by the algorithm.
func PlotResults(dir string, results []framework.ObjectiveSpacePoint, problem interface {
	framework.Problem
	framework.ParetoFronter
}, algorithmName string) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("results are empty for %s Benchmark", problem.Name())
	}

	if len(results[0]) != 2 {
		return "", fmt.Errorf("can only plot 2D for %s Benchmark", problem.Name())
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s_results.html", problem.Name(), algorithmName))
	err := SaveParetoScatter(path, ScatterOptions{
		Title: fmt.Sprintf("%s Results for %s Benchmark", algorithmName, problem.Name()),
		XName: "f1(x)",
		YName: "f2(x)",
		X:     0,
		Y:     1,
	},
		Series{Name: "True Pareto Front", Points: problem.TrueParetoFront(100)},
		Series{Name: fmt.Sprintf("%s Solutions", algorithmName), Points: results, Symbol: "triangle"},
	)
	return path, err
}
