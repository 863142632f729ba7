package util

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/framework"
)

// History keeps the best value of each objective per generation.
type History struct {
	Names       []string
	Generations []int
	// Best is indexed [generation][objective].
	Best [][]float64
}

// NewHistory returns an empty history for the named objectives.
func NewHistory(names ...string) *History {
	return &History{Names: names}
}

// BestObjectives returns the per-objective minimum over the feasible members
// of population, or over all members when none is feasible.
func BestObjectives(population []framework.Individual, nObj int) []float64 {
	best := make([]float64, nObj)
	for m := range best {
		best[m] = math.Inf(1)
	}
	anyFeasible := slices.ContainsFunc(population, framework.Individual.Feasible)
	for _, ind := range population {
		if anyFeasible && !ind.Feasible() {
			continue
		}
		for m := range best {
			best[m] = math.Min(best[m], ind.Objectives[m])
		}
	}
	return best
}

// Record appends the best objectives of population for generation gen.
func (h *History) Record(gen int, population []framework.Individual) []float64 {
	best := BestObjectives(population, len(h.Names))
	h.Generations = append(h.Generations, gen)
	h.Best = append(h.Best, best)
	return best
}

// Len returns the number of recorded generations.
func (h *History) Len() int {
	return len(h.Generations)
}

// Plots returns one line plot per objective, best value against generation.
func (h *History) Plots() ([]*plot.Plot, error) {
	if h.Len() == 0 {
		return nil, errors.New("history is empty")
	}
	plots := make([]*plot.Plot, len(h.Names))
	for m, name := range h.Names {
		p := plot.New()
		p.Title.Text = name
		p.X.Label.Text = "Generation"
		p.Y.Label.Text = "Best"

		pts := make(plotter.XYs, h.Len())
		for i, gen := range h.Generations {
			pts[i].X = float64(gen)
			pts[i].Y = h.Best[i][m]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("objective %s: %w", name, err)
		}
		p.Add(line, plotter.NewGrid())
		plots[m] = p
	}
	return plots, nil
}

// WritePNG draws the objective panels stacked vertically as a PNG image.
func (h *History) WritePNG(w io.Writer) error {
	plots, err := h.Plots()
	if err != nil {
		return err
	}
	rows := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		rows[i] = []*plot.Plot{p}
	}

	img := vgimg.New(8*vg.Inch, vg.Length(len(plots))*2*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
		PadY:      vg.Millimeter * 4,
	}
	canvases := plot.Align(rows, tiles, dc)
	for i := range rows {
		rows[i][0].Draw(canvases[i][0])
	}

	_, err = vgimg.PngCanvas{Canvas: img}.WriteTo(w)
	return err
}

// SavePNG writes the panels to path, creating parent directories.
func (h *History) SavePNG(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := h.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
