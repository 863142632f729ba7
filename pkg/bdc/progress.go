package bdc

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"

	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/algorithms"
	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/util"
)

// Progress follows a run generation by generation: it records the best value
// of every objective, updates the metrics and prints a display line.
type Progress struct {
	History *util.History

	out     io.Writer
	logger  logr.Logger
	metrics *Metrics

	mu          sync.Mutex
	header      bool
	evaluations int
}

// NewProgress returns a progress tracker printing to out. A nil out only logs.
func NewProgress(out io.Writer, logger logr.Logger, metrics *Metrics) *Progress {
	return &Progress{
		History: util.NewHistory(ObjectiveNames...),
		out:     out,
		logger:  logger,
		metrics: metrics,
	}
}

// Observe is an algorithms.Config Callback.
func (p *Progress) Observe(g algorithms.Generation) {
	p.mu.Lock()
	defer p.mu.Unlock()

	best := p.History.Record(g.Index, g.Population)
	p.evaluations = g.Evaluations
	p.metrics.ObserveGeneration(g.Index, best)

	feasible := 0
	for _, ind := range g.Population {
		if ind.Feasible() {
			feasible++
		}
	}
	p.logger.V(2).Info("Generation done", "generation", g.Index, "evaluations", g.Evaluations, "feasible", feasible, "best", best)

	if p.out == nil {
		return
	}
	if !p.header {
		p.header = true
		fmt.Fprintln(p.out, displayHeader())
	}
	fmt.Fprintln(p.out, displayLine(g.Index, g.Evaluations, best))
}

// Evaluations returns the number of evaluations seen so far.
func (p *Progress) Evaluations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evaluations
}

func displayHeader() string {
	cols := []string{fmt.Sprintf("%6s", "n_gen"), fmt.Sprintf("%8s", "n_eval")}
	for i := range ObjectiveNames {
		cols = append(cols, fmt.Sprintf("%12s", fmt.Sprintf("f%d_min", i+1)))
	}
	line := strings.Join(cols, " | ")
	return line + "\n" + strings.Repeat("=", len(line))
}

func displayLine(gen, evaluations int, best []float64) string {
	cols := []string{fmt.Sprintf("%6d", gen), fmt.Sprintf("%8s", humanize.Comma(int64(evaluations)))}
	for _, v := range best {
		cols = append(cols, fmt.Sprintf("%12s", humanize.FtoaWithDigits(v, 6)))
	}
	return strings.Join(cols, " | ")
}
