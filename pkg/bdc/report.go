package bdc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/xuri/excelize/v2"

	"github.com/siph-lab/bdc-optimizer/pkg/archive"
	"github.com/siph-lab/bdc-optimizer/pkg/multiobjective/framework"
)

// Report is the outcome of a finished run.
type Report struct {
	Solutions   []RankedSolution
	Generations int
	Evaluations int
	// WgWidth is the fixed width at both ends of the upper taper.
	WgWidth float64
}

// UpperWidths returns the complete upper taper of s, including the fixed ends.
func (r Report) UpperWidths(s RankedSolution) []float64 {
	inner := s.Parameters[IndexTaperLength+1 : IndexCouplerSpacing]
	widths := make([]float64, 0, len(inner)+2)
	widths = append(widths, r.WgWidth)
	widths = append(widths, inner...)
	return append(widths, r.WgWidth)
}

func formatWidths(widths []float64) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = fmt.Sprintf("%.3f", w)
	}
	return strings.Join(parts, ", ")
}

// WriteText prints the report one solution after the other.
func (r Report) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintln(&b, "OPTIMIZATION RESULTS")
	fmt.Fprintf(&b, "%s evaluations over %d generations\n", humanize.Comma(int64(r.Evaluations)), r.Generations)
	fmt.Fprintf(&b, "Top %d solutions:\n", len(r.Solutions))
	for _, s := range r.Solutions {
		o := s.Objectives
		fmt.Fprintf(&b, "\nSolution %d: %s\n", s.Rank, s.Key)
		fmt.Fprintf(&b, "Wg length = %.3f um\n", s.Parameters[IndexWgLength])
		fmt.Fprintf(&b, "Taper length = %.3f um\n", s.Parameters[IndexTaperLength])
		fmt.Fprintf(&b, "Taper width = %s um\n", formatWidths(r.UpperWidths(s)))
		fmt.Fprintf(&b, "Coupling spacing = %.3f um\n", s.Parameters[IndexCouplerSpacing])
		fmt.Fprintf(&b, "Max-min bar diff: %.3f\n", o[0])
		fmt.Fprintf(&b, "Max-min cross diff: %.3f\n", o[1])
		fmt.Fprintf(&b, "Trans ratio (difference with 0.5): %.3f\n", o[2])
		fmt.Fprintf(&b, "Trans bar (difference with 0.5): %.3f\n", o[3])
		fmt.Fprintf(&b, "Reflection: %.3f\n", o[4])
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteTable renders the solutions as a table.
func (r Report) WriteTable(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("BEST SOLUTIONS")
	t.SetStyle(table.StyleRounded)

	header := table.Row{"#", "Wg length", "Taper length", "Spacing"}
	for _, name := range ObjectiveNames {
		header = append(header, name)
	}
	t.AppendHeader(header)
	for _, s := range r.Solutions {
		row := table.Row{
			s.Rank,
			fmt.Sprintf("%.3f", s.Parameters[IndexWgLength]),
			fmt.Sprintf("%.3f", s.Parameters[IndexTaperLength]),
			fmt.Sprintf("%.3f", s.Parameters[IndexCouplerSpacing]),
		}
		for _, v := range s.Objectives {
			row = append(row, fmt.Sprintf("%.3f", v))
		}
		t.AppendRow(row)
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
	})
	t.Render()
}

const (
	populationSheet  = "Population"
	bestSheet        = "Best"
	evaluationsSheet = "Evaluations"
)

// SaveWorkbook writes the final population and the ranked solutions to an
// xlsx file at path. A non-empty ledger adds a sheet of archived evaluations.
func (r Report) SaveWorkbook(path string, population []framework.Individual, ledger []archive.Record) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), populationSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(bestSheet); err != nil {
		return err
	}
	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	params := []string{"wg_length", "t_length"}
	for i := 1; i < IndexCouplerSpacing-IndexTaperLength; i++ {
		params = append(params, fmt.Sprintf("t_width_u_%d", i))
	}
	params = append(params, "coupler_spacing")

	popHeader := append([]string{"rank", "constraint"}, params...)
	popHeader = append(popHeader, ObjectiveNames...)
	if err := writeRow(fx, populationSheet, 1, headerStyle, toAny(popHeader)...); err != nil {
		return err
	}
	for i, ind := range population {
		row := []any{ind.Rank, ind.Constraint}
		row = append(row, toAny(ind.Variables)...)
		row = append(row, toAny(ind.Objectives)...)
		if err := writeRow(fx, populationSheet, i+2, 0, row...); err != nil {
			return err
		}
	}

	bestHeader := append([]string{"solution", "key"}, params...)
	bestHeader = append(bestHeader, ObjectiveNames...)
	if err := writeRow(fx, bestSheet, 1, headerStyle, toAny(bestHeader)...); err != nil {
		return err
	}
	for i, s := range r.Solutions {
		row := []any{s.Rank, s.Key}
		row = append(row, toAny(s.Parameters)...)
		row = append(row, toAny(s.Objectives)...)
		if err := writeRow(fx, bestSheet, i+2, 0, row...); err != nil {
			return err
		}
	}

	if len(ledger) > 0 {
		if err := writeLedger(fx, headerStyle, params, ledger); err != nil {
			return err
		}
	}

	return fx.SaveAs(path)
}

func writeLedger(fx *excelize.File, headerStyle int, params []string, ledger []archive.Record) error {
	if _, err := fx.NewSheet(evaluationsSheet); err != nil {
		return err
	}
	header := append([]string{"key", "status", "constraint", "duration_s"}, params...)
	header = append(header, ObjectiveNames...)
	header = append(header, "error")
	if err := writeRow(fx, evaluationsSheet, 1, headerStyle, toAny(header)...); err != nil {
		return err
	}
	for i, rec := range ledger {
		row := []any{rec.Key, rec.Status, rec.Constraint, rec.Duration.Seconds()}
		row = append(row, toAny(rec.Parameters)...)
		row = append(row, toAny(rec.Objectives)...)
		row = append(row, rec.Error)
		if err := writeRow(fx, evaluationsSheet, i+2, 0, row...); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(fx *excelize.File, sheet string, row, style int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := fx.SetSheetRow(sheet, cell, &values); err != nil {
		return err
	}
	if style == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(values), row)
	if err != nil {
		return err
	}
	return fx.SetCellStyle(sheet, cell, last, style)
}

func toAny[T any](xs []T) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}
