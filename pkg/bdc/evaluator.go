// Package bdc optimizes the taper profile of a broadband directional coupler:
// it scores candidate geometries through a simulation oracle, drives the
// genetic search and reports the best designs.
package bdc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"gonum.org/v1/gonum/floats"
	"k8s.io/klog/v2"

	"github.com/siph-lab/bdc-optimizer/pkg/archive"
	"github.com/siph-lab/bdc-optimizer/pkg/geometry"
	"github.com/siph-lab/bdc-optimizer/pkg/oracle"
	"github.com/siph-lab/bdc-optimizer/pkg/smatrix"
)

const (
	// NumVariables is the length of a parameter vector: waveguide length,
	// taper length, 9 inner upper-taper widths and coupler spacing.
	NumVariables = 12
	// NumObjectives is the length of an objective vector.
	NumObjectives = 5

	// SentinelObjective marks an objective that could not be computed.
	SentinelObjective = 1e10

	DefaultMinFeature = 0.18
	DefaultDecimals   = 3

	keyPrefix = "lum_"
)

// Indices into the parameter vector.
const (
	IndexWgLength       = 0
	IndexTaperLength    = 1
	IndexCouplerSpacing = 11
)

// ObjectiveNames labels the objectives in their fixed order.
var ObjectiveNames = []string{
	"bar flatness",
	"cross flatness",
	"power ratio imbalance",
	"bar deviation",
	"reflection",
}

// Status classifies the outcome of one evaluation.
type Status string

const (
	StatusOK           Status = "ok"
	StatusInfeasible   Status = "infeasible"
	StatusBuildFailed  Status = "build-failed"
	StatusOracleFailed Status = "oracle-failed"
)

// Result is the outcome of scoring one candidate. Failures are values, not
// errors: a failed candidate carries sentinel objectives and its cause in Err.
type Result struct {
	Parameters []float64
	Objectives []float64
	// Constraint is > 0 for infeasible candidates, 0 otherwise.
	Constraint float64
	Status     Status
	Err        error
	Key        string
	Duration   time.Duration
	// Memoized is set when the result was reused from an identical earlier candidate.
	Memoized bool
}

// OK reports whether the objectives were computed from a simulation.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Diagnostics are the intermediate quantities behind the objectives.
type Diagnostics struct {
	TransBar      float64
	TransCross    float64
	Reflection    float64
	BarFlatness   float64
	CrossFlatness float64
}

// EvaluatorConfig is the run-level configuration shared by every evaluation.
type EvaluatorConfig struct {
	Sweep  smatrix.Sweep
	Center float64

	DataRoot string
	DataTag  string

	// MinFeature is the floor for waveguide length, taper length and coupler spacing.
	MinFeature float64
	Decimals   int

	// Fields holds the values of every field that is not varied.
	Fields  geometry.Fields
	Builder geometry.Builder

	MeshAccuracy int
	Materials    map[string]string

	Memoize bool
	Archive archive.Store
	Metrics *Metrics
}

// DefaultEvaluatorConfig returns the reference O-band configuration.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		Sweep:      smatrix.Sweep{Start: 1.25, Stop: 1.35, Count: 101},
		Center:     1.31,
		DataRoot:   "data",
		DataTag:    geometry.DefaultDataTag,
		MinFeature: DefaultMinFeature,
		Decimals:   DefaultDecimals,
		Fields:     geometry.DefaultFields(),
		Builder:    geometry.DefaultBuilder,
		Memoize:    true,
		Materials:  oracle.DefaultMaterials(),
	}
}

// Evaluator turns parameter vectors into objective vectors.
type Evaluator struct {
	cfg         EvaluatorConfig
	oracle      oracle.Oracle
	centerIndex int
	memo        *cache.Cache
}

// NewEvaluator validates cfg and returns an evaluator backed by o.
func NewEvaluator(cfg EvaluatorConfig, o oracle.Oracle) (*Evaluator, error) {
	if o == nil {
		return nil, errors.New("no simulation oracle")
	}
	if err := cfg.Sweep.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Sweep.Contains(cfg.Center) {
		return nil, fmt.Errorf("center wavelength %g outside sweep %s", cfg.Center, cfg.Sweep)
	}
	if cfg.Decimals < 0 {
		return nil, fmt.Errorf("decimals must not be negative, got %d", cfg.Decimals)
	}
	if cfg.Builder == nil {
		cfg.Builder = geometry.DefaultBuilder
	}
	if cfg.DataTag == "" {
		cfg.DataTag = cfg.Fields.DataTag
	}
	e := &Evaluator{
		cfg:         cfg,
		oracle:      o,
		centerIndex: cfg.Sweep.CenterIndex(cfg.Center),
	}
	if cfg.Memoize {
		e.memo = cache.New(cache.NoExpiration, 0)
	}
	return e, nil
}

// CenterIndex is the sweep index at which powers and reflection are read.
func (e *Evaluator) CenterIndex() int {
	return e.centerIndex
}

// ProjectFolder returns the directory holding the artifacts of key.
func (e *Evaluator) ProjectFolder(key string) string {
	return filepath.Join(e.cfg.DataRoot, e.cfg.DataTag, key)
}

// RoundVector rounds every component to the given number of decimals.
func RoundVector(x []float64, decimals int) []float64 {
	scale := math.Pow(10, float64(decimals))
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Round(v*scale) / scale
	}
	return out
}

// CandidateKey names the persisted artifacts of a rounded parameter vector.
func CandidateKey(rounded []float64) string {
	parts := make([]string, len(rounded))
	for i, v := range rounded {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return keyPrefix + strings.Join(parts, "_")
}

// Feasible checks the hard floor on waveguide length, taper length and
// coupler spacing. Values equal to the floor are feasible.
func Feasible(rounded []float64, floor float64) bool {
	return !(rounded[IndexWgLength] < floor || rounded[IndexTaperLength] < floor || rounded[IndexCouplerSpacing] < floor)
}

// SentinelObjectives returns the worst-case objective vector.
func SentinelObjectives() []float64 {
	out := make([]float64, NumObjectives)
	for i := range out {
		out[i] = SentinelObjective
	}
	return out
}

// FieldsFor maps a rounded parameter vector onto the device fields. The
// upper taper ends and the whole lower taper keep the fixed waveguide width.
func (e *Evaluator) FieldsFor(rounded []float64) geometry.Fields {
	f := e.cfg.Fields.Clone()
	f.DataTag = e.cfg.DataTag
	f.WgLength = rounded[IndexWgLength]
	f.TaperLength = rounded[IndexTaperLength]
	f.CouplerSpacing = rounded[IndexCouplerSpacing]

	inner := rounded[IndexTaperLength+1 : IndexCouplerSpacing]
	f.UpperWidths = make([]float64, 0, len(inner)+2)
	f.UpperWidths = append(f.UpperWidths, f.WgWidth)
	f.UpperWidths = append(f.UpperWidths, inner...)
	f.UpperWidths = append(f.UpperWidths, f.WgWidth)
	f.LowerWidths = make([]float64, len(f.UpperWidths))
	for i := range f.LowerWidths {
		f.LowerWidths[i] = f.WgWidth
	}
	f.NumPoints = len(f.UpperWidths)
	return f
}

// Evaluate scores one candidate. It never fails: infeasible candidates and
// failed simulations yield sentinel objectives and a Status describing why.
func (e *Evaluator) Evaluate(ctx context.Context, x []float64) Result {
	start := time.Now()
	res := e.evaluate(ctx, x)
	res.Duration = time.Since(start)
	e.cfg.Metrics.ObserveEvaluation(res)
	e.record(ctx, res)
	return res
}

func (e *Evaluator) evaluate(ctx context.Context, x []float64) Result {
	logger := klog.FromContext(ctx)
	if len(x) != NumVariables {
		return Result{
			Parameters: slices.Clone(x),
			Objectives: SentinelObjectives(),
			Constraint: 1,
			Status:     StatusInfeasible,
			Err:        fmt.Errorf("parameter vector has %d entries, want %d", len(x), NumVariables),
		}
	}

	rounded := RoundVector(x, e.cfg.Decimals)
	key := CandidateKey(rounded)
	logger = logger.WithValues("candidate", key)
	res := Result{
		Parameters: rounded,
		Objectives: SentinelObjectives(),
		Key:        key,
	}

	if !Feasible(rounded, e.cfg.MinFeature) {
		logger.V(4).Info("Candidate below minimum feature size", "floor", e.cfg.MinFeature)
		res.Constraint = 1
		res.Status = StatusInfeasible
		return res
	}

	if e.memo != nil {
		if cached, ok := e.memo.Get(key); ok {
			hit := cached.(Result)
			hit.Parameters = rounded
			hit.Objectives = slices.Clone(hit.Objectives)
			hit.Memoized = true
			logger.V(4).Info("Reusing earlier evaluation")
			return hit
		}
	}

	device, err := e.cfg.Builder.Build(e.FieldsFor(rounded))
	if err != nil {
		logger.Error(err, "Building device failed")
		res.Status = StatusBuildFailed
		res.Err = err
		return res
	}

	project := e.ProjectFolder(key)
	logger.V(4).Info("Evaluating candidate", "parameters", rounded, "project", project)
	m, err := e.oracle.Simulate(ctx, oracle.Request{
		Device:        device,
		ProjectFolder: project,
		Sweep:         e.cfg.Sweep,
		MeshAccuracy:  e.cfg.MeshAccuracy,
		Materials:     e.cfg.Materials,
	})
	if err == nil {
		var diag Diagnostics
		res.Objectives, diag, err = ComputeObjectives(m, e.centerIndex)
		if err == nil {
			logger.V(4).Info("Candidate evaluated",
				"transBar", diag.TransBar, "transCross", diag.TransCross, "reflection", diag.Reflection,
				"barFlatness", diag.BarFlatness, "crossFlatness", diag.CrossFlatness)
		}
	}
	if err != nil {
		if ctx.Err() == nil {
			logger.Error(err, "Error in simulation")
		}
		res.Objectives = SentinelObjectives()
		res.Status = StatusOracleFailed
		res.Err = err
		return res
	}
	res.Status = StatusOK

	path := filepath.Join(project, smatrix.FileName(m.NumPorts()))
	if err := smatrix.WriteTouchstoneFile(path, m); err != nil {
		logger.Error(err, "Persisting scattering matrix failed", "path", path)
		e.cfg.Metrics.PersistFailed()
	}

	if e.memo != nil {
		e.memo.SetDefault(key, res)
	}
	return res
}

// ComputeObjectives derives the five objectives from a simulated matrix,
// reading powers and reflection at sweep index center.
func ComputeObjectives(m *smatrix.SMatrix, center int) ([]float64, Diagnostics, error) {
	bar, err := m.Term(geometry.PortIn1, geometry.PortOut1)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	cross, err := m.Term(geometry.PortIn1, geometry.PortOut2)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	refl, err := m.Term(geometry.PortIn1, geometry.PortIn1)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	if len(bar) == 0 {
		return nil, Diagnostics{}, errors.New("scattering matrix has no wavelengths")
	}
	center = min(max(center, 0), len(bar)-1)

	barMag, crossMag := smatrix.Abs(bar), smatrix.Abs(cross)
	d := Diagnostics{
		TransBar:      smatrix.SignalPower(barMag[center]),
		TransCross:    smatrix.SignalPower(crossMag[center]),
		Reflection:    smatrix.SignalPower(smatrix.Abs(refl)[center]),
		BarFlatness:   floats.Max(barMag) - floats.Min(barMag),
		CrossFlatness: floats.Max(crossMag) - floats.Min(crossMag),
	}

	ratio := 0.0
	if total := d.TransBar + d.TransCross; total > 0 {
		ratio = math.Abs(d.TransBar/total - 0.5)
	}
	return []float64{
		d.BarFlatness,
		d.CrossFlatness,
		ratio,
		math.Abs(d.TransBar - 0.5),
		d.Reflection,
	}, d, nil
}

func (e *Evaluator) record(ctx context.Context, res Result) {
	if e.cfg.Archive == nil || res.Key == "" {
		return
	}
	rec := archive.Record{
		Key:        res.Key,
		Parameters: res.Parameters,
		Objectives: res.Objectives,
		Constraint: res.Constraint,
		Status:     string(res.Status),
		Duration:   res.Duration,
		CreatedAt:  time.Now(),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if err := e.cfg.Archive.Put(ctx, rec); err != nil {
		klog.FromContext(ctx).Error(err, "Archiving evaluation failed", "candidate", res.Key)
	}
}
