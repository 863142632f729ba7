// Package geometry turns coupler field values into a device description the
// electromagnetic solvers can consume: taper control points, footprint and
// named optical ports.
package geometry

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

const (
	// DefaultDataTag names the design family in the data directory.
	DefaultDataTag = "bdc_oband"

	DefaultWgLength       = 1.0
	DefaultWgWidth        = 0.38
	DefaultTaperLength    = 4.21
	DefaultCouplerSpacing = 0.2
	DefaultCladdingOffset = 1.0
	DefaultNumPoints      = 11
)

// Port names of a 2x2 coupler.
const (
	PortIn1  = "in1"
	PortIn2  = "in2"
	PortOut1 = "out1"
	PortOut2 = "out2"
)

// PortNames lists the ports in the order used by generated scattering matrices.
var PortNames = []string{PortIn1, PortIn2, PortOut1, PortOut2}

// Fields is the full configuration of one coupler. All lengths are in micrometers.
type Fields struct {
	DataTag        string    `json:"dataTag"`
	WgLength       float64   `json:"wgLength"`
	WgWidth        float64   `json:"wgWidth"`
	TaperLength    float64   `json:"taperLength"`
	UpperWidths    []float64 `json:"upperWidths"`
	LowerWidths    []float64 `json:"lowerWidths"`
	CouplerSpacing float64   `json:"couplerSpacing"`
	CladdingOffset float64   `json:"claddingOffset"`
	NumPoints      int       `json:"numPoints"`
}

// DefaultFields returns the reference O-band coupler.
func DefaultFields() Fields {
	w := DefaultWgWidth
	return Fields{
		DataTag:        DefaultDataTag,
		WgLength:       DefaultWgLength,
		WgWidth:        w,
		TaperLength:    DefaultTaperLength,
		UpperWidths:    []float64{w, w, w + 0.1, w, w, w + 0.1, w + 0.15, w + 0.18, w + 0.15, w + 0.1, w},
		LowerWidths:    uniform(DefaultNumPoints, w),
		CouplerSpacing: DefaultCouplerSpacing,
		CladdingOffset: DefaultCladdingOffset,
		NumPoints:      DefaultNumPoints,
	}
}

func uniform(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Clone returns a deep copy of f.
func (f Fields) Clone() Fields {
	f.UpperWidths = slices.Clone(f.UpperWidths)
	f.LowerWidths = slices.Clone(f.LowerWidths)
	return f
}

// Validate checks that the fields describe a buildable device.
func (f Fields) Validate() error {
	var problems []string
	positive := map[string]float64{
		"wgLength":       f.WgLength,
		"wgWidth":        f.WgWidth,
		"taperLength":    f.TaperLength,
		"couplerSpacing": f.CouplerSpacing,
		"claddingOffset": f.CladdingOffset,
	}
	for _, name := range []string{"wgLength", "wgWidth", "taperLength", "couplerSpacing", "claddingOffset"} {
		if positive[name] <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %g", name, positive[name]))
		}
	}
	if f.NumPoints < 2 {
		problems = append(problems, fmt.Sprintf("numPoints must be at least 2, got %d", f.NumPoints))
	}
	if len(f.UpperWidths) != f.NumPoints {
		problems = append(problems, fmt.Sprintf("upperWidths has %d values, want %d", len(f.UpperWidths), f.NumPoints))
	}
	if len(f.LowerWidths) != f.NumPoints {
		problems = append(problems, fmt.Sprintf("lowerWidths has %d values, want %d", len(f.LowerWidths), f.NumPoints))
	}
	for i, w := range f.UpperWidths {
		if w <= 0 {
			problems = append(problems, fmt.Sprintf("upperWidths[%d] must be positive, got %g", i, w))
		}
	}
	for i, w := range f.LowerWidths {
		if w <= 0 {
			problems = append(problems, fmt.Sprintf("lowerWidths[%d] must be positive, got %g", i, w))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid coupler fields: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Point is a 2D coordinate in micrometers.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Size returns the width and height of r.
func (r Rect) Size() (float64, float64) {
	return r.Max.X - r.Min.X, r.Max.Y - r.Min.Y
}

// Port is a named optical port. Angle is in degrees, 0 pointing to +x.
type Port struct {
	Name     string  `json:"name"`
	Position Point   `json:"position"`
	Angle    float64 `json:"angle"`
	Width    float64 `json:"width"`
}

// Device is the layout of one coupler instance.
type Device struct {
	Name       string  `json:"name"`
	Fields     Fields  `json:"fields"`
	UpperTaper []Point `json:"upperTaper"`
	LowerTaper []Point `json:"lowerTaper"`
	Core       Rect    `json:"core"`
	Cladding   Rect    `json:"cladding"`
	Ports      []Port  `json:"ports"`
}

// Port looks up a port by name.
func (d *Device) Port(name string) (Port, bool) {
	for _, p := range d.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// PortNames returns the device port names in declaration order.
func (d *Device) PortNames() []string {
	names := make([]string, len(d.Ports))
	for i, p := range d.Ports {
		names[i] = p.Name
	}
	return names
}

// MarshalIndent renders the device as indented JSON for external tools.
func (d *Device) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Builder produces a device from its fields.
type Builder interface {
	Build(Fields) (*Device, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(Fields) (*Device, error)

func (fn BuilderFunc) Build(f Fields) (*Device, error) {
	return fn(f)
}

// DefaultBuilder builds the two-waveguide tapered coupler.
var DefaultBuilder Builder = BuilderFunc(Build)

// Build lays out the coupler: entry waveguides on x < 0, the taper section
// on [0, TaperLength] with control points from TaperLength down to 0, and
// exit waveguides beyond TaperLength.
func Build(f Fields) (*Device, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f = f.Clone()
	half := f.CouplerSpacing / 2
	segments := f.NumPoints - 1

	upper := make([]Point, f.NumPoints)
	lower := make([]Point, f.NumPoints)
	maxUpper, maxLower := f.WgWidth, f.WgWidth
	for i := 0; i < f.NumPoints; i++ {
		x := f.TaperLength / float64(segments) * float64(segments-i)
		upper[i] = Point{X: x, Y: f.UpperWidths[i] + half}
		lower[i] = Point{X: x, Y: -f.LowerWidths[i] - half}
		maxUpper = max(maxUpper, f.UpperWidths[i])
		maxLower = max(maxLower, f.LowerWidths[i])
	}

	core := Rect{
		Min: Point{X: -f.WgLength, Y: -maxLower - half},
		Max: Point{X: f.TaperLength + f.WgLength, Y: maxUpper + half},
	}
	cladding := Rect{
		Min: Point{X: core.Min.X - f.CladdingOffset, Y: core.Min.Y - f.CladdingOffset},
		Max: Point{X: core.Max.X + f.CladdingOffset, Y: core.Max.Y + f.CladdingOffset},
	}

	xIn := -f.WgLength
	xOut := f.TaperLength + f.WgLength
	yLow := -f.WgWidth/2 - half
	yHigh := f.WgWidth/2 + half
	ports := []Port{
		{Name: PortIn1, Position: Point{X: xIn, Y: yLow}, Angle: 180, Width: f.WgWidth},
		{Name: PortIn2, Position: Point{X: xIn, Y: yHigh}, Angle: 180, Width: f.WgWidth},
		{Name: PortOut1, Position: Point{X: xOut, Y: yLow}, Angle: 0, Width: f.WgWidth},
		{Name: PortOut2, Position: Point{X: xOut, Y: yHigh}, Angle: 0, Width: f.WgWidth},
	}

	tag := f.DataTag
	if tag == "" {
		tag = DefaultDataTag
	}
	return &Device{
		Name:       strings.ToUpper(tag),
		Fields:     f,
		UpperTaper: upper,
		LowerTaper: lower,
		Core:       core,
		Cladding:   cladding,
		Ports:      ports,
	}, nil
}
