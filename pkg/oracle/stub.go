package oracle

import (
	"context"

	"github.com/siph-lab/bdc-optimizer/pkg/geometry"
	"github.com/siph-lab/bdc-optimizer/pkg/smatrix"
)

// Term identifies a scattering matrix entry from Src to Dst.
type Term struct {
	Src string
	Dst string
}

// Constant returns the same coefficients at every wavelength for any device.
// Entries not listed are zero.
type Constant struct {
	Terms map[Term]complex128
}

// NewCoupler returns a reciprocal, symmetric 2x2 coupler stub: bar is the
// in1->out1 coefficient, cross in1->out2 and reflection in1->in1.
func NewCoupler(bar, cross, reflection complex128) *Constant {
	terms := map[Term]complex128{}
	set := func(a, b string, v complex128) {
		terms[Term{Src: a, Dst: b}] = v
		terms[Term{Src: b, Dst: a}] = v
	}
	set(geometry.PortIn1, geometry.PortOut1, bar)
	set(geometry.PortIn2, geometry.PortOut2, bar)
	set(geometry.PortIn1, geometry.PortOut2, cross)
	set(geometry.PortIn2, geometry.PortOut1, cross)
	for _, p := range geometry.PortNames {
		terms[Term{Src: p, Dst: p}] = reflection
	}
	return &Constant{Terms: terms}
}

func (c *Constant) Simulate(ctx context.Context, req Request) (*smatrix.SMatrix, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wavelengths := req.Sweep.Values()
	m := smatrix.New(req.Device.PortNames(), wavelengths)
	for term, v := range c.Terms {
		values := make([]complex128, len(wavelengths))
		for i := range values {
			values[i] = v
		}
		if err := m.SetTerm(term.Src, term.Dst, values); err != nil {
			return nil, err
		}
	}
	return m, nil
}
