// Package oracle defines the contract with the electromagnetic solvers that
// turn a device layout into a scattering matrix, together with a few
// implementations: an external-command driver, an on-disk cache decorator and
// deterministic stubs.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/siph-lab/bdc-optimizer/pkg/geometry"
	"github.com/siph-lab/bdc-optimizer/pkg/smatrix"
)

// ErrInvalidRequest is returned for requests that cannot be simulated at all.
var ErrInvalidRequest = errors.New("invalid simulation request")

// Request carries everything a solver needs for one run. Solver session
// settings travel here rather than in process-wide state.
type Request struct {
	Device        *geometry.Device
	ProjectFolder string
	Sweep         smatrix.Sweep

	// MeshAccuracy is the solver mesh refinement level, 0 means solver default.
	MeshAccuracy int
	// Materials maps layout material names to solver material names.
	Materials map[string]string
}

// Validate checks the request before any solver work starts.
func (r Request) Validate() error {
	if r.Device == nil {
		return fmt.Errorf("%w: no device", ErrInvalidRequest)
	}
	if err := r.Sweep.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Oracle simulates a device over a wavelength sweep. Implementations may be
// slow and may fail; callers treat every error as a failure of that device only.
type Oracle interface {
	Simulate(ctx context.Context, req Request) (*smatrix.SMatrix, error)
}

// Func adapts a function to the Oracle interface.
type Func func(ctx context.Context, req Request) (*smatrix.SMatrix, error)

func (fn Func) Simulate(ctx context.Context, req Request) (*smatrix.SMatrix, error) {
	return fn(ctx, req)
}

// DefaultMaterials is the material mapping used by the silicon photonics solvers.
func DefaultMaterials() map[string]string {
	return map[string]string{
		"SILICON":       "Si (Silicon) - Palik",
		"SILICON_OXIDE": "SiO2 (Glass) - Palik",
	}
}
