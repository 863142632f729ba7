package smatrix

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Sweep is a uniform sampling of wavelengths, given in micrometers.
type Sweep struct {
	Start float64 `json:"start"`
	Stop  float64 `json:"stop"`
	Count int     `json:"count"`
}

// Validate reports whether the sweep describes at least one wavelength in
// ascending order.
func (s Sweep) Validate() error {
	if s.Count < 1 {
		return fmt.Errorf("sweep count must be positive, got %d", s.Count)
	}
	if s.Start <= 0 || s.Stop <= 0 {
		return fmt.Errorf("sweep bounds must be positive, got [%g, %g]", s.Start, s.Stop)
	}
	if s.Count > 1 && s.Stop <= s.Start {
		return fmt.Errorf("sweep stop %g must be greater than start %g", s.Stop, s.Start)
	}
	return nil
}

// Values returns the sampled wavelengths, endpoints included.
func (s Sweep) Values() []float64 {
	if s.Count <= 0 {
		return nil
	}
	if s.Count == 1 {
		return []float64{s.Start}
	}
	return floats.Span(make([]float64, s.Count), s.Start, s.Stop)
}

// Contains reports whether w lies within the closed sweep interval.
func (s Sweep) Contains(w float64) bool {
	return w >= s.Start && w <= s.Stop
}

// CenterIndex returns the insertion point of center in the sampled
// wavelengths, clamped to a valid index.
func (s Sweep) CenterIndex(center float64) int {
	values := s.Values()
	if len(values) == 0 {
		return 0
	}
	idx := sort.SearchFloat64s(values, center)
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return idx
}

func (s Sweep) String() string {
	return fmt.Sprintf("(%g, %g, %d)", s.Start, s.Stop, s.Count)
}
