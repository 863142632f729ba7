package smatrix

import (
	"errors"
	"fmt"
	"math/cmplx"
	"slices"
)

// ErrUnknownPort is returned when a term references a port the matrix does not have.
var ErrUnknownPort = errors.New("unknown port")

// SMatrix holds the wavelength-indexed scattering coefficients between named
// ports. Term(src, dst) is the coefficient seen at dst when light enters at src.
type SMatrix struct {
	Ports       []string
	Wavelengths []float64

	// data[dst][src][k]
	data [][][]complex128
}

// New creates an all-zero scattering matrix for the given ports and wavelengths.
func New(ports []string, wavelengths []float64) *SMatrix {
	n := len(ports)
	data := make([][][]complex128, n)
	for i := range data {
		data[i] = make([][]complex128, n)
		for j := range data[i] {
			data[i][j] = make([]complex128, len(wavelengths))
		}
	}
	return &SMatrix{
		Ports:       slices.Clone(ports),
		Wavelengths: slices.Clone(wavelengths),
		data:        data,
	}
}

// NumPorts returns the number of ports.
func (m *SMatrix) NumPorts() int {
	return len(m.Ports)
}

func (m *SMatrix) portIndex(name string) (int, error) {
	idx := slices.Index(m.Ports, name)
	if idx < 0 {
		return 0, fmt.Errorf("%w %q", ErrUnknownPort, name)
	}
	return idx, nil
}

// Term returns the coefficients from src to dst over the whole sweep.
// The returned slice is a copy.
func (m *SMatrix) Term(src, dst string) ([]complex128, error) {
	i, err := m.portIndex(dst)
	if err != nil {
		return nil, err
	}
	j, err := m.portIndex(src)
	if err != nil {
		return nil, err
	}
	return slices.Clone(m.data[i][j]), nil
}

// SetTerm replaces the coefficients from src to dst.
func (m *SMatrix) SetTerm(src, dst string, values []complex128) error {
	if len(values) != len(m.Wavelengths) {
		return fmt.Errorf("term %s->%s has %d values, sweep has %d", src, dst, len(values), len(m.Wavelengths))
	}
	i, err := m.portIndex(dst)
	if err != nil {
		return err
	}
	j, err := m.portIndex(src)
	if err != nil {
		return err
	}
	copy(m.data[i][j], values)
	return nil
}

// at addresses the matrix by port indices, Touchstone style (S_ij = data[i][j]).
func (m *SMatrix) at(i, j, k int) complex128 {
	return m.data[i][j][k]
}

func (m *SMatrix) set(i, j, k int, v complex128) {
	m.data[i][j][k] = v
}

// Abs returns the magnitude of each coefficient.
func Abs(values []complex128) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = cmplx.Abs(v)
	}
	return out
}

// SignalPower converts an amplitude magnitude to linear power.
func SignalPower(magnitude float64) float64 {
	return magnitude * magnitude
}
