package geometry

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaultDevice(t *testing.T) {
	d, err := Build(DefaultFields())
	require.NoError(t, err)

	assert.Equal(t, "BDC_OBAND", d.Name)
	assert.Equal(t, PortNames, d.PortNames())
	require.Len(t, d.UpperTaper, DefaultNumPoints)
	require.Len(t, d.LowerTaper, DefaultNumPoints)

	// Control points run from the taper end back to the origin.
	assert.InDelta(t, DefaultTaperLength, d.UpperTaper[0].X, 1e-12)
	assert.InDelta(t, 0, d.UpperTaper[DefaultNumPoints-1].X, 1e-12)
	assert.InDelta(t, 0.38+0.1, d.UpperTaper[0].Y, 1e-12)
	assert.InDelta(t, -0.38-0.1, d.LowerTaper[0].Y, 1e-12)

	in1, ok := d.Port(PortIn1)
	require.True(t, ok)
	want := Port{Name: PortIn1, Position: Point{X: -1, Y: -0.29}, Angle: 180, Width: 0.38}
	if diff := cmp.Diff(want, in1, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("in1 mismatch (-want +got):\n%s", diff)
	}
	out2, ok := d.Port(PortOut2)
	require.True(t, ok)
	assert.InDelta(t, DefaultTaperLength+1, out2.Position.X, 1e-12)
	assert.InDelta(t, 0.29, out2.Position.Y, 1e-12)
	assert.Equal(t, 0.0, out2.Angle)

	_, ok = d.Port("out3")
	assert.False(t, ok)
}

func TestBuildFootprint(t *testing.T) {
	f := DefaultFields()
	f.UpperWidths[5] = 0.76
	d, err := Build(f)
	require.NoError(t, err)

	w, h := d.Core.Size()
	assert.InDelta(t, DefaultTaperLength+2*DefaultWgLength, w, 1e-12)
	assert.InDelta(t, 0.76+0.38+DefaultCouplerSpacing, h, 1e-12)

	cw, ch := d.Cladding.Size()
	assert.InDelta(t, w+2, cw, 1e-12)
	assert.InDelta(t, h+2, ch, 1e-12)
}

func TestBuildDoesNotAlias(t *testing.T) {
	f := DefaultFields()
	d, err := Build(f)
	require.NoError(t, err)
	f.UpperWidths[0] = 99
	assert.NotEqual(t, 99.0, d.Fields.UpperWidths[0])
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Fields){
		"zero spacing":   func(f *Fields) { f.CouplerSpacing = 0 },
		"negative taper": func(f *Fields) { f.TaperLength = -1 },
		"short widths":   func(f *Fields) { f.UpperWidths = f.UpperWidths[:3] },
		"bad width":      func(f *Fields) { f.LowerWidths[2] = 0 },
		"one point":      func(f *Fields) { f.NumPoints = 1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			f := DefaultFields()
			mutate(&f)
			_, err := Build(f)
			assert.Error(t, err)
		})
	}
}

func TestDeviceJSON(t *testing.T) {
	d, err := DefaultBuilder.Build(DefaultFields())
	require.NoError(t, err)
	raw, err := d.MarshalIndent()
	require.NoError(t, err)

	var back Device
	require.NoError(t, json.Unmarshal(raw, &back))
	if diff := cmp.Diff(*d, back); diff != "" {
		t.Errorf("device JSON round trip mismatch (-want +got):\n%s", diff)
	}
}
