// Package transfer maps scalar data values to colour and opacity.
package transfer

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// DefaultEntryCount is the lookup table size of a new MapperFunction
const DefaultEntryCount = 256

// Function is a transfer function that can be tabulated for the GPU
type Function interface {
	// EntryCount is the configured lookup table size
	EntryCount() int

	// ValueRange is the data range mapped onto the table
	ValueRange() (min, max float64)

	// BuildLookupTable tabulates n entries as flat RGBA quadruples
	BuildLookupTable(n int) []float32
}

// ColorPoint anchors a colour at a normalized position in [0, 1]
type ColorPoint struct {
	Position float64
	R, G, B  float64
}

// OpacityPoint anchors an opacity at a normalized position in [0, 1]
type OpacityPoint struct {
	Position float64
	Alpha    float64
}

// MapperFunction is a piecewise-linear colour and opacity ramp over a value range
type MapperFunction struct {
	entries      int
	min, max     float64
	colors       []ColorPoint
	opacity      []OpacityPoint
	opacityScale float64
}

// NewMapperFunction returns a grayscale, fully opaque ramp over [min, max]
func NewMapperFunction(min, max float64) *MapperFunction {
	return &MapperFunction{
		entries: DefaultEntryCount,
		min:     min,
		max:     max,
		colors: []ColorPoint{
			{Position: 0, R: 0, G: 0, B: 0},
			{Position: 1, R: 1, G: 1, B: 1},
		},
		opacity:      []OpacityPoint{{Position: 0, Alpha: 1}, {Position: 1, Alpha: 1}},
		opacityScale: 1,
	}
}

// EntryCount implements Function
func (m *MapperFunction) EntryCount() int { return m.entries }

// ValueRange implements Function
func (m *MapperFunction) ValueRange() (min, max float64) { return m.min, m.max }

// SetEntryCount changes the lookup table size
func (m *MapperFunction) SetEntryCount(n int) { m.entries = n }

// SetRange changes the mapped data range
func (m *MapperFunction) SetRange(min, max float64) {
	m.min, m.max = min, max
}

// SetOpacityScale multiplies every tabulated alpha
func (m *MapperFunction) SetOpacityScale(s float64) { m.opacityScale = s }

// SetColorPoints replaces the colour control points
func (m *MapperFunction) SetColorPoints(points ...ColorPoint) error {
	if len(points) == 0 {
		return fmt.Errorf("at least one colour point is required")
	}
	pts := append([]ColorPoint(nil), points...)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Position < pts[j].Position })
	for i := 1; i < len(pts); i++ {
		if pts[i].Position == pts[i-1].Position {
			return fmt.Errorf("duplicate colour point at %g", pts[i].Position)
		}
	}
	m.colors = pts
	return nil
}

// SetOpacityPoints replaces the opacity control points
func (m *MapperFunction) SetOpacityPoints(points ...OpacityPoint) error {
	if len(points) == 0 {
		return fmt.Errorf("at least one opacity point is required")
	}
	pts := append([]OpacityPoint(nil), points...)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Position < pts[j].Position })
	for i := 1; i < len(pts); i++ {
		if pts[i].Position == pts[i-1].Position {
			return fmt.Errorf("duplicate opacity point at %g", pts[i].Position)
		}
	}
	m.opacity = pts
	return nil
}

// Clone returns an independent copy
func (m *MapperFunction) Clone() *MapperFunction {
	cp := *m
	cp.colors = append([]ColorPoint(nil), m.colors...)
	cp.opacity = append([]OpacityPoint(nil), m.opacity...)
	return &cp
}

// BuildLookupTable implements Function. Entry i samples the ramp at i/(n-1).
func (m *MapperFunction) BuildLookupTable(n int) []float32 {
	if n <= 0 {
		return nil
	}

	xs := make([]float64, len(m.colors))
	rs := make([]float64, len(m.colors))
	gs := make([]float64, len(m.colors))
	bs := make([]float64, len(m.colors))
	for i, c := range m.colors {
		xs[i], rs[i], gs[i], bs[i] = c.Position, c.R, c.G, c.B
	}
	red, green, blue := curve(xs, rs), curve(xs, gs), curve(xs, bs)

	axs := make([]float64, len(m.opacity))
	as := make([]float64, len(m.opacity))
	for i, o := range m.opacity {
		axs[i], as[i] = o.Position, o.Alpha
	}
	alpha := curve(axs, as)

	lut := make([]float32, n*4)
	for i := 0; i < n; i++ {
		x := 0.0
		if n > 1 {
			x = float64(i) / float64(n-1)
		}
		lut[i*4+0] = float32(clamp01(red(x)))
		lut[i*4+1] = float32(clamp01(green(x)))
		lut[i*4+2] = float32(clamp01(blue(x)))
		lut[i*4+3] = float32(clamp01(alpha(x) * m.opacityScale))
	}
	return lut
}

// curve fits a piecewise-linear interpolant; a single point yields a constant
func curve(xs, ys []float64) func(float64) float64 {
	if len(xs) == 1 {
		v := ys[0]
		return func(float64) float64 { return v }
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		// control points are validated on entry; fall back to the first value
		v := ys[0]
		return func(float64) float64 { return v }
	}
	return pl.Predict
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SingleColor maps every value to one colour
type SingleColor struct {
	Color    [4]float32
	Min, Max float64
	Entries  int
}

// EntryCount implements Function
func (s SingleColor) EntryCount() int { return s.Entries }

// ValueRange implements Function
func (s SingleColor) ValueRange() (min, max float64) { return s.Min, s.Max }

// BuildLookupTable implements Function
func (s SingleColor) BuildLookupTable(n int) []float32 {
	if n <= 0 {
		return nil
	}
	lut := make([]float32, n*4)
	for i := 0; i < n; i++ {
		copy(lut[i*4:i*4+4], s.Color[:])
	}
	return lut
}
