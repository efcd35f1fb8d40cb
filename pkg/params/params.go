// Package params holds the live, mutable parameter objects edited by the
// application between frames. Renderers read them through the accessors
// declared by rendercache.Params.
package params

import (
	"gonum.org/v1/gonum/spatial/r3"

	"vaporrender/internal/models"
	"vaporrender/pkg/transfer"
)

// DefaultSampleRate matches the initial texture size of a new slice
const DefaultSampleRate = 250

type base struct {
	variable       string
	heightVariable string
	timestep       int
	refinement     int
	compression    int
	sampleRate     int
	min, max       r3.Vec
	opacity        float32
	mappers        map[string]*transfer.MapperFunction
	defaultRange   [2]float64
}

func newBase(variable string) base {
	return base{
		variable:     variable,
		sampleRate:   DefaultSampleRate,
		max:          r3.Vec{X: 1, Y: 1, Z: 1},
		opacity:      1,
		mappers:      make(map[string]*transfer.MapperFunction),
		defaultRange: [2]float64{0, 1},
	}
}

func (b *base) VariableName() string           { return b.variable }
func (b *base) HeightVariableName() string     { return b.heightVariable }
func (b *base) Timestep() int                  { return b.timestep }
func (b *base) RefinementLevel() int           { return b.refinement }
func (b *base) CompressionLevel() int          { return b.compression }
func (b *base) SampleRate() int                { return b.sampleRate }
func (b *base) Extents() (min, max r3.Vec)     { return b.min, b.max }
func (b *base) ConstantOpacity() float32       { return b.opacity }
func (b *base) SetVariableName(name string)    { b.variable = name }
func (b *base) SetHeightVariableName(n string) { b.heightVariable = n }
func (b *base) SetTimestep(ts int)             { b.timestep = ts }
func (b *base) SetRefinementLevel(level int)   { b.refinement = level }
func (b *base) SetCompressionLevel(level int)  { b.compression = level }
func (b *base) SetSampleRate(rate int)         { b.sampleRate = rate }
func (b *base) SetConstantOpacity(o float32)   { b.opacity = o }
func (b *base) SetExtents(min, max r3.Vec)     { b.min, b.max = min, max }
func (b *base) SetDefaultRange(lo, hi float64) { b.defaultRange = [2]float64{lo, hi} }

// MapperFunc returns the transfer function of a variable, creating a
// grayscale ramp over the default range on first use
func (b *base) MapperFunc(variable string) *transfer.MapperFunction {
	m, ok := b.mappers[variable]
	if !ok {
		m = transfer.NewMapperFunction(b.defaultRange[0], b.defaultRange[1])
		b.mappers[variable] = m
	}
	return m
}

// SetMapperFunc installs a transfer function for a variable
func (b *base) SetMapperFunc(variable string, m *transfer.MapperFunction) {
	b.mappers[variable] = m
}

// SliceParams configures an axis-aligned slice through a box
type SliceParams struct {
	base
	orientation models.Orientation
}

// NewSliceParams creates slice parameters for a variable on the XY plane
func NewSliceParams(variable string) *SliceParams {
	return &SliceParams{base: newBase(variable), orientation: models.XY}
}

// Type returns the registry tag
func (p *SliceParams) Type() models.ParamsType { return models.SliceParamsType }

// Orientation returns the slice plane
func (p *SliceParams) Orientation() models.Orientation { return p.orientation }

// SetOrientation changes the slice plane
func (p *SliceParams) SetOrientation(o models.Orientation) { p.orientation = o }

// TransferFunction returns the variable's mapper
func (p *SliceParams) TransferFunction(variable string) transfer.Function {
	return p.MapperFunc(variable)
}

// VolumeIsoParams configures iso-surface rendering of a volume
type VolumeIsoParams struct {
	base
	isoValues     [4]float64
	isoEnabled    [4]bool
	singleColor   bool
	constantColor []float32
}

// NewVolumeIsoParams creates iso-surface parameters with the first iso value enabled
func NewVolumeIsoParams(variable string) *VolumeIsoParams {
	return &VolumeIsoParams{
		base:          newBase(variable),
		isoEnabled:    [4]bool{true, false, false, false},
		constantColor: []float32{1, 1, 1, 1},
	}
}

// Type returns the registry tag
func (p *VolumeIsoParams) Type() models.ParamsType { return models.VolumeIsoParamsType }

// Orientation is fixed for volumes
func (p *VolumeIsoParams) Orientation() models.Orientation { return models.XY }

// IsoValues returns the four iso values
func (p *VolumeIsoParams) IsoValues() [4]float64 { return p.isoValues }

// EnabledIsoValues returns which iso values are drawn
func (p *VolumeIsoParams) EnabledIsoValues() [4]bool { return p.isoEnabled }

// SetIsoValues replaces the iso values and their enabled flags
func (p *VolumeIsoParams) SetIsoValues(values [4]float64, enabled [4]bool) {
	p.isoValues, p.isoEnabled = values, enabled
}

// UseSingleColor reports whether surfaces use ConstantColor instead of the colormap
func (p *VolumeIsoParams) UseSingleColor() bool { return p.singleColor }

// SetUseSingleColor toggles single-colour mode
func (p *VolumeIsoParams) SetUseSingleColor(on bool) { p.singleColor = on }

// ConstantColor returns the single surface colour
func (p *VolumeIsoParams) ConstantColor() []float32 {
	return append([]float32(nil), p.constantColor...)
}

// SetConstantColor sets the single surface colour
func (p *VolumeIsoParams) SetConstantColor(c []float32) {
	p.constantColor = append([]float32(nil), c...)
}

// TransferFunction returns the variable's mapper, or a constant-colour
// table of the same size and range in single-colour mode
func (p *VolumeIsoParams) TransferFunction(variable string) transfer.Function {
	m := p.MapperFunc(variable)
	if !p.singleColor || len(p.constantColor) != 4 {
		return m
	}
	lo, hi := m.ValueRange()
	var c [4]float32
	copy(c[:], p.constantColor)
	return transfer.SingleColor{Color: c, Min: lo, Max: hi, Entries: m.EntryCount()}
}
