package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"vaporrender/internal/models"
	"vaporrender/pkg/transfer"
)

func TestSliceDefaults(t *testing.T) {
	p := NewSliceParams("T")
	assert.Equal(t, models.SliceParamsType, p.Type())
	assert.Equal(t, "T", p.VariableName())
	assert.Equal(t, DefaultSampleRate, p.SampleRate())
	assert.Equal(t, models.XY, p.Orientation())
	assert.Equal(t, float32(1), p.ConstantOpacity())

	lo, hi := p.Extents()
	assert.Equal(t, r3.Vec{}, lo)
	assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 1}, hi)
}

func TestSliceSetters(t *testing.T) {
	p := NewSliceParams("T")
	p.SetVariableName("U")
	p.SetHeightVariableName("HGT")
	p.SetTimestep(3)
	p.SetRefinementLevel(1)
	p.SetCompressionLevel(2)
	p.SetSampleRate(64)
	p.SetOrientation(models.YZ)
	p.SetConstantOpacity(0.25)
	p.SetExtents(r3.Vec{X: -1}, r3.Vec{X: 1, Y: 2, Z: 3})

	assert.Equal(t, "U", p.VariableName())
	assert.Equal(t, "HGT", p.HeightVariableName())
	assert.Equal(t, 3, p.Timestep())
	assert.Equal(t, 1, p.RefinementLevel())
	assert.Equal(t, 2, p.CompressionLevel())
	assert.Equal(t, 64, p.SampleRate())
	assert.Equal(t, models.YZ, p.Orientation())
	assert.Equal(t, float32(0.25), p.ConstantOpacity())
	lo, _ := p.Extents()
	assert.Equal(t, -1.0, lo.X)
}

func TestMapperFuncPerVariable(t *testing.T) {
	p := NewSliceParams("T")
	p.SetDefaultRange(-5, 5)

	m := p.MapperFunc("T")
	require.NotNil(t, m)
	assert.Same(t, m, p.MapperFunc("T"))
	assert.NotSame(t, m, p.MapperFunc("U"))

	lo, hi := m.ValueRange()
	assert.Equal(t, -5.0, lo)
	assert.Equal(t, 5.0, hi)

	custom := transfer.NewMapperFunction(0, 100)
	p.SetMapperFunc("T", custom)
	assert.Same(t, custom, p.TransferFunction("T"))
}

func TestVolumeIsoDefaults(t *testing.T) {
	p := NewVolumeIsoParams("T")
	assert.Equal(t, models.VolumeIsoParamsType, p.Type())
	assert.True(t, p.Type().IsVolume())
	assert.Equal(t, [4]bool{true, false, false, false}, p.EnabledIsoValues())
	assert.Equal(t, []float32{1, 1, 1, 1}, p.ConstantColor())
	assert.False(t, p.UseSingleColor())
	assert.IsType(t, &transfer.MapperFunction{}, p.TransferFunction("T"))
}

func TestVolumeIsoSingleColor(t *testing.T) {
	p := NewVolumeIsoParams("T")
	p.SetDefaultRange(2, 4)
	p.SetConstantColor([]float32{0.5, 0, 1, 1})
	p.SetUseSingleColor(true)

	tf := p.TransferFunction("T")
	sc, ok := tf.(transfer.SingleColor)
	require.True(t, ok)
	assert.Equal(t, [4]float32{0.5, 0, 1, 1}, sc.Color)
	assert.Equal(t, transfer.DefaultEntryCount, sc.EntryCount())
	lo, hi := sc.ValueRange()
	assert.Equal(t, 2.0, lo)
	assert.Equal(t, 4.0, hi)

	// a malformed colour falls back to the colormap
	p.SetConstantColor([]float32{1, 0})
	assert.IsType(t, &transfer.MapperFunction{}, p.TransferFunction("T"))
}

func TestConstantColorIsCopied(t *testing.T) {
	p := NewVolumeIsoParams("T")
	c := []float32{0, 0, 0, 1}
	p.SetConstantColor(c)
	c[0] = 1
	assert.Equal(t, float32(0), p.ConstantColor()[0])

	got := p.ConstantColor()
	got[1] = 1
	assert.Equal(t, float32(0), p.ConstantColor()[1])
}

func TestIsoValues(t *testing.T) {
	p := NewVolumeIsoParams("T")
	p.SetIsoValues([4]float64{1, 2, 3, 4}, [4]bool{false, true, true, false})
	assert.Equal(t, [4]float64{1, 2, 3, 4}, p.IsoValues())
	assert.Equal(t, [4]bool{false, true, true, false}, p.EnabledIsoValues())
	assert.Equal(t, models.XY, p.Orientation())
}
