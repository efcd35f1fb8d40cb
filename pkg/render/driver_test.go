package render

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"vaporrender/internal/models"
	"vaporrender/pkg/gpu"
	"vaporrender/pkg/gpu/memgpu"
	"vaporrender/pkg/grid"
	"vaporrender/pkg/lut"
	"vaporrender/pkg/params"
	"vaporrender/pkg/rendercache"
	"vaporrender/pkg/resample"
)

var domainMax = r3.Vec{X: 10, Y: 10, Z: 4}

func testSource(t *testing.T) *grid.MemorySource {
	t.Helper()
	src, err := grid.NewSyntheticSource(grid.SyntheticOptions{
		Dims:              [3]int{8, 8, 4},
		Max:               domainMax,
		Timesteps:         2,
		RefinementLevels:  2,
		CompressionLevels: 2,
		MissingValue:      1e37,
		Variables:         []string{"T", "U"},
	})
	require.NoError(t, err)
	return src
}

func testDeps(t *testing.T, b gpu.Backend) Deps {
	return Deps{
		Backend: b,
		Source:  testSource(t),
		Engine:  resample.New(resample.Options{Workers: 2}),
		Builder: lut.NewBuilder(),
	}
}

func sliceParams() *params.SliceParams {
	p := params.NewSliceParams("T")
	p.SetExtents(r3.Vec{}, domainMax)
	p.SetSampleRate(16)
	p.SetConstantOpacity(0.5)
	p.SetDefaultRange(-1, 2)
	return p
}

func volumeParams() *params.VolumeIsoParams {
	p := params.NewVolumeIsoParams("T")
	p.SetExtents(r3.Vec{}, domainMax)
	p.SetSampleRate(8)
	p.SetIsoValues([4]float64{0.25, 0.5, 0, 0}, [4]bool{true, true, false, false})
	return p
}

var testFrame = Frame{MVP: mgl32.Ident4(), CameraPos: mgl32.Vec3{5, 5, 20}}

func TestSlicePaintUploadsAndDraws(t *testing.T) {
	b := memgpu.New()
	r, err := NewSliceRenderer(sliceParams(), testDeps(t, b))
	require.NoError(t, err)

	require.NoError(t, r.Paint(t.Context(), testFrame))

	assert.Equal(t, 6, b.Live())
	assert.Equal(t, 1, b.LiveOf(gpu.VertexArray))
	assert.Equal(t, 3, b.LiveOf(gpu.Buffer))
	assert.Equal(t, 2, b.LiveOf(gpu.Texture))

	draw, ok := b.LastDraw()
	require.True(t, ok)
	assert.Equal(t, gpu.Program2DData, draw.Program)
	assert.Equal(t, 6, draw.IndexCount)
	assert.False(t, draw.Cull)
	assert.Equal(t, mgl32.Ident4(), draw.Uniforms[gpu.UniformMVP])
	assert.Equal(t, float32(0.5), draw.Uniforms[gpu.UniformConstantOpacity])
	assert.Equal(t, float32(-1), draw.Uniforms[gpu.UniformMinLUTValue])
	assert.Equal(t, float32(2), draw.Uniforms[gpu.UniformMaxLUTValue])
	assert.NotContains(t, draw.Uniforms, gpu.UniformIsoValue)

	require.Len(t, draw.Textures, 2)
	field := b.Textures[draw.Textures[0].Handle]
	assert.Equal(t, gpu.Texture2D, field.Target)
	assert.Equal(t, 16, field.Width)
	assert.Equal(t, 16, field.Height)
	assert.Equal(t, r.Cache().Field().Values, field.Data)

	colormap := b.Textures[draw.Textures[1].Handle]
	assert.Equal(t, gpu.Texture1D, colormap.Target)
	assert.Equal(t, r.Cache().LUT().Len(), colormap.Width)

	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Uploads)
	assert.Equal(t, uint64(1), stats.Draws)
}

func TestPaintReuploadsOnlyOnGenerationChange(t *testing.T) {
	b := memgpu.New()
	p := sliceParams()
	r, err := NewSliceRenderer(p, testDeps(t, b))
	require.NoError(t, err)

	require.NoError(t, r.Paint(t.Context(), testFrame))
	uploads := b.Uploads
	generated := b.Generated

	require.NoError(t, r.Paint(t.Context(), testFrame))
	assert.Equal(t, uploads, b.Uploads, "clean cache must not re-upload")
	assert.Equal(t, uint64(1), r.Stats().Hits)

	p.SetTimestep(1)
	require.NoError(t, r.Paint(t.Context(), testFrame))
	assert.Greater(t, b.Uploads, uploads)
	assert.Equal(t, generated, b.Generated, "resources are allocated once")
	assert.Equal(t, uint64(2), r.Stats().Uploads)
	assert.Len(t, b.Draws, 3)
}

func TestPaintSkipsWithoutData(t *testing.T) {
	b := memgpu.New()
	p := sliceParams()
	p.SetVariableName("missing")
	r, err := NewSliceRenderer(p, testDeps(t, b))
	require.NoError(t, err)

	err = r.Paint(t.Context(), testFrame)
	require.Error(t, err)
	assert.True(t, errors.Is(err, grid.ErrDataUnavailable))
	assert.Empty(t, b.Draws)
	assert.Equal(t, rendercache.Uninitialized, r.Cache().State())
	assert.Equal(t, uint64(1), r.Stats().Skipped)
}

func TestPaintAbortsOnStaleByDefault(t *testing.T) {
	b := memgpu.New()
	p := sliceParams()
	r, err := NewSliceRenderer(p, testDeps(t, b))
	require.NoError(t, err)
	require.NoError(t, r.Paint(t.Context(), testFrame))
	previous := r.Cache().Field()

	p.SetTimestep(7)
	err = r.Paint(t.Context(), testFrame)
	require.Error(t, err)
	assert.True(t, errors.Is(err, grid.ErrDataUnavailable))
	assert.Len(t, b.Draws, 1)
	assert.Equal(t, rendercache.Stale, r.Cache().State())
	assert.Equal(t, previous, r.Cache().Field())
}

func TestPaintRefreshesStaleAfterRevert(t *testing.T) {
	b := memgpu.New()
	p := sliceParams()
	r, err := NewSliceRenderer(p, testDeps(t, b))
	require.NoError(t, err)
	require.NoError(t, r.Paint(t.Context(), testFrame))

	p.SetTimestep(7)
	require.Error(t, r.Paint(t.Context(), testFrame))
	require.Equal(t, rendercache.Stale, r.Cache().State())

	// back to the committed parameters: the cache must refresh, not draw stale data
	p.SetTimestep(0)
	require.True(t, r.Cache().IsDirty(p))
	require.NoError(t, r.Paint(t.Context(), testFrame))

	assert.Equal(t, rendercache.Valid, r.Cache().State())
	stats := r.Stats()
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(3), stats.Misses)
	assert.Equal(t, uint64(0), stats.Degraded)
	assert.Equal(t, uint64(2), stats.Draws)
}

func TestPaintDrawsStaleWhenEnabled(t *testing.T) {
	b := memgpu.New()
	p := sliceParams()
	deps := testDeps(t, b)
	deps.DrawStaleOnError = true
	r, err := NewSliceRenderer(p, deps)
	require.NoError(t, err)
	require.NoError(t, r.Paint(t.Context(), testFrame))

	p.SetTimestep(7)
	err = r.Paint(t.Context(), testFrame)
	require.Error(t, err)
	assert.True(t, errors.Is(err, grid.ErrDataUnavailable))
	assert.Len(t, b.Draws, 2)
	assert.Equal(t, uint64(1), r.Stats().Degraded)
	assert.Equal(t, uint64(1), r.Stats().Uploads)

	// recovery refreshes and re-uploads
	p.SetTimestep(1)
	require.NoError(t, r.Paint(t.Context(), testFrame))
	assert.Equal(t, rendercache.Valid, r.Cache().State())
	assert.Equal(t, uint64(2), r.Stats().Uploads)
}

func TestCloseReleasesOnce(t *testing.T) {
	b := memgpu.New()
	r, err := NewSliceRenderer(sliceParams(), testDeps(t, b))
	require.NoError(t, err)
	require.NoError(t, r.Paint(t.Context(), testFrame))

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 0, b.Live())
	assert.Equal(t, 6, b.Deleted)
	assert.Equal(t, 0, b.InvalidDeletes)

	err = r.Paint(t.Context(), testFrame)
	assert.True(t, errors.Is(err, gpu.ErrResource))
}

func TestCloseWithoutPaint(t *testing.T) {
	b := memgpu.New()
	r, err := NewSliceRenderer(sliceParams(), testDeps(t, b))
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, 0, b.Generated)
}

func TestAcquireFailureLeaksNothing(t *testing.T) {
	b := memgpu.New()
	b.FailGenerate = gpu.ErrResource
	r, err := NewSliceRenderer(sliceParams(), testDeps(t, b))
	require.NoError(t, err)

	err = r.Paint(t.Context(), testFrame)
	assert.True(t, errors.Is(err, gpu.ErrResource))
	assert.Equal(t, 0, b.Live())

	b.FailGenerate = nil
	require.NoError(t, r.Paint(t.Context(), testFrame))
	assert.Equal(t, 6, b.Live())
}

func TestDrawFailureIsReported(t *testing.T) {
	b := memgpu.New()
	b.FailDraw = gpu.ErrResource
	r, err := NewSliceRenderer(sliceParams(), testDeps(t, b))
	require.NoError(t, err)

	err = r.Paint(t.Context(), testFrame)
	assert.True(t, errors.Is(err, gpu.ErrResource))
	assert.Equal(t, rendercache.Valid, r.Cache().State())
	assert.Equal(t, uint64(0), r.Stats().Draws)
}

func TestVolumeIsoPaint(t *testing.T) {
	b := memgpu.New()
	p := volumeParams()
	p.SetConstantColor([]float32{1, 0, 0, 1})
	r, err := NewVolumeIsoRenderer(p, testDeps(t, b))
	require.NoError(t, err)

	require.NoError(t, r.Paint(context.Background(), testFrame))

	draw, ok := b.LastDraw()
	require.True(t, ok)
	assert.Equal(t, gpu.ProgramVolumeIso, draw.Program)
	assert.Equal(t, 36, draw.IndexCount)
	assert.True(t, draw.Cull)
	assert.Equal(t, []float32{0.25, 0.5, 0, 0}, draw.Uniforms[gpu.UniformIsoValue])
	assert.Equal(t, true, draw.Uniforms[gpu.IsoEnabledUniform(1)])
	assert.Equal(t, false, draw.Uniforms[gpu.IsoEnabledUniform(2)])
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, draw.Uniforms[gpu.UniformConstantColor])
	assert.Equal(t, testFrame.CameraPos, draw.Uniforms[gpu.UniformCameraPos])
	assert.Equal(t, mgl32.Vec3{10, 10, 4}, draw.Uniforms[gpu.UniformBoxMax])
	assert.Equal(t, true, draw.Uniforms[gpu.UniformUseColormap], "constant colour only applies in single-colour mode")

	field := b.Textures[draw.Textures[0].Handle]
	assert.Equal(t, gpu.Texture3D, field.Target)
	assert.Equal(t, 8, field.Depth)
}

func TestIsoValuesDoNotInvalidate(t *testing.T) {
	b := memgpu.New()
	p := volumeParams()
	r, err := NewVolumeIsoRenderer(p, testDeps(t, b))
	require.NoError(t, err)
	require.NoError(t, r.Paint(t.Context(), testFrame))
	generation := r.Cache().Generation()

	p.SetIsoValues([4]float64{0.75, 0, 0, 0}, [4]bool{true, false, false, false})
	require.NoError(t, r.Paint(t.Context(), testFrame))

	assert.Equal(t, generation, r.Cache().Generation())
	assert.Equal(t, uint64(1), r.Stats().Uploads)
	draw, _ := b.LastDraw()
	assert.Equal(t, []float32{0.75, 0, 0, 0}, draw.Uniforms[gpu.UniformIsoValue])
}

func TestSingleColorInvalidates(t *testing.T) {
	b := memgpu.New()
	p := volumeParams()
	r, err := NewVolumeIsoRenderer(p, testDeps(t, b))
	require.NoError(t, err)
	require.NoError(t, r.Paint(t.Context(), testFrame))

	p.SetUseSingleColor(true)
	p.SetConstantColor([]float32{0, 1, 0, 1})
	assert.True(t, r.Cache().IsDirty(p))
	require.NoError(t, r.Paint(t.Context(), testFrame))

	red, green, blue, alpha := r.Cache().LUT().Entry(0)
	assert.Equal(t, [4]float32{0, 1, 0, 1}, [4]float32{red, green, blue, alpha})

	draw, _ := b.LastDraw()
	assert.Equal(t, false, draw.Uniforms[gpu.UniformUseColormap])
	assert.Equal(t, mgl32.Vec4{0, 1, 0, 1}, draw.Uniforms[gpu.UniformConstantColor])
}

func TestTexCoords(t *testing.T) {
	lo, hi := r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 3, Y: 6, Z: 7}
	snap := models.ParameterSnapshot{Kind: models.SliceParamsType, Orientation: models.YZ, BoxMin: lo, BoxMax: hi}
	geom := resample.SliceGeometry(models.YZ, lo, hi)

	components, coords := TexCoords(snap, geom)
	assert.Equal(t, 2, components)
	assert.Equal(t, []float32{0, 0, 1, 0, 1, 1, 0, 1}, coords)

	snap.Kind = models.VolumeIsoParamsType
	components, coords = TexCoords(snap, resample.BoxGeometry(lo, hi))
	assert.Equal(t, 3, components)
	assert.Len(t, coords, 24)
	assert.Equal(t, []float32{1, 1, 1}, coords[21:24])
}

func TestNewDriverRequiresBackend(t *testing.T) {
	_, err := NewDriver(SliceClass, gpu.Program2DData, sliceParams(), Deps{})
	assert.True(t, errors.Is(err, lut.ErrConfiguration))
}
