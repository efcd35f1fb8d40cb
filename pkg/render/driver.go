// Package render turns cached render state into GPU draws. A Driver owns one
// render cache and one set of GPU resources and is used from a single
// goroutine.
package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/spatial/r3"

	"vaporrender/internal/models"
	"vaporrender/pkg/gpu"
	"vaporrender/pkg/grid"
	"vaporrender/pkg/logging"
	"vaporrender/pkg/lut"
	"vaporrender/pkg/rendercache"
	"vaporrender/pkg/resample"
)

// Frame carries the per-frame view state
type Frame struct {
	// MVP is the model-view-projection matrix
	MVP mgl32.Mat4

	// CameraPos is the eye position in data coordinates
	CameraPos mgl32.Vec3
}

// IsoParams is the live iso-surface state read at draw time. It does not
// take part in the cache snapshot.
type IsoParams interface {
	IsoValues() [4]float64
	EnabledIsoValues() [4]bool
	ConstantColor() []float32
	UseSingleColor() bool
}

// Deps are the collaborators shared by every renderer
type Deps struct {
	Backend gpu.Backend
	Source  grid.Source
	Engine  *resample.Engine
	Builder *lut.Builder

	// DrawStaleOnError draws the last good cache contents when a refresh
	// fails. The error is still returned.
	DrawStaleOnError bool
}

// FrameStats counts draw driver outcomes
type FrameStats struct {
	Frames   uint64
	Hits     uint64
	Misses   uint64
	Draws    uint64
	Skipped  uint64
	Degraded uint64
	Uploads  uint64
}

type resources struct {
	vao       *gpu.Resource
	positions *gpu.Resource
	texcoords *gpu.Resource
	indices   *gpu.Resource
	field     *gpu.Resource
	lut       *gpu.Resource
}

func (r *resources) all() []*gpu.Resource {
	return []*gpu.Resource{r.vao, r.positions, r.texcoords, r.indices, r.field, r.lut}
}

// Driver runs the dirty check, refresh, upload and draw sequence of one renderer
type Driver struct {
	name    string
	program string
	live    rendercache.Params
	deps    Deps
	cache   *rendercache.Cache

	res         *resources
	uploaded    bool
	uploadedGen uint64
	indexCount  int
	closed      bool
	stats       FrameStats
}

// NewDriver creates a driver drawing live through the named program
func NewDriver(name, program string, live rendercache.Params, deps Deps) (*Driver, error) {
	if live == nil {
		return nil, fmt.Errorf("%w: %s renderer has no parameters", lut.ErrConfiguration, name)
	}
	if deps.Backend == nil {
		return nil, fmt.Errorf("%w: %s renderer has no GPU backend", lut.ErrConfiguration, name)
	}
	return &Driver{
		name:    name,
		program: program,
		live:    live,
		deps:    deps,
		cache:   rendercache.New(deps.Engine, deps.Builder),
	}, nil
}

// Cache returns the render cache owned by the driver
func (d *Driver) Cache() *rendercache.Cache { return d.cache }

// Stats returns the frame counters
func (d *Driver) Stats() FrameStats { return d.stats }

// Paint refreshes the cache when the live parameters changed and draws it.
// A failed refresh aborts the frame unless stale drawing is enabled and the
// cache still holds data; in that case the stale data is drawn and the
// refresh error is returned anyway.
func (d *Driver) Paint(ctx context.Context, frame Frame) error {
	if d.closed {
		return fmt.Errorf("%w: %s renderer is closed", gpu.ErrResource, d.name)
	}
	d.stats.Frames++

	var refreshErr error
	if d.cache.IsDirty(d.live) {
		d.stats.Misses++
		tf := d.live.TransferFunction(d.live.VariableName())
		if err := d.cache.Refresh(ctx, d.live, d.deps.Source, tf); err != nil {
			refreshErr = fmt.Errorf("%s renderer: %w", d.name, err)
			if !d.cache.Drawable() || !d.deps.DrawStaleOnError {
				d.stats.Skipped++
				logging.Logger().Warn("frame skipped", "renderer", d.name, "state", d.cache.State(), "error", err)
				return refreshErr
			}
			d.stats.Degraded++
			logging.Logger().Warn("drawing stale render cache", "renderer", d.name, "generation", d.cache.Generation(), "error", err)
		}
	} else {
		d.stats.Hits++
	}

	if err := d.draw(frame); err != nil {
		return errors.Join(refreshErr, fmt.Errorf("%s renderer: %w", d.name, err))
	}
	return refreshErr
}

func (d *Driver) draw(frame Frame) error {
	if err := d.acquire(); err != nil {
		return err
	}
	if !d.uploaded || d.uploadedGen != d.cache.Generation() {
		if err := d.upload(); err != nil {
			return err
		}
	}

	program, err := d.deps.Backend.Program(d.program)
	if err != nil {
		return err
	}
	if err := program.Bind(); err != nil {
		return err
	}

	snap := d.cache.Snapshot()
	table := d.cache.LUT()
	program.SetMat4(gpu.UniformMVP, frame.MVP)
	program.SetFloat(gpu.UniformConstantOpacity, snap.ConstantOpacity)
	program.SetFloat(gpu.UniformMinLUTValue, float32(table.Min))
	program.SetFloat(gpu.UniformMaxLUTValue, float32(table.Max))
	program.SetInt(gpu.UniformDataTexture, gpu.DataTextureUnit)
	program.SetInt(gpu.UniformColormap, gpu.ColormapTextureUnit)

	fieldTarget := gpu.Texture2D
	volume := snap.Kind.IsVolume()
	if volume {
		fieldTarget = gpu.Texture3D
		program.SetVec3(gpu.UniformCameraPos, frame.CameraPos)
		program.SetVec3(gpu.UniformBoxMin, vec3(snap.BoxMin))
		program.SetVec3(gpu.UniformBoxMax, vec3(snap.BoxMax))
		program.SetBool(gpu.UniformUseColormap, true)
		if iso, ok := d.live.(IsoParams); ok {
			setIsoUniforms(program, iso)
		}
	}

	err = d.deps.Backend.DrawIndexed(gpu.DrawCall{
		Program:     program,
		VertexArray: d.res.vao.Handle(),
		IndexCount:  d.indexCount,
		Textures: []gpu.TextureBinding{
			{Unit: gpu.DataTextureUnit, Target: fieldTarget, Handle: d.res.field.Handle()},
			{Unit: gpu.ColormapTextureUnit, Target: gpu.Texture1D, Handle: d.res.lut.Handle()},
		},
		CullBackFaces: volume,
	})
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	d.stats.Draws++
	return nil
}

func setIsoUniforms(program gpu.Program, iso IsoParams) {
	values := iso.IsoValues()
	enabled := iso.EnabledIsoValues()
	floats := make([]float32, gpu.MaxIsoValues)
	for i := range floats {
		floats[i] = float32(values[i])
		program.SetBool(gpu.IsoEnabledUniform(i), enabled[i])
	}
	program.SetFloatArray(gpu.UniformIsoValue, floats)

	c := iso.ConstantColor()
	if len(c) == 4 {
		program.SetVec4(gpu.UniformConstantColor, mgl32.Vec4{c[0], c[1], c[2], c[3]})
	}
	program.SetBool(gpu.UniformUseColormap, !iso.UseSingleColor() || len(c) != 4)
}

// acquire allocates the GPU resource set on first use
func (d *Driver) acquire() error {
	if d.res != nil {
		return nil
	}
	b := d.deps.Backend
	res := &resources{}
	slots := []struct {
		dst  **gpu.Resource
		kind gpu.ResourceKind
	}{
		{&res.vao, gpu.VertexArray},
		{&res.positions, gpu.Buffer},
		{&res.texcoords, gpu.Buffer},
		{&res.indices, gpu.Buffer},
		{&res.field, gpu.Texture},
		{&res.lut, gpu.Texture},
	}
	for _, s := range slots {
		r, err := gpu.Acquire(b, s.kind)
		if err != nil {
			releaseAll(res)
			return fmt.Errorf("allocate GPU resources: %w", err)
		}
		*s.dst = r
	}
	d.res = res
	logging.Logger().Debug("GPU resources allocated", "renderer", d.name)
	return nil
}

func (d *Driver) upload() error {
	b := d.deps.Backend
	snap := d.cache.Snapshot()
	geom := d.cache.Geometry()
	field := d.cache.Field()
	table := d.cache.LUT()
	vao := d.res.vao.Handle()

	if err := b.UploadPositions(vao, d.res.positions.Handle(), gpu.PositionAttrib, geom.Flatten()); err != nil {
		return fmt.Errorf("upload positions: %w", err)
	}
	components, coords := TexCoords(snap, geom)
	if err := b.UploadAttribute(vao, d.res.texcoords.Handle(), gpu.TexCoordAttrib, components, coords); err != nil {
		return fmt.Errorf("upload texture coordinates: %w", err)
	}
	if err := b.UploadIndices(vao, d.res.indices.Handle(), geom.Indices); err != nil {
		return fmt.Errorf("upload indices: %w", err)
	}
	if err := b.UploadFieldTexture(d.res.field.Handle(), field.Width, field.Height, field.Depth, field.Values); err != nil {
		return fmt.Errorf("upload field texture: %w", err)
	}
	if err := b.UploadLUTTexture(d.res.lut.Handle(), table.RGBA); err != nil {
		return fmt.Errorf("upload colormap texture: %w", err)
	}

	d.indexCount = len(geom.Indices)
	d.uploaded = true
	d.uploadedGen = d.cache.Generation()
	d.stats.Uploads++
	logging.Logger().Debug("render cache uploaded",
		"renderer", d.name,
		"generation", d.uploadedGen,
		"cells", field.Cells(),
		"lutEntries", table.Len())
	return nil
}

// TexCoords maps geometry vertices into the unit box of the snapshot
// extents. Slices get the two in-plane coordinates, volumes all three.
func TexCoords(snap models.ParameterSnapshot, geom models.Geometry) (components int, coords []float32) {
	norm := func(v, lo, hi float64) float32 {
		if hi <= lo {
			return 0
		}
		return float32((v - lo) / (hi - lo))
	}
	lo, hi := snap.BoxMin, snap.BoxMax

	components = 2
	if snap.Kind.IsVolume() {
		components = 3
	}
	coords = make([]float32, 0, len(geom.Vertices)*components)
	for _, v := range geom.Vertices {
		x, y, z := norm(v.X, lo.X, hi.X), norm(v.Y, lo.Y, hi.Y), norm(v.Z, lo.Z, hi.Z)
		switch {
		case components == 3:
			coords = append(coords, x, y, z)
		case snap.Orientation == models.XZ:
			coords = append(coords, x, z)
		case snap.Orientation == models.YZ:
			coords = append(coords, y, z)
		default:
			coords = append(coords, x, y)
		}
	}
	return components, coords
}

// Close releases the GPU resources. Later calls do nothing.
func (d *Driver) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	var err error
	if d.res != nil {
		err = releaseAll(d.res)
		d.res = nil
	}
	d.cache.Reset()
	if err != nil {
		logging.Logger().Warn("releasing GPU resources failed", "renderer", d.name, "error", err)
	}
	return err
}

func releaseAll(res *resources) error {
	var errs []error
	for _, r := range res.all() {
		if err := r.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func vec3(v r3.Vec) mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}
