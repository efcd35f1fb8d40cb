// Package memgpu is an in-memory gpu.Backend. It keeps every upload and
// draw so tests and the headless CLI can inspect what would reach a real
// GPU, and it tracks handle ownership to catch leaks and double releases.
package memgpu

import (
	"fmt"
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"vaporrender/pkg/gpu"
)

// Texture is the stored content of a texture handle
type Texture struct {
	Target               gpu.TextureTarget
	Width, Height, Depth int
	Data                 []float32
}

// Draw records one DrawIndexed call with the uniforms set at that time
type Draw struct {
	Program     string
	VertexArray gpu.Handle
	IndexCount  int
	Textures    []gpu.TextureBinding
	Cull        bool
	Uniforms    map[string]any
}

// Backend implements gpu.Backend in memory. It is not safe for concurrent use.
type Backend struct {
	next     gpu.Handle
	live     map[gpu.Handle]gpu.ResourceKind
	programs map[string]*Program

	// Generated and Deleted count handle allocations and releases
	Generated int
	Deleted   int

	// InvalidDeletes counts releases of unknown or already released handles
	InvalidDeletes int

	// Uploads counts upload calls of every kind
	Uploads int

	Positions  map[gpu.Handle][]float64
	Attributes map[gpu.Handle][]float32
	Indices    map[gpu.Handle][]uint32
	Textures   map[gpu.Handle]Texture
	Draws      []Draw

	// FailGenerate, FailUpload and FailDraw inject errors
	FailGenerate error
	FailUpload   error
	FailDraw     error
}

// New creates a backend providing the 2DData and VolumeIso programs
func New() *Backend {
	b := &Backend{
		live:       make(map[gpu.Handle]gpu.ResourceKind),
		programs:   make(map[string]*Program),
		Positions:  make(map[gpu.Handle][]float64),
		Attributes: make(map[gpu.Handle][]float32),
		Indices:    make(map[gpu.Handle][]uint32),
		Textures:   make(map[gpu.Handle]Texture),
	}
	for _, name := range []string{gpu.Program2DData, gpu.ProgramVolumeIso} {
		b.programs[name] = &Program{name: name, uniforms: make(map[string]any)}
	}
	return b
}

// Live returns the number of handles not yet released
func (b *Backend) Live() int { return len(b.live) }

// LiveOf returns the number of unreleased handles of a kind
func (b *Backend) LiveOf(kind gpu.ResourceKind) int {
	n := 0
	for _, k := range b.live {
		if k == kind {
			n++
		}
	}
	return n
}

// LastDraw returns the most recent draw
func (b *Backend) LastDraw() (Draw, bool) {
	if len(b.Draws) == 0 {
		return Draw{}, false
	}
	return b.Draws[len(b.Draws)-1], true
}

func (b *Backend) Generate(kind gpu.ResourceKind) (gpu.Handle, error) {
	if b.FailGenerate != nil {
		return 0, b.FailGenerate
	}
	b.next++
	b.live[b.next] = kind
	b.Generated++
	return b.next, nil
}

func (b *Backend) Delete(kind gpu.ResourceKind, h gpu.Handle) error {
	k, ok := b.live[h]
	if !ok || k != kind {
		b.InvalidDeletes++
		return fmt.Errorf("%w: %s %d is not live", gpu.ErrResource, kind, h)
	}
	delete(b.live, h)
	delete(b.Positions, h)
	delete(b.Attributes, h)
	delete(b.Indices, h)
	delete(b.Textures, h)
	b.Deleted++
	return nil
}

func (b *Backend) check(kind gpu.ResourceKind, handles ...gpu.Handle) error {
	if b.FailUpload != nil {
		return b.FailUpload
	}
	for _, h := range handles {
		if k, ok := b.live[h]; !ok || (k != kind && k != gpu.VertexArray) {
			return fmt.Errorf("%w: handle %d is not a live %s", gpu.ErrResource, h, kind)
		}
	}
	b.Uploads++
	return nil
}

func (b *Backend) UploadPositions(vao, buf gpu.Handle, attrib uint32, xyz []float64) error {
	if err := b.check(gpu.Buffer, vao, buf); err != nil {
		return err
	}
	if len(xyz)%3 != 0 {
		return fmt.Errorf("%w: %d position floats is not a multiple of 3", gpu.ErrResource, len(xyz))
	}
	b.Positions[buf] = slices.Clone(xyz)
	return nil
}

func (b *Backend) UploadAttribute(vao, buf gpu.Handle, attrib uint32, components int, data []float32) error {
	if err := b.check(gpu.Buffer, vao, buf); err != nil {
		return err
	}
	if components <= 0 || len(data)%components != 0 {
		return fmt.Errorf("%w: %d floats do not form %d-component vectors", gpu.ErrResource, len(data), components)
	}
	b.Attributes[buf] = slices.Clone(data)
	return nil
}

func (b *Backend) UploadIndices(vao, buf gpu.Handle, indices []uint32) error {
	if err := b.check(gpu.Buffer, vao, buf); err != nil {
		return err
	}
	b.Indices[buf] = slices.Clone(indices)
	return nil
}

func (b *Backend) UploadFieldTexture(tex gpu.Handle, width, height, depth int, pairs []float32) error {
	if err := b.check(gpu.Texture, tex); err != nil {
		return err
	}
	if len(pairs) != width*height*depth*2 {
		return fmt.Errorf("%w: %d floats for a %dx%dx%d field", gpu.ErrResource, len(pairs), width, height, depth)
	}
	target := gpu.Texture2D
	if depth > 1 {
		target = gpu.Texture3D
	}
	b.Textures[tex] = Texture{Target: target, Width: width, Height: height, Depth: depth, Data: slices.Clone(pairs)}
	return nil
}

func (b *Backend) UploadLUTTexture(tex gpu.Handle, rgba []float32) error {
	if err := b.check(gpu.Texture, tex); err != nil {
		return err
	}
	if len(rgba) == 0 || len(rgba)%4 != 0 {
		return fmt.Errorf("%w: %d floats is not an RGBA table", gpu.ErrResource, len(rgba))
	}
	b.Textures[tex] = Texture{Target: gpu.Texture1D, Width: len(rgba) / 4, Height: 1, Depth: 1, Data: slices.Clone(rgba)}
	return nil
}

func (b *Backend) Program(name string) (gpu.Program, error) {
	p, ok := b.programs[name]
	if !ok {
		return nil, fmt.Errorf("%w: no program %q", gpu.ErrResource, name)
	}
	return p, nil
}

func (b *Backend) DrawIndexed(call gpu.DrawCall) error {
	if b.FailDraw != nil {
		return b.FailDraw
	}
	p, ok := call.Program.(*Program)
	if !ok || !p.bound {
		return fmt.Errorf("%w: program not bound", gpu.ErrResource)
	}
	if _, ok := b.live[call.VertexArray]; !ok {
		return fmt.Errorf("%w: vertex array %d is not live", gpu.ErrResource, call.VertexArray)
	}
	for _, t := range call.Textures {
		if _, ok := b.Textures[t.Handle]; !ok {
			return fmt.Errorf("%w: texture %d has no data", gpu.ErrResource, t.Handle)
		}
	}
	b.Draws = append(b.Draws, Draw{
		Program:     p.name,
		VertexArray: call.VertexArray,
		IndexCount:  call.IndexCount,
		Textures:    slices.Clone(call.Textures),
		Cull:        call.CullBackFaces,
		Uniforms:    maps.Clone(p.uniforms),
	})
	return nil
}

// Program records uniform values by name
type Program struct {
	name     string
	bound    bool
	uniforms map[string]any
}

func (p *Program) Name() string { return p.name }

func (p *Program) Bind() error {
	p.bound = true
	return nil
}

func (p *Program) SetMat4(name string, m mgl32.Mat4)      { p.uniforms[name] = m }
func (p *Program) SetVec3(name string, v mgl32.Vec3)      { p.uniforms[name] = v }
func (p *Program) SetVec4(name string, v mgl32.Vec4)      { p.uniforms[name] = v }
func (p *Program) SetFloat(name string, v float32)        { p.uniforms[name] = v }
func (p *Program) SetFloatArray(name string, v []float32) { p.uniforms[name] = slices.Clone(v) }
func (p *Program) SetBool(name string, v bool)            { p.uniforms[name] = v }
func (p *Program) SetInt(name string, v int32)            { p.uniforms[name] = v }

// Uniform returns the last value set for name
func (p *Program) Uniform(name string) (any, bool) {
	v, ok := p.uniforms[name]
	return v, ok
}
