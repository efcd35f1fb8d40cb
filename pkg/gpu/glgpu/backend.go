// Package glgpu implements gpu.Backend on OpenGL 4.1 core. Every method must
// be called on the thread that owns the current GL context.
package glgpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"vaporrender/pkg/gpu"
)

// Backend renders through the current OpenGL context
type Backend struct {
	programs map[string]*Program
}

// New loads the GL entry points. A context must already be current.
func New() (*Backend, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("%w: initializing OpenGL: %v", gpu.ErrResource, err)
	}
	return &Backend{programs: make(map[string]*Program)}, nil
}

// Version returns the GL version string of the current context
func (b *Backend) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

// Clear resets the colour and depth buffers of the current framebuffer
func (b *Backend) Clear(r, g, bl, a float32) {
	gl.ClearColor(r, g, bl, a)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Close deletes the compiled programs
func (b *Backend) Close() {
	for name, p := range b.programs {
		gl.DeleteProgram(p.handle)
		delete(b.programs, name)
	}
}

func (b *Backend) Generate(kind gpu.ResourceKind) (gpu.Handle, error) {
	var h uint32
	switch kind {
	case gpu.VertexArray:
		gl.GenVertexArrays(1, &h)
	case gpu.Buffer:
		gl.GenBuffers(1, &h)
	case gpu.Texture:
		gl.GenTextures(1, &h)
	default:
		return 0, fmt.Errorf("%w: cannot generate %s", gpu.ErrResource, kind)
	}
	if err := glError("generate " + kind.String()); err != nil {
		return 0, err
	}
	return gpu.Handle(h), nil
}

func (b *Backend) Delete(kind gpu.ResourceKind, h gpu.Handle) error {
	id := uint32(h)
	switch kind {
	case gpu.VertexArray:
		gl.DeleteVertexArrays(1, &id)
	case gpu.Buffer:
		gl.DeleteBuffers(1, &id)
	case gpu.Texture:
		gl.DeleteTextures(1, &id)
	default:
		return fmt.Errorf("%w: cannot delete %s", gpu.ErrResource, kind)
	}
	return glError("delete " + kind.String())
}

func (b *Backend) UploadPositions(vao, buf gpu.Handle, attrib uint32, xyz []float64) error {
	if len(xyz) == 0 {
		return fmt.Errorf("%w: no positions", gpu.ErrResource)
	}
	gl.BindVertexArray(uint32(vao))
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(buf))
	gl.BufferData(gl.ARRAY_BUFFER, len(xyz)*8, gl.Ptr(xyz), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(attrib)
	// doubles are converted to float on fetch
	gl.VertexAttribPointer(attrib, 3, gl.DOUBLE, false, 3*8, gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	return glError("upload positions")
}

func (b *Backend) UploadAttribute(vao, buf gpu.Handle, attrib uint32, components int, data []float32) error {
	if len(data) == 0 || components <= 0 {
		return fmt.Errorf("%w: empty attribute", gpu.ErrResource)
	}
	gl.BindVertexArray(uint32(vao))
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(buf))
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(attrib)
	gl.VertexAttribPointer(attrib, int32(components), gl.FLOAT, false, int32(components*4), gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	return glError("upload attribute")
}

func (b *Backend) UploadIndices(vao, buf gpu.Handle, indices []uint32) error {
	if len(indices) == 0 {
		return fmt.Errorf("%w: no indices", gpu.ErrResource)
	}
	gl.BindVertexArray(uint32(vao))
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(buf))
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	// the element binding is part of the vertex array state
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	return glError("upload indices")
}

func (b *Backend) UploadFieldTexture(tex gpu.Handle, width, height, depth int, pairs []float32) error {
	if len(pairs) != width*height*depth*2 || len(pairs) == 0 {
		return fmt.Errorf("%w: %d floats for a %dx%dx%d field", gpu.ErrResource, len(pairs), width, height, depth)
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	if depth <= 1 {
		gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
		setSampling(gl.TEXTURE_2D, gl.LINEAR)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RG32F, int32(width), int32(height), 0, gl.RG, gl.FLOAT, gl.Ptr(pairs))
		gl.BindTexture(gl.TEXTURE_2D, 0)
	} else {
		gl.BindTexture(gl.TEXTURE_3D, uint32(tex))
		setSampling(gl.TEXTURE_3D, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
		gl.TexImage3D(gl.TEXTURE_3D, 0, gl.RG32F, int32(width), int32(height), int32(depth), 0, gl.RG, gl.FLOAT, gl.Ptr(pairs))
		gl.BindTexture(gl.TEXTURE_3D, 0)
	}
	return glError("upload field texture")
}

func (b *Backend) UploadLUTTexture(tex gpu.Handle, rgba []float32) error {
	if len(rgba) == 0 || len(rgba)%4 != 0 {
		return fmt.Errorf("%w: %d floats is not an RGBA table", gpu.ErrResource, len(rgba))
	}
	gl.BindTexture(gl.TEXTURE_1D, uint32(tex))
	setSampling(gl.TEXTURE_1D, gl.NEAREST)
	gl.TexImage1D(gl.TEXTURE_1D, 0, gl.RGBA32F, int32(len(rgba)/4), 0, gl.RGBA, gl.FLOAT, gl.Ptr(rgba))
	gl.BindTexture(gl.TEXTURE_1D, 0)
	return glError("upload colormap texture")
}

func (b *Backend) Program(name string) (gpu.Program, error) {
	if p, ok := b.programs[name]; ok {
		return p, nil
	}
	p, err := compileProgram(name)
	if err != nil {
		return nil, err
	}
	b.programs[name] = p
	return p, nil
}

func (b *Backend) DrawIndexed(call gpu.DrawCall) error {
	p, ok := call.Program.(*Program)
	if !ok {
		return fmt.Errorf("%w: program %s does not belong to this context", gpu.ErrResource, call.Program.Name())
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	if call.CullBackFaces {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}

	gl.UseProgram(p.handle)
	for _, t := range call.Textures {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(t.Unit))
		gl.BindTexture(target(t.Target), uint32(t.Handle))
	}

	gl.BindVertexArray(uint32(call.VertexArray))
	gl.DrawElements(gl.TRIANGLES, int32(call.IndexCount), gl.UNSIGNED_INT, gl.PtrOffset(0))
	gl.BindVertexArray(0)

	for _, t := range call.Textures {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(t.Unit))
		gl.BindTexture(target(t.Target), 0)
	}
	gl.ActiveTexture(gl.TEXTURE0)
	if call.CullBackFaces {
		gl.Disable(gl.CULL_FACE)
	}
	return glError("draw " + p.name)
}

func setSampling(tgt uint32, filter int32) {
	gl.TexParameteri(tgt, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(tgt, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(tgt, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	if tgt != gl.TEXTURE_1D {
		gl.TexParameteri(tgt, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	}
}

func target(t gpu.TextureTarget) uint32 {
	switch t {
	case gpu.Texture1D:
		return gl.TEXTURE_1D
	case gpu.Texture3D:
		return gl.TEXTURE_3D
	default:
		return gl.TEXTURE_2D
	}
}

func glError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%w: %s: GL error 0x%x", gpu.ErrResource, op, code)
	}
	return nil
}
