// Package gpu declares the GPU context consumed by the draw driver. Passing
// a Backend explicitly keeps the driver free of ambient graphics state and
// lets tests substitute an in-memory implementation.
package gpu

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrResource marks texture, buffer or program failures on the GPU side
var ErrResource = errors.New("gpu resource error")

// Handle names a GPU object. Zero is never a valid handle.
type Handle uint32

// ResourceKind is the kind of object a handle refers to
type ResourceKind int

const (
	VertexArray ResourceKind = iota
	Buffer
	Texture
)

func (k ResourceKind) String() string {
	switch k {
	case VertexArray:
		return "vertex array"
	case Buffer:
		return "buffer"
	case Texture:
		return "texture"
	default:
		return fmt.Sprintf("resource(%d)", int(k))
	}
}

// TextureTarget is the dimensionality of a texture binding
type TextureTarget int

const (
	Texture1D TextureTarget = iota + 1
	Texture2D
	Texture3D
)

// TextureBinding attaches a texture to a texture unit for a draw
type TextureBinding struct {
	Unit   int
	Target TextureTarget
	Handle Handle
}

// DrawCall is one indexed triangle draw
type DrawCall struct {
	Program     Program
	VertexArray Handle
	IndexCount  int
	Textures    []TextureBinding

	// CullBackFaces draws only the faces turned towards the camera
	CullBackFaces bool
}

// Program is a linked shader program accepting uniforms
type Program interface {
	Name() string
	Bind() error
	SetMat4(name string, m mgl32.Mat4)
	SetVec3(name string, v mgl32.Vec3)
	SetVec4(name string, v mgl32.Vec4)
	SetFloat(name string, v float32)
	SetFloatArray(name string, v []float32)
	SetBool(name string, v bool)
	SetInt(name string, v int32)
}

// Backend is the GPU context a draw driver renders through
type Backend interface {
	// Generate allocates a new object of the given kind
	Generate(kind ResourceKind) (Handle, error)

	// Delete releases an object allocated by Generate
	Delete(kind ResourceKind, h Handle) error

	// UploadPositions stores xyz double triples in buf and binds them to
	// attribute attrib of vao
	UploadPositions(vao, buf Handle, attrib uint32, xyz []float64) error

	// UploadAttribute stores float vectors of the given width in buf and
	// binds them to attribute attrib of vao
	UploadAttribute(vao, buf Handle, attrib uint32, components int, data []float32) error

	// UploadIndices stores triangle indices in buf as the element buffer of vao
	UploadIndices(vao, buf Handle, indices []uint32) error

	// UploadFieldTexture stores (value, flag) pairs as a two-channel float
	// texture; depth 1 produces a 2D texture
	UploadFieldTexture(tex Handle, width, height, depth int, pairs []float32) error

	// UploadLUTTexture stores RGBA quadruples as a 1D texture
	UploadLUTTexture(tex Handle, rgba []float32) error

	// Program returns the named shader program
	Program(name string) (Program, error)

	// DrawIndexed issues the draw with the program's current uniforms
	DrawIndexed(call DrawCall) error
}
