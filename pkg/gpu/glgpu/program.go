package glgpu

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"vaporrender/pkg/gpu"
	"vaporrender/pkg/gpu/shaders"
	"vaporrender/pkg/logging"
)

// Program is a linked GL program with a uniform location cache
type Program struct {
	name      string
	handle    uint32
	locations map[string]int32
}

func compileProgram(name string) (*Program, error) {
	src, err := shaders.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gpu.ErrResource, err)
	}

	vert, err := compileShader(src.Vertex, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("%w: program %s vertex stage: %v", gpu.ErrResource, name, err)
	}
	defer gl.DeleteShader(vert)
	frag, err := compileShader(src.Fragment, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("%w: program %s fragment stage: %v", gpu.ErrResource, name, err)
	}
	defer gl.DeleteShader(frag)

	handle := gl.CreateProgram()
	gl.AttachShader(handle, vert)
	gl.AttachShader(handle, frag)
	gl.LinkProgram(handle)

	var status int32
	gl.GetProgramiv(handle, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(handle, gl.INFO_LOG_LENGTH, &logLength)
		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(handle, logLength, nil, gl.Str(msg))
		gl.DeleteProgram(handle)
		return nil, fmt.Errorf("%w: linking program %s: %s", gpu.ErrResource, name, strings.TrimRight(msg, "\x00"))
	}

	logging.Logger().Debug("compiled shader program", "program", name)
	return &Program{name: name, handle: handle, locations: make(map[string]int32)}, nil
}

func compileShader(src string, kind uint32) (uint32, error) {
	handle := gl.CreateShader(kind)
	csources, free := gl.Strs(src + "\x00")
	gl.ShaderSource(handle, 1, csources, nil)
	free()
	gl.CompileShader(handle)

	var status int32
	gl.GetShaderiv(handle, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(handle, gl.INFO_LOG_LENGTH, &logLength)
		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(handle, logLength, nil, gl.Str(msg))
		gl.DeleteShader(handle)
		return 0, fmt.Errorf("compile failed: %s", strings.TrimRight(msg, "\x00"))
	}
	return handle, nil
}

func (p *Program) Name() string { return p.name }

func (p *Program) Bind() error {
	gl.UseProgram(p.handle)
	return glError("bind " + p.name)
}

// location returns the cached location of a uniform, -1 when the program
// does not use it
func (p *Program) location(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.handle, gl.Str(name+"\x00"))
	p.locations[name] = loc
	return loc
}

func (p *Program) SetMat4(name string, m mgl32.Mat4) {
	if loc := p.location(name); loc != -1 {
		gl.UniformMatrix4fv(loc, 1, false, &m[0])
	}
}

func (p *Program) SetVec3(name string, v mgl32.Vec3) {
	if loc := p.location(name); loc != -1 {
		gl.Uniform3f(loc, v[0], v[1], v[2])
	}
}

func (p *Program) SetVec4(name string, v mgl32.Vec4) {
	if loc := p.location(name); loc != -1 {
		gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
	}
}

func (p *Program) SetFloat(name string, v float32) {
	if loc := p.location(name); loc != -1 {
		gl.Uniform1f(loc, v)
	}
}

func (p *Program) SetFloatArray(name string, v []float32) {
	if len(v) == 0 {
		return
	}
	if loc := p.location(name); loc != -1 {
		gl.Uniform1fv(loc, int32(len(v)), &v[0])
	}
}

func (p *Program) SetBool(name string, v bool) {
	if loc := p.location(name); loc != -1 {
		var i int32
		if v {
			i = 1
		}
		gl.Uniform1i(loc, i)
	}
}

func (p *Program) SetInt(name string, v int32) {
	if loc := p.location(name); loc != -1 {
		gl.Uniform1i(loc, v)
	}
}
