package main

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"vaporrender/pkg/gpu"
	"vaporrender/pkg/gpu/glgpu"
	"vaporrender/pkg/logging"
)

func init() {
	// GLFW and the GL context must stay on the main thread
	runtime.LockOSThread()
}

// glBackend draws into the back buffer of a hidden window
type glBackend struct {
	*glgpu.Backend
	window *glfw.Window
}

// Clear swaps the previous frame out before clearing
func (b *glBackend) Clear(r, g, bl, a float32) {
	b.window.SwapBuffers()
	glfw.PollEvents()
	b.Backend.Clear(r, g, bl, a)
}

func openGL() (gpu.Backend, func(), error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(512, 512, "vaporrender", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating window: %w", err)
	}
	window.MakeContextCurrent()

	backend, err := glgpu.New()
	if err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, nil, err
	}
	logging.Logger().Info("OpenGL context ready", "version", backend.Version())

	b := &glBackend{Backend: backend, window: window}
	closeFn := func() {
		backend.Close()
		window.Destroy()
		glfw.Terminate()
	}
	return b, closeFn, nil
}
