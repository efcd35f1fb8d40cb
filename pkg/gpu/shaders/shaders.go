// Package shaders embeds the GLSL programs used by the OpenGL backend.
package shaders

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed *.vert *.frag
var files embed.FS

// Source is the vertex and fragment stage of one program
type Source struct {
	Vertex   string
	Fragment string
}

// Get returns the sources of the named program
func Get(name string) (Source, error) {
	vert, err := files.ReadFile(name + ".vert")
	if err != nil {
		return Source{}, fmt.Errorf("no vertex shader for program %q: %w", name, err)
	}
	frag, err := files.ReadFile(name + ".frag")
	if err != nil {
		return Source{}, fmt.Errorf("no fragment shader for program %q: %w", name, err)
	}
	return Source{Vertex: string(vert), Fragment: string(frag)}, nil
}

// Names lists the embedded programs
func Names() []string {
	entries, _ := fs.ReadDir(files, ".")
	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
