package models

import (
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Orientation selects the axis-aligned plane a 2D slice lies in
type Orientation int

const (
	XY Orientation = iota
	XZ
	YZ
)

// String returns the lower-case plane name
func (o Orientation) String() string {
	switch o {
	case XY:
		return "xy"
	case XZ:
		return "xz"
	case YZ:
		return "yz"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// ParseOrientation converts "xy", "xz" or "yz" (any case) to an Orientation
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xy":
		return XY, nil
	case "xz":
		return XZ, nil
	case "yz":
		return YZ, nil
	default:
		return XY, fmt.Errorf("invalid orientation: %q (must be xy, xz or yz)", s)
	}
}

// ParamsType tags the concrete parameter object a renderer consumes.
// It is the key of the renderer registry.
type ParamsType string

const (
	SliceParamsType     ParamsType = "SliceParams"
	VolumeIsoParamsType ParamsType = "VolumeIsoParams"
)

// IsVolume reports whether the parameter type samples a 3D lattice
func (t ParamsType) IsVolume() bool {
	return t == VolumeIsoParamsType
}

// ParameterSnapshot is the frozen set of inputs that determines whether
// cached GPU resources are still valid. It is built wholesale on every
// cache refresh and never mutated afterwards.
type ParameterSnapshot struct {
	// Kind is the parameter type the snapshot was taken from
	Kind ParamsType

	// VariableName is the sampled field variable
	VariableName string

	// HeightVariableName is the optional terrain-following height variable
	HeightVariableName string

	// Timestep is the data time index
	Timestep int

	// RefinementLevel selects the grid resolution (0 is coarsest)
	RefinementLevel int

	// CompressionLevel selects the level of detail of the stored data
	CompressionLevel int

	// SampleRate is the requested lattice resolution per axis, before clamping
	SampleRate int

	// Orientation is only meaningful for slices
	Orientation Orientation

	// BoxMin and BoxMax are the spatial extents of the sampled region
	BoxMin r3.Vec
	BoxMax r3.Vec

	// TFLookup is the transfer function lookup table, flat RGBA
	TFLookup []float32

	// TFRange is the data value range mapped onto the lookup table
	TFRange [2]float64

	// ConstantOpacity scales the alpha of every fragment
	ConstantOpacity float32
}

// Equal compares every field. Lookup tables compare exactly, element by element.
func (s ParameterSnapshot) Equal(o ParameterSnapshot) bool {
	return s.Kind == o.Kind &&
		s.VariableName == o.VariableName &&
		s.HeightVariableName == o.HeightVariableName &&
		s.Timestep == o.Timestep &&
		s.RefinementLevel == o.RefinementLevel &&
		s.CompressionLevel == o.CompressionLevel &&
		s.SampleRate == o.SampleRate &&
		s.Orientation == o.Orientation &&
		s.BoxMin == o.BoxMin &&
		s.BoxMax == o.BoxMax &&
		slices.Equal(s.TFLookup, o.TFLookup) &&
		s.TFRange == o.TFRange &&
		s.ConstantOpacity == o.ConstantOpacity
}
