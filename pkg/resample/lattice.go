package resample

import (
	"gonum.org/v1/gonum/spatial/r3"

	"vaporrender/internal/models"
)

// latticeSteps returns the per-axis cell size. The divisor is the requested
// sample rate plus one, independent of any texture clamp.
func latticeSteps(snap models.ParameterSnapshot) r3.Vec {
	n := float64(1 + snap.SampleRate)
	return r3.Scale(1/n, r3.Sub(snap.BoxMax, snap.BoxMin))
}

func center(lo, step float64, n int) float64 {
	return lo + step*float64(n) + step/2
}

// sliceCoordinate returns the cell-centre of lattice cell (i, j). The
// out-of-plane axis is held at the box minimum. For YZ, i runs along Y
// (the fast axis) and j along Z.
func sliceCoordinate(o models.Orientation, lo, d r3.Vec, i, j int) r3.Vec {
	switch o {
	case models.XZ:
		return r3.Vec{X: center(lo.X, d.X, i), Y: lo.Y, Z: center(lo.Z, d.Z, j)}
	case models.YZ:
		return r3.Vec{X: lo.X, Y: center(lo.Y, d.Y, i), Z: center(lo.Z, d.Z, j)}
	default:
		return r3.Vec{X: center(lo.X, d.X, i), Y: center(lo.Y, d.Y, j), Z: lo.Z}
	}
}

func volumeCoordinate(lo, d r3.Vec, i, j, k int) r3.Vec {
	return r3.Vec{X: center(lo.X, d.X, i), Y: center(lo.Y, d.Y, j), Z: center(lo.Z, d.Z, k)}
}

// SampleCoordinate returns the coordinate sampled for slice cell (i, j)
func SampleCoordinate(snap models.ParameterSnapshot, i, j int) r3.Vec {
	return sliceCoordinate(snap.Orientation, snap.BoxMin, latticeSteps(snap), i, j)
}

// quadIndices split the quad (min,min) (max,min) (max,max) (min,max) into two triangles
var quadIndices = []uint32{0, 1, 2, 0, 2, 3}

// SliceGeometry returns the box face for the orientation, vertices ordered
// (min,min), (max,min), (max,max), (min,max) over the two in-plane axes with
// the third axis at its minimum.
func SliceGeometry(o models.Orientation, lo, hi r3.Vec) models.Geometry {
	var v []r3.Vec
	switch o {
	case models.XZ:
		y := lo.Y
		v = []r3.Vec{
			{X: lo.X, Y: y, Z: lo.Z},
			{X: hi.X, Y: y, Z: lo.Z},
			{X: hi.X, Y: y, Z: hi.Z},
			{X: lo.X, Y: y, Z: hi.Z},
		}
	case models.YZ:
		x := lo.X
		v = []r3.Vec{
			{X: x, Y: lo.Y, Z: lo.Z},
			{X: x, Y: hi.Y, Z: lo.Z},
			{X: x, Y: hi.Y, Z: hi.Z},
			{X: x, Y: lo.Y, Z: hi.Z},
		}
	default:
		z := lo.Z
		v = []r3.Vec{
			{X: lo.X, Y: lo.Y, Z: z},
			{X: hi.X, Y: lo.Y, Z: z},
			{X: hi.X, Y: hi.Y, Z: z},
			{X: lo.X, Y: hi.Y, Z: z},
		}
	}
	return models.Geometry{
		Vertices: v,
		Indices:  append([]uint32(nil), quadIndices...),
	}
}

// boxIndices wind the 12 outward-facing triangles of a box whose corner n
// has x, y, z taken from bits 0, 1, 2 of n
var boxIndices = []uint32{
	0, 2, 3, 0, 3, 1, // -z
	4, 5, 7, 4, 7, 6, // +z
	0, 1, 5, 0, 5, 4, // -y
	2, 6, 7, 2, 7, 3, // +y
	0, 4, 6, 0, 6, 2, // -x
	1, 3, 7, 1, 7, 5, // +x
}

// BoxGeometry returns the eight corners and triangles of the bounding box
func BoxGeometry(lo, hi r3.Vec) models.Geometry {
	v := make([]r3.Vec, 8)
	for n := range v {
		p := lo
		if n&1 != 0 {
			p.X = hi.X
		}
		if n&2 != 0 {
			p.Y = hi.Y
		}
		if n&4 != 0 {
			p.Z = hi.Z
		}
		v[n] = p
	}
	return models.Geometry{
		Vertices: v,
		Indices:  append([]uint32(nil), boxIndices...),
	}
}
