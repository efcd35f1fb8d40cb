package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// RegularGrid is a structured grid with uniformly spaced nodes spanning
// [Min, Max]. Node data is stored row-major with x varying fastest.
// The data slice is shared and never written after construction.
type RegularGrid struct {
	dims     [3]int
	min, max r3.Vec
	data     []float64
	missing  float64
	order    int
}

// NewRegularGrid wraps data as a regular grid. Every dimension needs at
// least two nodes and the extents must be non-empty.
func NewRegularGrid(dims [3]int, min, max r3.Vec, data []float64, missing float64) (*RegularGrid, error) {
	if err := checkLayout(dims, min, max); err != nil {
		return nil, err
	}
	if len(data) != dims[0]*dims[1]*dims[2] {
		return nil, fmt.Errorf("data length %d does not match dims %v", len(data), dims)
	}
	return &RegularGrid{
		dims:    dims,
		min:     min,
		max:     max,
		data:    data,
		missing: missing,
		order:   1,
	}, nil
}

func checkLayout(dims [3]int, min, max r3.Vec) error {
	for i, d := range dims {
		if d < 2 {
			return fmt.Errorf("dimension %d must have at least 2 nodes, got %d", i, d)
		}
	}
	if min.X >= max.X || min.Y >= max.Y || min.Z >= max.Z {
		return fmt.Errorf("empty extents %v - %v", min, max)
	}
	return nil
}

// Dims returns the node counts along x, y and z
func (g *RegularGrid) Dims() [3]int { return g.dims }

// Extents returns the user-coordinate bounds of the grid
func (g *RegularGrid) Extents() (min, max r3.Vec) { return g.min, g.max }

// MissingValue implements Grid
func (g *RegularGrid) MissingValue() float64 { return g.missing }

// SetInterpolationOrder implements Grid. Orders other than 0 are treated as linear.
func (g *RegularGrid) SetInterpolationOrder(order int) {
	if order != 0 {
		order = 1
	}
	g.order = order
}

// InterpolationOrder returns the active interpolation order
func (g *RegularGrid) InterpolationOrder() int { return g.order }

// view returns a copy sharing the node data, so each caller owns its
// interpolation order
func (g *RegularGrid) view() *RegularGrid {
	cp := *g
	return &cp
}

func (g *RegularGrid) node(i, j, k int) float64 {
	return g.data[(k*g.dims[1]+j)*g.dims[0]+i]
}

// continuous maps a coordinate on one axis to fractional node space
func continuous(v, lo, hi float64, n int) float64 {
	return (v - lo) / (hi - lo) * float64(n-1)
}

// ValueAt implements Grid. Points outside the extents are missing, and a
// linear sample touching any missing node is missing.
func (g *RegularGrid) ValueAt(p r3.Vec) float64 {
	if p.X < g.min.X || p.X > g.max.X ||
		p.Y < g.min.Y || p.Y > g.max.Y ||
		p.Z < g.min.Z || p.Z > g.max.Z {
		return g.missing
	}

	fx := continuous(p.X, g.min.X, g.max.X, g.dims[0])
	fy := continuous(p.Y, g.min.Y, g.max.Y, g.dims[1])
	fz := continuous(p.Z, g.min.Z, g.max.Z, g.dims[2])

	if g.order == 0 {
		return g.node(int(math.Round(fx)), int(math.Round(fy)), int(math.Round(fz)))
	}

	i, tx := cell(fx, g.dims[0])
	j, ty := cell(fy, g.dims[1])
	k, tz := cell(fz, g.dims[2])

	var corners [8]float64
	n := 0
	for dk := 0; dk < 2; dk++ {
		for dj := 0; dj < 2; dj++ {
			for di := 0; di < 2; di++ {
				v := g.node(i+di, j+dj, k+dk)
				if v == g.missing {
					return g.missing
				}
				corners[n] = v
				n++
			}
		}
	}

	c00 := lerp(corners[0], corners[1], tx)
	c10 := lerp(corners[2], corners[3], tx)
	c01 := lerp(corners[4], corners[5], tx)
	c11 := lerp(corners[6], corners[7], tx)
	c0 := lerp(c00, c10, ty)
	c1 := lerp(c01, c11, ty)
	return lerp(c0, c1, tz)
}

// cell splits a fractional node coordinate into the lower node index of its
// cell and the weight inside the cell
func cell(f float64, n int) (int, float64) {
	i := int(math.Floor(f))
	if i >= n-1 {
		i = n - 2
	}
	if i < 0 {
		i = 0
	}
	return i, f - float64(i)
}

func lerp(a, b, t float64) float64 {
	if t == 0 {
		return a
	}
	return a + (b-a)*t
}
