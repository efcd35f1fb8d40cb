// Package grid defines the scientific data source consumed by the render
// pipeline and provides an in-memory, multi-resolution implementation of it.
package grid

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDataUnavailable is returned when no grid can be produced for the
// requested timestep, variable, extents, refinement and compression levels.
var ErrDataUnavailable = errors.New("data unavailable")

// Grid samples a scalar field at continuous user coordinates
type Grid interface {
	// ValueAt returns the field value at p, or MissingValue when p has no data
	ValueAt(p r3.Vec) float64

	// MissingValue returns the sentinel marking cells without data
	MissingValue() float64

	// SetInterpolationOrder selects nearest-neighbour (0) or linear (1) sampling
	SetInterpolationOrder(order int)
}

// Source produces grids for a variable at a given timestep, resolution and
// level of detail. Implementations must tolerate concurrent GetGrid calls
// from independent renderers.
type Source interface {
	GetGrid(timestep int, variable string, min, max r3.Vec, refinementLevel, compressionLevel int) (Grid, error)
}
