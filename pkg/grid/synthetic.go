package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// SyntheticOptions describes an analytic dataset
type SyntheticOptions struct {
	Dims              [3]int
	Min, Max          r3.Vec
	Timesteps         int
	RefinementLevels  int
	CompressionLevels int
	MissingValue      float64
	Variables         []string
}

// NewSyntheticSource fills a MemorySource with smooth travelling waves, one
// phase-shifted pattern per variable. Nodes in the low-x, low-y corner
// column are missing, mimicking terrain masking.
func NewSyntheticSource(opts SyntheticOptions) (*MemorySource, error) {
	if opts.Timesteps <= 0 {
		return nil, fmt.Errorf("timesteps must be positive, got %d", opts.Timesteps)
	}
	src, err := NewMemorySource(opts.Dims, opts.Min, opts.Max, opts.RefinementLevels, opts.CompressionLevels, opts.MissingValue)
	if err != nil {
		return nil, err
	}

	nx, ny, nz := opts.Dims[0], opts.Dims[1], opts.Dims[2]
	for v, name := range opts.Variables {
		phase := float64(v) * math.Pi / 3
		for ts := 0; ts < opts.Timesteps; ts++ {
			data := make([]float64, nx*ny*nz)
			shift := float64(ts) * 0.1
			for k := 0; k < nz; k++ {
				z := float64(k) / float64(nz-1)
				for j := 0; j < ny; j++ {
					y := float64(j) / float64(ny-1)
					for i := 0; i < nx; i++ {
						x := float64(i) / float64(nx-1)
						idx := (k*ny+j)*nx + i
						if x < 0.05 && y < 0.05 {
							data[idx] = opts.MissingValue
							continue
						}
						data[idx] = math.Sin(2*math.Pi*(x+shift)+phase)*math.Cos(2*math.Pi*y)*math.Exp(-z) + z
					}
				}
			}
			if err := src.AddVariable(name, ts, data); err != nil {
				return nil, err
			}
		}
	}
	return src, nil
}
