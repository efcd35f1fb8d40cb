// Package resample walks a sampling lattice over a parameter snapshot's
// extents, queries a grid at every lattice point and produces the dense
// (value, missing flag) array and bounding geometry uploaded to the GPU.
package resample

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"vaporrender/internal/models"
	"vaporrender/pkg/grid"
	"vaporrender/pkg/lut"
)

const (
	// DefaultMaxTextureSize bounds the slice lattice per axis
	DefaultMaxTextureSize = 8000

	// DefaultMaxVolumeSize bounds the volume lattice per axis
	DefaultMaxVolumeSize = 512

	// interpolationOrder is fixed at linear for all sampling
	interpolationOrder = 1
)

// Options configures an Engine. Zero values select defaults.
type Options struct {
	MaxTextureSize int
	MaxVolumeSize  int
	Workers        int
}

// Engine resamples grids onto slice and volume lattices
type Engine struct {
	opts Options
}

// New creates an engine, filling unset options with defaults
func New(opts Options) *Engine {
	if opts.MaxTextureSize <= 0 {
		opts.MaxTextureSize = DefaultMaxTextureSize
	}
	if opts.MaxVolumeSize <= 0 {
		opts.MaxVolumeSize = DefaultMaxVolumeSize
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Engine{opts: opts}
}

// Options returns the effective options
func (e *Engine) Options() Options { return e.opts }

// TextureSize is the slice lattice edge for a sample rate
func (e *Engine) TextureSize(sampleRate int) int {
	return min(sampleRate, e.opts.MaxTextureSize)
}

// VolumeSize is the volume lattice edge for a sample rate
func (e *Engine) VolumeSize(sampleRate int) int {
	return min(sampleRate, e.opts.MaxVolumeSize)
}

// Sample resamples the snapshot's variable from src. Slice snapshots yield a
// W×H×1 field and a quad; volume snapshots a W×H×D field and a box. On any
// failure nothing is returned.
func (e *Engine) Sample(ctx context.Context, src grid.Source, snap models.ParameterSnapshot) (models.SampledField, models.Geometry, error) {
	if err := validate(snap); err != nil {
		return models.SampledField{}, models.Geometry{}, err
	}
	if src == nil {
		return models.SampledField{}, models.Geometry{}, fmt.Errorf("%w: no data source", grid.ErrDataUnavailable)
	}

	g, err := src.GetGrid(snap.Timestep, snap.VariableName, snap.BoxMin, snap.BoxMax,
		snap.RefinementLevel, snap.CompressionLevel)
	if err == nil && g == nil {
		err = errors.New("source returned no grid")
	}
	if err != nil {
		if !errors.Is(err, grid.ErrDataUnavailable) {
			err = fmt.Errorf("%w: %v", grid.ErrDataUnavailable, err)
		}
		return models.SampledField{}, models.Geometry{},
			fmt.Errorf("acquire %s at timestep %d: %w", snap.VariableName, snap.Timestep, err)
	}
	g.SetInterpolationOrder(interpolationOrder)

	var (
		field models.SampledField
		geom  models.Geometry
	)
	if snap.Kind.IsVolume() {
		n := e.VolumeSize(snap.SampleRate)
		field = models.NewSampledField(n, n, n)
		geom = BoxGeometry(snap.BoxMin, snap.BoxMax)
	} else {
		n := e.TextureSize(snap.SampleRate)
		field = models.NewSampledField(n, n, 1)
		geom = SliceGeometry(snap.Orientation, snap.BoxMin, snap.BoxMax)
	}

	if err := e.fill(ctx, g, snap, field); err != nil {
		return models.SampledField{}, models.Geometry{}, err
	}
	return field, geom, nil
}

func validate(snap models.ParameterSnapshot) error {
	if snap.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", lut.ErrConfiguration, snap.SampleRate)
	}
	if snap.BoxMin.X > snap.BoxMax.X || snap.BoxMin.Y > snap.BoxMax.Y || snap.BoxMin.Z > snap.BoxMax.Z {
		return fmt.Errorf("%w: inverted box %v - %v", lut.ErrConfiguration, snap.BoxMin, snap.BoxMax)
	}
	if !snap.Kind.IsVolume() {
		switch snap.Orientation {
		case models.XY, models.XZ, models.YZ:
		default:
			return fmt.Errorf("%w: %s", lut.ErrConfiguration, snap.Orientation)
		}
	}
	return nil
}

// fill samples every lattice cell. The slow axis is split into contiguous
// bands, one per worker; each cell is written by exactly one worker.
func (e *Engine) fill(ctx context.Context, g grid.Grid, snap models.ParameterSnapshot, field models.SampledField) error {
	rows := field.Height * field.Depth
	workers := min(e.opts.Workers, rows)
	missing := g.MissingValue()
	steps := latticeSteps(snap)

	eg, ctx := errgroup.WithContext(ctx)
	band := (rows + workers - 1) / workers
	for start := 0; start < rows; start += band {
		end := min(start+band, rows)
		eg.Go(func() error {
			for row := start; row < end; row++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				j, k := row%field.Height, row/field.Height
				for i := 0; i < field.Width; i++ {
					var p r3.Vec
					if field.Depth > 1 {
						p = volumeCoordinate(snap.BoxMin, steps, i, j, k)
					} else {
						p = sliceCoordinate(snap.Orientation, snap.BoxMin, steps, i, j)
					}
					idx := field.Index(i, j, k)
					v := g.ValueAt(p)
					if v == missing {
						field.Values[idx] = models.MissingSentinel
						field.Values[idx+1] = 1
						continue
					}
					field.Values[idx] = float32(v)
					field.Values[idx+1] = 0
				}
			}
			return nil
		})
	}
	return eg.Wait()
}
