// Package rendercache holds the most recent parameter snapshot together with
// the resampled field, geometry and lookup table derived from it, and
// decides when they must be rebuilt.
package rendercache

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"vaporrender/internal/models"
	"vaporrender/pkg/grid"
	"vaporrender/pkg/logging"
	"vaporrender/pkg/lut"
	"vaporrender/pkg/resample"
	"vaporrender/pkg/transfer"
)

// Params exposes the live parameter state a cache snapshots. Concrete
// parameter objects are resolved to this view once, when the renderer is
// created.
type Params interface {
	Type() models.ParamsType
	VariableName() string
	HeightVariableName() string
	Timestep() int
	RefinementLevel() int
	CompressionLevel() int
	SampleRate() int
	Orientation() models.Orientation
	Extents() (min, max r3.Vec)
	ConstantOpacity() float32
	TransferFunction(variable string) transfer.Function
}

// State is the validity of the cached resources
type State int

const (
	// Uninitialized caches hold nothing drawable
	Uninitialized State = iota
	// Valid caches match the last refreshed parameters
	Valid
	// Stale caches hold the last good data after a failed refresh
	Stale
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Valid:
		return "valid"
	case Stale:
		return "stale"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stats counts refresh outcomes
type Stats struct {
	Refreshes uint64
	Failures  uint64
}

// Cache owns one snapshot, field, geometry and lookup table, all from the
// same refresh. It is owned by a single renderer and is not safe for
// concurrent use.
type Cache struct {
	engine  *resample.Engine
	builder *lut.Builder

	state      State
	snapshot   models.ParameterSnapshot
	field      models.SampledField
	geometry   models.Geometry
	table      models.ColorLookupTable
	generation uint64
	stats      Stats
}

// New creates an empty cache
func New(engine *resample.Engine, builder *lut.Builder) *Cache {
	if engine == nil {
		engine = resample.New(resample.Options{})
	}
	if builder == nil {
		builder = lut.NewBuilder()
	}
	return &Cache{engine: engine, builder: builder}
}

// NewSnapshot freezes the live parameters and a lookup table built from
// their transfer function. The table is copied.
func NewSnapshot(live Params, table models.ColorLookupTable) models.ParameterSnapshot {
	lo, hi := live.Extents()
	return models.ParameterSnapshot{
		Kind:               live.Type(),
		VariableName:       live.VariableName(),
		HeightVariableName: live.HeightVariableName(),
		Timestep:           live.Timestep(),
		RefinementLevel:    live.RefinementLevel(),
		CompressionLevel:   live.CompressionLevel(),
		SampleRate:         live.SampleRate(),
		Orientation:        live.Orientation(),
		BoxMin:             lo,
		BoxMax:             hi,
		TFLookup:           append([]float32(nil), table.RGBA...),
		TFRange:            [2]float64{table.Min, table.Max},
		ConstantOpacity:    live.ConstantOpacity(),
	}
}

// IsDirty reports whether any live parameter differs from the cached
// snapshot. Lookup tables are compared exactly. A transfer function that
// cannot be tabulated counts as dirty so the next Refresh reports it.
// Stale caches stay dirty until a refresh succeeds.
func (c *Cache) IsDirty(live Params) bool {
	if c.state != Valid {
		return true
	}
	table, err := c.builder.Build(live.TransferFunction(live.VariableName()))
	if err != nil {
		return true
	}
	return !NewSnapshot(live, table).Equal(c.snapshot)
}

// Refresh rebuilds every cached resource from the live parameters. The new
// snapshot, field, geometry and table are committed together, only when
// both the lookup table and the resample succeed; otherwise the previous
// contents are kept and the error is returned.
func (c *Cache) Refresh(ctx context.Context, live Params, src grid.Source, tf transfer.Function) error {
	table, err := c.builder.Build(tf)
	if err != nil {
		return c.fail(fmt.Errorf("build lookup table for %s: %w", live.VariableName(), err))
	}

	snap := NewSnapshot(live, table)
	field, geom, err := c.engine.Sample(ctx, src, snap)
	if err != nil {
		return c.fail(fmt.Errorf("resample %s: %w", snap.VariableName, err))
	}

	c.snapshot = snap
	c.field = field
	c.geometry = geom
	c.table = table
	c.state = Valid
	c.generation++
	c.stats.Refreshes++

	logging.Logger().Debug("render cache refreshed",
		"variable", snap.VariableName,
		"timestep", snap.Timestep,
		"width", field.Width, "height", field.Height, "depth", field.Depth,
		"generation", c.generation)
	return nil
}

func (c *Cache) fail(err error) error {
	c.stats.Failures++
	if c.state == Valid {
		c.state = Stale
	}
	logging.Logger().Warn("render cache refresh failed", "state", c.state, "error", err)
	return err
}

// Reset drops all cached data
func (c *Cache) Reset() {
	*c = Cache{engine: c.engine, builder: c.builder, generation: c.generation, stats: c.stats}
}

// State returns the cache validity
func (c *Cache) State() State { return c.state }

// Drawable reports whether the cache holds data from a successful refresh
func (c *Cache) Drawable() bool { return c.state != Uninitialized }

// Snapshot returns the committed parameter snapshot
func (c *Cache) Snapshot() models.ParameterSnapshot { return c.snapshot }

// Field returns the committed sampled field
func (c *Cache) Field() models.SampledField { return c.field }

// Geometry returns the committed geometry
func (c *Cache) Geometry() models.Geometry { return c.geometry }

// LUT returns the committed colour lookup table
func (c *Cache) LUT() models.ColorLookupTable { return c.table }

// Generation increases by one on every successful refresh
func (c *Cache) Generation() uint64 { return c.generation }

// Stats returns refresh counters
func (c *Cache) Stats() Stats { return c.stats }
