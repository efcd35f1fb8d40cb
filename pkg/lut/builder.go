// Package lut tabulates transfer functions into colour lookup tables.
package lut

import (
	"errors"
	"fmt"
	"math"

	"vaporrender/internal/models"
	"vaporrender/pkg/transfer"
)

// ErrConfiguration marks malformed rendering inputs such as an empty
// lookup table or an inverted value range. It is fatal to one draw only.
var ErrConfiguration = errors.New("configuration error")

// Builder converts transfer functions into lookup tables
type Builder struct{}

// NewBuilder creates a lookup table builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Build tabulates tf at its configured entry count and packages the result
// with the value range used for shader normalization.
func (b *Builder) Build(tf transfer.Function) (models.ColorLookupTable, error) {
	if tf == nil {
		return models.ColorLookupTable{}, fmt.Errorf("%w: no transfer function", ErrConfiguration)
	}

	n := tf.EntryCount()
	if n <= 0 {
		return models.ColorLookupTable{}, fmt.Errorf("%w: lookup table size %d", ErrConfiguration, n)
	}

	lo, hi := tf.ValueRange()
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return models.ColorLookupTable{}, fmt.Errorf("%w: non-finite value range [%g, %g]", ErrConfiguration, lo, hi)
	}
	if lo > hi {
		return models.ColorLookupTable{}, fmt.Errorf("%w: inverted value range [%g, %g]", ErrConfiguration, lo, hi)
	}

	rgba := tf.BuildLookupTable(n)
	if len(rgba) != n*4 {
		return models.ColorLookupTable{}, fmt.Errorf("%w: transfer function returned %d floats for %d entries",
			ErrConfiguration, len(rgba), n)
	}

	return models.ColorLookupTable{RGBA: rgba, Min: lo, Max: hi}, nil
}
