package models

import "gonum.org/v1/gonum/spatial/r3"

// MissingSentinel is stored as the value of a sample whose grid value
// equals the grid's missing value. The flag channel carries the real signal.
const MissingSentinel = 1.0

// SampledField is the resampled data uploaded to the GPU
type SampledField struct {
	// Width, Height, Depth are the lattice dimensions (Depth is 1 for slices)
	Width, Height, Depth int

	// Values holds (value, missing flag) pairs in row-major order:
	// the pair of cell (i, j, k) starts at ((k*Height+j)*Width+i)*2
	Values []float32
}

// NewSampledField allocates a zeroed field of the given dimensions
func NewSampledField(width, height, depth int) SampledField {
	return SampledField{
		Width:  width,
		Height: height,
		Depth:  depth,
		Values: make([]float32, width*height*depth*2),
	}
}

// Index returns the offset of the (value, flag) pair for cell (i, j, k)
func (f SampledField) Index(i, j, k int) int {
	return ((k*f.Height+j)*f.Width + i) * 2
}

// At returns the value and missing flag of cell (i, j, k)
func (f SampledField) At(i, j, k int) (value, missing float32) {
	idx := f.Index(i, j, k)
	return f.Values[idx], f.Values[idx+1]
}

// Cells returns the number of lattice cells
func (f SampledField) Cells() int {
	return f.Width * f.Height * f.Depth
}

// Empty reports whether the field holds no samples
func (f SampledField) Empty() bool {
	return len(f.Values) == 0
}

// Geometry describes the bounding quad of a slice or the bounding box of a volume
type Geometry struct {
	// Vertices are positions in data coordinates
	Vertices []r3.Vec

	// Indices form triangles over Vertices
	Indices []uint32
}

// Flatten returns the vertex positions as x, y, z triples
func (g Geometry) Flatten() []float64 {
	out := make([]float64, 0, len(g.Vertices)*3)
	for _, v := range g.Vertices {
		out = append(out, v.X, v.Y, v.Z)
	}
	return out
}

// ColorLookupTable is the precomputed colour/opacity ramp indexed by
// normalized data value
type ColorLookupTable struct {
	// RGBA holds four floats per entry
	RGBA []float32

	// Min and Max are the data values mapped to the first and last entry
	Min, Max float64
}

// Len returns the number of entries
func (t ColorLookupTable) Len() int {
	return len(t.RGBA) / 4
}

// Entry returns the colour of entry i
func (t ColorLookupTable) Entry(i int) (r, g, b, a float32) {
	return t.RGBA[i*4], t.RGBA[i*4+1], t.RGBA[i*4+2], t.RGBA[i*4+3]
}
