package grid

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

type varKey struct {
	name     string
	timestep int
}

type levelKey struct {
	varKey
	refinement  int
	compression int
}

// MemorySource serves variables held in memory at several refinement and
// compression levels. Refinement level 0 is the coarsest; the finest level
// is the data as added. The highest compression level is lossless, lower
// levels quantize the field. Derived levels are built on first use and
// memoized.
type MemorySource struct {
	dims              [3]int
	min, max          r3.Vec
	refinementLevels  int
	compressionLevels int
	missing           float64

	mu      sync.Mutex
	vars    map[varKey][]float64
	derived map[levelKey]*RegularGrid
}

// NewMemorySource creates an empty source over the given domain
func NewMemorySource(dims [3]int, min, max r3.Vec, refinementLevels, compressionLevels int, missing float64) (*MemorySource, error) {
	if refinementLevels <= 0 || compressionLevels <= 0 {
		return nil, fmt.Errorf("level counts must be positive, got refinement=%d compression=%d",
			refinementLevels, compressionLevels)
	}
	if err := checkLayout(dims, min, max); err != nil {
		return nil, err
	}
	return &MemorySource{
		dims:              dims,
		min:               min,
		max:               max,
		refinementLevels:  refinementLevels,
		compressionLevels: compressionLevels,
		missing:           missing,
		vars:              make(map[varKey][]float64),
		derived:           make(map[levelKey]*RegularGrid),
	}, nil
}

// AddVariable stores full-resolution data for a variable at a timestep.
// The slice is retained and must not be modified afterwards.
func (s *MemorySource) AddVariable(name string, timestep int, data []float64) error {
	if timestep < 0 {
		return fmt.Errorf("timestep must be non-negative, got %d", timestep)
	}
	if len(data) != s.dims[0]*s.dims[1]*s.dims[2] {
		return fmt.Errorf("variable %s: data length %d does not match dims %v", name, len(data), s.dims)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := varKey{name, timestep}
	s.vars[key] = data
	for k := range s.derived {
		if k.varKey == key {
			delete(s.derived, k)
		}
	}
	return nil
}

// Variables returns the stored variable names in sorted order
func (s *MemorySource) Variables() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var names []string
	for k := range s.vars {
		if !seen[k.name] {
			seen[k.name] = true
			names = append(names, k.name)
		}
	}
	sort.Strings(names)
	return names
}

// Extents returns the domain of the source
func (s *MemorySource) Extents() (min, max r3.Vec) { return s.min, s.max }

// MissingValue returns the sentinel used by every grid of the source
func (s *MemorySource) MissingValue() float64 { return s.missing }

// GetGrid implements Source
func (s *MemorySource) GetGrid(timestep int, variable string, min, max r3.Vec, refinementLevel, compressionLevel int) (Grid, error) {
	if refinementLevel < 0 || refinementLevel >= s.refinementLevels {
		return nil, fmt.Errorf("%w: refinement level %d outside [0,%d)", ErrDataUnavailable, refinementLevel, s.refinementLevels)
	}
	if compressionLevel < 0 || compressionLevel >= s.compressionLevels {
		return nil, fmt.Errorf("%w: compression level %d outside [0,%d)", ErrDataUnavailable, compressionLevel, s.compressionLevels)
	}
	if min.X > max.X || min.Y > max.Y || min.Z > max.Z {
		return nil, fmt.Errorf("%w: inverted extents %v - %v", ErrDataUnavailable, min, max)
	}
	if max.X < s.min.X || min.X > s.max.X ||
		max.Y < s.min.Y || min.Y > s.max.Y ||
		max.Z < s.min.Z || min.Z > s.max.Z {
		return nil, fmt.Errorf("%w: extents %v - %v outside domain", ErrDataUnavailable, min, max)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vk := varKey{variable, timestep}
	data, ok := s.vars[vk]
	if !ok {
		return nil, fmt.Errorf("%w: variable %q at timestep %d", ErrDataUnavailable, variable, timestep)
	}

	lk := levelKey{vk, refinementLevel, compressionLevel}
	g, ok := s.derived[lk]
	if !ok {
		var err error
		g, err = s.buildLevel(data, refinementLevel, compressionLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
		}
		s.derived[lk] = g
	}
	return g.view(), nil
}

// buildLevel decimates the full-resolution data to a refinement level and
// quantizes it to a compression level
func (s *MemorySource) buildLevel(data []float64, refinement, compression int) (*RegularGrid, error) {
	factor := 1 << (s.refinementLevels - 1 - refinement)

	var dims [3]int
	for a, d := range s.dims {
		dims[a] = (d-1)/factor + 1
		if dims[a] < 2 {
			dims[a] = 2
		}
	}

	out := make([]float64, dims[0]*dims[1]*dims[2])
	for k := 0; k < dims[2]; k++ {
		sk := sourceIndex(k, dims[2], s.dims[2])
		for j := 0; j < dims[1]; j++ {
			sj := sourceIndex(j, dims[1], s.dims[1])
			for i := 0; i < dims[0]; i++ {
				si := sourceIndex(i, dims[0], s.dims[0])
				out[(k*dims[1]+j)*dims[0]+i] = data[(sk*s.dims[1]+sj)*s.dims[0]+si]
			}
		}
	}

	if compression < s.compressionLevels-1 {
		s.quantize(out, compression)
	}

	return NewRegularGrid(dims, s.min, s.max, out, s.missing)
}

// sourceIndex maps node i of an n-node axis onto the nearest node of the
// full-resolution axis with full nodes
func sourceIndex(i, n, full int) int {
	if n == full {
		return i
	}
	return int(math.Round(float64(i) * float64(full-1) / float64(n-1)))
}

// maxBinExponent keeps the quantization step above float64 resolution
const maxBinExponent = 52

// quantize rounds non-missing values to 2^(4+4*level) bins over their range
func (s *MemorySource) quantize(values []float64, level int) {
	present := s.present(values)
	if len(present) == 0 {
		return
	}
	lo, hi := floats.Min(present), floats.Max(present)
	if hi == lo {
		return
	}
	bins := math.Exp2(float64(min(4+4*level, maxBinExponent)))
	q := (hi - lo) / bins
	for i, v := range values {
		if v == s.missing {
			continue
		}
		values[i] = lo + math.Round((v-lo)/q)*q
	}
}

func (s *MemorySource) present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v != s.missing {
			out = append(out, v)
		}
	}
	return out
}

// FieldStats summarizes the non-missing values of a variable
type FieldStats struct {
	Min, Max     float64
	Mean, StdDev float64
	Missing      int
	Count        int
}

// Stats computes statistics over the full-resolution data of a variable
func (s *MemorySource) Stats(variable string, timestep int) (FieldStats, error) {
	s.mu.Lock()
	data, ok := s.vars[varKey{variable, timestep}]
	s.mu.Unlock()
	if !ok {
		return FieldStats{}, fmt.Errorf("%w: variable %q at timestep %d", ErrDataUnavailable, variable, timestep)
	}

	present := s.present(data)
	st := FieldStats{
		Missing: len(data) - len(present),
		Count:   len(present),
	}
	if len(present) == 0 {
		return st, nil
	}
	st.Min, st.Max = floats.Min(present), floats.Max(present)
	if len(present) > 1 {
		st.Mean, st.StdDev = stat.MeanStdDev(present, nil)
	} else {
		st.Mean = present[0]
	}
	return st, nil
}

// Range returns the minimum and maximum non-missing value of a variable,
// the default mapping range for its transfer function
func (s *MemorySource) Range(variable string, timestep int) (lo, hi float64, err error) {
	st, err := s.Stats(variable, timestep)
	if err != nil {
		return 0, 0, err
	}
	if st.Count == 0 {
		return 0, 1, nil
	}
	return st.Min, st.Max, nil
}
