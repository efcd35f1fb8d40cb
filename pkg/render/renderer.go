package render

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"vaporrender/internal/models"
	"vaporrender/pkg/gpu"
	"vaporrender/pkg/logging"
	"vaporrender/pkg/lut"
	"vaporrender/pkg/params"
	"vaporrender/pkg/rendercache"
)

// Renderer class names
const (
	SliceClass      = "Slice"
	IsoSurfaceClass = "IsoSurface"
)

// Renderer draws one parameter object
type Renderer interface {
	ClassType() string
	ParamsType() models.ParamsType
	Paint(ctx context.Context, frame Frame) error
	Cache() *rendercache.Cache
	Stats() FrameStats
	Close() error
}

// SliceRenderer draws an axis-aligned slice through the 2DData program
type SliceRenderer struct {
	*Driver
	params *params.SliceParams
}

// NewSliceRenderer creates a slice renderer over p
func NewSliceRenderer(p *params.SliceParams, deps Deps) (*SliceRenderer, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil slice parameters", lut.ErrConfiguration)
	}
	d, err := NewDriver(SliceClass, gpu.Program2DData, p, deps)
	if err != nil {
		return nil, err
	}
	return &SliceRenderer{Driver: d, params: p}, nil
}

func (r *SliceRenderer) ClassType() string             { return SliceClass }
func (r *SliceRenderer) ParamsType() models.ParamsType { return models.SliceParamsType }

// Params returns the live slice parameters
func (r *SliceRenderer) Params() *params.SliceParams { return r.params }

// VolumeIsoRenderer draws iso-surfaces of a volume through the VolumeIso program
type VolumeIsoRenderer struct {
	*Driver
	params *params.VolumeIsoParams
}

// NewVolumeIsoRenderer creates an iso-surface renderer over p
func NewVolumeIsoRenderer(p *params.VolumeIsoParams, deps Deps) (*VolumeIsoRenderer, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil iso-surface parameters", lut.ErrConfiguration)
	}
	d, err := NewDriver(IsoSurfaceClass, gpu.ProgramVolumeIso, p, deps)
	if err != nil {
		return nil, err
	}
	return &VolumeIsoRenderer{Driver: d, params: p}, nil
}

func (r *VolumeIsoRenderer) ClassType() string             { return IsoSurfaceClass }
func (r *VolumeIsoRenderer) ParamsType() models.ParamsType { return models.VolumeIsoParamsType }

// Params returns the live iso-surface parameters
func (r *VolumeIsoRenderer) Params() *params.VolumeIsoParams { return r.params }

// Factory builds a renderer for a parameter object of its registered type
type Factory func(p rendercache.Params, deps Deps) (Renderer, error)

// Registry maps parameter types to renderer factories
type Registry struct {
	mu        sync.RWMutex
	factories map[models.ParamsType]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[models.ParamsType]Factory)}
}

// Register installs the factory for a parameter type, replacing any previous one
func (r *Registry) Register(t models.ParamsType, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[t] = f
}

// New creates the renderer registered for p's type
func (r *Registry) New(p rendercache.Params, deps Deps) (Renderer, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil parameters", lut.ErrConfiguration)
	}
	r.mu.RLock()
	f, ok := r.factories[p.Type()]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no renderer registered for %q", lut.ErrConfiguration, p.Type())
	}
	rnd, err := f(p, deps)
	if err != nil {
		return nil, err
	}
	logging.Logger().Info("renderer created", "class", rnd.ClassType(), "params", p.Type(), "variable", p.VariableName())
	return rnd, nil
}

// Types lists the registered parameter types in order
func (r *Registry) Types() []models.ParamsType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]models.ParamsType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// RegisterDefaults installs the slice and iso-surface renderers
func RegisterDefaults(reg *Registry) {
	reg.Register(models.SliceParamsType, func(p rendercache.Params, deps Deps) (Renderer, error) {
		sp, ok := p.(*params.SliceParams)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not slice parameters", lut.ErrConfiguration, p)
		}
		r, err := NewSliceRenderer(sp, deps)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
	reg.Register(models.VolumeIsoParamsType, func(p rendercache.Params, deps Deps) (Renderer, error) {
		vp, ok := p.(*params.VolumeIsoParams)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not iso-surface parameters", lut.ErrConfiguration, p)
		}
		r, err := NewVolumeIsoRenderer(vp, deps)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}
