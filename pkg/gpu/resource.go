package gpu

import "fmt"

// Resource guards one GPU handle and releases it exactly once
type Resource struct {
	backend Backend
	kind    ResourceKind
	handle  Handle
}

// Acquire generates a handle of the given kind
func Acquire(b Backend, kind ResourceKind) (*Resource, error) {
	h, err := b.Generate(kind)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", kind, err)
	}
	if h == 0 {
		return nil, fmt.Errorf("%w: generate %s returned a zero handle", ErrResource, kind)
	}
	return &Resource{backend: b, kind: kind, handle: h}, nil
}

// Handle returns the guarded handle, or zero after release
func (r *Resource) Handle() Handle {
	if r == nil {
		return 0
	}
	return r.handle
}

// Kind returns the resource kind
func (r *Resource) Kind() ResourceKind { return r.kind }

// Live reports whether the handle has not been released yet
func (r *Resource) Live() bool {
	return r != nil && r.handle != 0
}

// Release deletes the handle. Later calls, and calls on a nil Resource, do nothing.
func (r *Resource) Release() error {
	if !r.Live() {
		return nil
	}
	h := r.handle
	r.handle = 0
	if err := r.backend.Delete(r.kind, h); err != nil {
		return fmt.Errorf("delete %s %d: %w", r.kind, h, err)
	}
	return nil
}
