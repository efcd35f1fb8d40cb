package gpu_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaporrender/pkg/gpu"
	"vaporrender/pkg/gpu/memgpu"
)

func TestResourceReleasesOnce(t *testing.T) {
	b := memgpu.New()

	r, err := gpu.Acquire(b, gpu.Texture)
	require.NoError(t, err)
	assert.True(t, r.Live())
	assert.NotZero(t, r.Handle())
	assert.Equal(t, 1, b.LiveOf(gpu.Texture))

	require.NoError(t, r.Release())
	require.NoError(t, r.Release())
	assert.False(t, r.Live())
	assert.Zero(t, r.Handle())
	assert.Equal(t, 1, b.Deleted)
	assert.Zero(t, b.InvalidDeletes)
	assert.Zero(t, b.Live())
}

func TestNilResource(t *testing.T) {
	var r *gpu.Resource
	assert.False(t, r.Live())
	assert.Zero(t, r.Handle())
	assert.NoError(t, r.Release())
}

func TestAcquireFailure(t *testing.T) {
	b := memgpu.New()
	b.FailGenerate = gpu.ErrResource

	r, err := gpu.Acquire(b, gpu.Buffer)
	assert.Nil(t, r)
	assert.ErrorIs(t, err, gpu.ErrResource)
}

func TestMemBackendRejectsDoubleDelete(t *testing.T) {
	b := memgpu.New()
	h, err := b.Generate(gpu.Buffer)
	require.NoError(t, err)

	require.NoError(t, b.Delete(gpu.Buffer, h))
	err = b.Delete(gpu.Buffer, h)
	assert.True(t, errors.Is(err, gpu.ErrResource))
	assert.Equal(t, 1, b.InvalidDeletes)
}

func TestMemBackendUnknownProgram(t *testing.T) {
	b := memgpu.New()
	_, err := b.Program("Wireframe")
	assert.ErrorIs(t, err, gpu.ErrResource)

	p, err := b.Program(gpu.Program2DData)
	require.NoError(t, err)
	assert.Equal(t, gpu.Program2DData, p.Name())
}

func TestIsoEnabledUniform(t *testing.T) {
	assert.Equal(t, "isoEnabled[2]", gpu.IsoEnabledUniform(2))
}
