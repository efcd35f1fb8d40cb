package shaders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaporrender/pkg/gpu"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{gpu.Program2DData, gpu.ProgramVolumeIso}, Names())
}

func TestProgramsDeclareDriverUniforms(t *testing.T) {
	common := []string{
		gpu.UniformMVP,
		gpu.UniformConstantOpacity,
		gpu.UniformMinLUTValue,
		gpu.UniformMaxLUTValue,
		gpu.UniformDataTexture,
		gpu.UniformColormap,
	}

	for _, name := range Names() {
		src, err := Get(name)
		require.NoError(t, err)
		all := src.Vertex + src.Fragment
		for _, u := range common {
			assert.Contains(t, all, u, "%s declares %s", name, u)
		}
	}

	iso, err := Get(gpu.ProgramVolumeIso)
	require.NoError(t, err)
	for _, u := range []string{gpu.UniformIsoValue, "isoEnabled", gpu.UniformConstantColor, gpu.UniformUseColormap, gpu.UniformCameraPos} {
		assert.Contains(t, iso.Fragment, u)
	}
}

func TestGetUnknown(t *testing.T) {
	_, err := Get("Wireframe")
	assert.Error(t, err)
}
