package gpu

import "fmt"

// Program names
const (
	Program2DData    = "2DData"
	ProgramVolumeIso = "VolumeIso"
)

// Uniform names shared by the driver and the shader sources
const (
	UniformMVP             = "MVP"
	UniformConstantOpacity = "constantOpacity"
	UniformMinLUTValue     = "minLUTValue"
	UniformMaxLUTValue     = "maxLUTValue"
	UniformIsoValue        = "isoValue"
	UniformConstantColor   = "constantColor"
	UniformUseColormap     = "useColormap"
	UniformCameraPos       = "cameraPos"
	UniformBoxMin          = "boxMin"
	UniformBoxMax          = "boxMax"
	UniformDataTexture     = "dataValues"
	UniformColormap        = "colormap"
)

// MaxIsoValues is the number of iso-surfaces a volume program evaluates
const MaxIsoValues = 4

// Texture units used by the driver
const (
	DataTextureUnit     = 0
	ColormapTextureUnit = 1
)

// Vertex attribute locations
const (
	PositionAttrib = 0
	TexCoordAttrib = 1
)

// IsoEnabledUniform names the enable flag of iso value i
func IsoEnabledUniform(i int) string {
	return fmt.Sprintf("isoEnabled[%d]", i)
}
