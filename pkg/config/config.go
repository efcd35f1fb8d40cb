// Package config provides configuration loading and management for vaporrender.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"vaporrender/internal/models"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Render parameters shared by every renderer instance
	Render struct {
		// MaxTextureSize clamps the slice lattice resolution per axis
		MaxTextureSize int `yaml:"maxTextureSize"`

		// MaxVolumeSize clamps the volume lattice resolution per axis
		MaxVolumeSize int `yaml:"maxVolumeSize"`

		// Workers is the number of goroutines used by one resample pass
		Workers int `yaml:"workers"`

		// DrawStaleOnError draws the last good cache contents when a refresh fails
		DrawStaleOnError bool `yaml:"drawStaleOnError"`
	} `yaml:"render"`

	// Grid describes the synthetic dataset served by the CLI
	Grid struct {
		// Dims is the finest grid resolution along x, y and z
		Dims [3]int `yaml:"dims"`

		// ExtentsMin and ExtentsMax are the user-coordinate domain
		ExtentsMin [3]float64 `yaml:"extentsMin"`
		ExtentsMax [3]float64 `yaml:"extentsMax"`

		// Timesteps is the number of time indices per variable
		Timesteps int `yaml:"timesteps"`

		// RefinementLevels is the number of resolution levels
		RefinementLevels int `yaml:"refinementLevels"`

		// CompressionLevels is the number of level-of-detail levels
		CompressionLevels int `yaml:"compressionLevels"`

		// MissingValue marks cells without data
		MissingValue float64 `yaml:"missingValue"`

		// Variables lists the generated field names
		Variables []string `yaml:"variables"`
	} `yaml:"grid"`

	// Slice holds default slice renderer parameters
	Slice struct {
		Variable    string  `yaml:"variable"`
		SampleRate  int     `yaml:"sampleRate"`
		Orientation string  `yaml:"orientation"`
		Opacity     float64 `yaml:"opacity"`
	} `yaml:"slice"`

	// Volume holds default iso-surface renderer parameters
	Volume struct {
		Variable   string     `yaml:"variable"`
		SampleRate int        `yaml:"sampleRate"`
		Opacity    float64    `yaml:"opacity"`
		IsoValues  [4]float64 `yaml:"isoValues"`
		IsoEnabled [4]bool    `yaml:"isoEnabled"`
	} `yaml:"volume"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// LogLevel is one of debug, info, warn, error
		LogLevel string `yaml:"logLevel"`

		// PreviewPath is where the CLI writes the slice preview (empty disables it)
		PreviewPath string `yaml:"previewPath"`

		// PreviewSize is the edge length of the preview image in pixels
		PreviewSize int `yaml:"previewSize"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Render.MaxTextureSize = 8000
	cfg.Render.MaxVolumeSize = 512
	cfg.Render.Workers = runtime.NumCPU()
	cfg.Render.DrawStaleOnError = false

	cfg.Grid.Dims = [3]int{64, 64, 32}
	cfg.Grid.ExtentsMin = [3]float64{0, 0, 0}
	cfg.Grid.ExtentsMax = [3]float64{100, 100, 20}
	cfg.Grid.Timesteps = 4
	cfg.Grid.RefinementLevels = 3
	cfg.Grid.CompressionLevels = 3
	cfg.Grid.MissingValue = 1e37
	cfg.Grid.Variables = []string{"T", "U", "V"}

	cfg.Slice.Variable = "T"
	cfg.Slice.SampleRate = 200
	cfg.Slice.Orientation = "xy"
	cfg.Slice.Opacity = 1.0

	cfg.Volume.Variable = "T"
	cfg.Volume.SampleRate = 64
	cfg.Volume.Opacity = 1.0
	cfg.Volume.IsoValues = [4]float64{0.5, 0, 0, 0}
	cfg.Volume.IsoEnabled = [4]bool{true, false, false, false}

	cfg.Output.Verbose = false
	cfg.Output.LogLevel = "info"
	cfg.Output.PreviewPath = ""
	cfg.Output.PreviewSize = 512

	return cfg
}

// Validate reports the first malformed value
func (c *Config) Validate() error {
	if c.Render.MaxTextureSize <= 0 {
		return fmt.Errorf("render.maxTextureSize must be positive, got %d", c.Render.MaxTextureSize)
	}
	if c.Render.MaxVolumeSize <= 0 {
		return fmt.Errorf("render.maxVolumeSize must be positive, got %d", c.Render.MaxVolumeSize)
	}
	for i, d := range c.Grid.Dims {
		if d < 2 {
			return fmt.Errorf("grid.dims[%d] must be at least 2, got %d", i, d)
		}
		if c.Grid.ExtentsMin[i] >= c.Grid.ExtentsMax[i] {
			return fmt.Errorf("grid extents are empty along axis %d", i)
		}
	}
	if c.Grid.Timesteps <= 0 {
		return fmt.Errorf("grid.timesteps must be positive, got %d", c.Grid.Timesteps)
	}
	if c.Grid.RefinementLevels <= 0 || c.Grid.CompressionLevels <= 0 {
		return fmt.Errorf("grid refinement and compression level counts must be positive")
	}
	if len(c.Grid.Variables) == 0 {
		return fmt.Errorf("grid.variables must not be empty")
	}
	if _, err := models.ParseOrientation(c.Slice.Orientation); err != nil {
		return fmt.Errorf("slice.orientation: %w", err)
	}
	if c.Slice.SampleRate <= 0 || c.Volume.SampleRate <= 0 {
		return fmt.Errorf("sample rates must be positive")
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
