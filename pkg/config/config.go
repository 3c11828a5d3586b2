// Package config provides configuration loading and management for wavescope.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"wavescope/internal/monitoring"
	"wavescope/pkg/data"
	"wavescope/pkg/detect"
	"wavescope/pkg/reconstruct"
	"wavescope/pkg/wavelet"
)

// Config represents the engine configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers bounds the goroutines used per convolution pass
		Workers int `yaml:"workers"`
	} `yaml:"processing"`

	// Pyramid parameters
	Pyramid struct {
		// Scales is the number of scales, 2 to 12
		Scales int `yaml:"scales"`

		// Mask is "linear" or "bicubic"
		Mask string `yaml:"mask"`

		// Mode is "atrous" or "psf"
		Mode string `yaml:"mode"`
	} `yaml:"pyramid"`

	// K-sigma clipping parameters
	Clip struct {
		// Strength names a preset, from "very-gentle" to "very-very-strong"
		Strength string `yaml:"strength"`

		// Delta is the sigma convergence tolerance
		Delta float64 `yaml:"delta"`

		MaxIterations int `yaml:"maxIterations"`

		// Background estimates sigma from the unflagged pixels instead of
		// the flagged ones
		Background bool `yaml:"background"`

		// Coefficients replace the preset when not empty
		Coefficients []float64 `yaml:"coefficients,omitempty"`
	} `yaml:"clip"`

	// Detect holds the structure detection parameters
	Detect detect.Params `yaml:"detect"`

	// CCD describes the detector
	CCD struct {
		data.CCD `yaml:",inline"`

		// DarkMean overrides the sampled background when set
		DarkMean *float64 `yaml:"darkMean,omitempty"`
	} `yaml:"ccd"`

	// Reconstruct holds the iterative reconstruction parameters
	Reconstruct struct {
		Threshold     float64 `yaml:"threshold"`
		MaxIterations int     `yaml:"maxIterations"`
		ClearNegative bool    `yaml:"clearNegative"`
		Anscombe      bool    `yaml:"anscombe"`
	} `yaml:"reconstruct"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Workers = runtime.NumCPU()

	cfg.Pyramid.Scales = 5
	cfg.Pyramid.Mask = wavelet.MaskBicubic.String()
	cfg.Pyramid.Mode = wavelet.ConvAtrous.String()

	cfg.Clip.Strength = "normal"
	cfg.Clip.Delta = 0.01
	cfg.Clip.MaxIterations = 32

	cfg.Detect = detect.DefaultParams()
	cfg.CCD.CCD = data.DefaultCCD()

	cfg.Reconstruct.Threshold = 0.01
	cfg.Reconstruct.MaxIterations = 10
	cfg.Reconstruct.ClearNegative = true

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
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

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, raw, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks every section for values the engine would reject.
func (c *Config) Validate() error {
	if c.Pyramid.Scales < 2 || c.Pyramid.Scales > wavelet.MaxScales {
		return fmt.Errorf("pyramid.scales %d: %w", c.Pyramid.Scales, data.ErrInvalidArgument)
	}
	if _, err := c.Mask(); err != nil {
		return err
	}
	if _, err := c.Mode(); err != nil {
		return err
	}
	if _, err := c.ClipStrength(); err != nil {
		return err
	}
	if n := len(c.Clip.Coefficients); n > 0 && n < c.Pyramid.Scales-1 {
		return fmt.Errorf("clip.coefficients has %d entries for %d scales: %w", n, c.Pyramid.Scales, data.ErrInvalidArgument)
	}
	if c.Clip.Delta < 0 || c.Reconstruct.Threshold < 0 {
		return fmt.Errorf("negative clip delta or reconstruct threshold: %w", data.ErrInvalidArgument)
	}
	if c.Detect.Connectivity != 4 && c.Detect.Connectivity != 8 {
		return fmt.Errorf("detect.connectivity %d: %w", c.Detect.Connectivity, data.ErrInvalidArgument)
	}
	if c.CCD.Gain <= 0 {
		return fmt.Errorf("ccd.gain %g: %w", c.CCD.Gain, data.ErrInvalidArgument)
	}
	return nil
}

// Mask returns the configured smoothing kernel.
func (c *Config) Mask() (wavelet.Mask, error) {
	return wavelet.ParseMask(c.Pyramid.Mask)
}

// Mode returns the configured convolution mode.
func (c *Config) Mode() (wavelet.ConvMode, error) {
	return wavelet.ParseConvMode(c.Pyramid.Mode)
}

// ClipStrength returns the configured clip preset.
func (c *Config) ClipStrength() (wavelet.ClipStrength, error) {
	return wavelet.ParseClipStrength(c.Clip.Strength)
}

// DetectorCCD returns the detector parameters.
func (c *Config) DetectorCCD() data.CCD {
	return c.CCD.CCD
}

// PyramidOptions returns the options for wavelet.New.
func (c *Config) PyramidOptions() wavelet.Options {
	opts := wavelet.DefaultOptions()
	if c.Processing.Workers > 0 {
		opts.Workers = c.Processing.Workers
	}
	if c.Clip.MaxIterations > 0 {
		opts.MaxClipIterations = c.Clip.MaxIterations
	}
	opts.ClipBackground = c.Clip.Background
	opts.Detect = c.Detect
	return opts
}

// ReconstructParams returns the parameters for reconstruct.NewReconstructor.
func (c *Config) ReconstructParams() (reconstruct.Params, error) {
	params := reconstruct.DefaultParams()
	var err error
	if params.Mask, err = c.Mask(); err != nil {
		return params, err
	}
	if params.Mode, err = c.Mode(); err != nil {
		return params, err
	}
	if params.Clip, err = c.ClipStrength(); err != nil {
		return params, err
	}
	params.Coefficients = c.Clip.Coefficients
	params.ClipDelta = c.Clip.Delta
	if c.Clip.MaxIterations > 0 {
		params.MaxClipIterations = c.Clip.MaxIterations
	}
	params.ClipBackground = c.Clip.Background
	params.Threshold = c.Reconstruct.Threshold
	params.Scales = c.Pyramid.Scales
	params.MaxIterations = c.Reconstruct.MaxIterations
	params.ClearNegative = c.Reconstruct.ClearNegative
	params.Anscombe = c.Reconstruct.Anscombe
	params.CCD = c.CCD.CCD
	params.Workers = c.Processing.Workers
	return params, nil
}

// Configure applies the calibration section to a pyramid.
func (c *Config) Configure(p *wavelet.Pyramid) error {
	if err := p.SetCCD(c.CCD.CCD); err != nil {
		return err
	}
	if c.CCD.DarkMean != nil {
		p.SetDarkMean(*c.CCD.DarkMean)
	}
	return nil
}

// ApplyLogging mutes the diagnostic logger unless output is verbose.
func (c *Config) ApplyLogging() {
	if c.Output.Verbose {
		monitoring.SetLogger(log.Printf)
		return
	}
	monitoring.SetLogger(nil)
}
