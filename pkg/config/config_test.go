package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavescope/pkg/data"
	"wavescope/pkg/wavelet"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("defaults differ (-want +got):\n%s", diff)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wavescope.yaml")

	cfg := DefaultConfig()
	cfg.Pyramid.Scales = 7
	cfg.Pyramid.Mask = "linear"
	cfg.Clip.Strength = "very-strong"
	cfg.Clip.Coefficients = []float64{3, 3, 2, 2, 1, 1}
	cfg.Detect.Connectivity = 8
	cfg.Detect.EdgeMargin = 3
	cfg.CCD.Gain = 1.5
	cfg.CCD.Readout = 4
	dark := 95.5
	cfg.CCD.DarkMean = &dark
	cfg.Reconstruct.Anscombe = true

	require.NoError(t, SaveConfig(cfg, path))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip differs (-saved +loaded):\n%s", diff)
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "gain: 1.5")
	assert.Contains(t, string(raw), "connectivity: 8")
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Pyramid.Scales)
	assert.Nil(t, cfg.CCD.DarkMean)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"scales", "pyramid:\n  scales: 13\n"},
		{"mask", "pyramid:\n  mask: gaussian\n"},
		{"mode", "pyramid:\n  mode: wiener\n"},
		{"strength", "clip:\n  strength: brutal\n"},
		{"coefficients", "clip:\n  coefficients: [3, 2]\n"},
		{"connectivity", "detect:\n  connectivity: 6\n"},
		{"gain", "ccd:\n  gain: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))
			_, err := LoadConfig(path)
			assert.ErrorIs(t, err, data.ErrInvalidArgument)
		})
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pyramid: [unterminated"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConverters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Processing.Workers = 3
	cfg.Pyramid.Mask = "linear"
	cfg.Pyramid.Mode = "psf"
	cfg.Clip.Strength = "gentle"
	cfg.Clip.MaxIterations = 5
	cfg.Clip.Delta = 0.25
	cfg.Clip.Background = true
	cfg.Reconstruct.Threshold = 0.5
	cfg.Detect.MinScales = 3

	opts := cfg.PyramidOptions()
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, 5, opts.MaxClipIterations)
	assert.True(t, opts.ClipBackground)
	assert.Equal(t, 3, opts.Detect.MinScales)

	params, err := cfg.ReconstructParams()
	require.NoError(t, err)
	assert.Equal(t, wavelet.MaskLinear, params.Mask)
	assert.Equal(t, wavelet.ConvPSF, params.Mode)
	assert.Equal(t, wavelet.ClipGentle, params.Clip)
	assert.Equal(t, cfg.Pyramid.Scales, params.Scales)
	assert.Equal(t, cfg.Reconstruct.MaxIterations, params.MaxIterations)
	assert.Equal(t, 0.25, params.ClipDelta)
	assert.Equal(t, 0.5, params.Threshold)
	assert.Equal(t, 5, params.MaxClipIterations)
	assert.True(t, params.ClipBackground)
	assert.Equal(t, data.DefaultCCD(), cfg.DetectorCCD())

	src, err := data.NewFloat(16, 16, nil)
	require.NoError(t, err)
	p, err := wavelet.New(src, 3, opts)
	require.NoError(t, err)

	dark := 12.0
	cfg.CCD.DarkMean = &dark
	cfg.CCD.Bias = 7
	require.NoError(t, cfg.Configure(p))
	assert.Equal(t, 7.0, p.CCD().Bias)
	v, ok := p.DarkMean()
	assert.True(t, ok)
	assert.Equal(t, 12.0, v)
}
