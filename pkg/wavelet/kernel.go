package wavelet

import (
	"fmt"
	"strings"

	"wavescope/pkg/data"
)

// MaxScales is the largest number of scales a Pyramid can hold.
const MaxScales = 12

// Mask selects the separable smoothing kernel.
type Mask int

const (
	// MaskLinear is the B1 spline {1, 2, 1}/4.
	MaskLinear Mask = iota
	// MaskBicubic is the B3 spline {1, 4, 6, 4, 1}/16.
	MaskBicubic
)

var maskTaps = map[Mask][]float64{
	MaskLinear:  {0.25, 0.5, 0.25},
	MaskBicubic: {1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16},
}

func (m Mask) taps() ([]float64, error) {
	t, ok := maskTaps[m]
	if !ok {
		return nil, fmt.Errorf("mask %d: %w", m, data.ErrInvalidArgument)
	}
	return t, nil
}

func (m Mask) String() string {
	switch m {
	case MaskLinear:
		return "linear"
	case MaskBicubic:
		return "bicubic"
	}
	return fmt.Sprintf("mask(%d)", int(m))
}

// ParseMask maps a configuration name onto a Mask.
func ParseMask(s string) (Mask, error) {
	switch strings.ToLower(s) {
	case "linear":
		return MaskLinear, nil
	case "bicubic", "":
		return MaskBicubic, nil
	}
	return 0, fmt.Errorf("mask %q: %w", s, data.ErrInvalidArgument)
}

// ConvMode selects how the smoothing kernel is applied.
type ConvMode int

const (
	// ConvAtrous convolves directly with the dilated separable kernel.
	ConvAtrous ConvMode = iota
	// ConvPSF correlates with the dilated point spread function in Fourier space.
	ConvPSF
)

func (m ConvMode) String() string {
	switch m {
	case ConvAtrous:
		return "atrous"
	case ConvPSF:
		return "psf"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseConvMode maps a configuration name onto a ConvMode.
func ParseConvMode(s string) (ConvMode, error) {
	switch strings.ToLower(s) {
	case "atrous", "":
		return ConvAtrous, nil
	case "psf":
		return ConvPSF, nil
	}
	return 0, fmt.Errorf("convolution mode %q: %w", s, data.ErrInvalidArgument)
}

// Gain weights the detail planes during significant deconvolution.
type Gain int

const (
	GainNone Gain = iota
	GainLow
	GainMid
	GainHigh
	GainLowMid
)

// gainTable holds one amplification per scale. Scales past the end reuse the
// last entry.
var gainTable = map[Gain][]float64{
	GainNone:   {1, 1, 1, 1, 1, 1, 1, 1},
	GainLow:    {1, 1, 1, 1, 1, 2, 4, 8},
	GainMid:    {1, 1, 2, 4, 2, 1, 1, 1},
	GainHigh:   {4, 2, 1, 1, 1, 1, 1, 1},
	GainLowMid: {1, 1, 1.5, 2, 4, 4, 4, 8},
}

// Amplification returns the weight applied to scale i.
func (g Gain) Amplification(i int) (float64, error) {
	t, ok := gainTable[g]
	if !ok {
		return 0, fmt.Errorf("gain %d: %w", g, data.ErrInvalidArgument)
	}
	if i < 0 {
		return 0, fmt.Errorf("gain scale %d: %w", i, data.ErrOutOfRange)
	}
	return t[min(i, len(t)-1)], nil
}
