package data

import (
	"fmt"
	"math"
)

// CCD describes the detector that produced a frame.
type CCD struct {
	// Gain in electrons per ADU
	Gain float64 `yaml:"gain"`

	// Bias level in ADU, subtracted before any noise model is applied
	Bias float64 `yaml:"bias"`

	// Readout noise in electrons
	Readout float64 `yaml:"readout"`
}

// DefaultCCD returns a unit gain detector with no bias or readout noise.
func DefaultCCD() CCD {
	return CCD{Gain: 1}
}

// Anscombe applies the generalised Anscombe transform in place so that
// Poisson shot noise becomes approximately unit variance Gaussian noise:
//
//	v' = 2 * sqrt((v-bias)*gain + 3/8 + readout^2) / gain
//
// Negative radicands are clamped to zero.
func (d *Data) Anscombe(ccd CCD) error {
	if err := d.live(); err != nil {
		return err
	}
	if ccd.Gain <= 0 {
		return fmt.Errorf("anscombe gain %g: %w", ccd.Gain, ErrInvalidArgument)
	}
	r2 := ccd.Readout * ccd.Readout
	for i, v := range d.adu {
		t := (v-ccd.Bias)*ccd.Gain + 0.375 + r2
		if t < 0 {
			t = 0
		}
		d.adu[i] = 2 * math.Sqrt(t) / ccd.Gain
	}
	return nil
}
