package wavelet

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"wavescope/pkg/data"
)

// Deconvolve rebuilds c[0] as the top approximation plus every detail plane.
// Both convolution modes leave an exact additive decomposition, so mode only
// has to be valid.
func (p *Pyramid) Deconvolve(mode ConvMode) error {
	if mode != ConvAtrous && mode != ConvPSF {
		return fmt.Errorf("deconvolve mode %d: %w", mode, data.ErrInvalidArgument)
	}
	out, err := p.sum(0, len(p.wavelet)-1, false, GainNone)
	if err != nil {
		return err
	}
	floats.Add(out, p.scale[len(p.scale)-1].Values())
	copy(p.scale[0].Values(), out)
	return nil
}

// DeconvolveSignificant rebuilds c[0] from the top approximation and the
// significant detail coefficients, each scale weighted by the gain table.
func (p *Pyramid) DeconvolveSignificant(gain Gain) error {
	out, err := p.sum(0, len(p.wavelet)-1, true, gain)
	if err != nil {
		return err
	}
	floats.Add(out, p.scale[len(p.scale)-1].Values())
	copy(p.scale[0].Values(), out)
	return nil
}

// DeconvolveRange returns a new context holding the sum of w[lo..hi],
// optionally restricted to significant pixels. No approximation is added.
func (p *Pyramid) DeconvolveRange(lo, hi int, significantOnly bool) (*data.Data, error) {
	if lo < 0 || hi < lo || hi >= len(p.wavelet) {
		return nil, fmt.Errorf("deconvolve [%d,%d] of %d detail planes: %w", lo, hi, len(p.wavelet), data.ErrInvalidRange)
	}
	out, err := p.sum(lo, hi, significantOnly, GainNone)
	if err != nil {
		return nil, err
	}
	return p.newPlane(out)
}

// DeconvolveObject returns the reconstruction of one object over its
// bounding box.
func (p *Pyramid) DeconvolveObject(id int) (*data.Data, error) {
	return p.catalog.ObjectData(id)
}

func (p *Pyramid) sum(lo, hi int, significantOnly bool, gain Gain) ([]float64, error) {
	if p.scale[0].Values() == nil {
		return nil, fmt.Errorf("deconvolve: %w", data.ErrFreed)
	}
	out := make([]float64, p.width*p.height)
	for i := lo; i <= hi; i++ {
		amp, err := gain.Amplification(i)
		if err != nil {
			return nil, err
		}
		w := p.wavelet[i].Values()
		if !significantOnly {
			floats.AddScaled(out, amp, w)
			continue
		}
		for j, s := range p.significant[i].Values() {
			if s != 0 {
				out[j] += amp * w[j]
			}
		}
	}
	return out, nil
}

func (p *Pyramid) newPlane(values []float64) (*data.Data, error) {
	if p.oneD {
		return data.NewSignal(p.width, values)
	}
	return data.NewFloat(p.width, p.height, values)
}
