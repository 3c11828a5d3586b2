package wavelet

import (
	"fmt"
	"math"
	"strings"

	"wavescope/internal/monitoring"
	"wavescope/pkg/data"
)

// ClipStrength selects a table of per-scale sigma multipliers.
type ClipStrength int

const (
	ClipVeryGentle ClipStrength = iota
	ClipGentle
	ClipNormal
	ClipStrong
	ClipVeryStrong
	ClipVeryVeryStrong
)

var clipTable = map[ClipStrength][]float64{
	ClipVeryGentle:     {2, 1, 1.0 / 2, 1.0 / 4, 1.0 / 8, 1.0 / 16, 1.0 / 32, 1.0 / 64, 1.0 / 128, 1.0 / 256, 1.0 / 512},
	ClipGentle:         {3, 2, 1, 1.0 / 2, 1.0 / 4, 1.0 / 8, 1.0 / 16, 1.0 / 32, 1.0 / 64, 1.0 / 128, 1.0 / 256},
	ClipNormal:         {4, 3, 2, 1, 1.0 / 2, 1.0 / 4, 1.0 / 8, 1.0 / 16, 1.0 / 32, 1.0 / 64, 1.0 / 128},
	ClipStrong:         {5, 4, 3, 2, 1, 1.0 / 2, 1.0 / 4, 1.0 / 8, 1.0 / 16, 1.0 / 32, 1.0 / 64},
	ClipVeryStrong:     {6, 5, 4, 3, 2, 1, 1.0 / 2, 1.0 / 4, 1.0 / 8, 1.0 / 16, 1.0 / 32},
	ClipVeryVeryStrong: {7, 6, 5, 4, 3, 2, 1, 1.0 / 2, 1.0 / 4, 1.0 / 8, 1.0 / 16},
}

var clipNames = map[string]ClipStrength{
	"verygentle":     ClipVeryGentle,
	"gentle":         ClipGentle,
	"normal":         ClipNormal,
	"strong":         ClipStrong,
	"verystrong":     ClipVeryStrong,
	"veryverystrong": ClipVeryVeryStrong,
}

// ParseClipStrength maps a configuration name such as "very-strong" onto a preset.
func ParseClipStrength(s string) (ClipStrength, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	if key == "" {
		return ClipNormal, nil
	}
	c, ok := clipNames[key]
	if !ok {
		return 0, fmt.Errorf("clip strength %q: %w", s, data.ErrInvalidArgument)
	}
	return c, nil
}

// Coefficients returns the multipliers of strength for the detail planes of a
// pyramid with the given number of scales.
func Coefficients(strength ClipStrength, scales int) ([]float64, error) {
	t, ok := clipTable[strength]
	if !ok {
		return nil, fmt.Errorf("clip strength %d: %w", strength, data.ErrInvalidArgument)
	}
	if scales < 2 || scales-1 > len(t) {
		return nil, fmt.Errorf("clip table for %d scales: %w", scales, data.ErrInvalidArgument)
	}
	return append([]float64(nil), t[:scales-1]...), nil
}

// KSigmaClip thresholds every detail plane with a preset table and returns
// the total number of significant pixels.
func (p *Pyramid) KSigmaClip(strength ClipStrength, delta float64) (int, error) {
	coeffs, err := Coefficients(strength, p.Scales())
	if err != nil {
		return 0, err
	}
	return p.KSigmaClipCustom(coeffs, delta)
}

// KSigmaClipCustom thresholds detail plane i at coeffs[i] times sigma. Sigma
// starts as the deviation of the whole plane; each later pass takes the
// deviation of the pixels the previous pass flagged, until it moves by no
// more than delta, drops to zero or Options.MaxClipIterations is reached.
// With Options.ClipBackground the unflagged pixels are used instead.
// Scales are processed finest first; a failing scale leaves the earlier maps
// in place.
func (p *Pyramid) KSigmaClipCustom(coeffs []float64, delta float64) (int, error) {
	if err := p.checkCoefficients(coeffs); err != nil {
		return 0, err
	}
	if delta < 0 || math.IsNaN(delta) {
		return 0, fmt.Errorf("clip delta %g: %w", delta, data.ErrInvalidArgument)
	}
	clear(p.layers)

	total := 0
	for i, w := range p.wavelet {
		n, err := p.clipScale(i, w, coeffs[i], delta)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (p *Pyramid) clipScale(i int, w *data.Data, k, delta float64) (int, error) {
	sig := p.significant[i]
	sigma := w.StdDev()
	if sigma == 0 {
		return 0, fmt.Errorf("clip scale %d: %w", i, data.ErrZeroVariance)
	}

	maxIter := max(p.opts.MaxClipIterations, 1)
	var n, iter int
	for iter = 1; ; iter++ {
		var err error
		if n, err = data.MarkSignificant(sig, w, k*sigma); err != nil {
			return 0, err
		}
		next, err := p.clipSigma(w, sig)
		if err != nil {
			return 0, err
		}
		if math.Abs(next-sigma) <= delta || next == 0 || iter >= maxIter {
			break
		}
		sigma = next
	}

	monitoring.Logf("pyramid %s: scale %d sigma %.4g after %d iterations, %d significant", p.id, i, sigma, iter, n)
	return n, nil
}

// clipSigma returns the deviation that drives the next clip pass.
func (p *Pyramid) clipSigma(w, sig *data.Data) (float64, error) {
	if p.opts.ClipBackground {
		sigma, _, err := w.BackgroundSigma(sig)
		return sigma, err
	}
	mean, err := w.SignificantMean(sig)
	if err != nil {
		return 0, err
	}
	return w.SignificantSigma(sig, mean)
}

// NewSignificantFromPreset flags |w| > k*sigma on every detail plane in a
// single pass, without refining sigma.
func (p *Pyramid) NewSignificantFromPreset(strength ClipStrength) (int, error) {
	coeffs, err := Coefficients(strength, p.Scales())
	if err != nil {
		return 0, err
	}
	clear(p.layers)

	total := 0
	for i, w := range p.wavelet {
		sigma := w.StdDev()
		if sigma == 0 {
			return total, fmt.Errorf("significance scale %d: %w", i, data.ErrZeroVariance)
		}
		n, err := data.MarkSignificant(p.significant[i], w, coeffs[i]*sigma)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (p *Pyramid) checkCoefficients(coeffs []float64) error {
	if len(coeffs) < len(p.wavelet) {
		return fmt.Errorf("%d clip coefficients for %d detail planes: %w", len(coeffs), len(p.wavelet), data.ErrInvalidArgument)
	}
	for i, k := range coeffs[:len(p.wavelet)] {
		if !(k > 0) {
			return fmt.Errorf("clip coefficient %d is %g: %w", i, k, data.ErrInvalidArgument)
		}
	}
	return nil
}
