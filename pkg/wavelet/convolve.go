package wavelet

import (
	"fmt"

	"wavescope/pkg/data"
)

// mirror reflects an index that fell off either end of [0, n) about the edge
// sample, so -1 maps to 1 and n maps to n-2.
func mirror(i, n int) int {
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*n - i - 2
	}
	return i
}

// Convolve decomposes c[0] into the full hierarchy. Scale i is smoothed with
// the kernel dilated by 2^i and w[i] = c[i] - c[i+1]. On failure the scales
// below the failing one stay valid.
func (p *Pyramid) Convolve(mode ConvMode, mask Mask) error {
	return p.convolve(mode, mask, false)
}

// SignificantConvolve decomposes c[0] using, at every scale, only the pixels
// flagged in that scale's significance map. A scale without significant
// pixels passes c[i] through unchanged.
func (p *Pyramid) SignificantConvolve(mode ConvMode, mask Mask) error {
	return p.convolve(mode, mask, true)
}

func (p *Pyramid) convolve(mode ConvMode, mask Mask, significantOnly bool) error {
	smooth, err := p.smoother(mode, mask)
	if err != nil {
		return err
	}
	if p.scale[0].Values() == nil {
		return fmt.Errorf("convolve: %w", data.ErrFreed)
	}
	clear(p.layers)

	var masked []float64
	for i := 0; i < len(p.wavelet); i++ {
		src := p.scale[i].Values()
		dst := p.scale[i+1].Values()

		if significantOnly {
			sig := p.significant[i].Values()
			if p.significant[i].SignificantCount() == 0 {
				copy(dst, src)
				clear(p.wavelet[i].Values())
				continue
			}
			if masked == nil {
				masked = make([]float64, len(src))
			}
			for j, v := range src {
				masked[j] = v * sig[j]
			}
			src = masked
		}

		if err := smooth(dst, src, 1<<i); err != nil {
			return fmt.Errorf("convolve scale %d: %w", i, err)
		}
		if err := p.wavelet[i].Subtract(p.scale[i], p.scale[i+1]); err != nil {
			return err
		}
	}
	return nil
}

type smoothFunc func(dst, src []float64, spacing int) error

func (p *Pyramid) smoother(mode ConvMode, mask Mask) (smoothFunc, error) {
	switch mode {
	case ConvAtrous:
		taps, err := mask.taps()
		if err != nil {
			return nil, err
		}
		return func(dst, src []float64, spacing int) error {
			return p.atrous(dst, src, taps, spacing)
		}, nil
	case ConvPSF:
		if p.psf == nil {
			return nil, fmt.Errorf("psf convolution without a psf: %w", data.ErrInvalidArgument)
		}
		return func(dst, src []float64, spacing int) error {
			return p.psf.correlate(dst, src, p.width, p.height, p.oneD, spacing, p.opts.Workers)
		}, nil
	}
	return nil, fmt.Errorf("convolution mode %d: %w", mode, data.ErrInvalidArgument)
}

// atrous applies the separable kernel with holes: a row pass then, for 2D
// planes, a column pass.
func (p *Pyramid) atrous(dst, src, taps []float64, spacing int) error {
	r := len(taps) / 2
	reach := r * spacing
	if reach >= p.width || (!p.oneD && reach >= p.height) {
		return fmt.Errorf("kernel reach %d on %dx%d: %w", reach, p.width, p.height, data.ErrKernelSupport)
	}

	width, height := p.width, p.height
	rows := dst
	if !p.oneD {
		rows = make([]float64, len(src))
	}

	err := forRanges(p.opts.Workers, height, func(start, end int) error {
		for y := start; y < end; y++ {
			in := src[y*width : (y+1)*width]
			out := rows[y*width : (y+1)*width]
			for x := range out {
				var sum float64
				for k, t := range taps {
					sum += t * in[mirror(x+(k-r)*spacing, width)]
				}
				out[x] = sum
			}
		}
		return nil
	})
	if err != nil || p.oneD {
		return err
	}

	return forRanges(p.opts.Workers, height, func(start, end int) error {
		for y := start; y < end; y++ {
			out := dst[y*width : (y+1)*width]
			for x := range out {
				var sum float64
				for k, t := range taps {
					sum += t * rows[mirror(y+(k-r)*spacing, height)*width+x]
				}
				out[x] = sum
			}
		}
		return nil
	})
}
