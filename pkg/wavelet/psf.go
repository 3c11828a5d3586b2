package wavelet

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"wavescope/pkg/data"
)

// psf is a unit-sum point spread function with odd dimensions.
type psf struct {
	width, height int
	taps          []float64
}

// SetPSF installs the kernel used by ConvPSF. Both dimensions must be odd and
// a signal pyramid needs a single-row PSF. The kernel is normalised to unit sum.
func (p *Pyramid) SetPSF(kernel *data.Data) error {
	if kernel == nil || kernel.Values() == nil {
		return fmt.Errorf("psf: %w", data.ErrFreed)
	}
	kw, kh := kernel.Width(), kernel.Height()
	if kw%2 == 0 || kh%2 == 0 {
		return fmt.Errorf("psf %dx%d must have odd dimensions: %w", kw, kh, data.ErrInvalidArgument)
	}
	if p.oneD && kh != 1 {
		return fmt.Errorf("psf %dx%d on a signal pyramid: %w", kw, kh, data.ErrInvalidArgument)
	}
	sum := floats.Sum(kernel.Values())
	if sum == 0 {
		return fmt.Errorf("psf sums to zero: %w", data.ErrInvalidArgument)
	}

	taps := append([]float64(nil), kernel.Values()...)
	floats.Scale(1/sum, taps)
	p.psf = &psf{width: kw, height: kh, taps: taps}
	return nil
}

// correlate smooths src into dst with the PSF dilated by spacing. The plane is
// mirror padded by the kernel reach so the circular correlation computed in
// Fourier space never wraps into the cropped result.
func (k *psf) correlate(dst, src []float64, width, height int, oneD bool, spacing, workers int) error {
	rx := (k.width - 1) / 2 * spacing
	ry := (k.height - 1) / 2 * spacing
	if rx >= width || (!oneD && ry >= height) {
		return fmt.Errorf("psf reach %dx%d on %dx%d: %w", rx, ry, width, height, data.ErrKernelSupport)
	}
	if oneD {
		k.correlate1D(dst, src, width, rx, spacing)
		return nil
	}

	pw, ph := width+2*rx, height+2*ry
	plane := make([]complex128, pw*ph)
	kern := make([]complex128, pw*ph)
	for y := 0; y < ph; y++ {
		sy := mirror(y-ry, height)
		for x := 0; x < pw; x++ {
			plane[y*pw+x] = complex(src[sy*width+mirror(x-rx, width)], 0)
		}
	}
	for ky := 0; ky < k.height; ky++ {
		for kx := 0; kx < k.width; kx++ {
			kern[ky*spacing*pw+kx*spacing] = complex(k.taps[ky*k.width+kx], 0)
		}
	}

	if err := fft2(plane, pw, ph, workers, false); err != nil {
		return err
	}
	if err := fft2(kern, pw, ph, workers, false); err != nil {
		return err
	}
	for i := range plane {
		plane[i] *= cmplx.Conj(kern[i])
	}
	if err := fft2(plane, pw, ph, workers, true); err != nil {
		return err
	}

	n := float64(pw * ph)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dst[y*width+x] = real(plane[y*pw+x]) / n
		}
	}
	return nil
}

func (k *psf) correlate1D(dst, src []float64, width, rx, spacing int) {
	pw := width + 2*rx
	plane := make([]float64, pw)
	kern := make([]float64, pw)
	for x := range plane {
		plane[x] = src[mirror(x-rx, width)]
	}
	for kx, t := range k.taps {
		kern[kx*spacing] = t
	}

	fft := fourier.NewFFT(pw)
	pc := fft.Coefficients(nil, plane)
	kc := fft.Coefficients(nil, kern)
	for i := range pc {
		pc[i] *= cmplx.Conj(kc[i])
	}
	fft.Sequence(plane, pc)

	for x := range dst[:width] {
		dst[x] = plane[x] / float64(pw)
	}
}

// fft2 transforms a row-major complex plane in place, rows first and then
// columns. The inverse is unnormalised.
func fft2(buf []complex128, width, height, workers int, inverse bool) error {
	err := forRanges(workers, height, func(start, end int) error {
		fft := fourier.NewCmplxFFT(width)
		for y := start; y < end; y++ {
			row := buf[y*width : (y+1)*width]
			if inverse {
				fft.Sequence(row, row)
			} else {
				fft.Coefficients(row, row)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return forRanges(workers, width, func(start, end int) error {
		fft := fourier.NewCmplxFFT(height)
		col := make([]complex128, height)
		for x := start; x < end; x++ {
			for y := range col {
				col[y] = buf[y*width+x]
			}
			if inverse {
				fft.Sequence(col, col)
			} else {
				fft.Coefficients(col, col)
			}
			for y, v := range col {
				buf[y*width+x] = v
			}
		}
		return nil
	})
}
