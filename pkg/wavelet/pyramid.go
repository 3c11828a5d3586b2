// Package wavelet builds the à trous scale hierarchy over a data context,
// thresholds its detail planes and reconstructs signals from them.
package wavelet

import (
	"fmt"
	"runtime"

	"github.com/google/uuid"

	"wavescope/pkg/data"
	"wavescope/pkg/detect"
)

// Options configures a Pyramid.
type Options struct {
	// Workers bounds the goroutines used for the kernel passes of one scale
	Workers int

	// MaxClipIterations caps the sigma refinement loop of the clipper
	MaxClipIterations int

	// ClipBackground re-estimates the clip sigma from the pixels left
	// unflagged rather than from the flagged ones
	ClipBackground bool

	Detect detect.Params
}

// DefaultOptions returns options using every CPU.
func DefaultOptions() Options {
	return Options{
		Workers:           runtime.NumCPU(),
		MaxClipIterations: 32,
		Detect:            detect.DefaultParams(),
	}
}

// Pyramid holds S approximation planes c[0..S-1] and, for every scale below
// the top, a detail plane w[i] = c[i] - c[i+1] with its significance map.
type Pyramid struct {
	id     string
	opts   Options
	width  int
	height int
	oneD   bool

	scale       []*data.Data
	wavelet     []*data.Data
	significant []*data.Data

	psf *psf

	ccd         data.CCD
	darkMean    float64
	hasDarkMean bool

	layers  []*detect.Layer
	catalog *detect.Catalog
}

// New builds a pyramid of the given number of scales over a copy of src.
// Planes are allocated up front; call Convolve to populate them.
func New(src *data.Data, scales int, opts Options) (*Pyramid, error) {
	if src == nil || src.Values() == nil {
		return nil, fmt.Errorf("pyramid source: %w", data.ErrFreed)
	}
	if scales < 2 || scales > MaxScales {
		return nil, fmt.Errorf("pyramid of %d scales: %w", scales, data.ErrInvalidArgument)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	floatType := data.Type2DFloat
	if src.Type().Is1D() {
		floatType = data.Type1DFloat
	}

	p := &Pyramid{
		id:          uuid.NewString(),
		opts:        opts,
		width:       src.Width(),
		height:      src.Height(),
		oneD:        src.Type().Is1D(),
		scale:       make([]*data.Data, scales),
		wavelet:     make([]*data.Data, scales-1),
		significant: make([]*data.Data, scales-1),
		ccd:         data.DefaultCCD(),
		layers:      make([]*detect.Layer, scales-1),
		catalog:     detect.NewCatalog(opts.Detect),
	}

	c0, err := src.Clone()
	if err != nil {
		return nil, err
	}
	if err := c0.Convert(floatType); err != nil {
		return nil, err
	}
	p.scale[0] = c0

	for i := 1; i < scales; i++ {
		if p.scale[i], err = data.NewLike(c0, floatType); err != nil {
			return nil, err
		}
	}
	for i := 0; i < scales-1; i++ {
		if p.wavelet[i], err = data.NewLike(c0, floatType); err != nil {
			return nil, err
		}
		if p.significant[i], err = data.NewLike(c0, data.UintType(floatType)); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// NewFromObject builds a pyramid over the bounding box of obj, grown by the
// widest kernel support of the requested scales and clamped to src.
func NewFromObject(src *data.Data, obj detect.Object, scales int, opts Options) (*Pyramid, error) {
	if src == nil || src.Values() == nil {
		return nil, fmt.Errorf("object pyramid source: %w", data.ErrFreed)
	}
	if scales < 2 || scales > MaxScales {
		return nil, fmt.Errorf("pyramid of %d scales: %w", scales, data.ErrInvalidArgument)
	}
	margin := 1 << (scales - 1)

	x0, y0, x1, y1 := obj.Bounds()
	x0, x1 = max(x0-margin, 0), min(x1+margin, src.Width()-1)
	if x0 > x1 {
		return nil, fmt.Errorf("object %d outside %dx%d: %w", obj.ID, src.Width(), src.Height(), data.ErrOutOfRange)
	}

	var area *data.Data
	var err error
	if src.Type().Is1D() {
		area, err = data.NewFromSection(src, x0, x1-x0+1)
	} else {
		y0, y1 = max(y0-margin, 0), min(y1+margin, src.Height()-1)
		area, err = data.NewFromArea(src, x1-x0+1, y1-y0+1, x0, y0)
	}
	if err != nil {
		return nil, err
	}
	return New(area, scales, opts)
}

// ID returns the identifier used to tag diagnostics for this pyramid.
func (p *Pyramid) ID() string { return p.id }

// Scales returns the number of scales.
func (p *Pyramid) Scales() int { return len(p.scale) }

// Width returns the plane width.
func (p *Pyramid) Width() int { return p.width }

// Height returns the plane height, 1 for signals.
func (p *Pyramid) Height() int { return p.height }

// Options returns the options the pyramid was built with.
func (p *Pyramid) Options() Options { return p.opts }

// Scale returns the approximation plane c[i], 0 <= i < S.
func (p *Pyramid) Scale(i int) (*data.Data, error) {
	if i < 0 || i >= len(p.scale) {
		return nil, fmt.Errorf("scale %d of %d: %w", i, len(p.scale), data.ErrOutOfRange)
	}
	return p.scale[i], nil
}

// Wavelet returns the detail plane w[i], 0 <= i < S-1.
func (p *Pyramid) Wavelet(i int) (*data.Data, error) {
	if i < 0 || i >= len(p.wavelet) {
		return nil, fmt.Errorf("wavelet %d of %d: %w", i, len(p.wavelet), data.ErrOutOfRange)
	}
	return p.wavelet[i], nil
}

// Significant returns the significance map of w[i], 0 <= i < S-1.
func (p *Pyramid) Significant(i int) (*data.Data, error) {
	if i < 0 || i >= len(p.significant) {
		return nil, fmt.Errorf("significance %d of %d: %w", i, len(p.significant), data.ErrOutOfRange)
	}
	return p.significant[i], nil
}

// SetElements replaces c[0] so the pyramid can be decomposed again.
func (p *Pyramid) SetElements(src *data.Data) error {
	if err := p.scale[0].CopyFrom(src); err != nil {
		return fmt.Errorf("set elements: %w", err)
	}
	return nil
}

// SetCCD attaches the detector parameters used for SNR.
func (p *Pyramid) SetCCD(ccd data.CCD) error {
	if ccd.Gain <= 0 {
		return fmt.Errorf("ccd gain %g: %w", ccd.Gain, data.ErrInvalidArgument)
	}
	p.ccd = ccd
	return nil
}

// CCD returns the detector parameters.
func (p *Pyramid) CCD() data.CCD { return p.ccd }

// SetDarkMean overrides the sampled background mean used for SNR.
func (p *Pyramid) SetDarkMean(v float64) {
	p.darkMean, p.hasDarkMean = v, true
}

// DarkMean returns the dark mean and whether one has been set.
func (p *Pyramid) DarkMean() (float64, bool) { return p.darkMean, p.hasDarkMean }

// Free releases every plane and object.
func (p *Pyramid) Free() {
	for _, planes := range [][]*data.Data{p.scale, p.wavelet, p.significant} {
		for _, d := range planes {
			d.Free()
		}
	}
	p.FreeObjects()
	p.psf = nil
}
