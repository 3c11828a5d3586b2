package wavelet

import (
	"fmt"

	"wavescope/pkg/data"
)

// Add sets every detail plane of p to b + c.
func (p *Pyramid) Add(b, c *Pyramid) error {
	return p.combine(b, c, func(i int) error {
		return p.wavelet[i].Add(b.wavelet[i], c.wavelet[i])
	})
}

// Subtract sets every detail plane of p to b - c.
func (p *Pyramid) Subtract(b, c *Pyramid) error {
	return p.combine(b, c, func(i int) error {
		return p.wavelet[i].Subtract(b.wavelet[i], c.wavelet[i])
	})
}

// SignificantAdd sets the detail planes of p to b + c where c is significant.
func (p *Pyramid) SignificantAdd(b, c *Pyramid) error {
	return p.combine(b, c, func(i int) error {
		return p.wavelet[i].SignificantAdd(b.wavelet[i], c.wavelet[i], c.significant[i])
	})
}

// SignificantSubtract sets the detail planes of p to b - c where c is significant.
func (p *Pyramid) SignificantSubtract(b, c *Pyramid) error {
	return p.combine(b, c, func(i int) error {
		return p.wavelet[i].SignificantSubtract(b.wavelet[i], c.wavelet[i], c.significant[i])
	})
}

func (p *Pyramid) combine(b, c *Pyramid, op func(i int) error) error {
	for _, q := range []*Pyramid{b, c} {
		if q.Scales() != p.Scales() || q.width != p.width || q.height != p.height {
			return fmt.Errorf("pyramid %d scales %dx%d vs %d scales %dx%d: %w",
				p.Scales(), p.width, p.height, q.Scales(), q.width, q.height, data.ErrDimensionMismatch)
		}
	}
	for i := range p.wavelet {
		if err := op(i); err != nil {
			return fmt.Errorf("detail plane %d: %w", i, err)
		}
	}
	return nil
}
