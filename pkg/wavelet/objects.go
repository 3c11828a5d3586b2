package wavelet

import (
	"fmt"

	"wavescope/internal/monitoring"
	"wavescope/pkg/data"
	"wavescope/pkg/detect"
)

// StructureFind labels the significant pixels of detail plane i and returns
// the number of structures found.
func (p *Pyramid) StructureFind(i int) (int, error) {
	if i < 0 || i >= len(p.wavelet) {
		return 0, fmt.Errorf("structure find scale %d of %d: %w", i, len(p.wavelet), data.ErrOutOfRange)
	}
	layer, err := detect.Find(p.significant[i], p.wavelet[i], i, p.opts.Detect.Connectivity)
	if err != nil {
		return 0, fmt.Errorf("structure find scale %d: %w", i, err)
	}
	p.layers[i] = layer
	return len(layer.Structures), nil
}

// StructureConnect links the structures of scales lo..hi into objects and
// appends them to the pyramid's catalogue. Scales that have not been labelled
// yet are labelled first. It returns the number of objects added.
func (p *Pyramid) StructureConnect(lo, hi int) (int, error) {
	if lo < 0 || hi < lo || hi > len(p.wavelet)-1 {
		return 0, fmt.Errorf("structure connect [%d,%d] with %d scales: %w", lo, hi, p.Scales(), data.ErrInvalidRange)
	}
	for i := lo; i <= hi; i++ {
		if p.layers[i] != nil {
			continue
		}
		if _, err := p.StructureFind(i); err != nil {
			return 0, err
		}
	}

	n, err := p.catalog.Connect(detect.Input{
		Layers:      p.layers,
		Wavelets:    p.wavelet,
		Signal:      p.scale[0],
		CCD:         p.ccd,
		DarkMean:    p.darkMean,
		HasDarkMean: p.hasDarkMean,
	}, lo, hi)
	if err != nil {
		return 0, fmt.Errorf("structure connect: %w", err)
	}
	monitoring.Logf("pyramid %s: connected scales %d-%d, %d objects (%d total)", p.id, lo, hi, n, p.catalog.Len())
	return n, nil
}

// ObjectCount returns the number of objects in the catalogue.
func (p *Pyramid) ObjectCount() int { return p.catalog.Len() }

// Object returns object i; ok is false past the end of the catalogue.
func (p *Pyramid) Object(i int) (detect.Object, bool) { return p.catalog.Object(i) }

// ObjectAt returns the object claiming pixel (x, y).
func (p *Pyramid) ObjectAt(x, y int) (detect.Object, bool) { return p.catalog.ObjectAt(x, y) }

// NearestObject returns the object whose centroid is nearest to (x, y).
func (p *Pyramid) NearestObject(x, y float64) (detect.Object, bool) { return p.catalog.Nearest(x, y) }

// ObjectData returns the reconstruction of object id over its bounding box.
func (p *Pyramid) ObjectData(id int) (*data.Data, error) { return p.DeconvolveObject(id) }

// FreeObjects releases the catalogue and the structure labels it was built from.
func (p *Pyramid) FreeObjects() {
	p.catalog.Free()
	clear(p.layers)
}
