// Package detect groups significant wavelet pixels into structures within a
// scale and links structures across scales into measured objects.
package detect

import (
	"fmt"

	"wavescope/pkg/data"
)

// Coord is an integer pixel position.
type Coord struct {
	X, Y int
}

// Point is a sub-pixel position.
type Point struct {
	X, Y float64
}

// Structure is a connected component of significant pixels in one scale.
type Structure struct {
	ID    int
	Scale int

	// Pixels holds the member offsets in the order the fill reached them
	Pixels []int

	MinX, MinY, MaxX, MaxY int

	// Peak is the offset of the largest wavelet coefficient in the structure
	Peak      int
	PeakValue float64

	Centroid Point
}

// Layer is the labelling of one scale.
type Layer struct {
	Scale  int
	Width  int
	Height int

	// Labels maps every pixel to a structure id, or -1
	Labels     []int32
	Structures []Structure
}

// Find labels the connected components of the significance map sig. Components
// are discovered in raster order, so ids are stable for a given map.
// connectivity is 4 or 8; wavelet supplies the coefficients used for the peak.
func Find(sig, wavelet *data.Data, scale, connectivity int) (*Layer, error) {
	if sig.Width() != wavelet.Width() || sig.Height() != wavelet.Height() {
		return nil, fmt.Errorf("structure find: %w", data.ErrDimensionMismatch)
	}
	if sig.Values() == nil || wavelet.Values() == nil {
		return nil, fmt.Errorf("structure find: %w", data.ErrFreed)
	}
	neighbours, err := neighbourhood(connectivity)
	if err != nil {
		return nil, err
	}

	width, height := sig.Width(), sig.Height()
	mask, coeff := sig.Values(), wavelet.Values()

	layer := &Layer{
		Scale:  scale,
		Width:  width,
		Height: height,
		Labels: make([]int32, len(mask)),
	}
	for i := range layer.Labels {
		layer.Labels[i] = -1
	}

	stack := make([]int, 0, 64)
	for start, v := range mask {
		if v == 0 || layer.Labels[start] >= 0 {
			continue
		}

		id := len(layer.Structures)
		st := Structure{
			ID:        id,
			Scale:     scale,
			MinX:      start % width,
			MinY:      start / width,
			MaxX:      start % width,
			MaxY:      start / width,
			Peak:      start,
			PeakValue: coeff[start],
		}

		layer.Labels[start] = int32(id)
		stack = append(stack[:0], start)
		var sumX, sumY float64

		for len(stack) > 0 {
			off := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := off%width, off/width

			st.Pixels = append(st.Pixels, off)
			sumX += float64(x)
			sumY += float64(y)
			st.extend(x, y)
			if coeff[off] > st.PeakValue {
				st.Peak, st.PeakValue = off, coeff[off]
			}

			for _, n := range neighbours {
				nx, ny := x+n.X, y+n.Y
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				noff := ny*width + nx
				if mask[noff] == 0 || layer.Labels[noff] >= 0 {
					continue
				}
				layer.Labels[noff] = int32(id)
				stack = append(stack, noff)
			}
		}

		n := float64(len(st.Pixels))
		st.Centroid = Point{X: sumX / n, Y: sumY / n}
		layer.Structures = append(layer.Structures, st)
	}

	return layer, nil
}

func (s *Structure) extend(x, y int) {
	if x < s.MinX {
		s.MinX = x
	}
	if x > s.MaxX {
		s.MaxX = x
	}
	if y < s.MinY {
		s.MinY = y
	}
	if y > s.MaxY {
		s.MaxY = y
	}
}

var (
	fourNeighbours  = []Coord{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	eightNeighbours = []Coord{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {-1, -1}, {1, -1}, {-1, 1}}
)

func neighbourhood(connectivity int) ([]Coord, error) {
	switch connectivity {
	case 4:
		return fourNeighbours, nil
	case 8:
		return eightNeighbours, nil
	}
	return nil, fmt.Errorf("connectivity %d: %w", connectivity, data.ErrInvalidArgument)
}
