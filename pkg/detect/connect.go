package detect

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"wavescope/pkg/data"
)

// pixelVariance is the positional variance of a single uniformly filled pixel.
const pixelVariance = 1.0 / 12

// magnitudeError converts SNR into a magnitude error (2.5/ln 10).
const magnitudeError = 1.0857

// Input is the pyramid state consumed by Connect.
type Input struct {
	// Layers holds the labelling of each scale, indexed by scale
	Layers []*Layer

	// Wavelets holds the detail planes, indexed by scale
	Wavelets []*data.Data

	// Signal is the scale 0 plane used for background and SNR
	Signal *data.Data

	CCD         data.CCD
	DarkMean    float64
	HasDarkMean bool
}

type member struct {
	scale, id int
}

type chain struct {
	start, end int
	members    []member
}

// Connect links the structures of scales lo..hi into objects, measures them
// and appends them to the catalogue. It returns the number of objects added.
func (c *Catalog) Connect(in Input, lo, hi int) (int, error) {
	if lo < 0 || hi < lo || hi >= len(in.Wavelets) || hi >= len(in.Layers) {
		return 0, fmt.Errorf("connect [%d,%d] of %d planes: %w", lo, hi, len(in.Wavelets), data.ErrInvalidRange)
	}
	if in.Signal == nil || in.Signal.Values() == nil {
		return 0, fmt.Errorf("connect: %w", data.ErrFreed)
	}
	for s := lo; s <= hi; s++ {
		if in.Layers[s] == nil {
			return 0, fmt.Errorf("connect: scale %d not labelled: %w", s, data.ErrInvalidArgument)
		}
	}

	width, height := in.Signal.Width(), in.Signal.Height()
	if width != c.width || height != c.height {
		c.Free()
		c.width, c.height = width, height
	}
	c.oneD = in.Signal.Type().Is1D()

	parents, overlaps := link(in.Layers, lo, hi)
	chains := buildChains(in.Layers, parents, overlaps, lo, hi)

	minScales := c.params.MinScales
	if minScales <= 0 {
		minScales = min(2, hi-lo+1)
	}

	scratch := make([]float64, width*height)
	touched := make([]bool, width*height)
	first := len(c.objects)

	for _, ch := range chains {
		if ch.end-ch.start+1 < minScales {
			continue
		}
		pix, vals := reconstruct(ch, in, scratch, touched)
		if len(pix) == 0 {
			continue
		}

		obj := c.measure(pix, vals)
		if c.nearEdge(obj.Peak) {
			continue
		}
		obj.ID = len(c.objects)
		obj.Scale = ch.end
		obj.StartScale = ch.start

		c.objects = append(c.objects, obj)
		c.supports = append(c.supports, pix)
		c.recon = append(c.recon, vals)
	}

	c.rebuildOwners()
	signal := in.Signal.Values()
	for i := first; i < len(c.objects); i++ {
		c.background(i, signal)
		c.snr(i, in, signal)
	}
	c.updateMagnitudes()
	c.rebuildIndex()

	return len(c.objects) - first, nil
}

// link finds, for every structure at scale s in [lo, hi), the structure at
// s+1 sharing the most pixels with it. Ties go to the lower id.
func link(layers []*Layer, lo, hi int) (parents, overlaps [][]int) {
	parents = make([][]int, hi+1)
	overlaps = make([][]int, hi+1)

	for s := lo; s < hi; s++ {
		up := layers[s+1].Labels
		structures := layers[s].Structures
		parents[s] = make([]int, len(structures))
		overlaps[s] = make([]int, len(structures))

		counts := make(map[int32]int)
		for id, st := range structures {
			clear(counts)
			for _, off := range st.Pixels {
				if l := up[off]; l >= 0 {
					counts[l]++
				}
			}

			best, bestN := -1, 0
			for l, n := range counts {
				if n > bestN || (n == bestN && int(l) < best) {
					best, bestN = int(l), n
				}
			}
			parents[s][id] = best
			overlaps[s][id] = bestN
		}
	}
	return parents, overlaps
}

// buildChains walks from the coarsest scale down. The child with the largest
// overlap (then nearest peak, then lowest id) continues its parent's chain;
// every other structure opens a chain of its own.
func buildChains(layers []*Layer, parents, overlaps [][]int, lo, hi int) []chain {
	var chains []chain
	owner := make([][]int, hi+1)

	owner[hi] = make([]int, len(layers[hi].Structures))
	for id := range layers[hi].Structures {
		owner[hi][id] = len(chains)
		chains = append(chains, chain{start: hi, end: hi, members: []member{{hi, id}}})
	}

	for s := hi - 1; s >= lo; s-- {
		primary := primaryChildren(layers, parents[s], overlaps[s], s)
		owner[s] = make([]int, len(layers[s].Structures))

		for id := range layers[s].Structures {
			if p := parents[s][id]; p >= 0 && primary[p] == id {
				ci := owner[s+1][p]
				chains[ci].start = s
				chains[ci].members = append(chains[ci].members, member{s, id})
				owner[s][id] = ci
				continue
			}
			owner[s][id] = len(chains)
			chains = append(chains, chain{start: s, end: s, members: []member{{s, id}}})
		}
	}
	return chains
}

func primaryChildren(layers []*Layer, parents, overlaps []int, s int) []int {
	width := layers[s].Width
	primary := make([]int, len(layers[s+1].Structures))
	for i := range primary {
		primary[i] = -1
	}

	for id, p := range parents {
		if p < 0 {
			continue
		}
		cur := primary[p]
		if cur < 0 || overlaps[id] > overlaps[cur] {
			primary[p] = id
			continue
		}
		if overlaps[id] == overlaps[cur] {
			peak := layers[s+1].Structures[p].Peak
			if peakDistance(layers[s].Structures[id].Peak, peak, width) <
				peakDistance(layers[s].Structures[cur].Peak, peak, width) {
				primary[p] = id
			}
		}
	}
	return primary
}

func peakDistance(a, b, width int) int {
	dx := a%width - b%width
	dy := a/width - b/width
	return dx*dx + dy*dy
}

// reconstruct sums the wavelet coefficients of every member structure and
// returns the positive part in raster order.
func reconstruct(ch chain, in Input, scratch []float64, touched []bool) ([]int, []float64) {
	var list []int
	for _, m := range ch.members {
		w := in.Wavelets[m.scale].Values()
		for _, off := range in.Layers[m.scale].Structures[m.id].Pixels {
			if !touched[off] {
				touched[off] = true
				list = append(list, off)
			}
			scratch[off] += w[off]
		}
	}
	sort.Ints(list)

	var pix []int
	var vals []float64
	for _, off := range list {
		if scratch[off] > 0 {
			pix = append(pix, off)
			vals = append(vals, scratch[off])
		}
		scratch[off] = 0
		touched[off] = false
	}
	return pix, vals
}

func (c *Catalog) measure(pix []int, vals []float64) Object {
	width := c.width
	area := len(pix)
	flux := floats.Sum(vals)
	peak := floats.MaxIdx(vals)

	obj := Object{
		Area:    area,
		ADU:     flux,
		MaxADU:  vals[peak],
		MeanADU: flux / float64(area),
		Radius:  math.Sqrt(float64(area) / math.Pi),
		Peak:    Coord{pix[peak] % width, pix[peak] / width},
	}

	first := Coord{pix[0] % width, pix[0] / width}
	obj.Left, obj.Top, obj.Right, obj.Bottom = first, first, first, first

	var sumX, sumY float64
	for _, off := range pix {
		p := Coord{off % width, off / width}
		sumX += float64(p.X)
		sumY += float64(p.Y)
		if p.X < obj.Left.X {
			obj.Left = p
		}
		if p.X > obj.Right.X {
			obj.Right = p
		}
		if p.Y > obj.Bottom.Y {
			obj.Bottom = p
		}
	}
	obj.Pos = Point{X: sumX / float64(area), Y: sumY / float64(area)}

	if area > 1 {
		obj.SigmaADU = stat.StdDev(vals, nil)
	}

	var elongation float64
	obj.PA, elongation = shape(pix, vals, width, flux)
	if obj.Radius <= c.params.PointMaxRadius && elongation <= c.params.PointMaxElongation {
		obj.Type = ObjectPoint
	} else {
		obj.Type = ObjectExtended
	}
	return obj
}

// shape returns the position angle of the principal axis of the flux weighted
// pixel distribution and its elongation.
func shape(pix []int, vals []float64, width int, flux float64) (pa, elongation float64) {
	n := len(pix)
	if n < 2 {
		return 0, 1
	}

	// weights are rescaled to sum to n so the covariance is normalised by n-1
	coords := mat.NewDense(n, 2, nil)
	weights := make([]float64, n)
	scale := float64(n) / flux
	for i, off := range pix {
		coords.Set(i, 0, float64(off%width))
		coords.Set(i, 1, float64(off/width))
		weights[i] = vals[i] * scale
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, coords, weights)

	var eig mat.EigenSym
	if !eig.Factorize(&cov, true) {
		return 0, 1
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// eigenvalues are ascending; the last column is the principal axis
	pa = math.Atan2(vectors.At(1, 1), vectors.At(0, 1))
	if pa > math.Pi/2 {
		pa -= math.Pi
	} else if pa <= -math.Pi/2 {
		pa += math.Pi
	}
	elongation = math.Sqrt((math.Max(values[1], 0) + pixelVariance) / (math.Max(values[0], 0) + pixelVariance))
	return pa, elongation
}

func (c *Catalog) nearEdge(p Coord) bool {
	m := c.params.EdgeMargin
	if m <= 0 {
		return false
	}
	if p.X < m || p.X >= c.width-m {
		return true
	}
	// signals have no vertical extent to prune against
	return c.height > 1 && (p.Y < m || p.Y >= c.height-m)
}

// background samples the signal in a box around the object, skipping pixels
// owned by any object, and keeps the central 60% of the sorted samples.
func (c *Catalog) background(i int, signal []float64) {
	obj := &c.objects[i]
	half := int(math.Ceil(c.params.BackgroundScale * obj.Radius))
	if half < 1 {
		half = 1
	}
	cx, cy := int(math.Round(obj.Pos.X)), int(math.Round(obj.Pos.Y))
	x0, x1 := max(cx-half, 0), min(cx+half, c.width-1)
	y0, y1 := max(cy-half, 0), min(cy+half, c.height-1)

	var samples []float64
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			off := y*c.width + x
			if c.owner[off] >= 0 {
				continue
			}
			samples = append(samples, signal[off])
		}
	}
	sort.Float64s(samples)

	cut := len(samples) / 5
	kept := samples[cut : len(samples)-cut]
	if len(kept) == 0 {
		return
	}
	obj.BackgroundArea = len(kept)
	obj.BackgroundADU = stat.Mean(kept, nil)
}

// snr applies the CCD equation to the raw signal under the object support.
func (c *Catalog) snr(i int, in Input, signal []float64) {
	obj := &c.objects[i]

	var raw float64
	for _, off := range c.supports[i] {
		raw += signal[off]
	}

	bg := obj.BackgroundADU
	if in.HasDarkMean {
		bg = in.DarkMean
	}
	gain := in.CCD.Gain
	if gain <= 0 {
		gain = 1
	}
	area := float64(obj.Area)

	s := gain * (raw - area*bg)
	noise := math.Max(s, 0) + area*(gain*math.Max(bg-in.CCD.Bias, 0)+in.CCD.Readout*in.CCD.Readout)
	obj.SNR, obj.Error = 0, 0
	if noise > 0 {
		obj.SNR = s / math.Sqrt(noise)
	}
	if obj.SNR > 0 {
		obj.Error = magnitudeError / obj.SNR
	}
}

func (c *Catalog) updateMagnitudes() {
	var brightest float64
	for _, o := range c.objects {
		brightest = math.Max(brightest, o.ADU)
	}
	if brightest <= 0 {
		return
	}
	for i := range c.objects {
		c.objects[i].MagDelta = -2.5 * math.Log10(c.objects[i].ADU/brightest)
	}
}
