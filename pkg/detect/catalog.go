package detect

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"wavescope/pkg/data"
)

// Catalog owns the objects found on one plane geometry. Objects are kept in
// discovery order and addressed by id; they are only ever released together.
type Catalog struct {
	params Params
	width  int
	height int
	oneD   bool

	objects  []Object
	supports [][]int
	recon    [][]float64

	// owner maps every pixel to the id of the object that claims it, or -1
	owner []int32
	tree  *kdtree.Tree
}

// NewCatalog returns an empty catalogue using params for every Connect.
func NewCatalog(params Params) *Catalog {
	return &Catalog{params: params}
}

// Params returns the detection parameters in use.
func (c *Catalog) Params() Params { return c.params }

// Len returns the number of objects.
func (c *Catalog) Len() int { return len(c.objects) }

// Object returns the object with id i. ok is false past the end.
func (c *Catalog) Object(i int) (Object, bool) {
	if i < 0 || i >= len(c.objects) {
		return Object{}, false
	}
	return c.objects[i], true
}

// Objects returns a copy of every object in id order.
func (c *Catalog) Objects() []Object {
	out := make([]Object, len(c.objects))
	copy(out, c.objects)
	return out
}

// ObjectAt returns the object owning pixel (x, y). When no support covers the
// pixel the first object, by the same priority, whose bounding box contains
// it is returned.
func (c *Catalog) ObjectAt(x, y int) (Object, bool) {
	if len(c.owner) == 0 || x < 0 || y < 0 || x >= c.width || y >= c.height {
		return Object{}, false
	}
	if id := c.owner[y*c.width+x]; id >= 0 {
		return c.objects[id], true
	}

	best := -1
	for i := range c.objects {
		if !c.objects[i].Contains(x, y) {
			continue
		}
		if best < 0 || c.precedes(i, best) {
			best = i
		}
	}
	if best < 0 {
		return Object{}, false
	}
	return c.objects[best], true
}

// Nearest returns the object whose centroid is closest to (x, y).
func (c *Catalog) Nearest(x, y float64) (Object, bool) {
	if c.tree == nil {
		return Object{}, false
	}
	got, _ := c.tree.Nearest(centroid{X: x, Y: y, ID: -1})
	if got == nil {
		return Object{}, false
	}
	return c.objects[got.(centroid).ID], true
}

// ObjectData returns the reconstruction of object id over its bounding box.
// Pixels outside the object support are zero.
func (c *Catalog) ObjectData(id int) (*data.Data, error) {
	if id < 0 || id >= len(c.objects) {
		return nil, fmt.Errorf("object %d of %d: %w", id, len(c.objects), data.ErrOutOfRange)
	}
	x0, y0, x1, y1 := c.objects[id].Bounds()
	w, h := x1-x0+1, y1-y0+1

	values := make([]float64, w*h)
	for i, off := range c.supports[id] {
		x, y := off%c.width-x0, off/c.width-y0
		values[y*w+x] = c.recon[id][i]
	}
	if c.oneD {
		return data.NewSignal(w, values)
	}
	return data.NewFloat(w, h, values)
}

// Support returns the raster ordered pixel offsets of object id.
func (c *Catalog) Support(id int) []int {
	if id < 0 || id >= len(c.supports) {
		return nil
	}
	return c.supports[id]
}

// Free releases every object.
func (c *Catalog) Free() {
	c.objects = nil
	c.supports = nil
	c.recon = nil
	c.owner = nil
	c.tree = nil
}

// precedes orders objects by start scale, then area, then id.
func (c *Catalog) precedes(a, b int) bool {
	oa, ob := &c.objects[a], &c.objects[b]
	if oa.StartScale != ob.StartScale {
		return oa.StartScale < ob.StartScale
	}
	if oa.Area != ob.Area {
		return oa.Area < ob.Area
	}
	return a < b
}

func (c *Catalog) rebuildOwners() {
	if len(c.owner) != c.width*c.height {
		c.owner = make([]int32, c.width*c.height)
	}
	for i := range c.owner {
		c.owner[i] = -1
	}
	for id, pix := range c.supports {
		for _, off := range pix {
			cur := c.owner[off]
			if cur < 0 || c.precedes(id, int(cur)) {
				c.owner[off] = int32(id)
			}
		}
	}
}

func (c *Catalog) rebuildIndex() {
	if len(c.objects) == 0 {
		c.tree = nil
		return
	}
	points := make(centroids, len(c.objects))
	for i, o := range c.objects {
		points[i] = centroid{X: o.Pos.X, Y: o.Pos.Y, ID: i}
	}
	c.tree = kdtree.New(points, false)
}

// centroid is an object position in the nearest-object index.
type centroid struct {
	X, Y float64
	ID   int
}

// Compare implements kdtree.Comparable.
func (p centroid) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(centroid)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

func (p centroid) Dims() int { return 2 }

// Distance returns the squared distance between two centroids.
func (p centroid) Distance(c kdtree.Comparable) float64 {
	q := c.(centroid)
	return math.Pow(p.X-q.X, 2) + math.Pow(p.Y-q.Y, 2)
}

type centroids []centroid

func (p centroids) Index(i int) kdtree.Comparable         { return p[i] }
func (p centroids) Len() int                              { return len(p) }
func (p centroids) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p centroids) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(centroidPlane{centroids: p, Dim: d}, kdtree.MedianOfRandoms(centroidPlane{centroids: p, Dim: d}, 100))
}

// centroidPlane sorts centroids along one dimension for partitioning.
type centroidPlane struct {
	centroids
	kdtree.Dim
}

func (p centroidPlane) Less(i, j int) bool {
	if p.Dim == 0 {
		return p.centroids[i].X < p.centroids[j].X
	}
	return p.centroids[i].Y < p.centroids[j].Y
}

func (p centroidPlane) Slice(start, end int) kdtree.SortSlicer {
	return centroidPlane{centroids: p.centroids[start:end], Dim: p.Dim}
}

func (p centroidPlane) Swap(i, j int) {
	p.centroids[i], p.centroids[j] = p.centroids[j], p.centroids[i]
}
