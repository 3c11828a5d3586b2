package detect

// ObjectType classifies an object by its spatial extent.
type ObjectType int

const (
	ObjectPoint ObjectType = iota
	ObjectExtended
)

func (t ObjectType) String() string {
	if t == ObjectPoint {
		return "point"
	}
	return "extended"
}

// Object is a chain of structures linked across scales, together with the
// photometry measured on its reconstruction.
type Object struct {
	// ID is the sequential id assigned at discovery
	ID   int
	Type ObjectType

	// Pos is the mean position of the support pixels
	Pos Point

	// Peak is the pixel holding MaxADU
	Peak Coord

	// Extremal support pixels: first leftmost, topmost, rightmost and
	// bottommost pixel in raster order
	Left, Top, Right, Bottom Coord

	// PA is the position angle of the principal axis in radians, (-π/2, π/2]
	PA float64

	// ADU is the total reconstructed flux over the support
	ADU float64

	// Radius is the radius of a disc with the same area
	Radius float64
	Area   int

	SNR float64

	// Error is the magnitude error derived from SNR
	Error float64

	BackgroundArea int
	BackgroundADU  float64

	MaxADU   float64
	MeanADU  float64
	SigmaADU float64

	// MagDelta is the magnitude relative to the brightest object in the catalogue
	MagDelta float64

	// Scale is the coarsest scale of the chain, StartScale the finest
	Scale      int
	StartScale int
}

// Bounds returns the inclusive bounding box of the object.
func (o Object) Bounds() (x0, y0, x1, y1 int) {
	return o.Left.X, o.Top.Y, o.Right.X, o.Bottom.Y
}

// Contains reports whether (x, y) lies inside the bounding box.
func (o Object) Contains(x, y int) bool {
	x0, y0, x1, y1 := o.Bounds()
	return x >= x0 && x <= x1 && y >= y0 && y <= y1
}

// Params tunes linking and classification.
type Params struct {
	// Connectivity is the pixel adjacency used for labelling, 4 or 8
	Connectivity int `yaml:"connectivity"`

	// MinScales is the minimum number of scales a chain must span. Zero
	// selects two, or one when the connected range is a single scale.
	MinScales int `yaml:"minScales"`

	// EdgeMargin drops objects whose peak lies this close to the border
	EdgeMargin int `yaml:"edgeMargin"`

	// BackgroundScale sizes the background box as a multiple of the radius
	BackgroundScale float64 `yaml:"backgroundScale"`

	PointMaxRadius     float64 `yaml:"pointMaxRadius"`
	PointMaxElongation float64 `yaml:"pointMaxElongation"`
}

// DefaultParams returns the default detection parameters.
func DefaultParams() Params {
	return Params{
		Connectivity:       4,
		BackgroundScale:    10,
		PointMaxRadius:     4,
		PointMaxElongation: 2,
	}
}
