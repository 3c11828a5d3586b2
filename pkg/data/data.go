// Package data provides the numeric context every wavescope plane is built on.
//
// A Data context stores its samples as float64 ADU values regardless of the
// element type they were loaded from. The source element type is remembered so
// that readback can convert to the caller's layout again. Uint typed contexts
// hold integral values and double as significance maps.
package data

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Type selects the dimensionality and value domain of a context.
type Type int

const (
	Type1DUint Type = iota
	Type1DFloat
	Type2DUint
	Type2DFloat
)

// Is1D reports whether the type describes a 1D signal.
func (t Type) Is1D() bool { return t == Type1DUint || t == Type1DFloat }

// IsUint reports whether values of this type are unsigned integers.
func (t Type) IsUint() bool { return t == Type1DUint || t == Type2DUint }

func (t Type) valid() bool { return t >= Type1DUint && t <= Type2DFloat }

func (t Type) String() string {
	switch t {
	case Type1DUint:
		return "1d-uint"
	case Type1DFloat:
		return "1d-float"
	case Type2DUint:
		return "2d-uint"
	case Type2DFloat:
		return "2d-float"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Source is the element type of an external buffer.
type Source int

const (
	SourceUint8 Source = iota
	SourceUint16
	SourceUint32
	SourceFloat32
	SourceFloat64
)

// Size returns the width of one element in bytes, or 0 for an unknown source.
func (s Source) Size() int {
	switch s {
	case SourceUint8:
		return 1
	case SourceUint16:
		return 2
	case SourceUint32, SourceFloat32:
		return 4
	case SourceFloat64:
		return 8
	}
	return 0
}

// Data is a typed numeric buffer of width*height values.
type Data struct {
	typ    Type
	source Source
	width  int
	height int
	stride int // elements per row of the external layout
	adu    []float64
}

// New allocates a context. When raw is not nil its contents are decoded from
// the little-endian source element type, row by row, honouring strideBytes.
// A zero strideBytes means rows are packed. For 1D types height is ignored.
func New(typ Type, width, height, strideBytes int, source Source, raw []byte) (*Data, error) {
	if !typ.valid() {
		return nil, fmt.Errorf("data type %d: %w", typ, ErrInvalidArgument)
	}
	elem := source.Size()
	if elem == 0 {
		return nil, fmt.Errorf("source type %d: %w", source, ErrInvalidArgument)
	}
	if typ.Is1D() {
		height = 1
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%dx%d: %w", width, height, ErrInvalidDimensions)
	}

	rowBytes := width * elem
	if strideBytes == 0 {
		strideBytes = rowBytes
	}
	if strideBytes < rowBytes || strideBytes%elem != 0 {
		return nil, fmt.Errorf("stride %d for row of %d bytes: %w", strideBytes, rowBytes, ErrInvalidDimensions)
	}

	d := &Data{
		typ:    typ,
		source: source,
		width:  width,
		height: height,
		stride: strideBytes / elem,
		adu:    make([]float64, width*height),
	}
	if raw == nil {
		return d, nil
	}

	need := (height-1)*strideBytes + rowBytes
	if len(raw) < need {
		return nil, fmt.Errorf("buffer holds %d bytes, need %d: %w", len(raw), need, ErrInvalidDimensions)
	}
	for y := 0; y < height; y++ {
		row := raw[y*strideBytes:]
		out := d.adu[y*width : (y+1)*width]
		for x := range out {
			out[x] = decode(row[x*elem:], source)
		}
	}
	if typ.IsUint() {
		for i, v := range d.adu {
			d.adu[i] = clampRound(v, 0, math.MaxUint32)
		}
	}
	return d, nil
}

// NewFloat creates a 2D float context from row-major values. A nil slice
// yields a zeroed context.
func NewFloat(width, height int, values []float64) (*Data, error) {
	d, err := New(Type2DFloat, width, height, 0, SourceFloat64, nil)
	if err != nil {
		return nil, err
	}
	if values != nil {
		if len(values) != len(d.adu) {
			return nil, fmt.Errorf("%d values for %dx%d: %w", len(values), width, height, ErrInvalidDimensions)
		}
		copy(d.adu, values)
	}
	return d, nil
}

// NewSignal creates a 1D float context of the given length. A nil slice yields
// a zeroed signal.
func NewSignal(length int, values []float64) (*Data, error) {
	d, err := New(Type1DFloat, length, 1, 0, SourceFloat64, nil)
	if err != nil {
		return nil, err
	}
	if values != nil {
		if len(values) != length {
			return nil, fmt.Errorf("%d values for length %d: %w", len(values), length, ErrInvalidDimensions)
		}
		copy(d.adu, values)
	}
	return d, nil
}

// NewLike allocates a zeroed context with the dimensions of src and the given type.
// The dimensionality of typ must match src.
func NewLike(src *Data, typ Type) (*Data, error) {
	if err := src.live(); err != nil {
		return nil, err
	}
	if !typ.valid() || typ.Is1D() != src.typ.Is1D() {
		return nil, fmt.Errorf("type %s like %s: %w", typ, src.typ, ErrInvalidArgument)
	}
	return &Data{
		typ:    typ,
		source: src.source,
		width:  src.width,
		height: src.height,
		stride: src.width,
		adu:    make([]float64, len(src.adu)),
	}, nil
}

// NewFromArea copies the width x height rectangle whose top left corner is
// (x, y) out of a 2D source.
func NewFromArea(src *Data, width, height, x, y int) (*Data, error) {
	if err := src.live(); err != nil {
		return nil, err
	}
	if src.typ.Is1D() {
		return nil, fmt.Errorf("area of 1D context: %w", ErrInvalidArgument)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("area %dx%d: %w", width, height, ErrInvalidDimensions)
	}
	if x < 0 || y < 0 || x+width > src.width || y+height > src.height {
		return nil, fmt.Errorf("area %dx%d at (%d,%d) in %dx%d: %w",
			width, height, x, y, src.width, src.height, ErrOutOfRange)
	}

	d := &Data{
		typ:    src.typ,
		source: src.source,
		width:  width,
		height: height,
		stride: width,
		adu:    make([]float64, width*height),
	}
	for row := 0; row < height; row++ {
		off := (y+row)*src.width + x
		copy(d.adu[row*width:(row+1)*width], src.adu[off:off+width])
	}
	return d, nil
}

// NewFromSection copies length samples starting at start into a new 1D context.
func NewFromSection(src *Data, start, length int) (*Data, error) {
	if err := src.live(); err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, fmt.Errorf("section length %d: %w", length, ErrInvalidDimensions)
	}
	if start < 0 || start+length > len(src.adu) {
		return nil, fmt.Errorf("section [%d,%d) of %d: %w", start, start+length, len(src.adu), ErrOutOfRange)
	}

	typ := Type1DFloat
	if src.typ.IsUint() {
		typ = Type1DUint
	}
	d := &Data{
		typ:    typ,
		source: src.source,
		width:  length,
		height: 1,
		stride: length,
		adu:    make([]float64, length),
	}
	copy(d.adu, src.adu[start:start+length])
	return d, nil
}

// Clone returns a deep copy of the context.
func (d *Data) Clone() (*Data, error) {
	if err := d.live(); err != nil {
		return nil, err
	}
	c := *d
	c.adu = append([]float64(nil), d.adu...)
	return &c, nil
}

// CopyFrom overwrites the values of d with those of src.
func (d *Data) CopyFrom(src *Data) error {
	if err := sameShape(d, src); err != nil {
		return err
	}
	copy(d.adu, src.adu)
	return nil
}

// Free releases the buffer. Dimensions remain readable; every other operation
// on a released context fails with ErrFreed.
func (d *Data) Free() {
	d.adu = nil
}

// Type returns the context type.
func (d *Data) Type() Type { return d.typ }

// Source returns the element type the context was loaded from.
func (d *Data) Source() Source { return d.source }

// Width returns the number of samples per row.
func (d *Data) Width() int { return d.width }

// Height returns the number of rows, 1 for signals.
func (d *Data) Height() int { return d.height }

// Stride returns the row stride in elements of the external layout.
func (d *Data) Stride() int { return d.stride }

// Size returns the number of elements.
func (d *Data) Size() int { return d.width * d.height }

// Bytes returns the size in bytes of the external layout in the source type.
func (d *Data) Bytes() int { return d.stride * d.height * d.source.Size() }

// Values exposes the underlying row-major buffer. The slice aliases the
// context and is nil once the context is freed.
func (d *Data) Values() []float64 { return d.adu }

// At returns the value at column x, row y.
func (d *Data) At(x, y int) (float64, error) {
	if err := d.live(); err != nil {
		return 0, err
	}
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return 0, fmt.Errorf("position (%d,%d) in %dx%d: %w", x, y, d.width, d.height, ErrOutOfRange)
	}
	return d.adu[y*d.width+x], nil
}

// AtOffset returns the value at a linear offset.
func (d *Data) AtOffset(offset int) (float64, error) {
	if err := d.live(); err != nil {
		return 0, err
	}
	if offset < 0 || offset >= len(d.adu) {
		return 0, fmt.Errorf("offset %d of %d: %w", offset, len(d.adu), ErrOutOfRange)
	}
	return d.adu[offset], nil
}

// SetAt stores v at column x, row y.
func (d *Data) SetAt(x, y int, v float64) error {
	if err := d.live(); err != nil {
		return err
	}
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return fmt.Errorf("position (%d,%d) in %dx%d: %w", x, y, d.width, d.height, ErrOutOfRange)
	}
	if d.typ.IsUint() {
		v = clampRound(v, 0, math.MaxUint32)
	}
	d.adu[y*d.width+x] = v
	return nil
}

// Convert changes the value domain of the context in place. Converting to a
// uint type rounds and clamps every value to the uint32 range.
func (d *Data) Convert(typ Type) error {
	if err := d.live(); err != nil {
		return err
	}
	if !typ.valid() || typ.Is1D() != d.typ.Is1D() {
		return fmt.Errorf("convert %s to %s: %w", d.typ, typ, ErrInvalidArgument)
	}
	if typ.IsUint() && !d.typ.IsUint() {
		for i, v := range d.adu {
			d.adu[i] = clampRound(v, 0, math.MaxUint32)
		}
	}
	d.typ = typ
	return nil
}

// Export returns the contents converted to the requested element type, laid
// out with the context's stride.
func (d *Data) Export(source Source) ([]byte, error) {
	if err := d.live(); err != nil {
		return nil, err
	}
	elem := source.Size()
	if elem == 0 {
		return nil, fmt.Errorf("source type %d: %w", source, ErrInvalidArgument)
	}
	buf := make([]byte, d.stride*d.height*elem)
	return buf, d.ExportTo(buf, source)
}

// ExportTo writes the contents converted to the requested element type into dst.
func (d *Data) ExportTo(dst []byte, source Source) error {
	if err := d.live(); err != nil {
		return err
	}
	elem := source.Size()
	if elem == 0 {
		return fmt.Errorf("source type %d: %w", source, ErrInvalidArgument)
	}
	pitch := d.stride * elem
	if need := (d.height-1)*pitch + d.width*elem; len(dst) < need {
		return fmt.Errorf("buffer holds %d bytes, need %d: %w", len(dst), need, ErrInvalidDimensions)
	}
	for y := 0; y < d.height; y++ {
		row := dst[y*pitch:]
		for x, v := range d.adu[y*d.width : (y+1)*d.width] {
			encode(row[x*elem:], v, source)
		}
	}
	return nil
}

func (d *Data) live() error {
	if d == nil || d.adu == nil {
		return ErrFreed
	}
	return nil
}

func sameShape(ds ...*Data) error {
	for _, d := range ds {
		if err := d.live(); err != nil {
			return err
		}
	}
	for _, d := range ds[1:] {
		if d.width != ds[0].width || d.height != ds[0].height {
			return fmt.Errorf("%dx%d vs %dx%d: %w", ds[0].width, ds[0].height, d.width, d.height, ErrDimensionMismatch)
		}
	}
	return nil
}

func decode(b []byte, source Source) float64 {
	switch source {
	case SourceUint8:
		return float64(b[0])
	case SourceUint16:
		return float64(binary.LittleEndian.Uint16(b))
	case SourceUint32:
		return float64(binary.LittleEndian.Uint32(b))
	case SourceFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	default:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
}

func encode(b []byte, v float64, source Source) {
	switch source {
	case SourceUint8:
		b[0] = uint8(clampRound(v, 0, math.MaxUint8))
	case SourceUint16:
		binary.LittleEndian.PutUint16(b, uint16(clampRound(v, 0, math.MaxUint16)))
	case SourceUint32:
		binary.LittleEndian.PutUint32(b, uint32(clampRound(v, 0, math.MaxUint32)))
	case SourceFloat32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	default:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	}
}

func clampRound(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	v = math.Round(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
