package data

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// MarkSignificant clears sig and flags every position where |src| exceeds
// threshold. It returns the number of flagged positions.
func MarkSignificant(sig, src *Data, threshold float64) (int, error) {
	if err := sameShape(sig, src); err != nil {
		return 0, err
	}
	if !sig.typ.IsUint() {
		return 0, fmt.Errorf("significance map of type %s: %w", sig.typ, ErrInvalidArgument)
	}
	n := 0
	for i, v := range src.adu {
		if math.Abs(v) > threshold {
			sig.adu[i] = 1
			n++
		} else {
			sig.adu[i] = 0
		}
	}
	return n, nil
}

// NewSignificance returns a map flagging positions of src whose magnitude
// exceeds k times the standard deviation of src.
func NewSignificance(src *Data, k float64) (*Data, error) {
	if err := src.live(); err != nil {
		return nil, err
	}
	sigma := src.StdDev()
	if sigma == 0 {
		return nil, fmt.Errorf("significance of %dx%d plane: %w", src.width, src.height, ErrZeroVariance)
	}
	sig, err := NewLike(src, uintType(src.typ))
	if err != nil {
		return nil, err
	}
	if _, err := MarkSignificant(sig, src, k*sigma); err != nil {
		return nil, err
	}
	return sig, nil
}

// SignificantCount returns the number of non-zero elements.
func (d *Data) SignificantCount() int {
	return floats.Count(func(v float64) bool { return v != 0 }, d.adu)
}

// UintType returns the uint type with the dimensionality of t.
func UintType(t Type) Type { return uintType(t) }

func uintType(t Type) Type {
	if t.Is1D() {
		return Type1DUint
	}
	return Type2DUint
}
