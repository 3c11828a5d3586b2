package data

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Add stores b + c in d.
func (d *Data) Add(b, c *Data) error {
	if err := sameShape(d, b, c); err != nil {
		return err
	}
	floats.AddTo(d.adu, b.adu, c.adu)
	return nil
}

// Subtract stores b - c in d.
func (d *Data) Subtract(b, c *Data) error {
	if err := sameShape(d, b, c); err != nil {
		return err
	}
	floats.SubTo(d.adu, b.adu, c.adu)
	return nil
}

// MultiplyAdd stores b + c*k in d.
func (d *Data) MultiplyAdd(b, c *Data, k float64) error {
	if err := sameShape(d, b, c); err != nil {
		return err
	}
	floats.AddScaledTo(d.adu, b.adu, k, c.adu)
	return nil
}

// MultiplySubtract stores b - c*k in d.
func (d *Data) MultiplySubtract(b, c *Data, k float64) error {
	return d.MultiplyAdd(b, c, -k)
}

// AddValue adds v to every element.
func (d *Data) AddValue(v float64) {
	floats.AddConst(v, d.adu)
}

// SubtractValue subtracts v from every element.
func (d *Data) SubtractValue(v float64) {
	floats.AddConst(-v, d.adu)
}

// MultiplyValue scales every element by v.
func (d *Data) MultiplyValue(v float64) {
	floats.Scale(v, d.adu)
}

// SetValue sets every element to v.
func (d *Data) SetValue(v float64) {
	for i := range d.adu {
		d.adu[i] = v
	}
}

// Abs replaces every element with its magnitude.
func (d *Data) Abs() {
	for i, v := range d.adu {
		d.adu[i] = math.Abs(v)
	}
}

// CopySign gives each element of d the sign of the matching element of src,
// keeping its magnitude.
func (d *Data) CopySign(src *Data) error {
	if err := sameShape(d, src); err != nil {
		return err
	}
	for i, v := range d.adu {
		if src.adu[i] < 0 {
			d.adu[i] = -math.Abs(v)
		} else {
			d.adu[i] = math.Abs(v)
		}
	}
	return nil
}

// ClearNegative sets negative elements to zero.
func (d *Data) ClearNegative() {
	for i, v := range d.adu {
		if v < 0 {
			d.adu[i] = 0
		}
	}
}

// Normalise maps the observed [min, max] linearly onto [lo, hi]. A constant
// context is set to lo.
func (d *Data) Normalise(lo, hi float64) error {
	if err := d.live(); err != nil {
		return err
	}
	min, max := d.Limits()
	if max == min {
		d.SetValue(lo)
		return nil
	}
	scale := (hi - lo) / (max - min)
	for i, v := range d.adu {
		d.adu[i] = lo + (v-min)*scale
	}
	return nil
}

// SignificantAdd stores b + c in d wherever sig is non-zero.
func (d *Data) SignificantAdd(b, c, sig *Data) error {
	if err := sameShape(d, b, c, sig); err != nil {
		return err
	}
	for i, s := range sig.adu {
		if s != 0 {
			d.adu[i] = b.adu[i] + c.adu[i]
		}
	}
	return nil
}

// SignificantSubtract stores b - c in d wherever sig is non-zero.
func (d *Data) SignificantSubtract(b, c, sig *Data) error {
	if err := sameShape(d, b, c, sig); err != nil {
		return err
	}
	for i, s := range sig.adu {
		if s != 0 {
			d.adu[i] = b.adu[i] - c.adu[i]
		}
	}
	return nil
}

// SignificantCopy copies src into d where sig is non-zero and zeroes every
// other element. A nil sig copies everything.
func (d *Data) SignificantCopy(src, sig *Data) error {
	if sig == nil {
		return d.CopyFrom(src)
	}
	if err := sameShape(d, src, sig); err != nil {
		return err
	}
	for i, s := range sig.adu {
		if s != 0 {
			d.adu[i] = src.adu[i]
		} else {
			d.adu[i] = 0
		}
	}
	return nil
}

// SignificantSetValue sets d to v wherever sig is non-zero.
func (d *Data) SignificantSetValue(sig *Data, v float64) error {
	if err := sameShape(d, sig); err != nil {
		return err
	}
	for i, s := range sig.adu {
		if s != 0 {
			d.adu[i] = v
		}
	}
	return nil
}

// SignificantAddValue adds v to d wherever sig is non-zero.
func (d *Data) SignificantAddValue(sig *Data, v float64) error {
	if err := sameShape(d, sig); err != nil {
		return err
	}
	for i, s := range sig.adu {
		if s != 0 {
			d.adu[i] += v
		}
	}
	return nil
}
