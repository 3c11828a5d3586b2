package data

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Limits returns the minimum and maximum value in a single pass.
func (d *Data) Limits() (min, max float64) {
	if len(d.adu) == 0 {
		return 0, 0
	}
	min, max = d.adu[0], d.adu[0]
	for _, v := range d.adu[1:] {
		if v < min {
			min = v
		} else if v > max {
			max = v
		}
	}
	return min, max
}

// Mean returns the arithmetic mean of all values.
func (d *Data) Mean() float64 {
	if len(d.adu) == 0 {
		return 0
	}
	return stat.Mean(d.adu, nil)
}

// Sigma returns the sample standard deviation of all values about mean.
func (d *Data) Sigma(mean float64) float64 {
	return sampleSigma(d.adu, mean, nil, float64(len(d.adu)))
}

// StdDev returns the sample standard deviation about the computed mean.
func (d *Data) StdDev() float64 {
	return d.Sigma(d.Mean())
}

// Norm returns the Euclidean norm of the values.
func (d *Data) Norm() float64 {
	return floats.Norm(d.adu, 2)
}

// SignificantMean returns the mean over the positions where sig is non-zero.
// It is 0 when no position is significant.
func (d *Data) SignificantMean(sig *Data) (float64, error) {
	if err := sameShape(d, sig); err != nil {
		return 0, err
	}
	w, n := sig.weights(false)
	if n == 0 {
		return 0, nil
	}
	return stat.Mean(d.adu, w), nil
}

// SignificantSigma returns the sample standard deviation about mean over the
// positions where sig is non-zero.
func (d *Data) SignificantSigma(sig *Data, mean float64) (float64, error) {
	if err := sameShape(d, sig); err != nil {
		return 0, err
	}
	w, n := sig.weights(false)
	return sampleSigma(d.adu, mean, w, n), nil
}

// BackgroundSigma returns the sample standard deviation, about their own mean,
// of the values at positions where sig is zero, together with their count.
func (d *Data) BackgroundSigma(sig *Data) (float64, int, error) {
	if err := sameShape(d, sig); err != nil {
		return 0, 0, err
	}
	w, n := sig.weights(true)
	if n == 0 {
		return 0, 0, nil
	}
	mean := stat.Mean(d.adu, w)
	return sampleSigma(d.adu, mean, w, n), int(n), nil
}

// weights turns a mask into 0/1 weights, optionally inverted, and returns
// their sum.
func (d *Data) weights(invert bool) ([]float64, float64) {
	w := make([]float64, len(d.adu))
	var n float64
	for i, v := range d.adu {
		if (v != 0) != invert {
			w[i] = 1
			n++
		}
	}
	return w, n
}

func sampleSigma(x []float64, mean float64, weights []float64, n float64) float64 {
	if n < 2 {
		return 0
	}
	m2 := stat.MomentAbout(2, x, mean, weights)
	return math.Sqrt(m2 * n / (n - 1))
}
