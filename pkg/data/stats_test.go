package data

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatistics(t *testing.T) {
	d, err := NewSignal(5, []float64{2, 4, 4, 5, 10})
	require.NoError(t, err)

	min, max := d.Limits()
	assert.Equal(t, 2.0, min)
	assert.Equal(t, 10.0, max)

	assert.InDelta(t, 5.0, d.Mean(), 1e-12)
	// sum of squared deviations is 36 over n-1 = 4
	assert.InDelta(t, 3.0, d.StdDev(), 1e-12)
	assert.InDelta(t, math.Sqrt(36.0/4), d.Sigma(5), 1e-12)
	assert.InDelta(t, math.Sqrt(4+16+16+25+100), d.Norm(), 1e-12)
}

func TestMaskedStatistics(t *testing.T) {
	d, err := NewSignal(6, []float64{1, 100, 3, 100, 5, 100})
	require.NoError(t, err)
	sig, err := New(Type1DUint, 6, 1, 0, SourceUint32, nil)
	require.NoError(t, err)
	copy(sig.Values(), []float64{1, 0, 1, 0, 1, 0})

	mean, err := d.SignificantMean(sig)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, mean, 1e-12)

	sigma, err := d.SignificantSigma(sig, mean)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, sigma, 1e-12)

	bg, n, err := d.BackgroundSigma(sig)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.InDelta(t, 0.0, bg, 1e-12)

	empty, _ := New(Type1DUint, 6, 1, 0, SourceUint32, nil)
	mean, err = d.SignificantMean(empty)
	require.NoError(t, err)
	assert.Equal(t, 0.0, mean)

	short, _ := NewSignal(5, nil)
	_, err = short.SignificantMean(sig)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
