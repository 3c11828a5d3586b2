package data

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSignificance(t *testing.T) {
	values := make([]float64, 100)
	values[10] = 50
	values[20] = -50
	values[30] = 1
	src, err := NewSignal(100, values)
	require.NoError(t, err)

	sig, err := NewSignificance(src, 2)
	require.NoError(t, err)
	assert.Equal(t, Type1DUint, sig.Type())
	assert.Equal(t, 2, sig.SignificantCount())
	assert.Equal(t, 1.0, sig.Values()[10])
	assert.Equal(t, 1.0, sig.Values()[20])
	assert.Equal(t, 0.0, sig.Values()[30])
}

func TestNewSignificanceZeroVariance(t *testing.T) {
	src, err := NewFloat(8, 8, nil)
	require.NoError(t, err)

	_, err = NewSignificance(src, 3)
	assert.ErrorIs(t, err, ErrZeroVariance)
}

func TestMarkSignificantResetsMap(t *testing.T) {
	src := mustFloat(t, 3, 1, []float64{0.5, 2, -3})
	sig := mustMask(t, 3, 1, []float64{1, 1, 1})

	n, err := MarkSignificant(sig, src, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float64{0, 1, 1}, sig.Values())

	_, err = MarkSignificant(src, src, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAnscombe(t *testing.T) {
	d := mustFloat(t, 3, 1, []float64{10, 110, 0})
	ccd := CCD{Gain: 2, Bias: 10, Readout: 1}

	require.NoError(t, d.Anscombe(ccd))
	assert.InDelta(t, 2*math.Sqrt(0.375+1)/2, d.Values()[0], 1e-12)
	assert.InDelta(t, 2*math.Sqrt(200+0.375+1)/2, d.Values()[1], 1e-12)
	// (0-10)*2 + 1.375 is negative and clamps to zero
	assert.Equal(t, 0.0, d.Values()[2])

	assert.ErrorIs(t, d.Anscombe(CCD{Gain: 0}), ErrInvalidArgument)
	assert.Equal(t, 1.0, DefaultCCD().Gain)
}
