package wavelet

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavescope/pkg/data"
)

func TestCoefficients(t *testing.T) {
	tests := []struct {
		name     string
		strength ClipStrength
		scales   int
		want     []float64
	}{
		{"very gentle", ClipVeryGentle, 4, []float64{2, 1, 0.5}},
		{"normal", ClipNormal, 6, []float64{4, 3, 2, 1, 0.5}},
		{"very very strong", ClipVeryVeryStrong, 12, []float64{7, 6, 5, 4, 3, 2, 1, 0.5, 0.25, 0.125, 0.0625}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coefficients(tt.strength, tt.scales)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Coefficients(ClipStrength(42), 4)
	assert.ErrorIs(t, err, data.ErrInvalidArgument)
	_, err = Coefficients(ClipNormal, 13)
	assert.ErrorIs(t, err, data.ErrInvalidArgument)
}

func TestParseClipStrength(t *testing.T) {
	for name, want := range map[string]ClipStrength{
		"very-gentle":      ClipVeryGentle,
		"Normal":           ClipNormal,
		"very_very_strong": ClipVeryVeryStrong,
		"":                 ClipNormal,
	} {
		got, err := ParseClipStrength(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseClipStrength("brutal")
	assert.ErrorIs(t, err, data.ErrInvalidArgument)
}

func noisePyramid(t *testing.T, scales int) *Pyramid {
	t.Helper()
	return noisePyramidWith(t, scales, testOptions())
}

func noisePyramidWith(t *testing.T, scales int, opts Options) *Pyramid {
	t.Helper()
	rng := rand.New(rand.NewSource(21))
	values := make([]float64, 128*128)
	for i := range values {
		values[i] = rng.NormFloat64()*5 + 50
	}
	src, err := data.NewFloat(128, 128, values)
	require.NoError(t, err)

	p, err := New(src, scales, opts)
	require.NoError(t, err)
	require.NoError(t, p.Convolve(ConvAtrous, MaskBicubic))
	return p
}

func TestClipPureNoise(t *testing.T) {
	p := noisePyramid(t, 4)

	total, err := p.KSigmaClipCustom([]float64{3, 3, 3}, 0.01)
	require.NoError(t, err)

	sum := 0
	for i := 0; i < 3; i++ {
		sig, _ := p.Significant(i)
		n := sig.SignificantCount()
		sum += n
		assert.Less(t, float64(n)/float64(128*128), 0.01, "scale %d", i)
	}
	assert.Equal(t, sum, total)
}

func TestClipConvergesOnSignificantSigma(t *testing.T) {
	const k, delta = 0.5, 0.01
	p := noisePyramid(t, 4)

	_, err := p.KSigmaClipCustom([]float64{k, k, k}, delta)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		w, _ := p.Wavelet(i)
		sig, _ := p.Significant(i)
		mean, err := w.SignificantMean(sig)
		require.NoError(t, err)
		sigma, err := w.SignificantSigma(sig, mean)
		require.NoError(t, err)

		// half a sigma of Gaussian noise settles near 1.37 sigma
		assert.InDelta(t, 1.37, sigma/w.StdDev(), 0.1, "scale %d", i)

		// the map is |w| > k*sigma up to the width of the delta band
		limit := k * sigma
		mismatched := 0
		for j, v := range w.Values() {
			if math.Abs(math.Abs(v)-limit) <= k*delta {
				continue
			}
			if (math.Abs(v) > limit) != (sig.Values()[j] != 0) {
				mismatched++
			}
		}
		assert.Zero(t, mismatched, "scale %d", i)
	}
}

func TestClipStopsOnDelta(t *testing.T) {
	p := noisePyramid(t, 4)

	// a delta wider than any sigma change ends after the first pass
	n, err := p.KSigmaClipCustom([]float64{3, 3, 3}, 1e9)
	require.NoError(t, err)
	assert.Positive(t, n)
	for i := 0; i < 3; i++ {
		w, _ := p.Wavelet(i)
		sig, _ := p.Significant(i)
		want, err := data.NewSignificance(w, 3)
		require.NoError(t, err)
		assert.Equal(t, want.Values(), sig.Values(), "scale %d", i)
	}

	// refining on the flagged tail lifts sigma past every noise pixel
	converged, err := p.KSigmaClipCustom([]float64{3, 3, 3}, 0.01)
	require.NoError(t, err)
	assert.Less(t, converged, n)
}

func TestClipStopsAtIterationCap(t *testing.T) {
	const k = 0.5

	opts := testOptions()
	opts.MaxClipIterations = 1
	single := noisePyramidWith(t, 3, opts)
	_, err := single.KSigmaClipCustom([]float64{k, k}, 0)
	require.NoError(t, err)

	opts.MaxClipIterations = 2
	double := noisePyramidWith(t, 3, opts)
	_, err = double.KSigmaClipCustom([]float64{k, k}, 0)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		w, _ := single.Wavelet(i)
		first, err := data.NewSignificance(w, k)
		require.NoError(t, err)
		got, _ := single.Significant(i)
		assert.Equal(t, first.Values(), got.Values(), "scale %d", i)

		mean, err := w.SignificantMean(first)
		require.NoError(t, err)
		sigma, err := w.SignificantSigma(first, mean)
		require.NoError(t, err)
		_, err = data.MarkSignificant(first, w, k*sigma)
		require.NoError(t, err)
		got, _ = double.Significant(i)
		assert.Equal(t, first.Values(), got.Values(), "scale %d", i)
	}
}

func TestClipBackgroundSigma(t *testing.T) {
	opts := testOptions()
	opts.ClipBackground = true
	background := noisePyramidWith(t, 4, opts)

	nb, err := background.KSigmaClipCustom([]float64{3, 3, 3}, 0.01)
	require.NoError(t, err)
	assert.Positive(t, nb)
	for i := 0; i < 3; i++ {
		sig, _ := background.Significant(i)
		assert.Less(t, float64(sig.SignificantCount())/float64(128*128), 0.01, "scale %d", i)
	}

	ns, err := noisePyramid(t, 4).KSigmaClipCustom([]float64{3, 3, 3}, 0.01)
	require.NoError(t, err)
	assert.Less(t, ns, nb)
}

func TestClipStrengthOrdering(t *testing.T) {
	gentle := noisePyramid(t, 5)
	strong := noisePyramid(t, 5)

	ng, err := gentle.KSigmaClip(ClipVeryGentle, 0.01)
	require.NoError(t, err)
	ns, err := strong.KSigmaClip(ClipVeryStrong, 0.01)
	require.NoError(t, err)
	assert.Greater(t, ng, ns)
}

func TestClipValidation(t *testing.T) {
	p := noisePyramid(t, 4)

	_, err := p.KSigmaClipCustom([]float64{3, 3}, 0.01)
	assert.ErrorIs(t, err, data.ErrInvalidArgument)
	_, err = p.KSigmaClipCustom([]float64{3, 0, 3}, 0.01)
	assert.ErrorIs(t, err, data.ErrInvalidArgument)
	_, err = p.KSigmaClipCustom([]float64{3, 3, 3}, -1)
	assert.ErrorIs(t, err, data.ErrInvalidArgument)
}

func TestClipZeroVarianceKeepsEarlierScales(t *testing.T) {
	src, err := data.NewFloat(16, 16, nil)
	require.NoError(t, err)
	p := mustPyramid(t, src, 3)
	require.NoError(t, p.Convolve(ConvAtrous, MaskLinear))

	_, err = p.KSigmaClip(ClipNormal, 0.1)
	assert.ErrorIs(t, err, data.ErrZeroVariance)
	_, err = p.NewSignificantFromPreset(ClipNormal)
	assert.ErrorIs(t, err, data.ErrZeroVariance)
}

func TestNewSignificantFromPreset(t *testing.T) {
	p := noisePyramid(t, 3)
	n, err := p.NewSignificantFromPreset(ClipGentle)
	require.NoError(t, err)

	// a single pass at 3 and 2 sigma flags a few percent of Gaussian noise
	assert.Greater(t, n, 0)
	assert.Less(t, n, 2*128*128/10)

	w1, _ := p.Wavelet(1)
	s1, _ := p.Significant(1)
	limit := 2 * w1.StdDev()
	for i, v := range w1.Values() {
		flagged := s1.Values()[i] != 0
		assert.Equal(t, v > limit || v < -limit, flagged)
	}
}
