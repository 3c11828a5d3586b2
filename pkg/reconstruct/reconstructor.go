// Package reconstruct denoises a data context by iterating a significant
// wavelet reconstruction against its own residual.
package reconstruct

import (
	"fmt"
	"math"

	"wavescope/internal/monitoring"
	"wavescope/pkg/data"
	"wavescope/pkg/wavelet"
)

// Metrics summarises a completed reconstruction.
type Metrics struct {
	// Significant is the number of significant coefficients found by the
	// initial clip, summed over every scale
	Significant int

	// Iterations is the number of residual passes that were applied
	Iterations int

	// Residual is the mean norm of the masked residual detail planes at the
	// last pass
	Residual float64

	// RMSE between the input and the reconstruction
	RMSE float64
}

// Params holds the reconstruction parameters.
type Params struct {
	// Mask is the smoothing kernel used for every decomposition
	Mask wavelet.Mask

	// Mode selects direct or PSF convolution. PSF requires PSF to be set.
	Mode wavelet.ConvMode
	PSF  *data.Data

	// Threshold is the minimum change of the residual level that keeps the
	// iteration going
	Threshold float64

	// Scales is the number of pyramid scales
	Scales int

	// Clip selects the preset sigma multipliers. Coefficients, when set,
	// replace the preset.
	Clip         wavelet.ClipStrength
	Coefficients []float64

	// ClipDelta is the sigma convergence tolerance of the clip and
	// MaxClipIterations caps its passes
	ClipDelta         float64
	MaxClipIterations int

	// ClipBackground estimates the clip sigma from the unflagged pixels
	ClipBackground bool

	// MaxIterations bounds the residual passes
	MaxIterations int

	// ClearNegative zeroes negative values of the estimate after each pass
	ClearNegative bool

	// Anscombe stabilises the variance with CCD before decomposing. The
	// result stays in the stabilised domain.
	Anscombe bool
	CCD      data.CCD

	Workers int
}

// DefaultParams returns the parameters used by Reconstruct.
func DefaultParams() Params {
	opts := wavelet.DefaultOptions()
	return Params{
		Mask:              wavelet.MaskBicubic,
		Mode:              wavelet.ConvAtrous,
		Threshold:         0.01,
		Scales:            5,
		Clip:              wavelet.ClipNormal,
		ClipDelta:         0.01,
		MaxClipIterations: opts.MaxClipIterations,
		MaxIterations:     10,
		ClearNegative:     true,
		CCD:               data.DefaultCCD(),
		Workers:           opts.Workers,
	}
}

// Reconstructor runs the iterative reconstruction.
//
// The process consists of three steps:
// 1. Decomposing the input and clipping it to find the significant coefficients
// 2. Refining the estimate with the significant part of its residual
// 3. Writing the estimate back into the input context
type Reconstructor struct {
	params  *Params
	metrics Metrics
}

// NewReconstructor creates a reconstructor with the provided parameters.
//
// Parameters:
//   - params: Configuration parameters for the reconstruction process
//
// Returns:
//   - A new Reconstructor instance initialized with the provided parameters
func NewReconstructor(params *Params) *Reconstructor {
	return &Reconstructor{params: params}
}

// Metrics returns the metrics of the last Process call.
func (r *Reconstructor) Metrics() Metrics {
	return r.metrics
}

// Process replaces the contents of d with its reconstruction.
func (r *Reconstructor) Process(d *data.Data) error {
	if d == nil || d.Values() == nil {
		return fmt.Errorf("reconstruct: %w", data.ErrFreed)
	}
	if r.params.Threshold < 0 || math.IsNaN(r.params.Threshold) {
		return fmt.Errorf("reconstruct threshold %g: %w", r.params.Threshold, data.ErrInvalidArgument)
	}
	if r.params.ClipDelta < 0 || math.IsNaN(r.params.ClipDelta) {
		return fmt.Errorf("reconstruct clip delta %g: %w", r.params.ClipDelta, data.ErrInvalidArgument)
	}
	r.metrics = Metrics{}

	input, err := d.Clone()
	if err != nil {
		return err
	}
	if r.params.Anscombe {
		if err := input.Anscombe(r.params.CCD); err != nil {
			return fmt.Errorf("failed to stabilise variance: %w", err)
		}
	}

	// Step 1: decompose, clip and rebuild from the significant coefficients
	monitoring.Logf("Step 1: Decomposing %dx%d into %d scales...", d.Width(), d.Height(), r.params.Scales)
	pyr, err := r.newPyramid(input)
	if err != nil {
		return err
	}
	if err := pyr.Convolve(r.params.Mode, r.params.Mask); err != nil {
		return fmt.Errorf("failed to decompose: %w", err)
	}
	if r.metrics.Significant, err = r.clip(pyr); err != nil {
		return fmt.Errorf("failed to clip: %w", err)
	}
	if err := pyr.DeconvolveSignificant(wavelet.GainNone); err != nil {
		return fmt.Errorf("failed to reconstruct: %w", err)
	}
	c0, _ := pyr.Scale(0)
	estimate, err := c0.Clone()
	if err != nil {
		return err
	}

	// Step 2: feed back the significant part of the residual
	monitoring.Logf("Step 2: Refining estimate, %d significant coefficients...", r.metrics.Significant)
	if err := r.refine(pyr, input, estimate); err != nil {
		return err
	}

	// Step 3: write the estimate back
	monitoring.Logf("Step 3: Writing reconstruction after %d iterations...", r.metrics.Iterations)
	r.metrics.RMSE = calculateRMSE(input.Values(), estimate.Values())
	if d.Type().IsUint() {
		if err := estimate.Convert(d.Type()); err != nil {
			return err
		}
	}
	return d.CopyFrom(estimate)
}

func (r *Reconstructor) newPyramid(src *data.Data) (*wavelet.Pyramid, error) {
	opts := wavelet.DefaultOptions()
	if r.params.Workers > 0 {
		opts.Workers = r.params.Workers
	}
	if r.params.MaxClipIterations > 0 {
		opts.MaxClipIterations = r.params.MaxClipIterations
	}
	opts.ClipBackground = r.params.ClipBackground
	p, err := wavelet.New(src, r.params.Scales, opts)
	if err != nil {
		return nil, err
	}
	if r.params.Mode == wavelet.ConvPSF && r.params.PSF != nil {
		if err := p.SetPSF(r.params.PSF); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (r *Reconstructor) clip(p *wavelet.Pyramid) (int, error) {
	if len(r.params.Coefficients) > 0 {
		return p.KSigmaClipCustom(r.params.Coefficients, r.params.ClipDelta)
	}
	return p.KSigmaClip(r.params.Clip, r.params.ClipDelta)
}

// refine repeatedly decomposes input - estimate, keeps the coefficients that
// were significant in the original decomposition and adds them to estimate.
// It stops once the residual level settles to within the threshold.
func (r *Reconstructor) refine(orig *wavelet.Pyramid, input, estimate *data.Data) error {
	residual, err := input.Clone()
	if err != nil {
		return err
	}
	res, err := r.newPyramid(residual)
	if err != nil {
		return err
	}
	for i := 0; i < orig.Scales()-1; i++ {
		src, _ := orig.Significant(i)
		dst, _ := res.Significant(i)
		if err := dst.CopyFrom(src); err != nil {
			return err
		}
	}
	masked, err := data.NewLike(input, input.Type())
	if err != nil {
		return err
	}

	level := math.Inf(1)
	for iter := 0; iter < r.params.MaxIterations; iter++ {
		if err := residual.Subtract(input, estimate); err != nil {
			return err
		}
		if err := res.SetElements(residual); err != nil {
			return err
		}
		if err := res.Convolve(r.params.Mode, r.params.Mask); err != nil {
			return fmt.Errorf("failed to decompose residual: %w", err)
		}

		var norms float64
		for i := 0; i < res.Scales()-1; i++ {
			w, _ := res.Wavelet(i)
			sig, _ := res.Significant(i)
			if err := masked.SignificantCopy(w, sig); err != nil {
				return err
			}
			norms += masked.Norm()
		}
		next := norms / float64(res.Scales()-1)
		monitoring.Logf("Iteration %d: residual level %.6g", iter+1, next)
		if math.Abs(level-next) < r.params.Threshold {
			break
		}
		level = next
		r.metrics.Residual = next

		update, err := res.DeconvolveRange(0, res.Scales()-2, true)
		if err != nil {
			return err
		}
		if err := estimate.Add(estimate, update); err != nil {
			return err
		}
		if r.params.ClearNegative {
			estimate.ClearNegative()
		}
		r.metrics.Iterations++
	}
	return nil
}

// Reconstruct denoises d in place using the default parameters with the
// given mask, scale count and clip preset. threshold serves as both the clip
// delta and the residual threshold.
func Reconstruct(d *data.Data, mask wavelet.Mask, threshold float64, scales int, clip wavelet.ClipStrength) error {
	params := DefaultParams()
	params.Mask = mask
	params.Threshold = threshold
	params.ClipDelta = threshold
	params.Scales = scales
	params.Clip = clip
	return NewReconstructor(&params).Process(d)
}

// calculateRMSE computes the root mean square difference of two equally
// sized slices.
func calculateRMSE(original, reconstructed []float64) float64 {
	n := len(original)
	if n != len(reconstructed) || n == 0 {
		return 0
	}

	mse := 0.0
	for i := 0; i < n; i++ {
		diff := original[i] - reconstructed[i]
		mse += diff * diff
	}
	return math.Sqrt(mse / float64(n))
}
