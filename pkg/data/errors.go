package data

import "errors"

var (
	// ErrInvalidDimensions is returned when a context cannot be allocated with
	// the requested width, height or stride.
	ErrInvalidDimensions = errors.New("invalid dimensions")

	// ErrOutOfRange is returned for coordinates, offsets or indexes outside a plane.
	ErrOutOfRange = errors.New("out of range")

	// ErrDimensionMismatch is returned when two planes that must share a shape do not.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidArgument is returned for unsupported modes, presets or values.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrZeroVariance is returned when a plane has no variance to threshold against.
	ErrZeroVariance = errors.New("zero variance")

	// ErrKernelSupport is returned when a dilated kernel no longer fits the plane.
	ErrKernelSupport = errors.New("kernel support exceeds plane")

	// ErrInvalidRange is returned for an invalid scale range.
	ErrInvalidRange = errors.New("invalid scale range")

	// ErrFreed is returned when a released context is used.
	ErrFreed = errors.New("context released")
)

var statusCodes = []struct {
	err  error
	code int
}{
	{ErrInvalidDimensions, -1},
	{ErrOutOfRange, -2},
	{ErrDimensionMismatch, -3},
	{ErrInvalidArgument, -4},
	{ErrZeroVariance, -5},
	{ErrKernelSupport, -6},
	{ErrInvalidRange, -7},
	{ErrFreed, -8},
}

// Status converts an error into the integer status used at the external
// boundary: 0 for success, a negative code otherwise.
func Status(err error) int {
	return StatusCount(0, err)
}

// StatusCount folds a count and an error into a single integer, returning the
// count when err is nil and a negative code otherwise.
func StatusCount(n int, err error) int {
	if err == nil {
		return n
	}
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return sc.code
		}
	}
	return -1
}
