package spectro

import "errors"

// Validation errors surfaced synchronously to callers. Engine state is never
// partially mutated when one of these is returned, so dialogs can retry with
// corrected input.
var (
	// ErrSpectrumSizeMismatch reports a background or data array whose
	// length does not match the trace it targets.
	ErrSpectrumSizeMismatch = errors.New("incompatible spectrum size")

	// ErrBadCoefficients reports a calibration tuple of the wrong arity;
	// the model always carries exactly four polynomial coefficients.
	ErrBadCoefficients = errors.New("calibration requires exactly 4 coefficients")

	// ErrTooFewPoints reports a fit attempted with fewer than two control
	// points.
	ErrTooFewPoints = errors.New("calibration fit requires at least 2 control points")

	// ErrDegenerateFit reports duplicate pixel positions among the control
	// points; the regression matrix is singular in that case.
	ErrDegenerateFit = errors.New("degenerate calibration points: duplicate pixel positions")

	// ErrNoData reports an operation that needs samples on a trace that
	// has none loaded yet.
	ErrNoData = errors.New("trace has no data")
)
