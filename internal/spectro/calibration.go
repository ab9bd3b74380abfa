package spectro

import "github.com/banshee-data/spectrum.report/internal/units"

// UnitMode selects whether a trace displays raw pixel indices or calibrated
// wavelengths on its x axis.
type UnitMode int

const (
	// UnitPixel displays raw x values (sensor pixel indices).
	UnitPixel UnitMode = iota
	// UnitWavelength displays x values mapped through the calibration
	// polynomial.
	UnitWavelength
)

func (m UnitMode) String() string {
	switch m {
	case UnitPixel:
		return units.Pixel
	case UnitWavelength:
		return units.Wavelength
	default:
		return "unknown"
	}
}

// CalibrationModel maps sensor pixel index to wavelength through
// y = a0 + a1*x + a2*x^2 + a3*x^3. The zero-fit default is the identity
// mapping (0,1,0,0). One model exists per trace and lives as long as the
// trace does.
type CalibrationModel struct {
	coeffs [4]float64
	mode   UnitMode
}

// NewCalibrationModel returns an identity-mapped model in pixel mode.
func NewCalibrationModel() *CalibrationModel {
	return &CalibrationModel{coeffs: [4]float64{0, 1, 0, 0}}
}

// Apply evaluates the polynomial at x. Horner form in float64: stable across
// the full sensor pixel range against wavelength-scale coefficients.
func (m *CalibrationModel) Apply(x float64) float64 {
	c := &m.coeffs
	return c[0] + x*(c[1]+x*(c[2]+x*c[3]))
}

// ApplySlice evaluates the polynomial over xs into a new slice.
func (m *CalibrationModel) ApplySlice(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = m.Apply(x)
	}
	return out
}

// Coefficients returns the current (a0,a1,a2,a3) tuple, suitable for
// round-tripping into a calibration dialog.
func (m *CalibrationModel) Coefficients() [4]float64 { return m.coeffs }

// SetFittingParams replaces the coefficients directly.
func (m *CalibrationModel) SetFittingParams(a0, a1, a2, a3 float64) {
	m.coeffs = [4]float64{a0, a1, a2, a3}
}

// SetCoefficients replaces the coefficients from a slice, rejecting any
// arity other than four.
func (m *CalibrationModel) SetCoefficients(c []float64) error {
	if len(c) != 4 {
		return ErrBadCoefficients
	}
	copy(m.coeffs[:], c)
	return nil
}

// UnitMode returns the active display mode.
func (m *CalibrationModel) UnitMode() UnitMode { return m.mode }

// SetUnitMode switches display mode, reporting whether anything changed.
// A true return means displayed x values change definition and the owning
// trace must recompute its axis bounds.
func (m *CalibrationModel) SetUnitMode(mode UnitMode) (changed bool) {
	if mode == m.mode {
		return false
	}
	m.mode = mode
	return true
}

// IsIdentity reports whether the model still carries the default mapping.
func (m *CalibrationModel) IsIdentity() bool {
	return m.coeffs == [4]float64{0, 1, 0, 0}
}
