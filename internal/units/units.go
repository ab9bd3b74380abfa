// Package units provides shared constants and validation for spectral
// display units.
package units

// Unit constants for the x axis of a displayed spectrum.
const (
	Pixel      = "pixel"
	Wavelength = "wavelength"
)

// ValidUnits contains all valid unit values accepted by the API.
var ValidUnits = []string{Pixel, Wavelength}

// IsValid checks if the given unit is in the list of valid units.
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for
// error messages.
func GetValidUnitsString() string {
	return "pixel, wavelength"
}

// Wavelength scale constants for converting calibrated values for display.
// Calibration coefficients produce nanometres.
const (
	NM = "nm"
	A  = "angstrom"
	UM = "um"
)

// ConvertWavelength converts a wavelength from nanometres to the target
// scale. Unknown scales return the value unchanged.
func ConvertWavelength(nm float64, targetScale string) float64 {
	switch targetScale {
	case A:
		return nm * 10
	case UM:
		return nm / 1000
	default:
		return nm
	}
}
