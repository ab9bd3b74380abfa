package spectro

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FitCalibration least-squares fits a pixel-to-wavelength polynomial through
// the given control points and returns coefficients in the (a0,a1,a2,a3)
// basis.
//
// The fitted degree is graduated by point count: 2 points fit a line, 3 a
// quadratic, 4 or more the full cubic. Forcing a cubic through fewer
// constraints is numerically unstable, so unused high-order coefficients are
// exactly zero instead. The function is pure; on any error no state changes
// anywhere.
func FitCalibration(pixels, wavelengths []float64) ([4]float64, error) {
	var coeffs [4]float64

	if len(pixels) != len(wavelengths) {
		return coeffs, fmt.Errorf("control point arrays differ in length: %d pixels vs %d wavelengths",
			len(pixels), len(wavelengths))
	}
	if len(pixels) < 2 {
		return coeffs, ErrTooFewPoints
	}
	for i := 0; i < len(pixels); i++ {
		for j := i + 1; j < len(pixels); j++ {
			if pixels[i] == pixels[j] {
				return coeffs, fmt.Errorf("%w: pixel %g appears twice", ErrDegenerateFit, pixels[i])
			}
		}
	}

	degree := len(pixels) - 1
	if degree > 3 {
		degree = 3
	}

	// Vandermonde design matrix, solved by QR factorisation.
	n := len(pixels)
	a := mat.NewDense(n, degree+1, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		pow := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, pow)
			pow *= pixels[i]
		}
		b.SetVec(i, wavelengths[i])
	}

	var qr mat.QR
	qr.Factorize(a)
	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, b); err != nil {
		return coeffs, fmt.Errorf("%w: %v", ErrDegenerateFit, err)
	}

	for j := 0; j <= degree; j++ {
		coeffs[j] = sol.AtVec(j)
	}
	return coeffs, nil
}
