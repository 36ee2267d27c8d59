package modal

// Horner evaluates the polynomial with ascending coefficients c at s.
func Horner(c []float64, s complex128) complex128 {
	var v complex128
	for k := len(c) - 1; k >= 0; k-- {
		v = v*s + complex(c[k], 0)
	}
	return v
}

// PolyMul multiplies two ascending coefficient polynomials.
func PolyMul(a, b []float64) []float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// ModalDenominator returns Π (s² + 2ζ_k ω_k s + ω_k²) for the given modes,
// the viscous equivalent characteristic polynomial.
func ModalDenominator(params []Parameters) []float64 {
	q := []float64{1}
	for _, p := range params {
		q = PolyMul(q, []float64{p.Freq * p.Freq, 2 * p.Damping * p.Freq, 1})
	}
	return q
}
