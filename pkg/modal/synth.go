package modal

import (
	"math/cmplx"
)

// Mode describes one synthetic mode with hysteretic damping.
type Mode struct {
	Freq      float64
	Damping   float64
	Magnitude float64
	Phase     float64
}

// Receptance evaluates A e^{iφ} / (ω_r² - ω² + 2jζω_r²) at w.
func (m Mode) Receptance(w float64) complex128 {
	wr2 := m.Freq * m.Freq
	return complex(m.Magnitude, 0) * cmplx.Exp(complex(0, m.Phase)) /
		complex(wr2-w*w, 2*m.Damping*wr2)
}

// Superpose sums the receptance of every mode on the grid w.
func Superpose(modes []Mode, w []float64) []complex128 {
	h := make([]complex128, len(w))
	for i, x := range w {
		for _, m := range modes {
			h[i] += m.Receptance(x)
		}
	}
	return h
}
