package modal

import (
	"math"
	"math/cmplx"

	"github.com/samjwillis97/GoModal/pkg/failure"
	log "github.com/sirupsen/logrus"
)

// Parameters are the modal parameters of one resonance.
type Parameters struct {
	// Freq is the resonant frequency in the units of w
	Freq float64
	// Damping is the damping ratio ζ, half the loss factor
	Damping float64
	// Magnitude and Phase of the modal constant, Phase in [-π, π]
	Magnitude float64
	Phase     float64
}

// TEMAResult holds the extracted parameters and the intermediate values.
type TEMAResult struct {
	Parameters

	PeakIndex        int
	PhaseAtResonance float64
	// LossFactors holds the estimate of each accepted damping pair, in
	// pair order (±1, ±2, ±3); NaN marks an excluded pair
	LossFactors []float64
}

// ExtractTEMA derives the modal parameters of the peak bracketed by (w, d)
// from its fitted circle.
//
// The resonance is the inflection of the phase θ as a function of ω², found
// from a cubic Newton divided-difference interpolation through the samples at
// i-2, i-1, i+1 and i+2 around the magnitude peak i. The phase at resonance is
// read from the same cubic. Each symmetric pair (i-k, i+k), k = 1..3, gives a
// loss factor
//
//	η_k = (ω_a² - ω_b²) / (ω_r² (tan(θ_r - θ_a) + tan(θ_b - θ_r)))
//
// and ζ = mean(η_k)/2. The modal constant is |A| = 2 R0 ω_r² η with phase
// atan2(x0, -y0), the direction of the circle centre advanced by 90°.
func ExtractTEMA(w []float64, d []complex128, c Circle, opts TEMAOptions) (*TEMAResult, error) {
	const op = "modal.ExtractTEMA"
	if err := ValidateSlice(op, w, d, 7); err != nil {
		return nil, err
	}
	if c.Degenerate || math.IsNaN(c.R0) {
		return nil, failure.New(failure.Numerical, op, "degenerate circle")
	}
	margin := opts.EdgeMargin
	if margin < 2 {
		margin = 2
	}
	maxTan := opts.MaxTan
	if !(maxTan > 0) {
		maxTan = DefaultTEMAOptions().MaxTan
	}

	i := 0
	for k, z := range d {
		if cmplx.Abs(z) > cmplx.Abs(d[i]) {
			i = k
		}
	}
	if i < margin || i > len(d)-1-margin {
		return nil, failure.New(failure.DomainReject, op, "peak at index %d of %d within edge margin %d", i, len(d), margin)
	}

	theta := unwrap(d)
	x := func(k int) float64 { return w[k] * w[k] }

	idx := [4]int{i - 2, i - 1, i + 1, i + 2}
	var x4, t4 [4]float64
	for k, j := range idx {
		x4[k] = x(j)
		t4[k] = theta[j]
	}
	d01 := (t4[0] - t4[1]) / (x4[0] - x4[1])
	d12 := (t4[1] - t4[2]) / (x4[1] - x4[2])
	d23 := (t4[2] - t4[3]) / (x4[2] - x4[3])
	d012 := (d01 - d12) / (x4[0] - x4[2])
	d123 := (d12 - d23) / (x4[1] - x4[3])
	d0123 := (d012 - d123) / (x4[0] - x4[3])

	wr2 := (x4[0] + x4[1] + x4[2] - d012/d0123) / 3
	if math.IsNaN(wr2) || math.IsInf(wr2, 0) {
		return nil, failure.New(failure.Numerical, op, "resonance is not finite")
	}
	if wr2 <= 0 {
		return nil, failure.New(failure.Numerical, op, "non-positive ω_r² %g", wr2)
	}
	e0, e1, e2 := wr2-x4[0], wr2-x4[1], wr2-x4[2]
	thetaR := t4[0] + e0*d01 + e0*e1*d012 + e0*e1*e2*d0123

	losses := make([]float64, 3)
	var sum float64
	var accepted int
	for k := 1; k <= 3; k++ {
		losses[k-1] = math.NaN()
		a, b := i-k, i+k
		if a < 0 || b >= len(d) {
			continue
		}
		ta := math.Tan(thetaR - theta[a])
		tb := math.Tan(theta[b] - thetaR)
		if math.Abs(ta) > maxTan || math.Abs(tb) > maxTan || ta+tb == 0 {
			log.Debugf("Excluding damping pair %d: tan %g, %g", k, ta, tb)
			continue
		}
		eta := (x(a) - x(b)) / (wr2 * (ta + tb))
		if math.IsNaN(eta) || math.IsInf(eta, 0) {
			continue
		}
		losses[k-1] = eta
		sum += eta
		accepted++
	}
	if accepted == 0 {
		return nil, failure.New(failure.Numerical, op, "phase singular, every damping pair excluded")
	}
	eta := sum / float64(accepted)
	zeta := eta / 2
	if !(zeta > 0 && zeta < 1) {
		return nil, failure.New(failure.Numerical, op, "damping ratio %g outside (0, 1)", zeta)
	}

	return &TEMAResult{
		Parameters: Parameters{
			Freq:      math.Sqrt(wr2),
			Damping:   zeta,
			Magnitude: 2 * c.R0 * wr2 * eta,
			Phase:     math.Atan2(c.X0, -c.Y0),
		},
		PeakIndex:        i,
		PhaseAtResonance: thetaR,
		LossFactors:      losses,
	}, nil
}

// unwrap returns the phase of d with jumps larger than π removed.
func unwrap(d []complex128) []float64 {
	out := make([]float64, len(d))
	for k, z := range d {
		p := cmplx.Phase(z)
		if k > 0 {
			delta := p - out[k-1]
			delta -= 2 * math.Pi * math.Round(delta/(2*math.Pi))
			p = out[k-1] + delta
		}
		out[k] = p
	}
	return out
}
