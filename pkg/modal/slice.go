package modal

import (
	"math"
	"math/cmplx"

	"github.com/samjwillis97/GoModal/pkg/failure"
)

// MinSliceLen is the shortest signal slice accepted by the kernels.
const MinSliceLen = 4

// ValidateSlice checks that w is finite and strictly increasing, that h is
// finite and that both have the same length of at least minLen.
func ValidateSlice(op string, w []float64, h []complex128, minLen int) error {
	if len(w) != len(h) {
		return failure.New(failure.InputShape, op, "len(w)=%d len(H)=%d", len(w), len(h))
	}
	if len(w) < minLen {
		return failure.New(failure.InputShape, op, "%d samples, need %d", len(w), minLen)
	}
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return failure.New(failure.InputShape, op, "w[%d] is not finite", i)
		}
		if i > 0 && v <= w[i-1] {
			return failure.New(failure.InputShape, op, "w not strictly increasing at %d", i)
		}
	}
	for i, z := range h {
		if cmplx.IsNaN(z) || cmplx.IsInf(z) {
			return failure.New(failure.InputShape, op, "H[%d] is not finite", i)
		}
	}
	return nil
}

// Bracket returns the samples with lo <= w <= hi. The slices share storage
// with the inputs.
func Bracket(w []float64, h []complex128, lo, hi float64) ([]float64, []complex128) {
	start, end := -1, -1
	for i, v := range w {
		if v < lo || v > hi {
			continue
		}
		if start < 0 {
			start = i
		}
		end = i + 1
	}
	if start < 0 || end > len(h) {
		return nil, nil
	}
	return w[start:end], h[start:end]
}
