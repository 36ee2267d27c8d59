package modal

import (
	"math"

	"github.com/samjwillis97/GoModal/pkg/failure"
	"gonum.org/v1/gonum/mat"
)

// Circle is a circle in the complex plane.
type Circle struct {
	X0, Y0, R0 float64
	// Degenerate is set when the radius could not be formed; R0 is NaN
	Degenerate bool
}

// Centre returns the centre as a complex number.
func (c Circle) Centre() complex128 {
	return complex(c.X0, c.Y0)
}

// FitCircle finds the algebraic least-squares circle through the points of d.
//
// The normal equations of x² + y² + ax + by - c = 0 are solved directly:
//
//	[ Σx²  Σxy  -Σx ] [a]   [ -(Σx³ + Σxy²) ]
//	[ Σxy  Σy²  -Σy ] [b] = [ -(Σy³ + Σx²y) ]
//	[ -Σx  -Σy   L  ] [c]   [   Σx² + Σy²   ]
//
// giving x0 = -a/2, y0 = -b/2, R0 = √(c + x0² + y0²). The points are centred on
// their mean and scaled to unit spread first so FRFs of any magnitude stay well
// conditioned.
func FitCircle(d []complex128) (Circle, error) {
	const op = "modal.FitCircle"
	if len(d) < 3 {
		return Circle{}, failure.New(failure.InputShape, op, "%d points, need 3", len(d))
	}

	var mx, my float64
	for _, z := range d {
		if math.IsNaN(real(z)) || math.IsInf(real(z), 0) || math.IsNaN(imag(z)) || math.IsInf(imag(z), 0) {
			return Circle{}, failure.New(failure.InputShape, op, "point is not finite")
		}
		mx += real(z)
		my += imag(z)
	}
	n := float64(len(d))
	mx, my = mx/n, my/n

	scale := 0.0
	for _, z := range d {
		scale = math.Max(scale, math.Hypot(real(z)-mx, imag(z)-my))
	}
	if scale == 0 {
		return Circle{}, failure.New(failure.Numerical, op, "coincident points")
	}

	var sx, sy, sxx, syy, sxy, sxxx, syyy, sxyy, sxxy float64
	for _, z := range d {
		x := (real(z) - mx) / scale
		y := (imag(z) - my) / scale
		sx += x
		sy += y
		sxx += x * x
		syy += y * y
		sxy += x * y
		sxxx += x * x * x
		syyy += y * y * y
		sxyy += x * y * y
		sxxy += x * x * y
	}

	a := mat.NewDense(3, 3, []float64{
		sxx, sxy, -sx,
		sxy, syy, -sy,
		-sx, -sy, n,
	})
	b := mat.NewVecDense(3, []float64{
		-(sxxx + sxyy),
		-(syyy + sxxy),
		sxx + syy,
	})
	var abc mat.VecDense
	if err := abc.SolveVec(a, b); err != nil {
		return Circle{}, failure.Wrap(failure.Numerical, op, err)
	}

	u0 := -abc.AtVec(0) / 2
	v0 := -abc.AtVec(1) / 2
	circle := Circle{X0: mx + scale*u0, Y0: my + scale*v0}
	radicand := abc.AtVec(2) + u0*u0 + v0*v0
	if !(radicand >= 0) || math.IsInf(radicand, 0) {
		circle.R0 = math.NaN()
		circle.Degenerate = true
		return circle, failure.New(failure.Numerical, op, "radicand %g", radicand)
	}
	circle.R0 = scale * math.Sqrt(radicand)
	return circle, nil
}
