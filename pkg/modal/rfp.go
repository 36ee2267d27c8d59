package modal

import (
	"context"
	"math"
	"math/cmplx"
	"sort"

	"github.com/samjwillis97/GoModal/pkg/failure"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

const (
	lambdaStart = 1e-3
	lambdaMin   = 1e-12
	lambdaMax   = 1e16

	// singular values below svdRcond times the largest are dropped
	svdRcond = 1e-12
)

// RFPResult is a rational fraction polynomial fit H(ω) ≈ P(jω)/Q(jω).
type RFPResult struct {
	// Coefficients in ascending powers of jω, Q is monic
	P []float64
	Q []float64

	// Covariance of (P, Q[:n]) in that order
	Covariance *mat.Dense

	Iterations int
	// Residual is ‖H - P/Q‖∞ / max|H|
	Residual       float64
	Converged      bool
	IllConditioned bool
}

// Eval returns P(jω)/Q(jω) for each ω in w.
func (r *RFPResult) Eval(w []float64) []complex128 {
	out := make([]complex128, len(w))
	for i, x := range w {
		s := complex(0, x)
		out[i] = Horner(r.P, s) / Horner(r.Q, s)
	}
	return out
}

// StdErr returns the square root of the covariance diagonal.
func (r *RFPResult) StdErr() []float64 {
	if r.Covariance == nil {
		return nil
	}
	n, _ := r.Covariance.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sqrt(math.Abs(r.Covariance.At(i, i)))
	}
	return out
}

// Pole is an underdamped root pair of Q.
type Pole struct {
	Freq    float64
	Damping float64
}

// Poles returns the roots of Q with positive imaginary part as natural
// frequency and viscous damping ratio, sorted by frequency.
func (r *RFPResult) Poles() []Pole {
	n := len(r.Q) - 1
	if n < 1 {
		return nil
	}
	companion := mat.NewDense(n, n, nil)
	for k := 0; k < n; k++ {
		companion.Set(0, k, -r.Q[n-1-k]/r.Q[n])
		if k > 0 {
			companion.Set(k, k-1, 1)
		}
	}
	var eig mat.Eigen
	if ok := eig.Factorize(companion, mat.EigenNone); !ok {
		return nil
	}
	var poles []Pole
	for _, root := range eig.Values(nil) {
		if imag(root) <= 0 {
			continue
		}
		wn := cmplx.Abs(root)
		poles = append(poles, Pole{Freq: wn, Damping: -real(root) / wn})
	}
	sort.Slice(poles, func(i, j int) bool { return poles[i].Freq < poles[j].Freq })
	return poles
}

// rfpProblem holds the normalised data: s = jω/ws, H/hs.
type rfpProblem struct {
	m, n int
	s    []complex128
	h    []complex128
}

func (p *rfpProblem) numParams() int { return p.m + 1 + p.n }

func (p *rfpProblem) split(theta []float64) (num, den []float64) {
	num = theta[:p.m+1]
	den = make([]float64, p.n+1)
	copy(den, theta[p.m+1:])
	den[p.n] = 1
	return num, den
}

// residuals returns r = [Re, Im](H - P/Q) interleaved per sample and its Jacobian.
func (p *rfpProblem) residuals(theta []float64) (*mat.VecDense, *mat.Dense) {
	num, den := p.split(theta)
	rows, cols := 2*len(p.s), p.numParams()
	r := mat.NewVecDense(rows, nil)
	jac := mat.NewDense(rows, cols, nil)
	for i, s := range p.s {
		pv := Horner(num, s)
		qv := Horner(den, s)
		e := p.h[i] - pv/qv
		r.SetVec(2*i, real(e))
		r.SetVec(2*i+1, imag(e))

		sk := complex(1, 0)
		for k := 0; k <= p.m; k++ {
			g := -sk / qv
			jac.Set(2*i, k, real(g))
			jac.Set(2*i+1, k, imag(g))
			sk *= s
		}
		sk = complex(1, 0)
		q2 := qv * qv
		for k := 0; k < p.n; k++ {
			g := pv * sk / q2
			jac.Set(2*i, p.m+1+k, real(g))
			jac.Set(2*i+1, p.m+1+k, imag(g))
			sk *= s
		}
	}
	return r, jac
}

// levy solves the linearised problem H Q - P = 0 in the least-squares sense.
func (p *rfpProblem) levy() ([]float64, bool, error) {
	rows, cols := 2*len(p.s), p.numParams()
	a := mat.NewDense(rows, cols, nil)
	b := mat.NewVecDense(rows, nil)
	for i, s := range p.s {
		h := p.h[i]
		sk := complex(1, 0)
		for k := 0; k <= p.n; k++ {
			if k <= p.m {
				a.Set(2*i, k, -real(sk))
				a.Set(2*i+1, k, -imag(sk))
			}
			hs := h * sk
			if k < p.n {
				a.Set(2*i, p.m+1+k, real(hs))
				a.Set(2*i+1, p.m+1+k, imag(hs))
			} else {
				b.SetVec(2*i, -real(hs))
				b.SetVec(2*i+1, -imag(hs))
			}
			sk *= s
		}
	}
	return solveLS(a, b)
}

// numerator solves P for a fixed monic Q.
func (p *rfpProblem) numerator(den []float64) ([]float64, bool, error) {
	rows := 2 * len(p.s)
	a := mat.NewDense(rows, p.m+1, nil)
	b := mat.NewVecDense(rows, nil)
	for i, s := range p.s {
		t := p.h[i] * Horner(den, s)
		b.SetVec(2*i, real(t))
		b.SetVec(2*i+1, imag(t))
		sk := complex(1, 0)
		for k := 0; k <= p.m; k++ {
			a.Set(2*i, k, real(sk))
			a.Set(2*i+1, k, imag(sk))
			sk *= s
		}
	}
	return solveLS(a, b)
}

// solveLS solves a x = b in the least-squares sense. A near singular a,
// as over ordered fits give, is solved again by truncated SVD for the minimum
// norm solution and reported with ill set.
func solveLS(a *mat.Dense, b *mat.VecDense) (x []float64, ill bool, err error) {
	var v mat.VecDense
	err = v.SolveVec(a, b)
	if err == nil {
		return v.RawVector().Data, false, nil
	}
	if _, ok := err.(mat.Condition); !ok {
		return nil, false, err
	}
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, true, err
	}
	rank := svd.Rank(svdRcond)
	if rank == 0 {
		return nil, true, err
	}
	var dst mat.VecDense
	svd.SolveVecTo(&dst, b, rank)
	return dst.RawVector().Data, true, nil
}

// FitRFP fits H on w with a numerator of order m and a denominator of order n.
//
// The start point is taken from opts (see RFPOptions) or from the Levy
// linearisation. ctx is checked between iterations. When the iteration cap is
// reached, or no step reduces the residual, a Convergence failure is returned
// together with the best coefficients found.
func FitRFP(ctx context.Context, w []float64, h []complex128, m, n int, opts RFPOptions) (*RFPResult, error) {
	const op = "modal.FitRFP"
	if m < 0 || n < 1 || m > n {
		return nil, failure.New(failure.InputShape, op, "degenerate order m=%d n=%d", m, n)
	}
	if err := ValidateSlice(op, w, h, m+n+2); err != nil {
		return nil, err
	}
	if opts.MaxIter < 1 {
		opts.MaxIter = DefaultRFPOptions().MaxIter
	}
	if !(opts.Tol > 0) {
		opts.Tol = DefaultRFPOptions().Tol
	}

	ws := math.Max(math.Abs(w[0]), math.Abs(w[len(w)-1]))
	hs := 0.0
	for _, z := range h {
		hs = math.Max(hs, cmplx.Abs(z))
	}
	if ws == 0 || hs == 0 {
		return nil, failure.New(failure.InputShape, op, "zero frequency span or response")
	}
	prob := &rfpProblem{m: m, n: n, s: make([]complex128, len(w)), h: make([]complex128, len(h))}
	for i := range w {
		prob.s[i] = complex(0, w[i]/ws)
		prob.h[i] = h[i] / complex(hs, 0)
	}

	theta, ill, err := startPoint(prob, opts, ws, hs)
	if err != nil {
		return nil, failure.Wrap(failure.Numerical, op, err)
	}

	res := &RFPResult{IllConditioned: ill}
	lambda := lambdaStart
	r, jac := prob.residuals(theta)
	cost := mat.Dot(r, r)
	var fitErr error
	for {
		if err := ctx.Err(); err != nil {
			return nil, failure.Wrap(failure.Cancelled, op, err)
		}
		res.Residual = infNorm(r)
		if opts.Progress != nil {
			opts.Progress(res.Iterations, res.Residual)
		}
		if math.IsNaN(res.Residual) {
			return nil, failure.New(failure.Numerical, op, "residual is not finite")
		}
		if res.Residual <= opts.Tol {
			res.Converged = true
			break
		}
		if res.Iterations >= opts.MaxIter {
			fitErr = failure.New(failure.Convergence, op, "no convergence after %d iterations, residual %g", res.Iterations, res.Residual)
			break
		}

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var grad mat.VecDense
		grad.MulVec(jac.T(), r)
		grad.ScaleVec(-1, &grad)

		accepted := false
		for lambda <= lambdaMax {
			a := mat.DenseCopyOf(&jtj)
			for k := 0; k < prob.numParams(); k++ {
				a.Set(k, k, jtj.At(k, k)*(1+lambda)+lambda*1e-12)
			}
			var step mat.VecDense
			if err := step.SolveVec(a, &grad); err != nil {
				if _, ok := err.(mat.Condition); !ok {
					lambda *= 10
					continue
				}
				res.IllConditioned = true
			}
			trial := make([]float64, len(theta))
			for k := range theta {
				trial[k] = theta[k] + step.AtVec(k)
			}
			tr, tj := prob.residuals(trial)
			if c := mat.Dot(tr, tr); c < cost {
				theta, r, jac, cost = trial, tr, tj, c
				lambda = math.Max(lambda/10, lambdaMin)
				accepted = true
				break
			}
			lambda *= 10
		}
		if !accepted {
			fitErr = failure.New(failure.Convergence, op, "stalled after %d iterations, residual %g", res.Iterations, res.Residual)
			break
		}
		res.Iterations++
	}

	res.P, res.Q = denormalise(prob, theta, ws, hs)
	res.Covariance = covariance(prob, jac, cost, ws, hs)
	if res.IllConditioned {
		log.WithField("residual", res.Residual).Warn("RFP normal equations are ill-conditioned")
	}
	log.WithFields(log.Fields{
		"m":          m,
		"n":          n,
		"iterations": res.Iterations,
		"residual":   res.Residual,
	}).Debug("RFP fit finished")
	return res, fitErr
}

func startPoint(prob *rfpProblem, opts RFPOptions, ws, hs float64) ([]float64, bool, error) {
	m, n := prob.m, prob.n
	if len(opts.InitialQ) != n+1 || opts.InitialQ[n] == 0 {
		return prob.levy()
	}
	lead := opts.InitialQ[n] * math.Pow(ws, float64(n))
	den := make([]float64, n+1)
	for k, q := range opts.InitialQ {
		den[k] = q * math.Pow(ws, float64(k)) / lead
	}
	var num []float64
	if len(opts.InitialP) == m+1 {
		num = make([]float64, m+1)
		for k, p := range opts.InitialP {
			num[k] = p * math.Pow(ws, float64(k)) / (hs * lead)
		}
	} else {
		var (
			ill bool
			err error
		)
		if num, ill, err = prob.numerator(den); err != nil {
			return nil, ill, err
		}
		return append(num, den[:n]...), ill, nil
	}
	return append(num, den[:n]...), false, nil
}

// denormalise maps the coefficients back to jω and H units with Q monic.
func denormalise(prob *rfpProblem, theta []float64, ws, hs float64) (p, q []float64) {
	num, den := prob.split(theta)
	p = make([]float64, len(num))
	q = make([]float64, len(den))
	for k := range num {
		p[k] = num[k] * hs * math.Pow(ws, float64(prob.n-k))
	}
	for k := range den {
		q[k] = den[k] * math.Pow(ws, float64(prob.n-k))
	}
	return p, q
}

func covariance(prob *rfpProblem, jac *mat.Dense, cost, ws, hs float64) *mat.Dense {
	rows, cols := jac.Dims()
	if rows <= cols {
		return nil
	}
	var jtj, inv mat.Dense
	jtj.Mul(jac.T(), jac)
	if err := inv.Inverse(&jtj); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil
		}
	}
	inv.Scale(cost/float64(rows-cols), &inv)

	scale := make([]float64, cols)
	for k := 0; k <= prob.m; k++ {
		scale[k] = hs * math.Pow(ws, float64(prob.n-k))
	}
	for k := 0; k < prob.n; k++ {
		scale[prob.m+1+k] = math.Pow(ws, float64(prob.n-k))
	}
	out := mat.NewDense(cols, cols, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return v * scale[i] * scale[j]
	}, &inv)
	return out
}

func infNorm(v *mat.VecDense) float64 {
	max := 0.0
	for i := 0; i < v.Len(); i++ {
		a := math.Abs(v.AtVec(i))
		if math.IsNaN(a) {
			return math.NaN()
		}
		max = math.Max(max, a)
	}
	return max
}
