package modal

// TEMAOptions tune ExtractTEMA.
type TEMAOptions struct {
	// MaxTan excludes a damping pair when either tangent exceeds it
	MaxTan float64
	// EdgeMargin is the minimum distance of the peak index from either end
	EdgeMargin int
}

// DefaultTEMAOptions returns MaxTan 1e6 and EdgeMargin 3.
func DefaultTEMAOptions() TEMAOptions {
	return TEMAOptions{MaxTan: 1e6, EdgeMargin: 3}
}

// RFPOptions tune FitRFP.
type RFPOptions struct {
	MaxIter int
	// Tol bounds the residual infinity norm relative to max|H|
	Tol float64

	// Optional starting coefficients, ascending powers of jω.
	// InitialQ alone solves the numerator linearly.
	InitialP []float64
	InitialQ []float64

	// Progress is called once per Levenberg-Marquardt iteration
	Progress func(iteration int, residual float64)
}

// DefaultRFPOptions returns MaxIter 200 and Tol 1e-8.
func DefaultRFPOptions() RFPOptions {
	return RFPOptions{MaxIter: 200, Tol: 1e-8}
}
