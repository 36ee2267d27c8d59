// Package sonogram computes a short-time Fourier transform magnitude map.
package sonogram

import (
	"context"
	"math"
	"strings"

	"github.com/samjwillis97/GoModal/pkg/analysis"
	"github.com/samjwillis97/GoModal/pkg/failure"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// PlotType is a rendering hint carried with the result.
type PlotType string

const (
	Contour   PlotType = "contour"
	Colourmap PlotType = "colourmap"
	Surface   PlotType = "surface"
)

// ParsePlotType validates a plot type name.
func ParsePlotType(name string) (PlotType, error) {
	switch p := PlotType(strings.ToLower(strings.TrimSpace(name))); p {
	case Contour, Colourmap, Surface:
		return p, nil
	case "":
		return Colourmap, nil
	}
	return "", failure.New(failure.UnknownKey, "sonogram.ParsePlotType", "plot type %q", name)
}

// Options control the frame layout.
type Options struct {
	Width  int
	Hop    int
	Window string
	Plot   PlotType
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{Width: 256, Hop: 32, Window: "hann", Plot: Colourmap}
}

// Result holds the time-frequency grids. Row i of every grid is window i.
type Result struct {
	Freqs []float64
	Times []float64

	F [][]float64
	T [][]float64
	M [][]float64

	Width  int
	Hop    int
	Window string
	Plot   PlotType
}

// Compute runs the STFT of s sampled at fs.
//
// s is zero padded by Width/2 on each side and floor(len(s)/Hop) frames are
// taken every Hop samples. ctx is checked between frames; on cancellation
// the partial result is dropped.
func Compute(ctx context.Context, s []float64, fs float64, opts Options) (*Result, error) {
	const op = "sonogram.Compute"
	switch {
	case opts.Width < 2:
		return nil, failure.New(failure.InputShape, op, "window width %d < 2", opts.Width)
	case opts.Hop < 1:
		return nil, failure.New(failure.InputShape, op, "window hop %d < 1", opts.Hop)
	case opts.Hop > opts.Width:
		return nil, failure.New(failure.InputShape, op, "window hop %d > width %d", opts.Hop, opts.Width)
	case len(s) == 0:
		return nil, failure.New(failure.InputShape, op, "empty signal")
	case !(fs > 0) || math.IsInf(fs, 0):
		return nil, failure.New(failure.InputShape, op, "sample rate %v", fs)
	}
	shape, err := analysis.Window(opts.Window)
	if err != nil {
		return nil, err
	}
	plot, err := ParsePlotType(string(opts.Plot))
	if err != nil {
		return nil, err
	}

	w, h, l := opts.Width, opts.Hop, len(s)
	half := w / 2
	padded := make([]float64, l+2*half)
	copy(padded[half:], s)

	numWindows := l / h
	log.WithFields(log.Fields{
		"samples": l,
		"width":   w,
		"hop":     h,
		"windows": numWindows,
		"shape":   opts.Window,
	}).Debug("Computing sonogram")

	m := make([][]float64, numWindows)
	frame := make([]float64, w)
	for i := 0; i < numWindows; i++ {
		if err := ctx.Err(); err != nil {
			return nil, failure.Wrap(failure.Cancelled, op, err)
		}
		copy(frame, padded[i*h:i*h+w])
		m[i] = analysis.Spectrum(frame, shape)
	}

	freqs := analysis.RFFTFreq(w, 1/fs)
	times := make([]float64, numWindows)
	if numWindows > 1 {
		floats.Span(times, 0, float64(l)/fs)
	}

	f := make([][]float64, numWindows)
	t := make([][]float64, numWindows)
	for i := range m {
		f[i] = append([]float64(nil), freqs...)
		t[i] = make([]float64, len(freqs))
		for j := range t[i] {
			t[i][j] = times[i]
		}
	}

	return &Result{
		Freqs:  freqs,
		Times:  times,
		F:      f,
		T:      t,
		M:      m,
		Width:  w,
		Hop:    h,
		Window: opts.Window,
		Plot:   plot,
	}, nil
}

// Shape returns (rows, cols) of M.
func (r *Result) Shape() (int, int) {
	if len(r.M) == 0 {
		return 0, r.Width/2 + 1
	}
	return len(r.M), len(r.M[0])
}

// PeakBins returns the arg-max bin of every row.
func (r *Result) PeakBins() []int {
	bins := make([]int, len(r.M))
	for i, row := range r.M {
		bins[i], _ = analysis.ArgMax(row)
	}
	return bins
}
