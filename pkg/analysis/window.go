package analysis

import (
	"sort"
	"strings"

	"github.com/samjwillis97/GoModal/pkg/failure"
	"gonum.org/v1/gonum/dsp/window"
)

// Shape applies a window in place and returns the same slice.
type Shape func(seq []float64) []float64

var shapes = map[string]Shape{
	"hann":            window.Hann,
	"hamming":         window.Hamming,
	"rectangular":     window.Rectangular,
	"blackman":        window.Blackman,
	"blackman-harris": window.BlackmanHarris,
	"flat-top":        window.FlatTop,
	"nuttall":         window.Nuttall,
}

// Window looks up a window shape by name, case-insensitive.
func Window(name string) (Shape, error) {
	s, ok := shapes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, failure.New(failure.UnknownKey, "analysis.Window", "window %q", name)
	}
	return s, nil
}

// WindowNames lists the registered shapes.
func WindowNames() []string {
	names := make([]string, 0, len(shapes))
	for name := range shapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
