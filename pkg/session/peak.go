package session

import (
	"fmt"
	"math"
	"strings"

	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/samjwillis97/GoModal/pkg/modal"
	"gonum.org/v1/gonum/stat"
)

// NoPeak is the selection when no peak is current.
const NoPeak = -1

// Param names one modal parameter column.
type Param int

const (
	Freq Param = iota
	Damping
	Magnitude
	Phase

	NumParams = 4
)

// Params lists the parameter columns in display order.
var Params = [NumParams]Param{Freq, Damping, Magnitude, Phase}

var paramNames = [NumParams]string{"freq", "damping", "magnitude", "phase"}

func (p Param) String() string {
	if p < 0 || int(p) >= NumParams {
		return fmt.Sprintf("param(%d)", int(p))
	}
	return paramNames[p]
}

// ParseParam maps a case-insensitive column name to its Param.
func ParseParam(name string) (Param, error) {
	for i, n := range paramNames {
		if strings.EqualFold(name, n) {
			return Param(i), nil
		}
	}
	return 0, failure.New(failure.UnknownKey, "session.ParseParam", "%q", name)
}

// validate checks v against the sub-critical parameter ranges.
func (p Param) validate(v float64) error {
	const op = "session.SetManual"
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return failure.New(failure.DomainReject, op, "%s %g is not finite", p, v)
	}
	switch p {
	case Freq:
		if v <= 0 {
			return failure.New(failure.DomainReject, op, "freq %g must be positive", v)
		}
	case Damping:
		if v <= 0 || v >= 1 {
			return failure.New(failure.DomainReject, op, "damping %g outside (0, 1)", v)
		}
	case Magnitude:
		if v < 0 {
			return failure.New(failure.DomainReject, op, "magnitude %g is negative", v)
		}
	case Phase:
		if v < -math.Pi || v > math.Pi {
			return failure.New(failure.DomainReject, op, "phase %g outside [-π, π]", v)
		}
	default:
		return failure.New(failure.UnknownKey, op, "%s", p)
	}
	return nil
}

// Origin records where a cell value came from.
type Origin int

const (
	Empty Origin = iota
	Auto
	Manual
)

func (o Origin) String() string {
	switch o {
	case Auto:
		return "auto"
	case Manual:
		return "manual"
	default:
		return "empty"
	}
}

// Cell is one parameter value of one channel.
type Cell struct {
	Value  float64
	Origin Origin
}

// ChannelFit is the per channel row of a peak.
type ChannelFit struct {
	// Index of the channel in the set
	Index int
	Cells [NumParams]Cell

	// Circle and PeakIndex of the last automatic fit, for overlays
	Circle    modal.Circle
	PeakIndex int
	// Err is the last automatic fit failure, nil on success
	Err error
}

// Peak is a frequency window with its per channel parameters and their
// channel averaged summary.
type Peak struct {
	ID     int
	Lo, Hi float64

	Channels []ChannelFit
	// Summary holds the mean of the non empty cells per parameter, NaN when
	// every cell is empty
	Summary [NumParams]float64
}

// Parameters returns the summary as modal parameters.
func (p *Peak) Parameters() modal.Parameters {
	return modal.Parameters{
		Freq:      p.Summary[Freq],
		Damping:   p.Summary[Damping],
		Magnitude: p.Summary[Magnitude],
		Phase:     p.Summary[Phase],
	}
}

// Complete reports whether every summary value is present.
func (p *Peak) Complete() bool {
	for _, v := range p.Summary {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Channel returns the row of channel index ch.
func (p *Peak) Channel(ch int) (*ChannelFit, bool) {
	for i := range p.Channels {
		if p.Channels[i].Index == ch {
			return &p.Channels[i], true
		}
	}
	return nil, false
}

func (p *Peak) clone() Peak {
	out := *p
	out.Channels = append([]ChannelFit(nil), p.Channels...)
	return out
}

func (p *Peak) summarise() {
	for _, param := range Params {
		vals := make([]float64, 0, len(p.Channels))
		for _, fit := range p.Channels {
			if c := fit.Cells[param]; c.Origin != Empty {
				vals = append(vals, c.Value)
			}
		}
		if len(vals) == 0 {
			p.Summary[param] = math.NaN()
			continue
		}
		p.Summary[param] = stat.Mean(vals, nil)
	}
}
