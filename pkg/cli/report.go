package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/samjwillis97/GoModal/pkg/config"
	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/samjwillis97/GoModal/pkg/session"
	"gopkg.in/yaml.v3"
)

// CellReport is one parameter value; a nil Value is an empty cell.
type CellReport struct {
	Value  *float64 `json:"value" yaml:"value"`
	Origin string   `json:"origin" yaml:"origin"`
}

// ChannelReport is the row of one channel of a peak.
type ChannelReport struct {
	Channel   int        `json:"channel" yaml:"channel"`
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Freq      CellReport `json:"freq" yaml:"freq"`
	Damping   CellReport `json:"damping" yaml:"damping"`
	Magnitude CellReport `json:"magnitude" yaml:"magnitude"`
	Phase     CellReport `json:"phase" yaml:"phase"`
	Error     string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// SummaryReport holds the channel averaged parameters of a peak.
type SummaryReport struct {
	Freq      *float64 `json:"freq" yaml:"freq"`
	Damping   *float64 `json:"damping" yaml:"damping"`
	Magnitude *float64 `json:"magnitude" yaml:"magnitude"`
	Phase     *float64 `json:"phase" yaml:"phase"`
}

// PeakReport is one picked peak.
type PeakReport struct {
	ID       int             `json:"id" yaml:"id"`
	Lo       float64         `json:"lo" yaml:"lo"`
	Hi       float64         `json:"hi" yaml:"hi"`
	Summary  SummaryReport   `json:"summary" yaml:"summary"`
	Channels []ChannelReport `json:"channels" yaml:"channels"`
}

// PoleReport is one pole of a global fit.
type PoleReport struct {
	Freq    float64 `json:"freq" yaml:"freq"`
	Damping float64 `json:"damping" yaml:"damping"`
}

// GlobalReport is the global fit of one channel.
type GlobalReport struct {
	Channel    int          `json:"channel" yaml:"channel"`
	Name       string       `json:"name,omitempty" yaml:"name,omitempty"`
	Iterations int          `json:"iterations" yaml:"iterations"`
	Residual   *float64     `json:"residual" yaml:"residual"`
	Converged  bool         `json:"converged" yaml:"converged"`
	Poles      []PoleReport `json:"poles" yaml:"poles"`
	Error      string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is the output of a modal analysis run.
type Report struct {
	Peaks  []PeakReport   `json:"peaks" yaml:"peaks"`
	Global []GlobalReport `json:"global,omitempty" yaml:"global,omitempty"`
}

// finite drops NaN and infinite values, which JSON cannot carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func cellReport(c session.Cell) CellReport {
	if c.Origin == session.Empty {
		return CellReport{Origin: c.Origin.String()}
	}
	return CellReport{Value: finite(c.Value), Origin: c.Origin.String()}
}

// NewReport converts peaks and global fits. name labels a channel index and
// may be nil.
func NewReport(peaks []session.Peak, global []session.GlobalFit, name func(int) string) Report {
	if name == nil {
		name = func(int) string { return "" }
	}
	report := Report{Peaks: make([]PeakReport, 0, len(peaks))}
	for _, p := range peaks {
		pr := PeakReport{
			ID: p.ID,
			Lo: p.Lo,
			Hi: p.Hi,
			Summary: SummaryReport{
				Freq:      finite(p.Summary[session.Freq]),
				Damping:   finite(p.Summary[session.Damping]),
				Magnitude: finite(p.Summary[session.Magnitude]),
				Phase:     finite(p.Summary[session.Phase]),
			},
		}
		for _, row := range p.Channels {
			cr := ChannelReport{
				Channel:   row.Index,
				Name:      name(row.Index),
				Freq:      cellReport(row.Cells[session.Freq]),
				Damping:   cellReport(row.Cells[session.Damping]),
				Magnitude: cellReport(row.Cells[session.Magnitude]),
				Phase:     cellReport(row.Cells[session.Phase]),
			}
			if row.Err != nil {
				cr.Error = row.Err.Error()
			}
			pr.Channels = append(pr.Channels, cr)
		}
		report.Peaks = append(report.Peaks, pr)
	}
	for _, g := range global {
		gr := GlobalReport{Channel: g.Channel, Name: name(g.Channel)}
		if g.Result != nil {
			gr.Iterations = g.Result.Iterations
			gr.Residual = finite(g.Result.Residual)
			gr.Converged = g.Result.Converged
			for _, pole := range g.Result.Poles() {
				gr.Poles = append(gr.Poles, PoleReport{Freq: pole.Freq, Damping: pole.Damping})
			}
		}
		if g.Err != nil {
			gr.Error = g.Err.Error()
		}
		report.Global = append(report.Global, gr)
	}
	return report
}

// WriteReport renders r as a table, JSON or YAML.
func WriteReport(w io.Writer, format string, r Report) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case config.FormatTable, "":
		return writeReportTable(w, r)
	}
	return failure.New(failure.UnknownKey, "cli.WriteReport", "output format %q", format)
}

func cellString(c CellReport) string {
	if c.Value == nil {
		return "-"
	}
	if c.Origin == session.Manual.String() {
		return fmt.Sprintf("%.6g*", *c.Value)
	}
	return fmt.Sprintf("%.6g", *c.Value)
}

func valueString(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.6g", *v)
}

func writeReportTable(w io.Writer, r Report) error {
	writer := newTabWriter(w)
	for _, p := range r.Peaks {
		fmt.Fprintf(writer, "Peak %d\t[%g, %g]\n", p.ID, p.Lo, p.Hi)
		fmt.Fprintf(writer, "Channel \tFreq \tDamping \tMagnitude \tPhase \t\n")
		for _, c := range p.Channels {
			label := fmt.Sprint(c.Channel)
			if c.Name != "" {
				label = c.Name
			}
			fmt.Fprintf(writer, "%s \t%s \t%s \t%s \t%s \t%s\n", label,
				cellString(c.Freq), cellString(c.Damping), cellString(c.Magnitude), cellString(c.Phase), c.Error)
		}
		fmt.Fprintf(writer, "Summary \t%s \t%s \t%s \t%s \t\n\n",
			valueString(p.Summary.Freq), valueString(p.Summary.Damping),
			valueString(p.Summary.Magnitude), valueString(p.Summary.Phase))
	}
	for _, g := range r.Global {
		label := fmt.Sprint(g.Channel)
		if g.Name != "" {
			label = g.Name
		}
		fmt.Fprintf(writer, "Global Fit\t%s\n", label)
		fmt.Fprintf(writer, "Iterations:\t%d\n", g.Iterations)
		fmt.Fprintf(writer, "Residual:\t%s\n", valueString(g.Residual))
		fmt.Fprintf(writer, "Converged:\t%t\n", g.Converged)
		if g.Error != "" {
			fmt.Fprintf(writer, "Error:\t%s\n", g.Error)
		}
		fmt.Fprintf(writer, "Pole \tFreq \tDamping\n")
		for i, pole := range g.Poles {
			fmt.Fprintf(writer, "%d \t%.6g \t%.6g\n", i, pole.Freq, pole.Damping)
		}
		fmt.Fprintln(writer)
	}
	return writer.Flush()
}
