package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/samjwillis97/GoModal/pkg/analysis"
)

// ChannelInfo heads the trend and spectrum displays.
type ChannelInfo struct {
	Path       string
	SampleRate float64
	Samples    int
	Segments   int
}

func (c ChannelInfo) write(w io.Writer) {
	fmt.Fprintf(w, "TDMS Path:\t%s\n", c.Path)
	if c.SampleRate > 0 {
		fmt.Fprintf(w, "Sample Rate:\t%g Hz\n", c.SampleRate)
	}
	fmt.Fprintf(w, "Length:\t%d Samples\n", c.Samples)
	fmt.Fprintf(w, "Total Segments:\t%d\n", c.Segments)
}

// DisplayTrends writes the RMS, peak to peak and crest factor of each block.
func DisplayTrends(w io.Writer, info ChannelInfo, trends []analysis.Trend) error {
	writer := newTabWriter(w)
	info.write(writer)
	fmt.Fprintf(writer, "\nBlock \tSamples \tMean \tRMS \tP-P \tCF\n")
	for _, t := range trends {
		fmt.Fprintf(writer, "%d \t%d \t%.4f \t%.4f \t%.4f \t%.4f\n",
			t.Block, t.Samples, t.Mean, t.RMS, t.PeakToPeak, t.CrestFactor)
	}
	return writer.Flush()
}

// SpectrumPeak is one local maximum of a magnitude spectrum.
type SpectrumPeak struct {
	Bin       int
	Freq      float64
	Magnitude float64
}

// SpectrumPeaks returns the top local maxima of mags, largest first.
func SpectrumPeaks(mags []float64, info analysis.SpectrumInfo, top int) []SpectrumPeak {
	var peaks []SpectrumPeak
	for i := 1; i < len(mags)-1; i++ {
		if mags[i] > mags[i-1] && mags[i] >= mags[i+1] {
			peaks = append(peaks, SpectrumPeak{Bin: i, Freq: float64(i) * info.BinSize, Magnitude: mags[i]})
		}
	}
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].Magnitude > peaks[j].Magnitude })
	if top > 0 && len(peaks) > top {
		peaks = peaks[:top]
	}
	return peaks
}

// DisplaySpectrum writes the axis of an averaged spectrum and its largest
// peaks.
func DisplaySpectrum(w io.Writer, info ChannelInfo, mags []float64, axis analysis.SpectrumInfo, top int) error {
	writer := newTabWriter(w)
	info.write(writer)
	fmt.Fprintf(writer, "Bin Size:\t%g Hz\n", axis.BinSize)
	fmt.Fprintf(writer, "Max Frequency:\t%g Hz\n", axis.FMax)
	fmt.Fprintf(writer, "\nBin \tFreq (Hz) \tMagnitude\n")
	for _, p := range SpectrumPeaks(mags, axis, top) {
		fmt.Fprintf(writer, "%d \t%.4f \t%.6g\n", p.Bin, p.Freq, p.Magnitude)
	}
	return writer.Flush()
}
