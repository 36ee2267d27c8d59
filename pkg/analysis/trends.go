package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Finds Min and Max of a []float64
// Returns Minimum and Maximum Value, zeros for an empty slice
func MinMax(y []float64) (min float64, max float64) {
	if len(y) == 0 {
		return 0, 0
	}
	return floats.Min(y), floats.Max(y)
}

// Finds Root Mean Square of []float64
func RMS(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(y, y) / float64(len(y)))
}

// Peak to Peak of []float64
func PeakToPeak(y []float64) float64 {
	min, max := MinMax(y)
	return math.Abs(max - min)
}

// Finds Max Value of a []float64
// Returns Index in Slice, and Max Value. Index is -1 for an empty slice
func ArgMax(y []float64) (ndx int, val float64) {
	if len(y) == 0 {
		return -1, 0
	}
	ndx = floats.MaxIdx(y)
	return ndx, y[ndx]
}

// Trend holds the summary values of one block of a waveform.
type Trend struct {
	Block       int
	Samples     int
	Mean        float64
	RMS         float64
	PeakToPeak  float64
	CrestFactor float64
}

// Trends splits y into blocks of blockSize samples and summarises each.
// A blockSize < 1 treats y as one block. A trailing partial block is kept.
func Trends(y []float64, blockSize int) []Trend {
	if len(y) == 0 {
		return nil
	}
	if blockSize < 1 || blockSize > len(y) {
		blockSize = len(y)
	}
	var trends []Trend
	for start, block := 0, 0; start < len(y); start, block = start+blockSize, block+1 {
		end := start + blockSize
		if end > len(y) {
			end = len(y)
		}
		cut := y[start:end]
		rms := RMS(cut)
		min, max := MinMax(cut)
		cf := 0.0
		if rms > 0 {
			cf = math.Max(math.Abs(min), math.Abs(max)) / rms
		}
		trends = append(trends, Trend{
			Block:       block,
			Samples:     len(cut),
			Mean:        stat.Mean(cut, nil),
			RMS:         rms,
			PeakToPeak:  math.Abs(max - min),
			CrestFactor: cf,
		})
	}
	return trends
}
