package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// SpectrumInfo describes the frequency axis of a spectrum.
type SpectrumInfo struct {
	BinSize float64
	FMax    float64
}

// Spectrum windows a copy of frame and returns the magnitude of its real
// FFT for bins 0..len(frame)/2.
func Spectrum(frame []float64, shape Shape) []float64 {
	buf := make([]float64, len(frame))
	copy(buf, frame)
	if shape != nil {
		buf = shape(buf)
	}
	bins := fft.FFTReal(buf)
	n := len(frame)/2 + 1
	mags := make([]float64, n)
	for i := 0; i < n && i < len(bins); i++ {
		mags[i] = cmplx.Abs(bins[i])
	}
	return mags
}

// RFFTFreq returns the centre frequency of each one-sided bin for a frame of
// width samples at sample interval dt.
func RFFTFreq(width int, dt float64) []float64 {
	n := width/2 + 1
	freqs := make([]float64, n)
	for i := range freqs {
		freqs[i] = float64(i) / (float64(width) * dt)
	}
	return freqs
}

// Averaged Spectrum of y sampled every dt seconds
// Splits y into averages equal blocks, an averages < 1 uses one block
//
// Returns the mean one-sided magnitude spectrum and its axis information
func AveragedSpectrum(y []float64, dt float64, averages int, shape Shape) ([]float64, SpectrumInfo) {
	if averages < 1 {
		averages = 1
	}
	avgLen := len(y) / averages
	if avgLen < 2 {
		return nil, SpectrumInfo{}
	}

	var result []float64
	for i := 0; i < averages; i++ {
		mags := Spectrum(y[i*avgLen:(i+1)*avgLen], shape)
		if result == nil {
			result = mags
			continue
		}
		for j := range result {
			result[j] += mags[j]
		}
	}
	for k := range result {
		result[k] /= float64(averages)
	}

	binSize := 1 / (float64(avgLen) * dt)
	return result, SpectrumInfo{
		BinSize: binSize,
		FMax:    binSize * float64(len(result)-1),
	}
}
