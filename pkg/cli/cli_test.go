package cli

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/samjwillis97/GoModal/pkg/analysis"
	"github.com/samjwillis97/GoModal/pkg/config"
	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/samjwillis97/GoModal/pkg/modal"
	"github.com/samjwillis97/GoModal/pkg/session"
	"github.com/samjwillis97/GoModal/pkg/sonogram"
	"github.com/samjwillis97/GoModal/pkg/tdms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// sampleFile builds one segment holding group Vib with channels Acc and Temp,
// four doubles each.
func sampleFile(t *testing.T) *tdms.File {
	t.Helper()
	le := binary.LittleEndian
	var meta bytes.Buffer
	u32 := func(v uint32) { _ = binary.Write(&meta, le, v) }
	u64 := func(v uint64) { _ = binary.Write(&meta, le, v) }
	str := func(s string) { u32(uint32(len(s))); meta.WriteString(s) }
	rawIndex := func() { u32(20); u32(uint32(tdms.DBL)); u32(1); u64(4) }

	u32(4)
	str("/")
	u32(0xFFFFFFFF)
	u32(0)

	str("/'Vib'")
	u32(0xFFFFFFFF)
	u32(1)
	str("description")
	u32(uint32(tdms.String))
	str("accelerometer run")

	str("/'Vib'/'Acc'")
	rawIndex()
	u32(2)
	str("wf_increment")
	u32(uint32(tdms.DBL))
	u64(math.Float64bits(0.01))
	str("unit_string")
	u32(uint32(tdms.String))
	str("g")

	str("/'Vib'/'Temp'")
	rawIndex()
	u32(0)

	var raw bytes.Buffer
	for _, v := range []float64{1, -1, 1, -1, 20, 21, 22, 23} {
		_ = binary.Write(&raw, le, v)
	}

	var file bytes.Buffer
	file.WriteString("TDSm")
	_ = binary.Write(&file, le, uint32(0x2|0x4|0x8))
	_ = binary.Write(&file, le, uint32(4713))
	_ = binary.Write(&file, le, uint64(meta.Len()+raw.Len()))
	_ = binary.Write(&file, le, uint64(meta.Len()))
	file.Write(meta.Bytes())
	file.Write(raw.Bytes())

	f, err := tdms.Read(bytes.NewReader(file.Bytes()))
	require.NoError(t, err)
	return f
}

func TestDisplayFile(t *testing.T) {
	f := sampleFile(t)

	var out bytes.Buffer
	require.NoError(t, DisplayFile(&out, f, false))
	assert.Contains(t, out.String(), "└── Vib")
	assert.Contains(t, out.String(), "├── Acc")
	assert.Contains(t, out.String(), "└── Temp")
	assert.NotContains(t, out.String(), "wf_increment")

	out.Reset()
	require.NoError(t, DisplayFile(&out, f, true))
	assert.Contains(t, out.String(), "unit_string")
	assert.Contains(t, out.String(), "└── wf_increment")
}

func TestDisplayGroupsAndChannels(t *testing.T) {
	f := sampleFile(t)

	var out bytes.Buffer
	require.NoError(t, DisplayGroups(&out, f))
	assert.Equal(t, "Vib\n", out.String())

	out.Reset()
	require.NoError(t, DisplayGroupChannels(&out, f, "Vib"))
	assert.Equal(t, "Acc\nTemp\n", out.String())

	err := DisplayGroupChannels(&out, f, "Missing")
	assert.True(t, errors.Is(err, failure.ErrUnknownKey))
}

func TestDisplayProperties(t *testing.T) {
	f := sampleFile(t)

	var out bytes.Buffer
	require.NoError(t, DisplayProperties(&out, f, "Vib", "Acc"))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "unit_string")
	assert.Contains(t, lines[0], "g")
	assert.Contains(t, lines[1], "wf_increment")

	out.Reset()
	require.NoError(t, DisplayProperties(&out, f, "Vib"))
	assert.Contains(t, out.String(), "accelerometer run")

	err := DisplayProperties(&out, f, "Vib", "Missing")
	assert.True(t, errors.Is(err, failure.ErrUnknownKey))
}

func TestDisplayTrends(t *testing.T) {
	f := sampleFile(t)
	data, err := f.ReadChannel("Vib", "Acc")
	require.NoError(t, err)
	fs, err := f.SampleRate("Vib", "Acc")
	require.NoError(t, err)

	y := data.([]float64)
	info := ChannelInfo{Path: tdms.ObjectPath("Vib", "Acc"), SampleRate: fs, Samples: len(y), Segments: f.NumSegments()}
	var out bytes.Buffer
	require.NoError(t, DisplayTrends(&out, info, analysis.Trends(y, 2)))
	s := out.String()
	assert.Contains(t, s, "/'Vib'/'Acc'")
	assert.Contains(t, s, "100 Hz")
	assert.Equal(t, 2, strings.Count(s, "2.0000"), "peak to peak of both blocks")
}

func TestSpectrumPeaks(t *testing.T) {
	mags := []float64{5, 1, 0, 3, 0, 2, 0}
	peaks := SpectrumPeaks(mags, analysis.SpectrumInfo{BinSize: 0.5}, 1)
	require.Len(t, peaks, 1)
	assert.Equal(t, SpectrumPeak{Bin: 3, Freq: 1.5, Magnitude: 3}, peaks[0])

	peaks = SpectrumPeaks(mags, analysis.SpectrumInfo{BinSize: 0.5}, 0)
	require.Len(t, peaks, 2)
	assert.Equal(t, 5, peaks[1].Bin)

	var out bytes.Buffer
	require.NoError(t, DisplaySpectrum(&out, ChannelInfo{Path: "/'g'/'c'"}, mags, analysis.SpectrumInfo{BinSize: 0.5, FMax: 3}, 2))
	assert.Contains(t, out.String(), "1.5000")
}

func sampleReport() Report {
	peaks := []session.Peak{{
		ID: 3,
		Lo: 9,
		Hi: 11,
		Channels: []session.ChannelFit{
			{
				Index: 0,
				Cells: [session.NumParams]session.Cell{
					{Value: 10, Origin: session.Auto},
					{Value: 0.01, Origin: session.Manual},
					{},
					{Value: 0.5, Origin: session.Auto},
				},
			},
			{Index: 1, Err: errors.New("boom")},
		},
		Summary: [session.NumParams]float64{10, 0.01, math.NaN(), 0.5},
	}}
	global := []session.GlobalFit{{
		Channel: 0,
		Result:  &modal.RFPResult{P: []float64{1}, Q: []float64{100, 1, 1}, Iterations: 3, Residual: 1e-9, Converged: true},
	}}
	names := map[int]string{0: "Acc"}
	return NewReport(peaks, global, func(i int) string { return names[i] })
}

func TestNewReport(t *testing.T) {
	r := sampleReport()
	require.Len(t, r.Peaks, 1)
	p := r.Peaks[0]
	assert.Equal(t, 3, p.ID)
	assert.Nil(t, p.Summary.Magnitude)
	require.NotNil(t, p.Summary.Freq)
	assert.Equal(t, 10.0, *p.Summary.Freq)

	require.Len(t, p.Channels, 2)
	assert.Equal(t, "Acc", p.Channels[0].Name)
	assert.Equal(t, "manual", p.Channels[0].Damping.Origin)
	assert.Nil(t, p.Channels[0].Magnitude.Value)
	assert.Equal(t, "boom", p.Channels[1].Error)

	require.Len(t, r.Global, 1)
	require.Len(t, r.Global[0].Poles, 1)
	assert.InDelta(t, 10, r.Global[0].Poles[0].Freq, 1e-9)
	assert.InDelta(t, 0.05, r.Global[0].Poles[0].Damping, 1e-9)
}

func TestWriteReport(t *testing.T) {
	r := sampleReport()

	var out bytes.Buffer
	require.NoError(t, WriteReport(&out, config.FormatJSON, r))
	var fromJSON Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &fromJSON))
	assert.Equal(t, r, fromJSON)

	out.Reset()
	require.NoError(t, WriteReport(&out, config.FormatYAML, r))
	var fromYAML Report
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &fromYAML))
	assert.Equal(t, r, fromYAML)

	out.Reset()
	require.NoError(t, WriteReport(&out, config.FormatTable, r))
	s := out.String()
	assert.Contains(t, s, "Peak 3")
	assert.Contains(t, s, "0.01*")
	assert.Contains(t, s, "boom")
	assert.Contains(t, s, "Summary")
	assert.Contains(t, s, "Global Fit")

	err := WriteReport(&out, "xml", r)
	assert.True(t, errors.Is(err, failure.ErrUnknownKey))
}

func TestParquetRoundTrip(t *testing.T) {
	s := make([]float64, 512)
	for i := range s {
		s[i] = math.Sin(2 * math.Pi * 12.5 * float64(i) / 100)
	}
	res, err := sonogram.Compute(context.Background(), s, 100, sonogram.Options{Width: 64, Hop: 32, Window: "hann"})
	require.NoError(t, err)
	rows, cols := res.Shape()

	for _, codec := range []string{"", "zstd", "gzip"} {
		opt, err := ParquetCompression(codec)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, WriteParquet(&buf, res, opt))
		got, err := readParquet(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		require.Len(t, got, rows*cols, codec)

		last := got[len(got)-1]
		assert.Equal(t, int32(rows-1), last.Frame)
		assert.Equal(t, res.T[rows-1][cols-1], last.Time)
		assert.Equal(t, res.F[rows-1][cols-1], last.Frequency)
		assert.Equal(t, res.M[rows-1][cols-1], last.Magnitude)
	}

	_, err = ParquetCompression("lzma")
	assert.True(t, errors.Is(err, failure.ErrUnknownKey))
}

func TestDisplaySonogram(t *testing.T) {
	s := make([]float64, 400)
	for i := range s {
		s[i] = math.Sin(2 * math.Pi * 25 * float64(i) / 100)
	}
	res, err := sonogram.Compute(context.Background(), s, 100, sonogram.Options{Width: 32, Hop: 16, Window: "hann"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, DisplaySonogram(&out, ChannelInfo{Path: "/'g'/'c'", SampleRate: 100, Samples: 400}, res, 5))
	assert.Contains(t, out.String(), "Frames:")
	assert.Contains(t, out.String(), "25.0000")
}
