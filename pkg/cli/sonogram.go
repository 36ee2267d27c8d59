package cli

import (
	"fmt"
	"io"

	parquet "github.com/parquet-go/parquet-go"
	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/samjwillis97/GoModal/pkg/sonogram"
	log "github.com/sirupsen/logrus"
)

// SonogramRow is one cell of a sonogram in long form.
type SonogramRow struct {
	Frame     int32   `parquet:"frame"`
	Time      float64 `parquet:"time"`
	Frequency float64 `parquet:"frequency"`
	Magnitude float64 `parquet:"magnitude"`
}

// DisplaySonogram writes the grid layout and the dominant frequency of every
// every-th frame. every < 1 writes every frame.
func DisplaySonogram(w io.Writer, info ChannelInfo, res *sonogram.Result, every int) error {
	if every < 1 {
		every = 1
	}
	rows, cols := res.Shape()
	writer := newTabWriter(w)
	info.write(writer)
	fmt.Fprintf(writer, "Window:\t%s\n", res.Window)
	fmt.Fprintf(writer, "Width:\t%d\n", res.Width)
	fmt.Fprintf(writer, "Hop:\t%d\n", res.Hop)
	fmt.Fprintf(writer, "Plot:\t%s\n", res.Plot)
	fmt.Fprintf(writer, "Frames:\t%d\n", rows)
	fmt.Fprintf(writer, "Bins:\t%d\n", cols)

	fmt.Fprintf(writer, "\nFrame \tTime (s) \tPeak (Hz) \tMagnitude\n")
	for i, bin := range res.PeakBins() {
		if i%every != 0 {
			continue
		}
		fmt.Fprintf(writer, "%d \t%.4f \t%.4f \t%.6g\n", i, res.T[i][bin], res.F[i][bin], res.M[i][bin])
	}
	return writer.Flush()
}

// WriteParquet streams every cell of res to w as SonogramRow records, one row
// group batch per frame.
func WriteParquet(w io.Writer, res *sonogram.Result, opts ...parquet.WriterOption) error {
	const op = "cli.WriteParquet"
	pw := parquet.NewGenericWriter[SonogramRow](w, opts...)
	rows, cols := res.Shape()
	batch := make([]SonogramRow, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			batch[j] = SonogramRow{
				Frame:     int32(i),
				Time:      res.T[i][j],
				Frequency: res.F[i][j],
				Magnitude: res.M[i][j],
			}
		}
		if _, err := pw.Write(batch); err != nil {
			return failure.Wrap(failure.IO, op, err)
		}
	}
	if err := pw.Close(); err != nil {
		return failure.Wrap(failure.IO, op, err)
	}
	log.WithFields(log.Fields{
		"frames": rows,
		"bins":   cols,
	}).Debug("Parquet flush")
	return nil
}

// readParquet loads every SonogramRow written by WriteParquet.
func readParquet(ra io.ReaderAt) ([]SonogramRow, error) {
	gr := parquet.NewGenericReader[SonogramRow](ra)
	defer gr.Close()

	out := make([]SonogramRow, 0, 1024)
	batch := make([]SonogramRow, 1024)
	for {
		n, err := gr.Read(batch)
		if n > 0 {
			out = append(out, batch[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, failure.Wrap(failure.IO, "cli.readParquet", err)
		}
	}
	return out, nil
}

// ParquetCompression maps a codec name to its writer option.
func ParquetCompression(name string) (parquet.WriterOption, error) {
	switch name {
	case "zstd":
		return parquet.Compression(&parquet.Zstd), nil
	case "gzip":
		return parquet.Compression(&parquet.Gzip), nil
	case "snappy", "":
		return parquet.Compression(&parquet.Snappy), nil
	}
	return nil, failure.New(failure.UnknownKey, "cli.ParquetCompression", "codec %q", name)
}
