package cmd

import (
	"os"
	"os/signal"

	"github.com/samjwillis97/GoModal/pkg/cli"
	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/samjwillis97/GoModal/pkg/sonogram"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	parquetOut   string
	parquetCodec string
	frameEvery   int
)

func init() {
	rootCmd.AddCommand(sonogramCmd)
	sonogramCmd.Flags().Int("width", 256, "samples per window")
	sonogramCmd.Flags().Int("hop", 32, "samples between windows")
	sonogramCmd.Flags().String("window", "hann", "window shape")
	sonogramCmd.Flags().String("plot", string(sonogram.Colourmap), "plot type (contour, colourmap, surface)")
	sonogramCmd.Flags().StringVar(&parquetOut, "parquet", "", "write every cell to this parquet file")
	sonogramCmd.Flags().StringVar(&parquetCodec, "compression", "snappy", "parquet compression (snappy, zstd, gzip)")
	sonogramCmd.Flags().IntVar(&frameEvery, "every", 1, "list every n-th frame")

	bindFlag(sonogramCmd.Flags(), "width", "sonogram.width")
	bindFlag(sonogramCmd.Flags(), "hop", "sonogram.hop")
	bindFlag(sonogramCmd.Flags(), "window", "sonogram.window")
	bindFlag(sonogramCmd.Flags(), "plot", "sonogram.plot")
}

var sonogramCmd = &cobra.Command{
	Use:   "sonogram [file] [group] [channel]",
	Short: "Computes the short time spectrum of the chosen channel",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := cfg.SonogramOptions()
		if err != nil {
			return err
		}
		file, err := openFile(args[0])
		if err != nil {
			return err
		}
		defer file.Close()

		y, info, err := readWaveform(file, args[1], args[2])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		res, err := sonogram.Compute(ctx, y, info.SampleRate, opts)
		if err != nil {
			return err
		}

		if parquetOut != "" {
			codec, err := cli.ParquetCompression(parquetCodec)
			if err != nil {
				return err
			}
			out, err := os.Create(resolvePath(parquetOut))
			if err != nil {
				return failure.Wrap(failure.IO, "sonogram", err)
			}
			if err := cli.WriteParquet(out, res, codec); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return failure.Wrap(failure.IO, "sonogram", err)
			}
			log.WithField("file", parquetOut).Info("Wrote sonogram")
		}
		return cli.DisplaySonogram(cmd.OutOrStdout(), info, res, frameEvery)
	},
}
