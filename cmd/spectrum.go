package cmd

import (
	"github.com/samjwillis97/GoModal/pkg/analysis"
	"github.com/samjwillis97/GoModal/pkg/cli"
	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/spf13/cobra"
)

var (
	spectrumAverages int
	spectrumWindow   string
	spectrumTop      int
)

func init() {
	rootCmd.AddCommand(spectrumCmd)
	spectrumCmd.Flags().IntVar(&spectrumAverages, "averages", 1, "number of blocks averaged")
	spectrumCmd.Flags().StringVar(&spectrumWindow, "window", "hann", "window shape")
	spectrumCmd.Flags().IntVar(&spectrumTop, "top", 10, "number of spectral peaks listed")
}

var spectrumCmd = &cobra.Command{
	Use:   "spectrum [file] [group] [channel]",
	Short: "Outputs the averaged magnitude spectrum peaks of the chosen channel",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		shape, err := analysis.Window(spectrumWindow)
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
		if info.SampleRate <= 0 {
			return failure.New(failure.InputShape, "spectrum", "%s has no wf_increment", info.Path)
		}
		mags, axis := analysis.AveragedSpectrum(y, 1/info.SampleRate, spectrumAverages, shape)
		if mags == nil {
			return failure.New(failure.InputShape, "spectrum", "%d samples are too few for %d averages", len(y), spectrumAverages)
		}
		return cli.DisplaySpectrum(cmd.OutOrStdout(), info, mags, axis, spectrumTop)
	},
}
