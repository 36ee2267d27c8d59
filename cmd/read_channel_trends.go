package cmd

import (
	"github.com/samjwillis97/GoModal/pkg/analysis"
	"github.com/samjwillis97/GoModal/pkg/cli"
	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/samjwillis97/GoModal/pkg/tdms"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var blockSize int

func init() {
	rootCmd.AddCommand(readChannelTrendsCmd)
	readChannelTrendsCmd.Flags().IntVar(&blockSize, "block", 0, "samples per trend block, 0 for the whole channel")
}

var readChannelTrendsCmd = &cobra.Command{
	Use:   "read-channel-trends [file] [group] [channel]",
	Short: "Outputs trend information from the chosen channel",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := openFile(args[0])
		if err != nil {
			return err
		}
		defer file.Close()

		y, info, err := readWaveform(file, args[1], args[2])
		if err != nil {
			return err
		}
		return cli.DisplayTrends(cmd.OutOrStdout(), info, analysis.Trends(y, blockSize))
	},
}

// readWaveform reads a real channel and describes it.
func readWaveform(file *tdms.File, group, name string) ([]float64, cli.ChannelInfo, error) {
	info := cli.ChannelInfo{Path: tdms.ObjectPath(group, name), Segments: file.NumSegments()}
	data, err := file.ReadChannel(group, name)
	if err != nil {
		return nil, info, err
	}
	y, ok := data.([]float64)
	if !ok {
		return nil, info, failure.New(failure.WrongType, "read", "%s is not a real channel", info.Path)
	}
	info.Samples = len(y)
	if fs, err := file.SampleRate(group, name); err == nil {
		info.SampleRate = fs
	} else {
		log.WithField("path", info.Path).Debugf("No sample rate: %v", err)
	}
	return y, info, nil
}
