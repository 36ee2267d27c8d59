package cmd

import (
	"github.com/samjwillis97/GoModal/pkg/cli"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listPropertiesCmd)
}

var listPropertiesCmd = &cobra.Command{
	Use:   "list-properties [file] [group] [channel]",
	Short: "List the properties of the file, a group or a channel of a TDMS File",
	Args:  cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := openFile(args[0])
		if err != nil {
			return err
		}
		defer file.Close()
		return cli.DisplayProperties(cmd.OutOrStdout(), file, args[1:]...)
	},
}
