package cmd

import (
	"github.com/samjwillis97/GoModal/pkg/cli"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listGroupsCmd)
	rootCmd.AddCommand(listChannelsCmd)
}

var listGroupsCmd = &cobra.Command{
	Use:   "list-groups [file]",
	Short: "List the groups in the given TDMS File",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := openFile(args[0])
		if err != nil {
			return err
		}
		defer file.Close()
		return cli.DisplayGroups(cmd.OutOrStdout(), file)
	},
}

var listChannelsCmd = &cobra.Command{
	Use:   "list-channels [file] [group]",
	Short: "List the channels of a group in the given TDMS File",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		group, err := groupArg(args, 1)
		if err != nil {
			return err
		}
		file, err := openFile(args[0])
		if err != nil {
			return err
		}
		defer file.Close()
		return cli.DisplayGroupChannels(cmd.OutOrStdout(), file, group)
	},
}
