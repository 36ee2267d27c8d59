package cmd

import (
	"github.com/samjwillis97/GoModal/pkg/cli"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List the full TDMS file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := openFile(args[0])
		if err != nil {
			return err
		}
		defer file.Close()
		return cli.DisplayFile(cmd.OutOrStdout(), file, cfg.Verbose)
	},
}
