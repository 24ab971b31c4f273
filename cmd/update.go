package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rebust/rebust/internal/bust"
)

var updateCmd = &cobra.Command{
	Use:   "update [dir]",
	Short: "Refresh existing cache-bust markers; never insert new ones",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode(cmd, args, bust.ModeUpdate)
	},
}

func init() {
	rewriteFlags(updateCmd)
	rootCmd.AddCommand(updateCmd)
}
