package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rebust/rebust/internal/bust"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [dir]",
	Short: "Insert cache-bust markers and refresh stale ones",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode(cmd, args, bust.ModeRewrite)
	},
}

func init() {
	rewriteFlags(rewriteCmd)
	rootCmd.AddCommand(rewriteCmd)
}
