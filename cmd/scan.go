package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rebust/rebust/internal/bust"
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Report every reference and its resolution without editing",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode(cmd, args, bust.ModeScan)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
