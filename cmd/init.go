package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/rebust/rebust/internal/config"
	"github.com/rebust/rebust/internal/engine"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Scan a project and write a starter configuration",
	Long: `Init walks the project, finds static resources that are referenced from
source files, and writes a rebust.hcl naming the discovered static and code
directories. Review and trim the generated file before the first rewrite.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := projectDir(args)
		cfg, err := engine.Discover(cmd.Context(), osfs.New(dir))
		if err != nil {
			return err
		}
		if len(cfg.StaticDirs) == 0 {
			logger.Warn("no referenced static resources found; writing a skeleton config")
			cfg.StaticDirs = []string{"static"}
			cfg.CodeDirs = []string{"."}
		}

		for _, d := range cfg.StaticDirs {
			logger.Info("static dir", "path", d)
		}
		for _, d := range cfg.CodeDirs {
			logger.Info("code dir", "path", d)
		}

		target := filepath.Join(dir, config.DefaultFilename)
		if err := config.WriteInitial(target, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", target)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
