// Package cmd wires the rebust subcommands. All real work happens in the
// internal packages; this layer parses flags, loads configuration and
// renders the run report.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/rebust/rebust/internal/bust"
	"github.com/rebust/rebust/internal/config"
	"github.com/rebust/rebust/internal/engine"
	"github.com/rebust/rebust/internal/report"
	"github.com/rebust/rebust/internal/scan"
)

var (
	cfgPath string
	dryRun  bool
	jsonOut bool
	verbose bool
	quiet   bool

	forceFlag       bool
	filenameForm    bool
	querystringForm bool
)

var logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})

var rootCmd = &cobra.Command{
	Use:   "rebust",
	Short: "Rebust adds cache-bust tokens to static resource URLs",
	Long: `Rebust scans your project for static resources (js, css, images) and for
URLs referencing them in source files, then rewrites those URLs to carry a
cache-bust token derived from each resource's modification time and content.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
		if quiet {
			logger.SetLevel(log.ErrorLevel)
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", config.DefaultFilename, "path to the configuration file")
	pf.BoolVarP(&dryRun, "dry-run", "n", false, "compute and report edits without writing")
	pf.BoolVar(&jsonOut, "json", false, "emit the report as JSON")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.BoolVarP(&quiet, "quiet", "q", false, "errors only")
}

func rewriteFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "rewrite markers even when already current")
	cmd.Flags().BoolVar(&filenameForm, "filename", false, "convert markers to the filename-embedded form")
	cmd.Flags().BoolVar(&querystringForm, "querystring", false, "convert markers to the query-parameter form")
}

func projectDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func formOverride() (*scan.MarkerForm, error) {
	if filenameForm && querystringForm {
		return nil, fmt.Errorf("--filename and --querystring are mutually exclusive")
	}
	var f scan.MarkerForm
	switch {
	case filenameForm:
		f = scan.FormFilename
	case querystringForm:
		f = scan.FormQuery
	default:
		return nil, nil
	}
	return &f, nil
}

// runMode executes the pipeline in the given mode and renders the report.
func runMode(cmd *cobra.Command, args []string, mode bust.Mode) error {
	dir := projectDir(args)
	path, err := config.Locate(dir, cfgPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded", "path", path, "static_dirs", cfg.StaticDirs, "code_dirs", cfg.CodeDirs)

	override, err := formOverride()
	if err != nil {
		return err
	}

	rep, err := engine.Run(cmd.Context(), osfs.New(dir), cfg, engine.Options{
		Mode:         mode,
		DryRun:       dryRun,
		Force:        forceFlag,
		FormOverride: override,
	})
	if err != nil {
		return err
	}

	if jsonOut {
		fmt.Fprintln(cmd.OutOrStdout(), rep.JSON())
	} else if !quiet {
		report.Render(cmd.OutOrStdout(), rep, verbose)
	}
	if rep.Warnings() {
		logger.Warn("completed with warnings, see report")
	}
	return nil
}

// Execute runs the root command under a cancellation context.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
