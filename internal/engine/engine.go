// Package engine runs the full cache-bust pipeline for one invocation:
// build the resource index, scan the code roots, resolve every reference,
// plan the edits the operating mode allows and hand them to the patcher.
// Nothing is persisted between runs; idempotence comes from recomputing
// everything from the filesystem every time.
package engine

import (
	"context"
	"fmt"

	billy "github.com/go-git/go-billy/v5"

	"github.com/rebust/rebust/internal/bust"
	"github.com/rebust/rebust/internal/config"
	"github.com/rebust/rebust/internal/index"
	"github.com/rebust/rebust/internal/patch"
	"github.com/rebust/rebust/internal/report"
	"github.com/rebust/rebust/internal/scan"
)

// Options selects the mode and the run-level switches.
type Options struct {
	Mode         bust.Mode
	DryRun       bool
	Force        bool
	FormOverride *scan.MarkerForm // --filename / --querystring
	Workers      int
}

// Run executes one invocation over the given filesystem. The returned report
// carries every per-reference and per-file outcome; only configuration
// problems and unreadable roots surface as errors.
func Run(ctx context.Context, fsys billy.Filesystem, cfg *config.Config, opts Options) (*report.Report, error) {
	digest, err := bust.NewDigester(cfg.HashFunction)
	if err != nil {
		return nil, err
	}
	insertForm, err := scan.ParseForm(cfg.MarkerForm)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	// The index is a point-in-time snapshot and a synchronization barrier:
	// no matching starts until it is fully built.
	ix, err := index.Build(ctx, fsys, index.Options{
		Roots:     cfg.StaticDirs,
		Filetypes: cfg.StaticFiletypes,
		Exclude:   cfg.IgnoreDirs,
		Digest:    digest,
		Workers:   opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	rules, err := scan.Compile(cfg.Marker, cfg.StaticFiletypes)
	if err != nil {
		return nil, err
	}
	refs, scanSkips, err := rules.ScanTree(ctx, fsys, scan.Options{
		Roots:       cfg.CodeDirs,
		Filetypes:   cfg.CodeFiletypes,
		Exclude:     cfg.IgnoreDirs,
		MaxFileSize: cfg.MaxFileSize,
		Workers:     opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	matcher := bust.NewMatcher(ix, cfg.MultibustMap())
	planner := &bust.Planner{
		Mode:       opts.Mode,
		Delim:      cfg.Marker,
		InsertForm: insertForm,
		ForceForm:  opts.FormOverride,
		Force:      opts.Force,
		HashLength: cfg.HashLength,
		Digest:     digest,
	}

	var decisions []bust.Decision
	var edits []patch.Edit
	for _, ref := range refs {
		d := planner.Plan(ref, matcher.Resolve(ref.Path))
		decisions = append(decisions, d)
		if d.Action != bust.ActionNone && d.Replacement != d.Ref.Raw {
			edits = append(edits, patch.Edit{
				Path:  ref.File,
				Start: ref.Start,
				End:   ref.End,
				Old:   ref.Raw,
				New:   d.Replacement,
			})
		}
	}

	rep := &report.Report{
		Mode:      opts.Mode.String(),
		DryRun:    opts.DryRun,
		Resources: ix.Len(),
	}
	for _, sk := range ix.Skipped() {
		rep.IndexSkips = append(rep.IndexSkips, report.FileSkip{Path: sk.Path, Reason: sk.Reason})
	}
	for _, sk := range scanSkips {
		rep.ScanSkips = append(rep.ScanSkips, report.FileSkip{Path: sk.Path, Reason: sk.Reason})
	}

	applied := map[string]bool{}
	if opts.Mode != bust.ModeScan && len(edits) > 0 {
		results, err := patch.Apply(ctx, fsys, edits, patch.Options{DryRun: opts.DryRun})
		if err != nil {
			return rep, err
		}
		for _, fr := range results {
			switch {
			case fr.Skipped:
				rep.PatchSkips = append(rep.PatchSkips, report.FileSkip{Path: fr.Path, Reason: fr.Reason})
			case opts.DryRun:
				if fr.Diff != "" {
					rep.Diffs = append(rep.Diffs, report.FileDiff{Path: fr.Path, Diff: fr.Diff})
				}
			default:
				applied[fr.Path] = true
				rep.EditedFiles = append(rep.EditedFiles, fr.Path)
			}
		}
	}

	for _, d := range decisions {
		out := report.RefOutcome{
			File:     d.Ref.File,
			Line:     d.Ref.Line,
			Ref:      d.Ref.Raw,
			Status:   d.Status.String(),
			OldToken: d.OldToken,
			NewToken: d.NewToken,
			Detail:   d.Reason,
		}
		if d.Action != bust.ActionNone {
			out.Action = d.Action.String()
			out.Replacement = d.Replacement
			out.Applied = applied[d.Ref.File]
		}
		if len(d.Match.Missing) > 0 && d.Status != bust.StatusUnmatched {
			out.Detail = fmt.Sprintf("unresolved multibust values: %v", d.Match.Missing)
		}
		rep.Refs = append(rep.Refs, out)
	}
	return rep, nil
}
