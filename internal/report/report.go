// Package report is the structured output of a run. The engine never prints;
// it fills a Report and the CLI layer decides how to render it.
package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/ohler55/ojg/oj"
)

// RefOutcome is the resolution of one reference occurrence.
type RefOutcome struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	Ref         string `json:"ref"`
	Status      string `json:"status"`
	Action      string `json:"action,omitempty"`
	OldToken    string `json:"old_token,omitempty"`
	NewToken    string `json:"new_token,omitempty"`
	Replacement string `json:"replacement,omitempty"`
	Detail      string `json:"detail,omitempty"`
	Applied     bool   `json:"applied,omitempty"`
}

// FileSkip is a file dropped from some stage with a reason.
type FileSkip struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// FileDiff is the dry-run preview for one would-be-edited file.
type FileDiff struct {
	Path string `json:"path"`
	Diff string `json:"diff"`
}

// Report is the full outcome of one run.
type Report struct {
	Mode      string `json:"mode"`
	DryRun    bool   `json:"dry_run,omitempty"`
	Resources int    `json:"resources"`

	Refs        []RefOutcome `json:"refs"`
	IndexSkips  []FileSkip   `json:"index_skips,omitempty"`
	ScanSkips   []FileSkip   `json:"scan_skips,omitempty"`
	PatchSkips  []FileSkip   `json:"patch_skips,omitempty"`
	EditedFiles []string     `json:"edited_files,omitempty"`
	Diffs       []FileDiff   `json:"diffs,omitempty"`
}

// CountByStatus tallies the reference outcomes.
func (r *Report) CountByStatus() map[string]int {
	counts := map[string]int{}
	for _, ref := range r.Refs {
		counts[ref.Status]++
	}
	return counts
}

// Warnings reports whether any reference needs operator attention.
func (r *Report) Warnings() bool {
	for _, ref := range r.Refs {
		if ref.Status == "unmatched" || ref.Status == "ambiguous" {
			return true
		}
	}
	return len(r.PatchSkips) > 0
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() string {
	return oj.JSON(r, 2)
}

var statusStyles = map[string]lipgloss.Style{
	"current":   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	"stale":     lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	"unmarked":  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	"unmatched": lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	"ambiguous": lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
}

var dimStyle = lipgloss.NewStyle().Faint(true)

// Render writes the human-readable report. Current references are omitted
// unless verbose is set; problems always show.
func Render(w io.Writer, r *Report, verbose bool) {
	for _, ref := range r.Refs {
		if ref.Status == "current" && !verbose {
			continue
		}
		style, ok := statusStyles[ref.Status]
		if !ok {
			style = lipgloss.NewStyle()
		}
		line := fmt.Sprintf("%-9s %s:%d  %s", ref.Status, ref.File, ref.Line, ref.Ref)
		if ref.Replacement != "" && ref.Replacement != ref.Ref {
			line += " -> " + ref.Replacement
		}
		fmt.Fprintln(w, style.Render(line))
		if ref.Detail != "" {
			fmt.Fprintln(w, dimStyle.Render("          "+ref.Detail))
		}
	}

	for _, sk := range r.ScanSkips {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("skipped   %s (%s)", sk.Path, sk.Reason)))
	}
	for _, sk := range r.IndexSkips {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("skipped   %s (%s)", sk.Path, sk.Reason)))
	}
	for _, sk := range r.PatchSkips {
		fmt.Fprintln(w, statusStyles["unmatched"].Render(fmt.Sprintf("not patched %s (%s)", sk.Path, sk.Reason)))
	}

	for _, d := range r.Diffs {
		fmt.Fprintln(w, d.Diff)
	}

	counts := r.CountByStatus()
	fmt.Fprintf(w, "%d resources, %d refs", r.Resources, len(r.Refs))
	for _, status := range []string{"current", "stale", "unmarked", "unmatched", "ambiguous"} {
		if counts[status] > 0 {
			fmt.Fprintf(w, ", %d %s", counts[status], status)
		}
	}
	if len(r.EditedFiles) > 0 {
		fmt.Fprintf(w, ", %d files edited", len(r.EditedFiles))
	}
	if r.DryRun {
		fmt.Fprint(w, " (dry run)")
	}
	fmt.Fprintln(w)
}
