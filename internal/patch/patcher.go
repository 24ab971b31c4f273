// Package patch applies planned reference edits to source files. All bytes
// outside the edited spans are preserved exactly. Writes are atomic per file
// (temp file in the same directory, then rename), and a file whose content
// shifted since scanning is skipped whole rather than patched at stale
// offsets.
package patch

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pmezard/go-difflib/difflib"
)

// Edit replaces the byte range [Start, End) of Path with New. Old is the
// text recorded at scan time and is verified before anything is written.
type Edit struct {
	Path  string
	Start int
	End   int
	Old   string
	New   string
}

// FileResult reports what happened to one file.
type FileResult struct {
	Path    string
	Applied []Edit
	Skipped bool
	Reason  string
	Diff    string // unified diff, dry-run only
}

// Options configures Apply.
type Options struct {
	DryRun bool
}

// Apply groups the edits by file and patches each file at most once. Edits
// are applied in descending offset order so every span is measured against
// never-yet-shifted text. Per-file failures are recorded, not fatal; a
// context cancellation stops before the next file write.
func Apply(ctx context.Context, fsys billy.Filesystem, edits []Edit, opts Options) ([]FileResult, error) {
	byFile := map[string][]Edit{}
	var order []string
	for _, e := range edits {
		if _, ok := byFile[e.Path]; !ok {
			order = append(order, e.Path)
		}
		byFile[e.Path] = append(byFile[e.Path], e)
	}
	sort.Strings(order)

	var results []FileResult
	for _, p := range order {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, applyFile(fsys, p, byFile[p], opts))
	}
	return results, nil
}

func applyFile(fsys billy.Filesystem, p string, edits []Edit, opts Options) FileResult {
	res := FileResult{Path: p}

	content, err := util.ReadFile(fsys, p)
	if err != nil {
		res.Skipped = true
		res.Reason = "unreadable: " + err.Error()
		return res
	}

	sort.Slice(edits, func(a, b int) bool { return edits[a].Start > edits[b].Start })

	// Offsets must still describe the scanned text exactly: in bounds,
	// original bytes unchanged, spans non-overlapping.
	prevStart := len(content) + 1
	for _, e := range edits {
		if e.Start < 0 || e.End > len(content) || e.Start > e.End {
			res.Skipped = true
			res.Reason = fmt.Sprintf("stale offsets [%d:%d] for file of length %d (changed since scan)", e.Start, e.End, len(content))
			return res
		}
		if string(content[e.Start:e.End]) != e.Old {
			res.Skipped = true
			res.Reason = fmt.Sprintf("content at [%d:%d] changed since scan", e.Start, e.End)
			return res
		}
		if e.End > prevStart {
			res.Skipped = true
			res.Reason = fmt.Sprintf("overlapping edits at [%d:%d]", e.Start, e.End)
			return res
		}
		prevStart = e.Start
	}

	patched := append([]byte(nil), content...)
	for _, e := range edits {
		next := make([]byte, 0, len(patched)+len(e.New)-(e.End-e.Start))
		next = append(next, patched[:e.Start]...)
		next = append(next, e.New...)
		next = append(next, patched[e.End:]...)
		patched = next
	}
	res.Applied = edits

	if opts.DryRun {
		diff, derr := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(content)),
			B:        difflib.SplitLines(string(patched)),
			FromFile: p,
			ToFile:   p + " (busted)",
			Context:  2,
		})
		if derr == nil {
			res.Diff = diff
		}
		return res
	}

	if err := atomicWrite(fsys, p, patched); err != nil {
		res.Skipped = true
		res.Applied = nil
		res.Reason = "write failed: " + err.Error()
	}
	return res
}

// atomicWrite replaces p via a temp file in the same directory. The temp
// file is created with the original's permissions so the rename preserves
// them. A crash mid-write leaves the original untouched.
func atomicWrite(fsys billy.Filesystem, p string, content []byte) error {
	mode := os.FileMode(0o644)
	if fi, err := fsys.Stat(p); err == nil {
		mode = fi.Mode().Perm()
	}

	dir := ""
	base := p
	if i := lastSlash(p); i >= 0 {
		dir, base = p[:i], p[i+1:]
	}
	tmpName := fsys.Join(dir, fmt.Sprintf(".%s.rebust%d", base, time.Now().UnixNano()))

	f, err := fsys.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := fsys.Rename(tmpName, p); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("rename temp to %s: %w", p, err)
	}
	return nil
}

func lastSlash(p string) int {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == os.PathSeparator {
			return i
		}
	}
	return -1
}
