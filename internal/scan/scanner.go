// Package scan finds candidate resource references in arbitrary text files.
// Matching is attribute-agnostic: a delimited literal whose path portion ends
// in a known static suffix counts, no src= or url( required. The rules are
// compiled once per run from the configured marker delimiter and suffix set,
// and applied as pure functions over byte spans.
package scan

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/rebust/rebust/internal/fsutil"
)

// Skip records a file the scanner refused to read.
type Skip struct {
	Path   string
	Reason string
}

// Ruleset holds the compiled matching rules for one run.
type Ruleset struct {
	delim string
	plain *regexp.Regexp
	fn    *regexp.Regexp
	qs    *regexp.Regexp
}

// Character classes for reference literals. A literal runs between quotes,
// parens, tags, whitespace or attribute punctuation; the file part
// additionally stops at a path separator, and an attached query string stops
// at a fragment.
const (
	dirChars  = `[^\s"'()<>=,;?#&]`
	fileChars = `[^\s"'()<>=,;?#&/]`
	qryChars  = `[^\s"'()<>,#]`
	litChars  = `[^\s"'()<>,]`
	tokChars  = `[a-zA-Z0-9]{0,32}`
)

// Compile builds the ruleset for a marker delimiter and static suffix set.
func Compile(delim string, staticTypes []string) (*Ruleset, error) {
	if delim == "" {
		return nil, fmt.Errorf("scan: empty marker delimiter")
	}
	if len(staticTypes) == 0 {
		return nil, fmt.Errorf("scan: empty static suffix set")
	}
	alts := make([]string, 0, len(staticTypes))
	for _, t := range staticTypes {
		alts = append(alts, regexp.QuoteMeta(strings.TrimPrefix(t, ".")))
	}
	suffix := `\.(?:` + strings.Join(alts, "|") + `)`
	me := regexp.QuoteMeta(delim)

	plain, err := regexp.Compile(`(?m)(?:^|[\s"'(=,>])((?:` + dirChars + `*/)?` + fileChars + `+` + suffix + `(?:\?` + qryChars + `+)?)`)
	if err != nil {
		return nil, fmt.Errorf("scan: compile plain rule: %w", err)
	}
	fn, err := regexp.Compile(`(` + litChars + `+?)` + me + `(` + tokChars + `)(\.[A-Za-z0-9]+)`)
	if err != nil {
		return nil, fmt.Errorf("scan: compile filename rule: %w", err)
	}
	qs, err := regexp.Compile(`(` + litChars + `+?)\?((?:[^\s"'()<>]*?&)?)` + me + `(?:=(` + tokChars + `))?`)
	if err != nil {
		return nil, fmt.Errorf("scan: compile query rule: %w", err)
	}
	return &Ruleset{delim: delim, plain: plain, fn: fn, qs: qs}, nil
}

func isWordByte(b byte) bool {
	return b == '_' || b == '.' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// span ends must not sit inside a larger word, otherwise ".js" would match
// the front of ".json".
func wordBoundary(content []byte, end int) bool {
	return end >= len(content) || !isWordByte(content[end])
}

func overlaps(refs []Reference, start, end int) bool {
	for i := range refs {
		if start < refs[i].End && refs[i].Start < end {
			return true
		}
	}
	return false
}

// ScanContent extracts every reference from one file's content. Marked
// references claim their spans first (query form before filename form, since
// a query marker can contain a filename-shaped path); plain candidates that
// overlap a marked span are dropped.
func (rs *Ruleset) ScanContent(file string, content []byte) []Reference {
	var refs []Reference

	if bytes.Contains(content, []byte(rs.delim)) {
		for _, m := range rs.qs.FindAllSubmatchIndex(content, -1) {
			start, end := m[0], m[1]
			clean := string(content[m[2]:m[3]])
			params := ""
			if m[4] >= 0 {
				params = string(content[m[4]:m[5]])
			}
			token := ""
			if m[6] >= 0 {
				token = string(content[m[6]:m[7]])
			}
			full := clean
			if p := strings.TrimSuffix(params, "&"); p != "" {
				full = clean + "?" + p
			}
			refs = append(refs, Reference{
				File:  file,
				Start: start,
				End:   end,
				Raw:   string(content[start:end]),
				Clean: full,
				Path:  clean,
				Mark:  &Marker{Form: FormQuery, Token: token},
			})
		}
		for _, m := range rs.fn.FindAllSubmatchIndex(content, -1) {
			start, end := m[0], m[1]
			if !wordBoundary(content, end) || overlaps(refs, start, end) {
				continue
			}
			prefix := string(content[m[2]:m[3]])
			token := string(content[m[4]:m[5]])
			ext := string(content[m[6]:m[7]])
			refs = append(refs, Reference{
				File:  file,
				Start: start,
				End:   end,
				Raw:   string(content[start:end]),
				Clean: prefix + ext,
				Path:  prefix + ext,
				Mark:  &Marker{Form: FormFilename, Token: token},
			})
		}
	}

	for _, m := range rs.plain.FindAllSubmatchIndex(content, -1) {
		start, end := m[2], m[3]
		if !wordBoundary(content, end) || overlaps(refs, start, end) {
			continue
		}
		lit := string(content[start:end])
		// An unmarked reference keeps its existing query string inside the
		// span so the rewrite appends &marker=token instead of splicing a
		// second ?; matching uses the path part only.
		p := lit
		if i := strings.IndexByte(lit, '?'); i >= 0 {
			p = lit[:i]
		}
		refs = append(refs, Reference{
			File:  file,
			Start: start,
			End:   end,
			Raw:   lit,
			Clean: lit,
			Path:  p,
		})
	}

	sort.Slice(refs, func(a, b int) bool { return refs[a].Start < refs[b].Start })
	assignLines(content, refs)
	return refs
}

func assignLines(content []byte, refs []Reference) {
	line, pos := 1, 0
	for i := range refs {
		line += bytes.Count(content[pos:refs[i].Start], []byte{'\n'})
		pos = refs[i].Start
		refs[i].Line = line
	}
}

// Options configures a tree scan.
type Options struct {
	Roots       []string
	Filetypes   []string // code suffix allowlist; empty means everything
	Exclude     []string
	MaxFileSize int64 // files above this are skipped; 0 means no ceiling
	Workers     int
}

// ScanTree scans every code file under the configured roots. Binary files
// and files above the size ceiling are skipped with a reason. References are
// returned in (file, offset) order; every occurrence is kept, duplicates
// included, because each span is patched independently.
func (rs *Ruleset) ScanTree(ctx context.Context, fsys billy.Filesystem, opts Options) ([]Reference, []Skip, error) {
	exclude := fsutil.NewMatcher(opts.Exclude)

	var files []string
	var skips []Skip
	for _, root := range opts.Roots {
		if _, err := fsys.Stat(root); err != nil {
			return nil, nil, fmt.Errorf("scan: code root %q: %w", root, err)
		}
		err := fsutil.Walk(fsys, root, exclude, func(p string, fi os.FileInfo) error {
			if len(opts.Filetypes) > 0 && !fsutil.HasSuffix(opts.Filetypes, p) {
				return nil
			}
			if opts.MaxFileSize > 0 && fi.Size() > opts.MaxFileSize {
				skips = append(skips, Skip{Path: p, Reason: "above size ceiling"})
				return nil
			}
			files = append(files, p)
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("scan: walk %q: %w", root, err)
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	found := make([][]Reference, workers)
	wskips := make([][]Skip, workers)
	fsutil.Pool(workers, len(files), func(wkr, i int) {
		if ctx.Err() != nil {
			return
		}
		p := files[i]
		content, err := util.ReadFile(fsys, p)
		if err != nil {
			wskips[wkr] = append(wskips[wkr], Skip{Path: p, Reason: "unreadable: " + err.Error()})
			return
		}
		if fsutil.IsBinary(content) {
			wskips[wkr] = append(wskips[wkr], Skip{Path: p, Reason: "binary content"})
			return
		}
		found[wkr] = append(found[wkr], rs.ScanContent(p, content)...)
	})
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var refs []Reference
	for _, f := range found {
		refs = append(refs, f...)
	}
	for _, s := range wskips {
		skips = append(skips, s...)
	}
	sort.Slice(refs, func(a, b int) bool {
		if refs[a].File != refs[b].File {
			return refs[a].File < refs[b].File
		}
		return refs[a].Start < refs[b].Start
	})
	return refs, skips, nil
}
