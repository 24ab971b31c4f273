// Package index builds the per-run snapshot of static resources. The index
// is assembled completely before any reference matching starts and is
// read-only afterwards, so later pipeline stages share it without locking.
package index

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/rebust/rebust/internal/fsutil"
)

// Digester reduces file content to a fixed-length digest.
type Digester func([]byte) []byte

// Resource is one static file discovered under a configured root.
type Resource struct {
	Root    string    // configured root directory, as given
	RootIdx int       // position of Root in the configured order
	RelPath string    // POSIX path under Root, unique within the root
	AbsPath string    // Root joined with RelPath
	Size    int64
	ModTime time.Time
	Digest  []byte // recomputed every run, never cached across invocations
}

// Skip records a file that could not be indexed.
type Skip struct {
	Path   string
	Reason string
}

// Options configures a Build.
type Options struct {
	Roots     []string // static roots, tried in this order during matching
	Filetypes []string // suffix allowlist; empty means everything
	Exclude   []string // glob patterns pruned from the walk
	Digest    Digester
	Workers   int // defaults to GOMAXPROCS
}

// Index is the immutable path -> resource snapshot.
type Index struct {
	roots  []string
	byPath map[string][]*Resource // rel path -> resources, root order
	byName map[string][]*Resource // base name -> resources
	all    []*Resource
	skips  []Skip
}

// Build walks the static roots and digests every matching file. A root that
// cannot be read at all is a fatal error; individual unreadable files are
// recorded as skips.
func Build(ctx context.Context, fsys billy.Filesystem, opts Options) (*Index, error) {
	if opts.Digest == nil {
		return nil, fmt.Errorf("index: no digester configured")
	}
	exclude := fsutil.NewMatcher(opts.Exclude)

	type candidate struct {
		root    string
		rootIdx int
		path    string
		fi      os.FileInfo
	}
	var candidates []candidate
	for i, root := range opts.Roots {
		if _, err := fsys.Stat(root); err != nil {
			return nil, fmt.Errorf("index: static root %q: %w", root, err)
		}
		err := fsutil.Walk(fsys, root, exclude, func(p string, fi os.FileInfo) error {
			if len(opts.Filetypes) > 0 && !fsutil.HasSuffix(opts.Filetypes, p) {
				return nil
			}
			candidates = append(candidates, candidate{root: root, rootIdx: i, path: p, fi: fi})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("index: walk %q: %w", root, err)
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Per-worker accumulators, merged once after the pool drains.
	resources := make([][]*Resource, workers)
	skips := make([][]Skip, workers)
	fsutil.Pool(workers, len(candidates), func(wkr, i int) {
		if ctx.Err() != nil {
			return
		}
		c := candidates[i]
		content, err := util.ReadFile(fsys, c.path)
		if err != nil {
			skips[wkr] = append(skips[wkr], Skip{Path: c.path, Reason: "unreadable: " + err.Error()})
			return
		}
		rel := relPath(c.root, c.path)
		resources[wkr] = append(resources[wkr], &Resource{
			Root:    c.root,
			RootIdx: c.rootIdx,
			RelPath: rel,
			AbsPath: c.path,
			Size:    c.fi.Size(),
			ModTime: c.fi.ModTime(),
			Digest:  opts.Digest(content),
		})
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ix := &Index{
		roots:  append([]string(nil), opts.Roots...),
		byPath: map[string][]*Resource{},
		byName: map[string][]*Resource{},
	}
	for _, rs := range resources {
		ix.all = append(ix.all, rs...)
	}
	for _, sk := range skips {
		ix.skips = append(ix.skips, sk...)
	}
	sort.Slice(ix.all, func(a, b int) bool {
		if ix.all[a].RootIdx != ix.all[b].RootIdx {
			return ix.all[a].RootIdx < ix.all[b].RootIdx
		}
		return ix.all[a].RelPath < ix.all[b].RelPath
	})
	for _, r := range ix.all {
		ix.byPath[r.RelPath] = append(ix.byPath[r.RelPath], r)
		name := path.Base(r.RelPath)
		ix.byName[name] = append(ix.byName[name], r)
	}
	return ix, nil
}

func relPath(root, p string) string {
	p = filepath.ToSlash(p)
	root = filepath.ToSlash(root)
	rel := strings.TrimPrefix(p, root)
	return strings.TrimPrefix(rel, "/")
}

// Lookup returns every resource whose root-relative path equals rel, in
// configured root order. More than one hit means the same relative path
// exists under several roots.
func (ix *Index) Lookup(rel string) []*Resource {
	return ix.byPath[rel]
}

// ByName returns every resource with the given base filename.
func (ix *Index) ByName(name string) []*Resource {
	return ix.byName[name]
}

// Len returns the number of indexed resources.
func (ix *Index) Len() int { return len(ix.all) }

// All returns the resources in (root order, path) order.
func (ix *Index) All() []*Resource { return ix.all }

// Skipped returns the files that could not be indexed.
func (ix *Index) Skipped() []Skip { return ix.skips }
