// Package fsutil holds the filesystem plumbing shared by the resource index
// and the reference scanner: a cycle-safe tree walk, slash-crossing glob
// matching and binary content sniffing. Everything works against a
// billy.Filesystem so tests can run on memfs.
package fsutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	billy "github.com/go-git/go-billy/v5"
)

// Matcher reports whether a path matches any of a set of glob patterns.
// Unlike path.Match, `*` crosses directory separators, so "*lib/*" excludes
// anything under a lib directory at any depth.
type Matcher struct {
	patterns []*regexp.Regexp
}

// NewMatcher compiles the glob patterns. Invalid metacharacters cannot occur:
// every glob translates to a valid regular expression.
func NewMatcher(globs []string) *Matcher {
	m := &Matcher{}
	for _, g := range globs {
		var b strings.Builder
		b.WriteString("^")
		for _, r := range g {
			switch r {
			case '*':
				b.WriteString(".*")
			case '?':
				b.WriteString(".")
			default:
				b.WriteString(regexp.QuoteMeta(string(r)))
			}
		}
		b.WriteString("$")
		m.patterns = append(m.patterns, regexp.MustCompile(b.String()))
	}
	return m
}

// Match reports whether p matches any pattern.
func (m *Matcher) Match(p string) bool {
	if m == nil {
		return false
	}
	p = filepath.ToSlash(p)
	for _, re := range m.patterns {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

// HasSuffix reports whether p ends in one of the given suffixes,
// case-insensitively.
func HasSuffix(suffixes []string, p string) bool {
	lower := strings.ToLower(p)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// WalkFunc is invoked for every regular file found by Walk.
type WalkFunc func(path string, fi os.FileInfo) error

// Walk recursively visits the regular files under root. Symbolic links to
// directories are followed at most once: each resolved link target is
// recorded, and a target seen before is skipped, which makes link cycles
// terminate. Paths matching exclude are pruned (directories before descent,
// files before the callback).
func Walk(fsys billy.Filesystem, root string, exclude *Matcher, fn WalkFunc) error {
	w := &treeWalker{fsys: fsys, exclude: exclude, fn: fn, visited: map[string]bool{}}
	w.visited[filepath.ToSlash(root)] = true
	return w.walkDir(root)
}

type treeWalker struct {
	fsys    billy.Filesystem
	exclude *Matcher
	fn      WalkFunc
	visited map[string]bool
}

func (w *treeWalker) walkDir(dir string) error {
	entries, err := w.fsys.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := w.fsys.Join(dir, e.Name())
		switch {
		case e.IsDir():
			if w.exclude.Match(filepath.ToSlash(p) + "/") {
				continue
			}
			if err := w.enter(p, p); err != nil {
				return err
			}
		case e.Mode()&os.ModeSymlink != 0:
			target, err := w.fsys.Readlink(p)
			if err != nil {
				continue
			}
			if !strings.HasPrefix(target, "/") {
				target = w.fsys.Join(dir, target)
			}
			fi, err := w.fsys.Stat(p)
			if err != nil {
				continue
			}
			if fi.IsDir() {
				if w.exclude.Match(filepath.ToSlash(p) + "/") {
					continue
				}
				if err := w.enter(p, target); err != nil {
					return err
				}
			} else if err := w.visitFile(p, fi); err != nil {
				return err
			}
		case e.Mode().IsRegular():
			if err := w.visitFile(p, e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *treeWalker) enter(dir, resolved string) error {
	key := filepath.ToSlash(resolved)
	if w.visited[key] {
		return nil
	}
	w.visited[key] = true
	return w.walkDir(dir)
}

func (w *treeWalker) visitFile(p string, fi os.FileInfo) error {
	if w.exclude.Match(filepath.ToSlash(p)) {
		return nil
	}
	return w.fn(p, fi)
}

const sniffLen = 8000

// IsBinary reports whether the content looks like a binary file: a NUL byte
// anywhere in the first 8000 bytes.
func IsBinary(content []byte) bool {
	if len(content) > sniffLen {
		content = content[:sniffLen]
	}
	return bytes.IndexByte(content, 0) >= 0
}

// Pool runs fn for n items across a bounded set of workers. Each worker owns
// its private state; Pool only fans out indexes.
func Pool(workers, n int, fn func(worker, item int)) {
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	items := make(chan int)
	var wg sync.WaitGroup
	for wkr := 0; wkr < workers; wkr++ {
		wg.Add(1)
		go func(wkr int) {
			defer wg.Done()
			for i := range items {
				fn(wkr, i)
			}
		}(wkr)
	}
	for i := 0; i < n; i++ {
		items <- i
	}
	close(items)
	wg.Wait()
}
