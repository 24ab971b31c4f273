package bust

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/rebust/rebust/internal/index"
)

// Kind classifies the outcome of resolving one reference.
type Kind int

const (
	// KindUnmatched means no resource corresponds to the reference.
	KindUnmatched Kind = iota
	// KindSingle is the common case: exactly one resource.
	KindSingle
	// KindMulti is a multibust fan-out over several resources.
	KindMulti
	// KindAmbiguous means conflicting resources match a non-multibust
	// reference; never auto-edited, always reported.
	KindAmbiguous
)

func (k Kind) String() string {
	switch k {
	case KindUnmatched:
		return "unmatched"
	case KindSingle:
		return "single"
	case KindMulti:
		return "multi"
	case KindAmbiguous:
		return "ambiguous"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Variant is one resolved multibust substitution.
type Variant struct {
	Value    string
	Resource *index.Resource
}

// Match is the resolution of one reference against the index. Produced
// fresh per reference per run, never mutated afterwards.
type Match struct {
	Kind      Kind
	Resource  *index.Resource   // KindSingle
	Variants  []Variant         // KindMulti, substitution order
	Conflicts []*index.Resource // KindAmbiguous
	Missing   []string          // multibust values that resolved to nothing
	Reason    string
}

// Resources returns the matched resources regardless of kind.
func (m *Match) Resources() []*index.Resource {
	switch m.Kind {
	case KindSingle:
		return []*index.Resource{m.Resource}
	case KindMulti:
		out := make([]*index.Resource, len(m.Variants))
		for i, v := range m.Variants {
			out[i] = v.Resource
		}
		return out
	}
	return nil
}

// Matcher resolves clean reference paths against the index.
type Matcher struct {
	ix    *index.Index
	rules map[string][]string
}

// NewMatcher builds a matcher over a fully built index.
func NewMatcher(ix *index.Index, rules map[string][]string) *Matcher {
	return &Matcher{ix: ix, rules: rules}
}

// lookup finds the resources a clean path denotes, trying an exact
// root-relative hit first and falling back to the longest trailing-segment
// match among files with the same name. Multiple returned resources mean the
// path resolves under more than one search root.
func (m *Matcher) lookup(clean string) []*index.Resource {
	norm := strings.TrimPrefix(path.Clean("/"+clean), "/")
	if norm == "" || norm == "." {
		return nil
	}
	if hits := m.ix.Lookup(norm); len(hits) > 0 {
		return hits
	}

	// Fall back to the longest trailing-segment overlap against the full
	// root-joined path, so "/static1/app.js" prefers the file under the
	// static1 root even when several roots carry an app.js.
	segs := strings.Split(norm, "/")
	best := 0
	var hits []*index.Resource
	for _, r := range m.ix.ByName(segs[len(segs)-1]) {
		n := trailingOverlap(segs, strings.Split(filepath.ToSlash(r.AbsPath), "/"))
		switch {
		case n > best:
			best, hits = n, []*index.Resource{r}
		case n == best && n > 0:
			hits = append(hits, r)
		}
	}
	return hits
}

func trailingOverlap(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[len(a)-1-n] == b[len(b)-1-n] {
		n++
	}
	return n
}

// conflicting reports whether the hits disagree on content. Identical bytes
// under several roots are not a conflict: whichever root serves the file,
// the token is the same.
func conflicting(hits []*index.Resource) bool {
	for _, r := range hits[1:] {
		if !bytes.Equal(r.Digest, hits[0].Digest) {
			return true
		}
	}
	return false
}

// Resolve expands and resolves one clean reference path.
func (m *Matcher) Resolve(clean string) Match {
	cands, err := Expand(clean, m.rules)
	if err != nil {
		return Match{Kind: KindUnmatched, Reason: err.Error()}
	}

	if len(cands) == 1 && cands[0].Value == "" {
		hits := m.lookup(cands[0].Path)
		switch {
		case len(hits) == 0:
			return Match{Kind: KindUnmatched, Reason: "no static resource found"}
		case len(hits) > 1 && conflicting(hits):
			return Match{
				Kind:      KindAmbiguous,
				Conflicts: hits,
				Reason:    fmt.Sprintf("%q resolves under %d roots with differing content", clean, len(hits)),
			}
		default:
			return Match{Kind: KindSingle, Resource: hits[0]}
		}
	}

	out := Match{Kind: KindMulti}
	for _, c := range cands {
		hits := m.lookup(c.Path)
		if len(hits) == 0 {
			out.Missing = append(out.Missing, c.Value)
			continue
		}
		if len(hits) > 1 && conflicting(hits) {
			return Match{
				Kind:      KindAmbiguous,
				Conflicts: hits,
				Reason:    fmt.Sprintf("variant %q resolves under %d roots with differing content", c.Path, len(hits)),
			}
		}
		out.Variants = append(out.Variants, Variant{Value: c.Value, Resource: hits[0]})
	}
	if len(out.Variants) == 0 {
		return Match{Kind: KindUnmatched, Reason: "no multibust variant resolved", Missing: out.Missing}
	}
	return out
}
