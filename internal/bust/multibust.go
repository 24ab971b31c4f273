package bust

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Candidate is one concrete path produced by multibust expansion. Value is
// the substitution that produced it, empty for a pass-through candidate.
type Candidate struct {
	Path  string
	Value string
}

// templateRe recognizes common template-variable spellings so that a
// reference carrying an unconfigured placeholder is reported instead of
// silently treated as a literal path.
var templateRe = regexp.MustCompile(`\{\{[^}]*\}\}|\{%[^}]*%\}|\$\{[^}]*\}`)

// Expand produces the candidate paths implied by the multibust rules: one
// per substitution value when the path contains a configured placeholder,
// otherwise the path itself. A path that contains template syntax with no
// configured rule fails expansion; unconfigured placeholders are never
// guessed at.
func Expand(p string, rules map[string][]string) ([]Candidate, error) {
	placeholders := make([]string, 0, len(rules))
	for ph := range rules {
		placeholders = append(placeholders, ph)
	}
	sort.Strings(placeholders)

	for _, ph := range placeholders {
		if !strings.Contains(p, ph) {
			continue
		}
		values := rules[ph]
		out := make([]Candidate, 0, len(values))
		for _, v := range values {
			out = append(out, Candidate{Path: strings.ReplaceAll(p, ph, v), Value: v})
		}
		return out, nil
	}

	if tmpl := templateRe.FindString(p); tmpl != "" {
		return nil, fmt.Errorf("unconfigured multibust placeholder %q", tmpl)
	}
	return []Candidate{{Path: p}}, nil
}
