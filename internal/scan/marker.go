package scan

import (
	"fmt"
	"path"
	"strings"
)

// MarkerForm is the syntactic shape of a cache-bust marker.
type MarkerForm int

const (
	// FormQuery appends the token as a query parameter: app.js?_cb_=TOKEN.
	FormQuery MarkerForm = iota
	// FormFilename embeds the token before the extension: app_cb_TOKEN.js.
	FormFilename
)

func (f MarkerForm) String() string {
	switch f {
	case FormQuery:
		return "query"
	case FormFilename:
		return "filename"
	}
	return fmt.Sprintf("MarkerForm(%d)", int(f))
}

// ParseForm converts a configuration string to a MarkerForm.
func ParseForm(s string) (MarkerForm, error) {
	switch s {
	case "query":
		return FormQuery, nil
	case "filename":
		return FormFilename, nil
	}
	return 0, fmt.Errorf("unknown marker form %q", s)
}

// Marker is an existing cache-bust marker found on a reference.
type Marker struct {
	Form  MarkerForm
	Token string
}

// Reference is one occurrence of a resource URL literal in a scanned file.
// Start and End delimit Raw exactly as it sits in the file at scan time; if
// the file changes before patching, the patch must fail rather than write at
// a stale offset.
type Reference struct {
	File  string
	Start int
	End   int
	Line  int    // 1-based, for reporting
	Raw   string // the literal, marker included
	Clean string // the literal with any marker stripped
	Path  string // Clean without query string; the matching key
	Mark  *Marker
}

// Rewritten renders the literal with the given marker delimiter, form and
// token applied to the clean reference. The result replaces the Start..End
// span verbatim.
func (r *Reference) Rewritten(delim string, form MarkerForm, token string) string {
	switch form {
	case FormQuery:
		if strings.Contains(r.Clean, "?") {
			return r.Clean + "&" + delim + "=" + token
		}
		return r.Clean + "?" + delim + "=" + token
	case FormFilename:
		p, query := r.Clean, ""
		if i := strings.IndexByte(p, '?'); i >= 0 {
			p, query = p[:i], p[i:]
		}
		ext := path.Ext(p)
		return p[:len(p)-len(ext)] + delim + token + ext + query
	}
	return r.Raw
}
