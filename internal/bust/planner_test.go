package bust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebust/rebust/internal/index"
	"github.com/rebust/rebust/internal/scan"
)

func testPlanner(mode Mode) *Planner {
	dig, _ := NewDigester("crc32")
	return &Planner{
		Mode:       mode,
		Delim:      "_cb_",
		InsertForm: scan.FormQuery,
		HashLength: 8,
		Digest:     dig,
	}
}

func singleMatch(t *testing.T) (Match, string) {
	t.Helper()
	dig, _ := NewDigester("crc32")
	r := &index.Resource{
		RelPath: "app.js",
		ModTime: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Digest:  dig([]byte("content")),
	}
	m := Match{Kind: KindSingle, Resource: r}
	return m, Token(r, 8)
}

func plainRef() scan.Reference {
	return scan.Reference{File: "f.html", Start: 10, End: 16, Raw: "app.js", Clean: "app.js", Path: "app.js"}
}

func markedRef(form scan.MarkerForm, token string) scan.Reference {
	ref := plainRef()
	switch form {
	case scan.FormQuery:
		ref.Raw = "app.js?_cb_=" + token
	case scan.FormFilename:
		ref.Raw = "app_cb_" + token + ".js"
	}
	ref.End = ref.Start + len(ref.Raw)
	ref.Mark = &scan.Marker{Form: form, Token: token}
	return ref
}

func TestPlan_ScanModeNeverEdits(t *testing.T) {
	p := testPlanner(ModeScan)
	m, tok := singleMatch(t)

	d := p.Plan(plainRef(), m)
	assert.Equal(t, StatusUnmarked, d.Status)
	assert.Equal(t, ActionNone, d.Action)

	d = p.Plan(markedRef(scan.FormQuery, "stale000"), m)
	assert.Equal(t, StatusStale, d.Status)
	assert.Equal(t, ActionNone, d.Action)

	d = p.Plan(markedRef(scan.FormQuery, tok), m)
	assert.Equal(t, StatusCurrent, d.Status)
	assert.Equal(t, ActionNone, d.Action)
}

func TestPlan_RewriteInsertsMissingMarker(t *testing.T) {
	p := testPlanner(ModeRewrite)
	m, tok := singleMatch(t)

	d := p.Plan(plainRef(), m)
	assert.Equal(t, StatusUnmarked, d.Status)
	assert.Equal(t, ActionInsert, d.Action)
	assert.Equal(t, "app.js?_cb_="+tok, d.Replacement)
}

func TestPlan_RewriteUpdatesStaleMarker(t *testing.T) {
	p := testPlanner(ModeRewrite)
	m, tok := singleMatch(t)

	d := p.Plan(markedRef(scan.FormQuery, "00000000"), m)
	assert.Equal(t, StatusStale, d.Status)
	assert.Equal(t, ActionUpdate, d.Action)
	assert.Equal(t, "app.js?_cb_="+tok, d.Replacement)
	assert.Equal(t, "00000000", d.OldToken)
	assert.Equal(t, tok, d.NewToken)
}

func TestPlan_CurrentMarkerLeftAlone(t *testing.T) {
	m, tok := singleMatch(t)
	for _, mode := range []Mode{ModeScan, ModeRewrite, ModeUpdate} {
		d := testPlanner(mode).Plan(markedRef(scan.FormQuery, tok), m)
		assert.Equal(t, StatusCurrent, d.Status, mode.String())
		assert.Equal(t, ActionNone, d.Action, mode.String())
	}
}

func TestPlan_UpdateNeverInserts(t *testing.T) {
	p := testPlanner(ModeUpdate)
	m, _ := singleMatch(t)

	d := p.Plan(plainRef(), m)
	assert.Equal(t, StatusUnmarked, d.Status)
	assert.Equal(t, ActionNone, d.Action)
}

func TestPlan_UpdateRefreshesExistingMarker(t *testing.T) {
	p := testPlanner(ModeUpdate)
	m, tok := singleMatch(t)

	d := p.Plan(markedRef(scan.FormQuery, "deadbeef"), m)
	assert.Equal(t, StatusStale, d.Status)
	assert.Equal(t, ActionUpdate, d.Action)
	assert.Equal(t, "app.js?_cb_="+tok, d.Replacement)
}

func TestPlan_UpdateKeepsExistingForm(t *testing.T) {
	// insert form is query, but the existing marker is filename-embedded;
	// update must rewrite the form that is already there
	p := testPlanner(ModeUpdate)
	m, tok := singleMatch(t)

	d := p.Plan(markedRef(scan.FormFilename, "deadbeef"), m)
	require.Equal(t, ActionUpdate, d.Action)
	assert.Equal(t, "app_cb_"+tok+".js", d.Replacement)
}

func TestPlan_ForceFormConvertsMarker(t *testing.T) {
	p := testPlanner(ModeUpdate)
	fn := scan.FormFilename
	p.ForceForm = &fn
	m, tok := singleMatch(t)

	d := p.Plan(markedRef(scan.FormQuery, tok), m)
	assert.Equal(t, ActionUpdate, d.Action, "same token but wrong form must still rewrite")
	assert.Equal(t, "app_cb_"+tok+".js", d.Replacement)
}

func TestPlan_ForceRewritesCurrentMarker(t *testing.T) {
	p := testPlanner(ModeUpdate)
	p.Force = true
	m, tok := singleMatch(t)

	d := p.Plan(markedRef(scan.FormQuery, tok), m)
	assert.Equal(t, StatusCurrent, d.Status)
	assert.Equal(t, ActionUpdate, d.Action)
}

func TestPlan_UnmatchedNeverEdited(t *testing.T) {
	unmatched := Match{Kind: KindUnmatched, Reason: "no static resource found"}
	for _, mode := range []Mode{ModeScan, ModeRewrite, ModeUpdate} {
		d := testPlanner(mode).Plan(plainRef(), unmatched)
		assert.Equal(t, StatusUnmatched, d.Status, mode.String())
		assert.Equal(t, ActionNone, d.Action, mode.String())
		assert.Empty(t, d.Replacement)
	}
	// a marked reference whose resource disappeared is left unchanged
	d := testPlanner(ModeRewrite).Plan(markedRef(scan.FormQuery, "old00000"), unmatched)
	assert.Equal(t, StatusUnmatched, d.Status)
	assert.Equal(t, ActionNone, d.Action)
	assert.Equal(t, "old00000", d.OldToken)
}

func TestPlan_AmbiguousNeverEdited(t *testing.T) {
	ambiguous := Match{Kind: KindAmbiguous, Reason: "resolves under 2 roots"}
	for _, mode := range []Mode{ModeScan, ModeRewrite, ModeUpdate} {
		d := testPlanner(mode).Plan(plainRef(), ambiguous)
		assert.Equal(t, StatusAmbiguous, d.Status, mode.String())
		assert.Equal(t, ActionNone, d.Action, mode.String())
	}
}

func TestPlan_MultiMatchUsesCombinedToken(t *testing.T) {
	dig, _ := NewDigester("crc32")
	mtime := time.Unix(1700000000, 0)
	en := &index.Resource{RelPath: "i18n_en.png", ModTime: mtime, Digest: dig([]byte("en"))}
	de := &index.Resource{RelPath: "i18n_de.png", ModTime: mtime, Digest: dig([]byte("de"))}
	m := Match{Kind: KindMulti, Variants: []Variant{{Value: "en", Resource: en}, {Value: "de", Resource: de}}}

	ref := scan.Reference{File: "f.html", Raw: "i18n_{{lang}}.png", Clean: "i18n_{{lang}}.png", Path: "i18n_{{lang}}.png"}
	ref.End = len(ref.Raw)

	p := testPlanner(ModeRewrite)
	d := p.Plan(ref, m)
	require.Equal(t, ActionInsert, d.Action)
	assert.Equal(t, CombinedToken([]*index.Resource{en, de}, 8, dig), d.NewToken)
	assert.Equal(t, "i18n_{{lang}}.png?_cb_="+d.NewToken, d.Replacement)
}
