package bust

import (
	"fmt"

	"github.com/rebust/rebust/internal/index"
	"github.com/rebust/rebust/internal/scan"
)

// Mode is the engine's operating mode.
type Mode int

const (
	// ModeScan reports every reference without planning edits.
	ModeScan Mode = iota
	// ModeRewrite inserts missing markers and refreshes stale ones.
	ModeRewrite
	// ModeUpdate refreshes existing markers only, never inserts.
	ModeUpdate
)

func (m Mode) String() string {
	switch m {
	case ModeScan:
		return "scan"
	case ModeRewrite:
		return "rewrite"
	case ModeUpdate:
		return "update"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Status is the per-reference outcome reported to the operator.
type Status int

const (
	// StatusUnmarked: matched, no marker present yet.
	StatusUnmarked Status = iota
	// StatusCurrent: marker present and token already correct.
	StatusCurrent
	// StatusStale: marker present but token (or form) out of date.
	StatusStale
	// StatusUnmatched: no resource found; left unedited in every mode.
	StatusUnmatched
	// StatusAmbiguous: conflicting resources; requires explicit
	// configuration, never auto-edited.
	StatusAmbiguous
)

func (s Status) String() string {
	switch s {
	case StatusUnmarked:
		return "unmarked"
	case StatusCurrent:
		return "current"
	case StatusStale:
		return "stale"
	case StatusUnmatched:
		return "unmatched"
	case StatusAmbiguous:
		return "ambiguous"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Action is what the planner wants done to the reference's span.
type Action int

const (
	ActionNone Action = iota
	ActionInsert
	ActionUpdate
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionInsert:
		return "insert"
	case ActionUpdate:
		return "update"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Planner turns (reference, match) pairs into decisions according to the
// operating mode. It never mixes marker forms on a single reference: an
// existing marker keeps its form unless ForceForm overrides it, and inserts
// use the configured form.
type Planner struct {
	Mode       Mode
	Delim      string
	InsertForm scan.MarkerForm
	ForceForm  *scan.MarkerForm // convert every rewritten marker to this form
	Force      bool             // rewrite markers even when current
	HashLength int
	Digest     index.Digester
}

// Decision is the planner's verdict for one reference.
type Decision struct {
	Ref         scan.Reference
	Match       Match
	Status      Status
	Action      Action
	OldToken    string
	NewToken    string
	Replacement string // full literal replacing the reference span
	Reason      string
}

func (p *Planner) token(m Match) string {
	if m.Kind == KindSingle {
		return Token(m.Resource, p.HashLength)
	}
	return CombinedToken(m.Resources(), p.HashLength, p.Digest)
}

// Plan applies the mode table to one reference.
func (p *Planner) Plan(ref scan.Reference, m Match) Decision {
	d := Decision{Ref: ref, Match: m}
	if ref.Mark != nil {
		d.OldToken = ref.Mark.Token
	}

	switch m.Kind {
	case KindAmbiguous:
		d.Status = StatusAmbiguous
		d.Reason = m.Reason
		return d
	case KindUnmatched:
		d.Status = StatusUnmatched
		d.Reason = m.Reason
		return d
	}

	d.NewToken = p.token(m)

	targetForm := p.InsertForm
	if ref.Mark != nil {
		targetForm = ref.Mark.Form
	}
	if p.ForceForm != nil {
		targetForm = *p.ForceForm
	}

	if ref.Mark == nil {
		d.Status = StatusUnmarked
		if p.Mode == ModeRewrite {
			d.Action = ActionInsert
			d.Replacement = ref.Rewritten(p.Delim, targetForm, d.NewToken)
		}
		return d
	}

	current := ref.Mark.Token == d.NewToken && ref.Mark.Form == targetForm
	if current && !p.Force {
		d.Status = StatusCurrent
		return d
	}

	d.Status = StatusStale
	if current {
		d.Status = StatusCurrent // forced rewrite of an already-correct marker
	}
	if p.Mode == ModeRewrite || p.Mode == ModeUpdate {
		d.Action = ActionUpdate
		d.Replacement = ref.Rewritten(p.Delim, targetForm, d.NewToken)
	}
	return d
}
