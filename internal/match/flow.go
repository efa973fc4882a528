// internal/match/flow.go
package match

import "errors"

// Prompt names the modal the scouting UI owes the user right now. At most
// one prompt is active at a time.
type Prompt string

const (
	PromptNone          Prompt = "NONE"
	PromptStarters      Prompt = "STARTERS"
	PromptReception     Prompt = "RECEPTION"
	PromptSubstitution  Prompt = "SUBSTITUTION"
	PromptSetSummary    Prompt = "SET_SUMMARY"
	PromptMatchFinished Prompt = "MATCH_FINISHED"
)

var (
	// ErrPromptSuppressed is returned when a user-invoked prompt cannot be
	// opened because a higher-priority prompt is active.
	ErrPromptSuppressed = errors.New("a higher-priority prompt is active")

	// ErrNoConvocation is returned when live scoring is entered for a match
	// with no called-up players, no lineup and an empty log.
	ErrNoConvocation = errors.New("match has no convocation")
)

// Flow decides which prompt is owed to the user after each projection
// change. Transition rules run in strict priority order: set summary beats
// starters beats reception; the substitution prompt is only ever opened by
// the user; the match-finished prompt surfaces once the summary of the
// final set has been acknowledged.
type Flow struct {
	summaryAcked  map[int]bool
	finishedAcked bool
	active        Prompt
}

func NewFlow() *Flow {
	return &Flow{
		summaryAcked: make(map[int]bool),
		active:       PromptNone,
	}
}

// Active returns the prompt currently owed to the user.
func (f *Flow) Active() Prompt {
	return f.active
}

// Evaluate re-applies the transition rules after the projection moved from
// prev to next and returns the active prompt.
func (f *Flow) Evaluate(prev, next State) Prompt {
	switch {
	case next.IsSetFinished && !f.summaryAcked[next.CurrentSet]:
		f.active = PromptSetSummary

	case !next.HasLineup && !next.IsSetFinished && !next.IsMatchFinished:
		// Covers both a fresh set and a reload mid-match before the lineup
		// for the current set is known.
		f.active = PromptStarters

	case next.ServingSide == SideOpponent && !next.IsSetFinished &&
		next.HasLineup && !next.ReceptionEvaluated:
		// A new rally while receiving clears and re-raises the prompt; only
		// an explicit reception grade satisfies it.
		f.active = PromptReception

	case next.IsMatchFinished && !f.finishedAcked:
		f.active = PromptMatchFinished

	default:
		if f.active != PromptSubstitution {
			f.active = PromptNone
		}
	}
	return f.active
}

// RequestSubstitution opens the substitution prompt on user request. It is
// never auto-triggered and cannot displace the summary or starters prompts.
func (f *Flow) RequestSubstitution() error {
	if f.active == PromptSetSummary || f.active == PromptStarters {
		return ErrPromptSuppressed
	}
	f.active = PromptSubstitution
	return nil
}

// DismissSubstitution closes a user-opened substitution prompt.
func (f *Flow) DismissSubstitution() {
	if f.active == PromptSubstitution {
		f.active = PromptNone
	}
}

// AckMatchFinished dismisses the final prompt.
func (f *Flow) AckMatchFinished() {
	f.finishedAcked = true
	if f.active == PromptMatchFinished {
		f.active = PromptNone
	}
}

// AckSummary records that the user acknowledged the summary for a set.
func (f *Flow) AckSummary(setNumber int) {
	f.summaryAcked[setNumber] = true
}

// SummaryAcked reports whether the summary for a set was acknowledged.
func (f *Flow) SummaryAcked(setNumber int) bool {
	return f.summaryAcked[setNumber]
}

// CanEnterScoring is the entry guard for the live scouting view. A match
// with no called-up players, no recorded lineup and an empty log cannot be
// scored; a non-empty log always admits re-entry so an in-progress match is
// never blocked by a roster that has not loaded yet.
func CanEnterScoring(roster []Player, lineup map[int]int64, events []Event) bool {
	if len(events) > 0 {
		return true
	}
	return len(roster) > 0 || len(lineup) > 0
}
