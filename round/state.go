package round

import "github.com/consensuslab/tmbft/tm"

// LockOrValid names the (round, value) pair recorded by the `locked` or
// `valid` fields of a RoundState (spec.md §3 "RoundState").
type LockOrValid struct {
	Round   tm.Round
	ValueID tm.ValueID
}

// State is the round state machine's state for one height. It is carried
// across rounds within a height: Locked and Valid persist across a
// NewRound transition, only Round/Step and the per-round scheduling flags
// reset (spec.md §4.1 "Tie-breaks & edge cases").
type State struct {
	Height tm.Height
	Round  tm.Round
	Step   Step

	// Locked is set the moment the machine precommits a non-nil value; it
	// is never cleared by a nil precommit (spec.md §4.1).
	Locked *LockOrValid
	// Valid is updated monotonically: a polka at a higher round overwrites
	// it, an equal-round polka is idempotent (spec.md §4.1).
	Valid *LockOrValid

	// Decision is set once ProposalAndCommitCurrent fires; Height is done
	// once this is non-nil.
	Decision *tm.ValueID

	// timeoutPrevoteScheduled/timeoutPrecommitScheduled implement the
	// "(first time)" dedup the protocol table calls for on PolkaAny and
	// PrecommitAny; they reset on every NewRound transition.
	timeoutPrevoteScheduled   bool
	timeoutPrecommitScheduled bool
}

// NewState returns the Unstarted state a height begins in.
func NewState(height tm.Height) State {
	return State{Height: height, Round: tm.NilRound, Step: Unstarted}
}

// Done reports whether this height has reached a decision.
func (s State) Done() bool {
	return s.Decision != nil
}
