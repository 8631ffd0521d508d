package round

import "github.com/consensuslab/tmbft/tm"

// Output is the sum type the round state machine produces alongside its
// next State (spec.md §4.1 "Outputs"). At most one Output is produced per
// Apply call; NoOutput is the explicit "None".
type Output interface {
	isOutput()
}

// NoOutput means the input was accepted (or ignored) with nothing for the
// driver to do.
type NoOutput struct{}

func (NoOutput) isOutput() {}

// ProposeOutput asks the driver to broadcast a proposal for Value.
type ProposeOutput struct {
	Value tm.Value
}

func (ProposeOutput) isOutput() {}

// VoteOutput asks the driver to cast and broadcast a vote. ValueID is
// tm.NilValueID for a nil vote.
type VoteOutput struct {
	Type    tm.VoteType
	ValueID tm.ValueID
}

func (VoteOutput) isOutput() {}

// TimeoutKind names which round/height timeout to schedule. The first three
// are the round state machine's own outputs (spec.md §4.1); TimeoutCommit is
// scheduled by the driver's host after a DecideOutput, never by round.Apply
// itself, to delay starting the next height (spec.md §9 commit timeout).
type TimeoutKind uint8

// Enumerate the TimeoutKinds.
const (
	TimeoutPropose TimeoutKind = iota + 1
	TimeoutPrevote
	TimeoutPrecommit
	TimeoutCommit
)

// ScheduleTimeoutOutput asks the driver to arm a timer for Kind at the
// machine's current round.
type ScheduleTimeoutOutput struct {
	Kind TimeoutKind
}

func (ScheduleTimeoutOutput) isOutput() {}

// DecideOutput reports that Round decided ValueID; the driver stops
// accepting inputs for this height once it sees this.
type DecideOutput struct {
	Round   tm.Round
	ValueID tm.ValueID
}

func (DecideOutput) isOutput() {}

// NewRoundOutput asks the driver to advance to Round, re-entering Apply
// with a NewRoundInput for it.
type NewRoundOutput struct {
	Round tm.Round
}

func (NewRoundOutput) isOutput() {}
