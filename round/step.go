// Package round implements the per-height round state machine: a pure
// function from (State, Input) to (State, Output) with no I/O of its own
// (spec.md §4.1). It never reads or writes votes directly — the driver
// package joins vote-keeper threshold events with known proposals before
// calling Apply.
//
// Grounded on the pure Transition/Action machine in state/machine.go
// (interface-typed sum types dispatched with a type switch) and on the
// try*/StartRound cascade in proc/proc.go, generalized to the
// locked/valid-value discipline and first-class Decide/NewRound outputs
// spec.md §4.1 calls for.
package round

import "fmt"

// Step is the round's position within the propose/prevote/precommit/commit
// cycle (spec.md §4.1's "Current step" column).
type Step uint8

// Enumerate the Steps.
const (
	Unstarted Step = iota + 1
	Propose
	Prevote
	Precommit
	Commit
)

// String implements fmt.Stringer.
func (s Step) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Propose:
		return "propose"
	case Prevote:
		return "prevote"
	case Precommit:
		return "precommit"
	case Commit:
		return "commit"
	default:
		panic(fmt.Errorf("invariant violation: unexpected step=%d", uint8(s)))
	}
}
