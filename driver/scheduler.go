package driver

import "github.com/consensuslab/tmbft/tm"

// Scheduler selects the proposer for a (height, round) pair. Any
// deterministic function every node computes identically is permitted
// (spec.md §4.3 "Proposer selection").
type Scheduler interface {
	Propose(validators tm.ValidatorSet, height tm.Height, round tm.Round) tm.Address
}

// RoundRobinScheduler implements the reference policy: round-robin over
// the canonical validator ordering, weighted only by position (not power).
//
// Grounded on replica/schedule.go's roundRobinScheduler, generalized from
// id.Signatories indexing to tm.ValidatorSet's canonical ordering.
type RoundRobinScheduler struct{}

// Propose implements Scheduler.
func (RoundRobinScheduler) Propose(validators tm.ValidatorSet, height tm.Height, round tm.Round) tm.Address {
	index := (int64(height) + int64(round)) % int64(validators.Len())
	if index < 0 {
		index += int64(validators.Len())
	}
	validator, ok := validators.GetByIndex(int(index))
	if !ok {
		panic("invariant violation: round-robin index out of range")
	}
	return validator.Address
}
