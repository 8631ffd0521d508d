// Package votekeeper accumulates weighted prevotes and precommits for a
// single height, emitting threshold-crossing events exactly once per
// threshold per (round, kind). See spec.md §4.2.
//
// Grounded on the equivocation-rejection/one-log-per-round discipline in
// proc/proc.go's insertPrevote/insertPrecommit, generalized from unweighted
// per-validator counting to weighted tallies, and on the "first time a
// threshold crossed" bookkeeping in muirglacier-id's process/message.go
// Inbox.Insert.
package votekeeper

import (
	"fmt"

	"github.com/consensuslab/tmbft/tm"
)

// EventKind enumerates the threshold-crossing events the Keeper can emit.
type EventKind uint8

// Enumerate the EventKinds (GLOSSARY).
const (
	// NoEvent means the vote was accepted but crossed no new threshold.
	NoEvent EventKind = iota
	// PolkaValue means >= quorum power prevoted the same value in the round.
	PolkaValue
	// PolkaNil means >= quorum power prevoted nil in the round.
	PolkaNil
	// PolkaAny means >= quorum prevote power, over any mix of values.
	PolkaAny
	// CommitValue means >= quorum precommits for the same value.
	CommitValue
	// PrecommitAny means >= quorum precommit power over any values.
	PrecommitAny
	// SkipRound means honest-threshold weight was observed voting in a round
	// strictly higher than the round the driver is currently in.
	SkipRound
)

// String implements fmt.Stringer.
func (k EventKind) String() string {
	switch k {
	case NoEvent:
		return "none"
	case PolkaValue:
		return "polka_value"
	case PolkaNil:
		return "polka_nil"
	case PolkaAny:
		return "polka_any"
	case CommitValue:
		return "commit_value"
	case PrecommitAny:
		return "precommit_any"
	case SkipRound:
		return "skip_round"
	default:
		return "unknown"
	}
}

// Event is the (at most one) threshold-crossing event produced by ApplyVote.
type Event struct {
	Kind    EventKind
	Round   tm.Round
	ValueID tm.ValueID
}

// None is the zero Event, meaning "no threshold crossed".
var None = Event{Kind: NoEvent}

// roundTally holds the per-(round, kind) bookkeeping.
type roundTally struct {
	weightByValue map[tm.ValueID]uint64
	voted         map[tm.Address]tm.ValueID
	total         uint64
}

func newRoundTally() *roundTally {
	return &roundTally{
		weightByValue: map[tm.ValueID]uint64{},
		voted:         map[tm.Address]tm.ValueID{},
	}
}

// thresholdKey identifies a one-shot threshold event for the "fired at most
// once" bookkeeping (spec.md §8 "Threshold monotonicity").
type thresholdKey struct {
	round   tm.Round
	kind    EventKind
	valueID tm.ValueID
}

// Keeper accumulates weighted votes for a single height. It is recreated at
// each new height (spec.md §3 "Lifecycles").
type Keeper struct {
	params tm.ThresholdParams

	prevotes   map[tm.Round]*roundTally
	precommits map[tm.Round]*roundTally

	// skipVoters tracks, per round, the distinct voters observed (any kind),
	// used to evaluate the honest threshold for SkipRound independently of
	// the quorum tallies above.
	skipVoters map[tm.Round]map[tm.Address]uint64
	skipTotal  map[tm.Round]uint64

	fired map[thresholdKey]struct{}

	totalPower uint64
}

// NewKeeper returns an empty Keeper for one height, using params for its
// quorum/honest thresholds.
func NewKeeper(params tm.ThresholdParams) *Keeper {
	return &Keeper{
		params:     params,
		prevotes:   map[tm.Round]*roundTally{},
		precommits: map[tm.Round]*roundTally{},
		skipVoters: map[tm.Round]map[tm.Address]uint64{},
		skipTotal:  map[tm.Round]uint64{},
		fired:      map[thresholdKey]struct{}{},
	}
}

func (k *Keeper) tallyFor(vote tm.Vote) map[tm.Round]*roundTally {
	switch vote.Type {
	case tm.Prevote:
		return k.prevotes
	case tm.Precommit:
		return k.precommits
	default:
		panic(fmt.Errorf("invariant violation: unexpected vote type=%v", vote.Type))
	}
}

// ApplyVote accumulates weight for vote and evaluates the thresholds in
// priority order; the first one met is returned if it has not fired before,
// otherwise None (spec.md §4.2). Duplicate votes from the same (voter,
// round, kind) are dropped, matching proc.go's equivocation handling: the first vote wins,
// the offending resend is rejected as InvalidInput and the tallies are left
// untouched (spec.md §8 "Applying a duplicate vote leaves the keeper
// byte-identical").
func (k *Keeper) ApplyVote(vote tm.Vote, power uint64, currentRound tm.Round) (Event, error) {
	if power == 0 {
		return None, tm.NewInvalidInputError("vote from %v has zero voting power", vote.VoterAddr)
	}

	tallies := k.tallyFor(vote)
	rt, ok := tallies[vote.Round]
	if !ok {
		rt = newRoundTally()
		tallies[vote.Round] = rt
	}

	if existing, voted := rt.voted[vote.VoterAddr]; voted {
		if existing != vote.ValueID {
			return None, tm.NewInvalidInputError(
				"equivocation: voter %v already voted %v at (round=%v, kind=%v), got %v",
				vote.VoterAddr, existing, vote.Round, vote.Type, vote.ValueID)
		}
		// Identical resend: also a duplicate, rejected but not reported as
		// equivocation.
		return None, tm.NewInvalidInputError(
			"duplicate vote from %v at (round=%v, kind=%v)", vote.VoterAddr, vote.Round, vote.Type)
	}

	rt.voted[vote.VoterAddr] = vote.ValueID
	rt.weightByValue[vote.ValueID] += power
	rt.total += power

	k.recordSkipVoter(vote, power)

	event := k.evaluateThreshold(vote.Type, vote.Round, rt)
	if event.Kind != NoEvent {
		return event, nil
	}
	// Only checked once no quorum/liveness event fired on this vote, and
	// only marked fired once it is actually the event being returned —
	// otherwise a vote that happens to cross both thresholds at once would
	// burn the skip-round threshold's one-shot flag on an event nobody ever
	// receives, and the round could never be skipped to even once every
	// competing quorum/liveness event for it has already fired on earlier
	// votes (spec.md §4.2 calls the two checks orthogonal).
	if skip := k.evaluateSkipRound(vote.Round, currentRound); skip.Kind != NoEvent {
		k.markFired(thresholdKey{round: skip.Round, kind: SkipRound})
		return skip, nil
	}
	return None, nil
}

func (k *Keeper) recordSkipVoter(vote tm.Vote, power uint64) {
	voters, ok := k.skipVoters[vote.Round]
	if !ok {
		voters = map[tm.Address]uint64{}
		k.skipVoters[vote.Round] = voters
	}
	if _, already := voters[vote.VoterAddr]; already {
		return
	}
	voters[vote.VoterAddr] = power
	k.skipTotal[vote.Round] += power
}

// evaluateSkipRound reports whether the honest threshold for voteRound is
// met, without marking it fired — the caller only commits the firing once
// it knows this Event is the one actually being returned from ApplyVote.
func (k *Keeper) evaluateSkipRound(voteRound, currentRound tm.Round) Event {
	if voteRound <= currentRound {
		return None
	}
	total := k.skipTotal[voteRound]
	if !k.params.Honest.IsMet(total, k.totalKnownPower()) {
		return None
	}
	if k.hasFired(thresholdKey{round: voteRound, kind: SkipRound}) {
		return None
	}
	return Event{Kind: SkipRound, Round: voteRound}
}

// totalKnownPower returns the total voting power recorded by SetTotalPower,
// used as the denominator for both the quorum and the honest thresholds.
// The driver seeds it with the validator set's total power when the height
// starts.
func (k *Keeper) totalKnownPower() uint64 {
	return k.totalPower
}

func (k *Keeper) evaluateThreshold(kind tm.VoteType, round tm.Round, rt *roundTally) Event {
	total := k.totalKnownPower()
	switch kind {
	case tm.Prevote:
		for valueID, weight := range rt.weightByValue {
			if valueID == tm.NilValueID {
				continue
			}
			if k.params.Quorum.IsMet(weight, total) {
				return k.fireOnce(round, PolkaValue, valueID)
			}
		}
		if nilWeight := rt.weightByValue[tm.NilValueID]; k.params.Quorum.IsMet(nilWeight, total) {
			return k.fireOnce(round, PolkaNil, tm.NilValueID)
		}
		if k.params.Quorum.IsMet(rt.total, total) {
			return k.fireOnce(round, PolkaAny, tm.NilValueID)
		}
		return None

	case tm.Precommit:
		for valueID, weight := range rt.weightByValue {
			if valueID == tm.NilValueID {
				continue
			}
			if k.params.Quorum.IsMet(weight, total) {
				return k.fireOnce(round, CommitValue, valueID)
			}
		}
		if k.params.Quorum.IsMet(rt.total, total) {
			return k.fireOnce(round, PrecommitAny, tm.NilValueID)
		}
		return None

	default:
		panic(fmt.Errorf("invariant violation: unexpected vote type=%v", kind))
	}
}

func (k *Keeper) fireOnce(round tm.Round, kind EventKind, valueID tm.ValueID) Event {
	key := thresholdKey{round: round, kind: kind, valueID: valueID}
	if k.hasFired(key) {
		return None
	}
	k.markFired(key)
	return Event{Kind: kind, Round: round, ValueID: valueID}
}

func (k *Keeper) hasFired(key thresholdKey) bool {
	_, ok := k.fired[key]
	return ok
}

func (k *Keeper) markFired(key thresholdKey) {
	k.fired[key] = struct{}{}
}

// SetTotalPower records the validator set's total voting power for this
// height; it is called once, before any vote is applied.
func (k *Keeper) SetTotalPower(total uint64) {
	k.totalPower = total
}
