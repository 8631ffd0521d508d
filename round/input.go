package round

import "github.com/consensuslab/tmbft/tm"

// Input is the sum type of everything the round state machine can react to
// (spec.md §4.1 "Inputs"). Concrete types implement it with an unexported
// marker method, following the Transition interface in state/machine.go.
type Input interface {
	isInput()
}

// NewRoundInput signals entry into Round, supplied by the driver on height
// start and after every NewRound output.
type NewRoundInput struct {
	Round          tm.Round
	IsProposer     bool
	ValueToPropose tm.Value
}

func (NewRoundInput) isInput() {}

// ProposalInput delivers a complete proposal with its application-level
// validity verdict.
type ProposalInput struct {
	Proposal tm.Proposal
	Validity tm.Validity
}

func (ProposalInput) isInput() {}

// ProposalAndPolkaPreviousInput delivers a proposal whose ValidRound has
// achieved a polka at a round strictly before the current one.
type ProposalAndPolkaPreviousInput struct {
	Proposal tm.Proposal
	Validity tm.Validity
}

func (ProposalAndPolkaPreviousInput) isInput() {}

// ProposalAndPolkaCurrentInput delivers a proposal that has achieved a
// polka in the current round.
type ProposalAndPolkaCurrentInput struct {
	Proposal tm.Proposal
}

func (ProposalAndPolkaCurrentInput) isInput() {}

// ProposalAndCommitCurrentInput delivers a proposal with >= quorum
// precommits in its own round, which need not be the machine's current
// round: the decision trigger.
type ProposalAndCommitCurrentInput struct {
	Proposal tm.Proposal
}

func (ProposalAndCommitCurrentInput) isInput() {}

// PolkaAnyInput reports >= quorum prevote power over any mix of values.
type PolkaAnyInput struct{}

func (PolkaAnyInput) isInput() {}

// PolkaNilInput reports >= quorum power prevoted nil.
type PolkaNilInput struct{}

func (PolkaNilInput) isInput() {}

// PrecommitAnyInput reports >= quorum precommit power over any values.
type PrecommitAnyInput struct{}

func (PrecommitAnyInput) isInput() {}

// SkipRoundInput reports honest-threshold weight observed voting at Round,
// which is strictly greater than the machine's current round.
type SkipRoundInput struct {
	Round tm.Round
}

func (SkipRoundInput) isInput() {}

// TimeoutProposeInput reports the propose timeout elapsed.
type TimeoutProposeInput struct{}

func (TimeoutProposeInput) isInput() {}

// TimeoutPrevoteInput reports the prevote timeout elapsed.
type TimeoutPrevoteInput struct{}

func (TimeoutPrevoteInput) isInput() {}

// TimeoutPrecommitInput reports the precommit timeout elapsed.
type TimeoutPrecommitInput struct{}

func (TimeoutPrecommitInput) isInput() {}
