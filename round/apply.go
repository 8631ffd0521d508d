package round

import "github.com/consensuslab/tmbft/tm"

// Apply advances state by input, returning the next state and at most one
// output, following the protocol table in spec.md §4.1. It is a pure
// function: no I/O, no clocks, no randomness.
func Apply(state State, input Input) (State, Output) {
	if state.Step == Commit {
		// A decided height accepts nothing further (spec.md §4.3's
		// "driver stops accepting inputs for height" applies one level up,
		// but the machine itself is equally inert once Commit is reached).
		return state, NoOutput{}
	}

	switch in := input.(type) {
	case NewRoundInput:
		return applyNewRound(state, in)

	case ProposalAndCommitCurrentInput:
		decided := in.Proposal.ValueID()
		next := state
		next.Step = Commit
		next.Decision = &decided
		return next, DecideOutput{Round: in.Proposal.Round, ValueID: decided}

	case TimeoutPrecommitInput:
		return state, NewRoundOutput{Round: state.Round + 1}

	case SkipRoundInput:
		if in.Round <= state.Round {
			return state, NoOutput{}
		}
		return state, NewRoundOutput{Round: in.Round}
	}

	switch state.Step {
	case Propose:
		return applyPropose(state, input)
	case Prevote:
		return applyPrevote(state, input)
	case Precommit:
		return applyPrecommit(state, input)
	default:
		return state, NoOutput{}
	}
}

func applyNewRound(state State, in NewRoundInput) (State, Output) {
	next := state
	next.Round = in.Round
	next.Step = Propose
	next.timeoutPrevoteScheduled = false
	next.timeoutPrecommitScheduled = false

	if !in.IsProposer {
		return next, ScheduleTimeoutOutput{Kind: TimeoutPropose}
	}
	return next, ProposeOutput{Value: in.ValueToPropose}
}

func applyPropose(state State, input Input) (State, Output) {
	switch in := input.(type) {
	case ProposalInput:
		next := state
		next.Step = Prevote
		if in.Validity == tm.Valid && (state.Locked == nil || state.Locked.ValueID == in.Proposal.ValueID()) {
			return next, VoteOutput{Type: tm.Prevote, ValueID: in.Proposal.ValueID()}
		}
		return next, VoteOutput{Type: tm.Prevote, ValueID: tm.NilValueID}

	case ProposalAndPolkaPreviousInput:
		next := state
		next.Step = Prevote
		allowed := in.Validity == tm.Valid &&
			(state.Locked == nil || state.Locked.Round <= in.Proposal.ValidRound || state.Locked.ValueID == in.Proposal.ValueID())
		if allowed {
			return next, VoteOutput{Type: tm.Prevote, ValueID: in.Proposal.ValueID()}
		}
		return next, VoteOutput{Type: tm.Prevote, ValueID: tm.NilValueID}

	case TimeoutProposeInput:
		next := state
		next.Step = Prevote
		return next, VoteOutput{Type: tm.Prevote, ValueID: tm.NilValueID}

	default:
		return state, NoOutput{}
	}
}

func applyPrevote(state State, input Input) (State, Output) {
	switch in := input.(type) {
	case ProposalAndPolkaCurrentInput:
		valueID := in.Proposal.ValueID()
		next := state
		next.Valid = &LockOrValid{Round: state.Round, ValueID: valueID}
		next.Locked = &LockOrValid{Round: state.Round, ValueID: valueID}
		next.Step = Precommit
		return next, VoteOutput{Type: tm.Precommit, ValueID: valueID}

	case PolkaNilInput:
		next := state
		next.Step = Precommit
		return next, VoteOutput{Type: tm.Precommit, ValueID: tm.NilValueID}

	case PolkaAnyInput:
		if state.timeoutPrevoteScheduled {
			return state, NoOutput{}
		}
		next := state
		next.timeoutPrevoteScheduled = true
		return next, ScheduleTimeoutOutput{Kind: TimeoutPrevote}

	case PrecommitAnyInput:
		return applyPrecommitAny(state)

	case TimeoutPrevoteInput:
		next := state
		next.Step = Precommit
		return next, VoteOutput{Type: tm.Precommit, ValueID: tm.NilValueID}

	default:
		return state, NoOutput{}
	}
}

func applyPrecommit(state State, input Input) (State, Output) {
	switch in := input.(type) {
	case ProposalAndPolkaCurrentInput:
		valueID := in.Proposal.ValueID()
		if state.Valid != nil && state.Valid.Round >= state.Round {
			return state, NoOutput{}
		}
		next := state
		next.Valid = &LockOrValid{Round: state.Round, ValueID: valueID}
		return next, NoOutput{}

	case PrecommitAnyInput:
		return applyPrecommitAny(state)

	default:
		return state, NoOutput{}
	}
}

// applyPrecommitAny implements the "Prevote/Precommit | PrecommitAny (first
// time) | schedule TimeoutPrecommit | unchanged" row, shared by both steps.
func applyPrecommitAny(state State) (State, Output) {
	if state.timeoutPrecommitScheduled {
		return state, NoOutput{}
	}
	next := state
	next.timeoutPrecommitScheduled = true
	return next, ScheduleTimeoutOutput{Kind: TimeoutPrecommit}
}
