package round_test

import (
	"github.com/renproject/id"

	"github.com/consensuslab/tmbft/round"
	"github.com/consensuslab/tmbft/tm"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func randomAddr() tm.Address {
	return id.NewPrivKey().Signatory()
}

var _ = Describe("Apply", func() {

	Context("when entering a round as the proposer", func() {
		It("should propose the supplied value and move to the propose step", func() {
			state := round.NewState(1)
			value := tm.Value("a block")

			next, out := round.Apply(state, round.NewRoundInput{Round: 0, IsProposer: true, ValueToPropose: value})

			Expect(next.Step).To(Equal(round.Propose))
			Expect(next.Round).To(Equal(tm.Round(0)))
			Expect(out).To(Equal(round.ProposeOutput{Value: value}))
		})
	})

	Context("when entering a round as a non-proposer", func() {
		It("should schedule the propose timeout", func() {
			state := round.NewState(1)
			next, out := round.Apply(state, round.NewRoundInput{Round: 0, IsProposer: false})

			Expect(next.Step).To(Equal(round.Propose))
			Expect(out).To(Equal(round.ScheduleTimeoutOutput{Kind: round.TimeoutPropose}))
		})
	})

	Context("when a valid proposal arrives unlocked", func() {
		It("should prevote for the proposed value and move to the prevote step", func() {
			state := round.NewState(1)
			state.Step = round.Propose
			proposal := tm.NewProposal(1, 0, tm.Value("a block"), randomAddr())

			next, out := round.Apply(state, round.ProposalInput{Proposal: proposal, Validity: tm.Valid})

			Expect(next.Step).To(Equal(round.Prevote))
			Expect(out).To(Equal(round.VoteOutput{Type: tm.Prevote, ValueID: proposal.ValueID()}))
		})
	})

	Context("when locked on a different value than the one proposed", func() {
		It("should prevote nil", func() {
			state := round.NewState(1)
			state.Step = round.Propose
			state.Locked = &round.LockOrValid{Round: 0, ValueID: tm.Value("locked").ID()}
			proposal := tm.NewProposal(1, 1, tm.Value("other"), randomAddr())

			next, out := round.Apply(state, round.ProposalInput{Proposal: proposal, Validity: tm.Valid})

			Expect(next.Step).To(Equal(round.Prevote))
			Expect(out).To(Equal(round.VoteOutput{Type: tm.Prevote, ValueID: tm.NilValueID}))
		})
	})

	Context("when an invalid proposal arrives", func() {
		It("should prevote nil", func() {
			state := round.NewState(1)
			state.Step = round.Propose
			proposal := tm.NewProposal(1, 0, tm.Value("a block"), randomAddr())

			next, out := round.Apply(state, round.ProposalInput{Proposal: proposal, Validity: tm.Invalid})

			Expect(next.Step).To(Equal(round.Prevote))
			Expect(out).To(Equal(round.VoteOutput{Type: tm.Prevote, ValueID: tm.NilValueID}))
		})
	})

	Context("when the propose timeout elapses", func() {
		It("should prevote nil and move to the prevote step", func() {
			state := round.NewState(1)
			state.Step = round.Propose

			next, out := round.Apply(state, round.TimeoutProposeInput{})

			Expect(next.Step).To(Equal(round.Prevote))
			Expect(out).To(Equal(round.VoteOutput{Type: tm.Prevote, ValueID: tm.NilValueID}))
		})
	})

	Context("when a polka for the current round's proposal arrives during prevote", func() {
		It("should lock and set valid on the value, precommit for it, and move to precommit", func() {
			state := round.NewState(1)
			state.Step = round.Prevote
			state.Round = 2
			proposal := tm.NewProposal(1, 2, tm.Value("a block"), randomAddr())

			next, out := round.Apply(state, round.ProposalAndPolkaCurrentInput{Proposal: proposal})

			Expect(next.Step).To(Equal(round.Precommit))
			Expect(next.Locked).To(Equal(&round.LockOrValid{Round: 2, ValueID: proposal.ValueID()}))
			Expect(next.Valid).To(Equal(&round.LockOrValid{Round: 2, ValueID: proposal.ValueID()}))
			Expect(out).To(Equal(round.VoteOutput{Type: tm.Precommit, ValueID: proposal.ValueID()}))
		})
	})

	Context("when PolkaNil arrives during prevote", func() {
		It("should precommit nil without touching locked/valid", func() {
			state := round.NewState(1)
			state.Step = round.Prevote

			next, out := round.Apply(state, round.PolkaNilInput{})

			Expect(next.Step).To(Equal(round.Precommit))
			Expect(next.Locked).To(BeNil())
			Expect(next.Valid).To(BeNil())
			Expect(out).To(Equal(round.VoteOutput{Type: tm.Precommit, ValueID: tm.NilValueID}))
		})
	})

	Context("when PolkaAny arrives twice in the same round during prevote", func() {
		It("should schedule the prevote timeout only once", func() {
			state := round.NewState(1)
			state.Step = round.Prevote

			next, out := round.Apply(state, round.PolkaAnyInput{})
			Expect(out).To(Equal(round.ScheduleTimeoutOutput{Kind: round.TimeoutPrevote}))

			next, out = round.Apply(next, round.PolkaAnyInput{})
			Expect(out).To(Equal(round.NoOutput{}))
			Expect(next.Step).To(Equal(round.Prevote))
		})
	})

	Context("when the prevote timeout elapses", func() {
		It("should precommit nil and move to the precommit step", func() {
			state := round.NewState(1)
			state.Step = round.Prevote

			next, out := round.Apply(state, round.TimeoutPrevoteInput{})

			Expect(next.Step).To(Equal(round.Precommit))
			Expect(out).To(Equal(round.VoteOutput{Type: tm.Precommit, ValueID: tm.NilValueID}))
		})
	})

	Context("when a polka for the current round's proposal arrives during precommit", func() {
		It("should update valid without casting a new vote", func() {
			state := round.NewState(1)
			state.Step = round.Precommit
			state.Round = 3
			proposal := tm.NewProposal(1, 3, tm.Value("a block"), randomAddr())

			next, out := round.Apply(state, round.ProposalAndPolkaCurrentInput{Proposal: proposal})

			Expect(next.Step).To(Equal(round.Precommit))
			Expect(next.Valid).To(Equal(&round.LockOrValid{Round: 3, ValueID: proposal.ValueID()}))
			Expect(out).To(Equal(round.NoOutput{}))
		})
	})

	Context("when PrecommitAny arrives twice across prevote and precommit", func() {
		It("should schedule the precommit timeout only once", func() {
			state := round.NewState(1)
			state.Step = round.Prevote

			next, out := round.Apply(state, round.PrecommitAnyInput{})
			Expect(out).To(Equal(round.ScheduleTimeoutOutput{Kind: round.TimeoutPrecommit}))

			next.Step = round.Precommit
			next, out = round.Apply(next, round.PrecommitAnyInput{})
			Expect(out).To(Equal(round.NoOutput{}))
		})
	})

	Context("when a commit quorum is reached for a known proposal", func() {
		It("should decide and move to the commit step, regardless of the current step", func() {
			state := round.NewState(1)
			state.Step = round.Precommit
			proposal := tm.NewProposal(1, 0, tm.Value("a block"), randomAddr())

			next, out := round.Apply(state, round.ProposalAndCommitCurrentInput{Proposal: proposal})

			Expect(next.Step).To(Equal(round.Commit))
			Expect(next.Done()).To(BeTrue())
			Expect(out).To(Equal(round.DecideOutput{Round: 0, ValueID: proposal.ValueID()}))
		})

		It("should accept no further inputs once decided", func() {
			state := round.NewState(1)
			state.Step = round.Commit
			decided := tm.Value("decided").ID()
			state.Decision = &decided

			next, out := round.Apply(state, round.PolkaAnyInput{})

			Expect(next).To(Equal(state))
			Expect(out).To(Equal(round.NoOutput{}))
		})
	})

	Context("when the precommit timeout elapses", func() {
		It("should advance to the next round", func() {
			state := round.NewState(1)
			state.Step = round.Precommit
			state.Round = 4

			next, out := round.Apply(state, round.TimeoutPrecommitInput{})

			Expect(out).To(Equal(round.NewRoundOutput{Round: 5}))
			Expect(next.Round).To(Equal(tm.Round(4)))
		})
	})

	Context("when SkipRound names a round ahead of the current one", func() {
		It("should advance to that round", func() {
			state := round.NewState(1)
			state.Round = 2

			_, out := round.Apply(state, round.SkipRoundInput{Round: 7})

			Expect(out).To(Equal(round.NewRoundOutput{Round: 7}))
		})

		It("should be ignored for a round at or behind the current one", func() {
			state := round.NewState(1)
			state.Round = 5

			_, out := round.Apply(state, round.SkipRoundInput{Round: 5})

			Expect(out).To(Equal(round.NoOutput{}))
		})
	})

	Context("when locked on a value and a new proposal with a polka at a later valid round arrives", func() {
		It("should prevote for the new value since locked.round <= valid_round", func() {
			state := round.NewState(1)
			state.Step = round.Propose
			state.Locked = &round.LockOrValid{Round: 1, ValueID: tm.Value("stale").ID()}
			proposal := tm.Proposal{Height: 1, Round: 3, Value: tm.Value("fresher"), ValidRound: 2, ProposerAddress: randomAddr()}

			next, out := round.Apply(state, round.ProposalAndPolkaPreviousInput{Proposal: proposal, Validity: tm.Valid})

			Expect(next.Step).To(Equal(round.Prevote))
			Expect(out).To(Equal(round.VoteOutput{Type: tm.Prevote, ValueID: proposal.ValueID()}))
		})
	})
})
