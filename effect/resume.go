package effect

import "github.com/consensuslab/tmbft/tm"

// Resume is the sum type of values a suspended driver is resumed with. Each
// Effect variant has exactly one matching Resume variant, except the
// fire-and-forget effects (Broadcast, ScheduleTimeout, CancelTimeout,
// CancelAllTimeouts, ResetTimeouts, Decide, PersistMessage), which the
// driver never suspends on and which are not resumed at all (spec.md §4.4,
// §5 "Suspension points"). Continue is the Resume a Trampoline passes to the
// first Continuation of a new input.
type Resume interface {
	isResume()
}

// Continue is the payload-free Resume that starts a new input's chain.
type Continue struct{}

func (Continue) isResume() {}

// ValueProposed resumes GetValue with the value the application chose to
// propose.
type ValueProposed struct {
	Value tm.Value
}

func (ValueProposed) isResume() {}

// ValidatorSetResolved resumes GetValidatorSet with the set to use.
type ValidatorSetResolved struct {
	Validators tm.ValidatorSet
}

func (ValidatorSetResolved) isResume() {}

// VoteSigned resumes SignVote with the signed form.
type VoteSigned struct {
	SignedVote tm.SignedVote
}

func (VoteSigned) isResume() {}

// ProposalSigned resumes SignProposal with the signed form.
type ProposalSigned struct {
	SignedProposal tm.SignedProposal
}

func (ProposalSigned) isResume() {}

// SignatureVerified resumes VerifySignature with the verdict.
type SignatureVerified struct {
	Valid bool
}

func (SignatureVerified) isResume() {}
