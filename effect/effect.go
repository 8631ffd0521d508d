// Package effect defines the suspend/resume contract the driver uses to
// request I/O: sign a vote, verify a signature, broadcast a message,
// schedule a timer, ask the application for a value. The driver itself
// performs none of this I/O (spec.md §4.4); it emits an Effect and expects
// the caller to resume it with the matching Resume.
//
// Grounded on the Options-style external-interface boundary in
// replica/replica.go (ProcessStorage/Validator/Observer as injected
// interfaces the driver never calls directly into) and on the coroutine
// framing spec.md §4.4 calls for; no teacher file implements a generator
// loop, so the Trampoline type here is written fresh from that framing.
package effect

import (
	"time"

	"github.com/consensuslab/tmbft/round"
	"github.com/consensuslab/tmbft/tm"
)

// Effect is the sum type of everything the driver can ask the environment
// to do (spec.md §4.3 "Outputs (effects on the environment)").
type Effect interface {
	isEffect()
}

// Broadcast asks the environment to send a signed vote or proposal to every
// peer. Exactly one of Vote/Proposal is set.
type Broadcast struct {
	Vote     *tm.SignedVote
	Proposal *tm.SignedProposal
}

func (Broadcast) isEffect() {}

// ScheduleTimeout asks the environment to arm a timer for Kind at Round,
// to fire after Duration.
type ScheduleTimeout struct {
	Kind     round.TimeoutKind
	Round    tm.Round
	Duration time.Duration
}

func (ScheduleTimeout) isEffect() {}

// CancelTimeout asks the environment to disarm a previously scheduled
// timer; late deliveries after cancellation must still be tolerated by the
// driver (spec.md §5).
type CancelTimeout struct {
	Kind  round.TimeoutKind
	Round tm.Round
}

func (CancelTimeout) isEffect() {}

// CancelAllTimeouts asks the environment to disarm every timer for the
// current height, used on a Decide.
type CancelAllTimeouts struct{}

func (CancelAllTimeouts) isEffect() {}

// ResetTimeouts asks the environment to disarm every timer for the current
// height and arm TimeoutPropose(round) for a fresh round entry.
type ResetTimeouts struct {
	Round tm.Round
}

func (ResetTimeouts) isEffect() {}

// GetValue asks the application for a value to propose; the application is
// expected to resume with ValueProposed before Deadline elapses. The driver
// does not act on Deadline itself: it schedules no timeout for this wait and
// stays suspended until the ValueProposed resume arrives.
type GetValue struct {
	Height   tm.Height
	Round    tm.Round
	Deadline time.Time
}

func (GetValue) isEffect() {}

// GetValidatorSet asks the application for the validator set to use at
// Height.
type GetValidatorSet struct {
	Height tm.Height
}

func (GetValidatorSet) isEffect() {}

// Decide reports the height is decided; the driver stops accepting inputs
// for it once this is emitted.
type Decide struct {
	Certificate tm.CommitCertificate
}

func (Decide) isEffect() {}

// SignVote asks the signing back-end to sign an unsigned Vote.
type SignVote struct {
	Vote tm.Vote
}

func (SignVote) isEffect() {}

// SignProposal asks the signing back-end to sign an unsigned Proposal.
type SignProposal struct {
	Proposal tm.Proposal
}

func (SignProposal) isEffect() {}

// VerifySignature asks the signing back-end to check a signature against a
// message digest and a claimed signer.
type VerifySignature struct {
	SigHash   tm.ValueID
	Signature tm.Signature
	Signer    tm.Address
}

func (VerifySignature) isEffect() {}

// PersistMessage asks an optional write-ahead log to durably record a
// signed message before it is broadcast, so a restart can replay it in
// original order (spec.md §5 ordering guarantee: SignVote/SignProposal
// first, PersistMessage second, Broadcast last).
type PersistMessage struct {
	Vote     *tm.SignedVote
	Proposal *tm.SignedProposal
}

func (PersistMessage) isEffect() {}
