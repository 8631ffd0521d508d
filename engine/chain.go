package engine

import (
	"bytes"
	"encoding/base64"

	"github.com/sirupsen/logrus"

	"github.com/consensuslab/tmbft/driver"
	"github.com/consensuslab/tmbft/effect"
	"github.com/consensuslab/tmbft/round"
	"github.com/consensuslab/tmbft/signing"
	"github.com/consensuslab/tmbft/timer"
	"github.com/consensuslab/tmbft/tm"
	"github.com/consensuslab/tmbft/walmock"
)

// ChainID uniquely identifies a chain hosted by an Engine, grounded on
// replica.Shard.
type ChainID [32]byte

// Equal compares one ChainID with another.
func (chain ChainID) Equal(other ChainID) bool {
	return bytes.Equal(chain[:], other[:])
}

// String implements fmt.Stringer.
func (chain ChainID) String() string {
	return base64.RawStdEncoding.EncodeToString(chain[:])
}

// chainHost drives one Driver to completion per input, resuming every
// suspension point inline (as spec.md §5's ordering guarantee requires one
// input's continuation chain to advance to completion before the next is
// accepted) while deferring Broadcast effects until the Driver has gone
// idle again, exactly as a real host must (see driver.Driver's doc comment).
//
// Grounded on replica.Replica, which plays the analogous role around one
// process.Process: it owns the signer, the timer, and the WAL, and folds
// every effect the core state machine produces back through them.
type chainHost struct {
	chain   ChainID
	options Options

	d       *driver.Driver
	backend signing.Backend
	timer   timer.Service
	values  ValueBuilder
	sources ValidatorSetSource
	decider Decider
	bcaster Broadcaster
	wal     walmock.WAL

	broadcastQueue   []effect.Effect
	commitTimerArmed bool
}

func newChainHost(
	chain ChainID,
	options Options,
	whoami tm.Address,
	backend signing.Backend,
	timerService timer.Service,
	values ValueBuilder,
	validators ValidatorSetSource,
	decider Decider,
	broadcaster Broadcaster,
) *chainHost {
	return &chainHost{
		chain:   chain,
		options: options,
		d:       driver.New(whoami, options.Config, options.Scheduler),
		backend: backend,
		timer:   timerService,
		values:  values,
		sources: validators,
		decider: decider,
		bcaster: broadcaster,
		wal:     options.WAL,
	}
}

func (h *chainHost) logger() logrus.FieldLogger {
	return h.options.Logger.WithField("chain", h.chain)
}

// start begins height 1. A real host would instead resume from the height
// after the last one durably decided; chains always begin fresh here since
// no durable height cursor is part of this module's scope (spec.md
// Non-goals exclude production persistence).
func (h *chainHost) start() {
	h.startHeight(h.d.Height() + 1)
}

// startHeight is the only place that calls Driver.StartHeight, whether for
// the chain's first height (from start) or for the height after one just
// decided (from advanceIfDecided/handleTimeoutElapsed). It is only ever
// invoked once the previous continuation chain has fully settled, never
// from inside a still-executing one (see driver.Driver's reentrancy doc).
func (h *chainHost) startHeight(height tm.Height) {
	h.commitTimerArmed = false
	effects, _, err := h.d.StartHeight(height)
	if err != nil {
		h.logger().Errorf("starting height %v: %v", height, err)
		return
	}
	h.run(effects)
}

func (h *chainHost) handleVote(vote tm.SignedVote) {
	effects, _, err := h.d.HandleVote(vote)
	if err != nil {
		h.logger().Debugf("vote from %v rejected: %v", vote.Vote.VoterAddr, err)
		return
	}
	h.run(effects)
}

func (h *chainHost) handleProposal(proposal tm.SignedProposal, validity tm.Validity) {
	effects, _, err := h.d.HandleProposal(proposal, validity)
	if err != nil {
		h.logger().Debugf("proposal from %v rejected: %v", proposal.Proposal.ProposerAddress, err)
		return
	}
	h.run(effects)
}

func (h *chainHost) handleTimeoutElapsed(elapsed timer.Elapsed) {
	if elapsed.Kind == round.TimeoutCommit {
		if h.d.Phase() != driver.Decided || elapsed.Height != h.d.Height() {
			return
		}
		h.startHeight(h.d.Height() + 1)
		return
	}

	effects, _, err := h.d.HandleTimeoutElapsed(elapsed)
	if err != nil {
		h.logger().Warnf("timeout elapsed rejected: %v", err)
		return
	}
	h.run(effects)
}

// run drains effects to completion, then replays queued future-height
// messages once the Driver has gone idle, then loops every accumulated
// Broadcast back through HandleVote/HandleProposal — never synchronously,
// always after the producing continuation chain has fully settled (see
// driver.Driver's doc comment on reentrancy).
func (h *chainHost) run(effects []effect.Effect) {
	h.drain(effects)
	if !h.d.Suspended() {
		h.drain(h.d.DrainQueued())
	}
	for len(h.broadcastQueue) > 0 {
		b := h.broadcastQueue[0].(effect.Broadcast)
		h.broadcastQueue = h.broadcastQueue[1:]

		if b.Vote != nil {
			h.bcaster.Broadcast(h.chain, b.Vote, nil)
		} else {
			h.bcaster.Broadcast(h.chain, nil, b.Proposal)
		}
	}
	h.advanceIfDecided()
}

// advanceIfDecided starts the next height once the current one has decided
// (spec.md §4.3 "Decided(h) --StartHeight(h+1,vs')--> Running(h+1)"). A
// zero TimeoutCommit advances immediately, matching proc/proc.go's
// tryCommitUponSufficientPrecommits, which re-enters the next round with no
// commit-timeout concept at all; a positive one arms a TimeoutCommit timer
// instead and waits for handleTimeoutElapsed to pick it up, so every
// validator gets the same grace period to gossip its commit before moving
// on (spec.md §9 open question on a commit timeout).
func (h *chainHost) advanceIfDecided() {
	if h.d.Phase() != driver.Decided {
		return
	}
	if h.options.Config.TimeoutCommit <= 0 {
		h.startHeight(h.d.Height() + 1)
		return
	}
	if h.commitTimerArmed {
		return
	}
	h.commitTimerArmed = true
	h.timer.Schedule(round.TimeoutCommit, h.d.Height(), h.d.Decided().Round, h.options.Config.TimeoutCommit)
}

func (h *chainHost) drain(pending []effect.Effect) {
	for len(pending) > 0 {
		e := pending[0]
		pending = pending[1:]

		switch ev := e.(type) {
		case effect.GetValidatorSet:
			validators, err := h.sources.ValidatorSet(h.chain, ev.Height)
			if err != nil {
				h.logger().Errorf("resolving validator set for height %v: %v", ev.Height, err)
				return
			}
			more, _, err := h.d.Resume(effect.ValidatorSetResolved{Validators: validators})
			if err != nil {
				h.logger().Errorf("resuming validator set: %v", err)
				return
			}
			pending = append(more, pending...)

		case effect.GetValue:
			value, err := h.values.ProposeValue(h.chain, ev.Height, ev.Round)
			if err != nil {
				h.logger().Warnf("proposing value at height=%v round=%v: %v", ev.Height, ev.Round, err)
				return
			}
			more, _, err := h.d.Resume(effect.ValueProposed{Value: value})
			if err != nil {
				h.logger().Errorf("resuming proposed value: %v", err)
				return
			}
			pending = append(more, pending...)

		case effect.SignProposal:
			signed, err := h.backend.SignProposal(ev.Proposal)
			if err != nil {
				h.logger().Errorf("signing proposal: %v", err)
				return
			}
			more, _, err := h.d.Resume(effect.ProposalSigned{SignedProposal: signed})
			if err != nil {
				h.logger().Errorf("resuming signed proposal: %v", err)
				return
			}
			pending = append(more, pending...)

		case effect.SignVote:
			signed, err := h.backend.SignVote(ev.Vote)
			if err != nil {
				h.logger().Errorf("signing vote: %v", err)
				return
			}
			more, _, err := h.d.Resume(effect.VoteSigned{SignedVote: signed})
			if err != nil {
				h.logger().Errorf("resuming signed vote: %v", err)
				return
			}
			pending = append(more, pending...)

		case effect.VerifySignature:
			err := h.backend.Verify(ev.SigHash, ev.Signature, ev.Signer)
			more, _, resumeErr := h.d.Resume(effect.SignatureVerified{Valid: err == nil})
			if resumeErr != nil {
				h.logger().Debugf("resuming signature verification: %v", resumeErr)
				return
			}
			pending = append(more, pending...)

		case effect.ScheduleTimeout:
			h.timer.Schedule(ev.Kind, h.d.Height(), ev.Round, ev.Duration)

		case effect.CancelTimeout:
			h.timer.Cancel(ev.Kind, h.d.Height(), ev.Round)

		case effect.CancelAllTimeouts:
			h.timer.CancelAll(h.d.Height())

		case effect.ResetTimeouts:
			h.timer.CancelAll(h.d.Height())
			h.timer.Schedule(
				round.TimeoutPropose,
				h.d.Height(),
				ev.Round,
				tm.TimeoutFor(h.options.Config.TimeoutPropose, h.options.Config.TimeoutProposeDelta, ev.Round),
			)

		case effect.PersistMessage:
			var err error
			if ev.Vote != nil {
				err = h.wal.AppendVote(*ev.Vote)
			} else {
				err = h.wal.AppendProposal(*ev.Proposal)
			}
			if err != nil {
				h.logger().Errorf("persisting message: %v", err)
			}

		case effect.Broadcast:
			h.broadcastQueue = append(h.broadcastQueue, ev)

		case effect.Decide:
			h.decider.Decide(h.chain, ev.Certificate)
		}
	}
}
