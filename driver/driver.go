// Package driver owns the vote keeper, round state machine, and proposal
// cache for one height, translating network/application/timer inputs into
// round.Inputs and collecting round.Outputs into Effects (spec.md §4.3).
//
// Grounded on proc/proc.go's Process (the single owner of per-height vote
// logs and round state, with Propose/Prevote/Precommit entry points
// cascading into try* handlers) and on replica/replica.go's height-gating
// and future-height message queueing, generalized from proc.go's unweighted
// per-validator tallying (delegated here to votekeeper) to the
// multiplexing role spec.md §4.3 assigns the driver: joining vote-keeper
// threshold events with known proposals before calling into round.Apply.
package driver

import (
	"fmt"
	"time"

	"github.com/consensuslab/tmbft/effect"
	"github.com/consensuslab/tmbft/round"
	"github.com/consensuslab/tmbft/timer"
	"github.com/consensuslab/tmbft/tm"
	"github.com/consensuslab/tmbft/votekeeper"
)

// Phase is the driver's height-level lifecycle position (spec.md §4.3
// "State machine between heights").
type Phase uint8

// Enumerate the Phases.
const (
	Unstarted Phase = iota + 1
	Running
	Decided
)

// queuedVote/queuedProposal hold one future-height message each, replayed
// once that height starts (spec.md §4.3 "Inputs to a non-running height are
// queued (for one future height) or discarded (for stale heights)").
type queuedVote struct {
	signedVote tm.SignedVote
}

type queuedProposal struct {
	signedProposal tm.SignedProposal
	validity       tm.Validity
}

// Driver is the per-chain coordinator: one Driver instance runs one height
// at a time, advancing through Unstarted -> Running -> Decided -> Running
// as StartHeight is called for successive heights.
//
// A Driver is not reentrant. While it is Suspended, only Resume may be
// called; an input that would start processing then is rejected with an
// error by its Trampoline. A host
// therefore resumes suspension points inline but holds back the Broadcast
// effects it receives, and delivers them back through HandleVote/
// HandleProposal only once the Driver is idle again.
type Driver struct {
	whoami    tm.Address
	cfg       tm.Config
	scheduler Scheduler

	trampoline *effect.Trampoline

	phase      Phase
	height     tm.Height
	validators tm.ValidatorSet
	keeper     *votekeeper.Keeper
	state      round.State

	// proposalsByRound retains every distinct proposal seen per round, keyed
	// by its value: an equivocating proposer, or a legitimate re-proposal
	// carrying a different valid_round, must not evict an earlier proposal
	// a pending polka/commit event is still waiting to be matched against
	// (spec.md §3 "a mapping (height, round) -> set<SignedProposal>").
	proposalsByRound map[tm.Round]map[tm.ValueID]tm.Proposal
	precommitSigs    map[tm.Round]map[tm.ValueID][]tm.CommitSig

	pendingPolkaCurrent  map[tm.Round]tm.ValueID
	pendingPolkaPrevious map[tm.Round]tm.ValueID
	pendingCommit        map[tm.Round]tm.ValueID

	decidedCertificate *tm.CommitCertificate

	queuedVotes     []queuedVote
	queuedProposals []queuedProposal
}

// New returns a Driver that has not yet started any height.
func New(whoami tm.Address, cfg tm.Config, scheduler Scheduler) *Driver {
	return &Driver{
		whoami:     whoami,
		cfg:        cfg,
		scheduler:  scheduler,
		trampoline: effect.NewTrampoline(),
		phase:      Unstarted,
	}
}

// Height returns the height the Driver is currently running (or just
// decided).
func (d *Driver) Height() tm.Height {
	return d.height
}

// Phase returns the Driver's current lifecycle phase.
func (d *Driver) Phase() Phase {
	return d.phase
}

// Decided returns the CommitCertificate for the current height, once
// Phase() reports Decided.
func (d *Driver) Decided() *tm.CommitCertificate {
	return d.decidedCertificate
}

// Suspended reports whether the Driver is waiting on a Resume before it can
// make further progress.
func (d *Driver) Suspended() bool {
	return d.trampoline.Suspended()
}

// Resume supplies the outcome of the last suspension-point Effect.
func (d *Driver) Resume(r effect.Resume) ([]effect.Effect, bool, error) {
	return d.trampoline.Resume(r)
}

// StartHeight begins height, requesting its validator set from the
// application. It must only be called when the Driver is Unstarted or has
// Decided the previous height; a call while a height is running, or for a
// height at or below one already decided, returns an OutOfOrder error.
func (d *Driver) StartHeight(height tm.Height) ([]effect.Effect, bool, error) {
	if d.phase == Running {
		return nil, false, tm.NewOutOfOrderError("StartHeight(%v) called while height %v is still running", height, d.height)
	}
	if d.phase == Decided && height <= d.height {
		return nil, false, tm.NewOutOfOrderError("StartHeight(%v) called after height %v already decided", height, d.height)
	}
	return d.trampoline.Start(func(effect.Resume) ([]effect.Effect, effect.Continuation, error) {
		cont := func(r effect.Resume) ([]effect.Effect, effect.Continuation, error) {
			resolved, ok := r.(effect.ValidatorSetResolved)
			if !ok {
				return nil, nil, tm.NewFatalError("driver: expected ValidatorSetResolved resume, got %T", r)
			}
			d.beginHeight(height, resolved.Validators)
			return d.enterRound(0)
		}
		return []effect.Effect{effect.GetValidatorSet{Height: height}}, cont, nil
	})
}

func (d *Driver) beginHeight(height tm.Height, validators tm.ValidatorSet) {
	d.height = height
	d.validators = validators
	d.keeper = votekeeper.NewKeeper(d.cfg.Threshold)
	d.keeper.SetTotalPower(validators.TotalPower())
	d.state = round.NewState(height)
	d.proposalsByRound = map[tm.Round]map[tm.ValueID]tm.Proposal{}
	d.precommitSigs = map[tm.Round]map[tm.ValueID][]tm.CommitSig{}
	d.pendingPolkaCurrent = map[tm.Round]tm.ValueID{}
	d.pendingPolkaPrevious = map[tm.Round]tm.ValueID{}
	d.pendingCommit = map[tm.Round]tm.ValueID{}
	d.decidedCertificate = nil
	d.phase = Running
}

// DrainQueued replays messages that arrived one height early while the
// previous height was still running (spec.md §4.3 "Inputs to a non-running
// height are queued (for one future height) or discarded (for stale
// heights)"). The caller must only invoke this once StartHeight's own
// suspension chain has fully settled (Suspended() reports false) — calling
// it while a Resume is still pending would re-enter the trampoline before
// the in-flight continuation has recorded where it suspended.
func (d *Driver) DrainQueued() []effect.Effect {
	votes := d.queuedVotes
	proposals := d.queuedProposals
	d.queuedVotes = nil
	d.queuedProposals = nil

	var effects []effect.Effect
	for _, q := range votes {
		if q.signedVote.Vote.Height != d.height {
			continue
		}
		more, _, err := d.HandleVote(q.signedVote)
		if err == nil {
			effects = append(effects, more...)
		}
	}
	for _, q := range proposals {
		if q.signedProposal.Proposal.Height != d.height {
			continue
		}
		more, _, err := d.HandleProposal(q.signedProposal, q.validity)
		if err == nil {
			effects = append(effects, more...)
		}
	}
	return effects
}

// HandleVote processes a signed vote from the network. A vote for the next
// height is queued even while the current height has already Decided and
// the next has not yet started (spec.md §4.3: "Inputs to a non-running
// height are queued (for one future height) or discarded (for stale
// heights)") — only a vote for the currently running height requires the
// Driver to actually be Running.
func (d *Driver) HandleVote(signedVote tm.SignedVote) ([]effect.Effect, bool, error) {
	if d.phase == Unstarted {
		return nil, false, tm.NewInvalidInputError("driver: vote received before any height has started")
	}
	if signedVote.Vote.Height < d.height {
		return nil, false, nil
	}
	if signedVote.Vote.Height > d.height {
		if signedVote.Vote.Height == d.height+1 {
			d.queuedVotes = append(d.queuedVotes, queuedVote{signedVote: signedVote})
		}
		return nil, false, nil
	}
	if d.phase != Running {
		return nil, false, tm.NewInvalidInputError("driver: vote for height %v received while not running", signedVote.Vote.Height)
	}
	if _, ok := d.validators.GetByAddress(signedVote.Vote.VoterAddr); !ok {
		return nil, false, tm.NewInvalidInputError("driver: vote from unknown validator %v", signedVote.Vote.VoterAddr)
	}

	return d.trampoline.Start(func(effect.Resume) ([]effect.Effect, effect.Continuation, error) {
		cont := func(r effect.Resume) ([]effect.Effect, effect.Continuation, error) {
			verified, ok := r.(effect.SignatureVerified)
			if !ok {
				return nil, nil, tm.NewFatalError("driver: expected SignatureVerified resume, got %T", r)
			}
			if !verified.Valid {
				return nil, nil, tm.NewInvalidInputError("driver: bad signature on vote from %v", signedVote.Vote.VoterAddr)
			}
			return d.applyVote(signedVote)
		}
		sigHash := signedVote.SigHash()
		return []effect.Effect{effect.VerifySignature{SigHash: sigHash, Signature: signedVote.Signature, Signer: signedVote.Vote.VoterAddr}}, cont, nil
	})
}

func (d *Driver) applyVote(signedVote tm.SignedVote) ([]effect.Effect, effect.Continuation, error) {
	vote := signedVote.Vote
	validator, ok := d.validators.GetByAddress(vote.VoterAddr)
	if !ok {
		return nil, nil, tm.NewInvalidInputError("driver: vote from unknown validator %v", vote.VoterAddr)
	}

	if vote.Type == tm.Precommit && !vote.IsNil() {
		byValue := d.precommitSigs[vote.Round]
		if byValue == nil {
			byValue = map[tm.ValueID][]tm.CommitSig{}
			d.precommitSigs[vote.Round] = byValue
		}
		byValue[vote.ValueID] = append(byValue[vote.ValueID], tm.CommitSig{VoterAddr: vote.VoterAddr, Signature: signedVote.Signature})
	}

	event, err := d.keeper.ApplyVote(vote, validator.Power, d.state.Round)
	if err != nil {
		return nil, nil, err
	}

	roundInput := d.roundInputForVoteEvent(event)
	if roundInput == nil {
		return nil, nil, nil
	}
	return d.runRoundInput(roundInput)
}

// roundInputForVoteEvent implements spec.md §4.3's "Core multiplexing
// rules", joining a vote-keeper threshold Event with whatever proposal the
// driver already knows. When the matching proposal is not yet known, the
// event is remembered and re-delivered once HandleProposal sees it
// (spec.md §4.3: "When a Proposal arrives and a polka/commit event already
// fired for it, re-deliver the combined event").
func (d *Driver) roundInputForVoteEvent(event votekeeper.Event) round.Input {
	switch event.Kind {
	case votekeeper.NoEvent:
		return nil

	case votekeeper.PolkaValue:
		if event.Round == d.state.Round {
			if proposal, ok := d.proposalForValue(event.Round, event.ValueID); ok {
				return round.ProposalAndPolkaCurrentInput{Proposal: proposal}
			}
			d.pendingPolkaCurrent[event.Round] = event.ValueID
			return nil
		}
		if event.Round < d.state.Round {
			if proposal, ok := d.proposalForValue(d.state.Round, event.ValueID); ok && proposal.ValidRound == event.Round {
				return round.ProposalAndPolkaPreviousInput{Proposal: proposal, Validity: tm.Valid}
			}
			d.pendingPolkaPrevious[event.Round] = event.ValueID
			return nil
		}
		return nil

	case votekeeper.PolkaNil:
		if event.Round == d.state.Round {
			return round.PolkaNilInput{}
		}
		return nil

	case votekeeper.PolkaAny:
		if event.Round == d.state.Round {
			return round.PolkaAnyInput{}
		}
		return nil

	case votekeeper.CommitValue:
		if proposal, ok := d.proposalForValue(event.Round, event.ValueID); ok {
			return round.ProposalAndCommitCurrentInput{Proposal: proposal}
		}
		d.pendingCommit[event.Round] = event.ValueID
		return nil

	case votekeeper.PrecommitAny:
		if event.Round == d.state.Round {
			return round.PrecommitAnyInput{}
		}
		return nil

	case votekeeper.SkipRound:
		return round.SkipRoundInput{Round: event.Round}

	default:
		return nil
	}
}

// proposalForValue returns the proposal cached for (round, valueID), if any
// has been seen.
func (d *Driver) proposalForValue(r tm.Round, valueID tm.ValueID) (tm.Proposal, bool) {
	byValue, ok := d.proposalsByRound[r]
	if !ok {
		return tm.Proposal{}, false
	}
	proposal, ok := byValue[valueID]
	return proposal, ok
}

// HandleProposal processes a signed proposal from the network, already
// carrying the application's validity verdict. A proposal for the next
// height is queued even while the current height has already Decided and
// the next has not yet started, the same as HandleVote.
func (d *Driver) HandleProposal(signedProposal tm.SignedProposal, validity tm.Validity) ([]effect.Effect, bool, error) {
	if d.phase == Unstarted {
		return nil, false, tm.NewInvalidInputError("driver: proposal received before any height has started")
	}
	if signedProposal.Proposal.Height < d.height {
		return nil, false, nil
	}
	if signedProposal.Proposal.Height > d.height {
		if signedProposal.Proposal.Height == d.height+1 {
			d.queuedProposals = append(d.queuedProposals, queuedProposal{signedProposal: signedProposal, validity: validity})
		}
		return nil, false, nil
	}
	if d.phase != Running {
		return nil, false, tm.NewInvalidInputError("driver: proposal for height %v received while not running", signedProposal.Proposal.Height)
	}

	return d.trampoline.Start(func(effect.Resume) ([]effect.Effect, effect.Continuation, error) {
		cont := func(r effect.Resume) ([]effect.Effect, effect.Continuation, error) {
			verified, ok := r.(effect.SignatureVerified)
			if !ok {
				return nil, nil, tm.NewFatalError("driver: expected SignatureVerified resume, got %T", r)
			}
			if !verified.Valid {
				return nil, nil, tm.NewInvalidInputError("driver: bad signature on proposal from %v", signedProposal.Proposal.ProposerAddress)
			}
			return d.applyProposal(signedProposal.Proposal, validity)
		}
		sigHash := signedProposal.SigHash()
		signer := signedProposal.Proposal.ProposerAddress
		return []effect.Effect{effect.VerifySignature{SigHash: sigHash, Signature: signedProposal.Signature, Signer: signer}}, cont, nil
	})
}

func (d *Driver) applyProposal(proposal tm.Proposal, validity tm.Validity) ([]effect.Effect, effect.Continuation, error) {
	byValue, ok := d.proposalsByRound[proposal.Round]
	if !ok {
		byValue = map[tm.ValueID]tm.Proposal{}
		d.proposalsByRound[proposal.Round] = byValue
	}
	byValue[proposal.ValueID()] = proposal

	if valueID, ok := d.pendingCommit[proposal.Round]; ok && valueID == proposal.ValueID() {
		delete(d.pendingCommit, proposal.Round)
		return d.runRoundInput(round.ProposalAndCommitCurrentInput{Proposal: proposal})
	}
	if proposal.Round == d.state.Round {
		if valueID, ok := d.pendingPolkaCurrent[proposal.Round]; ok && valueID == proposal.ValueID() {
			delete(d.pendingPolkaCurrent, proposal.Round)
			return d.runRoundInput(round.ProposalAndPolkaCurrentInput{Proposal: proposal})
		}
	}
	if proposal.ValidRound != tm.NilRound {
		if valueID, ok := d.pendingPolkaPrevious[proposal.ValidRound]; ok && valueID == proposal.ValueID() {
			delete(d.pendingPolkaPrevious, proposal.ValidRound)
			return d.runRoundInput(round.ProposalAndPolkaPreviousInput{Proposal: proposal, Validity: validity})
		}
	}
	return d.runRoundInput(round.ProposalInput{Proposal: proposal, Validity: validity})
}

// HandleTimeoutElapsed processes a timer.Elapsed delivered by the external
// timer service.
func (d *Driver) HandleTimeoutElapsed(elapsed timer.Elapsed) ([]effect.Effect, bool, error) {
	if d.phase != Running || elapsed.Height != d.height || elapsed.Round != d.state.Round {
		return nil, false, nil
	}

	var input round.Input
	switch elapsed.Kind {
	case round.TimeoutPropose:
		if d.state.Step != round.Propose {
			return nil, false, nil
		}
		input = round.TimeoutProposeInput{}
	case round.TimeoutPrevote:
		if d.state.Step != round.Prevote {
			return nil, false, nil
		}
		input = round.TimeoutPrevoteInput{}
	case round.TimeoutPrecommit:
		if d.state.Step == round.Commit {
			return nil, false, nil
		}
		input = round.TimeoutPrecommitInput{}
	default:
		return nil, false, fmt.Errorf("driver: unexpected timeout kind %v", elapsed.Kind)
	}

	return d.trampoline.Start(func(effect.Resume) ([]effect.Effect, effect.Continuation, error) {
		return d.runRoundInput(input)
	})
}

func (d *Driver) runRoundInput(input round.Input) ([]effect.Effect, effect.Continuation, error) {
	next, output := round.Apply(d.state, input)
	d.state = next
	return d.applyRoundOutput(output)
}

func (d *Driver) applyRoundOutput(output round.Output) ([]effect.Effect, effect.Continuation, error) {
	switch out := output.(type) {
	case round.NoOutput:
		return nil, nil, nil

	case round.ProposeOutput:
		proposal := tm.NewProposal(d.height, d.state.Round, out.Value, d.whoami)
		if d.state.Valid != nil {
			proposal.ValidRound = d.state.Valid.Round
		}
		cont := func(r effect.Resume) ([]effect.Effect, effect.Continuation, error) {
			signed, ok := r.(effect.ProposalSigned)
			if !ok {
				return nil, nil, tm.NewFatalError("driver: expected ProposalSigned resume, got %T", r)
			}
			ownProposal := signed.SignedProposal.Proposal
			byValue, ok := d.proposalsByRound[d.state.Round]
			if !ok {
				byValue = map[tm.ValueID]tm.Proposal{}
				d.proposalsByRound[d.state.Round] = byValue
			}
			byValue[ownProposal.ValueID()] = ownProposal
			return []effect.Effect{
				effect.PersistMessage{Proposal: &signed.SignedProposal},
				effect.Broadcast{Proposal: &signed.SignedProposal},
			}, nil, nil
		}
		return []effect.Effect{effect.SignProposal{Proposal: proposal}}, cont, nil

	case round.VoteOutput:
		vote := tm.Vote{Type: out.Type, Height: d.height, Round: d.state.Round, ValueID: out.ValueID, VoterAddr: d.whoami}
		cont := func(r effect.Resume) ([]effect.Effect, effect.Continuation, error) {
			signed, ok := r.(effect.VoteSigned)
			if !ok {
				return nil, nil, tm.NewFatalError("driver: expected VoteSigned resume, got %T", r)
			}
			effects := []effect.Effect{
				effect.PersistMessage{Vote: &signed.SignedVote},
				effect.Broadcast{Vote: &signed.SignedVote},
			}
			more, moreEffects, err := d.applyVote(signed.SignedVote)
			if err != nil {
				return effects, nil, err
			}
			effects = append(effects, more...)
			return effects, moreEffects, nil
		}
		return []effect.Effect{effect.SignVote{Vote: vote}}, cont, nil

	case round.ScheduleTimeoutOutput:
		duration := d.timeoutDuration(out.Kind, d.state.Round)
		return []effect.Effect{effect.ScheduleTimeout{Kind: out.Kind, Round: d.state.Round, Duration: duration}}, nil, nil

	case round.DecideOutput:
		cert := d.buildCertificate(out.Round, out.ValueID)
		d.phase = Decided
		d.decidedCertificate = &cert
		return []effect.Effect{
			effect.Decide{Certificate: cert},
			effect.CancelAllTimeouts{},
		}, nil, nil

	case round.NewRoundOutput:
		effects, cont, err := d.enterRound(out.Round)
		return append([]effect.Effect{effect.ResetTimeouts{Round: out.Round}}, effects...), cont, err

	default:
		return nil, nil, fmt.Errorf("driver: unexpected round output type %T", output)
	}
}

func (d *Driver) enterRound(r tm.Round) ([]effect.Effect, effect.Continuation, error) {
	isProposer := d.scheduler.Propose(d.validators, d.height, r) == d.whoami

	if !isProposer {
		return d.runRoundInput(round.NewRoundInput{Round: r, IsProposer: false})
	}

	if d.state.Valid != nil {
		proposal, ok := d.proposalForValue(d.state.Valid.Round, d.state.Valid.ValueID)
		if !ok {
			return nil, nil, tm.NewFatalError("driver: valid value at round %v has no cached proposal", d.state.Valid.Round)
		}
		return d.runRoundInput(round.NewRoundInput{Round: r, IsProposer: true, ValueToPropose: proposal.Value})
	}

	deadline := time.Now().Add(d.timeoutDuration(round.TimeoutPropose, r))
	cont := func(res effect.Resume) ([]effect.Effect, effect.Continuation, error) {
		proposed, ok := res.(effect.ValueProposed)
		if !ok {
			return nil, nil, tm.NewFatalError("driver: expected ValueProposed resume, got %T", res)
		}
		return d.runRoundInput(round.NewRoundInput{Round: r, IsProposer: true, ValueToPropose: proposed.Value})
	}
	return []effect.Effect{effect.GetValue{Height: d.height, Round: r, Deadline: deadline}}, cont, nil
}

func (d *Driver) timeoutDuration(kind round.TimeoutKind, r tm.Round) time.Duration {
	switch kind {
	case round.TimeoutPropose:
		return tm.TimeoutFor(d.cfg.TimeoutPropose, d.cfg.TimeoutProposeDelta, r)
	case round.TimeoutPrevote:
		return tm.TimeoutFor(d.cfg.TimeoutPrevote, d.cfg.TimeoutPrevoteDelta, r)
	case round.TimeoutPrecommit:
		return tm.TimeoutFor(d.cfg.TimeoutPrecommit, d.cfg.TimeoutPrecommitDelta, r)
	default:
		panic(fmt.Errorf("invariant violation: unexpected timeout kind=%v", kind))
	}
}

func (d *Driver) buildCertificate(r tm.Round, valueID tm.ValueID) tm.CommitCertificate {
	sigs := d.precommitSigs[r][valueID]
	return tm.NewCommitCertificate(d.height, r, valueID, sigs)
}
