// Package tmbft re-exports the public surface of a Tendermint-style
// byzantine fault tolerant consensus core: the round state machine in
// package round, the per-round vote tally in package votekeeper, the
// multiplexing driver in package driver, the effect/resume coroutine
// contract in package effect, and the multi-chain host in package engine.
// Callers that only need to construct and run an Engine can import this
// package alone.
//
// See package driver for the core consensus multiplexer.
//
// See package engine for the multi-chain host wrapped around one driver per
// chain.
//
// See package tm for the definition of Values, Proposals, Votes and their
// related data types.
package tmbft

import (
	"github.com/renproject/id"

	"github.com/consensuslab/tmbft/driver"
	"github.com/consensuslab/tmbft/effect"
	"github.com/consensuslab/tmbft/engine"
	"github.com/consensuslab/tmbft/signing"
	"github.com/consensuslab/tmbft/timer"
	"github.com/consensuslab/tmbft/tm"
)

type (
	// Hashes is a wrapper around the []Hash type.
	Hashes = id.Hashes
	// A Hash is the [32]byte output of a hashing function.
	Hash = id.Hash
	// Signatures is a wrapper around the []Signature type.
	Signatures = id.Signatures
	// A Signature is the [65]byte output of an ECDSA signing algorithm; tmbft
	// uses the secp256k1 curve for ECDSA signing.
	Signature = id.Signature
	// Signatories is a wrapper around the []Signatory type.
	Signatories = id.Signatories
	// A Signatory is the [32]byte resulting from hashing an ECDSA public key.
	Signatory = id.Signatory
)

type (
	// Height is the height in a chain at which a Value is proposed/decided.
	Height = tm.Height
	// Round is the round within a Height at which a Value is
	// proposed/decided.
	Round = tm.Round
	// Address identifies a validator.
	Address = tm.Address
	// Addresses is a wrapper around the []Address type.
	Addresses = tm.Addresses
	// Value is the opaque, application-defined payload consensus is reached
	// over.
	Value = tm.Value
	// ValueID is the digest of a Value.
	ValueID = tm.ValueID
	// Validator is one weighted member of a ValidatorSet.
	Validator = tm.Validator
	// ValidatorSet is the weighted set of validators for a Height.
	ValidatorSet = tm.ValidatorSet
	// Proposal names the Value a proposer wants the current round to decide.
	Proposal = tm.Proposal
	// Vote is a prevote or precommit cast by one validator.
	Vote = tm.Vote
	// SignedProposal pairs a Proposal with the proposer's Signature.
	SignedProposal = tm.SignedProposal
	// SignedVote pairs a Vote with the voter's Signature.
	SignedVote = tm.SignedVote
	// Validity is the application's verdict on a proposed Value.
	Validity = tm.Validity
	// CommitCertificate aggregates the precommits a Height decided on.
	CommitCertificate = tm.CommitCertificate
	// Config enumerates every timing and threshold parameter the driver and
	// round state machine need.
	Config = tm.Config
	// ConsensusError classifies every error the driver and round state
	// machine can return.
	ConsensusError = tm.ConsensusError
)

type (
	// Effect is one action a Driver asks its host to perform.
	Effect = effect.Effect
	// Resume delivers the result of a suspended Effect back into a Driver.
	Resume = effect.Resume
)

type (
	// Driver multiplexes vote-keeper threshold events, proposals, and
	// timeouts for one chain's consensus into round state transitions.
	Driver = driver.Driver
	// Scheduler selects the proposer for a given height/round.
	Scheduler = driver.Scheduler
)

type (
	// Backend signs and verifies Proposals and Votes on a Driver's behalf.
	Backend = signing.Backend
	// Secp256k1Backend is a Backend backed by an ECDSA secp256k1 key.
	Secp256k1Backend = signing.Secp256k1Backend
)

type (
	// TimerService schedules and cancels round timeouts.
	TimerService = timer.Service
	// TimeoutElapsed is delivered back to a Driver once a scheduled deadline
	// passes.
	TimeoutElapsed = timer.Elapsed
	// LinearTimer is a TimerService backed by time.AfterFunc.
	LinearTimer = timer.LinearTimer
)

type (
	// Engine manages multiple chains, one Driver per ChainID.
	Engine = engine.Engine
	// ChainID uniquely identifies a chain hosted by an Engine.
	ChainID = engine.ChainID
	// EngineOptions parameterises every chain an Engine hosts.
	EngineOptions = engine.Options
	// ValueBuilder is asked for the Value to propose when a chain's Driver
	// suspends on a GetValue Effect.
	ValueBuilder = engine.ValueBuilder
	// ValidatorSetSource resolves the ValidatorSet for a Height.
	ValidatorSetSource = engine.ValidatorSetSource
	// Decider is notified once a chain decides a Height.
	Decider = engine.Decider
	// Broadcaster sends a SignedVote or SignedProposal to every other
	// participant on a chain.
	Broadcaster = engine.Broadcaster
)

var (
	// NewEngine returns an Engine hosting one chain per entry in chains, all
	// signed through backend.
	NewEngine = engine.New
	// NewSecp256k1Backend returns a Backend signing with privKey.
	NewSecp256k1Backend = signing.NewSecp256k1Backend
	// NewLinearTimer returns a LinearTimer whose Elapsed channel has
	// capacity bufferSize.
	NewLinearTimer = timer.NewLinearTimer
	// NewDriver returns a Driver for one chain, starting at height 0
	// (Unstarted).
	NewDriver = driver.New
	// NewValidatorSet builds a ValidatorSet from an unordered slice of
	// Validators.
	NewValidatorSet = tm.NewValidatorSet
	// DefaultConfig returns sensible Config defaults matching the canonical
	// 2/3-1/3 threshold regime.
	DefaultConfig = tm.DefaultConfig
)

const (
	// ValidValue is the Validity verdict for a Value the application accepts.
	ValidValue = tm.Valid
	// InvalidValue is the Validity verdict for a Value the application
	// rejects.
	InvalidValue = tm.Invalid
)
