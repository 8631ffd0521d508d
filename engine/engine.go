// Package engine is the top-level type that owns one driver.Driver per
// chain, the way hyperdrive.go owns one replica.Replica per Shard (spec.md
// §9 "multiple heights or multiple chains can coexist by holding
// independent Driver instances"). It is the one place this module starts
// goroutines: every owned chain advances independently and concurrently,
// while each driver.Driver itself stays single-threaded.
//
// Grounded on hyperdrive.go's hyperdrive struct (map[Shard]Replica, New,
// Start, HandleMessage) and on replica/replica.go's per-replica
// construction of a signer/scheduler/catcher around one process.Process.
package engine

import (
	"github.com/renproject/phi"
	"github.com/sirupsen/logrus"

	"github.com/consensuslab/tmbft/driver"
	"github.com/consensuslab/tmbft/effect"
	"github.com/consensuslab/tmbft/signing"
	"github.com/consensuslab/tmbft/timer"
	"github.com/consensuslab/tmbft/tm"
	"github.com/consensuslab/tmbft/walmock"
)

// ValueBuilder is asked for the value to propose when a chain's driver
// suspends on effect.GetValue, grounded on proc.Proposer/replica.BlockStorage.
type ValueBuilder interface {
	ProposeValue(chain ChainID, height tm.Height, round tm.Round) (tm.Value, error)
}

// ValidatorSetSource resolves the validator set for a height, grounded on
// replica.BlockStorage's base-block lookups.
type ValidatorSetSource interface {
	ValidatorSet(chain ChainID, height tm.Height) (tm.ValidatorSet, error)
}

// Decider is notified once a chain decides a height, grounded on
// proc.Committer.
type Decider interface {
	Decide(chain ChainID, certificate tm.CommitCertificate)
}

// Broadcaster sends a signed vote or proposal to every other participant on
// chain, grounded on replica.Broadcaster.
type Broadcaster interface {
	Broadcast(chain ChainID, vote *tm.SignedVote, proposal *tm.SignedProposal)
}

// Options parameterises every Chain an Engine hosts.
type Options struct {
	Logger    logrus.FieldLogger
	Config    tm.Config
	Scheduler driver.Scheduler
	WAL       walmock.WAL
}

func (o *Options) setZerosToDefaults() {
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.Scheduler == nil {
		o.Scheduler = driver.RoundRobinScheduler{}
	}
	if o.WAL == nil {
		o.WAL = walmock.NewMemoryWAL()
	}
}

// Engine manages multiple Chains, one Driver per ChainID, grounded directly
// on hyperdrive.go's hyperdrive struct.
type Engine interface {
	Start()
	HandleVote(chain ChainID, vote tm.SignedVote)
	HandleProposal(chain ChainID, proposal tm.SignedProposal, validity tm.Validity)
	HandleTimeoutElapsed(chain ChainID, elapsed timer.Elapsed)
}

type engine struct {
	chains map[ChainID]*chainHost
}

// New returns an Engine hosting one Chain per entry in chains, all signed
// through backend, mirroring hyperdrive.New's one-Replica-per-Shard
// construction loop.
func New(
	options Options,
	whoami tm.Address,
	backend signing.Backend,
	timerService timer.Service,
	values ValueBuilder,
	validators ValidatorSetSource,
	decider Decider,
	broadcaster Broadcaster,
	chains []ChainID,
) Engine {
	options.setZerosToDefaults()
	hosts := make(map[ChainID]*chainHost, len(chains))
	for _, chain := range chains {
		hosts[chain] = newChainHost(chain, options, whoami, backend, timerService, values, validators, decider, broadcaster)
	}
	return &engine{chains: hosts}
}

// Start begins height 1 on every owned Chain concurrently, grounded on
// hyperdrive.Start's phi.ParForAll(hyper.replicas, ...) fan-out.
func (e *engine) Start() {
	phi.ParForAll(e.chains, func(chain ChainID) {
		host := e.chains[chain]
		host.start()
	})
}

// HandleVote routes vote to the named chain's host, if owned.
func (e *engine) HandleVote(chain ChainID, vote tm.SignedVote) {
	host, ok := e.chains[chain]
	if !ok {
		return
	}
	host.handleVote(vote)
}

// HandleProposal routes proposal to the named chain's host, if owned.
func (e *engine) HandleProposal(chain ChainID, proposal tm.SignedProposal, validity tm.Validity) {
	host, ok := e.chains[chain]
	if !ok {
		return
	}
	host.handleProposal(proposal, validity)
}

// HandleTimeoutElapsed routes elapsed to the named chain's host, if owned.
func (e *engine) HandleTimeoutElapsed(chain ChainID, elapsed timer.Elapsed) {
	host, ok := e.chains[chain]
	if !ok {
		return
	}
	host.handleTimeoutElapsed(elapsed)
}
