// Package tmbftutil provides the test doubles that exercise engine.Engine
// and driver.Driver against multi-validator scenarios: a fixed-value
// ValueBuilder, a static ValidatorSetSource, a recording Decider, and a
// MockBroadcaster that fans signed messages out to every validator's own
// Engine, with the same enable/disable-peer and simulated-latency controls
// a teacher-style network mock offers.
//
// Grounded on testutil/replica/replica.go's MockBlockIterator/MockValidator/
// MockObserver/MockBroadcaster quartet and testutil/replica/storage.go's
// MockPersistentStorage, generalized from one Shard's block storage to one
// chain's value/validator-set/decision hooks.
package tmbftutil

import (
	"crypto/rand"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/renproject/id"
	"github.com/renproject/phi"

	"github.com/consensuslab/tmbft/engine"
	"github.com/consensuslab/tmbft/tm"
)

// RandomChainID returns a random engine.ChainID, grounded on
// testutil_replica.RandomShard.
func RandomChainID() engine.ChainID {
	chain := engine.ChainID{}
	if _, err := rand.Read(chain[:]); err != nil {
		panic("tmbftutil: cannot read random bytes")
	}
	return chain
}

// MockValueBuilder always proposes the same Value, regardless of which
// chain/height/round asks.
type MockValueBuilder struct {
	Value tm.Value
}

// ProposeValue implements engine.ValueBuilder.
func (m MockValueBuilder) ProposeValue(engine.ChainID, tm.Height, tm.Round) (tm.Value, error) {
	return m.Value, nil
}

// MockValidatorSetSource always resolves to the same ValidatorSet,
// regardless of height, grounded on MockPersistentStorage's base-block
// lookups returning whatever signatories it was seeded with.
type MockValidatorSetSource struct {
	Validators tm.ValidatorSet
}

// ValidatorSet implements engine.ValidatorSetSource.
func (m MockValidatorSetSource) ValidatorSet(engine.ChainID, tm.Height) (tm.ValidatorSet, error) {
	return m.Validators, nil
}

// MockDecider records every CommitCertificate an Engine reports, grounded
// on MockObserver.DidCommitBlock's insert-into-storage side effect.
type MockDecider struct {
	mu      sync.Mutex
	decided map[engine.ChainID][]tm.CommitCertificate
}

// NewMockDecider returns an empty MockDecider.
func NewMockDecider() *MockDecider {
	return &MockDecider{decided: map[engine.ChainID][]tm.CommitCertificate{}}
}

// Decide implements engine.Decider.
func (m *MockDecider) Decide(chain engine.ChainID, certificate tm.CommitCertificate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decided[chain] = append(m.decided[chain], certificate)
}

// Decisions returns every CommitCertificate recorded for chain, in arrival
// order.
func (m *MockDecider) Decisions(chain engine.ChainID) []tm.CommitCertificate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tm.CommitCertificate, len(m.decided[chain]))
	copy(out, m.decided[chain])
	return out
}

// MockBroadcaster fans a signed vote/proposal out to every registered
// validator's Engine, simulating per-peer network latency and the ability
// to partition a validator out of the network, grounded directly on
// testutil_replica.MockBroadcaster's cons/active maps and
// phi.ParForAll(m.cons, ...) fan-out.
type MockBroadcaster struct {
	minLatency, maxLatency time.Duration

	mu      sync.RWMutex
	engines map[id.Signatory]engine.Engine
	active  map[id.Signatory]bool
}

// NewMockBroadcaster returns a MockBroadcaster with no peers registered;
// use Register to add one Engine per validator before Start-ing them.
// Latency of each delivery is drawn uniformly from [minLatency, maxLatency).
func NewMockBroadcaster(minLatency, maxLatency time.Duration) *MockBroadcaster {
	return &MockBroadcaster{
		minLatency: minLatency,
		maxLatency: maxLatency,
		engines:    map[id.Signatory]engine.Engine{},
		active:     map[id.Signatory]bool{},
	}
}

// Register adds sig's Engine to the network, enabled by default.
func (m *MockBroadcaster) Register(sig id.Signatory, e engine.Engine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engines[sig] = e
	m.active[sig] = true
}

// EnablePeer re-joins sig to the network.
func (m *MockBroadcaster) EnablePeer(sig id.Signatory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[sig] = true
}

// DisablePeer partitions sig out of the network: it neither sends nor
// receives until re-enabled.
func (m *MockBroadcaster) DisablePeer(sig id.Signatory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[sig] = false
}

// AsSigner binds the identity a subsequent Broadcast call is made on behalf
// of, so an offline sender's own messages can be suppressed the way
// testutil_replica.MockBroadcaster.Broadcast checks
// m.active[message.Message.Signatory()]. Callers construct one
// signerBroadcaster per validator via this method rather than sharing a
// single unbound MockBroadcaster across every engine.New call.
func (m *MockBroadcaster) AsSigner(sig id.Signatory) engine.Broadcaster {
	return &signerBroadcaster{mock: m, sig: sig}
}

type signerBroadcaster struct {
	mock *MockBroadcaster
	sig  id.Signatory
}

// Broadcast implements engine.Broadcaster by delivering to every active
// peer concurrently, each after its own simulated latency.
func (s *signerBroadcaster) Broadcast(chain engine.ChainID, vote *tm.SignedVote, proposal *tm.SignedProposal) {
	s.mock.mu.RLock()
	defer s.mock.mu.RUnlock()

	if !s.mock.active[s.sig] {
		return
	}
	phi.ParForAll(s.mock.engines, func(sig id.Signatory) {
		if !s.mock.active[sig] {
			return
		}
		s.mock.deliver(s.mock.engines[sig], chain, vote, proposal)
	})
}

func (m *MockBroadcaster) deliver(e engine.Engine, chain engine.ChainID, vote *tm.SignedVote, proposal *tm.SignedProposal) {
	if m.maxLatency > m.minLatency {
		time.Sleep(m.minLatency + time.Duration(mrand.Int63n(int64(m.maxLatency-m.minLatency))))
	} else if m.minLatency > 0 {
		time.Sleep(m.minLatency)
	}
	if vote != nil {
		e.HandleVote(chain, *vote)
	}
	if proposal != nil {
		e.HandleProposal(chain, *proposal, tm.Valid)
	}
}
