package driver_test

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/renproject/id"

	"github.com/consensuslab/tmbft/driver"
	"github.com/consensuslab/tmbft/effect"
	"github.com/consensuslab/tmbft/round"
	"github.com/consensuslab/tmbft/tm"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func newValidator() (*id.PrivKey, tm.Validator) {
	privKey := id.NewPrivKey()
	return privKey, tm.Validator{
		Address:   privKey.Signatory(),
		PublicKey: ecdsa.PublicKey(privKey.PublicKey),
		Power:     1,
	}
}

// signWith signs sigHash with privKey using the same secp256k1 primitive
// signing.Secp256k1Backend uses. These tests exercise the Effect contract
// directly rather than through a real Backend, keeping the focus on the
// multiplexer's sequencing rather than signature mechanics.
func signWith(privKey *id.PrivKey, sigHash tm.ValueID) tm.Signature {
	sig, err := crypto.Sign(sigHash[:], (*ecdsa.PrivateKey)(privKey))
	Expect(err).ToNot(HaveOccurred())
	var signature tm.Signature
	copy(signature[:], sig)
	return signature
}

// host plays the role of the code around a Driver: it resumes every
// suspension point inline (as a real application/signing backend must, to
// keep one input's continuation chain advancing to completion per
// spec.md §5), but defers Broadcast messages to a queue and only loops
// them back into HandleVote/HandleProposal once the Driver has gone idle
// again — mirroring a real host, where a synchronous re-entry into the
// Driver mid-continuation-chain is never correct.
type host struct {
	d              *driver.Driver
	privKey        *id.PrivKey
	validators     tm.ValidatorSet
	value          tm.Value
	decided        bool
	broadcastQueue []effect.Effect
}

func newHost(d *driver.Driver, privKey *id.PrivKey, validators tm.ValidatorSet, value tm.Value) *host {
	return &host{d: d, privKey: privKey, validators: validators, value: value}
}

func (h *host) drain(pending []effect.Effect) {
	for len(pending) > 0 {
		e := pending[0]
		pending = pending[1:]

		switch ev := e.(type) {
		case effect.GetValidatorSet:
			more, _, err := h.d.Resume(effect.ValidatorSetResolved{Validators: h.validators})
			Expect(err).ToNot(HaveOccurred())
			pending = append(more, pending...)

		case effect.GetValue:
			more, _, err := h.d.Resume(effect.ValueProposed{Value: h.value})
			Expect(err).ToNot(HaveOccurred())
			pending = append(more, pending...)

		case effect.SignProposal:
			sigHash := tm.SignedProposal{Proposal: ev.Proposal}.SigHash()
			signed := tm.SignedProposal{Proposal: ev.Proposal, Signature: signWith(h.privKey, sigHash)}
			more, _, err := h.d.Resume(effect.ProposalSigned{SignedProposal: signed})
			Expect(err).ToNot(HaveOccurred())
			pending = append(more, pending...)

		case effect.SignVote:
			sigHash := tm.SignedVote{Vote: ev.Vote}.SigHash()
			signed := tm.SignedVote{Vote: ev.Vote, Signature: signWith(h.privKey, sigHash)}
			more, _, err := h.d.Resume(effect.VoteSigned{SignedVote: signed})
			Expect(err).ToNot(HaveOccurred())
			pending = append(more, pending...)

		case effect.VerifySignature:
			more, _, err := h.d.Resume(effect.SignatureVerified{Valid: true})
			Expect(err).ToNot(HaveOccurred())
			pending = append(more, pending...)

		case effect.Broadcast:
			h.broadcastQueue = append(h.broadcastQueue, ev)

		case effect.Decide:
			h.decided = true
		}
	}
}

// run drains effects to completion, then loops back every Broadcast that
// accumulated, draining each of those to completion in turn, until nothing
// is left to deliver. Once fully idle, it also replays any messages that
// were queued for this height while the previous one was still running.
func (h *host) run(effects []effect.Effect) {
	h.drain(effects)
	if !h.d.Suspended() {
		h.drain(h.d.DrainQueued())
	}
	for len(h.broadcastQueue) > 0 {
		b := h.broadcastQueue[0].(effect.Broadcast)
		h.broadcastQueue = h.broadcastQueue[1:]

		if h.d.Phase() == driver.Decided {
			continue
		}

		var more []effect.Effect
		var err error
		if b.Vote != nil {
			more, _, err = h.d.HandleVote(*b.Vote)
		} else {
			more, _, err = h.d.HandleProposal(*b.Proposal, tm.Valid)
		}
		Expect(err).ToNot(HaveOccurred())
		h.drain(more)
	}
}

var _ = Describe("Driver", func() {

	Context("when a single validator runs a height alone", func() {
		It("should decide the value it proposes to itself", func() {
			privKey, validator := newValidator()
			validators := tm.NewValidatorSet([]tm.Validator{validator})
			cfg := tm.DefaultConfig()
			d := driver.New(validator.Address, cfg, driver.RoundRobinScheduler{})

			value := tm.Value("block one")
			h := newHost(d, privKey, validators, value)

			effects, suspended, err := d.StartHeight(1)
			Expect(err).ToNot(HaveOccurred())
			Expect(suspended).To(BeTrue())

			h.run(effects)

			Expect(h.decided).To(BeTrue())
			Expect(d.Phase()).To(Equal(driver.Decided))
			Expect(d.Decided()).ToNot(BeNil())
			Expect(d.Decided().ValueID).To(Equal(value.ID()))
			Expect(d.Decided().Height).To(Equal(tm.Height(1)))
			Expect(d.Decided().Signatures).To(HaveLen(1))
		})
	})

	Context("when StartHeight is called again for a height that has already decided", func() {
		It("should return an out-of-order error", func() {
			privKey, validator := newValidator()
			validators := tm.NewValidatorSet([]tm.Validator{validator})
			cfg := tm.DefaultConfig()
			d := driver.New(validator.Address, cfg, driver.RoundRobinScheduler{})
			h := newHost(d, privKey, validators, tm.Value("x"))

			effects, _, err := d.StartHeight(1)
			Expect(err).ToNot(HaveOccurred())
			h.run(effects)
			Expect(h.decided).To(BeTrue())

			_, _, err = d.StartHeight(1)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("when a vote for the next height arrives after the current one has decided", func() {
		It("should queue it without error and tolerate it harmlessly on replay", func() {
			privKey, validator := newValidator()
			validators := tm.NewValidatorSet([]tm.Validator{validator})
			cfg := tm.DefaultConfig()
			d := driver.New(validator.Address, cfg, driver.RoundRobinScheduler{})
			h := newHost(d, privKey, validators, tm.Value("first"))

			effects, _, err := d.StartHeight(1)
			Expect(err).ToNot(HaveOccurred())
			h.run(effects)
			Expect(d.Phase()).To(Equal(driver.Decided))

			// Deliberately not a member of the validator set: replay at
			// height 2 must discard it quietly rather than block the
			// single real validator from deciding alone.
			otherKey := id.NewPrivKey()
			futureVote := tm.NewPrevote(2, 0, tm.NilValueID, otherKey.Signatory())
			sigHash := tm.SignedVote{Vote: futureVote}.SigHash()
			signedFuture := tm.SignedVote{Vote: futureVote, Signature: signWith(otherKey, sigHash)}

			_, suspended, err := d.HandleVote(signedFuture)
			Expect(err).ToNot(HaveOccurred())
			Expect(suspended).To(BeFalse())

			h.value = tm.Value("second")
			effects, _, err = d.StartHeight(2)
			Expect(err).ToNot(HaveOccurred())
			h.run(effects)

			Expect(d.Height()).To(Equal(tm.Height(2)))
			Expect(d.Phase()).To(Equal(driver.Decided))
		})
	})

	Context("when a non-proposer enters a round", func() {
		It("should schedule a propose timeout instead of proposing", func() {
			_, validator := newValidator()
			second := id.NewPrivKey()
			secondValidator := tm.Validator{Address: second.Signatory(), PublicKey: ecdsa.PublicKey(second.PublicKey), Power: 1}
			validators := tm.NewValidatorSet([]tm.Validator{validator, secondValidator})
			cfg := tm.DefaultConfig()

			proposerAddr := driver.RoundRobinScheduler{}.Propose(validators, 1, 0)
			whoami := validator.Address
			if proposerAddr == whoami {
				whoami = secondValidator.Address
			}
			d := driver.New(whoami, cfg, driver.RoundRobinScheduler{})

			effects, suspended, err := d.StartHeight(1)
			Expect(err).ToNot(HaveOccurred())
			Expect(suspended).To(BeTrue())

			resolved, _, err := d.Resume(effect.ValidatorSetResolved{Validators: validators})
			Expect(err).ToNot(HaveOccurred())

			var sawSchedule bool
			for _, e := range resolved {
				if se, ok := e.(effect.ScheduleTimeout); ok && se.Kind == round.TimeoutPropose {
					sawSchedule = true
				}
			}
			Expect(sawSchedule).To(BeTrue())
		})
	})
})
