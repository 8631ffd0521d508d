package votekeeper_test

import (
	"github.com/renproject/id"

	"github.com/consensuslab/tmbft/tm"
	"github.com/consensuslab/tmbft/votekeeper"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func randomAddr() tm.Address {
	return id.NewPrivKey().Signatory()
}

var _ = Describe("Keeper", func() {

	Context("when four equally-weighted voters prevote the same value", func() {
		It("should fire PolkaValue exactly once, on the third vote", func() {
			k := votekeeper.NewKeeper(tm.DefaultThresholdParams())
			k.SetTotalPower(4)

			value := tm.Value("a block").ID()
			voters := []tm.Address{randomAddr(), randomAddr(), randomAddr(), randomAddr()}

			ev, err := k.ApplyVote(tm.NewPrevote(1, 0, value, voters[0]), 1, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(ev.Kind).To(Equal(votekeeper.NoEvent))

			ev, err = k.ApplyVote(tm.NewPrevote(1, 0, value, voters[1]), 1, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(ev.Kind).To(Equal(votekeeper.NoEvent))

			ev, err = k.ApplyVote(tm.NewPrevote(1, 0, value, voters[2]), 1, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(ev.Kind).To(Equal(votekeeper.PolkaValue))
			Expect(ev.ValueID).To(Equal(value))

			// A fourth vote for the same value must not re-fire the event.
			ev, err = k.ApplyVote(tm.NewPrevote(1, 0, value, voters[3]), 1, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(ev.Kind).To(Equal(votekeeper.NoEvent))
		})
	})

	Context("when prevotes split between a value and nil", func() {
		It("should fire PolkaAny once quorum prevote power is reached, without a PolkaValue or PolkaNil", func() {
			k := votekeeper.NewKeeper(tm.DefaultThresholdParams())
			k.SetTotalPower(4)

			value := tm.Value("a block").ID()
			voters := []tm.Address{randomAddr(), randomAddr(), randomAddr()}

			_, err := k.ApplyVote(tm.NewPrevote(1, 0, value, voters[0]), 1, 0)
			Expect(err).ToNot(HaveOccurred())

			_, err = k.ApplyVote(tm.NewPrevote(1, 0, value, voters[1]), 1, 0)
			Expect(err).ToNot(HaveOccurred())

			ev, err := k.ApplyVote(tm.NewPrevote(1, 0, tm.NilValueID, voters[2]), 1, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(ev.Kind).To(Equal(votekeeper.PolkaAny))
		})
	})

	Context("when a single vote crosses both a quorum threshold and the honest threshold at once", func() {
		It("should return the quorum event and keep the honest threshold available for a later vote", func() {
			k := votekeeper.NewKeeper(tm.DefaultThresholdParams())
			k.SetTotalPower(10)

			voters := []tm.Address{randomAddr(), randomAddr(), randomAddr(), randomAddr(), randomAddr()}
			valueX := tm.Value("x").ID()
			valueY := tm.Value("y").ID()
			valueZ := tm.Value("z").ID()

			// voters[0] alone crosses neither threshold.
			ev, err := k.ApplyVote(tm.NewPrevote(1, 5, valueX, voters[0]), 1, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(ev.Kind).To(Equal(votekeeper.NoEvent))

			// voters[1]'s weight pushes valueX's tally past quorum in the same
			// vote that pushes the round-5 honest tally past the skip-round
			// threshold. The quorum event must win, and the skip-round
			// threshold must NOT be burned on an event nobody received.
			ev, err = k.ApplyVote(tm.NewPrevote(1, 5, valueX, voters[1]), 6, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(ev.Kind).To(Equal(votekeeper.PolkaValue))
			Expect(ev.Round).To(Equal(tm.Round(5)))

			// voters[2] crosses no new quorum threshold (the first one met,
			// PolkaValue for valueX, has already fired), so the skip-round
			// event — still available because it was never falsely marked
			// fired back at voters[1]'s vote — fires now.
			ev, err = k.ApplyVote(tm.NewPrevote(1, 5, valueY, voters[2]), 1, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(ev.Kind).To(Equal(votekeeper.SkipRound))
			Expect(ev.Round).To(Equal(tm.Round(5)))

			// voters[3] finds every threshold it meets already fired.
			ev, err = k.ApplyVote(tm.NewPrevote(1, 5, valueZ, voters[3]), 1, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(ev.Kind).To(Equal(votekeeper.NoEvent))
		})
	})

	Context("when the same voter precommits twice for different values in a round", func() {
		It("should reject the second vote as an equivocation", func() {
			k := votekeeper.NewKeeper(tm.DefaultThresholdParams())
			k.SetTotalPower(4)

			voter := randomAddr()
			valueA := tm.Value("a").ID()
			valueB := tm.Value("b").ID()

			_, err := k.ApplyVote(tm.NewPrecommit(1, 0, valueA, voter), 1, 0)
			Expect(err).ToNot(HaveOccurred())

			_, err = k.ApplyVote(tm.NewPrecommit(1, 0, valueB, voter), 1, 0)
			Expect(err).To(HaveOccurred())
			Expect(tm.IsFatal(err)).To(BeFalse())
		})
	})

	Context("when a resend of an identical vote arrives", func() {
		It("should be rejected and leave the tally unchanged", func() {
			k := votekeeper.NewKeeper(tm.DefaultThresholdParams())
			k.SetTotalPower(4)

			voter := randomAddr()
			value := tm.Value("a").ID()

			_, err := k.ApplyVote(tm.NewPrecommit(1, 0, value, voter), 1, 0)
			Expect(err).ToNot(HaveOccurred())

			_, err = k.ApplyVote(tm.NewPrecommit(1, 0, value, voter), 1, 0)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("when enough weight to meet the honest threshold votes in a future round", func() {
		It("should fire SkipRound exactly once", func() {
			k := votekeeper.NewKeeper(tm.DefaultThresholdParams())
			k.SetTotalPower(8)

			value := tm.Value("a").ID()
			voters := []tm.Address{randomAddr(), randomAddr(), randomAddr()}

			ev, err := k.ApplyVote(tm.NewPrevote(1, 5, value, voters[0]), 1, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(ev.Kind).To(Equal(votekeeper.NoEvent))

			ev, err = k.ApplyVote(tm.NewPrevote(1, 5, value, voters[1]), 1, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(ev.Kind).To(Equal(votekeeper.NoEvent))

			ev, err = k.ApplyVote(tm.NewPrevote(1, 5, value, voters[2]), 1, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(ev.Kind).To(Equal(votekeeper.SkipRound))
			Expect(ev.Round).To(Equal(tm.Round(5)))
		})

		It("should not fire for a round at or before the current round", func() {
			k := votekeeper.NewKeeper(tm.DefaultThresholdParams())
			k.SetTotalPower(9)

			value := tm.Value("a").ID()
			voters := []tm.Address{randomAddr(), randomAddr(), randomAddr()}

			for _, voter := range voters {
				ev, err := k.ApplyVote(tm.NewPrevote(1, 2, value, voter), 1, 2)
				Expect(err).ToNot(HaveOccurred())
				Expect(ev.Kind).ToNot(Equal(votekeeper.SkipRound))
			}
		})
	})

	Context("when a vote carries zero voting power", func() {
		It("should be rejected", func() {
			k := votekeeper.NewKeeper(tm.DefaultThresholdParams())
			k.SetTotalPower(4)

			_, err := k.ApplyVote(tm.NewPrevote(1, 0, tm.NilValueID, randomAddr()), 0, 0)
			Expect(err).To(HaveOccurred())
		})
	})
})
