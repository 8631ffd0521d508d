package tm

import (
	"fmt"
	"math/bits"
)

// ThresholdParam is a strict fraction (numerator/denominator) of total
// voting power. IsMet uses cross-multiplication rather than floating point
// division, and checks for overflow explicitly, matching the reference
// definition: weight/total > numerator/denominator  <=>  weight*denominator
// > total*numerator.
type ThresholdParam struct {
	Numerator   uint64
	Denominator uint64
}

// IsMet reports whether weight out of total voting power strictly exceeds
// the threshold fraction. It panics on multiplication overflow rather than
// silently wrapping, since an overflowing vote tally is a Fatal invariant
// violation (spec.md §7), not a recoverable input error.
func (t ThresholdParam) IsMet(weight, total uint64) bool {
	lhs, lhsOverflow := mulUint64(weight, t.Denominator)
	rhs, rhsOverflow := mulUint64(total, t.Numerator)
	if lhsOverflow || rhsOverflow {
		panic(fmt.Errorf("invariant violation: threshold comparison overflowed (weight=%d total=%d param=%d/%d)",
			weight, total, t.Numerator, t.Denominator))
	}
	return lhs > rhs
}

// MinExpected returns the minimum weight required to meet the threshold
// against the given total voting power.
func (t ThresholdParam) MinExpected(total uint64) uint64 {
	num, overflow := mulUint64(total, t.Numerator)
	if overflow {
		panic(fmt.Errorf("invariant violation: threshold min-expected overflowed (total=%d param=%d/%d)",
			total, t.Numerator, t.Denominator))
	}
	return num/t.Denominator + 1
}

func mulUint64(a, b uint64) (product uint64, overflow bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi != 0
}

// ThresholdParams bundles the quorum and honest thresholds used by the vote
// keeper: quorum for safety events (polka, commit), honest for liveness
// events (skip-round).
type ThresholdParams struct {
	Quorum ThresholdParam
	Honest ThresholdParam
}

// DefaultThresholdParams is the canonical Tendermint regime: quorum = 2/3,
// honest = 1/3 of total voting power.
func DefaultThresholdParams() ThresholdParams {
	return ThresholdParams{
		Quorum: ThresholdParam{Numerator: 2, Denominator: 3},
		Honest: ThresholdParam{Numerator: 1, Denominator: 3},
	}
}

// ByzantineThresholdParams is the alternative regime for 5-of-5 setups:
// quorum = 2/5, honest = 1/5 of total voting power (spec.md §6).
func ByzantineThresholdParams() ThresholdParams {
	return ThresholdParams{
		Quorum: ThresholdParam{Numerator: 2, Denominator: 5},
		Honest: ThresholdParam{Numerator: 1, Denominator: 5},
	}
}
