// Package tm defines the data model shared by the vote keeper, round state
// machine, and driver: heights, rounds, validators, votes, proposals, and
// commit certificates. See https://arxiv.org/pdf/1807.04938.pdf for the
// consensus algorithm these types support.
package tm

import "fmt"

// Height is the monotonically increasing index of the decision slot. It
// increments by one after each decision.
type Height int64

// Round is the attempt number within a Height. It starts at 0 for every new
// Height and increments on timeout or skip.
type Round int32

// NilRound marks "no round": the round a height's round state holds before
// its first round starts, and a Proposal's ValidRound when it claims no
// earlier polka. A vote for nil is marked by NilValueID, not by NilRound.
const NilRound = Round(-1)

// InvalidHeight is a sentinel for an uninitialized Height.
const InvalidHeight = Height(-1)

// String implements fmt.Stringer.
func (h Height) String() string {
	return fmt.Sprintf("%d", int64(h))
}

// String implements fmt.Stringer.
func (r Round) String() string {
	if r == NilRound {
		return "nil"
	}
	return fmt.Sprintf("%d", int32(r))
}
