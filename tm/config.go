package tm

import "time"

// ValuePayloadMode names whether a Proposal carries its Value inline or
// by reference to a separately-streamed set of parts. The setting is
// recorded in Config only: the driver does not read it, and every Proposal
// it handles is treated as carrying its full Value inline (ProposalOnly).
type ValuePayloadMode uint8

// Enumerate the ValuePayloadMode options (spec.md §6).
const (
	// ProposalOnly means the Proposal message itself carries the full Value.
	ProposalOnly ValuePayloadMode = iota + 1
	// PartsOnly names a Value that arrives out-of-band. The driver has no
	// input for a separately delivered value.
	PartsOnly
	// ProposalAndParts names the use of both channels. The driver has no
	// input for a separately delivered value.
	ProposalAndParts
)

// Config enumerates every timing and threshold parameter the driver and
// round state machine need (spec.md §6 "Configuration (enumerated)").
type Config struct {
	TimeoutPropose   time.Duration
	TimeoutPrevote   time.Duration
	TimeoutPrecommit time.Duration
	// TimeoutCommit optionally gates entry into the next height after a
	// Decide (spec.md §9 Open Question #1). Zero means "no gate": the engine's
	// chain host starts the next height immediately.
	TimeoutCommit time.Duration

	TimeoutProposeDelta   time.Duration
	TimeoutPrevoteDelta   time.Duration
	TimeoutPrecommitDelta time.Duration

	Threshold ThresholdParams

	ValuePayload ValuePayloadMode
}

// DefaultConfig returns sensible defaults matching the reference
// implementation's timing and the canonical 2/3-1/3 threshold regime.
func DefaultConfig() Config {
	return Config{
		TimeoutPropose:        3 * time.Second,
		TimeoutPrevote:        1 * time.Second,
		TimeoutPrecommit:      1 * time.Second,
		TimeoutCommit:         0,
		TimeoutProposeDelta:   500 * time.Millisecond,
		TimeoutPrevoteDelta:   500 * time.Millisecond,
		TimeoutPrecommitDelta: 500 * time.Millisecond,
		Threshold:             DefaultThresholdParams(),
		ValuePayload:          ProposalOnly,
	}
}

// TimeoutFor returns the timeout duration for the given base timeout and
// round, applying the per-round linear increment (spec.md §6
// "timeout_{propose,prevote,precommit}_delta").
func TimeoutFor(base, delta time.Duration, round Round) time.Duration {
	if round <= 0 {
		return base
	}
	return base + time.Duration(int64(round))*delta
}
