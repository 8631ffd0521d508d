package tm

import "fmt"

// Proposal is a proposed Value for a given Height and Round. ValidRound is
// NilRound unless a polka for Value was observed at a prior round (the
// Tendermint "POLC"), in which case it names that round.
type Proposal struct {
	Height          Height  `json:"height"`
	Round           Round   `json:"round"`
	Value           Value   `json:"value"`
	ValidRound      Round   `json:"validRound"`
	ProposerAddress Address `json:"proposerAddress"`
}

// NewProposal builds a Proposal with ValidRound set to NilRound (a "fresh"
// proposal, as opposed to one re-proposing a value that already polka'd).
func NewProposal(height Height, round Round, value Value, proposer Address) Proposal {
	return Proposal{Height: height, Round: round, Value: value, ValidRound: NilRound, ProposerAddress: proposer}
}

// ValueID returns the digest of the proposed Value.
func (p Proposal) ValueID() ValueID {
	return p.Value.ID()
}

// String implements fmt.Stringer.
func (p Proposal) String() string {
	return fmt.Sprintf("Proposal(Height=%v,Round=%v,ValueID=%v,ValidRound=%v,Proposer=%v)",
		p.Height, p.Round, ValueIDString(p.ValueID()), p.ValidRound, p.ProposerAddress)
}

// Equal compares two Proposals field-by-field.
func (p Proposal) Equal(other Proposal) bool {
	return p.Height == other.Height &&
		p.Round == other.Round &&
		string(p.Value) == string(other.Value) &&
		p.ValidRound == other.ValidRound &&
		p.ProposerAddress == other.ProposerAddress
}

// Validity is the application's verdict on whether a proposed Value may be
// prevoted for.
type Validity uint8

// Enumerate the Validity verdicts.
const (
	Valid Validity = iota + 1
	Invalid
)
