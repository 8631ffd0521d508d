package tm

import "fmt"

// CommitSig is a single validator's signature over a decided (height, round,
// valueID).
type CommitSig struct {
	VoterAddr Address   `json:"voterAddr"`
	Signature Signature `json:"signature"`
}

// CommitCertificate aggregates the precommit signatures that crossed the
// quorum threshold for (Height, Round, ValueID). Once constructed, a
// CommitCertificate is immutable and is sufficient on its own to convince
// any node that a decision occurred.
type CommitCertificate struct {
	Height      Height      `json:"height"`
	Round       Round       `json:"round"`
	ValueID     ValueID     `json:"valueId"`
	Signatures  []CommitSig `json:"signatures"`
}

// NewCommitCertificate builds a CommitCertificate from the precommits that
// crossed quorum for valueID. The caller must only call this once quorum
// has actually been reached; NewCommitCertificate does not itself check
// voting power.
func NewCommitCertificate(height Height, round Round, valueID ValueID, sigs []CommitSig) CommitCertificate {
	cp := make([]CommitSig, len(sigs))
	copy(cp, sigs)
	return CommitCertificate{Height: height, Round: round, ValueID: valueID, Signatures: cp}
}

// String implements fmt.Stringer.
func (c CommitCertificate) String() string {
	return fmt.Sprintf("CommitCertificate(Height=%v,Round=%v,ValueID=%v,NumSigs=%v)",
		c.Height, c.Round, ValueIDString(c.ValueID), len(c.Signatures))
}
