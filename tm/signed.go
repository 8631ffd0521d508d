package tm

import (
	"bytes"
	"fmt"

	"github.com/renproject/id"
	"golang.org/x/crypto/sha3"
)

// Signature is the ECDSA signature over a signed message's SigHash.
type Signature = id.Signature

// SignedVote is a Vote together with the Signature of its voter.
type SignedVote struct {
	Vote      Vote      `json:"vote"`
	Signature Signature `json:"signature"`
}

// SigHash returns the digest that was/should be signed for this Vote.
func (sv SignedVote) SigHash() id.Hash {
	return sha3.Sum256([]byte(sv.Vote.String()))
}

// SignedProposal is a Proposal together with the Signature of its proposer.
type SignedProposal struct {
	Proposal  Proposal  `json:"proposal"`
	Signature Signature `json:"signature"`
}

// SigHash returns the digest that was/should be signed for this Proposal.
func (sp SignedProposal) SigHash() id.Hash {
	return sha3.Sum256([]byte(sp.Proposal.String()))
}

// String implements fmt.Stringer.
func (sv SignedVote) String() string {
	return fmt.Sprintf("Signed(%v)", sv.Vote)
}

// String implements fmt.Stringer.
func (sp SignedProposal) String() string {
	return fmt.Sprintf("Signed(%v)", sp.Proposal)
}

// EqualSignature reports whether two Signatures are byte-identical.
func EqualSignature(a, b Signature) bool {
	return bytes.Equal(a[:], b[:])
}
