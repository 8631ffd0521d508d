// Package signing provides the signing back-end the driver suspends to via
// SignVote/SignProposal/VerifySignature effects (spec.md §6 "To the signing
// back-end"). The driver itself never touches a private key: it only holds
// public keys in the validator set.
//
// Grounded on muirglacier-id's process/message.go Sign/Verify, which signs
// and recovers over a message's SigHash using
// github.com/ethereum/go-ethereum/crypto's secp256k1 ECDSA implementation.
package signing

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/renproject/id"

	"github.com/consensuslab/tmbft/tm"
)

// Backend signs and verifies the messages a driver asks about. A Backend
// holds at most one private key: the local validator's.
type Backend interface {
	SignVote(vote tm.Vote) (tm.SignedVote, error)
	SignProposal(proposal tm.Proposal) (tm.SignedProposal, error)
	Verify(sigHash tm.ValueID, sig tm.Signature, signer tm.Address) error
}

// Secp256k1Backend implements Backend over go-ethereum's secp256k1 ECDSA
// functions, the same primitive the teacher's process messages sign with.
type Secp256k1Backend struct {
	privKey *id.PrivKey
}

// NewSecp256k1Backend returns a Backend that signs with privKey.
func NewSecp256k1Backend(privKey *id.PrivKey) *Secp256k1Backend {
	return &Secp256k1Backend{privKey: privKey}
}

// SignVote implements Backend.
func (b *Secp256k1Backend) SignVote(vote tm.Vote) (tm.SignedVote, error) {
	sigHash := tm.SignedVote{Vote: vote}.SigHash()
	sig, err := crypto.Sign(sigHash[:], (*ecdsa.PrivateKey)(b.privKey))
	if err != nil {
		return tm.SignedVote{}, fmt.Errorf("signing vote: %w", err)
	}
	var signature tm.Signature
	copy(signature[:], sig)
	return tm.SignedVote{Vote: vote, Signature: signature}, nil
}

// SignProposal implements Backend.
func (b *Secp256k1Backend) SignProposal(proposal tm.Proposal) (tm.SignedProposal, error) {
	sigHash := tm.SignedProposal{Proposal: proposal}.SigHash()
	sig, err := crypto.Sign(sigHash[:], (*ecdsa.PrivateKey)(b.privKey))
	if err != nil {
		return tm.SignedProposal{}, fmt.Errorf("signing proposal: %w", err)
	}
	var signature tm.Signature
	copy(signature[:], sig)
	return tm.SignedProposal{Proposal: proposal, Signature: signature}, nil
}

// Verify implements Backend by recovering the public key from sig over
// sigHash and checking it hashes to signer.
func (b *Secp256k1Backend) Verify(sigHash tm.ValueID, sig tm.Signature, signer tm.Address) error {
	pubKey, err := crypto.SigToPub(sigHash[:], sig[:])
	if err != nil {
		return fmt.Errorf("recovering public key: %w", err)
	}
	recovered := tm.NewAddress(*pubKey)
	if recovered != signer {
		return fmt.Errorf("bad signatory: expected=%v got=%v", signer, recovered)
	}
	return nil
}
