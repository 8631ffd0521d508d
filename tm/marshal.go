package tm

import (
	"io"

	"github.com/renproject/surge"
)

// SizeHint implements the surge.Marshaler size estimate for Vote.
func (v Vote) SizeHint() int {
	return surge.SizeHint(uint8(v.Type)) +
		surge.SizeHint(int64(v.Height)) +
		surge.SizeHint(int32(v.Round)) +
		surge.SizeHint(v.ValueID) +
		surge.SizeHint(v.VoterAddr)
}

// Marshal implements surge.Marshaler for Vote.
func (v Vote) Marshal(w io.Writer, m int) (int, error) {
	m, err := surge.Marshal(w, uint8(v.Type), m)
	if err != nil {
		return m, err
	}
	if m, err = surge.Marshal(w, int64(v.Height), m); err != nil {
		return m, err
	}
	if m, err = surge.Marshal(w, int32(v.Round), m); err != nil {
		return m, err
	}
	if m, err = surge.Marshal(w, v.ValueID, m); err != nil {
		return m, err
	}
	return surge.Marshal(w, v.VoterAddr, m)
}

// Unmarshal implements surge.Unmarshaler for Vote.
func (v *Vote) Unmarshal(r io.Reader, m int) (int, error) {
	var kind uint8
	m, err := surge.Unmarshal(r, &kind, m)
	if err != nil {
		return m, err
	}
	v.Type = VoteType(kind)

	var height int64
	if m, err = surge.Unmarshal(r, &height, m); err != nil {
		return m, err
	}
	v.Height = Height(height)

	var round int32
	if m, err = surge.Unmarshal(r, &round, m); err != nil {
		return m, err
	}
	v.Round = Round(round)

	if m, err = surge.Unmarshal(r, &v.ValueID, m); err != nil {
		return m, err
	}
	return surge.Unmarshal(r, &v.VoterAddr, m)
}

// SizeHint implements the surge.Marshaler size estimate for SignedVote.
func (sv SignedVote) SizeHint() int {
	return surge.SizeHint(sv.Vote) + surge.SizeHint(sv.Signature)
}

// Marshal implements surge.Marshaler for SignedVote.
func (sv SignedVote) Marshal(w io.Writer, m int) (int, error) {
	m, err := surge.Marshal(w, sv.Vote, m)
	if err != nil {
		return m, err
	}
	return surge.Marshal(w, sv.Signature, m)
}

// Unmarshal implements surge.Unmarshaler for SignedVote.
func (sv *SignedVote) Unmarshal(r io.Reader, m int) (int, error) {
	m, err := surge.Unmarshal(r, &sv.Vote, m)
	if err != nil {
		return m, err
	}
	return surge.Unmarshal(r, &sv.Signature, m)
}

// SizeHint implements the surge.Marshaler size estimate for Proposal.
func (p Proposal) SizeHint() int {
	return surge.SizeHint(int64(p.Height)) +
		surge.SizeHint(int32(p.Round)) +
		surge.SizeHint([]byte(p.Value)) +
		surge.SizeHint(int32(p.ValidRound)) +
		surge.SizeHint(p.ProposerAddress)
}

// Marshal implements surge.Marshaler for Proposal.
func (p Proposal) Marshal(w io.Writer, m int) (int, error) {
	m, err := surge.Marshal(w, int64(p.Height), m)
	if err != nil {
		return m, err
	}
	if m, err = surge.Marshal(w, int32(p.Round), m); err != nil {
		return m, err
	}
	if m, err = surge.Marshal(w, []byte(p.Value), m); err != nil {
		return m, err
	}
	if m, err = surge.Marshal(w, int32(p.ValidRound), m); err != nil {
		return m, err
	}
	return surge.Marshal(w, p.ProposerAddress, m)
}

// Unmarshal implements surge.Unmarshaler for Proposal.
func (p *Proposal) Unmarshal(r io.Reader, m int) (int, error) {
	var height int64
	m, err := surge.Unmarshal(r, &height, m)
	if err != nil {
		return m, err
	}
	p.Height = Height(height)

	var round int32
	if m, err = surge.Unmarshal(r, &round, m); err != nil {
		return m, err
	}
	p.Round = Round(round)

	var value []byte
	if m, err = surge.Unmarshal(r, &value, m); err != nil {
		return m, err
	}
	p.Value = Value(value)

	var validRound int32
	if m, err = surge.Unmarshal(r, &validRound, m); err != nil {
		return m, err
	}
	p.ValidRound = Round(validRound)

	return surge.Unmarshal(r, &p.ProposerAddress, m)
}

// SizeHint implements the surge.Marshaler size estimate for SignedProposal.
func (sp SignedProposal) SizeHint() int {
	return surge.SizeHint(sp.Proposal) + surge.SizeHint(sp.Signature)
}

// Marshal implements surge.Marshaler for SignedProposal.
func (sp SignedProposal) Marshal(w io.Writer, m int) (int, error) {
	m, err := surge.Marshal(w, sp.Proposal, m)
	if err != nil {
		return m, err
	}
	return surge.Marshal(w, sp.Signature, m)
}

// Unmarshal implements surge.Unmarshaler for SignedProposal.
func (sp *SignedProposal) Unmarshal(r io.Reader, m int) (int, error) {
	m, err := surge.Unmarshal(r, &sp.Proposal, m)
	if err != nil {
		return m, err
	}
	return surge.Unmarshal(r, &sp.Signature, m)
}

// SizeHint implements the surge.Marshaler size estimate for CommitSig.
func (c CommitSig) SizeHint() int {
	return surge.SizeHint(c.VoterAddr) + surge.SizeHint(c.Signature)
}

// Marshal implements surge.Marshaler for CommitSig.
func (c CommitSig) Marshal(w io.Writer, m int) (int, error) {
	m, err := surge.Marshal(w, c.VoterAddr, m)
	if err != nil {
		return m, err
	}
	return surge.Marshal(w, c.Signature, m)
}

// Unmarshal implements surge.Unmarshaler for CommitSig.
func (c *CommitSig) Unmarshal(r io.Reader, m int) (int, error) {
	m, err := surge.Unmarshal(r, &c.VoterAddr, m)
	if err != nil {
		return m, err
	}
	return surge.Unmarshal(r, &c.Signature, m)
}

// SizeHint implements the surge.Marshaler size estimate for
// CommitCertificate.
func (c CommitCertificate) SizeHint() int {
	n := surge.SizeHint(int64(c.Height)) + surge.SizeHint(int32(c.Round)) + surge.SizeHint(c.ValueID)
	n += surge.SizeHint(uint64(len(c.Signatures)))
	for _, sig := range c.Signatures {
		n += surge.SizeHint(sig)
	}
	return n
}

// Marshal implements surge.Marshaler for CommitCertificate.
func (c CommitCertificate) Marshal(w io.Writer, m int) (int, error) {
	m, err := surge.Marshal(w, int64(c.Height), m)
	if err != nil {
		return m, err
	}
	if m, err = surge.Marshal(w, int32(c.Round), m); err != nil {
		return m, err
	}
	if m, err = surge.Marshal(w, c.ValueID, m); err != nil {
		return m, err
	}
	if m, err = surge.Marshal(w, uint64(len(c.Signatures)), m); err != nil {
		return m, err
	}
	for _, sig := range c.Signatures {
		if m, err = surge.Marshal(w, sig, m); err != nil {
			return m, err
		}
	}
	return m, nil
}

// Unmarshal implements surge.Unmarshaler for CommitCertificate.
func (c *CommitCertificate) Unmarshal(r io.Reader, m int) (int, error) {
	var height int64
	m, err := surge.Unmarshal(r, &height, m)
	if err != nil {
		return m, err
	}
	c.Height = Height(height)

	var round int32
	if m, err = surge.Unmarshal(r, &round, m); err != nil {
		return m, err
	}
	c.Round = Round(round)

	if m, err = surge.Unmarshal(r, &c.ValueID, m); err != nil {
		return m, err
	}

	var numSigs uint64
	if m, err = surge.Unmarshal(r, &numSigs, m); err != nil {
		return m, err
	}
	c.Signatures = make([]CommitSig, numSigs)
	for i := range c.Signatures {
		if m, err = surge.Unmarshal(r, &c.Signatures[i], m); err != nil {
			return m, err
		}
	}
	return m, nil
}
