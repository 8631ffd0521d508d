// Package walmock provides an in-memory write-ahead log for the optional
// persistence hook of spec.md §6. It records the signed votes and proposals
// a host persists before broadcasting them, in append order, per height.
// It has no method that records an elapsed timeout: the TimeoutEntry kind
// is defined but never written. It exists for tests and local development,
// not production durability.
//
// Grounded on replica/replica.go's saveRestorer/ProcessStorage pair (a
// small Save/Restore interface wrapping process state), generalized from
// whole-process snapshots to an append-only entry log.
package walmock

import (
	"sync"

	"github.com/consensuslab/tmbft/tm"
)

// EntryKind distinguishes what an Entry records.
type EntryKind uint8

// Enumerate the EntryKinds.
const (
	VoteEntry EntryKind = iota + 1
	ProposalEntry
	TimeoutEntry
)

// Entry is one record in the log.
type Entry struct {
	Kind     EntryKind
	Height   tm.Height
	Vote     *tm.SignedVote
	Proposal *tm.SignedProposal
}

// WAL is the persistence interface the driver's PersistMessage effect
// writes through.
type WAL interface {
	AppendVote(vote tm.SignedVote) error
	AppendProposal(proposal tm.SignedProposal) error
	Entries(height tm.Height) ([]Entry, error)
	Truncate(belowHeight tm.Height) error
}

// MemoryWAL is a WAL backed by a plain slice, guarded by a mutex since the
// driver's single-threaded guarantee does not extend to whatever goroutine
// is draining the log for replay at startup.
type MemoryWAL struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryWAL returns an empty MemoryWAL.
func NewMemoryWAL() *MemoryWAL {
	return &MemoryWAL{}
}

// AppendVote implements WAL.
func (w *MemoryWAL) AppendVote(vote tm.SignedVote) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, Entry{Kind: VoteEntry, Height: vote.Vote.Height, Vote: &vote})
	return nil
}

// AppendProposal implements WAL.
func (w *MemoryWAL) AppendProposal(proposal tm.SignedProposal) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, Entry{Kind: ProposalEntry, Height: proposal.Proposal.Height, Proposal: &proposal})
	return nil
}

// Entries implements WAL, returning every entry recorded at height in
// append order.
func (w *MemoryWAL) Entries(height tm.Height) ([]Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entries := make([]Entry, 0, len(w.entries))
	for _, e := range w.entries {
		if e.Height == height {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Truncate implements WAL, dropping every entry at or below belowHeight
// once its decision has been durably applied elsewhere.
func (w *MemoryWAL) Truncate(belowHeight tm.Height) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.entries[:0]
	for _, e := range w.entries {
		if e.Height > belowHeight {
			kept = append(kept, e)
		}
	}
	w.entries = kept
	return nil
}
