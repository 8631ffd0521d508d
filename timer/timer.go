// Package timer implements the external timer service the driver suspends
// to via ScheduleTimeout/CancelTimeout effects (spec.md §6 "To the timer
// service"). Timers are fully external to the driver: the driver only
// requests a deadline and is later delivered a TimeoutElapsed input when it
// passes.
//
// Grounded on proc/proc.go's Timer interface (TimeoutPropose/TimeoutPrevote/
// TimeoutPrecommit scheduling callbacks) and on replica/replica.go's
// Options.BackOffExp/BackOffBase/BackOffMax, generalized from a single
// reconnect backoff into the three independently-configurable per-round
// linear timeouts spec.md §6 calls for.
package timer

import (
	"time"

	"github.com/consensuslab/tmbft/round"
	"github.com/consensuslab/tmbft/tm"
)

// Elapsed is delivered back to the driver once a scheduled deadline passes.
type Elapsed struct {
	Kind   round.TimeoutKind
	Height tm.Height
	Round  tm.Round
}

// Service schedules and cancels timeouts of any round.TimeoutKind, including
// the host's TimeoutCommit. It takes each duration as given; the driver
// computes round timeouts linearly from a per-kind base plus a per-round
// delta via tm.TimeoutFor (spec.md §6
// "timeout_{propose,prevote,precommit}_delta").
type Service interface {
	// Schedule arms a timer for (kind, height, round), to elapse after
	// Duration; the caller is expected to deliver an Elapsed value once it
	// does.
	Schedule(kind round.TimeoutKind, height tm.Height, r tm.Round, d time.Duration)
	// Cancel disarms a previously scheduled timer; cancelling an unarmed or
	// already-elapsed timer is a no-op (spec.md §5 "late deliveries must be
	// tolerated").
	Cancel(kind round.TimeoutKind, height tm.Height, r tm.Round)
	// CancelAll disarms every timer for height.
	CancelAll(height tm.Height)
}

// LinearTimer is a Service backed by time.AfterFunc, delivering Elapsed
// values on a channel rather than invoking a callback directly, so the
// driver's single-threaded input loop stays the only place Elapsed values
// are consumed.
type LinearTimer struct {
	elapsed chan Elapsed
	timers  map[timerKey]*time.Timer
}

type timerKey struct {
	kind   round.TimeoutKind
	height tm.Height
	round  tm.Round
}

// NewLinearTimer returns a LinearTimer whose Elapsed channel has capacity
// bufferSize.
func NewLinearTimer(bufferSize int) *LinearTimer {
	return &LinearTimer{
		elapsed: make(chan Elapsed, bufferSize),
		timers:  map[timerKey]*time.Timer{},
	}
}

// Elapsed returns the channel Elapsed values are delivered on.
func (t *LinearTimer) Elapsed() <-chan Elapsed {
	return t.elapsed
}

// Schedule implements Service.
func (t *LinearTimer) Schedule(kind round.TimeoutKind, height tm.Height, r tm.Round, d time.Duration) {
	key := timerKey{kind: kind, height: height, round: r}
	if existing, ok := t.timers[key]; ok {
		existing.Stop()
	}
	t.timers[key] = time.AfterFunc(d, func() {
		t.elapsed <- Elapsed{Kind: kind, Height: height, Round: r}
	})
}

// Cancel implements Service.
func (t *LinearTimer) Cancel(kind round.TimeoutKind, height tm.Height, r tm.Round) {
	key := timerKey{kind: kind, height: height, round: r}
	if existing, ok := t.timers[key]; ok {
		existing.Stop()
		delete(t.timers, key)
	}
}

// CancelAll implements Service.
func (t *LinearTimer) CancelAll(height tm.Height) {
	for key, existing := range t.timers {
		if key.height == height {
			existing.Stop()
			delete(t.timers, key)
		}
	}
}
