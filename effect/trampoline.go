package effect

import "fmt"

// Continuation is a suspended step of driver computation. Given the Resume
// for the Effect it last asked for (or Continue{} for the very first call),
// it returns the Effects produced so far and, if it needs another Resume
// before it can keep going, a Next continuation. A nil Next means the
// driver has finished processing this input and is idle again.
type Continuation func(Resume) (effects []Effect, next Continuation, err error)

// Trampoline drives a chain of Continuations to completion one Resume at a
// time, implementing the suspend/resume contract of spec.md §4.4: the
// driver never blocks waiting for I/O, it always returns control to the
// caller, which performs the I/O and calls Resume with the outcome.
type Trampoline struct {
	pending Continuation
}

// NewTrampoline returns an idle Trampoline.
func NewTrampoline() *Trampoline {
	return &Trampoline{}
}

// Suspended reports whether the Trampoline is waiting on a Resume.
func (t *Trampoline) Suspended() bool {
	return t.pending != nil
}

// Start begins draining c. It must only be called while the Trampoline is
// idle (spec.md §5: the driver processes one input at a time to
// completion before accepting the next).
func (t *Trampoline) Start(c Continuation) ([]Effect, bool, error) {
	if t.Suspended() {
		return nil, true, fmt.Errorf("trampoline: Start called while a Resume is still pending")
	}
	return t.advance(c, Continue{})
}

// Resume supplies the outcome of the last suspension-point Effect and
// drains the Trampoline until it either finishes or suspends again.
func (t *Trampoline) Resume(r Resume) ([]Effect, bool, error) {
	if !t.Suspended() {
		return nil, false, fmt.Errorf("trampoline: Resume called with no pending suspension")
	}
	c := t.pending
	t.pending = nil
	return t.advance(c, r)
}

func (t *Trampoline) advance(c Continuation, r Resume) ([]Effect, bool, error) {
	effects, next, err := c(r)
	if err != nil {
		t.pending = nil
		return effects, false, err
	}
	if next != nil {
		t.pending = next
		return effects, true, nil
	}
	return effects, false, nil
}
