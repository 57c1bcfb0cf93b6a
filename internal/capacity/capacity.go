// Package capacity owns the seat-allocation rules shared by workshops and
// volunteer positions: how many slots an offering has, how many are taken,
// and which lifecycle state follows from the counts. It is pure bookkeeping;
// persistence and locking live in the repository layer, which loads a
// Snapshot inside a row-locked transaction, mutates it here, and writes it
// back.
package capacity

import "errors"

// ErrExhausted is returned when an offering has no remaining slots.
var ErrExhausted = errors.New("no slots remaining")

// ErrNotClosed is returned when reopening an offering that is not closed.
var ErrNotClosed = errors.New("offering is not closed")

// State is the canonical lifecycle state of an offering. Workshops and
// volunteer positions present different labels for the same machine; the
// model layer maps labels to and from these values.
type State int

const (
	// StateOpen means the offering accepts new applications.
	StateOpen State = iota
	// StateFull means every slot is taken.
	StateFull
	// StateComingSoon means the offering is announced but not yet open.
	StateComingSoon
	// StateClosed means the offering has ended and will not reopen on its own.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateFull:
		return "full"
	case StateComingSoon:
		return "coming_soon"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Snapshot is the capacity view of a single offering, loaded under a row
// lock. All slot arithmetic goes through its methods so that the invariant
// 0 <= Used <= Total holds everywhere.
type Snapshot struct {
	Total int
	Used  int
	State State
}

// Remaining returns the number of free slots.
func (s *Snapshot) Remaining() int {
	return s.Total - s.Used
}

// Reserve takes one slot for a new application. It fails with ErrExhausted
// when no slot remains; on success it flips the state to full when the last
// slot was taken.
func (s *Snapshot) Reserve() error {
	if s.Used >= s.Total {
		return ErrExhausted
	}
	s.Used++
	if s.Used >= s.Total {
		s.State = StateFull
	}
	return nil
}

// Release gives one slot back when an application stops occupying it.
// The counter is floored at zero; an underflow would mean a transition was
// applied twice and is asserted against in tests. A full offering drops back
// to open once a slot frees up.
func (s *Snapshot) Release() {
	if s.Used > 0 {
		s.Used--
	}
	if s.State == StateFull && s.Used < s.Total {
		s.State = StateOpen
	}
}

// Occupy re-takes a slot for an application returning from rejected to an
// occupying status. Identical semantics to Reserve.
func (s *Snapshot) Occupy() error {
	return s.Reserve()
}

// ForceClose is the staff override that ends an offering regardless of
// counts. It also marks every slot taken so listings render the offering as
// unavailable; this is a display override, not capacity accounting.
func (s *Snapshot) ForceClose() {
	s.State = StateClosed
	s.Used = s.Total
}

// ForceReopen resets a closed offering to empty and open. Calling it on an
// offering that is not closed reports ErrNotClosed and changes nothing.
func (s *Snapshot) ForceReopen() error {
	if s.State != StateClosed {
		return ErrNotClosed
	}
	s.Used = 0
	s.State = StateOpen
	return nil
}
