package capacity

import "errors"

// ErrNoChange is returned when a transition targets the current status.
var ErrNoChange = errors.New("status unchanged")

// ErrInvalidTransition is returned for status changes outside the allowed
// table, e.g. accepted back to pending.
var ErrInvalidTransition = errors.New("invalid status transition")

// ApplicationStatus is the canonical status of an application. Both
// enrollment and volunteer application records store these values.
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusAccepted ApplicationStatus = "accepted"
	StatusRejected ApplicationStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Occupying reports whether an application in this status counts against
// the offering's capacity.
func (s ApplicationStatus) Occupying() bool {
	return s == StatusPending || s == StatusAccepted
}

// Effect is the capacity side of a status change.
type Effect int

const (
	// EffectNone leaves the counters alone.
	EffectNone Effect = iota
	// EffectRelease frees the slot the application was holding.
	EffectRelease
	// EffectOccupy takes a slot back; it can fail with ErrExhausted.
	EffectOccupy
)

// MailKind names the notification template a transition triggers, if any.
type MailKind string

const (
	MailNone     MailKind = ""
	MailReceived MailKind = "application_received"
	MailAccepted MailKind = "application_accepted"
	MailRejected MailKind = "application_rejected"
)

// Change describes what a status transition does beyond the status column
// itself: the capacity effect to apply and the mail to send afterwards.
type Change struct {
	Effect Effect
	Mail   MailKind
}

// Transition validates a status change against the allowed table and returns
// its side effects. The table:
//
//	pending  -> accepted  keep slot, accepted mail
//	pending  -> rejected  release,   rejected mail
//	accepted -> rejected  release,   rejected mail
//	rejected -> pending   occupy,    no mail
//	rejected -> accepted  occupy,    accepted mail
//
// Everything else is rejected: same-status changes with ErrNoChange, the
// rest with ErrInvalidTransition.
func Transition(from, to ApplicationStatus) (Change, error) {
	if from == to {
		return Change{}, ErrNoChange
	}
	switch {
	case from == StatusPending && to == StatusAccepted:
		return Change{Effect: EffectNone, Mail: MailAccepted}, nil
	case from == StatusPending && to == StatusRejected:
		return Change{Effect: EffectRelease, Mail: MailRejected}, nil
	case from == StatusAccepted && to == StatusRejected:
		return Change{Effect: EffectRelease, Mail: MailRejected}, nil
	case from == StatusRejected && to == StatusPending:
		return Change{Effect: EffectOccupy, Mail: MailNone}, nil
	case from == StatusRejected && to == StatusAccepted:
		return Change{Effect: EffectOccupy, Mail: MailAccepted}, nil
	}
	return Change{}, ErrInvalidTransition
}

// DeleteEffect is the capacity effect of removing an application outright:
// occupying statuses give their slot back, rejected ones have none to give.
func DeleteEffect(from ApplicationStatus) Effect {
	if from.Occupying() {
		return EffectRelease
	}
	return EffectNone
}

// Apply runs an Effect against a snapshot. EffectOccupy can fail with
// ErrExhausted, in which case the snapshot is untouched.
func Apply(s *Snapshot, e Effect) error {
	switch e {
	case EffectRelease:
		s.Release()
	case EffectOccupy:
		return s.Occupy()
	}
	return nil
}
