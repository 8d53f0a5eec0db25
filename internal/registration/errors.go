package registration

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no registration matches the lookup.
	ErrNotFound = errors.New("registration not found")

	// ErrDuplicateRegistration is returned when the devotee already holds a
	// live registration on the same yatra.
	ErrDuplicateRegistration = errors.New("devotee already has a live registration for this yatra")

	// ErrCapacityExceeded is returned when the booking would push the yatra
	// past its maximum capacity.
	ErrCapacityExceeded = errors.New("yatra capacity exceeded")

	// ErrRegistrationClosed is returned when the yatra is not accepting
	// registrations (outside the window or wrong yatra status).
	ErrRegistrationClosed = errors.New("registration is not open for this yatra")

	// ErrNotOwner is returned when a devotee touches a registration that is
	// not theirs.
	ErrNotOwner = errors.New("registration belongs to another devotee")
)

// ValidationError marks bad input the caller can fix.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError reports an attempted status change the lifecycle
// table does not allow.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}
