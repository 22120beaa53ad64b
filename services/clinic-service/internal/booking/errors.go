package booking

import "errors"

// ErrAppointmentNotFound is returned when the appointment does not exist.
// Handlers also map ownership failures to the same 404 shape so callers
// cannot probe other users' appointment ids.
var ErrAppointmentNotFound = errors.New("appointment not found")

// ValidationError rejects malformed input before any availability check runs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// OwnershipError means the resource exists but does not belong to the caller,
// or does not exist at all; the message deliberately does not distinguish.
type OwnershipError struct {
	Message string
}

func (e *OwnershipError) Error() string {
	return e.Message
}

// AvailabilityError means the doctor is not working at the requested time.
type AvailabilityError struct {
	Message string
}

func (e *AvailabilityError) Error() string {
	return e.Message
}

// SlotConflictError means the requested time overlaps an existing appointment
// or a restricted zone.
type SlotConflictError struct {
	Message string
}

func (e *SlotConflictError) Error() string {
	return e.Message
}

// InvalidStateError means the appointment's current status or timing forbids
// the requested transition.
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string {
	return e.Message
}
