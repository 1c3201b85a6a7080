package events

import "errors"

var (
	// ErrNotFound means the referenced event or registration does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidReference means a foreign key does not resolve, such as
	// registering against an event id that was never created.
	ErrInvalidReference = errors.New("referenced record does not exist")

	// ErrDuplicateRegistration means the (event, patient) pair is already
	// registered. Register surfaces it together with the existing record.
	ErrDuplicateRegistration = errors.New("patient is already registered for this event")

	// ErrCapacityFull means a confirmed slot was requested but none remain.
	ErrCapacityFull = errors.New("event has no free slots")

	// ErrCapacityViolation means a slot adjustment would push slots_filled
	// below zero or above slots_total. The counter is left untouched.
	ErrCapacityViolation = errors.New("slot adjustment out of bounds")

	// ErrInvalidTransition means the requested status change is not permitted
	// from the registration's current status.
	ErrInvalidTransition = errors.New("status transition not allowed")

	// ErrInvalidFilter means a list filter value cannot be used, such as an
	// unknown status name.
	ErrInvalidFilter = errors.New("invalid filter")
)
