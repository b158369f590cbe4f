package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a uniqueness constraint rejects a create.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrBookingInPast is returned when a booking's start time is not in the future.
	ErrBookingInPast = errors.New("application: booking start is in the past")
	// ErrRoomNotFound is returned when a requested preferred room id does not resolve.
	ErrRoomNotFound = errors.New("application: room not found")
	// ErrRoomInactive is returned when a requested preferred room has been deactivated.
	ErrRoomInactive = errors.New("application: room is not active")
	// ErrNoRoomAvailable is returned when no room can host the requested slot.
	ErrNoRoomAvailable = errors.New("application: no room available for the requested slot")
	// ErrScheduleConflict is returned when a reschedule target overlaps another booking.
	ErrScheduleConflict = errors.New("application: requested slot conflicts with another booking")
	// ErrCannotModifyCancelled is returned when a reschedule targets a cancelled booking.
	ErrCannotModifyCancelled = errors.New("application: cancelled bookings cannot be modified")
	// ErrInvalidCredentials is returned when authentication input does not match an account.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session token is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token has been revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// NoRoomAvailableError reports allocation exhaustion and whether the caller
// had asked for a specific room that turned out to be unavailable.
type NoRoomAvailableError struct {
	PreferredRoomUnavailable bool
}

// Error implements the error interface.
func (e *NoRoomAvailableError) Error() string {
	if e != nil && e.PreferredRoomUnavailable {
		return "no room available for the requested slot (preferred room unavailable)"
	}
	return "no room available for the requested slot"
}

// Unwrap lets callers match the error against ErrNoRoomAvailable.
func (e *NoRoomAvailableError) Unwrap() error {
	return ErrNoRoomAvailable
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
