package appointment

import "errors"

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrConflict          = errors.New("time slot is already booked")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrForbidden         = errors.New("not allowed to act on this appointment")
)
