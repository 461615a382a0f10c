package scheduling

import "errors"

var (
	// ErrSlotUnavailable is returned when the slot was booked by someone else
	// or does not exist.
	ErrSlotUnavailable = errors.New("scheduling: time slot unavailable")

	ErrInvalidSlotRange    = errors.New("scheduling: end_time must be after start_time")
	ErrSlotOverlap         = errors.New("scheduling: slot overlaps an existing slot")
	ErrAppointmentNotFound = errors.New("scheduling: appointment not found")
	ErrPermissionDenied    = errors.New("scheduling: permission denied")
)
