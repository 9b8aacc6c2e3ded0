package appointment

import "errors"

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrIntervalOccupied    = errors.New("requested interval is already booked")
	ErrInvalidInterval     = errors.New("appointment start must be before its end")
	ErrInvalidDuration     = errors.New("appointment duration must be between 10 and 180 minutes")
	ErrInvalidSpecialty    = errors.New("invalid specialty")
	ErrInvalidStatusChange = errors.New("invalid appointment status transition")
	ErrNotesTooLong        = errors.New("notes exceed 240 characters")
	ErrUnknownTimeZone     = errors.New("unknown time zone")
)
