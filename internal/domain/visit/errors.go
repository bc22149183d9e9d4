package visit

import "errors"

var (
	ErrVisitNotFound           = errors.New("visit not found")
	ErrSlotConflict            = errors.New("doctor is already booked for this date and time")
	ErrInvalidStatusTransition = errors.New("invalid visit status transition")
	ErrScheduledInPast         = errors.New("cannot schedule a visit in the past")
	ErrInvalidVisitTime        = errors.New("visit time must be in HH:MM format")
	ErrSickLeaveNotFound       = errors.New("sick leave not found")
	ErrTreatmentNotFound       = errors.New("treatment not found")
)
