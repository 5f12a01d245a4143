package booking_service

import "errors"

var (
	ErrInvalidInterval       = errors.New("end_time must be after start_time")
	ErrRoomNotFound          = errors.New("room not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrUserReferenceRequired = errors.New("user_id or username is required")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrBookingConflict       = errors.New("room already booked for that time window")
	ErrBookingCancelled      = errors.New("booking is cancelled")
)
