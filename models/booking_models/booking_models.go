package booking_models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/booking/models/room_models"
	"github.com/joy095/booking/models/user_models"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	// StatusCompleted is a documented value; nothing in this service moves a
	// booking into it.
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// IsActive reports whether a booking in this status holds its room.
func (s Status) IsActive() bool {
	return s == StatusConfirmed
}

// ParseStatus converts a stored status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown booking status %q", raw)
	}
	return s, nil
}

var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrOverlap is returned when the store itself rejects a write because a
	// confirmed booking already holds part of the window.
	ErrOverlap = errors.New("booking window overlaps a confirmed booking")
)

// Booking is one reservation of one room for one time window by one user.
type Booking struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	RoomID    uuid.UUID `json:"room_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingDetails is a booking joined with its user and room.
type BookingDetails struct {
	Booking
	User user_models.User `json:"user"`
	Room room_models.Room `json:"room"`
}

// BookingChanges carries the fields an update may rewrite.
type BookingChanges struct {
	RoomID    uuid.UUID
	StartTime time.Time
	EndTime   time.Time
}

// NewBooking creates a confirmed booking stamped with now.
func NewBooking(userID, roomID uuid.UUID, start, end, now time.Time) (*Booking, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for booking: %w", err)
	}
	return &Booking{
		ID:        id,
		UserID:    userID,
		RoomID:    roomID,
		StartTime: start,
		EndTime:   end,
		Status:    StatusConfirmed,
		CreatedAt: now,
	}, nil
}
