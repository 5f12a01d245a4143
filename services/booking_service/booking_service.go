package booking_service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/models/booking_models"
	"github.com/joy095/booking/models/user_models"
	"github.com/joy095/booking/services/conflict_checker"
)

// RoomLookup answers whether a room exists.
type RoomLookup interface {
	RoomExists(ctx context.Context, roomID uuid.UUID) (bool, error)
}

// UserLookup answers whether a user exists and resolves usernames.
type UserLookup interface {
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
	UserIDByUsername(ctx context.Context, username string) (uuid.UUID, error)
}

// BookingStore is the persistence the service writes through. InRoomTx must
// serialize callers working on the same room and roll back when fn fails.
type BookingStore interface {
	InRoomTx(ctx context.Context, roomID uuid.UUID, fn func(tx booking_models.RoomTx) error) error
	ConfirmedBookingsForRoom(ctx context.Context, roomID uuid.UUID) ([]booking_models.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*booking_models.Booking, error)
	GetBookingDetails(ctx context.Context, bookingID uuid.UUID) (*booking_models.BookingDetails, error)
	ListBookings(ctx context.Context) ([]booking_models.BookingDetails, error)
	ListBookingsForUser(ctx context.Context, userID uuid.UUID) ([]booking_models.BookingDetails, error)
	MarkCancelled(ctx context.Context, bookingID uuid.UUID) error
}

// CreateBookingInput is a validated request to reserve a room.
type CreateBookingInput struct {
	UserID    uuid.UUID
	RoomID    uuid.UUID
	StartTime time.Time
	EndTime   time.Time
}

// UpdateBookingInput holds the fields to change; nil keeps the current value.
type UpdateBookingInput struct {
	StartTime *time.Time
	EndTime   *time.Time
	RoomID    *uuid.UUID
}

// BookingService owns the booking lifecycle and keeps confirmed bookings of
// a room from overlapping.
type BookingService struct {
	Store BookingStore
	Rooms RoomLookup
	Users UserLookup
	Now   func() time.Time
}

// NewBookingService creates a new BookingService.
func NewBookingService(store BookingStore, rooms RoomLookup, users UserLookup) *BookingService {
	return &BookingService{
		Store: store,
		Rooms: rooms,
		Users: users,
		Now:   time.Now,
	}
}

// CheckAvailability reports whether the room is free for [start, end). The
// answer is advisory: it takes no lock, and CreateBooking re-checks.
func (s *BookingService) CheckAvailability(ctx context.Context, roomID uuid.UUID, start, end time.Time) (bool, error) {
	start, end = start.UTC(), end.UTC()
	if err := validateWindow(start, end); err != nil {
		return false, err
	}
	if err := s.ensureRoom(ctx, roomID); err != nil {
		return false, err
	}

	existing, err := s.Store.ConfirmedBookingsForRoom(ctx, roomID)
	if err != nil {
		return false, fmt.Errorf("failed to load bookings for room %s: %w", roomID, err)
	}
	return !conflict_checker.HasConflict(start, end, existing, uuid.Nil), nil
}

// CreateBooking reserves a room for a user. The conflict check and the
// insert run in one room-scoped transaction.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*booking_models.Booking, error) {
	start, end := in.StartTime.UTC(), in.EndTime.UTC()
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}
	if err := s.ensureUser(ctx, in.UserID); err != nil {
		return nil, err
	}
	if err := s.ensureRoom(ctx, in.RoomID); err != nil {
		return nil, err
	}

	candidate, err := booking_models.NewBooking(in.UserID, in.RoomID, start, end, s.Now().UTC())
	if err != nil {
		return nil, err
	}

	var created *booking_models.Booking
	err = s.Store.InRoomTx(ctx, in.RoomID, func(tx booking_models.RoomTx) error {
		existing, err := tx.ConfirmedBookingsForRoom(ctx, in.RoomID)
		if err != nil {
			return err
		}
		if blocker, found := conflict_checker.FindConflict(start, end, existing, uuid.Nil); found {
			logger.InfoLogger.Infof("Rejecting booking for room %s [%s, %s): overlaps booking %s",
				in.RoomID, start.Format(time.RFC3339), end.Format(time.RFC3339), blocker.ID)
			return ErrBookingConflict
		}

		created, err = tx.InsertBooking(ctx, candidate)
		return err
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	logger.InfoLogger.Infof("Booking %s created for room %s by user %s", created.ID, created.RoomID, created.UserID)
	return created, nil
}

// UpdateBooking moves a confirmed booking to a new window and/or room. The
// booking never conflicts with its own current window.
func (s *BookingService) UpdateBooking(ctx context.Context, bookingID uuid.UUID, in UpdateBookingInput) (*booking_models.Booking, error) {
	current, err := s.Store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if !current.Status.IsActive() {
		return nil, ErrBookingCancelled
	}

	changes, err := effectiveChanges(current, in)
	if err != nil {
		return nil, err
	}
	if in.RoomID != nil {
		if err := s.ensureRoom(ctx, changes.RoomID); err != nil {
			return nil, err
		}
	}

	var updated *booking_models.Booking
	err = s.Store.InRoomTx(ctx, changes.RoomID, func(tx booking_models.RoomTx) error {
		// Re-read under lock: a concurrent cancel or update may have landed.
		locked, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if !locked.Status.IsActive() {
			return ErrBookingCancelled
		}
		changes, err := effectiveChanges(locked, in)
		if err != nil {
			return err
		}

		existing, err := tx.ConfirmedBookingsForRoom(ctx, changes.RoomID)
		if err != nil {
			return err
		}
		if blocker, found := conflict_checker.FindConflict(changes.StartTime, changes.EndTime, existing, bookingID); found {
			logger.InfoLogger.Infof("Rejecting update of booking %s: overlaps booking %s in room %s",
				bookingID, blocker.ID, changes.RoomID)
			return ErrBookingConflict
		}

		updated, err = tx.UpdateBookingRow(ctx, bookingID, changes)
		return err
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	logger.InfoLogger.Infof("Booking %s updated: room %s [%s, %s)", updated.ID, updated.RoomID,
		updated.StartTime.Format(time.RFC3339), updated.EndTime.Format(time.RFC3339))
	return updated, nil
}

// CancelBooking soft-deletes a booking. Cancelling a cancelled booking is a
// harmless repeat write.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID) error {
	if err := s.Store.MarkCancelled(ctx, bookingID); err != nil {
		return translateStoreError(err)
	}
	logger.InfoLogger.Infof("Booking %s cancelled", bookingID)
	return nil
}

// GetBooking returns one booking with its user and room.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*booking_models.BookingDetails, error) {
	details, err := s.Store.GetBookingDetails(ctx, bookingID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return details, nil
}

// ListAllBookings returns every booking.
func (s *BookingService) ListAllBookings(ctx context.Context) ([]booking_models.BookingDetails, error) {
	return s.Store.ListBookings(ctx)
}

// ListBookingsForUser returns one user's booking history.
func (s *BookingService) ListBookingsForUser(ctx context.Context, userID uuid.UUID) ([]booking_models.BookingDetails, error) {
	return s.Store.ListBookingsForUser(ctx, userID)
}

// ListBookingsForUsername returns the booking history of the named user.
func (s *BookingService) ListBookingsForUsername(ctx context.Context, username string) ([]booking_models.BookingDetails, error) {
	userID, err := s.lookupUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.Store.ListBookingsForUser(ctx, userID)
}

// ResolveUserID picks the booking owner from an explicit ID or a username.
// The ID wins when both are given.
func (s *BookingService) ResolveUserID(ctx context.Context, userID *uuid.UUID, username string) (uuid.UUID, error) {
	if userID != nil && *userID != uuid.Nil {
		return *userID, nil
	}
	if username == "" {
		return uuid.Nil, ErrUserReferenceRequired
	}
	return s.lookupUsername(ctx, username)
}

func (s *BookingService) lookupUsername(ctx context.Context, username string) (uuid.UUID, error) {
	userID, err := s.Users.UserIDByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user_models.ErrUserNotFound) {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user %q: %w", username, err)
	}
	return userID, nil
}

func (s *BookingService) ensureRoom(ctx context.Context, roomID uuid.UUID) error {
	ok, err := s.Rooms.RoomExists(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to look up room %s: %w", roomID, err)
	}
	if !ok {
		return ErrRoomNotFound
	}
	return nil
}

func (s *BookingService) ensureUser(ctx context.Context, userID uuid.UUID) error {
	ok, err := s.Users.UserExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user %s: %w", userID, err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func effectiveChanges(current *booking_models.Booking, in UpdateBookingInput) (booking_models.BookingChanges, error) {
	changes := booking_models.BookingChanges{
		RoomID:    current.RoomID,
		StartTime: current.StartTime.UTC(),
		EndTime:   current.EndTime.UTC(),
	}
	if in.StartTime != nil {
		changes.StartTime = in.StartTime.UTC()
	}
	if in.EndTime != nil {
		changes.EndTime = in.EndTime.UTC()
	}
	if in.RoomID != nil {
		changes.RoomID = *in.RoomID
	}
	if err := validateWindow(changes.StartTime, changes.EndTime); err != nil {
		return booking_models.BookingChanges{}, err
	}
	return changes, nil
}

func validateWindow(start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidInterval
	}
	return nil
}

// translateStoreError maps store errors to the service's errors so a
// constraint rejection at commit reads the same as the pre-write check.
func translateStoreError(err error) error {
	switch {
	case errors.Is(err, booking_models.ErrOverlap):
		return ErrBookingConflict
	case errors.Is(err, booking_models.ErrBookingNotFound):
		return ErrBookingNotFound
	}
	return err
}
