package booking_models

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/booking/logger"
)

const (
	// SQLSTATE exclusion_violation, raised by bookings_no_overlap.
	pgExclusionViolation = "23P01"

	bookingColumns = `id, user_id, room_id, start_time, end_time, status, created_at`

	detailsQuery = `
		SELECT b.id, b.user_id, b.room_id, b.start_time, b.end_time, b.status, b.created_at,
		       u.username, u.role, r.name
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		JOIN rooms r ON r.id = b.room_id`

	// Serializes writers per room until the transaction ends.
	lockRoomQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`
)

// RoomTx is the unit of work handed to Store.InRoomTx. Everything done
// through it commits or rolls back together.
type RoomTx interface {
	ConfirmedBookingsForRoom(ctx context.Context, roomID uuid.UUID) ([]Booking, error)
	LockBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error)
	InsertBooking(ctx context.Context, booking *Booking) (*Booking, error)
	UpdateBookingRow(ctx context.Context, bookingID uuid.UUID, changes BookingChanges) (*Booking, error)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is the PostgreSQL-backed bookings table.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// InRoomTx runs fn in a transaction holding the room's advisory lock.
func (s *Store) InRoomTx(ctx context.Context, roomID uuid.UUID, fn func(tx RoomTx) error) error {
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockRoomQuery, roomID.String()); err != nil {
			return fmt.Errorf("failed to lock room %s: %w", roomID, err)
		}
		return fn(&roomTx{q: tx})
	})
	return translateError(err)
}

// ConfirmedBookingsForRoom reads without locking; callers that write must use InRoomTx.
func (s *Store) ConfirmedBookingsForRoom(ctx context.Context, roomID uuid.UUID) ([]Booking, error) {
	return confirmedBookingsForRoom(ctx, s.DB, roomID)
}

// GetBooking fetches a booking record by its ID.
func (s *Store) GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID)
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.WarnLogger.Warnf("Booking with ID %s not found", bookingID)
			return nil, ErrBookingNotFound
		}
		logger.ErrorLogger.Errorf("Failed to fetch booking %s: %v", bookingID, err)
		return nil, fmt.Errorf("database error fetching booking: %w", err)
	}
	return booking, nil
}

// GetBookingDetails fetches a booking joined with its user and room.
func (s *Store) GetBookingDetails(ctx context.Context, bookingID uuid.UUID) (*BookingDetails, error) {
	rows, err := s.DB.Query(ctx, detailsQuery+` WHERE b.id = $1`, bookingID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to fetch booking %s: %v", bookingID, err)
		return nil, fmt.Errorf("database error fetching booking: %w", err)
	}
	details, err := collectDetails(rows)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, ErrBookingNotFound
	}
	return &details[0], nil
}

// ListBookings returns every booking, newest first.
func (s *Store) ListBookings(ctx context.Context) ([]BookingDetails, error) {
	rows, err := s.DB.Query(ctx, detailsQuery+` ORDER BY b.start_time DESC, b.id`)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to fetch all bookings: %v", err)
		return nil, fmt.Errorf("failed to fetch bookings: %w", err)
	}
	return collectDetails(rows)
}

// ListBookingsForUser returns the booking history of one user, newest first.
func (s *Store) ListBookingsForUser(ctx context.Context, userID uuid.UUID) ([]BookingDetails, error) {
	rows, err := s.DB.Query(ctx, detailsQuery+` WHERE b.user_id = $1 ORDER BY b.start_time DESC, b.id`, userID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to fetch bookings for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to fetch bookings: %w", err)
	}
	return collectDetails(rows)
}

// MarkCancelled sets the booking's status to cancelled whatever it was.
func (s *Store) MarkCancelled(ctx context.Context, bookingID uuid.UUID) error {
	cmdTag, err := s.DB.Exec(ctx, `UPDATE bookings SET status = $2 WHERE id = $1`, bookingID, string(StatusCancelled))
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to cancel booking %s: %v", bookingID, err)
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

type roomTx struct {
	q querier
}

func (t *roomTx) ConfirmedBookingsForRoom(ctx context.Context, roomID uuid.UUID) ([]Booking, error) {
	return confirmedBookingsForRoom(ctx, t.q, roomID)
}

func (t *roomTx) LockBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	row := t.q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID)
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to lock booking %s: %w", bookingID, err)
	}
	return booking, nil
}

func (t *roomTx) InsertBooking(ctx context.Context, booking *Booking) (*Booking, error) {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + bookingColumns

	row := t.q.QueryRow(ctx, query,
		booking.ID, booking.UserID, booking.RoomID,
		booking.StartTime, booking.EndTime, string(booking.Status), booking.CreatedAt,
	)
	inserted, err := scanBooking(row)
	if err != nil {
		if err = translateError(err); errors.Is(err, ErrOverlap) {
			return nil, err
		}
		logger.ErrorLogger.Errorf("Failed to insert booking for room %s: %v", booking.RoomID, err)
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return inserted, nil
}

func (t *roomTx) UpdateBookingRow(ctx context.Context, bookingID uuid.UUID, changes BookingChanges) (*Booking, error) {
	query := `
		UPDATE bookings
		SET room_id = $2, start_time = $3, end_time = $4
		WHERE id = $1
		RETURNING ` + bookingColumns

	row := t.q.QueryRow(ctx, query, bookingID, changes.RoomID, changes.StartTime, changes.EndTime)
	updated, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		if err = translateError(err); errors.Is(err, ErrOverlap) {
			return nil, err
		}
		logger.ErrorLogger.Errorf("Failed to update booking %s: %v", bookingID, err)
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	return updated, nil
}

func confirmedBookingsForRoom(ctx context.Context, q querier, roomID uuid.UUID) ([]Booking, error) {
	rows, err := q.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE room_id = $1 AND status = $2 ORDER BY start_time`,
		roomID, string(StatusConfirmed),
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to fetch confirmed bookings for room %s: %v", roomID, err)
		return nil, fmt.Errorf("failed to fetch bookings: %w", err)
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bookings: %w", err)
	}
	return bookings, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		booking Booking
		status  string
	)
	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.RoomID,
		&booking.StartTime,
		&booking.EndTime,
		&status,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if booking.Status, err = ParseStatus(status); err != nil {
		return nil, err
	}
	normalize(&booking)
	return &booking, nil
}

func collectDetails(rows pgx.Rows) ([]BookingDetails, error) {
	defer rows.Close()

	var out []BookingDetails
	for rows.Next() {
		var (
			d      BookingDetails
			status string
		)
		err := rows.Scan(
			&d.ID, &d.UserID, &d.RoomID, &d.StartTime, &d.EndTime, &status, &d.CreatedAt,
			&d.User.Username, &d.User.Role, &d.Room.Name,
		)
		if err != nil {
			logger.ErrorLogger.Errorf("Failed to scan booking row: %v", err)
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		if d.Status, err = ParseStatus(status); err != nil {
			return nil, err
		}
		d.User.ID = d.UserID
		d.Room.ID = d.RoomID
		normalize(&d.Booking)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bookings: %w", err)
	}
	return out, nil
}

func normalize(b *Booking) {
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
}

// translateError maps constraint violations to package errors and passes
// everything else through.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
		return ErrOverlap
	}
	return err
}
