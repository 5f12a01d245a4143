package booking_service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/booking/models/booking_models"
	"github.com/joy095/booking/models/user_models"
	"github.com/joy095/booking/services/booking_service/booking_servicetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var day = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type fixture struct {
	store   *booking_servicetest.MemoryStore
	service *BookingService
	alice   uuid.UUID
	bob     uuid.UUID
	roomA   uuid.UUID
	roomB   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := booking_servicetest.NewMemoryStore()
	f := &fixture{
		store: store,
		alice: store.AddUser("alice", user_models.RoleRegularUser),
		bob:   store.AddUser("bob", user_models.RoleRegularUser),
		roomA: store.AddRoom("Room A"),
		roomB: store.AddRoom("Room B"),
	}
	f.service = NewBookingService(store, store, store)
	f.service.Now = func() time.Time { return day }
	return f
}

func (f *fixture) book(t *testing.T, userID, roomID uuid.UUID, start, end time.Time) *booking_models.Booking {
	t.Helper()
	b, err := f.service.CreateBooking(context.Background(), CreateBookingInput{
		UserID:    userID,
		RoomID:    roomID,
		StartTime: start,
		EndTime:   end,
	})
	require.NoError(t, err)
	return b
}

// assertNoOverlap checks that no two confirmed bookings of a room overlap.
func assertNoOverlap(t *testing.T, store *booking_servicetest.MemoryStore, roomID uuid.UUID) {
	t.Helper()
	confirmed, err := store.ConfirmedBookingsForRoom(context.Background(), roomID)
	require.NoError(t, err)
	for i := range confirmed {
		for j := i + 1; j < len(confirmed); j++ {
			a, b := confirmed[i], confirmed[j]
			overlap := a.StartTime.Before(b.EndTime) && b.StartTime.Before(a.EndTime)
			assert.Falsef(t, overlap, "bookings %s and %s overlap", a.ID, b.ID)
		}
	}
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)

	b := f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))

	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, f.alice, b.UserID)
	assert.Equal(t, f.roomA, b.RoomID)
	assert.Equal(t, booking_models.StatusConfirmed, b.Status)
	assert.True(t, b.StartTime.Equal(at(10, 0)))
	assert.True(t, b.EndTime.Equal(at(11, 0)))
	assert.Equal(t, day, b.CreatedAt)
	assert.Equal(t, 1, f.store.Count())
}

func TestCreateBookingNormalizesToUTC(t *testing.T) {
	f := newFixture(t)
	tokyo := time.FixedZone("JST", 9*60*60)

	b := f.book(t, f.alice, f.roomA, at(10, 0).In(tokyo), at(11, 0).In(tokyo))

	assert.Equal(t, time.UTC, b.StartTime.Location())
	assert.Equal(t, time.UTC, b.EndTime.Location())

	// 19:30 JST is 10:30 UTC, inside the booking above.
	_, err := f.service.CreateBooking(context.Background(), CreateBookingInput{
		UserID:    f.bob,
		RoomID:    f.roomA,
		StartTime: at(10, 30).In(tokyo),
		EndTime:   at(11, 30).In(tokyo),
	})
	assert.ErrorIs(t, err, ErrBookingConflict)
}

func TestCreateBookingRejectsConflict(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))

	_, err := f.service.CreateBooking(context.Background(), CreateBookingInput{
		UserID:    f.bob,
		RoomID:    f.roomA,
		StartTime: at(10, 30),
		EndTime:   at(11, 30),
	})

	assert.ErrorIs(t, err, ErrBookingConflict)
	assert.Equal(t, 1, f.store.Count(), "rejected booking must not be stored")
}

func TestCreateBookingAllowsBackToBack(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))

	f.book(t, f.bob, f.roomA, at(11, 0), at(12, 0))
	f.book(t, f.bob, f.roomA, at(9, 0), at(10, 0))

	assert.Equal(t, 3, f.store.Count())
	assertNoOverlap(t, f.store, f.roomA)
}

func TestCreateBookingOtherRoomDoesNotConflict(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))

	f.book(t, f.bob, f.roomB, at(10, 0), at(11, 0))

	assert.Equal(t, 2, f.store.Count())
}

func TestCreateBookingInvalidInterval(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		start, end time.Time
	}{
		{"end before start", at(12, 0), at(11, 0)},
		{"zero length", at(11, 0), at(11, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateBooking(context.Background(), CreateBookingInput{
				UserID:    f.alice,
				RoomID:    f.roomA,
				StartTime: tt.start,
				EndTime:   tt.end,
			})
			assert.ErrorIs(t, err, ErrInvalidInterval)
		})
	}

	// The interval is checked before any lookup.
	_, err := f.service.CreateBooking(context.Background(), CreateBookingInput{
		UserID:    uuid.New(),
		RoomID:    uuid.New(),
		StartTime: at(12, 0),
		EndTime:   at(11, 0),
	})
	assert.ErrorIs(t, err, ErrInvalidInterval)
	assert.Equal(t, 0, f.store.Count())
}

func TestCreateBookingUnknownReferences(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateBooking(context.Background(), CreateBookingInput{
		UserID:    uuid.New(),
		RoomID:    f.roomA,
		StartTime: at(10, 0),
		EndTime:   at(11, 0),
	})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.service.CreateBooking(context.Background(), CreateBookingInput{
		UserID:    f.alice,
		RoomID:    uuid.New(),
		StartTime: at(10, 0),
		EndTime:   at(11, 0),
	})
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Equal(t, 0, f.store.Count())
}

func TestCreateBookingTranslatesStoreOverlap(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))

	// The pre-write check sees nothing, so only the commit-time guard can
	// catch the overlap.
	f.store.StaleReads = true
	_, err := f.service.CreateBooking(context.Background(), CreateBookingInput{
		UserID:    f.bob,
		RoomID:    f.roomA,
		StartTime: at(10, 15),
		EndTime:   at(10, 45),
	})

	assert.ErrorIs(t, err, ErrBookingConflict)
	assert.False(t, errors.Is(err, booking_models.ErrOverlap))
	assert.Equal(t, 1, f.store.Count())
}

func TestCancellationFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))

	require.NoError(t, f.service.CancelBooking(ctx, first.ID))

	stored, err := f.store.GetBooking(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, booking_models.StatusCancelled, stored.Status, "cancel keeps the row")

	available, err := f.service.CheckAvailability(ctx, f.roomA, at(10, 0), at(11, 0))
	require.NoError(t, err)
	assert.True(t, available)

	f.book(t, f.bob, f.roomA, at(10, 0), at(11, 0))
	assertNoOverlap(t, f.store, f.roomA)
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))

	require.NoError(t, f.service.CancelBooking(ctx, b.ID))
	assert.NoError(t, f.service.CancelBooking(ctx, b.ID), "repeat cancel is harmless")

	assert.ErrorIs(t, f.service.CancelBooking(ctx, uuid.New()), ErrBookingNotFound)
}

func TestUpdateBookingExcludesItself(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))

	// Same window: only conflicts with itself.
	same, err := f.service.UpdateBooking(ctx, b.ID, UpdateBookingInput{})
	require.NoError(t, err)
	assert.True(t, same.StartTime.Equal(at(10, 0)))

	// Shift that overlaps its own old window.
	start, end := at(10, 30), at(11, 30)
	moved, err := f.service.UpdateBooking(ctx, b.ID, UpdateBookingInput{StartTime: &start, EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, b.ID, moved.ID)
	assert.True(t, moved.StartTime.Equal(start))
	assert.True(t, moved.EndTime.Equal(end))
	assert.Equal(t, 1, f.store.Count())
}

func TestUpdateBookingRejectsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))
	b := f.book(t, f.bob, f.roomA, at(12, 0), at(13, 0))

	start := at(10, 30)
	_, err := f.service.UpdateBooking(ctx, b.ID, UpdateBookingInput{StartTime: &start})
	assert.ErrorIs(t, err, ErrBookingConflict)

	stored, err := f.store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartTime.Equal(at(12, 0)), "rejected update must not be stored")
	assertNoOverlap(t, f.store, f.roomA)
}

func TestUpdateBookingPartialFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))

	end := at(12, 0)
	updated, err := f.service.UpdateBooking(ctx, b.ID, UpdateBookingInput{EndTime: &end})
	require.NoError(t, err)
	assert.True(t, updated.StartTime.Equal(at(10, 0)))
	assert.True(t, updated.EndTime.Equal(end))

	// New end before the kept start.
	bad := at(9, 0)
	_, err = f.service.UpdateBooking(ctx, b.ID, UpdateBookingInput{EndTime: &bad})
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestUpdateBookingMovesRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))
	f.book(t, f.bob, f.roomB, at(10, 30), at(11, 30))

	unknown := uuid.New()
	_, err := f.service.UpdateBooking(ctx, b.ID, UpdateBookingInput{RoomID: &unknown})
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = f.service.UpdateBooking(ctx, b.ID, UpdateBookingInput{RoomID: &f.roomB})
	assert.ErrorIs(t, err, ErrBookingConflict)

	start, end := at(12, 0), at(13, 0)
	moved, err := f.service.UpdateBooking(ctx, b.ID, UpdateBookingInput{RoomID: &f.roomB, StartTime: &start, EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, f.roomB, moved.RoomID)

	available, err := f.service.CheckAvailability(ctx, f.roomA, at(10, 0), at(11, 0))
	require.NoError(t, err)
	assert.True(t, available, "old room is freed by the move")
	assertNoOverlap(t, f.store, f.roomB)
}

func TestUpdateBookingNotActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))
	require.NoError(t, f.service.CancelBooking(ctx, b.ID))

	start := at(14, 0)
	end := at(15, 0)
	_, err := f.service.UpdateBooking(ctx, b.ID, UpdateBookingInput{StartTime: &start, EndTime: &end})
	assert.ErrorIs(t, err, ErrBookingCancelled)

	_, err = f.service.UpdateBooking(ctx, uuid.New(), UpdateBookingInput{StartTime: &start})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestInactiveRowsDoNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, status := range []booking_models.Status{booking_models.StatusCancelled, booking_models.StatusCompleted} {
		f.store.Put(booking_models.Booking{
			ID:        uuid.New(),
			UserID:    f.bob,
			RoomID:    f.roomA,
			StartTime: at(10, 0),
			EndTime:   at(11, 0),
			Status:    status,
			CreatedAt: day,
		})
	}

	available, err := f.service.CheckAvailability(ctx, f.roomA, at(10, 30), at(11, 30))
	require.NoError(t, err)
	assert.True(t, available)

	f.book(t, f.alice, f.roomA, at(10, 30), at(11, 30))
	assert.Equal(t, 3, f.store.Count())
	assertNoOverlap(t, f.store, f.roomA)
}

func TestUpdateCompletedBooking(t *testing.T) {
	f := newFixture(t)
	done := booking_models.Booking{
		ID:        uuid.New(),
		UserID:    f.alice,
		RoomID:    f.roomA,
		StartTime: at(8, 0),
		EndTime:   at(9, 0),
		Status:    booking_models.StatusCompleted,
		CreatedAt: day,
	}
	f.store.Put(done)

	end := at(9, 30)
	_, err := f.service.UpdateBooking(context.Background(), done.ID, UpdateBookingInput{EndTime: &end})
	assert.ErrorIs(t, err, ErrBookingCancelled)

	stored, err := f.store.GetBooking(context.Background(), done.ID)
	require.NoError(t, err)
	assert.True(t, stored.EndTime.Equal(at(9, 0)), "completed booking is unchanged")
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))

	available, err := f.service.CheckAvailability(ctx, f.roomA, at(10, 30), at(11, 30))
	require.NoError(t, err)
	assert.False(t, available)

	available, err = f.service.CheckAvailability(ctx, f.roomA, at(11, 0), at(12, 0))
	require.NoError(t, err)
	assert.True(t, available)

	_, err = f.service.CheckAvailability(ctx, f.roomA, at(11, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = f.service.CheckAvailability(ctx, uuid.New(), at(10, 0), at(11, 0))
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCheckAvailabilityAgreesWithCreate(t *testing.T) {
	candidates := []struct {
		name       string
		start, end time.Time
	}{
		{"before", at(8, 0), at(9, 0)},
		{"touching start", at(9, 0), at(10, 0)},
		{"overlapping start", at(9, 30), at(10, 30)},
		{"inside", at(10, 15), at(10, 45)},
		{"covering", at(9, 0), at(12, 0)},
		{"touching end", at(11, 0), at(12, 0)},
		{"overlapping end", at(10, 59), at(11, 30)},
		{"after", at(13, 0), at(14, 0)},
	}

	for _, c := range candidates {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))

			available, err := f.service.CheckAvailability(ctx, f.roomA, c.start, c.end)
			require.NoError(t, err)

			_, err = f.service.CreateBooking(ctx, CreateBookingInput{
				UserID:    f.bob,
				RoomID:    f.roomA,
				StartTime: c.start,
				EndTime:   c.end,
			})
			if available {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrBookingConflict)
			}
		})
	}
}

func TestConcurrentIdenticalCreates(t *testing.T) {
	f := newFixture(t)
	const attempts = 20

	results := make([]error, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		i := i
		g.Go(func() error {
			_, results[i] = f.service.CreateBooking(context.Background(), CreateBookingInput{
				UserID:    f.alice,
				RoomID:    f.roomA,
				StartTime: at(10, 0),
				EndTime:   at(11, 0),
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrBookingConflict)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.store.Count())
}

func TestConcurrentOverlappingCreates(t *testing.T) {
	f := newFixture(t)

	var g errgroup.Group
	for i := 0; i < 24; i++ {
		start := at(8, 0).Add(time.Duration(i) * 20 * time.Minute)
		g.Go(func() error {
			_, err := f.service.CreateBooking(context.Background(), CreateBookingInput{
				UserID:    f.bob,
				RoomID:    f.roomA,
				StartTime: start,
				EndTime:   start.Add(time.Hour),
			})
			if err != nil && !errors.Is(err, ErrBookingConflict) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Positive(t, f.store.Count())
	assertNoOverlap(t, f.store, f.roomA)
}

func TestGetAndListBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.book(t, f.alice, f.roomA, at(10, 0), at(11, 0))
	f.book(t, f.bob, f.roomB, at(10, 0), at(11, 0))

	details, err := f.service.GetBooking(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", details.User.Username)
	assert.Equal(t, "Room A", details.Room.Name)

	_, err = f.service.GetBooking(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)

	all, err := f.service.ListAllBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.service.ListBookingsForUsername(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	_, err = f.service.ListBookingsForUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestResolveUserID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	explicit := uuid.New()
	id, err := f.service.ResolveUserID(ctx, &explicit, "alice")
	require.NoError(t, err)
	assert.Equal(t, explicit, id, "explicit ID wins")

	id, err = f.service.ResolveUserID(ctx, nil, "bob")
	require.NoError(t, err)
	assert.Equal(t, f.bob, id)

	_, err = f.service.ResolveUserID(ctx, nil, "")
	assert.ErrorIs(t, err, ErrUserReferenceRequired)

	_, err = f.service.ResolveUserID(ctx, &uuid.Nil, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
