// Package booking_servicetest provides an in-memory booking store for tests.
package booking_servicetest

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/joy095/booking/models/booking_models"
	"github.com/joy095/booking/models/room_models"
	"github.com/joy095/booking/models/user_models"
	"github.com/joy095/booking/services/conflict_checker"
)

// MemoryStore is an in-process stand-in for the PostgreSQL store and the
// user and room directories. InRoomTx holds a per-room mutex like the
// advisory lock, stages writes until fn returns, and re-checks overlap on
// commit like the exclusion constraint.
type MemoryStore struct {
	mu        sync.Mutex
	bookings  map[uuid.UUID]booking_models.Booking
	users     map[uuid.UUID]user_models.User
	rooms     map[uuid.UUID]room_models.Room
	roomLocks map[uuid.UUID]*sync.Mutex

	// StaleReads makes reads inside a transaction see no bookings, as if
	// a concurrent writer committed after the read. Set it before use.
	StaleReads bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings:  make(map[uuid.UUID]booking_models.Booking),
		users:     make(map[uuid.UUID]user_models.User),
		rooms:     make(map[uuid.UUID]room_models.Room),
		roomLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// AddUser registers a user and returns its ID.
func (m *MemoryStore) AddUser(username, role string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.users[id] = user_models.User{ID: id, Username: username, Role: role}
	return id
}

// AddRoom registers a room and returns its ID.
func (m *MemoryStore) AddRoom(name string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.rooms[id] = room_models.Room{ID: id, Name: name}
	return id
}

// Put stores b as committed, bypassing every check.
func (m *MemoryStore) Put(b booking_models.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
}

// Count returns the number of stored bookings in any status.
func (m *MemoryStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *MemoryStore) RoomExists(_ context.Context, roomID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rooms[roomID]
	return ok, nil
}

func (m *MemoryStore) UserExists(_ context.Context, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[userID]
	return ok, nil
}

func (m *MemoryStore) UserIDByUsername(_ context.Context, username string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u.ID, nil
		}
	}
	return uuid.Nil, user_models.ErrUserNotFound
}

func (m *MemoryStore) roomLock(roomID uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.roomLocks[roomID]
	if !ok {
		l = &sync.Mutex{}
		m.roomLocks[roomID] = l
	}
	return l
}

func (m *MemoryStore) InRoomTx(ctx context.Context, roomID uuid.UUID, fn func(tx booking_models.RoomTx) error) error {
	l := m.roomLock(roomID)
	l.Lock()
	defer l.Unlock()

	tx := &memoryTx{store: m, staged: make(map[uuid.UUID]booking_models.Booking)}
	if err := fn(tx); err != nil {
		return err
	}
	return m.commit(tx.staged)
}

func (m *MemoryStore) commit(staged map[uuid.UUID]booking_models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, b := range staged {
		if !b.Status.IsActive() {
			continue
		}
		for otherID, other := range m.bookings {
			if otherID == id || other.RoomID != b.RoomID {
				continue
			}
			if conflict_checker.HasConflict(b.StartTime, b.EndTime, []booking_models.Booking{other}, uuid.Nil) {
				return booking_models.ErrOverlap
			}
		}
	}
	for id, b := range staged {
		m.bookings[id] = b
	}
	return nil
}

func (m *MemoryStore) ConfirmedBookingsForRoom(_ context.Context, roomID uuid.UUID) ([]booking_models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []booking_models.Booking
	for _, b := range m.bookings {
		if b.RoomID == roomID && b.Status == booking_models.StatusConfirmed {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *MemoryStore) GetBooking(_ context.Context, bookingID uuid.UUID) (*booking_models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, booking_models.ErrBookingNotFound
	}
	return &b, nil
}

func (m *MemoryStore) GetBookingDetails(_ context.Context, bookingID uuid.UUID) (*booking_models.BookingDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, booking_models.ErrBookingNotFound
	}
	d := m.details(b)
	return &d, nil
}

func (m *MemoryStore) ListBookings(_ context.Context) ([]booking_models.BookingDetails, error) {
	return m.list(func(booking_models.Booking) bool { return true }), nil
}

func (m *MemoryStore) ListBookingsForUser(_ context.Context, userID uuid.UUID) ([]booking_models.BookingDetails, error) {
	return m.list(func(b booking_models.Booking) bool { return b.UserID == userID }), nil
}

func (m *MemoryStore) MarkCancelled(_ context.Context, bookingID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return booking_models.ErrBookingNotFound
	}
	b.Status = booking_models.StatusCancelled
	m.bookings[bookingID] = b
	return nil
}

func (m *MemoryStore) list(keep func(booking_models.Booking) bool) []booking_models.BookingDetails {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []booking_models.BookingDetails
	for _, b := range m.bookings {
		if keep(b) {
			out = append(out, m.details(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

// details must be called with mu held.
func (m *MemoryStore) details(b booking_models.Booking) booking_models.BookingDetails {
	return booking_models.BookingDetails{Booking: b, User: m.users[b.UserID], Room: m.rooms[b.RoomID]}
}

type memoryTx struct {
	store  *MemoryStore
	staged map[uuid.UUID]booking_models.Booking
}

func (t *memoryTx) ConfirmedBookingsForRoom(ctx context.Context, roomID uuid.UUID) ([]booking_models.Booking, error) {
	if t.store.StaleReads {
		return nil, nil
	}
	return t.store.ConfirmedBookingsForRoom(ctx, roomID)
}

func (t *memoryTx) LockBooking(ctx context.Context, bookingID uuid.UUID) (*booking_models.Booking, error) {
	if b, ok := t.staged[bookingID]; ok {
		return &b, nil
	}
	return t.store.GetBooking(ctx, bookingID)
}

func (t *memoryTx) InsertBooking(_ context.Context, b *booking_models.Booking) (*booking_models.Booking, error) {
	t.staged[b.ID] = *b
	inserted := *b
	return &inserted, nil
}

func (t *memoryTx) UpdateBookingRow(ctx context.Context, bookingID uuid.UUID, changes booking_models.BookingChanges) (*booking_models.Booking, error) {
	current, err := t.LockBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	current.RoomID = changes.RoomID
	current.StartTime = changes.StartTime
	current.EndTime = changes.EndTime
	t.staged[bookingID] = *current
	updated := *current
	return &updated, nil
}
