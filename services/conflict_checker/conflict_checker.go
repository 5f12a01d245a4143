// Package conflict_checker decides whether a proposed booking window collides
// with bookings already holding a room. It does no I/O.
//
// Windows are treated as half-open: a booking that starts exactly when
// another ends does not conflict with it.
package conflict_checker

import (
	"time"

	"github.com/google/uuid"
	"github.com/joy095/booking/models/booking_models"
)

// Overlaps reports whether the candidate window [candStart, candEnd) and the
// existing window [existStart, existEnd) share any instant. Both windows must
// already satisfy start < end.
func Overlaps(candStart, candEnd, existStart, existEnd time.Time) bool {
	return candStart.Before(existEnd) && existStart.Before(candEnd)
}

// HasConflict reports whether the candidate window overlaps any active
// booking in existing, ignoring the booking whose ID is exclude. Pass
// uuid.Nil to exclude nothing.
func HasConflict(start, end time.Time, existing []booking_models.Booking, exclude uuid.UUID) bool {
	_, found := FindConflict(start, end, existing, exclude)
	return found
}

// FindConflict is HasConflict that also returns the first booking in the
// collision.
func FindConflict(start, end time.Time, existing []booking_models.Booking, exclude uuid.UUID) (booking_models.Booking, bool) {
	for _, b := range existing {
		if exclude != uuid.Nil && b.ID == exclude {
			continue
		}
		if !b.Status.IsActive() {
			continue
		}
		if Overlaps(start, end, b.StartTime, b.EndTime) {
			return b, true
		}
	}
	return booking_models.Booking{}, false
}
