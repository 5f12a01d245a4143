package booking_controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/models/booking_models"
	"github.com/joy095/booking/models/user_models"
	"github.com/joy095/booking/services/booking_service"
	"github.com/joy095/booking/utils"
)

// ReadAllRoles may read any user's bookings.
var ReadAllRoles = []string{
	user_models.RoleAdmin,
	user_models.RoleFacilityManager,
	user_models.RoleAuditorReadonly,
}

// ManageRoles may modify bookings they do not own.
var ManageRoles = []string{
	user_models.RoleAdmin,
	user_models.RoleFacilityManager,
}

// CreateRoles may create bookings.
var CreateRoles = []string{
	user_models.RoleRegularUser,
	user_models.RoleFacilityManager,
	user_models.RoleAdmin,
	user_models.RoleServiceAccount,
}

// BookingController serves the booking endpoints.
type BookingController struct {
	Service *booking_service.BookingService
}

// NewBookingController creates a new instance of BookingController.
func NewBookingController(service *booking_service.BookingService) *BookingController {
	return &BookingController{
		Service: service,
	}
}

type AvailabilityQuery struct {
	RoomID    string    `form:"room_id" binding:"required,uuid"`
	StartTime time.Time `form:"start_time" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	EndTime   time.Time `form:"end_time" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

type CreateBookingRequest struct {
	UserID    *uuid.UUID `json:"user_id"`
	Username  string     `json:"username"`
	RoomID    uuid.UUID  `json:"room_id" binding:"required"`
	StartTime time.Time  `json:"start_time" binding:"required"`
	EndTime   time.Time  `json:"end_time" binding:"required"`
}

type UpdateBookingRequest struct {
	RoomID    *uuid.UUID `json:"room_id"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// ListBookings returns every booking.
func (bc *BookingController) ListBookings(c *gin.Context) {
	bookings, err := bc.Service.ListAllBookings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(bookings))
}

// CheckAvailability reports whether a room is free for a window.
func (bc *BookingController) CheckAvailability(c *gin.Context) {
	var q AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		logger.WarnLogger.Warnf("Invalid availability query: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id, start_time and end_time (RFC 3339) are required"})
		return
	}
	roomID := uuid.MustParse(q.RoomID)

	available, err := bc.Service.CheckAvailability(c.Request.Context(), roomID, q.StartTime, q.EndTime)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}

// GetBooking returns one booking.
func (bc *BookingController) GetBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	details, err := bc.Service.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// ListUserBookings returns a user's booking history. Users may read their
// own; auditors and managers may read anyone's.
func (bc *BookingController) ListUserBookings(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		return
	}
	username := c.Param("username")
	if principal.Username != username && !principal.HasRole(ReadAllRoles...) {
		logger.WarnLogger.Warnf("User %s denied access to bookings of %s", principal.Username, username)
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}

	bookings, err := bc.Service.ListBookingsForUsername(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(bookings))
}

// CreateBooking reserves a room for the user named in the body, which need
// not be the caller.
func (bc *BookingController) CreateBooking(c *gin.Context) {
	if _, ok := principalFrom(c); !ok {
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnLogger.Warnf("Invalid create booking payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	userID, err := bc.Service.ResolveUserID(ctx, req.UserID, req.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	booking, err := bc.Service.CreateBooking(ctx, booking_service.CreateBookingInput{
		UserID:    userID,
		RoomID:    req.RoomID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	bc.respondDetails(c, http.StatusCreated, booking)
}

// UpdateBooking changes a booking's window or room.
func (bc *BookingController) UpdateBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var req UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnLogger.Warnf("Invalid update booking payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if !bc.authorizeOwnerOrManager(c, bookingID) {
		return
	}

	booking, err := bc.Service.UpdateBooking(c.Request.Context(), bookingID, booking_service.UpdateBookingInput{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		RoomID:    req.RoomID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	bc.respondDetails(c, http.StatusOK, booking)
}

// CancelBooking soft-deletes a booking.
func (bc *BookingController) CancelBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}
	if !bc.authorizeOwnerOrManager(c, bookingID) {
		return
	}

	if err := bc.Service.CancelBooking(c.Request.Context(), bookingID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled successfully"})
}

// authorizeOwnerOrManager lets the booking's owner or a manager through and
// writes the error response otherwise.
func (bc *BookingController) authorizeOwnerOrManager(c *gin.Context, bookingID uuid.UUID) bool {
	principal, ok := principalFrom(c)
	if !ok {
		return false
	}

	existing, err := bc.Service.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return false
	}
	if existing.UserID != principal.UserID && !principal.HasRole(ManageRoles...) {
		logger.WarnLogger.Warnf("User %s denied access to booking %s", principal.Username, bookingID)
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only modify your own bookings"})
		return false
	}
	return true
}

// respondDetails writes the booking with its user and room. The write
// already succeeded, so a failed read falls back to the bare booking.
func (bc *BookingController) respondDetails(c *gin.Context, status int, booking *booking_models.Booking) {
	details, err := bc.Service.GetBooking(c.Request.Context(), booking.ID)
	if err != nil {
		logger.WarnLogger.Warnf("Failed to load details for booking %s: %v", booking.ID, err)
		c.JSON(status, booking)
		return
	}
	c.JSON(status, details)
}

func principalFrom(c *gin.Context) (utils.Principal, bool) {
	principal, err := utils.GetPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return utils.Principal{}, false
	}
	return principal, true
}

func bookingIDParam(c *gin.Context) (uuid.UUID, bool) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID format"})
		return uuid.Nil, false
	}
	return bookingID, true
}

// respondError maps service errors to HTTP responses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking_service.ErrInvalidInterval):
		c.JSON(http.StatusBadRequest, gin.H{"error": "End time must be after start time"})
	case errors.Is(err, booking_service.ErrUserReferenceRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either user_id or username is required"})
	case errors.Is(err, booking_service.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
	case errors.Is(err, booking_service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, booking_service.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
	case errors.Is(err, booking_service.ErrBookingConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Room is already booked for this time slot"})
	case errors.Is(err, booking_service.ErrBookingCancelled):
		c.JSON(http.StatusConflict, gin.H{"error": "Booking is no longer active"})
	default:
		logger.ErrorLogger.Errorf("Booking request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func nonNil(bookings []booking_models.BookingDetails) []booking_models.BookingDetails {
	if bookings == nil {
		return []booking_models.BookingDetails{}
	}
	return bookings
}
