package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/booking/controllers/booking_controller"
	middleware "github.com/joy095/booking/middlewares"
	"github.com/joy095/booking/middlewares/auth"
)

// RegisterBookingRoutes registers all booking-related routes
func RegisterBookingRoutes(router *gin.Engine, bookingController *booking_controller.BookingController, jwtSecret []byte, rateLimits []string, createRateLimit string) {
	var createLimiter gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if createRateLimit != "" {
		createLimiter = middleware.NewRateLimiter(createRateLimit, "bookings_create")
	}

	protected := router.Group("/bookings")
	protected.Use(auth.AuthMiddleware(jwtSecret))
	protected.Use(middleware.CombinedRateLimiter("bookings", rateLimits...))
	{
		protected.GET("", auth.RequireRole(booking_controller.ReadAllRoles...), bookingController.ListBookings)
		protected.GET("/check-availability", bookingController.CheckAvailability)
		protected.GET("/user/:username", bookingController.ListUserBookings)
		protected.GET("/:id", auth.RequireRole(booking_controller.ReadAllRoles...), bookingController.GetBooking)

		protected.POST("",
			auth.RejectReadOnly(),
			auth.RequireRole(booking_controller.CreateRoles...),
			createLimiter,
			bookingController.CreateBooking)
		protected.PUT("/:id", auth.RejectReadOnly(), bookingController.UpdateBooking)
		protected.DELETE("/:id", auth.RejectReadOnly(), bookingController.CancelBooking)
	}
}
