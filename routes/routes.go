package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joy095/booking/config"
	"github.com/joy095/booking/controllers/booking_controller"
	"github.com/joy095/booking/services/booking_service"
)

// RegisterRoutes mounts the health check and every API route on r.
func RegisterRoutes(r *gin.Engine, cfg config.App, service *booking_service.BookingService) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "bookings"})
	})

	RegisterBookingRoutes(r, booking_controller.NewBookingController(service), []byte(cfg.JWTSecret), cfg.RateLimits, cfg.CreateRateLimit)
}
