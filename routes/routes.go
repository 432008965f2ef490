package routes

import (
	"time"

	"verial/handlers"
	"verial/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HandlerBundle carries the wired handlers for route registration.
type HandlerBundle struct {
	Webhook  *handlers.WebhookHandler
	Refund   *handlers.RefundHandler
	Earnings *handlers.EarningsHandler
	Booking  *handlers.BookingHandler
}

// RegisterRoutes wires all endpoints.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Admin-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", handlers.HealthHandler)

	// Verified processor events; signature verification happens at the
	// platform ingress in front of this service.
	payments := r.Group("/api/payments")
	{
		payments.POST("/webhook", hb.Webhook.HandlePaymentEvent)
	}

	// Staff surfaces.
	admin := r.Group("/api/payments")
	admin.Use(middleware.AdminAuthMiddleware())
	{
		admin.POST("/refunds", hb.Refund.ProcessRefund)
		admin.GET("/refunds/booking/:bookingID", hb.Refund.ListRefundsByBooking)
		admin.GET("/earnings/provider/:providerID", hb.Earnings.ProviderSummary)
		admin.GET("/earnings/booking/:bookingID", hb.Earnings.BookingEarnings)
	}

	// Booking lifecycle.
	bookings := r.Group("/api/bookings")
	{
		bookings.POST("", hb.Booking.CreateBooking)
		bookings.GET("/:id", hb.Booking.GetBooking)
		bookings.POST("/:id/accept", hb.Booking.AcceptBooking)
		bookings.POST("/:id/decline", hb.Booking.DeclineBooking)
		bookings.POST("/:id/cancel", hb.Booking.CancelBooking)
		bookings.POST("/:id/complete", hb.Booking.CompleteBooking)
		bookings.POST("/:id/dispute", hb.Booking.DisputeBooking)
	}

	disputes := r.Group("/api/bookings")
	disputes.Use(middleware.AdminAuthMiddleware())
	{
		disputes.POST("/:id/resolve", hb.Booking.ResolveDispute)
	}
}
