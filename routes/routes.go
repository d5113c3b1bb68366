package routes

import (
	"net/http"
	"time"

	"serenity/handlers"
	"serenity/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the handlers the router needs.
type HandlerBundle struct {
	Webhook *handlers.WebhookHandler
	Booking *handlers.BookingHandler
}

// RegisterWebhookRoutes registers the WhatsApp gateway ingestion endpoint.
func RegisterWebhookRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/webhooks")
	{
		api.POST("/ultramsg", hb.Webhook.UltraMsgWebhook)
	}
}

// RegisterAdminRoutes sets up read-only booking inspection endpoints.
func RegisterAdminRoutes(r *gin.Engine, hb *HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.JWTAuthAdminMiddleware())
		adminGroup.GET("/bookings/pending", hb.Booking.ListPendingBookings)
		adminGroup.GET("/bookings/:ref", hb.Booking.GetBookingByRef)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm Serenity"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterWebhookRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
}
