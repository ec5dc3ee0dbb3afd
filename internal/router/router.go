package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/flight-seat-booking/internal/config"     // middleware configuration
	"github.com/iliyamo/flight-seat-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/flight-seat-booking/internal/middleware" // rate limiting and response caching
)

// RegisterRoutes registers routes that are not part of the booking API
// on the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterBooking registers the flight browse and booking lifecycle
// endpoints.  Read endpoints sit behind the Redis response cache so
// seat maps under heavy polling do not hammer MySQL; every endpoint
// sits behind the token bucket rate limiter.  The middlewares degrade
// to pass-through when rdb is nil, so a missing Redis only costs the
// caching and limiting, never availability.
func RegisterBooking(e *echo.Echo, f *handler.FlightHandler, b *handler.BookingHandler, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	v1 := e.Group("/v1", limiter)

	// Public browse endpoints.  These are the hot read paths, so they
	// additionally go through the response cache.
	v1.GET("/flights", f.ListFlights, cache)
	v1.GET("/flights/:id/seats", f.ListAvailableSeats, cache)

	// Booking lifecycle.  GET is not cached: reading a booking runs
	// lazy hold expiry and must always see fresh state.
	v1.POST("/bookings", b.Create)
	v1.GET("/bookings/:reference", b.Get)
	v1.POST("/bookings/:reference/payment", b.InitiatePayment)
	v1.POST("/bookings/:reference/payment/process", b.ProcessPayment)
	v1.POST("/bookings/:reference/cancel", b.Cancel)
	v1.POST("/bookings/:reference/refund", b.Refund)

	// Operator endpoint that forces a hold sweep outside the timer.
	v1.POST("/admin/expire-holds", b.ExpireHolds)
}
