package handler // declare the package name; contains HTTP handlers

import (
	"errors"   // for errors.Is comparisons against domain sentinels
	"net/http" // HTTP status codes
	"strconv"  // parsing path parameters

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/flight-seat-booking/internal/model" // domain types and sentinel errors
)

// FlightHandler serves the public browse endpoints: listing flights and
// listing the seats still open for sale on a single flight.  It talks to
// the booking service rather than the repositories directly so that
// lazy hold expiry and seat ordering stay in one place.
type FlightHandler struct {
	Svc BookingAPI // booking service facade
}

// NewFlightHandler constructs a FlightHandler.  The service must be non-nil.
func NewFlightHandler(svc BookingAPI) *FlightHandler {
	if svc == nil {
		panic("nil service passed to NewFlightHandler")
	}
	return &FlightHandler{Svc: svc}
}

// ListFlights handles GET /v1/flights.  It returns every flight ordered
// by departure time.  There is no pagination; the demo dataset is small.
func (h *FlightHandler) ListFlights(c echo.Context) error {
	flights, err := h.Svc.ListFlights(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"flights": flights})
}

// ListAvailableSeats handles GET /v1/flights/:id/seats.  It returns the
// seats of the flight that are currently AVAILABLE, ordered by row then
// letter.  Seats under an active hold are excluded even though the hold
// may still lapse.
func (h *FlightHandler) ListAvailableSeats(c echo.Context) error {
	flightID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || flightID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flight id"})
	}
	seats, err := h.Svc.ListAvailableSeats(c.Request().Context(), flightID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "flight not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"flight_id": flightID,
		"seats":     seats,
	})
}
