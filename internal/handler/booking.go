package handler // declare the package name; contains HTTP handlers

import (
	"context" // for the BookingAPI contract
	"errors"  // for errors.Is / errors.As comparisons
	"net/http"
	"strings"

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/flight-seat-booking/internal/booking" // booking service and input types
	"github.com/iliyamo/flight-seat-booking/internal/model"   // domain types and sentinel errors
)

// BookingAPI is the slice of the booking service the HTTP layer needs.
// Handlers depend on this interface rather than the concrete service so
// tests can substitute a stub.
type BookingAPI interface {
	ListFlights(ctx context.Context) ([]model.Flight, error)
	ListAvailableSeats(ctx context.Context, flightID uint64) ([]model.Seat, error)
	CreateBooking(ctx context.Context, in booking.CreateBookingInput) (*model.Booking, error)
	GetBooking(ctx context.Context, reference string) (*model.Booking, error)
	InitiatePayment(ctx context.Context, reference string, amountCents uint32) (string, error)
	ProcessPayment(ctx context.Context, reference, token string, succeed bool) (*model.Booking, error)
	Cancel(ctx context.Context, reference string) (*model.Booking, error)
	Refund(ctx context.Context, reference, reason string) (*model.Booking, error)
	ExpireHolds(ctx context.Context) (int, error)
}

// BookingHandler serves the booking lifecycle endpoints: creating a
// booking, reading it, driving it through payment, and cancelling or
// refunding it.  Every mutation is delegated to the booking service,
// which owns locking and state transitions; the handler only translates
// between HTTP and domain errors.
type BookingHandler struct {
	Svc BookingAPI // booking service facade
}

// NewBookingHandler constructs a BookingHandler.  The service must be non-nil.
func NewBookingHandler(svc BookingAPI) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc}
}

// ----- DTOs -----

type createBookingReq struct {
	FlightID       uint64   `json:"flight_id"`
	SeatIDs        []uint64 `json:"seat_ids"`
	PassengerName  string   `json:"passenger_name"`
	PassengerEmail string   `json:"passenger_email"`
	PassengerPhone string   `json:"passenger_phone"`
}

type initiatePaymentReq struct {
	AmountCents uint32 `json:"amount_cents"` // optional; defaults to the booking total
}

type processPaymentReq struct {
	Token   string `json:"token"`
	Outcome string `json:"outcome"` // "success" | "failure"
}

type refundReq struct {
	Reason string `json:"reason"`
}

// Create handles POST /v1/bookings.  It holds the requested seats and
// creates a booking in PENDING_PAYMENT.  The hold is all-or-nothing: if
// any seat is taken the whole request fails with 409 and no seat is
// held.  Returns 201 with the new booking on success.
func (h *BookingHandler) Create(c echo.Context) error {
	var body createBookingReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.FlightID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "flight_id is required"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}
	if strings.TrimSpace(body.PassengerName) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passenger_name is required"})
	}
	b, err := h.Svc.CreateBooking(c.Request().Context(), booking.CreateBookingInput{
		FlightID:       body.FlightID,
		SeatIDs:        body.SeatIDs,
		PassengerName:  strings.TrimSpace(body.PassengerName),
		PassengerEmail: strings.TrimSpace(body.PassengerEmail),
		PassengerPhone: strings.TrimSpace(body.PassengerPhone),
	})
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": b})
}

// Get handles GET /v1/bookings/:reference.  Reading a booking also runs
// lazy expiry, so a PENDING_PAYMENT booking whose holds have lapsed
// comes back as EXPIRED.
func (h *BookingHandler) Get(c echo.Context) error {
	ref, err := bookingRef(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	b, err := h.Svc.GetBooking(c.Request().Context(), ref)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// InitiatePayment handles POST /v1/bookings/:reference/payment.  It
// opens a payment attempt on a PENDING_PAYMENT booking and returns the
// payment token the caller must present to ProcessPayment.  If the
// seat holds have already lapsed it returns 410.
func (h *BookingHandler) InitiatePayment(c echo.Context) error {
	ref, err := bookingRef(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	var body initiatePaymentReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	token, err := h.Svc.InitiatePayment(c.Request().Context(), ref, body.AmountCents)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reference":     ref,
		"payment_token": token,
	})
}

// ProcessPayment handles POST /v1/bookings/:reference/payment/process.
// The body carries the payment token and the gateway outcome.  A
// successful capture confirms the booking and books its seats; a failed
// capture releases the seats while the booking stays PENDING_PAYMENT.
// Replaying a settled token with the same outcome is a no-op.
func (h *BookingHandler) ProcessPayment(c echo.Context) error {
	ref, err := bookingRef(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	var body processPaymentReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}
	var succeed bool
	switch body.Outcome {
	case "success":
		succeed = true
	case "failure":
		succeed = false
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "outcome must be success or failure"})
	}
	b, err := h.Svc.ProcessPayment(c.Request().Context(), ref, body.Token, succeed)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// Cancel handles POST /v1/bookings/:reference/cancel.  Only CONFIRMED
// bookings can be cancelled; their seats return to AVAILABLE.  Payment
// money is not moved here, use Refund for that.
func (h *BookingHandler) Cancel(c echo.Context) error {
	ref, err := bookingRef(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	b, err := h.Svc.Cancel(c.Request().Context(), ref)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// Refund handles POST /v1/bookings/:reference/refund.  It refunds the
// captured payment of a CONFIRMED booking, releases its seats and moves
// the booking to REFUNDED.
func (h *BookingHandler) Refund(c echo.Context) error {
	ref, err := bookingRef(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	var body refundReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	b, err := h.Svc.Refund(c.Request().Context(), ref, strings.TrimSpace(body.Reason))
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// ExpireHolds handles POST /v1/admin/expire-holds.  It runs one sweep
// over lapsed holds immediately and reports how many bookings were
// expired.  The periodic sweeper does the same on a timer; this
// endpoint exists for operators and tests.
func (h *BookingHandler) ExpireHolds(c echo.Context) error {
	n, err := h.Svc.ExpireHolds(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": n})
}

// bookingRef extracts and validates the :reference path parameter.
func bookingRef(c echo.Context) (string, error) {
	ref := strings.ToUpper(strings.TrimSpace(c.Param("reference")))
	if ref == "" {
		return "", errors.New("empty reference")
	}
	return ref, nil
}

// bookingError maps domain errors to HTTP responses.  Unknown errors
// become 500 without leaking internals.
func bookingError(c echo.Context, err error) error {
	var inv *model.InvalidTransitionError
	switch {
	case errors.Is(err, model.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, model.ErrSeatUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrHoldExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "seat hold has expired"})
	case errors.As(err, &inv):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":     "invalid state transition",
			"reference": inv.Reference,
			"from":      inv.From,
			"to":        inv.To,
		})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
