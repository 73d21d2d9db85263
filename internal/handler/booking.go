package handler

import (
    "database/sql"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-commerce/internal/queue"
    "github.com/iliyamo/event-commerce/internal/repository"
    "github.com/iliyamo/event-commerce/internal/service"
)

// BookingHandler exposes the booking flow to customers. All methods
// assume JWT authentication and role validation already ran in
// middleware. The capacity-critical work happens inside the reservation
// engine's transaction; the handler only validates input, translates
// sentinel errors into HTTP responses and fans out queue events after
// commit.
type BookingHandler struct {
    Engine   *service.ReservationEngine
    Events   *repository.EventRepo
    Bookings *repository.BookingRepo
}

// NewBookingHandler constructs a BookingHandler. All dependencies must
// be non-nil.
func NewBookingHandler(engine *service.ReservationEngine, events *repository.EventRepo, bookings *repository.BookingRepo) *BookingHandler {
    if engine == nil || events == nil || bookings == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    return &BookingHandler{Engine: engine, Events: events, Bookings: bookings}
}

// Create handles POST /v1/events/:id/bookings. The body carries the
// number of attendees. Responses: 201 with the booking on success, 409
// when spots ran out or the user already booked, 404 for unknown
// events, 503 when the row lock timed out (retryable).
func (h *BookingHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body struct {
        Attendees uint32 `json:"attendees"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Attendees < 1 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "attendees must be at least 1"})
    }

    ctx := c.Request().Context()
    booking, err := h.Engine.Reserve(ctx, eventID, userID, body.Attendees)
    if err != nil {
        switch {
        case errors.Is(err, sql.ErrNoRows):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        case errors.Is(err, repository.ErrInsufficientCapacity):
            return c.JSON(http.StatusConflict, echo.Map{"error": "not enough spots left"})
        case errors.Is(err, repository.ErrDuplicateBooking):
            return c.JSON(http.StatusConflict, echo.Map{"error": "you already have a booking for this event"})
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusConflict, echo.Map{"error": "event is not open for booking"})
        case errors.Is(err, repository.ErrLockTimeout):
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, please try again"})
        case errors.Is(err, service.ErrInvalidAttendees):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "attendees must be at least 1"})
        case errors.Is(err, service.ErrBookingTooLarge):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking total too large"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
    }

    // Fanout is best effort; the booking already committed.
    ev, evErr := h.Events.GetByID(ctx, eventID)
    title := ""
    if evErr == nil {
        title = ev.Title
    }
    _ = queue.Publish(ctx, queue.BookingConfirmedQueue, queue.BookingEvent{
        BookingID:       booking.ID,
        UserID:          userID,
        EventID:         eventID,
        EventTitle:      title,
        Attendees:       booking.Attendees,
        TotalPriceCents: booking.TotalPriceCents,
        OccurredAt:      time.Now().UTC().Format(time.RFC3339),
    })

    return c.JSON(http.StatusCreated, echo.Map{
        "booking_id":        booking.ID,
        "status":            booking.Status,
        "attendees":         booking.Attendees,
        "total_price_cents": booking.TotalPriceCents,
    })
}

// Cancel handles DELETE /v1/bookings/:id. Cancelling an
// already-cancelled booking succeeds without double-crediting spots.
func (h *BookingHandler) Cancel(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }

    ctx := c.Request().Context()
    if err := h.Engine.Cancel(ctx, bookingID, userID); err != nil {
        switch {
        case errors.Is(err, sql.ErrNoRows):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        case errors.Is(err, repository.ErrLockTimeout):
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, please try again"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
    }

    _ = queue.Publish(ctx, queue.BookingCancelledQueue, queue.BookingEvent{
        BookingID:  bookingID,
        UserID:     userID,
        OccurredAt: time.Now().UTC().Format(time.RFC3339),
    })

    return c.NoContent(http.StatusNoContent)
}

// ListMine handles GET /v1/my-bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    details, err := h.Bookings.ListByUser(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": details})
}
