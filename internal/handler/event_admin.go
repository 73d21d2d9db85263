package handler

import (
    "database/sql"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-commerce/internal/model"
    "github.com/iliyamo/event-commerce/internal/repository"
)

// OrganizerHandler bundles repositories for organizers to manage their
// events and inspect their bookings.
type OrganizerHandler struct {
    Events   *repository.EventRepo
    Bookings *repository.BookingRepo
}

// NewOrganizerHandler constructs an OrganizerHandler and panics if any
// dependency is nil.
func NewOrganizerHandler(events *repository.EventRepo, bookings *repository.BookingRepo) *OrganizerHandler {
    if events == nil || bookings == nil {
        panic("nil repository passed to NewOrganizerHandler")
    }
    return &OrganizerHandler{Events: events, Bookings: bookings}
}

type eventReq struct {
    Title       string `json:"title"`
    Description string `json:"description"`
    StartsAt    string `json:"starts_at"` // RFC3339
    Capacity    uint32 `json:"capacity"`
    PriceCents  uint32 `json:"price_cents"`
}

// CreateEvent handles POST /v1/organizer/events. Available spots start
// equal to capacity.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
    organizerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req eventReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Title == "" || req.Capacity == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and capacity required"})
    }
    startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
    if err != nil || !startsAt.After(time.Now().UTC()) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be a future RFC3339 timestamp"})
    }

    ev := &model.Event{
        OrganizerID: organizerID,
        Title:       req.Title,
        Description: req.Description,
        StartsAt:    startsAt.UTC(),
        Capacity:    req.Capacity,
        PriceCents:  req.PriceCents,
    }
    if err := h.Events.Create(c.Request().Context(), ev); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create event"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "id":              ev.ID,
        "title":           ev.Title,
        "starts_at":       ev.StartsAt.Format(time.RFC3339),
        "capacity":        ev.Capacity,
        "available_spots": ev.AvailableSpots,
        "price_cents":     ev.PriceCents,
        "status":          ev.Status,
    })
}

// UpdateEvent handles PUT /v1/organizer/events/:id. Capacity edits
// rebase the remaining spots; shrinking below what is already booked is
// rejected with 409.
func (h *OrganizerHandler) UpdateEvent(c echo.Context) error {
    organizerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var req eventReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Title == "" || req.Capacity == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and capacity required"})
    }
    startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
    }

    err = h.Events.UpdateForOrganizer(c.Request().Context(), eventID, organizerID,
        req.Title, req.Description, startsAt.UTC().Format("2006-01-02 15:04:05"), req.Capacity, req.PriceCents)
    if err != nil {
        switch {
        case errors.Is(err, sql.ErrNoRows):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusConflict, echo.Map{"error": "capacity below booked spots"})
        case errors.Is(err, repository.ErrLockTimeout):
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, please try again"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update event"})
    }
    return c.NoContent(http.StatusNoContent)
}

// ListEventBookings handles GET /v1/organizer/events/:id/bookings.
func (h *OrganizerHandler) ListEventBookings(c echo.Context) error {
    organizerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    bookings, err := h.Bookings.ListByEventForOrganizer(c.Request().Context(), eventID, organizerID)
    if err != nil {
        switch {
        case errors.Is(err, sql.ErrNoRows):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
    }
    items := make([]echo.Map, 0, len(bookings))
    for _, b := range bookings {
        items = append(items, echo.Map{
            "id":                b.ID,
            "user_id":           b.UserID,
            "attendees":         b.Attendees,
            "status":            b.Status,
            "total_price_cents": b.TotalPriceCents,
            "created_at":        b.CreatedAt.UTC().Format(time.RFC3339),
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
