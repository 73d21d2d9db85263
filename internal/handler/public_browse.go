package handler

import (
    "database/sql"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-commerce/internal/repository"
)

// PublicHandler exposes unauthenticated catalog browsing. Responses are
// sanitized: product file URLs never leave the server without a verified
// download grant.
type PublicHandler struct {
    Events   *repository.EventRepo
    Products *repository.ProductRepo
}

// NewPublicHandler constructs a PublicHandler and panics if any
// dependency is nil.
func NewPublicHandler(events *repository.EventRepo, products *repository.ProductRepo) *PublicHandler {
    if events == nil || products == nil {
        panic("nil repository passed to NewPublicHandler")
    }
    return &PublicHandler{Events: events, Products: products}
}

// ListEvents handles GET /v1/events and returns upcoming events with
// remaining spots.
func (h *PublicHandler) ListEvents(c echo.Context) error {
    events, err := h.Events.ListUpcoming(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load events"})
    }
    items := make([]echo.Map, 0, len(events))
    for _, ev := range events {
        items = append(items, echo.Map{
            "id":              ev.ID,
            "title":           ev.Title,
            "description":     ev.Description,
            "starts_at":       ev.StartsAt.UTC().Format(time.RFC3339),
            "capacity":        ev.Capacity,
            "available_spots": ev.AvailableSpots,
            "price_cents":     ev.PriceCents,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetEvent handles GET /v1/events/:id.
func (h *PublicHandler) GetEvent(c echo.Context) error {
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ev, err := h.Events.GetByID(c.Request().Context(), eventID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "id":              ev.ID,
        "title":           ev.Title,
        "description":     ev.Description,
        "starts_at":       ev.StartsAt.UTC().Format(time.RFC3339),
        "capacity":        ev.Capacity,
        "available_spots": ev.AvailableSpots,
        "price_cents":     ev.PriceCents,
        "status":          ev.Status,
    })
}

// ListProducts handles GET /v1/products. File URLs are omitted.
func (h *PublicHandler) ListProducts(c echo.Context) error {
    products, err := h.Products.List(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load products"})
    }
    items := make([]echo.Map, 0, len(products))
    for _, p := range products {
        items = append(items, echo.Map{
            "id":             p.ID,
            "title":          p.Title,
            "sku":            p.Sku,
            "description":    p.Description,
            "price_cents":    p.PriceCents,
            "download_limit": p.DownloadLimit,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
