package handler

import (
    "database/sql"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-commerce/internal/repository"
)

// CheckoutHandler creates and refunds orders for digital products.
// Payment capture is an upstream concern; by the time Checkout runs the
// charge has succeeded, so the order is written as COMPLETED and
// immediately authorizes downloads. Refunding flips the order to
// REFUNDED, which cuts off downloads at the next redemption because
// ownership is re-checked at delivery time.
type CheckoutHandler struct {
    Orders   *repository.OrderRepo
    Products *repository.ProductRepo
}

// NewCheckoutHandler constructs a CheckoutHandler and panics if any
// dependency is nil.
func NewCheckoutHandler(orders *repository.OrderRepo, products *repository.ProductRepo) *CheckoutHandler {
    if orders == nil || products == nil {
        panic("nil repository passed to NewCheckoutHandler")
    }
    return &CheckoutHandler{Orders: orders, Products: products}
}

// Checkout handles POST /v1/checkout with a product_id body.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        ProductID uint64 `json:"product_id"`
    }
    if err := c.Bind(&body); err != nil || body.ProductID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_id required"})
    }

    ctx := c.Request().Context()
    p, err := h.Products.GetByID(ctx, body.ProductID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
    }

    order, err := h.Orders.CreateCompleted(ctx, userID, p.ID, p.PriceCents)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "checkout failed"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "order_id":    order.ID,
        "public_id":   order.PublicID,
        "status":      order.Status,
        "total_cents": order.TotalCents,
    })
}

// Refund handles POST /v1/orders/:id/refund.
func (h *CheckoutHandler) Refund(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orderID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }

    err = h.Orders.Refund(c.Request().Context(), orderID, userID)
    if err != nil {
        switch {
        case errors.Is(err, sql.ErrNoRows):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusConflict, echo.Map{"error": "order is not refundable"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refund failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// ListMyOrders handles GET /v1/my-orders.
func (h *CheckoutHandler) ListMyOrders(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    details, err := h.Orders.ListByUser(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load orders"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": details})
}
