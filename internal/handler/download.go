package handler

import (
    "database/sql"
    "errors"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-commerce/internal/queue"
    "github.com/iliyamo/event-commerce/internal/repository"
    "github.com/iliyamo/event-commerce/internal/service"
    "github.com/iliyamo/event-commerce/internal/utils"
)

// DownloadHandler exposes grant minting and redemption for purchased
// digital products. The distinct failure causes (bad token, expired,
// not purchased, limit reached) are logged server-side but collapsed
// into one client-facing 403 so the endpoint cannot be used as an
// ownership oracle.
type DownloadHandler struct {
    Service *service.DownloadService
    Logs    *repository.DownloadLogRepo
}

// NewDownloadHandler constructs a DownloadHandler. All dependencies
// must be non-nil.
func NewDownloadHandler(svc *service.DownloadService, logs *repository.DownloadLogRepo) *DownloadHandler {
    if svc == nil || logs == nil {
        panic("nil dependency passed to NewDownloadHandler")
    }
    return &DownloadHandler{Service: svc, Logs: logs}
}

// MintLink handles POST /v1/products/:id/download-link. It returns a
// signed, short-lived token the client appends to the redeem endpoint.
func (h *DownloadHandler) MintLink(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    productID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
    }

    token, exp, err := h.Service.MintGrant(c.Request().Context(), userID, productID)
    if err != nil {
        if errors.Is(err, repository.ErrNotPurchased) {
            return c.JSON(http.StatusForbidden, echo.Map{"error": "download not available"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create download link"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "token":      token,
        "expires_at": exp.Format(time.RFC3339),
    })
}

// Redeem handles GET /v1/downloads?token=... and replies with a 302
// redirect to the underlying file location on success.
func (h *DownloadHandler) Redeem(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    token := c.QueryParam("token")
    if token == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
    }

    ctx := c.Request().Context()
    ip := c.RealIP()
    agent := c.Request().UserAgent()
    fileURL, grant, err := h.Service.AuthorizeDownload(ctx, userID, token, ip, agent)
    if err != nil {
        switch {
        case errors.Is(err, utils.ErrTokenMalformed),
            errors.Is(err, utils.ErrTokenExpired),
            errors.Is(err, utils.ErrTokenSignature),
            errors.Is(err, repository.ErrNotPurchased),
            errors.Is(err, repository.ErrDownloadLimitExceeded):
            // Internal distinction only; one generic body goes out.
            log.Printf("download denied: user_id=%d ip=%s cause=%v", userID, ip, err)
            return c.JSON(http.StatusForbidden, echo.Map{"error": "download not available"})
        case errors.Is(err, sql.ErrNoRows):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
        case errors.Is(err, repository.ErrLockTimeout):
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, please try again"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "download failed"})
    }

    // Fanout is best effort; the delivery already committed.
    _ = queue.Publish(ctx, queue.DownloadDeliveredQueue, queue.DownloadEvent{
        UserID:     userID,
        ProductID:  grant.ProductID,
        OrderID:    grant.OrderID,
        IPAddress:  ip,
        OccurredAt: time.Now().UTC().Format(time.RFC3339),
    })

    return c.Redirect(http.StatusFound, fileURL)
}

// ListMine handles GET /v1/my-downloads and returns the caller's
// delivery history.
func (h *DownloadHandler) ListMine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    logs, err := h.Logs.ListByUser(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load downloads"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": logs})
}
