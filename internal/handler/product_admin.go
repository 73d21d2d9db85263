package handler

import (
    "database/sql"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-commerce/internal/model"
    "github.com/iliyamo/event-commerce/internal/repository"
)

// ProductAdminHandler lets organizers manage their digital products.
type ProductAdminHandler struct {
    Products *repository.ProductRepo
}

// NewProductAdminHandler constructs a ProductAdminHandler and panics if
// the repository is nil.
func NewProductAdminHandler(products *repository.ProductRepo) *ProductAdminHandler {
    if products == nil {
        panic("nil repository passed to NewProductAdminHandler")
    }
    return &ProductAdminHandler{Products: products}
}

type productReq struct {
    Title         string `json:"title"`
    Sku           string `json:"sku"`
    Description   string `json:"description"`
    FileURL       string `json:"file_url"`
    PriceCents    uint32 `json:"price_cents"`
    DownloadLimit uint32 `json:"download_limit"`
}

// CreateProduct handles POST /v1/organizer/products.
func (h *ProductAdminHandler) CreateProduct(c echo.Context) error {
    organizerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req productReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Title == "" || req.Sku == "" || req.FileURL == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "title, sku and file_url required"})
    }
    if req.DownloadLimit == 0 {
        req.DownloadLimit = 3
    }

    p := &model.Product{
        OrganizerID:   organizerID,
        Title:         req.Title,
        Sku:           req.Sku,
        Description:   req.Description,
        FileURL:       req.FileURL,
        PriceCents:    req.PriceCents,
        DownloadLimit: req.DownloadLimit,
    }
    if err := h.Products.Create(c.Request().Context(), p); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "sku already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create product"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "id":             p.ID,
        "title":          p.Title,
        "sku":            p.Sku,
        "price_cents":    p.PriceCents,
        "download_limit": p.DownloadLimit,
    })
}

// UpdateProduct handles PUT /v1/organizer/products/:id.
func (h *ProductAdminHandler) UpdateProduct(c echo.Context) error {
    organizerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    productID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
    }
    var req productReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Title == "" || req.FileURL == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and file_url required"})
    }
    if req.DownloadLimit == 0 {
        req.DownloadLimit = 3
    }

    err = h.Products.UpdateForOrganizer(c.Request().Context(), productID, organizerID,
        req.Title, req.Description, req.FileURL, req.PriceCents, req.DownloadLimit)
    if err != nil {
        switch {
        case errors.Is(err, sql.ErrNoRows):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update product"})
    }
    return c.NoContent(http.StatusNoContent)
}
