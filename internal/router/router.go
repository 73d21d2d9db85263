package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // Echo web framework used for routing
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/event-commerce/internal/config"
    "github.com/iliyamo/event-commerce/internal/handler"    // handlers that implement business logic
    "github.com/iliyamo/event-commerce/internal/middleware" // middleware for JWT authentication, roles, rate limiting and caching
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Load balancers and monitors hit this endpoint to verify the service
    // is up and running.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    // Operations that do not require an existing session: register, login
    // and refresh.  Each handler is responsible for generating or
    // exchanging tokens.
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // Refresh rotates the refresh token and returns a new pair.
    g.POST("/refresh", a.Refresh)
    // Logout accepts a JSON body containing a refresh_token and invalidates
    // it.  No JWT is required so an expired session can still be closed.
    g.POST("/logout", a.Logout)

    // Routes that require a valid access token.  The JWTAuth middleware runs
    // before every handler registered on this group.
    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole("ORGANIZER", "CUSTOMER"))
    // Return the authenticated user's information.
    auth.GET("/me", a.Me)
}

// RegisterPublic registers unauthenticated browse endpoints.  Responses are
// sanitized (no file URLs) and served through the Redis response cache so
// repeated catalog reads do not hit MySQL.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
    cached := middleware.ResponseCache(cacheCfg, rdb)
    // Upcoming events with remaining spots.
    e.GET("/v1/events", p.ListEvents, cached)
    // Event details by id.
    e.GET("/v1/events/:id", p.GetEvent, cached)
    // Product catalog without file URLs.
    e.GET("/v1/products", p.ListProducts, cached)
}

// RegisterBooking registers the reservation endpoints.  All routes require a
// JWT; booking creation additionally passes through the token-bucket rate
// limiter because it is the most contended write path.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
    limited := middleware.NewTokenBucket(rlCfg, rdb)

    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("ORGANIZER", "CUSTOMER"))

    // Reserve spots on an event.
    g.POST("/events/:id/bookings", b.Create, limited)
    // Cancel an owned booking.  Cancelling twice is a no-op.
    g.DELETE("/bookings/:id", b.Cancel)
    // The caller's booking history.
    g.GET("/my-bookings", b.ListMine)
}

// RegisterCommerce registers checkout, refund, order history and the digital
// download endpoints.  Redemption is rate limited so a leaked token cannot be
// hammered while it is still valid.
func RegisterCommerce(e *echo.Echo, ch *handler.CheckoutHandler, d *handler.DownloadHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
    limited := middleware.NewTokenBucket(rlCfg, rdb)

    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("ORGANIZER", "CUSTOMER"))

    g.POST("/checkout", ch.Checkout)
    g.POST("/orders/:id/refund", ch.Refund)
    g.GET("/my-orders", ch.ListMyOrders)

    // Mint a short-lived signed download link for a purchased product.
    g.POST("/products/:id/download-link", d.MintLink, limited)
    // Redeem a link; replies with a redirect to the file on success.
    g.GET("/downloads", d.Redeem, limited)
    // The caller's delivery history.
    g.GET("/my-downloads", d.ListMine)
}

// RegisterOrganizer registers management endpoints restricted to the
// ORGANIZER role: event and product CRUD plus per-event booking lists.
func RegisterOrganizer(e *echo.Echo, o *handler.OrganizerHandler, pa *handler.ProductAdminHandler, jwtSecret string) {
    g := e.Group("/v1/organizer")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("ORGANIZER"))

    g.POST("/events", o.CreateEvent)
    g.PUT("/events/:id", o.UpdateEvent)
    g.GET("/events/:id/bookings", o.ListEventBookings)

    g.POST("/products", pa.CreateProduct)
    g.PUT("/products/:id", pa.UpdateProduct)
}
