package main // Entry point package

import (
    "log"  // Logging library
    "time" // Durations for token TTLs

    "github.com/joho/godotenv"    // Loads .env files in development
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/iliyamo/event-commerce/internal/config"
    "github.com/iliyamo/event-commerce/internal/database"
    "github.com/iliyamo/event-commerce/internal/handler"
    "github.com/iliyamo/event-commerce/internal/queue"
    "github.com/iliyamo/event-commerce/internal/repository"
    "github.com/iliyamo/event-commerce/internal/router"
    "github.com/iliyamo/event-commerce/internal/service"
)

func main() {
    // Load .env if present; in production the environment is set directly.
    _ = godotenv.Load()

    cfg := config.Load() // Load environment config, fatals on missing vars

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis is optional: when it is unreachable the client is nil and both
    // the rate limiter and the response cache fall open.
    rdb := config.NewRedisClient()
    rlCfg := config.LoadRateLimitConfig()
    cacheCfg := config.LoadCacheConfig()

    // Repositories wrap raw SQL access per table.
    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    events := repository.NewEventRepo(db)
    bookings := repository.NewBookingRepo(db)
    products := repository.NewProductRepo(db)
    orders := repository.NewOrderRepo(db)
    downloadLogs := repository.NewDownloadLogRepo(db)

    // Engines orchestrate the transactional flows on top of the repositories.
    reservations := service.NewReservationEngine(db, events, bookings)
    downloads := service.NewDownloadService(db, cfg.DownloadSecret,
        time.Duration(cfg.DownloadTTLMin)*time.Minute, products, orders, downloadLogs)

    authH := handler.NewAuthHandler(cfg, users, tokens)
    publicH := handler.NewPublicHandler(events, products)
    bookingH := handler.NewBookingHandler(reservations, events, bookings)
    checkoutH := handler.NewCheckoutHandler(orders, products)
    downloadH := handler.NewDownloadHandler(downloads, downloadLogs)
    organizerH := handler.NewOrganizerHandler(events, bookings)
    productAdminH := handler.NewProductAdminHandler(products)

    // Drain booking and download fanout messages into the activity log.
    // The consumer reconnects on its own; a missing broker only costs the
    // fanout, never the request path.
    go func() {
        if err := queue.StartActivityConsumer(); err != nil {
            log.Printf("activity consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterAuth(e, authH, cfg.JWTSecret)
    router.RegisterPublic(e, publicH, cacheCfg, rdb)
    router.RegisterBooking(e, bookingH, cfg.JWTSecret, rlCfg, rdb)
    router.RegisterCommerce(e, checkoutH, downloadH, cfg.JWTSecret, rlCfg, rdb)
    router.RegisterOrganizer(e, organizerH, productAdminH, cfg.JWTSecret)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
