package middleware

import (
    "bytes"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/event-commerce/internal/config"
)

// cachedResponse is the envelope stored in Redis for a cached response.
type cachedResponse struct {
    Status      int    `json:"status"`
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// captureWriter captures the response body and status while forwarding
// everything to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
}

func (w *captureWriter) WriteHeader(status int) {
    w.status = status
    w.ResponseWriter.WriteHeader(status)
}

func (w *captureWriter) Write(b []byte) (int, error) {
    w.buf.Write(b)
    return w.ResponseWriter.Write(b)
}

// ResponseCache returns a middleware that serves public catalog responses
// from Redis. Only configured methods are cached, only 200 responses are
// stored, and bodies above MaxBodyBytes are passed through uncached.
// Keys are a SHA-1 of method, path and raw query. When Redis is
// unavailable the middleware is a no-op.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if !cfg.Methods[req.Method] {
                return next(c)
            }
            key := cacheKey(cfg.Prefix, req.Method, req.URL.Path, req.URL.RawQuery)
            ctx := req.Context()

            if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
                var cached cachedResponse
                if json.Unmarshal(raw, &cached) == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(cached.Status, cached.ContentType, cached.Body)
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }

            if cw.status == http.StatusOK && cw.buf.Len() <= cfg.MaxBodyBytes {
                entry := cachedResponse{
                    Status:      cw.status,
                    ContentType: c.Response().Header().Get(echo.HeaderContentType),
                    Body:        cw.buf.Bytes(),
                }
                if raw, err := json.Marshal(entry); err == nil {
                    // Best effort; a failed SET only costs the next request a miss.
                    _ = rdb.Set(ctx, key, raw, cfg.TTL).Err()
                }
            }
            return nil
        }
    }
}

func cacheKey(prefix, method, path, query string) string {
    sum := sha1.Sum([]byte(method + " " + path + "?" + query))
    return prefix + ":" + hex.EncodeToString(sum[:])
}
