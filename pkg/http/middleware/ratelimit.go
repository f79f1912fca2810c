package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Allower is satisfied by a keyed token bucket.
type Allower interface {
	Allow(key string) bool
}

// RateLimit rejects requests over budget with 429, keyed by client IP. Paths in skip (health,
// metrics) are never limited.
func RateLimit(lim Allower, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if lim == nil || skipped[c.Request().URL.Path] {
				return next(c)
			}
			if !lim.Allow(c.RealIP()) {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
