package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/flowengine/common/ratelimit"
)

// OrgRateLimitMiddleware enforces a per-organization request rate on the
// routes it wraps. The organization is read from the X-Org-Id header;
// requests without one are left for the handler to reject on its own
// terms rather than rate limited here.
func OrgRateLimitMiddleware(limiter *ratelimit.Limiter, limit int64, windowSec int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			orgID := c.Request().Header.Get("X-Org-Id")
			if orgID == "" {
				return next(c)
			}

			result, err := limiter.CheckOrg(c.Request().Context(), orgID, limit, windowSec)
			if err != nil {
				// Fail open: a rate limiter outage shouldn't take down execution.
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "org_rate_limit_exceeded",
					"message": "too many execution requests for this organization",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"window_seconds":      windowSec,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
