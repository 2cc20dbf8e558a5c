package httpserver

import (
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	apperrors "github.com/pscheid92/streamhub/internal/platform/errors"
	"golang.org/x/time/rate"
)

// idle visitors are forgotten after this long
const apiVisitorExpiry = 5 * time.Minute

// newAPIRateLimiter throttles the viewer API per client address. Page loads, health probes and
// the websocket are outside the /api group and never count against the budget.
func newAPIRateLimiter(perSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: apiVisitorExpiry,
	})

	// seconds until one more token is available
	retryAfter := strconv.Itoa(int(math.Ceil(1 / perSecond)))

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, _ error) error {
			c.Response().Header().Set("Retry-After", retryAfter)
			return apperrors.RateLimitedError("too many viewer requests, slow down").
				WithField("client", identifier)
		},
	})
}
