package middlewares

import (
	"net/http"
	"strconv"

	"github.com/charo360/nevis-connect/internal/http/errors"
	"github.com/charo360/nevis-connect/internal/observability/logger"
	"github.com/charo360/nevis-connect/internal/rate"
)

// WithRateLimit limits by client IP. A limiter error fails open: the
// broker must not refuse callbacks because Redis blinked.
func WithRateLimit(limiter rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
				errors.WriteError(w, errors.ErrTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
