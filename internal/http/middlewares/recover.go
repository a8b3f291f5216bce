package middlewares

import (
	"net/http"

	"github.com/charo360/nevis-connect/internal/http/errors"
	"github.com/charo360/nevis-connect/internal/observability/logger"
)

// WithRecover converts panics into a 500 instead of killing the
// listener.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered",
						logger.Op("recover"),
						logger.Any("panic", rec),
					)
					errors.WriteError(w, errors.ErrInternal.WithDetail("panic recovered"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
