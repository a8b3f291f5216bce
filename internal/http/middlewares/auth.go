package middlewares

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/charo360/nevis-connect/internal/http/errors"
	"github.com/charo360/nevis-connect/internal/observability/logger"
)

// AuthConfig controls the bearer-token middleware.
type AuthConfig struct {
	Secret []byte
	// AllowDemoUser accepts unauthenticated requests as DemoUserID.
	// Dev only.
	AllowDemoUser bool
	DemoUserID    string
}

// WithAuth validates a Bearer HS256 token and puts its subject in the
// context as the user ID.
func WithAuth(cfg AuthConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.From(r.Context())

			raw := bearerToken(r)
			if raw == "" {
				if cfg.AllowDemoUser {
					ctx := WithUserID(r.Context(), cfg.DemoUserID)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("bearer token required"))
				return
			}

			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return cfg.Secret, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil {
				log.Debug("token rejected", logger.Err(err))
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("invalid token"))
				return
			}

			sub, _ := claims.GetSubject()
			if sub == "" {
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("token missing subject"))
				return
			}
			ctx := WithUserID(r.Context(), sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
