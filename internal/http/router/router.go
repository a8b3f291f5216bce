// Package router wires the HTTP surface: the linking endpoints, the
// authenticated connection management API, and the operational
// endpoints.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ctrl "github.com/charo360/nevis-connect/internal/http/controllers/connect"
	mw "github.com/charo360/nevis-connect/internal/http/middlewares"
	"github.com/charo360/nevis-connect/internal/rate"
	"github.com/charo360/nevis-connect/internal/store/core"
)

// Deps contains the router dependencies.
type Deps struct {
	Start       *ctrl.StartController
	Callback    *ctrl.CallbackController
	Connections *ctrl.ConnectionsController

	Auth        mw.AuthConfig
	RateLimiter rate.Limiter // optional
	Repo        core.ConnectionRepository
}

// New builds the router.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	base := []mw.Middleware{
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
	}
	flow := []mw.Middleware{
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithNoStore(),
		mw.WithRateLimit(d.RateLimiter),
	}
	authed := append(append([]mw.Middleware{}, flow...), mw.WithAuth(d.Auth))

	// Linking flow. Start needs the user; the provider callback
	// carries no bearer token, the state record identifies the user.
	r.Method(http.MethodGet, "/oauth/platforms",
		mw.Chain(http.HandlerFunc(d.Connections.Platforms), base...))
	r.Method(http.MethodGet, "/oauth/{platform}/start",
		mw.Chain(http.HandlerFunc(d.Start.Start), authed...))
	r.Method(http.MethodGet, "/oauth/{platform}/callback",
		mw.Chain(http.HandlerFunc(d.Callback.Callback), flow...))

	// Connection management.
	r.Method(http.MethodGet, "/connections",
		mw.Chain(http.HandlerFunc(d.Connections.List), authed...))
	r.Method(http.MethodDelete, "/connections/{platform}",
		mw.Chain(http.HandlerFunc(d.Connections.Delete), authed...))

	// Operational endpoints are unwrapped except for recovery.
	r.Method(http.MethodGet, "/healthz", mw.Chain(http.HandlerFunc(healthz), mw.WithRecover()))
	r.Method(http.MethodGet, "/readyz", mw.Chain(readyz(d.Repo), mw.WithRecover()))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func readyz(repo core.ConnectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if repo != nil {
			if err := repo.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded","store":"down"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}
