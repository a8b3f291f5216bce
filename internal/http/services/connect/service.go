// Package connect orchestrates the account-linking flows: it mints and
// consumes server-side state, delegates the protocol legs to per
// platform flows, and persists the resulting connection.
package connect

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/charo360/nevis-connect/internal/metrics"
	"github.com/charo360/nevis-connect/internal/observability/logger"
	tokens "github.com/charo360/nevis-connect/internal/security/token"
	"github.com/charo360/nevis-connect/internal/state"
	"github.com/charo360/nevis-connect/internal/store/core"
)

// Notifier is told about a successfully linked account. Implementations
// must not block the caller.
type Notifier interface {
	ConnectionLinked(userID, platform, handle string)
}

// Deps wires the service.
type Deps struct {
	States      *state.Store
	Connections core.ConnectionRepository
	Flows       []Flow
	Notifier    Notifier      // optional
	ExchangeCap time.Duration // ceiling for Complete's provider calls, default 10s
}

// PlatformInfo is the public shape of one configured platform.
type PlatformInfo struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// knownPlatforms are the platforms this service understands at all.
// Known but unconfigured is a configuration error, not an unknown
// platform.
var knownPlatforms = map[string]bool{
	"twitter":   true,
	"linkedin":  true,
	"instagram": true,
}

// Service runs the linking flows.
type Service struct {
	states      *state.Store
	connections core.ConnectionRepository
	flows       map[string]Flow
	notifier    Notifier
	exchangeCap time.Duration
}

func NewService(d Deps) *Service {
	flows := make(map[string]Flow, len(d.Flows))
	for _, f := range d.Flows {
		flows[f.Platform()] = f
	}
	exCap := d.ExchangeCap
	if exCap <= 0 {
		exCap = 10 * time.Second
	}
	return &Service{
		states:      d.States,
		connections: d.Connections,
		flows:       flows,
		notifier:    d.Notifier,
		exchangeCap: exCap,
	}
}

// Platforms lists the known platforms and whether each is configured.
func (s *Service) Platforms() []PlatformInfo {
	out := make([]PlatformInfo, 0, len(knownPlatforms))
	for name := range knownPlatforms {
		_, enabled := s.flows[name]
		out = append(out, PlatformInfo{Name: name, Enabled: enabled})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Begin starts a linking flow and returns the provider authorization
// URL the user should be redirected to. The state record is persisted
// only after the flow's Begin succeeded, so a failed request-token
// call leaves nothing behind.
func (s *Service) Begin(ctx context.Context, platform, userID, accountType string) (string, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("connect"),
		logger.Op("Begin"),
		logger.Platform(platform),
	)

	flow, ok := s.flows[platform]
	if !ok {
		if knownPlatforms[platform] {
			return "", fmt.Errorf("%w: %s", ErrNotConfigured, platform)
		}
		return "", fmt.Errorf("%w: %s", ErrPlatformUnknown, platform)
	}

	id, err := tokens.GenerateOpaqueToken(24)
	if err != nil {
		return "", fmt.Errorf("%w: mint state: %v", ErrProviderRequest, err)
	}
	st := &state.AuthState{
		ID:          id,
		Platform:    platform,
		UserID:      userID,
		AccountType: accountType,
	}

	authURL, err := flow.Begin(ctx, st)
	if err != nil {
		log.Warn("begin failed", logger.Err(err))
		return "", err
	}
	if err := s.states.Put(st); err != nil {
		log.Error("state write failed", logger.Err(err))
		return "", fmt.Errorf("%w: persist state: %v", ErrProviderRequest, err)
	}

	metrics.ConnectStarts.With(prometheus.Labels{"platform": platform}).Inc()
	log.Info("flow started", logger.StateID(st.ID), logger.UserID(userID))
	return authURL, nil
}

// Complete handles the provider redirect. The state is recovered by
// state ID first, then by the provider's oauth_token, and is consumed
// before any provider call so a replayed callback finds nothing.
func (s *Service) Complete(ctx context.Context, platform string, q CallbackQuery) (*core.Connection, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("connect"),
		logger.Op("Complete"),
		logger.Platform(platform),
	)

	flow, ok := s.flows[platform]
	if !ok {
		if knownPlatforms[platform] {
			return nil, fmt.Errorf("%w: %s", ErrNotConfigured, platform)
		}
		return nil, fmt.Errorf("%w: %s", ErrPlatformUnknown, platform)
	}

	st, err := s.recoverState(flow, q)
	if err != nil {
		log.Warn("state recovery failed", logger.Err(err))
		return nil, err
	}
	if st.Platform != platform {
		s.states.Delete(st)
		return nil, fmt.Errorf("%w: state minted for %s", ErrInvalidState, st.Platform)
	}
	// Single use: gone before the exchange, regardless of outcome.
	s.states.Delete(st)

	// The exchange must finish even if the user's connection drops
	// mid-callback; only the cap below bounds it.
	exCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.exchangeCap)
	defer cancel()

	started := time.Now()
	conn, err := flow.Complete(exCtx, st, q)
	metrics.ExchangeDuration.With(prometheus.Labels{"platform": platform}).
		Observe(time.Since(started).Seconds())
	metrics.ConnectCallbacks.With(prometheus.Labels{
		"platform": platform,
		"result":   ResultCode(err),
	}).Inc()
	if err != nil {
		return nil, err
	}

	if err := s.connections.Upsert(exCtx, conn); err != nil {
		log.Error("connection upsert failed", logger.Err(err))
		return nil, fmt.Errorf("%w: persist connection: %v", ErrProviderRequest, err)
	}

	if s.notifier != nil {
		s.notifier.ConnectionLinked(conn.UserID, conn.Platform, conn.Handle)
	}
	log.Info("account linked",
		logger.UserID(conn.UserID),
		logger.String("handle", conn.Handle),
	)
	return conn, nil
}

// recoverState tries the recovery strategies in order: explicit state
// parameter, then the provider request token. Only flows that opt in
// get the request-token fallback; OAuth 1.0a providers are allowed to
// drop our state from the redirect, OAuth 2.0 providers are not.
func (s *Service) recoverState(flow Flow, q CallbackQuery) (*state.AuthState, error) {
	if q.State != "" {
		st, err := s.states.Get(q.State)
		if err == nil {
			return st, nil
		}
		if !errors.Is(err, state.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
	}
	if rt, ok := flow.(requestTokenRecoverer); ok && rt.recoverByRequestToken() && q.OAuthToken != "" {
		st, err := s.states.GetByRequestToken(q.OAuthToken)
		if err == nil {
			return st, nil
		}
		if !errors.Is(err, state.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
	}
	return nil, ErrInvalidState
}

// Connections returns the user's linked accounts with credentials
// stripped.
func (s *Service) Connections(ctx context.Context, userID string) ([]*core.Connection, error) {
	list, err := s.connections.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		c.AccessToken, c.AccessSecret, c.RefreshToken = "", "", ""
	}
	return list, nil
}

// Disconnect removes a linked account. Returns core.ErrNotFound when
// the platform was never linked.
func (s *Service) Disconnect(ctx context.Context, userID, platform string) error {
	return s.connections.Delete(ctx, userID, platform)
}
