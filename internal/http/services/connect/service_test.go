package connect

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	memcache "github.com/charo360/nevis-connect/internal/cache/memory"
	"github.com/charo360/nevis-connect/internal/state"
	memstore "github.com/charo360/nevis-connect/internal/store/adapters/memory"
	"github.com/charo360/nevis-connect/internal/store/core"
)

type fakeProvider struct {
	authBase     string
	wantVerifier bool
	exchangeErr  error
	profileErr   error
	exchanged    atomic.Int64
}

func (p *fakeProvider) AuthURL(stateID, codeChallenge string) string {
	q := url.Values{}
	q.Set("state", stateID)
	if codeChallenge != "" {
		q.Set("code_challenge", codeChallenge)
	}
	return p.authBase + "?" + q.Encode()
}

func (p *fakeProvider) Exchange(ctx context.Context, code, codeVerifier string) (*OAuth2Token, error) {
	p.exchanged.Add(1)
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	if p.wantVerifier && codeVerifier == "" {
		return nil, errors.New("missing verifier")
	}
	if code != "good-code" {
		return nil, errors.New("bad code")
	}
	return &OAuth2Token{AccessToken: "at-123", ExpiresIn: 3600}, nil
}

func (p *fakeProvider) Profile(ctx context.Context, accessToken string) (*ProviderProfile, error) {
	if p.profileErr != nil {
		return nil, p.profileErr
	}
	return &ProviderProfile{
		AccountID:   "acct-1",
		Handle:      "somebody",
		DisplayName: "Some Body",
	}, nil
}

type countingRepo struct {
	core.ConnectionRepository
	upserts atomic.Int64
}

func (r *countingRepo) Upsert(ctx context.Context, c *core.Connection) error {
	r.upserts.Add(1)
	return r.ConnectionRepository.Upsert(ctx, c)
}

func newTestService(t *testing.T, flows ...Flow) (*Service, *state.Store, *countingRepo) {
	t.Helper()
	states := state.New(memcache.New(time.Minute), time.Minute)
	repo := &countingRepo{ConnectionRepository: memstore.New()}
	svc := NewService(Deps{
		States:      states,
		Connections: repo,
		Flows:       flows,
	})
	return svc, states, repo
}

func stateIDFromAuthURL(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	return u.Query().Get("state")
}

func TestOAuth2FlowEndToEnd(t *testing.T) {
	provider := &fakeProvider{authBase: "https://provider.test/authorize"}
	svc, states, repo := newTestService(t, NewOAuth2Flow("linkedin", provider, false))

	ctx := context.Background()
	authURL, err := svc.Begin(ctx, "linkedin", "user-1", "")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(authURL, "https://provider.test/authorize?"))

	stateID := stateIDFromAuthURL(t, authURL)
	require.NotEmpty(t, stateID)

	conn, err := svc.Complete(ctx, "linkedin", CallbackQuery{State: stateID, Code: "good-code"})
	require.NoError(t, err)
	require.Equal(t, "user-1", conn.UserID)
	require.Equal(t, "acct-1", conn.AccountID)
	require.Equal(t, "somebody", conn.Handle)
	require.NotNil(t, conn.TokenExpiry)

	// Saved exactly once and readable back.
	require.EqualValues(t, 1, repo.upserts.Load())
	saved, err := repo.Get(ctx, "user-1", "linkedin")
	require.NoError(t, err)
	require.Equal(t, "at-123", saved.AccessToken)

	// State was consumed: the same callback replayed finds nothing.
	_, err = states.Get(stateID)
	require.ErrorIs(t, err, state.ErrNotFound)
	_, err = svc.Complete(ctx, "linkedin", CallbackQuery{State: stateID, Code: "good-code"})
	require.ErrorIs(t, err, ErrInvalidState)
	require.EqualValues(t, 1, repo.upserts.Load())
}

func TestOAuth2FlowPKCEVerifierReachesExchange(t *testing.T) {
	provider := &fakeProvider{authBase: "https://provider.test/authorize", wantVerifier: true}
	svc, _, _ := newTestService(t, NewOAuth2Flow("instagram", provider, true))

	ctx := context.Background()
	authURL, err := svc.Begin(ctx, "instagram", "user-1", "business")
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	require.NotEmpty(t, u.Query().Get("code_challenge"))

	conn, err := svc.Complete(ctx, "instagram", CallbackQuery{
		State: u.Query().Get("state"),
		Code:  "good-code",
	})
	require.NoError(t, err)
	require.Equal(t, "business", conn.AccountType)
}

func TestCompleteExchangeFailureConsumesState(t *testing.T) {
	provider := &fakeProvider{authBase: "https://provider.test/authorize", exchangeErr: errors.New("boom")}
	svc, states, repo := newTestService(t, NewOAuth2Flow("linkedin", provider, false))

	ctx := context.Background()
	authURL, err := svc.Begin(ctx, "linkedin", "user-1", "")
	require.NoError(t, err)
	stateID := stateIDFromAuthURL(t, authURL)

	_, err = svc.Complete(ctx, "linkedin", CallbackQuery{State: stateID, Code: "good-code"})
	require.ErrorIs(t, err, ErrTokenExchange)
	require.EqualValues(t, 0, repo.upserts.Load())

	// Still single use, even on failure.
	_, err = states.Get(stateID)
	require.ErrorIs(t, err, state.ErrNotFound)
}

func TestCompleteProfileFailure(t *testing.T) {
	provider := &fakeProvider{authBase: "https://provider.test/authorize", profileErr: errors.New("nope")}
	svc, _, repo := newTestService(t, NewOAuth2Flow("linkedin", provider, false))

	ctx := context.Background()
	authURL, err := svc.Begin(ctx, "linkedin", "user-1", "")
	require.NoError(t, err)

	_, err = svc.Complete(ctx, "linkedin", CallbackQuery{
		State: stateIDFromAuthURL(t, authURL),
		Code:  "good-code",
	})
	require.ErrorIs(t, err, ErrProfileFetch)
	require.EqualValues(t, 0, repo.upserts.Load())
}

func TestCompleteProviderDenial(t *testing.T) {
	provider := &fakeProvider{authBase: "https://provider.test/authorize"}
	svc, _, _ := newTestService(t, NewOAuth2Flow("linkedin", provider, false))

	ctx := context.Background()
	authURL, err := svc.Begin(ctx, "linkedin", "user-1", "")
	require.NoError(t, err)

	_, err = svc.Complete(ctx, "linkedin", CallbackQuery{
		State: stateIDFromAuthURL(t, authURL),
		Error: "access_denied",
	})
	require.ErrorIs(t, err, ErrProviderRequest)
}

func TestCompletePlatformMismatch(t *testing.T) {
	li := &fakeProvider{authBase: "https://li.test/authorize"}
	ig := &fakeProvider{authBase: "https://ig.test/authorize"}
	svc, states, _ := newTestService(t,
		NewOAuth2Flow("linkedin", li, false),
		NewOAuth2Flow("instagram", ig, true),
	)

	ctx := context.Background()
	authURL, err := svc.Begin(ctx, "linkedin", "user-1", "")
	require.NoError(t, err)
	stateID := stateIDFromAuthURL(t, authURL)

	_, err = svc.Complete(ctx, "instagram", CallbackQuery{State: stateID, Code: "good-code"})
	require.ErrorIs(t, err, ErrInvalidState)

	// Mismatch burns the state too.
	_, err = states.Get(stateID)
	require.ErrorIs(t, err, state.ErrNotFound)
}

func TestBeginUnknownPlatform(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Begin(context.Background(), "myspace", "user-1", "")
	require.ErrorIs(t, err, ErrPlatformUnknown)
}

func TestCompleteWithoutAnyState(t *testing.T) {
	provider := &fakeProvider{authBase: "https://provider.test/authorize"}
	svc, _, _ := newTestService(t, NewOAuth2Flow("linkedin", provider, false))

	_, err := svc.Complete(context.Background(), "linkedin", CallbackQuery{Code: "good-code"})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestPlatformsListsConfiguredState(t *testing.T) {
	svc, _, _ := newTestService(t,
		NewOAuth2Flow("linkedin", &fakeProvider{}, false),
		NewOAuth2Flow("instagram", &fakeProvider{}, true),
	)
	got := svc.Platforms()
	require.Len(t, got, 3)
	require.Equal(t, PlatformInfo{Name: "instagram", Enabled: true}, got[0])
	require.Equal(t, PlatformInfo{Name: "linkedin", Enabled: true}, got[1])
	require.Equal(t, PlatformInfo{Name: "twitter", Enabled: false}, got[2])
}

func TestCompleteOAuth2IgnoresRequestTokenLookup(t *testing.T) {
	// The request-token fallback exists for OAuth 1.0a providers that
	// drop our state parameter. An OAuth 2.0 callback presenting only
	// an oauth_token must not resolve through the alias.
	p := &fakeProvider{}
	svc, states, repo := newTestService(t, NewOAuth2Flow("linkedin", p, false))

	st := &state.AuthState{ID: "st-1", Platform: "linkedin", UserID: "user-1", RequestToken: "rt-1"}
	require.NoError(t, states.Put(st))

	_, err := svc.Complete(context.Background(), "linkedin", CallbackQuery{
		OAuthToken: "rt-1",
		Code:       "good-code",
	})
	require.ErrorIs(t, err, ErrInvalidState)
	require.EqualValues(t, 0, p.exchanged.Load())
	require.EqualValues(t, 0, repo.upserts.Load())

	// The same record is still reachable by state id.
	got, err := states.Get("st-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", got.UserID)
}

func TestBeginKnownButUnconfigured(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Begin(context.Background(), "twitter", "user-1", "")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestConnectionsStripsCredentials(t *testing.T) {
	svc, _, repo := newTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, &core.Connection{
		UserID:      "user-1",
		Platform:    "twitter",
		AccountID:   "42",
		AccessToken: "tok",
	}))

	list, err := svc.Connections(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Empty(t, list[0].AccessToken)
}

func TestResultCodes(t *testing.T) {
	cases := map[error]string{
		nil:                "ok",
		ErrPlatformUnknown: "unknown_platform",
		ErrNotConfigured:   "provider_not_configured",
		ErrInvalidState:    "invalid_state",
		ErrTokenExchange:   "token_exchange_failed",
		ErrProfileFetch:    "profile_fetch_failed",
		ErrProviderRequest: "provider_request_failed",
		errors.New("other"): "provider_request_failed",
	}
	for err, want := range cases {
		if got := ResultCode(err); got != want {
			t.Fatalf("ResultCode(%v) = %q, want %q", err, got, want)
		}
	}
}
