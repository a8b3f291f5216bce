package connect

import (
	"context"
	"fmt"
	"time"

	"github.com/charo360/nevis-connect/internal/observability/logger"
	tokens "github.com/charo360/nevis-connect/internal/security/token"
	"github.com/charo360/nevis-connect/internal/state"
	"github.com/charo360/nevis-connect/internal/store/core"
)

// OAuth2Token is the provider-neutral exchange result.
type OAuth2Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// ProviderProfile is the provider-neutral profile shape the flow turns
// into a connection.
type ProviderProfile struct {
	AccountID   string
	Handle      string
	DisplayName string
	PictureURL  string
	Email       string
	AccountType string
}

// OAuth2Provider abstracts one OAuth 2.0 provider. codeChallenge and
// codeVerifier are empty when the provider does not use PKCE.
type OAuth2Provider interface {
	AuthURL(stateID, codeChallenge string) string
	Exchange(ctx context.Context, code, codeVerifier string) (*OAuth2Token, error)
	Profile(ctx context.Context, accessToken string) (*ProviderProfile, error)
}

// oauth2Flow drives the authorization-code flow, with optional S256
// PKCE. The verifier is minted in Begin and travels only through the
// server-side state record.
type oauth2Flow struct {
	platform string
	provider OAuth2Provider
	usePKCE  bool
}

// NewOAuth2Flow wraps an OAuth2Provider as a Flow.
func NewOAuth2Flow(platform string, provider OAuth2Provider, usePKCE bool) Flow {
	return &oauth2Flow{platform: platform, provider: provider, usePKCE: usePKCE}
}

func (f *oauth2Flow) Platform() string { return f.platform }

func (f *oauth2Flow) Begin(ctx context.Context, st *state.AuthState) (string, error) {
	var challenge string
	if f.usePKCE {
		verifier, err := tokens.GenerateOpaqueToken(32)
		if err != nil {
			return "", fmt.Errorf("%w: mint verifier: %v", ErrProviderRequest, err)
		}
		st.CodeVerifier = verifier
		challenge = tokens.SHA256Base64URL(verifier)
	}
	return f.provider.AuthURL(st.ID, challenge), nil
}

func (f *oauth2Flow) Complete(ctx context.Context, st *state.AuthState, q CallbackQuery) (*core.Connection, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("connect.oauth2"),
		logger.Platform(f.platform),
	)

	if q.Error != "" || q.Code == "" {
		return nil, fmt.Errorf("%w: provider returned %q", ErrProviderRequest, q.Error)
	}

	tok, err := f.provider.Exchange(ctx, q.Code, st.CodeVerifier)
	if err != nil {
		log.Warn("code exchange failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	profile, err := f.provider.Profile(ctx, tok.AccessToken)
	if err != nil {
		log.Warn("profile fetch failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}

	conn := &core.Connection{
		UserID:       st.UserID,
		Platform:     f.platform,
		AccountID:    profile.AccountID,
		Handle:       profile.Handle,
		DisplayName:  profile.DisplayName,
		PictureURL:   profile.PictureURL,
		Email:        profile.Email,
		AccountType:  profile.AccountType,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if st.AccountType != "" {
		conn.AccountType = st.AccountType
	}
	if tok.ExpiresIn > 0 {
		exp := time.Now().UTC().Add(time.Duration(tok.ExpiresIn) * time.Second)
		conn.TokenExpiry = &exp
	}
	return conn, nil
}
