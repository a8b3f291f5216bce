package connect

import (
	"context"
	"fmt"
	"net/url"

	"github.com/charo360/nevis-connect/internal/oauth/twitter"
	"github.com/charo360/nevis-connect/internal/observability/logger"
	"github.com/charo360/nevis-connect/internal/state"
	"github.com/charo360/nevis-connect/internal/store/core"
)

// oauth1Flow drives the three-legged OAuth 1.0a dance. The request
// token obtained in Begin is stored on the state record so the
// callback can recover it even when the provider drops our state
// parameter from the redirect.
type oauth1Flow struct {
	platform    string
	client      *twitter.Client
	callbackURL string
}

// NewTwitterFlow builds the Twitter OAuth 1.0a flow. callbackURL must
// match the URL registered with the consumer key.
func NewTwitterFlow(client *twitter.Client, callbackURL string) Flow {
	return &oauth1Flow{platform: "twitter", client: client, callbackURL: callbackURL}
}

func (f *oauth1Flow) Platform() string { return f.platform }

func (f *oauth1Flow) recoverByRequestToken() bool { return true }

func (f *oauth1Flow) Begin(ctx context.Context, st *state.AuthState) (string, error) {
	// The state ID rides on the callback URL because the provider is
	// not guaranteed to echo arbitrary parameters on redirect.
	cb, err := withStateParam(f.callbackURL, st.ID)
	if err != nil {
		return "", fmt.Errorf("%w: bad callback url: %v", ErrNotConfigured, err)
	}
	token, secret, err := f.client.RequestToken(ctx, cb)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderRequest, err)
	}
	st.RequestToken = token
	st.RequestTokenSecret = secret
	return f.client.AuthorizeURL(token), nil
}

func withStateParam(rawURL, stateID string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("state", stateID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *oauth1Flow) Complete(ctx context.Context, st *state.AuthState, q CallbackQuery) (*core.Connection, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("connect.oauth1"),
		logger.Platform(f.platform),
	)

	if q.Error != "" || q.OAuthVerifier == "" {
		return nil, fmt.Errorf("%w: provider returned %q", ErrProviderRequest, q.Error)
	}
	// The redirected oauth_token must be the one this state was minted
	// for, otherwise someone is splicing two flows together.
	if q.OAuthToken != "" && q.OAuthToken != st.RequestToken {
		return nil, fmt.Errorf("%w: request token mismatch", ErrInvalidState)
	}

	at, err := f.client.ExchangeAccessToken(ctx, st.RequestToken, st.RequestTokenSecret, q.OAuthVerifier)
	if err != nil {
		log.Warn("access token exchange failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	info, err := f.client.VerifyCredentials(ctx, at.Token, at.Secret)
	if err != nil {
		log.Warn("verify_credentials failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}

	return &core.Connection{
		UserID:       st.UserID,
		Platform:     f.platform,
		AccountID:    info.IDStr,
		Handle:       info.ScreenName,
		DisplayName:  info.Name,
		PictureURL:   info.ImageURL,
		Email:        info.Email,
		AccessToken:  at.Token,
		AccessSecret: at.Secret,
	}, nil
}
