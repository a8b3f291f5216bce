// Package twitter implements the OAuth 1.0a three-legged flow against
// Twitter. Every call carries an individually computed HMAC-SHA1
// signature; the request-token and access-token responses are
// form-encoded, and the richer profile comes from a separately signed
// verify_credentials call.
package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charo360/nevis-connect/internal/oauth/oauth1"
)

// Endpoints are overridable so tests can point the client at stubs.
type Endpoints struct {
	RequestToken      string
	Authorize         string
	AccessToken       string
	VerifyCredentials string
}

// DefaultEndpoints are the production Twitter endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		RequestToken:      "https://api.twitter.com/oauth/request_token",
		Authorize:         "https://api.twitter.com/oauth/authorize",
		AccessToken:       "https://api.twitter.com/oauth/access_token",
		VerifyCredentials: "https://api.twitter.com/1.1/account/verify_credentials.json",
	}
}

// Client is the Twitter OAuth 1.0a client.
type Client struct {
	Signer    *oauth1.Signer
	Endpoints Endpoints

	http *http.Client
}

// New creates a Client for a consumer-key pair.
func New(consumerKey, consumerSecret string) *Client {
	return &Client{
		Signer:    oauth1.NewSigner(consumerKey, consumerSecret),
		Endpoints: DefaultEndpoints(),
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

// RequestToken obtains a temporary credential. callbackURL is signed as
// oauth_callback; the token secret is empty at this stage.
func (c *Client) RequestToken(ctx context.Context, callbackURL string) (token, secret string, err error) {
	vals, err := c.signedForm(ctx, http.MethodPost, c.Endpoints.RequestToken,
		map[string]string{"oauth_callback": callbackURL}, "", "")
	if err != nil {
		return "", "", err
	}
	token = vals.Get("oauth_token")
	secret = vals.Get("oauth_token_secret")
	if token == "" || secret == "" {
		return "", "", errors.New("twitter: request token response missing oauth_token/oauth_token_secret")
	}
	if vals.Get("oauth_callback_confirmed") != "true" {
		return "", "", errors.New("twitter: callback not confirmed")
	}
	return token, secret, nil
}

// AuthorizeURL is where the user approves the request token.
func (c *Client) AuthorizeURL(requestToken string) string {
	u, _ := url.Parse(c.Endpoints.Authorize)
	q := u.Query()
	q.Set("oauth_token", requestToken)
	u.RawQuery = q.Encode()
	return u.String()
}

// AccessToken is the final exchange result.
type AccessToken struct {
	Token      string
	Secret     string
	UserID     string
	ScreenName string
}

// ExchangeAccessToken trades an authorized request token plus verifier
// for the durable credential, signed with the request-token secret.
func (c *Client) ExchangeAccessToken(ctx context.Context, requestToken, requestSecret, verifier string) (*AccessToken, error) {
	vals, err := c.signedForm(ctx, http.MethodPost, c.Endpoints.AccessToken,
		map[string]string{"oauth_verifier": verifier}, requestToken, requestSecret)
	if err != nil {
		return nil, err
	}
	at := &AccessToken{
		Token:      vals.Get("oauth_token"),
		Secret:     vals.Get("oauth_token_secret"),
		UserID:     vals.Get("user_id"),
		ScreenName: vals.Get("screen_name"),
	}
	if at.Token == "" || at.Secret == "" {
		return nil, errors.New("twitter: access token response missing oauth_token/oauth_token_secret")
	}
	return at, nil
}

// UserInfo is the verify_credentials payload subset we keep.
type UserInfo struct {
	IDStr      string `json:"id_str"`
	ScreenName string `json:"screen_name"`
	Name       string `json:"name"`
	ImageURL   string `json:"profile_image_url_https"`
	Email      string `json:"email"`
}

// VerifyCredentials fetches the authorized user's profile. This is a
// second independently signed request: the query parameters are part of
// a fresh signature base string for the GET.
func (c *Client) VerifyCredentials(ctx context.Context, accessToken, accessSecret string) (*UserInfo, error) {
	reqURL := c.Endpoints.VerifyCredentials + "?include_email=true&skip_status=true"

	header, err := c.Signer.AuthorizationHeader(http.MethodGet, reqURL, nil, nil, accessToken, accessSecret)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("twitter: verify_credentials status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("twitter: decode profile: %w", err)
	}
	return &info, nil
}

// signedForm POSTs a signed request and parses the form-encoded response.
func (c *Client) signedForm(ctx context.Context, method, endpoint string, oauthExtra map[string]string, token, tokenSecret string) (url.Values, error) {
	header, err := c.Signer.AuthorizationHeader(method, endpoint, oauthExtra, nil, token, tokenSecret)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitter: %s status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	vals, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("twitter: parse response: %w", err)
	}
	return vals, nil
}
