// Package instagram implements the Instagram Basic Display OAuth 2.0
// flow with PKCE. The authorization request carries an S256 code
// challenge and the exchange sends the matching verifier.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Endpoints struct {
	Auth  string
	Token string
	Me    string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Auth:  "https://api.instagram.com/oauth/authorize",
		Token: "https://api.instagram.com/oauth/access_token",
		Me:    "https://graph.instagram.com/me",
	}
}

type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Endpoints    Endpoints

	http *http.Client
}

func New(clientID, clientSecret, redirectURL string, scopes []string) *Client {
	if len(scopes) == 0 {
		scopes = []string{"user_profile"}
	}
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		Endpoints:    DefaultEndpoints(),
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthURL builds the authorization URL. codeChallenge, when non-empty,
// is sent as an S256 PKCE challenge.
func (c *Client) AuthURL(state, codeChallenge string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("state", state)
	q.Set("scope", strings.Join(c.Scopes, ","))
	if codeChallenge != "" {
		q.Set("code_challenge", codeChallenge)
		q.Set("code_challenge_method", "S256")
	}
	return c.Endpoints.Auth + "?" + q.Encode()
}

type Token struct {
	AccessToken string `json:"access_token"`
	UserID      int64  `json:"user_id"`
}

// ExchangeCode trades the authorization code for an access token,
// sending the PKCE verifier when one was issued.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.RedirectURL)
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	if codeVerifier != "" {
		form.Set("code_verifier", codeVerifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoints.Token, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("instagram: token exchange status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("instagram: decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("instagram: empty access_token in exchange response")
	}
	return &tok, nil
}

// UserInfo is the /me profile subset.
type UserInfo struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	AccountType string `json:"account_type"`
}

// Profile fetches the account profile for an access token.
func (c *Client) Profile(ctx context.Context, accessToken string) (*UserInfo, error) {
	q := url.Values{}
	q.Set("fields", "id,username,account_type")
	q.Set("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoints.Me+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("instagram: profile status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("instagram: decode profile: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("instagram: profile missing id")
	}
	return &info, nil
}
