// Package linkedin implements the OAuth 2.0 authorization-code flow
// against LinkedIn and fetches the member profile from the OpenID
// userinfo endpoint.
package linkedin

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
	Auth     string
	Token    string
	UserInfo string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Auth:     "https://www.linkedin.com/oauth/v2/authorization",
		Token:    "https://www.linkedin.com/oauth/v2/accessToken",
		UserInfo: "https://api.linkedin.com/v2/userinfo",
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
		scopes = []string{"openid", "profile", "email"}
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

// AuthURL builds the user-facing authorization URL carrying state.
func (c *Client) AuthURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("state", state)
	q.Set("scope", strings.Join(c.Scopes, " "))
	return c.Endpoints.Auth + "?" + q.Encode()
}

type Token struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// ExchangeCode trades the authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.RedirectURL)
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)

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
		return nil, fmt.Errorf("linkedin: token exchange status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("linkedin: decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("linkedin: empty access_token in exchange response")
	}
	return &tok, nil
}

// UserInfo is the OpenID userinfo response.
type UserInfo struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Profile fetches the member profile with a bearer token.
func (c *Client) Profile(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoints.UserInfo, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("linkedin: userinfo status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("linkedin: decode userinfo: %w", err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("linkedin: userinfo missing sub")
	}
	return &info, nil
}
