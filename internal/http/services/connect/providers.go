package connect

import (
	"context"

	"github.com/charo360/nevis-connect/internal/oauth/instagram"
	"github.com/charo360/nevis-connect/internal/oauth/linkedin"
)

// linkedinProvider adapts linkedin.Client to OAuth2Provider.
type linkedinProvider struct {
	client *linkedin.Client
}

func NewLinkedInProvider(client *linkedin.Client) OAuth2Provider {
	return &linkedinProvider{client: client}
}

func (p *linkedinProvider) AuthURL(stateID, codeChallenge string) string {
	// LinkedIn does not support PKCE for confidential clients; the
	// challenge is ignored.
	return p.client.AuthURL(stateID)
}

func (p *linkedinProvider) Exchange(ctx context.Context, code, codeVerifier string) (*OAuth2Token, error) {
	tok, err := p.client.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return &OAuth2Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	}, nil
}

func (p *linkedinProvider) Profile(ctx context.Context, accessToken string) (*ProviderProfile, error) {
	info, err := p.client.Profile(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &ProviderProfile{
		AccountID:   info.Sub,
		Handle:      info.Email,
		DisplayName: info.Name,
		PictureURL:  info.Picture,
		Email:       info.Email,
	}, nil
}

// instagramProvider adapts instagram.Client to OAuth2Provider.
type instagramProvider struct {
	client *instagram.Client
}

func NewInstagramProvider(client *instagram.Client) OAuth2Provider {
	return &instagramProvider{client: client}
}

func (p *instagramProvider) AuthURL(stateID, codeChallenge string) string {
	return p.client.AuthURL(stateID, codeChallenge)
}

func (p *instagramProvider) Exchange(ctx context.Context, code, codeVerifier string) (*OAuth2Token, error) {
	tok, err := p.client.ExchangeCode(ctx, code, codeVerifier)
	if err != nil {
		return nil, err
	}
	return &OAuth2Token{AccessToken: tok.AccessToken}, nil
}

func (p *instagramProvider) Profile(ctx context.Context, accessToken string) (*ProviderProfile, error) {
	info, err := p.client.Profile(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &ProviderProfile{
		AccountID:   info.ID,
		Handle:      info.Username,
		DisplayName: info.Username,
		AccountType: info.AccountType,
	}, nil
}
