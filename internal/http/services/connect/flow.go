package connect

import (
	"context"

	"github.com/charo360/nevis-connect/internal/state"
	"github.com/charo360/nevis-connect/internal/store/core"
)

// CallbackQuery carries the provider redirect parameters a flow may
// need. OAuth 2.0 providers fill Code and State; OAuth 1.0a providers
// fill OAuthToken and OAuthVerifier and may omit State entirely.
type CallbackQuery struct {
	State            string
	Code             string
	OAuthToken       string
	OAuthVerifier    string
	Error            string
	ErrorDescription string
}

// Flow is one platform's authorization protocol. Begin may mutate the
// state record (request token, PKCE verifier) before it is persisted;
// Complete turns an approved callback into a linked connection.
type Flow interface {
	Platform() string
	Begin(ctx context.Context, st *state.AuthState) (authURL string, err error)
	Complete(ctx context.Context, st *state.AuthState, q CallbackQuery) (*core.Connection, error)
}

// requestTokenRecoverer is implemented by flows whose provider may
// drop the state parameter from the redirect, so the callback falls
// back to the request-token alias. OAuth 2.0 flows never qualify: the
// state parameter is their only handle.
type requestTokenRecoverer interface {
	recoverByRequestToken() bool
}
