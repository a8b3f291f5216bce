package connect

import "errors"

// Service errors. Controllers map these onto the coarse result codes
// carried back to the frontend; provider details stay in the logs.
var (
	ErrPlatformUnknown  = errors.New("unknown platform")
	ErrPlatformDisabled = errors.New("platform disabled")
	ErrNotConfigured    = errors.New("provider not configured")
	ErrProviderRequest  = errors.New("provider request failed")
	ErrInvalidState     = errors.New("invalid or expired state")
	ErrTokenExchange    = errors.New("token exchange failed")
	ErrProfileFetch     = errors.New("profile fetch failed")
)

// ResultCode maps a service error onto the coarse code used in
// redirect query strings and metrics labels.
func ResultCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPlatformUnknown):
		return "unknown_platform"
	case errors.Is(err, ErrPlatformDisabled), errors.Is(err, ErrNotConfigured):
		return "provider_not_configured"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrTokenExchange):
		return "token_exchange_failed"
	case errors.Is(err, ErrProfileFetch):
		return "profile_fetch_failed"
	case errors.Is(err, ErrProviderRequest):
		return "provider_request_failed"
	default:
		return "provider_request_failed"
	}
}
