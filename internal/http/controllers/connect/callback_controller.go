package connect

import (
	"net/http"
	"net/url"
	"strings"

	svc "github.com/charo360/nevis-connect/internal/http/services/connect"
	"github.com/charo360/nevis-connect/internal/observability/logger"
)

// CallbackController handles GET /oauth/{platform}/callback.
type CallbackController struct {
	service     *svc.Service
	frontendURL string
}

func NewCallbackController(service *svc.Service, frontendURL string) *CallbackController {
	return &CallbackController{service: service, frontendURL: frontendURL}
}

// Callback finishes a linking flow. The provider redirect lands here;
// whatever happens, the browser ends up back at the frontend with
// either ?connected=<platform> or ?error=<code>.
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

	platform := strings.ToLower(r.PathValue("platform"))
	q := r.URL.Query()
	cb := svc.CallbackQuery{
		State:            strings.TrimSpace(q.Get("state")),
		Code:             strings.TrimSpace(q.Get("code")),
		OAuthToken:       strings.TrimSpace(q.Get("oauth_token")),
		OAuthVerifier:    strings.TrimSpace(q.Get("oauth_verifier")),
		Error:            strings.TrimSpace(q.Get("error")),
		ErrorDescription: strings.TrimSpace(q.Get("error_description")),
	}

	conn, err := c.service.Complete(ctx, platform, cb)
	if err != nil {
		log.Warn("callback failed",
			logger.Platform(platform),
			logger.String("provider_error", cb.Error),
			logger.Err(err),
		)
		redirectError(w, r, c.frontendURL, platform, svc.ResultCode(err))
		return
	}

	out := url.Values{}
	out.Set("connected", conn.Platform)
	if conn.Handle != "" {
		out.Set("handle", conn.Handle)
	}
	http.Redirect(w, r, c.frontendURL+"?"+out.Encode(), http.StatusFound)
}
