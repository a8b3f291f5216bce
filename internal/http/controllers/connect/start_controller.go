// Package connect holds the HTTP controllers for the account-linking
// endpoints. Browser-facing endpoints answer with redirects carrying
// coarse result codes; API endpoints answer with JSON.
package connect

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/charo360/nevis-connect/internal/http/middlewares"
	svc "github.com/charo360/nevis-connect/internal/http/services/connect"
	"github.com/charo360/nevis-connect/internal/observability/logger"
)

// StartController handles GET /oauth/{platform}/start.
type StartController struct {
	service     *svc.Service
	frontendURL string
}

func NewStartController(service *svc.Service, frontendURL string) *StartController {
	return &StartController{service: service, frontendURL: frontendURL}
}

// Start begins a linking flow and redirects the browser to the
// provider's authorization page. Failures redirect back to the
// frontend with a coarse error code; provider detail stays in logs.
func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"))

	platform := strings.ToLower(r.PathValue("platform"))
	userID := middlewares.GetUserID(ctx)
	accountType := strings.TrimSpace(r.URL.Query().Get("account_type"))

	authURL, err := c.service.Begin(ctx, platform, userID, accountType)
	if err != nil {
		log.Warn("start failed", logger.Platform(platform), logger.Err(err))
		redirectError(w, r, c.frontendURL, platform, svc.ResultCode(err))
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// redirectError sends the browser back to the frontend with
// ?error=<code>&platform=<platform>.
func redirectError(w http.ResponseWriter, r *http.Request, frontendURL, platform, code string) {
	q := url.Values{}
	q.Set("error", code)
	if platform != "" {
		q.Set("platform", platform)
	}
	http.Redirect(w, r, frontendURL+"?"+q.Encode(), http.StatusFound)
}
