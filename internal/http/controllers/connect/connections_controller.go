package connect

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/charo360/nevis-connect/internal/http/errors"
	"github.com/charo360/nevis-connect/internal/http/middlewares"
	svc "github.com/charo360/nevis-connect/internal/http/services/connect"
	"github.com/charo360/nevis-connect/internal/observability/logger"
	"github.com/charo360/nevis-connect/internal/store/core"
)

// ConnectionsController serves the authenticated connection listing
// and removal endpoints.
type ConnectionsController struct {
	service *svc.Service
}

func NewConnectionsController(service *svc.Service) *ConnectionsController {
	return &ConnectionsController{service: service}
}

// List handles GET /connections.
func (c *ConnectionsController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)

	list, err := c.service.Connections(ctx, userID)
	if err != nil {
		logger.From(ctx).Error("list connections failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	if list == nil {
		list = []*core.Connection{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"connections": list})
}

// Delete handles DELETE /connections/{platform}.
func (c *ConnectionsController) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)
	platform := strings.ToLower(r.PathValue("platform"))

	if err := c.service.Disconnect(ctx, userID, platform); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("no connection for "+platform))
			return
		}
		logger.From(ctx).Error("disconnect failed", logger.Platform(platform), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Platforms handles GET /oauth/platforms.
func (c *ConnectionsController) Platforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"platforms": c.service.Platforms()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
