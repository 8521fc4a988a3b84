package api

import "net/http"

// versionHandler owns /version.
type versionHandler struct {
	api *API
}

func (h *versionHandler) Handle(ctx *Context) {
	if ctx.Path != "/version" {
		return
	}
	if ctx.Method != http.MethodGet {
		methodNotAllowed(ctx, http.MethodGet)
		return
	}
	version := h.api.Version
	if version == "" {
		version = "dev"
	}
	ctx.Respond(http.StatusOK, map[string]any{
		"success": true,
		"version": version,
	})
}
