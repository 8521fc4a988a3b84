package api

import (
	"errors"
	"net/http"

	"mediareview/internal/auth"
	"mediareview/internal/observability/metrics"
)

// sessionHandler owns /sessions: login and logout.
type sessionHandler struct {
	api *API
}

func (h *sessionHandler) Handle(ctx *Context) {
	if ctx.Path != "/sessions" {
		return
	}
	switch ctx.Method {
	case http.MethodPost:
		h.login(ctx)
	case http.MethodDelete:
		h.logout(ctx)
	default:
		methodNotAllowed(ctx, http.MethodPost, http.MethodDelete)
	}
}

func (h *sessionHandler) login(ctx *Context) {
	username := ctx.stringField("username")
	password, _ := ctx.Content["password"].(string)
	if username == "" || password == "" {
		ctx.Fail(http.StatusBadRequest, "username and password are required")
		return
	}

	session, err := h.api.Sessions.Create(username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.ObserveAuthEvent("login_failure")
			ctx.Fail(http.StatusUnauthorized, "Invalid username or password")
			return
		}
		if h.api.Logger != nil {
			h.api.Logger.Error("session creation failed", "error", err)
		}
		ctx.Fail(http.StatusInternalServerError, "Unable to create session")
		return
	}

	metrics.ObserveAuthEvent("login_success")
	metrics.SessionOpened()
	ctx.Respond(http.StatusOK, map[string]any{
		"success":  true,
		"token":    session.Token,
		"username": session.UserName,
		"isAdmin":  session.IsAdmin,
	})
}

func (h *sessionHandler) logout(ctx *Context) {
	token := ctx.BearerToken()
	if token == "" {
		ctx.Fail(http.StatusUnauthorized, reasonAuthRequired)
		return
	}
	if _, live := h.api.Sessions.Resolve(token); live {
		metrics.SessionClosed()
	}
	h.api.Sessions.Close(token)
	metrics.ObserveAuthEvent("logout")
	ctx.Respond(http.StatusOK, map[string]any{"success": true})
}
