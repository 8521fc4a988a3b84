package api

import "net/http"

// leaderboardHandler owns /leaderboard/media and /leaderboard/users.
type leaderboardHandler struct {
	api *API
}

func (h *leaderboardHandler) Handle(ctx *Context) {
	segments := splitPath(ctx.Path)
	if len(segments) == 0 || segments[0] != "leaderboard" {
		return
	}
	if ctx.Method != http.MethodGet {
		methodNotAllowed(ctx, http.MethodGet)
		return
	}
	if len(segments) != 2 {
		ctx.Fail(http.StatusNotFound, reasonNotFound)
		return
	}
	limit := ctx.queryInt("limit", 0)
	switch segments[1] {
	case "media":
		rankings := h.api.Store.TopMedia(limit)
		ctx.Respond(http.StatusOK, map[string]any{
			"success":     true,
			"leaderboard": rankings,
			"count":       len(rankings),
		})
	case "users":
		rankings := h.api.Store.TopRaters(limit)
		ctx.Respond(http.StatusOK, map[string]any{
			"success":     true,
			"leaderboard": rankings,
			"count":       len(rankings),
		})
	default:
		ctx.Fail(http.StatusNotFound, reasonNotFound)
	}
}

// recommendationHandler owns /recommendations.
type recommendationHandler struct {
	api *API
}

func (h *recommendationHandler) Handle(ctx *Context) {
	if ctx.Path != "/recommendations" {
		return
	}
	if ctx.Method != http.MethodGet {
		methodNotAllowed(ctx, http.MethodGet)
		return
	}
	user, ok := h.api.currentUser(ctx)
	if !ok {
		return
	}
	recommendations := h.api.Store.RecommendFor(user.ID, ctx.queryInt("limit", 0))
	ctx.Respond(http.StatusOK, map[string]any{
		"success":         true,
		"recommendations": recommendations,
		"count":           len(recommendations),
	})
}
