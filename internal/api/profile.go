package api

import "net/http"

// profileHandler owns /profile and /profile/ratings.
type profileHandler struct {
	api *API
}

func (h *profileHandler) Handle(ctx *Context) {
	segments := splitPath(ctx.Path)
	if len(segments) == 0 || segments[0] != "profile" {
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
	switch {
	case len(segments) == 1:
		stats := h.api.Store.StatsFor(user.ID)
		ctx.Respond(http.StatusOK, map[string]any{
			"success": true,
			"user":    sanitizeUser(user),
			"stats":   stats,
		})
	case len(segments) == 2 && segments[1] == "ratings":
		ratings := h.api.Store.ListRatingsByUser(user.ID)
		// Attach a summary of each rated entry so clients need no second
		// round trip per row.
		summaries := make([]map[string]any, 0, len(ratings))
		for _, rating := range ratings {
			row := map[string]any{"rating": rating}
			if entry, ok := h.api.Store.GetMedia(rating.MediaID); ok {
				row["media"] = map[string]any{
					"id":        entry.ID,
					"title":     entry.Title,
					"mediaType": entry.MediaType,
					"genre":     entry.Genre,
				}
			}
			summaries = append(summaries, row)
		}
		ctx.Respond(http.StatusOK, map[string]any{
			"success": true,
			"ratings": summaries,
			"count":   len(summaries),
		})
	default:
		ctx.Fail(http.StatusNotFound, reasonNotFound)
	}
}
