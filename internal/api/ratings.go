package api

import (
	"errors"
	"net/http"

	"mediareview/internal/observability/metrics"
	"mediareview/internal/storage"
)

// ratingHandler owns /ratings and its sub-resources: listing, upsert,
// deletion, likes, and comment moderation.
type ratingHandler struct {
	api *API
}

func (h *ratingHandler) Handle(ctx *Context) {
	segments := splitPath(ctx.Path)
	if len(segments) == 0 || segments[0] != "ratings" {
		return
	}
	switch {
	case len(segments) == 1 && ctx.Method == http.MethodGet:
		h.list(ctx)
	case len(segments) == 1 && ctx.Method == http.MethodPost:
		h.upsert(ctx)
	case len(segments) == 1:
		methodNotAllowed(ctx, http.MethodGet, http.MethodPost)
	case len(segments) == 2 && segments[1] == "pending":
		h.pending(ctx)
	case len(segments) == 2 && ctx.Method == http.MethodDelete:
		h.delete(ctx, segments[1])
	case len(segments) == 2:
		methodNotAllowed(ctx, http.MethodDelete)
	case len(segments) == 3 && segments[2] == "like":
		h.like(ctx, segments[1])
	case len(segments) == 3 && segments[2] == "confirm":
		h.confirm(ctx, segments[1])
	default:
		ctx.Fail(http.StatusNotFound, reasonNotFound)
	}
}

func (h *ratingHandler) list(ctx *Context) {
	mediaID := ctx.Query.Get("mediaId")
	if mediaID == "" {
		ctx.Fail(http.StatusBadRequest, "mediaId query parameter is required")
		return
	}
	if _, ok := h.api.Store.GetMedia(mediaID); !ok {
		ctx.Fail(http.StatusNotFound, "Media entry not found")
		return
	}
	ratings := h.api.Store.ListRatings(mediaID, true)
	average, count := h.api.Store.RatingSummary(mediaID)
	ctx.Respond(http.StatusOK, map[string]any{
		"success":       true,
		"ratings":       ratings,
		"averageRating": average,
		"ratingCount":   count,
	})
}

func (h *ratingHandler) upsert(ctx *Context) {
	user, ok := h.api.currentUser(ctx)
	if !ok {
		return
	}
	mediaID := ctx.stringField("mediaId")
	if mediaID == "" {
		ctx.Fail(http.StatusBadRequest, "mediaId is required")
		return
	}
	stars, ok := ctx.intField("stars")
	if !ok {
		ctx.Fail(http.StatusBadRequest, "stars is required")
		return
	}
	comment := ctx.stringField("comment")

	rating, created, err := h.api.Store.UpsertRating(mediaID, user.ID, stars, comment)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ctx.Fail(http.StatusNotFound, "Media entry not found")
			return
		}
		ctx.Fail(http.StatusBadRequest, err.Error())
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		metrics.ObserveRatingEvent("created")
	} else {
		metrics.ObserveRatingEvent("updated")
	}
	ctx.Respond(status, map[string]any{
		"success": true,
		"rating":  rating,
		"created": created,
	})
}

func (h *ratingHandler) pending(ctx *Context) {
	if ctx.Method != http.MethodGet {
		methodNotAllowed(ctx, http.MethodGet)
		return
	}
	if _, ok := h.api.requireAdmin(ctx); !ok {
		return
	}
	ratings := h.api.Store.ListPendingRatings()
	ctx.Respond(http.StatusOK, map[string]any{
		"success": true,
		"ratings": ratings,
		"count":   len(ratings),
	})
}

func (h *ratingHandler) delete(ctx *Context, id string) {
	user, ok := h.api.currentUser(ctx)
	if !ok {
		return
	}
	rating, found := h.api.Store.GetRating(id)
	if !found {
		ctx.Fail(http.StatusNotFound, "Rating not found")
		return
	}
	if rating.UserID != user.ID && !user.IsAdmin {
		ctx.Fail(http.StatusForbidden, "Only the author or an admin may delete a rating")
		return
	}
	if err := h.api.Store.DeleteRating(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ctx.Fail(http.StatusNotFound, "Rating not found")
			return
		}
		ctx.Fail(http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ObserveRatingEvent("deleted")
	ctx.Respond(http.StatusOK, map[string]any{"success": true})
}

func (h *ratingHandler) like(ctx *Context, id string) {
	user, ok := h.api.currentUser(ctx)
	if !ok {
		return
	}
	switch ctx.Method {
	case http.MethodPost:
		rating, err := h.api.Store.LikeRating(id, user.ID)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotFound):
				ctx.Fail(http.StatusNotFound, "Rating not found")
			case errors.Is(err, storage.ErrOwnRating):
				ctx.Fail(http.StatusBadRequest, "You cannot like your own rating")
			default:
				ctx.Fail(http.StatusInternalServerError, err.Error())
			}
			return
		}
		metrics.ObserveRatingEvent("liked")
		ctx.Respond(http.StatusOK, map[string]any{"success": true, "rating": rating})
	case http.MethodDelete:
		rating, err := h.api.Store.UnlikeRating(id, user.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				ctx.Fail(http.StatusNotFound, "Rating not found")
				return
			}
			ctx.Fail(http.StatusInternalServerError, err.Error())
			return
		}
		ctx.Respond(http.StatusOK, map[string]any{"success": true, "rating": rating})
	default:
		methodNotAllowed(ctx, http.MethodPost, http.MethodDelete)
	}
}

func (h *ratingHandler) confirm(ctx *Context, id string) {
	if ctx.Method != http.MethodPost {
		methodNotAllowed(ctx, http.MethodPost)
		return
	}
	if _, ok := h.api.requireAdmin(ctx); !ok {
		return
	}
	rating, err := h.api.Store.ConfirmRating(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ctx.Fail(http.StatusNotFound, "Rating not found")
			return
		}
		ctx.Fail(http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ObserveRatingEvent("confirmed")
	ctx.Respond(http.StatusOK, map[string]any{"success": true, "rating": rating})
}
