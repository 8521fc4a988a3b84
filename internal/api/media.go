package api

import (
	"errors"
	"net/http"
	"strings"

	"mediareview/internal/models"
	"mediareview/internal/storage"
)

// mediaHandler owns /media and /media/{id}: catalog CRUD and search.
type mediaHandler struct {
	api *API
}

func (h *mediaHandler) Handle(ctx *Context) {
	segments := splitPath(ctx.Path)
	if len(segments) == 0 || segments[0] != "media" {
		return
	}
	switch len(segments) {
	case 1:
		switch ctx.Method {
		case http.MethodGet:
			h.list(ctx)
		case http.MethodPost:
			h.create(ctx)
		default:
			methodNotAllowed(ctx, http.MethodGet, http.MethodPost)
		}
	case 2:
		id := segments[1]
		switch ctx.Method {
		case http.MethodGet:
			h.get(ctx, id)
		case http.MethodPut:
			h.update(ctx, id)
		case http.MethodDelete:
			h.delete(ctx, id)
		default:
			methodNotAllowed(ctx, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	default:
		ctx.Fail(http.StatusNotFound, reasonNotFound)
	}
}

func (h *mediaHandler) list(ctx *Context) {
	filter := storage.MediaFilter{
		Title:     ctx.Query.Get("title"),
		MediaType: ctx.Query.Get("mediaType"),
		Genre:     ctx.Query.Get("genre"),
		MinYear:   ctx.queryInt("minYear", 0),
		MaxYear:   ctx.queryInt("maxYear", 0),
	}
	if raw := strings.TrimSpace(ctx.Query.Get("maxAgeRestriction")); raw != "" {
		filter = filter.WithMaxAgeRestriction(ctx.queryInt("maxAgeRestriction", 0))
	}
	if minRating := ctx.queryInt("minRating", 0); minRating > 0 {
		filter.MinRating = float64(minRating)
	}

	entries := h.api.Store.ListMedia(filter)
	ctx.Respond(http.StatusOK, map[string]any{
		"success": true,
		"media":   entries,
		"count":   len(entries),
	})
}

func (h *mediaHandler) create(ctx *Context) {
	user, ok := h.api.currentUser(ctx)
	if !ok {
		return
	}

	params := storage.CreateMediaParams{
		Title:       ctx.stringField("title"),
		MediaType:   ctx.stringField("mediaType"),
		Genre:       ctx.stringField("genre"),
		Description: ctx.stringField("description"),
		CreatorID:   user.ID,
	}
	if year, ok := ctx.intField("releaseYear"); ok {
		params.ReleaseYear = year
	}
	if age, ok := ctx.intField("ageRestriction"); ok {
		params.AgeRestriction = age
	}

	entry, err := h.api.Store.CreateMedia(params)
	if err != nil {
		ctx.Fail(http.StatusBadRequest, err.Error())
		return
	}
	ctx.Respond(http.StatusCreated, map[string]any{
		"success": true,
		"media":   entry,
	})
}

func (h *mediaHandler) get(ctx *Context, id string) {
	entry, ok := h.api.Store.GetMedia(id)
	if !ok {
		ctx.Fail(http.StatusNotFound, "Media entry not found")
		return
	}
	average, count := h.api.Store.RatingSummary(id)
	ctx.Respond(http.StatusOK, map[string]any{
		"success":       true,
		"media":         entry,
		"averageRating": average,
		"ratingCount":   count,
	})
}

// canManageMedia allows the entry's creator and admins through.
func (h *mediaHandler) canManageMedia(ctx *Context, entry models.MediaEntry) (models.User, bool) {
	user, ok := h.api.currentUser(ctx)
	if !ok {
		return models.User{}, false
	}
	if entry.CreatorID != user.ID && !user.IsAdmin {
		ctx.Fail(http.StatusForbidden, "Only the creator or an admin may modify this entry")
		return models.User{}, false
	}
	return user, true
}

func (h *mediaHandler) update(ctx *Context, id string) {
	entry, ok := h.api.Store.GetMedia(id)
	if !ok {
		ctx.Fail(http.StatusNotFound, "Media entry not found")
		return
	}
	if _, ok := h.canManageMedia(ctx, entry); !ok {
		return
	}

	var update storage.MediaUpdate
	if ctx.hasField("title") {
		title := ctx.stringField("title")
		update.Title = &title
	}
	if ctx.hasField("mediaType") {
		mediaType := ctx.stringField("mediaType")
		update.MediaType = &mediaType
	}
	if ctx.hasField("genre") {
		genre := ctx.stringField("genre")
		update.Genre = &genre
	}
	if ctx.hasField("description") {
		description := ctx.stringField("description")
		update.Description = &description
	}
	if year, ok := ctx.intField("releaseYear"); ok {
		update.ReleaseYear = &year
	}
	if age, ok := ctx.intField("ageRestriction"); ok {
		update.AgeRestriction = &age
	}

	updated, err := h.api.Store.UpdateMedia(id, update)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ctx.Fail(http.StatusNotFound, "Media entry not found")
			return
		}
		ctx.Fail(http.StatusBadRequest, err.Error())
		return
	}
	ctx.Respond(http.StatusOK, map[string]any{
		"success": true,
		"media":   updated,
	})
}

func (h *mediaHandler) delete(ctx *Context, id string) {
	entry, ok := h.api.Store.GetMedia(id)
	if !ok {
		ctx.Fail(http.StatusNotFound, "Media entry not found")
		return
	}
	if _, ok := h.canManageMedia(ctx, entry); !ok {
		return
	}
	if err := h.api.Store.DeleteMedia(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ctx.Fail(http.StatusNotFound, "Media entry not found")
			return
		}
		ctx.Fail(http.StatusInternalServerError, err.Error())
		return
	}
	ctx.Respond(http.StatusOK, map[string]any{"success": true})
}
