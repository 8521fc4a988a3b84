package api

import (
	"errors"
	"net/http"

	"mediareview/internal/models"
	"mediareview/internal/storage"
)

// favoriteHandler owns /favorites and /favorites/{mediaId}.
type favoriteHandler struct {
	api *API
}

func (h *favoriteHandler) Handle(ctx *Context) {
	segments := splitPath(ctx.Path)
	if len(segments) == 0 || segments[0] != "favorites" {
		return
	}
	user, ok := h.api.currentUser(ctx)
	if !ok {
		return
	}
	switch {
	case len(segments) == 1 && ctx.Method == http.MethodGet:
		h.list(ctx, user)
	case len(segments) == 1:
		methodNotAllowed(ctx, http.MethodGet)
	case len(segments) == 2 && ctx.Method == http.MethodPost:
		h.add(ctx, user, segments[1])
	case len(segments) == 2 && ctx.Method == http.MethodDelete:
		h.remove(ctx, user, segments[1])
	case len(segments) == 2:
		methodNotAllowed(ctx, http.MethodPost, http.MethodDelete)
	default:
		ctx.Fail(http.StatusNotFound, reasonNotFound)
	}
}

func (h *favoriteHandler) list(ctx *Context, user models.User) {
	favorites := h.api.Store.ListFavorites(user.ID)
	entries := make([]models.MediaEntry, 0, len(favorites))
	for _, favorite := range favorites {
		if entry, ok := h.api.Store.GetMedia(favorite.MediaID); ok {
			entries = append(entries, entry)
		}
	}
	ctx.Respond(http.StatusOK, map[string]any{
		"success":   true,
		"favorites": favorites,
		"media":     entries,
		"count":     len(favorites),
	})
}

func (h *favoriteHandler) add(ctx *Context, user models.User, mediaID string) {
	if err := h.api.Store.AddFavorite(user.ID, mediaID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ctx.Fail(http.StatusNotFound, "Media entry not found")
			return
		}
		ctx.Fail(http.StatusBadRequest, err.Error())
		return
	}
	ctx.Respond(http.StatusOK, map[string]any{"success": true})
}

func (h *favoriteHandler) remove(ctx *Context, user models.User, mediaID string) {
	if err := h.api.Store.RemoveFavorite(user.ID, mediaID); err != nil {
		ctx.Fail(http.StatusInternalServerError, err.Error())
		return
	}
	ctx.Respond(http.StatusOK, map[string]any{"success": true})
}
