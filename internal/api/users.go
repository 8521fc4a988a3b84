package api

import (
	"net/http"
	"strings"

	"mediareview/internal/storage"
)

// userHandler owns /users: account registration.
type userHandler struct {
	api *API
}

func (h *userHandler) Handle(ctx *Context) {
	if ctx.Path != "/users" {
		return
	}
	if ctx.Method != http.MethodPost {
		methodNotAllowed(ctx, http.MethodPost)
		return
	}

	username := ctx.stringField("username")
	password, _ := ctx.Content["password"].(string)
	if username == "" {
		ctx.Fail(http.StatusBadRequest, "username is required")
		return
	}
	if len(password) < 8 {
		ctx.Fail(http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	user, err := h.api.Store.CreateUser(storage.CreateUserParams{
		UserName: username,
		FullName: ctx.stringField("fullname"),
		Email:    ctx.stringField("email"),
		Password: password,
	})
	if err != nil {
		if strings.Contains(err.Error(), "taken") {
			ctx.Fail(http.StatusConflict, err.Error())
			return
		}
		ctx.Fail(http.StatusBadRequest, err.Error())
		return
	}
	ctx.Respond(http.StatusCreated, map[string]any{
		"success": true,
		"user":    sanitizeUser(user),
	})
}
