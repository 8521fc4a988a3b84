package api

import (
	"net/http"
	"strings"

	"mediareview/internal/auth"
	"mediareview/internal/models"
)

const (
	reasonNotFound     = "Endpoint not found"
	reasonAuthRequired = "Authentication required"
	reasonAdminOnly    = "Admin privileges required"
)

// NotFound is the fallback response for requests no handler claimed.
func NotFound(ctx *Context) {
	ctx.Fail(http.StatusNotFound, reasonNotFound)
}

// splitPath breaks "/media/abc/ratings" into ["media", "abc", "ratings"].
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// requireSession resolves the caller's session, responding 401 when absent.
func (a *API) requireSession(ctx *Context) (auth.Session, bool) {
	session, ok := ctx.Session()
	if !ok {
		ctx.Fail(http.StatusUnauthorized, reasonAuthRequired)
		return auth.Session{}, false
	}
	return session, true
}

// requireAdmin resolves the caller's session and demands the admin flag.
func (a *API) requireAdmin(ctx *Context) (auth.Session, bool) {
	session, ok := a.requireSession(ctx)
	if !ok {
		return auth.Session{}, false
	}
	if !session.IsAdmin {
		ctx.Fail(http.StatusForbidden, reasonAdminOnly)
		return auth.Session{}, false
	}
	return session, true
}

// currentUser loads the account record behind the session. A session whose
// account has been deleted out from under it reads as unauthenticated.
func (a *API) currentUser(ctx *Context) (models.User, bool) {
	session, ok := a.requireSession(ctx)
	if !ok {
		return models.User{}, false
	}
	user, ok := a.Store.GetUserByName(session.UserName)
	if !ok {
		ctx.Fail(http.StatusUnauthorized, reasonAuthRequired)
		return models.User{}, false
	}
	return user, true
}

// sanitizeUser clears the password hash before a user record leaves the API.
func sanitizeUser(user models.User) models.User {
	user.PasswordHash = ""
	return user
}

func methodNotAllowed(ctx *Context, allowed ...string) {
	ctx.writer.Header().Set("Allow", strings.Join(allowed, ", "))
	ctx.Fail(http.StatusMethodNotAllowed, "Method "+ctx.Method+" not allowed")
}
