package api

import (
	"log/slog"
	"net/http"
	"sync"

	"mediareview/internal/auth"
	"mediareview/internal/storage"
)

// Handler owns a slice of the path space. Handle inspects the context and
// either responds or returns without touching it, leaving the request for the
// next handler in line.
type Handler interface {
	Handle(*Context)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(*Context)

// Handle calls f.
func (f HandlerFunc) Handle(ctx *Context) {
	f(ctx)
}

// Dispatcher walks an ordered handler list, stopping at the first handler
// that responds. The list is fixed after construction, so Dispatch needs no
// synchronization.
type Dispatcher struct {
	handlers []Handler
}

// NewDispatcher builds a dispatcher over the provided handlers. Order is the
// order of precedence.
func NewDispatcher(handlers ...Handler) *Dispatcher {
	return &Dispatcher{handlers: handlers}
}

// Dispatch offers the request to each handler in turn and reports whether any
// of them claimed it. An unclaimed request is not an error; the caller owns
// the fallback response.
func (d *Dispatcher) Dispatch(ctx *Context) bool {
	for _, handler := range d.handlers {
		handler.Handle(ctx)
		if ctx.Responded() {
			return true
		}
	}
	return false
}

// API bundles the dependencies shared by every resource handler and builds
// the dispatcher exactly once.
type API struct {
	Store    storage.Repository
	Sessions *auth.Store
	Version  string
	Logger   *slog.Logger

	once       sync.Once
	dispatcher *Dispatcher
}

// Dispatcher returns the handler registry, constructing it on first use. The
// registration order below is the routing table: earlier handlers win.
func (a *API) Dispatcher() *Dispatcher {
	a.once.Do(func() {
		a.dispatcher = NewDispatcher(
			&sessionHandler{api: a},
			&userHandler{api: a},
			&mediaHandler{api: a},
			&ratingHandler{api: a},
			&favoriteHandler{api: a},
			&leaderboardHandler{api: a},
			&recommendationHandler{api: a},
			&profileHandler{api: a},
			&versionHandler{api: a},
		)
	})
	return a.dispatcher
}

// NewContext builds a request context wired to this API's session store.
func (a *API) NewContext(w http.ResponseWriter, r *http.Request) (*Context, error) {
	return NewContext(w, r, a.Sessions, a.Logger)
}
