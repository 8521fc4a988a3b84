package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"mediareview/internal/auth"
)

const bearerPrefix = "bearer "

// Context carries one request through dispatch: the normalized method and
// path, the parsed query and JSON body, and the response writer guarded by a
// respond-once flag. It is built once by the server layer and handed to every
// handler in registration order.
type Context struct {
	Method  string
	Path    string
	Query   url.Values
	Content map[string]any

	writer   http.ResponseWriter
	request  *http.Request
	sessions *auth.Store
	logger   *slog.Logger

	session       auth.Session
	sessionOK     bool
	sessionLoaded bool
	responded     bool
}

// NewContext builds a Context from the raw request. The body, when present,
// must be a JSON document; malformed JSON is reported as an error and the
// request never reaches a handler. Requests without a body get an empty
// document so handlers can index fields without nil checks.
func NewContext(w http.ResponseWriter, r *http.Request, sessions *auth.Store, logger *slog.Logger) (*Context, error) {
	ctx := &Context{
		Method:   strings.ToUpper(r.Method),
		Path:     normalizeRequestPath(r.URL.Path),
		Query:    r.URL.Query(),
		Content:  map[string]any{},
		writer:   w,
		request:  r,
		sessions: sessions,
		logger:   logger,
	}
	if r.Body != nil {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		if len(raw) > 0 {
			var content map[string]any
			if err := json.Unmarshal(raw, &content); err != nil {
				return nil, fmt.Errorf("decode request body: %w", err)
			}
			ctx.Content = content
		}
	}
	return ctx, nil
}

func normalizeRequestPath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}

// Request exposes the underlying request for handlers that need its context.
func (c *Context) Request() *http.Request {
	return c.request
}

// Session lazily resolves the bearer token on the Authorization header. The
// scheme comparison ignores case and surrounding whitespace on the token. A
// missing header, a different scheme, or an expired token all report no
// session; resolution happens at most once per request.
func (c *Context) Session() (auth.Session, bool) {
	if c.sessionLoaded {
		return c.session, c.sessionOK
	}
	c.sessionLoaded = true
	if c.sessions == nil || c.request == nil {
		return auth.Session{}, false
	}
	header := c.request.Header.Get("Authorization")
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return auth.Session{}, false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return auth.Session{}, false
	}
	c.session, c.sessionOK = c.sessions.Resolve(token)
	return c.session, c.sessionOK
}

// BearerToken returns the raw token from the Authorization header without
// resolving it, for logout.
func (c *Context) BearerToken() string {
	if c.request == nil {
		return ""
	}
	header := c.request.Header.Get("Authorization")
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// Respond writes the payload as JSON exactly once. A second call is a handler
// bug: it is logged and ignored, and the first response stands.
func (c *Context) Respond(status int, payload any) {
	if c.responded {
		if c.logger != nil {
			c.logger.Warn("duplicate response suppressed",
				"method", c.Method,
				"path", c.Path,
				"status", status,
			)
		}
		return
	}
	c.responded = true
	c.writer.Header().Set("Content-Type", "application/json")
	c.writer.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(c.writer).Encode(payload); err != nil && c.logger != nil {
		c.logger.Error("encode response failed", "path", c.Path, "error", err)
	}
}

// Responded reports whether a handler has claimed this request.
func (c *Context) Responded() bool {
	return c.responded
}

// Fail writes the standard failure envelope.
func (c *Context) Fail(status int, reason string) {
	c.Respond(status, map[string]any{"success": false, "reason": reason})
}

// stringField returns the trimmed string value of a body field, or "" when
// the field is absent or not a string.
func (c *Context) stringField(key string) string {
	value, ok := c.Content[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

// intField extracts a body field as an int. JSON numbers arrive as float64;
// numeric strings are accepted too since several clients send them quoted.
func (c *Context) intField(key string) (int, bool) {
	switch value := c.Content[key].(type) {
	case float64:
		return int(value), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// hasField reports whether the body carries the key at all, so handlers can
// distinguish "absent" from zero values on partial updates.
func (c *Context) hasField(key string) bool {
	_, ok := c.Content[key]
	return ok
}

// queryInt parses an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func (c *Context) queryInt(key string, def int) int {
	raw := strings.TrimSpace(c.Query.Get(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return parsed
}
