package metrics

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"time"
)

// ResponseRecorder observes the status code a handler writes. It forwards the
// optional http.ResponseWriter interfaces (Flusher, Hijacker, Pusher and
// friends) so wrapping a handler does not cost it any capabilities.
type ResponseRecorder struct {
	http.ResponseWriter
	status int
}

// NewResponseRecorder wraps w. The status starts at 200 because handlers that
// only call Write never invoke WriteHeader.
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, status: http.StatusOK}
}

// Status returns the recorded status code.
func (rr *ResponseRecorder) Status() int {
	return rr.status
}

// WriteHeader records the status code and passes it through.
func (rr *ResponseRecorder) WriteHeader(status int) {
	rr.status = status
	rr.ResponseWriter.WriteHeader(status)
}

// Flush forwards to the wrapped writer when it supports flushing.
func (rr *ResponseRecorder) Flush() {
	if flusher, ok := rr.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack hands over the connection when the wrapped writer allows it.
func (rr *ResponseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rr.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Push forwards server push requests when the wrapped writer speaks HTTP/2.
func (rr *ResponseRecorder) Push(target string, opts *http.PushOptions) error {
	if pusher, ok := rr.ResponseWriter.(http.Pusher); ok {
		return pusher.Push(target, opts)
	}
	return http.ErrNotSupported
}

// CloseNotify forwards to the deprecated CloseNotifier so handlers that still
// poll it keep working behind the wrapper.
//
//nolint:staticcheck // forwarding the deprecated interface is the point here.
func (rr *ResponseRecorder) CloseNotify() <-chan bool {
	if notifier, ok := rr.ResponseWriter.(http.CloseNotifier); ok {
		return notifier.CloseNotify()
	}
	return nil
}

// ReadFrom uses the wrapped writer's io.ReaderFrom fast path when present and
// falls back to a plain copy otherwise.
func (rr *ResponseRecorder) ReadFrom(r io.Reader) (int64, error) {
	if readerFrom, ok := rr.ResponseWriter.(io.ReaderFrom); ok {
		return readerFrom.ReadFrom(r)
	}
	return io.Copy(rr.ResponseWriter, r)
}

// HTTPMiddleware times each request and feeds method, path, status and
// duration into the recorder. A nil recorder means the process default.
func HTTPMiddleware(recorder *Recorder, next http.Handler) http.Handler {
	if recorder == nil {
		recorder = Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := NewResponseRecorder(w)
		start := time.Now()
		next.ServeHTTP(wrapped, r)
		recorder.ObserveRequest(r.Method, r.URL.Path, wrapped.Status(), time.Since(start))
	})
}
