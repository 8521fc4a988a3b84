package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates in-memory counters and gauges for HTTP requests, login
// activity, rating and moderation events, and datastore health. Writers are
// coordinated via a RWMutex; the active-session gauge is atomic so the
// session store can update it without taking the recorder lock.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	authEvents      map[string]uint64
	ratingEvents    map[string]uint64
	datastoreValue  float64
	datastoreState  string
	activeSessions  atomic.Int64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		authEvents:      make(map[string]uint64),
		ratingEvents:    make(map[string]uint64),
		datastoreState:  "unknown",
		datastoreValue:  -1,
	}
}

// Default returns the singleton Recorder shared by the package-level helpers.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest normalizes the request label set and accumulates totals for
// request count and cumulative duration by HTTP method, normalized path, and
// status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveAuthEvent records a login/logout lifecycle event such as
// "login_success", "login_failure", or "logout".
func (r *Recorder) ObserveAuthEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.authEvents[normalized]++
	r.mu.Unlock()
}

// ObserveRatingEvent records rating activity such as "created", "updated",
// "confirmed", "liked", or "deleted".
func (r *Recorder) ObserveRatingEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.ratingEvents[normalized]++
	r.mu.Unlock()
}

// SessionOpened increments the active-session gauge.
func (r *Recorder) SessionOpened() {
	r.activeSessions.Add(1)
}

// SessionClosed decrements the active-session gauge, guarding against
// negative counts when idle sweeps and explicit logouts race.
func (r *Recorder) SessionClosed() {
	r.decrementGauge(&r.activeSessions)
}

// SessionsExpired removes count sessions from the gauge after an idle sweep
// reclaims them, clamping at zero.
func (r *Recorder) SessionsExpired(count int) {
	if count <= 0 {
		return
	}
	for {
		current := r.activeSessions.Load()
		next := current - int64(count)
		if next < 0 {
			next = 0
		}
		if current == next || r.activeSessions.CompareAndSwap(current, next) {
			return
		}
	}
}

// ActiveSessions exposes the current gauge of live sessions.
func (r *Recorder) ActiveSessions() int64 {
	return r.activeSessions.Load()
}

// SetDatastoreHealth maps a datastore status string to a numeric health value
// and stores both representations for export.
func (r *Recorder) SetDatastoreHealth(status string) {
	normalized := normalizeName(status)
	value := -1.0
	switch normalized {
	case "ok", "healthy":
		value = 1
	case "disabled":
		value = 0
	}
	r.mu.Lock()
	r.datastoreValue = value
	r.datastoreState = normalized
	r.mu.Unlock()
}

// Reset clears all counters and gauges on the recorder. It is intended for
// test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.authEvents = make(map[string]uint64)
	r.ratingEvents = make(map[string]uint64)
	r.datastoreValue = -1
	r.datastoreState = "unknown"
	r.activeSessions.Store(0)
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus text
// exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics in Prometheus text format, sorting
// label sets to provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	authEvents := sortedKeys(r.authEvents)
	ratingEvents := sortedKeys(r.ratingEvents)

	fmt.Fprintln(w, "# HELP mediareview_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE mediareview_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "mediareview_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP mediareview_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE mediareview_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "mediareview_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP mediareview_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE mediareview_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "mediareview_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP mediareview_auth_events_total Login and logout events by type")
	fmt.Fprintln(w, "# TYPE mediareview_auth_events_total counter")
	for _, event := range authEvents {
		fmt.Fprintf(w, "mediareview_auth_events_total{event=\"%s\"} %d\n", event, r.authEvents[event])
	}

	fmt.Fprintln(w, "# HELP mediareview_rating_events_total Rating and moderation events by type")
	fmt.Fprintln(w, "# TYPE mediareview_rating_events_total counter")
	for _, event := range ratingEvents {
		fmt.Fprintf(w, "mediareview_rating_events_total{event=\"%s\"} %d\n", event, r.ratingEvents[event])
	}

	fmt.Fprintln(w, "# HELP mediareview_active_sessions Current number of live sessions")
	fmt.Fprintln(w, "# TYPE mediareview_active_sessions gauge")
	fmt.Fprintf(w, "mediareview_active_sessions %d\n", r.activeSessions.Load())

	fmt.Fprintln(w, "# HELP mediareview_datastore_health Datastore health (1=ok,0=disabled,-1=degraded)")
	fmt.Fprintln(w, "# TYPE mediareview_datastore_health gauge")
	fmt.Fprintf(w, "mediareview_datastore_health{status=\"%s\"} %f\n", r.datastoreState, r.datastoreValue)
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeIdentifier(part) {
			parts[i] = ":id"
			continue
		}
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) >= 16 {
		return true
	}
	digitCount := 0
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}
	return digitCount >= 3
}

func (r *Recorder) decrementGauge(gauge *atomic.Int64) {
	for {
		current := gauge.Load()
		if current <= 0 {
			return
		}
		if gauge.CompareAndSwap(current, current-1) {
			return
		}
	}
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest is a helper on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// ObserveAuthEvent records a login/logout event on the default recorder.
func ObserveAuthEvent(event string) {
	defaultRecorder.ObserveAuthEvent(event)
}

// ObserveRatingEvent records rating activity on the default recorder.
func ObserveRatingEvent(event string) {
	defaultRecorder.ObserveRatingEvent(event)
}

// SessionOpened increments the active-session gauge on the default recorder.
func SessionOpened() {
	defaultRecorder.SessionOpened()
}

// SessionClosed decrements the active-session gauge on the default recorder.
func SessionClosed() {
	defaultRecorder.SessionClosed()
}

// SessionsExpired removes swept sessions from the default recorder's gauge.
func SessionsExpired(count int) {
	defaultRecorder.SessionsExpired(count)
}

// SetDatastoreHealth updates datastore health on the default recorder.
func SetDatastoreHealth(status string) {
	defaultRecorder.SetDatastoreHealth(status)
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
