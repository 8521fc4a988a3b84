package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDispatchStopsAtFirstResponder(t *testing.T) {
	calls := make([]string, 0, 3)
	dispatcher := NewDispatcher(
		HandlerFunc(func(ctx *Context) {
			calls = append(calls, "first")
		}),
		HandlerFunc(func(ctx *Context) {
			calls = append(calls, "second")
			ctx.Respond(http.StatusOK, map[string]any{"success": true})
		}),
		HandlerFunc(func(ctx *Context) {
			calls = append(calls, "third")
		}),
	)

	ctx, rr := newContextForTest(t, http.MethodGet, "/anything", "", nil)
	if !dispatcher.Dispatch(ctx) {
		t.Fatal("expected the request to be claimed")
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("expected dispatch to stop after the responder, got %v", calls)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestDispatchExhaustion(t *testing.T) {
	calls := 0
	dispatcher := NewDispatcher(
		HandlerFunc(func(*Context) { calls++ }),
		HandlerFunc(func(*Context) { calls++ }),
	)

	ctx, rr := newContextForTest(t, http.MethodGet, "/unclaimed", "", nil)
	if dispatcher.Dispatch(ctx) {
		t.Fatal("expected the request to go unclaimed")
	}
	if calls != 2 {
		t.Fatalf("expected every handler to see the request, got %d", calls)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("expected no response to be written, got %q", rr.Body.String())
	}
}

func TestDispatcherBuiltOnce(t *testing.T) {
	a := &API{}
	first := a.Dispatcher()
	second := a.Dispatcher()
	if first != second {
		t.Fatal("expected the dispatcher to be constructed exactly once")
	}
	if len(first.handlers) == 0 {
		t.Fatal("expected the registry to contain handlers")
	}
}

func TestNotFoundFallback(t *testing.T) {
	ctx, rr := newContextForTest(t, http.MethodGet, "/no/such/route", "", nil)
	NotFound(ctx)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	want := `{"reason":"Endpoint not found","success":false}`
	if got := httptestTrim(rr); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func httptestTrim(rr *httptest.ResponseRecorder) string {
	body := rr.Body.String()
	if len(body) > 0 && body[len(body)-1] == '\n' {
		body = body[:len(body)-1]
	}
	return body
}
