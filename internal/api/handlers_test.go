package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mediareview/internal/auth"
	"mediareview/internal/storage"
)

type apiHarness struct {
	t   *testing.T
	api *API
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	store, err := storage.NewStorage("")
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	return &apiHarness{
		t: t,
		api: &API{
			Store:    store,
			Sessions: auth.NewStore(store),
			Version:  "test",
		},
	}
}

func (h *apiHarness) do(method, target, body, token string) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ctx, err := h.api.NewContext(rr, req)
	if err != nil {
		h.t.Fatalf("NewContext returned error: %v", err)
	}
	if !h.api.Dispatcher().Dispatch(ctx) {
		NotFound(ctx)
	}
	return rr
}

func (h *apiHarness) decode(rr *httptest.ResponseRecorder) map[string]any {
	h.t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		h.t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return payload
}

func (h *apiHarness) register(username string) {
	h.t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"long-enough-pw","fullname":"%s Example"}`, username, username)
	rr := h.do(http.MethodPost, "/users", body, "")
	if rr.Code != http.StatusCreated {
		h.t.Fatalf("register %s: expected 201, got %d (%s)", username, rr.Code, rr.Body.String())
	}
}

func (h *apiHarness) login(username string) string {
	h.t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"long-enough-pw"}`, username)
	rr := h.do(http.MethodPost, "/sessions", body, "")
	if rr.Code != http.StatusOK {
		h.t.Fatalf("login %s: expected 200, got %d (%s)", username, rr.Code, rr.Body.String())
	}
	token, _ := h.decode(rr)["token"].(string)
	if token == "" {
		h.t.Fatalf("login %s: no token in response", username)
	}
	return token
}

func (h *apiHarness) createMedia(token, title string) string {
	h.t.Helper()
	body := fmt.Sprintf(`{"title":%q,"mediaType":"movie","genre":"drama","releaseYear":2020}`, title)
	rr := h.do(http.MethodPost, "/media", body, token)
	if rr.Code != http.StatusCreated {
		h.t.Fatalf("createMedia %s: expected 201, got %d (%s)", title, rr.Code, rr.Body.String())
	}
	media, _ := h.decode(rr)["media"].(map[string]any)
	id, _ := media["id"].(string)
	if id == "" {
		h.t.Fatalf("createMedia %s: no id in response", title)
	}
	return id
}

func TestUnknownEndpointReturns404(t *testing.T) {
	h := newAPIHarness(t)
	rr := h.do(http.MethodGet, "/no/such/place", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	payload := h.decode(rr)
	if payload["success"] != false || payload["reason"] != "Endpoint not found" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestRegisterAndLoginFlow(t *testing.T) {
	h := newAPIHarness(t)
	h.register("alice")

	rr := h.do(http.MethodPost, "/users", `{"username":"alice","password":"long-enough-pw"}`, "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d", rr.Code)
	}

	rr = h.do(http.MethodPost, "/sessions", `{"username":"alice","password":"wrong-password"}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials, got %d", rr.Code)
	}

	token := h.login("alice")
	rr = h.do(http.MethodGet, "/profile", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected profile to load, got %d (%s)", rr.Code, rr.Body.String())
	}
	user, _ := h.decode(rr)["user"].(map[string]any)
	if user["username"] != "alice" {
		t.Fatalf("expected profile for alice, got %v", user)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatal("expected password hash to be stripped from the response")
	}

	rr = h.do(http.MethodDelete, "/sessions", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected logout to succeed, got %d", rr.Code)
	}
	rr = h.do(http.MethodGet, "/profile", "", token)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rr.Code)
	}
	// Logging out again with the dead token is still unauthorized but safe.
	rr = h.do(http.MethodDelete, "/sessions", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected idempotent logout, got %d", rr.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	h := newAPIHarness(t)

	rr := h.do(http.MethodPost, "/users", `{"password":"long-enough-pw"}`, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing username, got %d", rr.Code)
	}
	rr = h.do(http.MethodPost, "/users", `{"username":"bob","password":"short"}`, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", rr.Code)
	}
	rr = h.do(http.MethodGet, "/users", "", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET /users, got %d", rr.Code)
	}
}

func TestClaimedPrefixRejections(t *testing.T) {
	h := newAPIHarness(t)

	rr := h.do(http.MethodPatch, "/sessions", "", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for PATCH /sessions, got %d", rr.Code)
	}
	if allow := rr.Header().Get("Allow"); allow != "POST, DELETE" {
		t.Fatalf("expected Allow header listing supported methods, got %q", allow)
	}
	payload := h.decode(rr)
	if payload["success"] != false || payload["reason"] != "Method PATCH not allowed" {
		t.Fatalf("unexpected rejection payload %v", payload)
	}

	rr = h.do(http.MethodGet, "/media/some-id/extra/deep", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown media sub-path, got %d", rr.Code)
	}
	if reason := h.decode(rr)["reason"]; reason != reasonNotFound {
		t.Fatalf("unexpected reason %v", reason)
	}
}

func TestMediaCRUDAndPermissions(t *testing.T) {
	h := newAPIHarness(t)
	h.register("owner")
	h.register("stranger")
	h.register("admin")
	ownerToken := h.login("owner")
	strangerToken := h.login("stranger")
	adminToken := h.login("admin")

	rr := h.do(http.MethodPost, "/media", `{"title":"X","mediaType":"movie"}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", rr.Code)
	}

	mediaID := h.createMedia(ownerToken, "The Owned One")

	rr = h.do(http.MethodGet, "/media/"+mediaID, "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected public read, got %d", rr.Code)
	}

	rr = h.do(http.MethodPut, "/media/"+mediaID, `{"title":"Renamed"}`, strangerToken)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a stranger, got %d", rr.Code)
	}
	rr = h.do(http.MethodPut, "/media/"+mediaID, `{"title":"Renamed"}`, ownerToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected owner update to succeed, got %d (%s)", rr.Code, rr.Body.String())
	}
	media, _ := h.decode(rr)["media"].(map[string]any)
	if media["title"] != "Renamed" {
		t.Fatalf("expected renamed entry, got %v", media)
	}

	rr = h.do(http.MethodDelete, "/media/"+mediaID, "", adminToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected admin delete to succeed, got %d", rr.Code)
	}
	rr = h.do(http.MethodGet, "/media/"+mediaID, "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestMediaSearch(t *testing.T) {
	h := newAPIHarness(t)
	h.register("curator")
	token := h.login("curator")

	h.createMedia(token, "Quiet Rooms")
	rr := h.do(http.MethodPost, "/media", `{"title":"Loud Halls","mediaType":"game","genre":"action","releaseYear":1999}`, token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}

	rr = h.do(http.MethodGet, "/media?title=quiet", "", "")
	payload := h.decode(rr)
	if payload["count"] != float64(1) {
		t.Fatalf("expected 1 title match, got %v", payload["count"])
	}
	rr = h.do(http.MethodGet, "/media?mediaType=game&maxYear=2000", "", "")
	payload = h.decode(rr)
	if payload["count"] != float64(1) {
		t.Fatalf("expected 1 filtered match, got %v", payload["count"])
	}
	rr = h.do(http.MethodGet, "/media", "", "")
	payload = h.decode(rr)
	if payload["count"] != float64(2) {
		t.Fatalf("expected 2 entries unfiltered, got %v", payload["count"])
	}
}

func TestRatingLifecycle(t *testing.T) {
	h := newAPIHarness(t)
	h.register("creator")
	h.register("critic")
	h.register("fan")
	h.register("admin")
	creatorToken := h.login("creator")
	criticToken := h.login("critic")
	fanToken := h.login("fan")
	adminToken := h.login("admin")

	mediaID := h.createMedia(creatorToken, "Divisive Work")

	body := fmt.Sprintf(`{"mediaId":%q,"stars":4,"comment":"watchable"}`, mediaID)
	rr := h.do(http.MethodPost, "/ratings", body, criticToken)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 for a new rating, got %d (%s)", rr.Code, rr.Body.String())
	}
	rating, _ := h.decode(rr)["rating"].(map[string]any)
	ratingID, _ := rating["id"].(string)

	// The unconfirmed comment stays out of the public listing.
	rr = h.do(http.MethodGet, "/ratings?mediaId="+mediaID, "", "")
	payload := h.decode(rr)
	if payload["ratingCount"] != float64(0) {
		t.Fatalf("expected unconfirmed comment to be hidden, got %v", payload)
	}

	// Admin moderation queue sees it; a regular account does not.
	rr = h.do(http.MethodGet, "/ratings/pending", "", criticToken)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rr.Code)
	}
	rr = h.do(http.MethodGet, "/ratings/pending", "", adminToken)
	if h.decode(rr)["count"] != float64(1) {
		t.Fatalf("expected 1 pending rating, got %s", rr.Body.String())
	}

	rr = h.do(http.MethodPost, "/ratings/"+ratingID+"/confirm", "", criticToken)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 confirming as non-admin, got %d", rr.Code)
	}
	rr = h.do(http.MethodPost, "/ratings/"+ratingID+"/confirm", "", adminToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected confirmation to succeed, got %d", rr.Code)
	}
	rr = h.do(http.MethodGet, "/ratings?mediaId="+mediaID, "", "")
	payload = h.decode(rr)
	if payload["ratingCount"] != float64(1) || payload["averageRating"] != float64(4) {
		t.Fatalf("expected confirmed rating to be public, got %v", payload)
	}

	// Likes: not one's own, idempotent for others.
	rr = h.do(http.MethodPost, "/ratings/"+ratingID+"/like", "", criticToken)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 liking own rating, got %d", rr.Code)
	}
	rr = h.do(http.MethodPost, "/ratings/"+ratingID+"/like", "", fanToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected like to succeed, got %d", rr.Code)
	}
	rr = h.do(http.MethodPost, "/ratings/"+ratingID+"/like", "", fanToken)
	liked, _ := h.decode(rr)["rating"].(map[string]any)
	if liked["likeCount"] != float64(1) {
		t.Fatalf("expected repeat like to be a no-op, got %v", liked)
	}
	rr = h.do(http.MethodDelete, "/ratings/"+ratingID+"/like", "", fanToken)
	unliked, _ := h.decode(rr)["rating"].(map[string]any)
	if unliked["likeCount"] != float64(0) {
		t.Fatalf("expected unlike to drop the count, got %v", unliked)
	}

	// Re-rating resets the confirmation.
	body = fmt.Sprintf(`{"mediaId":%q,"stars":2,"comment":"changed my mind"}`, mediaID)
	rr = h.do(http.MethodPost, "/ratings", body, criticToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for an update, got %d", rr.Code)
	}
	rr = h.do(http.MethodGet, "/ratings?mediaId="+mediaID, "", "")
	if h.decode(rr)["ratingCount"] != float64(0) {
		t.Fatalf("expected revised comment to drop out of public view, got %s", rr.Body.String())
	}

	// Deletion: stranger no, author yes.
	rr = h.do(http.MethodDelete, "/ratings/"+ratingID, "", fanToken)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 deleting someone else's rating, got %d", rr.Code)
	}
	rr = h.do(http.MethodDelete, "/ratings/"+ratingID, "", criticToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected author delete to succeed, got %d", rr.Code)
	}
}

func TestRatingValidation(t *testing.T) {
	h := newAPIHarness(t)
	h.register("creator")
	token := h.login("creator")
	mediaID := h.createMedia(token, "Strict Scale")

	rr := h.do(http.MethodPost, "/ratings", fmt.Sprintf(`{"mediaId":%q,"stars":6}`, mediaID), token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-scale stars, got %d", rr.Code)
	}
	rr = h.do(http.MethodPost, "/ratings", fmt.Sprintf(`{"mediaId":%q}`, mediaID), token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing stars, got %d", rr.Code)
	}
	rr = h.do(http.MethodPost, "/ratings", `{"mediaId":"ghost","stars":3}`, token)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown media, got %d", rr.Code)
	}
	rr = h.do(http.MethodGet, "/ratings", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without mediaId, got %d", rr.Code)
	}
}

func TestFavoritesFlow(t *testing.T) {
	h := newAPIHarness(t)
	h.register("creator")
	h.register("fan")
	creatorToken := h.login("creator")
	fanToken := h.login("fan")
	mediaID := h.createMedia(creatorToken, "Keeper")

	rr := h.do(http.MethodGet, "/favorites", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", rr.Code)
	}

	rr = h.do(http.MethodPost, "/favorites/"+mediaID, "", fanToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected favorite to be added, got %d", rr.Code)
	}
	rr = h.do(http.MethodPost, "/favorites/"+mediaID, "", fanToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected repeat favorite to be a no-op, got %d", rr.Code)
	}
	rr = h.do(http.MethodPost, "/favorites/ghost", "", fanToken)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown media, got %d", rr.Code)
	}

	rr = h.do(http.MethodGet, "/favorites", "", fanToken)
	payload := h.decode(rr)
	if payload["count"] != float64(1) {
		t.Fatalf("expected 1 favorite, got %v", payload)
	}

	rr = h.do(http.MethodDelete, "/favorites/"+mediaID, "", fanToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected favorite removal, got %d", rr.Code)
	}
	rr = h.do(http.MethodGet, "/favorites", "", fanToken)
	if h.decode(rr)["count"] != float64(0) {
		t.Fatalf("expected empty favorites, got %s", rr.Body.String())
	}
}

func TestLeaderboardsAndRecommendations(t *testing.T) {
	h := newAPIHarness(t)
	h.register("creator")
	creatorToken := h.login("creator")
	hit := h.createMedia(creatorToken, "The Hit")
	miss := h.createMedia(creatorToken, "The Miss")

	for i, stars := range []int{5, 5, 4} {
		username := fmt.Sprintf("rater%d", i)
		h.register(username)
		token := h.login(username)
		rr := h.do(http.MethodPost, "/ratings", fmt.Sprintf(`{"mediaId":%q,"stars":%d}`, hit, stars), token)
		if rr.Code != http.StatusCreated {
			t.Fatalf("seed rating: expected 201, got %d", rr.Code)
		}
	}

	rr := h.do(http.MethodGet, "/leaderboard/media", "", "")
	payload := h.decode(rr)
	if payload["count"] != float64(1) {
		t.Fatalf("expected 1 leaderboard row, got %v", payload)
	}
	rows, _ := payload["leaderboard"].([]any)
	row, _ := rows[0].(map[string]any)
	if row["mediaId"] != hit || row["rank"] != float64(1) {
		t.Fatalf("unexpected leaderboard row: %v", row)
	}

	rr = h.do(http.MethodGet, "/leaderboard/users?limit=2", "", "")
	payload = h.decode(rr)
	if payload["count"] != float64(2) {
		t.Fatalf("expected limit to cap user leaderboard, got %v", payload)
	}

	rr = h.do(http.MethodGet, "/leaderboard/unknown", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown board, got %d", rr.Code)
	}

	// rater0 rated The Hit with 5 stars; The Miss shares its genre and has
	// ratings from others, so it comes back recommended.
	h.register("extra")
	extraToken := h.login("extra")
	rr = h.do(http.MethodPost, "/ratings", fmt.Sprintf(`{"mediaId":%q,"stars":3}`, miss), extraToken)
	if rr.Code != http.StatusCreated {
		t.Fatalf("seed rating: expected 201, got %d", rr.Code)
	}

	rater0Token := h.login("rater0")
	rr = h.do(http.MethodGet, "/recommendations", "", rater0Token)
	payload = h.decode(rr)
	recs, _ := payload["recommendations"].([]any)
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %v", payload)
	}
	rec, _ := recs[0].(map[string]any)
	if rec["mediaId"] != miss {
		t.Fatalf("expected The Miss to be recommended, got %v", rec)
	}

	rr = h.do(http.MethodGet, "/recommendations", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", rr.Code)
	}
}

func TestProfileRatingsIncludesMediaSummaries(t *testing.T) {
	h := newAPIHarness(t)
	h.register("creator")
	h.register("critic")
	creatorToken := h.login("creator")
	criticToken := h.login("critic")
	mediaID := h.createMedia(creatorToken, "Summarized")

	rr := h.do(http.MethodPost, "/ratings", fmt.Sprintf(`{"mediaId":%q,"stars":5}`, mediaID), criticToken)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}

	rr = h.do(http.MethodGet, "/profile/ratings", "", criticToken)
	payload := h.decode(rr)
	rows, _ := payload["ratings"].([]any)
	if len(rows) != 1 {
		t.Fatalf("expected 1 rating row, got %v", payload)
	}
	row, _ := rows[0].(map[string]any)
	media, _ := row["media"].(map[string]any)
	if media["title"] != "Summarized" {
		t.Fatalf("expected media summary on the row, got %v", row)
	}
}

func TestVersionEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	rr := h.do(http.MethodGet, "/version", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if h.decode(rr)["version"] != "test" {
		t.Fatalf("expected version test, got %s", rr.Body.String())
	}
}

func TestAdminAccountGetsFlagOnLogin(t *testing.T) {
	h := newAPIHarness(t)
	h.register("admin")
	rr := h.do(http.MethodPost, "/sessions", `{"username":"admin","password":"long-enough-pw"}`, "")
	if h.decode(rr)["isAdmin"] != true {
		t.Fatalf("expected admin flag on login, got %s", rr.Body.String())
	}
}
