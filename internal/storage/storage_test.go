package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStorage(t *testing.T, opts ...Option) *Storage {
	t.Helper()
	store, err := NewStorage("", opts...)
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	return store
}

func mustCreateUser(t *testing.T, store *Storage, username string) string {
	t.Helper()
	user, err := store.CreateUser(CreateUserParams{UserName: username, Password: "long-enough-pw"})
	if err != nil {
		t.Fatalf("CreateUser(%q) returned error: %v", username, err)
	}
	return user.ID
}

func mustCreateMedia(t *testing.T, store *Storage, creatorID, title string) string {
	t.Helper()
	entry, err := store.CreateMedia(CreateMediaParams{
		Title:       title,
		MediaType:   "movie",
		Genre:       "drama",
		ReleaseYear: 2020,
		CreatorID:   creatorID,
	})
	if err != nil {
		t.Fatalf("CreateMedia(%q) returned error: %v", title, err)
	}
	return entry.ID
}

func TestCreateUserValidation(t *testing.T) {
	store := newTestStorage(t)

	if _, err := store.CreateUser(CreateUserParams{UserName: "  ", Password: "long-enough-pw"}); err == nil {
		t.Fatal("expected error for blank username")
	}
	if _, err := store.CreateUser(CreateUserParams{UserName: "alice", Password: "short"}); err == nil {
		t.Fatal("expected error for short password")
	}

	mustCreateUser(t, store, "alice")
	if _, err := store.CreateUser(CreateUserParams{UserName: "ALICE", Password: "long-enough-pw"}); err == nil {
		t.Fatal("expected duplicate username to be rejected case-insensitively")
	}
}

func TestCreateUserAdminFlag(t *testing.T) {
	store := newTestStorage(t)

	admin, err := store.CreateUser(CreateUserParams{UserName: "Admin", Password: "long-enough-pw"})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if !admin.IsAdmin {
		t.Fatal("expected account named admin to receive the admin flag")
	}

	regular, err := store.CreateUser(CreateUserParams{UserName: "bob", Password: "long-enough-pw"})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if regular.IsAdmin {
		t.Fatal("expected regular account to not receive the admin flag")
	}
}

func TestGetUserByNameIgnoresCase(t *testing.T) {
	store := newTestStorage(t)
	id := mustCreateUser(t, store, "Alice")

	user, ok := store.GetUserByName("aLiCe")
	if !ok {
		t.Fatal("expected lookup to succeed")
	}
	if user.ID != id {
		t.Fatalf("expected user %s, got %s", id, user.ID)
	}
}

func TestSetUserAdmin(t *testing.T) {
	store := newTestStorage(t)
	mustCreateUser(t, store, "alice")

	user, err := store.SetUserAdmin("alice", true)
	if err != nil {
		t.Fatalf("SetUserAdmin returned error: %v", err)
	}
	if !user.IsAdmin {
		t.Fatal("expected admin flag to be set")
	}
	if _, err := store.SetUserAdmin("ghost", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMediaLifecycle(t *testing.T) {
	store := newTestStorage(t)
	userID := mustCreateUser(t, store, "alice")

	entry, err := store.CreateMedia(CreateMediaParams{
		Title:          "  The Long Film  ",
		MediaType:      "Movie",
		Genre:          "drama",
		ReleaseYear:    2019,
		AgeRestriction: 12,
		CreatorID:      userID,
	})
	if err != nil {
		t.Fatalf("CreateMedia returned error: %v", err)
	}
	if entry.Title != "The Long Film" {
		t.Fatalf("expected trimmed title, got %q", entry.Title)
	}
	if entry.MediaType != "movie" {
		t.Fatalf("expected lowercased media type, got %q", entry.MediaType)
	}

	newTitle := "The Longer Film"
	updated, err := store.UpdateMedia(entry.ID, MediaUpdate{Title: &newTitle})
	if err != nil {
		t.Fatalf("UpdateMedia returned error: %v", err)
	}
	if updated.Title != newTitle {
		t.Fatalf("expected updated title, got %q", updated.Title)
	}
	if updated.UpdatedAt == nil {
		t.Fatal("expected UpdatedAt to be set after an update")
	}

	if err := store.DeleteMedia(entry.ID); err != nil {
		t.Fatalf("DeleteMedia returned error: %v", err)
	}
	if _, ok := store.GetMedia(entry.ID); ok {
		t.Fatal("expected entry to be gone after delete")
	}
	if err := store.DeleteMedia(entry.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateMediaRejectsInvalidInput(t *testing.T) {
	store := newTestStorage(t)
	userID := mustCreateUser(t, store, "alice")

	cases := []struct {
		name   string
		params CreateMediaParams
	}{
		{"blank title", CreateMediaParams{MediaType: "movie", CreatorID: userID}},
		{"unknown type", CreateMediaParams{Title: "X", MediaType: "podcast", CreatorID: userID}},
		{"unknown age restriction", CreateMediaParams{Title: "X", MediaType: "movie", AgeRestriction: 13, CreatorID: userID}},
		{"missing creator", CreateMediaParams{Title: "X", MediaType: "movie", CreatorID: "ghost"}},
	}
	for _, tc := range cases {
		if _, err := store.CreateMedia(tc.params); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestListMediaFilters(t *testing.T) {
	store := newTestStorage(t)
	userID := mustCreateUser(t, store, "alice")

	oldDrama, err := store.CreateMedia(CreateMediaParams{
		Title: "Quiet Rooms", MediaType: "movie", Genre: "drama", ReleaseYear: 1995, AgeRestriction: 16, CreatorID: userID,
	})
	if err != nil {
		t.Fatalf("CreateMedia returned error: %v", err)
	}
	newComedy, err := store.CreateMedia(CreateMediaParams{
		Title: "Quiet Laughs", MediaType: "tv_show", Genre: "comedy", ReleaseYear: 2021, AgeRestriction: 6, CreatorID: userID,
	})
	if err != nil {
		t.Fatalf("CreateMedia returned error: %v", err)
	}

	byTitle := store.ListMedia(MediaFilter{Title: "quiet"})
	if len(byTitle) != 2 {
		t.Fatalf("expected 2 matches by title, got %d", len(byTitle))
	}
	byType := store.ListMedia(MediaFilter{MediaType: "tv_show"})
	if len(byType) != 1 || byType[0].ID != newComedy.ID {
		t.Fatalf("expected only the tv show, got %+v", byType)
	}
	byYear := store.ListMedia(MediaFilter{MaxYear: 2000})
	if len(byYear) != 1 || byYear[0].ID != oldDrama.ID {
		t.Fatalf("expected only the old drama, got %+v", byYear)
	}
	byAge := store.ListMedia(MediaFilter{}.WithMaxAgeRestriction(12))
	if len(byAge) != 1 || byAge[0].ID != newComedy.ID {
		t.Fatalf("expected only the age-6 entry, got %+v", byAge)
	}
}

func TestListMediaMinRating(t *testing.T) {
	store := newTestStorage(t)
	creator := mustCreateUser(t, store, "creator")
	rater := mustCreateUser(t, store, "rater")

	good := mustCreateMedia(t, store, creator, "Good One")
	bad := mustCreateMedia(t, store, creator, "Bad One")
	unrated := mustCreateMedia(t, store, creator, "Fresh One")
	if _, _, err := store.UpsertRating(good, rater, 5, ""); err != nil {
		t.Fatalf("UpsertRating returned error: %v", err)
	}
	if _, _, err := store.UpsertRating(bad, rater, 2, ""); err != nil {
		t.Fatalf("UpsertRating returned error: %v", err)
	}

	got := store.ListMedia(MediaFilter{MinRating: 4})
	if len(got) != 2 {
		t.Fatalf("expected the highly rated and unrated entries, got %+v", got)
	}
	for _, entry := range got {
		if entry.ID == bad {
			t.Fatalf("low-rated entry should be filtered out, got %+v", got)
		}
	}
	for _, want := range []string{good, unrated} {
		found := false
		for _, entry := range got {
			if entry.ID == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected entry %s in results, got %+v", want, got)
		}
	}
}

func TestListMediaGenreMatchesSubstring(t *testing.T) {
	store := newTestStorage(t)
	userID := mustCreateUser(t, store, "alice")

	scifi, err := store.CreateMedia(CreateMediaParams{
		Title: "Beyond the Belt", MediaType: "book", Genre: "Science Fiction", CreatorID: userID,
	})
	if err != nil {
		t.Fatalf("CreateMedia returned error: %v", err)
	}
	if _, err := store.CreateMedia(CreateMediaParams{
		Title: "Quiet Rooms", MediaType: "movie", Genre: "drama", CreatorID: userID,
	}); err != nil {
		t.Fatalf("CreateMedia returned error: %v", err)
	}

	got := store.ListMedia(MediaFilter{Genre: "fiction"})
	if len(got) != 1 || got[0].ID != scifi.ID {
		t.Fatalf("expected the science fiction entry, got %+v", got)
	}
}

func TestDeleteMediaCascades(t *testing.T) {
	store := newTestStorage(t)
	creator := mustCreateUser(t, store, "creator")
	rater := mustCreateUser(t, store, "rater")
	fan := mustCreateUser(t, store, "fan")

	mediaID := mustCreateMedia(t, store, creator, "Short Lived")
	rating, _, err := store.UpsertRating(mediaID, rater, 4, "fine")
	if err != nil {
		t.Fatalf("UpsertRating returned error: %v", err)
	}
	if _, err := store.LikeRating(rating.ID, fan); err != nil {
		t.Fatalf("LikeRating returned error: %v", err)
	}
	if err := store.AddFavorite(fan, mediaID); err != nil {
		t.Fatalf("AddFavorite returned error: %v", err)
	}

	if err := store.DeleteMedia(mediaID); err != nil {
		t.Fatalf("DeleteMedia returned error: %v", err)
	}
	if _, ok := store.GetRating(rating.ID); ok {
		t.Fatal("expected rating to be removed with its media entry")
	}
	if got := store.CountFavorites(fan); got != 0 {
		t.Fatalf("expected favorites to be removed, got %d", got)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "store.json")

	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	userID := mustCreateUser(t, store, "alice")
	mediaID := mustCreateMedia(t, store, userID, "Kept Around")
	if _, _, err := store.UpsertRating(mediaID, userID, 5, "mine"); err != nil {
		t.Fatalf("UpsertRating returned error: %v", err)
	}
	if err := store.AddFavorite(userID, mediaID); err != nil {
		t.Fatalf("AddFavorite returned error: %v", err)
	}

	reopened, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage (reopen) returned error: %v", err)
	}
	if _, ok := reopened.GetUser(userID); !ok {
		t.Fatal("expected user to survive reopen")
	}
	if _, ok := reopened.GetMedia(mediaID); !ok {
		t.Fatal("expected media entry to survive reopen")
	}
	if got := len(reopened.ListRatingsByUser(userID)); got != 1 {
		t.Fatalf("expected 1 rating after reopen, got %d", got)
	}
	if got := reopened.CountFavorites(userID); got != 1 {
		t.Fatalf("expected 1 favorite after reopen, got %d", got)
	}
}

func TestPersistFailureLeavesDatasetUntouched(t *testing.T) {
	store := newTestStorage(t)
	store.persistOverride = func(dataset) error { return nil }
	userID := mustCreateUser(t, store, "alice")

	store.persistOverride = func(dataset) error { return os.ErrPermission }
	if _, err := store.CreateUser(CreateUserParams{UserName: "bob", Password: "long-enough-pw"}); err == nil {
		t.Fatal("expected persist failure to surface")
	}
	if got := len(store.ListUsers()); got != 1 {
		t.Fatalf("expected failed write to leave 1 user, got %d", got)
	}
	if _, ok := store.GetUser(userID); !ok {
		t.Fatal("expected original user to remain")
	}
}

func TestUpsertRatingResetsConfirmation(t *testing.T) {
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newTestStorage(t, WithClock(func() time.Time { return clock }))
	creator := mustCreateUser(t, store, "creator")
	rater := mustCreateUser(t, store, "rater")
	mediaID := mustCreateMedia(t, store, creator, "Revised Often")

	rating, created, err := store.UpsertRating(mediaID, rater, 3, "okay")
	if err != nil {
		t.Fatalf("UpsertRating returned error: %v", err)
	}
	if !created {
		t.Fatal("expected first upsert to create")
	}
	if _, err := store.ConfirmRating(rating.ID); err != nil {
		t.Fatalf("ConfirmRating returned error: %v", err)
	}

	clock = clock.Add(time.Hour)
	revised, created, err := store.UpsertRating(mediaID, rater, 5, "actually great")
	if err != nil {
		t.Fatalf("UpsertRating returned error: %v", err)
	}
	if created {
		t.Fatal("expected second upsert to update in place")
	}
	if revised.ID != rating.ID {
		t.Fatalf("expected rating %s to be reused, got %s", rating.ID, revised.ID)
	}
	if revised.Confirmed {
		t.Fatal("expected revision to reset the confirmation")
	}
	if revised.UpdatedAt == nil || !revised.UpdatedAt.Equal(clock) {
		t.Fatalf("expected UpdatedAt %v, got %v", clock, revised.UpdatedAt)
	}
}

func TestListRatingsHidesUnconfirmedComments(t *testing.T) {
	store := newTestStorage(t)
	creator := mustCreateUser(t, store, "creator")
	a := mustCreateUser(t, store, "a")
	b := mustCreateUser(t, store, "b")
	c := mustCreateUser(t, store, "c")
	mediaID := mustCreateMedia(t, store, creator, "Mixed Reviews")

	if _, _, err := store.UpsertRating(mediaID, a, 5, ""); err != nil {
		t.Fatalf("UpsertRating returned error: %v", err)
	}
	pending, _, err := store.UpsertRating(mediaID, b, 1, "needs review")
	if err != nil {
		t.Fatalf("UpsertRating returned error: %v", err)
	}
	confirmed, _, err := store.UpsertRating(mediaID, c, 4, "reviewed")
	if err != nil {
		t.Fatalf("UpsertRating returned error: %v", err)
	}
	if _, err := store.ConfirmRating(confirmed.ID); err != nil {
		t.Fatalf("ConfirmRating returned error: %v", err)
	}

	visible := store.ListRatings(mediaID, true)
	if len(visible) != 2 {
		t.Fatalf("expected 2 publicly visible ratings, got %d", len(visible))
	}
	for _, rating := range visible {
		if rating.ID == pending.ID {
			t.Fatal("expected unconfirmed comment to be hidden")
		}
	}
	if got := len(store.ListRatings(mediaID, false)); got != 3 {
		t.Fatalf("expected 3 ratings without the filter, got %d", got)
	}

	queue := store.ListPendingRatings()
	if len(queue) != 1 || queue[0].ID != pending.ID {
		t.Fatalf("expected only the pending rating in the queue, got %+v", queue)
	}

	avg, count := store.RatingSummary(mediaID)
	if count != 2 {
		t.Fatalf("expected summary over 2 ratings, got %d", count)
	}
	if avg != 4.5 {
		t.Fatalf("expected average 4.5, got %v", avg)
	}
}

func TestLikeRating(t *testing.T) {
	store := newTestStorage(t)
	creator := mustCreateUser(t, store, "creator")
	rater := mustCreateUser(t, store, "rater")
	fan := mustCreateUser(t, store, "fan")
	mediaID := mustCreateMedia(t, store, creator, "Well Liked")

	rating, _, err := store.UpsertRating(mediaID, rater, 5, "")
	if err != nil {
		t.Fatalf("UpsertRating returned error: %v", err)
	}

	if _, err := store.LikeRating(rating.ID, rater); !errors.Is(err, ErrOwnRating) {
		t.Fatalf("expected ErrOwnRating, got %v", err)
	}

	liked, err := store.LikeRating(rating.ID, fan)
	if err != nil {
		t.Fatalf("LikeRating returned error: %v", err)
	}
	if liked.LikeCount != 1 {
		t.Fatalf("expected 1 like, got %d", liked.LikeCount)
	}
	liked, err = store.LikeRating(rating.ID, fan)
	if err != nil {
		t.Fatalf("LikeRating (repeat) returned error: %v", err)
	}
	if liked.LikeCount != 1 {
		t.Fatalf("expected repeat like to be a no-op, got %d", liked.LikeCount)
	}

	unliked, err := store.UnlikeRating(rating.ID, fan)
	if err != nil {
		t.Fatalf("UnlikeRating returned error: %v", err)
	}
	if unliked.LikeCount != 0 {
		t.Fatalf("expected 0 likes after unlike, got %d", unliked.LikeCount)
	}
	if _, err := store.UnlikeRating(rating.ID, fan); err != nil {
		t.Fatalf("UnlikeRating (absent) returned error: %v", err)
	}
}

func TestFavorites(t *testing.T) {
	store := newTestStorage(t)
	creator := mustCreateUser(t, store, "creator")
	fan := mustCreateUser(t, store, "fan")
	first := mustCreateMedia(t, store, creator, "First Pick")
	second := mustCreateMedia(t, store, creator, "Second Pick")

	if err := store.AddFavorite(fan, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing media, got %v", err)
	}
	if err := store.AddFavorite(fan, first); err != nil {
		t.Fatalf("AddFavorite returned error: %v", err)
	}
	if err := store.AddFavorite(fan, first); err != nil {
		t.Fatalf("AddFavorite (repeat) returned error: %v", err)
	}
	if err := store.AddFavorite(fan, second); err != nil {
		t.Fatalf("AddFavorite returned error: %v", err)
	}

	if got := store.CountFavorites(fan); got != 2 {
		t.Fatalf("expected 2 favorites, got %d", got)
	}
	if err := store.RemoveFavorite(fan, first); err != nil {
		t.Fatalf("RemoveFavorite returned error: %v", err)
	}
	if err := store.RemoveFavorite(fan, first); err != nil {
		t.Fatalf("RemoveFavorite (absent) returned error: %v", err)
	}
	favorites := store.ListFavorites(fan)
	if len(favorites) != 1 || favorites[0].MediaID != second {
		t.Fatalf("expected only the second pick, got %+v", favorites)
	}
}
