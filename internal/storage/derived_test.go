package storage

import "testing"

// seedRatings records one commentless rating per entry in stars, from a fresh
// account each time so the unique media/user constraint never trips.
func seedRatings(t *testing.T, store *Storage, mediaID string, prefix string, stars []int) {
	t.Helper()
	for i, value := range stars {
		raterID := mustCreateUser(t, store, prefix+string(rune('a'+i)))
		if _, _, err := store.UpsertRating(mediaID, raterID, value, ""); err != nil {
			t.Fatalf("UpsertRating returned error: %v", err)
		}
	}
}

func TestTopMediaRequiresThreeRatings(t *testing.T) {
	store := newTestStorage(t)
	creator := mustCreateUser(t, store, "creator")

	popular := mustCreateMedia(t, store, creator, "Popular")
	obscure := mustCreateMedia(t, store, creator, "Obscure")
	seedRatings(t, store, popular, "p", []int{5, 4, 4})
	seedRatings(t, store, obscure, "o", []int{5, 5})

	rankings := store.TopMedia(10)
	if len(rankings) != 1 {
		t.Fatalf("expected 1 ranked entry, got %d", len(rankings))
	}
	if rankings[0].MediaID != popular {
		t.Fatalf("expected %s on the leaderboard, got %s", popular, rankings[0].MediaID)
	}
	if rankings[0].Rank != 1 {
		t.Fatalf("expected rank 1, got %d", rankings[0].Rank)
	}
	if rankings[0].AverageRating != 4.33 {
		t.Fatalf("expected rounded average 4.33, got %v", rankings[0].AverageRating)
	}
}

func TestTopMediaOrdering(t *testing.T) {
	store := newTestStorage(t)
	creator := mustCreateUser(t, store, "creator")

	best := mustCreateMedia(t, store, creator, "Best")
	broad := mustCreateMedia(t, store, creator, "Broad")
	niche := mustCreateMedia(t, store, creator, "Niche")
	seedRatings(t, store, best, "b", []int{5, 5, 5})
	seedRatings(t, store, broad, "w", []int{4, 4, 4, 4})
	seedRatings(t, store, niche, "n", []int{4, 4, 4})

	rankings := store.TopMedia(10)
	if len(rankings) != 3 {
		t.Fatalf("expected 3 ranked entries, got %d", len(rankings))
	}
	got := []string{rankings[0].MediaID, rankings[1].MediaID, rankings[2].MediaID}
	want := []string{best, broad, niche}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if short := store.TopMedia(2); len(short) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(short))
	}
}

func TestTopRatersScoring(t *testing.T) {
	store := newTestStorage(t)
	builder := mustCreateUser(t, store, "builder")
	critic := mustCreateUser(t, store, "critic")
	mustCreateUser(t, store, "lurker")

	// builder creates two entries: score 4. critic rates three: score 3.
	first := mustCreateMedia(t, store, builder, "First")
	second := mustCreateMedia(t, store, builder, "Second")
	third := mustCreateMedia(t, store, builder, "Third")
	for _, mediaID := range []string{first, second, third} {
		if _, _, err := store.UpsertRating(mediaID, critic, 4, ""); err != nil {
			t.Fatalf("UpsertRating returned error: %v", err)
		}
	}

	rankings := store.TopRaters(10)
	if len(rankings) != 2 {
		t.Fatalf("expected 2 ranked accounts, got %d", len(rankings))
	}
	if rankings[0].UserID != builder {
		t.Fatalf("expected builder first, got %s", rankings[0].UserName)
	}
	if rankings[0].TotalMediaCreated != 3 {
		t.Fatalf("expected 3 created entries, got %d", rankings[0].TotalMediaCreated)
	}
	if rankings[1].UserID != critic || rankings[1].TotalRatings != 3 {
		t.Fatalf("expected critic with 3 ratings second, got %+v", rankings[1])
	}
}

func TestRecommendForPrefersMatchingGenres(t *testing.T) {
	store := newTestStorage(t)
	creator := mustCreateUser(t, store, "creator")
	viewer := mustCreateUser(t, store, "viewer")

	rated, err := store.CreateMedia(CreateMediaParams{
		Title: "Rated Drama", MediaType: "movie", Genre: "drama", ReleaseYear: 2018, CreatorID: creator,
	})
	if err != nil {
		t.Fatalf("CreateMedia returned error: %v", err)
	}
	dramaPick, err := store.CreateMedia(CreateMediaParams{
		Title: "Unseen Drama", MediaType: "game", Genre: "drama", ReleaseYear: 2020, CreatorID: creator,
	})
	if err != nil {
		t.Fatalf("CreateMedia returned error: %v", err)
	}
	comedyPick, err := store.CreateMedia(CreateMediaParams{
		Title: "Unseen Comedy", MediaType: "book", Genre: "comedy", ReleaseYear: 2020, CreatorID: creator,
	})
	if err != nil {
		t.Fatalf("CreateMedia returned error: %v", err)
	}
	unrated, err := store.CreateMedia(CreateMediaParams{
		Title: "Nobody Rated", MediaType: "book", Genre: "comedy", ReleaseYear: 2020, CreatorID: creator,
	})
	if err != nil {
		t.Fatalf("CreateMedia returned error: %v", err)
	}

	// viewer loves drama; a neutral account rates both unseen picks equally.
	if _, _, err := store.UpsertRating(rated.ID, viewer, 5, ""); err != nil {
		t.Fatalf("UpsertRating returned error: %v", err)
	}
	neutral := mustCreateUser(t, store, "neutral")
	for _, mediaID := range []string{dramaPick.ID, comedyPick.ID} {
		if _, _, err := store.UpsertRating(mediaID, neutral, 4, ""); err != nil {
			t.Fatalf("UpsertRating returned error: %v", err)
		}
	}

	recommendations := store.RecommendFor(viewer, 10)
	if len(recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recommendations))
	}
	for _, rec := range recommendations {
		if rec.MediaID == rated.ID {
			t.Fatal("expected rated entry to be excluded")
		}
		if rec.MediaID == unrated.ID {
			t.Fatal("expected entry without ratings to be excluded")
		}
	}
	if recommendations[0].MediaID != dramaPick.ID {
		t.Fatalf("expected the preferred genre first, got %s", recommendations[0].Title)
	}
	// avg 4 doubled by the genre match, plus the single-rating bonus.
	if recommendations[0].Score != 8.1 {
		t.Fatalf("expected score 8.1, got %v", recommendations[0].Score)
	}
	if recommendations[1].Score != 4.1 {
		t.Fatalf("expected score 4.1, got %v", recommendations[1].Score)
	}
}

func TestRecommendForExcludesFavorites(t *testing.T) {
	store := newTestStorage(t)
	creator := mustCreateUser(t, store, "creator")
	viewer := mustCreateUser(t, store, "viewer")
	rater := mustCreateUser(t, store, "rater")

	favored := mustCreateMedia(t, store, creator, "Already Favorite")
	fresh := mustCreateMedia(t, store, creator, "Fresh Pick")
	for _, mediaID := range []string{favored, fresh} {
		if _, _, err := store.UpsertRating(mediaID, rater, 4, ""); err != nil {
			t.Fatalf("UpsertRating returned error: %v", err)
		}
	}
	if err := store.AddFavorite(viewer, favored); err != nil {
		t.Fatalf("AddFavorite returned error: %v", err)
	}

	recommendations := store.RecommendFor(viewer, 10)
	if len(recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recommendations))
	}
	if recommendations[0].MediaID != fresh {
		t.Fatalf("expected the unfavorited entry, got %s", recommendations[0].Title)
	}
	// Favoriting an entry also marks its genre and type as preferred.
	if recommendations[0].Score != 8.1 {
		t.Fatalf("expected favorite-derived preference to double the score, got %v", recommendations[0].Score)
	}
}

func TestStatsFor(t *testing.T) {
	store := newTestStorage(t)
	creator := mustCreateUser(t, store, "creator")
	viewer := mustCreateUser(t, store, "viewer")
	fan := mustCreateUser(t, store, "fan")

	first := mustCreateMedia(t, store, creator, "First")
	second := mustCreateMedia(t, store, creator, "Second")
	rating, _, err := store.UpsertRating(first, viewer, 5, "")
	if err != nil {
		t.Fatalf("UpsertRating returned error: %v", err)
	}
	if _, _, err := store.UpsertRating(second, viewer, 2, ""); err != nil {
		t.Fatalf("UpsertRating returned error: %v", err)
	}
	if _, err := store.LikeRating(rating.ID, fan); err != nil {
		t.Fatalf("LikeRating returned error: %v", err)
	}
	if err := store.AddFavorite(viewer, first); err != nil {
		t.Fatalf("AddFavorite returned error: %v", err)
	}

	stats := store.StatsFor(viewer)
	if stats.TotalRatings != 2 {
		t.Fatalf("expected 2 ratings, got %d", stats.TotalRatings)
	}
	if stats.TotalFavorites != 1 {
		t.Fatalf("expected 1 favorite, got %d", stats.TotalFavorites)
	}
	if stats.AverageStarsGiven != 3.5 {
		t.Fatalf("expected average 3.5, got %v", stats.AverageStarsGiven)
	}
	if stats.TotalLikesReceived != 1 {
		t.Fatalf("expected 1 like received, got %d", stats.TotalLikesReceived)
	}
	if stats.TotalMediaCreated != 0 {
		t.Fatalf("expected 0 created entries, got %d", stats.TotalMediaCreated)
	}

	creatorStats := store.StatsFor(creator)
	if creatorStats.TotalMediaCreated != 2 {
		t.Fatalf("expected 2 created entries, got %d", creatorStats.TotalMediaCreated)
	}
}

func TestClampLimit(t *testing.T) {
	if got := clampLimit(0, 100); got != 10 {
		t.Fatalf("expected default 10, got %d", got)
	}
	if got := clampLimit(-5, 100); got != 10 {
		t.Fatalf("expected default 10 for negatives, got %d", got)
	}
	if got := clampLimit(500, 100); got != 100 {
		t.Fatalf("expected cap at 100, got %d", got)
	}
	if got := clampLimit(25, 100); got != 25 {
		t.Fatalf("expected 25 to pass through, got %d", got)
	}
}
