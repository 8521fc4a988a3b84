package storage

import (
	"math"
	"sort"
)

const (
	leaderboardMaxLimit     = 100
	recommendationMaxLimit  = 50
	leaderboardMinRatings   = 3
	preferenceStarThreshold = 4
)

// MediaRanking is one row of the media leaderboard.
type MediaRanking struct {
	Rank          int     `json:"rank"`
	MediaID       string  `json:"mediaId"`
	Title         string  `json:"title"`
	MediaType     string  `json:"mediaType"`
	Genre         string  `json:"genre"`
	ReleaseYear   int     `json:"releaseYear"`
	AverageRating float64 `json:"averageRating"`
	RatingCount   int     `json:"ratingCount"`
}

// RaterRanking is one row of the user leaderboard.
type RaterRanking struct {
	Rank               int    `json:"rank"`
	UserID             string `json:"userId"`
	UserName           string `json:"username"`
	FullName           string `json:"fullName"`
	TotalRatings       int    `json:"totalRatings"`
	TotalMediaCreated  int    `json:"totalMediaCreated"`
	TotalLikesReceived int    `json:"totalLikesReceived"`
}

// Recommendation is a scored media suggestion.
type Recommendation struct {
	MediaID       string  `json:"mediaId"`
	Title         string  `json:"title"`
	MediaType     string  `json:"mediaType"`
	Genre         string  `json:"genre"`
	ReleaseYear   int     `json:"releaseYear"`
	AverageRating float64 `json:"averageRating"`
	RatingCount   int     `json:"ratingCount"`
	Score         float64 `json:"recommendationScore"`
}

// ProfileStats aggregates a user's activity for the profile endpoint.
type ProfileStats struct {
	TotalRatings       int     `json:"totalRatings"`
	TotalMediaCreated  int     `json:"totalMediaCreated"`
	TotalFavorites     int     `json:"totalFavorites"`
	AverageStarsGiven  float64 `json:"averageStarsGiven"`
	TotalLikesReceived int     `json:"totalLikesReceived"`
}

// TopMedia ranks entries with at least three publicly visible ratings by
// average stars, ties broken by rating count.
func (s *Storage) TopMedia(limit int) []MediaRanking {
	limit = clampLimit(limit, leaderboardMaxLimit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rankings := make([]MediaRanking, 0)
	for id, entry := range s.data.Media {
		avg, count := s.ratingSummaryLocked(id)
		if count < leaderboardMinRatings {
			continue
		}
		rankings = append(rankings, MediaRanking{
			MediaID:       id,
			Title:         entry.Title,
			MediaType:     entry.MediaType,
			Genre:         entry.Genre,
			ReleaseYear:   entry.ReleaseYear,
			AverageRating: round2(avg),
			RatingCount:   count,
		})
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].AverageRating != rankings[j].AverageRating {
			return rankings[i].AverageRating > rankings[j].AverageRating
		}
		if rankings[i].RatingCount != rankings[j].RatingCount {
			return rankings[i].RatingCount > rankings[j].RatingCount
		}
		return rankings[i].Title < rankings[j].Title
	})
	if len(rankings) > limit {
		rankings = rankings[:limit]
	}
	for i := range rankings {
		rankings[i].Rank = i + 1
	}
	return rankings
}

// TopRaters ranks accounts with any activity by rating count plus
// double-weighted created entries.
func (s *Storage) TopRaters(limit int) []RaterRanking {
	limit = clampLimit(limit, leaderboardMaxLimit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rankings := make([]RaterRanking, 0)
	for id, user := range s.data.Users {
		ratings := 0
		likes := 0
		for ratingID, rating := range s.data.Ratings {
			if rating.UserID == id {
				ratings++
				likes += len(s.data.RatingLikes[ratingID])
			}
		}
		created := 0
		for _, entry := range s.data.Media {
			if entry.CreatorID == id {
				created++
			}
		}
		if ratings == 0 && created == 0 {
			continue
		}
		rankings = append(rankings, RaterRanking{
			UserID:             id,
			UserName:           user.UserName,
			FullName:           user.FullName,
			TotalRatings:       ratings,
			TotalMediaCreated:  created,
			TotalLikesReceived: likes,
		})
	}
	sort.Slice(rankings, func(i, j int) bool {
		scoreI := rankings[i].TotalRatings + rankings[i].TotalMediaCreated*2
		scoreJ := rankings[j].TotalRatings + rankings[j].TotalMediaCreated*2
		if scoreI != scoreJ {
			return scoreI > scoreJ
		}
		return rankings[i].UserName < rankings[j].UserName
	})
	if len(rankings) > limit {
		rankings = rankings[:limit]
	}
	for i := range rankings {
		rankings[i].Rank = i + 1
	}
	return rankings
}

// RecommendFor scores entries the user has neither rated nor favorited.
// Genres and media types the user rated four stars or higher, or favorited,
// double an entry's average rating in its score; rating volume adds a small
// bonus.
func (s *Storage) RecommendFor(userID string, limit int) []Recommendation {
	limit = clampLimit(limit, recommendationMaxLimit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	preferredGenres := make(map[string]struct{})
	preferredTypes := make(map[string]struct{})
	seen := make(map[string]struct{})

	for _, rating := range s.data.Ratings {
		if rating.UserID != userID {
			continue
		}
		seen[rating.MediaID] = struct{}{}
		if rating.Stars < preferenceStarThreshold {
			continue
		}
		if entry, ok := s.data.Media[rating.MediaID]; ok {
			preferredGenres[entry.Genre] = struct{}{}
			preferredTypes[entry.MediaType] = struct{}{}
		}
	}
	for mediaID := range s.data.Favorites[userID] {
		seen[mediaID] = struct{}{}
		if entry, ok := s.data.Media[mediaID]; ok {
			preferredGenres[entry.Genre] = struct{}{}
			preferredTypes[entry.MediaType] = struct{}{}
		}
	}

	recommendations := make([]Recommendation, 0)
	for id, entry := range s.data.Media {
		if _, skip := seen[id]; skip {
			continue
		}
		avg, count := s.ratingSummaryLocked(id)
		if count == 0 {
			continue
		}
		multiplier := 1.0
		_, genreHit := preferredGenres[entry.Genre]
		_, typeHit := preferredTypes[entry.MediaType]
		if genreHit || typeHit {
			multiplier = 2.0
		}
		recommendations = append(recommendations, Recommendation{
			MediaID:       id,
			Title:         entry.Title,
			MediaType:     entry.MediaType,
			Genre:         entry.Genre,
			ReleaseYear:   entry.ReleaseYear,
			AverageRating: round2(avg),
			RatingCount:   count,
			Score:         round2(avg*multiplier + float64(count)*0.1),
		})
	}
	sortRecommendations(recommendations)
	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}
	return recommendations
}

// StatsFor aggregates the user's activity counters.
func (s *Storage) StatsFor(userID string) ProfileStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := ProfileStats{TotalFavorites: len(s.data.Favorites[userID])}
	starTotal := 0
	for ratingID, rating := range s.data.Ratings {
		if rating.UserID != userID {
			continue
		}
		stats.TotalRatings++
		starTotal += rating.Stars
		stats.TotalLikesReceived += len(s.data.RatingLikes[ratingID])
	}
	for _, entry := range s.data.Media {
		if entry.CreatorID == userID {
			stats.TotalMediaCreated++
		}
	}
	if stats.TotalRatings > 0 {
		stats.AverageStarsGiven = round2(float64(starTotal) / float64(stats.TotalRatings))
	}
	return stats
}

func sortRecommendations(recommendations []Recommendation) {
	sort.Slice(recommendations, func(i, j int) bool {
		if recommendations[i].Score != recommendations[j].Score {
			return recommendations[i].Score > recommendations[j].Score
		}
		if recommendations[i].RatingCount != recommendations[j].RatingCount {
			return recommendations[i].RatingCount > recommendations[j].RatingCount
		}
		return recommendations[i].Title < recommendations[j].Title
	})
}

func clampLimit(limit, max int) int {
	if limit <= 0 {
		return 10
	}
	if limit > max {
		return max
	}
	return limit
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
