package storage

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"mediareview/internal/models"
)

// ErrOwnRating is returned when a user attempts to like their own rating.
var ErrOwnRating = errors.New("cannot like your own rating")

// UpsertRating records a user's rating for a media entry, replacing any
// previous one. The returned bool reports whether a new rating was created.
// Any change resets the comment confirmation.
func (s *Storage) UpsertRating(mediaID, userID string, stars int, comment string) (models.Rating, bool, error) {
	if !models.ValidStars(stars) {
		return models.Rating{}, false, fmt.Errorf("stars must be between 1 and 5, got %d", stars)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Media[mediaID]; !ok {
		return models.Rating{}, false, ErrNotFound
	}
	if _, ok := s.data.Users[userID]; !ok {
		return models.Rating{}, false, fmt.Errorf("user %s not found", userID)
	}

	updated := cloneDataset(s.data)
	now := s.clock()

	for id, existing := range updated.Ratings {
		if existing.MediaID == mediaID && existing.UserID == userID {
			existing.Stars = stars
			existing.Comment = comment
			existing.Confirmed = false
			existing.UpdatedAt = &now
			updated.Ratings[id] = existing
			if err := s.persistDataset(updated); err != nil {
				return models.Rating{}, false, err
			}
			s.data = updated
			return existing, false, nil
		}
	}

	rating := models.Rating{
		ID:        newID(),
		MediaID:   mediaID,
		UserID:    userID,
		Stars:     stars,
		Comment:   comment,
		CreatedAt: now,
	}
	updated.Ratings[rating.ID] = rating
	if err := s.persistDataset(updated); err != nil {
		return models.Rating{}, false, err
	}
	s.data = updated
	return rating, true, nil
}

// GetRating returns the rating with the provided ID, with its like count
// populated.
func (s *Storage) GetRating(id string) (models.Rating, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rating, ok := s.data.Ratings[id]
	if !ok {
		return models.Rating{}, false
	}
	rating.LikeCount = len(s.data.RatingLikes[id])
	return rating, true
}

// ListRatings returns the ratings for a media entry, newest first. When
// confirmedOnly is set, ratings with unconfirmed comments are skipped.
func (s *Storage) ListRatings(mediaID string, confirmedOnly bool) []models.Rating {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ratings := make([]models.Rating, 0)
	for id, rating := range s.data.Ratings {
		if rating.MediaID != mediaID {
			continue
		}
		if confirmedOnly && rating.Comment != "" && !rating.Confirmed {
			continue
		}
		rating.LikeCount = len(s.data.RatingLikes[id])
		ratings = append(ratings, rating)
	}
	sortRatingsNewestFirst(ratings)
	return ratings
}

// ListRatingsByUser returns the ratings created by the provided account,
// newest first.
func (s *Storage) ListRatingsByUser(userID string) []models.Rating {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ratings := make([]models.Rating, 0)
	for id, rating := range s.data.Ratings {
		if rating.UserID != userID {
			continue
		}
		rating.LikeCount = len(s.data.RatingLikes[id])
		ratings = append(ratings, rating)
	}
	sortRatingsNewestFirst(ratings)
	return ratings
}

// ListPendingRatings returns every rating with an unconfirmed comment,
// oldest first so moderators work through the backlog in order.
func (s *Storage) ListPendingRatings() []models.Rating {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ratings := make([]models.Rating, 0)
	for id, rating := range s.data.Ratings {
		if rating.Comment == "" || rating.Confirmed {
			continue
		}
		rating.LikeCount = len(s.data.RatingLikes[id])
		ratings = append(ratings, rating)
	}
	sort.Slice(ratings, func(i, j int) bool {
		return ratings[i].CreatedAt.Before(ratings[j].CreatedAt)
	})
	return ratings
}

// DeleteRating removes the rating and its likes.
func (s *Storage) DeleteRating(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Ratings[id]; !ok {
		return ErrNotFound
	}
	updated := cloneDataset(s.data)
	delete(updated.Ratings, id)
	delete(updated.RatingLikes, id)
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

// LikeRating records that the user likes the rating. Liking twice is a
// no-op; liking one's own rating is rejected.
func (s *Storage) LikeRating(ratingID, userID string) (models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rating, ok := s.data.Ratings[ratingID]
	if !ok {
		return models.Rating{}, ErrNotFound
	}
	if rating.UserID == userID {
		return models.Rating{}, ErrOwnRating
	}

	updated := cloneDataset(s.data)
	likes := updated.RatingLikes[ratingID]
	if likes == nil {
		likes = make(map[string]time.Time)
		updated.RatingLikes[ratingID] = likes
	}
	likes[userID] = s.clock()
	if err := s.persistDataset(updated); err != nil {
		return models.Rating{}, err
	}
	s.data = updated
	rating.LikeCount = len(likes)
	return rating, nil
}

// UnlikeRating removes the user's like from the rating. Removing an absent
// like is a no-op.
func (s *Storage) UnlikeRating(ratingID, userID string) (models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rating, ok := s.data.Ratings[ratingID]
	if !ok {
		return models.Rating{}, ErrNotFound
	}

	updated := cloneDataset(s.data)
	if likes := updated.RatingLikes[ratingID]; likes != nil {
		delete(likes, userID)
		if len(likes) == 0 {
			delete(updated.RatingLikes, ratingID)
		}
	}
	if err := s.persistDataset(updated); err != nil {
		return models.Rating{}, err
	}
	s.data = updated
	rating.LikeCount = len(s.data.RatingLikes[ratingID])
	return rating, nil
}

// ConfirmRating marks the rating's comment as reviewed and publicly visible.
func (s *Storage) ConfirmRating(id string) (models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rating, ok := s.data.Ratings[id]
	if !ok {
		return models.Rating{}, ErrNotFound
	}
	rating.Confirmed = true

	updated := cloneDataset(s.data)
	updated.Ratings[id] = rating
	if err := s.persistDataset(updated); err != nil {
		return models.Rating{}, err
	}
	s.data = updated
	rating.LikeCount = len(s.data.RatingLikes[id])
	return rating, nil
}

// RatingSummary returns the average star value and count of confirmed-or-
// commentless ratings for a media entry.
func (s *Storage) RatingSummary(mediaID string) (float64, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ratingSummaryLocked(mediaID)
}

func (s *Storage) ratingSummaryLocked(mediaID string) (float64, int) {
	total := 0
	count := 0
	for _, rating := range s.data.Ratings {
		if rating.MediaID != mediaID {
			continue
		}
		if rating.Comment != "" && !rating.Confirmed {
			continue
		}
		total += rating.Stars
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return float64(total) / float64(count), count
}

func sortRatingsNewestFirst(ratings []models.Rating) {
	sort.Slice(ratings, func(i, j int) bool {
		if ratings[i].CreatedAt.Equal(ratings[j].CreatedAt) {
			return ratings[i].ID < ratings[j].ID
		}
		return ratings[i].CreatedAt.After(ratings[j].CreatedAt)
	})
}
