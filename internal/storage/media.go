package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"mediareview/internal/models"
)

// CreateMediaParams carries the fields required to add a catalog entry.
type CreateMediaParams struct {
	Title          string
	MediaType      string
	Genre          string
	ReleaseYear    int
	AgeRestriction int
	Description    string
	CreatorID      string
}

// MediaUpdate applies partial changes to a catalog entry. Nil fields are
// left untouched.
type MediaUpdate struct {
	Title          *string
	MediaType      *string
	Genre          *string
	ReleaseYear    *int
	AgeRestriction *int
	Description    *string
}

// MediaFilter narrows ListMedia results. Zero values disable a criterion.
type MediaFilter struct {
	Title             string
	MediaType         string
	Genre             string
	MinYear           int
	MaxYear           int
	MaxAgeRestriction int
	MinRating         float64

	hasMaxAge bool
}

// WithMaxAgeRestriction enables the age criterion, which is meaningful even
// at bracket zero.
func (f MediaFilter) WithMaxAgeRestriction(age int) MediaFilter {
	f.MaxAgeRestriction = age
	f.hasMaxAge = true
	return f
}

// CreateMedia adds a catalog entry.
func (s *Storage) CreateMedia(params CreateMediaParams) (models.MediaEntry, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.MediaEntry{}, errors.New("title is required")
	}
	if !models.ValidMediaType(params.MediaType) {
		return models.MediaEntry{}, fmt.Errorf("unknown media type %q", params.MediaType)
	}
	if !models.ValidAgeRestriction(params.AgeRestriction) {
		return models.MediaEntry{}, fmt.Errorf("unknown age restriction %d", params.AgeRestriction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[params.CreatorID]; !ok {
		return models.MediaEntry{}, fmt.Errorf("creator %s not found", params.CreatorID)
	}

	entry := models.MediaEntry{
		ID:             newID(),
		Title:          title,
		MediaType:      strings.ToLower(params.MediaType),
		Genre:          strings.TrimSpace(params.Genre),
		ReleaseYear:    params.ReleaseYear,
		AgeRestriction: params.AgeRestriction,
		Description:    strings.TrimSpace(params.Description),
		CreatorID:      params.CreatorID,
		CreatedAt:      s.clock(),
	}

	updated := cloneDataset(s.data)
	updated.Media[entry.ID] = entry
	if err := s.persistDataset(updated); err != nil {
		return models.MediaEntry{}, err
	}
	s.data = updated
	return entry, nil
}

// GetMedia returns the catalog entry with the provided ID.
func (s *Storage) GetMedia(id string) (models.MediaEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.data.Media[id]
	return entry, ok
}

// ListMedia returns catalog entries matching the filter, newest first.
func (s *Storage) ListMedia(filter MediaFilter) []models.MediaEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.MediaEntry, 0, len(s.data.Media))
	for _, entry := range s.data.Media {
		if !matchesFilter(entry, filter) {
			continue
		}
		if filter.MinRating > 0 {
			avg, count := s.ratingSummaryLocked(entry.ID)
			if count > 0 && avg < filter.MinRating {
				continue
			}
		}
		entries = append(entries, entry)
	}
	sortMediaNewestFirst(entries)
	return entries
}

// ListMediaByCreator returns the entries created by the provided account,
// newest first.
func (s *Storage) ListMediaByCreator(userID string) []models.MediaEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.MediaEntry, 0)
	for _, entry := range s.data.Media {
		if entry.CreatorID == userID {
			entries = append(entries, entry)
		}
	}
	sortMediaNewestFirst(entries)
	return entries
}

// UpdateMedia applies the update to the catalog entry with the provided ID.
func (s *Storage) UpdateMedia(id string, update MediaUpdate) (models.MediaEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data.Media[id]
	if !ok {
		return models.MediaEntry{}, ErrNotFound
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.MediaEntry{}, errors.New("title is required")
		}
		entry.Title = title
	}
	if update.MediaType != nil {
		if !models.ValidMediaType(*update.MediaType) {
			return models.MediaEntry{}, fmt.Errorf("unknown media type %q", *update.MediaType)
		}
		entry.MediaType = strings.ToLower(*update.MediaType)
	}
	if update.Genre != nil {
		entry.Genre = strings.TrimSpace(*update.Genre)
	}
	if update.ReleaseYear != nil {
		entry.ReleaseYear = *update.ReleaseYear
	}
	if update.AgeRestriction != nil {
		if !models.ValidAgeRestriction(*update.AgeRestriction) {
			return models.MediaEntry{}, fmt.Errorf("unknown age restriction %d", *update.AgeRestriction)
		}
		entry.AgeRestriction = *update.AgeRestriction
	}
	if update.Description != nil {
		entry.Description = strings.TrimSpace(*update.Description)
	}
	now := s.clock()
	entry.UpdatedAt = &now

	updated := cloneDataset(s.data)
	updated.Media[id] = entry
	if err := s.persistDataset(updated); err != nil {
		return models.MediaEntry{}, err
	}
	s.data = updated
	return entry, nil
}

// DeleteMedia removes the catalog entry along with its ratings and favorite
// references.
func (s *Storage) DeleteMedia(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Media[id]; !ok {
		return ErrNotFound
	}

	updated := cloneDataset(s.data)
	delete(updated.Media, id)
	for ratingID, rating := range updated.Ratings {
		if rating.MediaID == id {
			delete(updated.Ratings, ratingID)
			delete(updated.RatingLikes, ratingID)
		}
	}
	for userID, favorites := range updated.Favorites {
		delete(favorites, id)
		if len(favorites) == 0 {
			delete(updated.Favorites, userID)
		}
	}
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

func matchesFilter(entry models.MediaEntry, filter MediaFilter) bool {
	if filter.Title != "" && !strings.Contains(strings.ToLower(entry.Title), strings.ToLower(filter.Title)) {
		return false
	}
	if filter.MediaType != "" && !strings.EqualFold(entry.MediaType, filter.MediaType) {
		return false
	}
	if filter.Genre != "" && !strings.Contains(strings.ToLower(entry.Genre), strings.ToLower(filter.Genre)) {
		return false
	}
	if filter.MinYear > 0 && entry.ReleaseYear < filter.MinYear {
		return false
	}
	if filter.MaxYear > 0 && entry.ReleaseYear > filter.MaxYear {
		return false
	}
	if filter.hasMaxAge && entry.AgeRestriction > filter.MaxAgeRestriction {
		return false
	}
	return true
}

func sortMediaNewestFirst(entries []models.MediaEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].Title < entries[j].Title
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}
