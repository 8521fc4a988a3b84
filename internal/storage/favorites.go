package storage

import (
	"fmt"
	"sort"
	"time"

	"mediareview/internal/models"
)

// AddFavorite marks the media entry as a favorite of the user. Adding an
// existing favorite is a no-op.
func (s *Storage) AddFavorite(userID, mediaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Media[mediaID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.data.Users[userID]; !ok {
		return fmt.Errorf("user %s not found", userID)
	}
	if _, ok := s.data.Favorites[userID][mediaID]; ok {
		return nil
	}

	updated := cloneDataset(s.data)
	favorites := updated.Favorites[userID]
	if favorites == nil {
		favorites = make(map[string]time.Time)
		updated.Favorites[userID] = favorites
	}
	favorites[mediaID] = s.clock()
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

// RemoveFavorite clears the favorite mark. Removing an absent favorite is a
// no-op.
func (s *Storage) RemoveFavorite(userID, mediaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Favorites[userID][mediaID]; !ok {
		return nil
	}

	updated := cloneDataset(s.data)
	favorites := updated.Favorites[userID]
	delete(favorites, mediaID)
	if len(favorites) == 0 {
		delete(updated.Favorites, userID)
	}
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

// ListFavorites returns the user's favorites, most recently added first.
func (s *Storage) ListFavorites(userID string) []models.Favorite {
	s.mu.RLock()
	defer s.mu.RUnlock()

	favorites := make([]models.Favorite, 0, len(s.data.Favorites[userID]))
	for mediaID, at := range s.data.Favorites[userID] {
		favorites = append(favorites, models.Favorite{UserID: userID, MediaID: mediaID, CreatedAt: at})
	}
	sort.Slice(favorites, func(i, j int) bool {
		if favorites[i].CreatedAt.Equal(favorites[j].CreatedAt) {
			return favorites[i].MediaID < favorites[j].MediaID
		}
		return favorites[i].CreatedAt.After(favorites[j].CreatedAt)
	})
	return favorites
}

// CountFavorites reports how many entries the user has favorited.
func (s *Storage) CountFavorites(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Favorites[userID])
}
