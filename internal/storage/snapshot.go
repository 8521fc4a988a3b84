package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"mediareview/internal/models"
)

// Snapshot captures a complete JSON-serialisable view of the datastore so it
// can be persisted and later replayed into another backing store.
type Snapshot struct {
	Users       map[string]models.User          `json:"users"`
	Media       map[string]models.MediaEntry    `json:"media"`
	Ratings     map[string]models.Rating        `json:"ratings"`
	RatingLikes map[string]map[string]time.Time `json:"ratingLikes"`
	Favorites   map[string]map[string]time.Time `json:"favorites"`
}

// Counts summarises the snapshot's collection sizes for operator output.
func (s *Snapshot) Counts() map[string]int {
	likes := 0
	for _, byUser := range s.RatingLikes {
		likes += len(byUser)
	}
	favorites := 0
	for _, byMedia := range s.Favorites {
		favorites += len(byMedia)
	}
	return map[string]int{
		"users":     len(s.Users),
		"media":     len(s.Media),
		"ratings":   len(s.Ratings),
		"likes":     likes,
		"favorites": favorites,
	}
}

// ExportSnapshot copies the current dataset into a Snapshot.
func (s *Storage) ExportSnapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := cloneDataset(s.data)
	return &Snapshot{
		Users:       data.Users,
		Media:       data.Media,
		Ratings:     data.Ratings,
		RatingLikes: data.RatingLikes,
		Favorites:   data.Favorites,
	}
}

// LoadSnapshotFile reads a snapshot from a JSON datastore file.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snapshot.Users == nil {
		snapshot.Users = make(map[string]models.User)
	}
	if snapshot.Media == nil {
		snapshot.Media = make(map[string]models.MediaEntry)
	}
	if snapshot.Ratings == nil {
		snapshot.Ratings = make(map[string]models.Rating)
	}
	if snapshot.RatingLikes == nil {
		snapshot.RatingLikes = make(map[string]map[string]time.Time)
	}
	if snapshot.Favorites == nil {
		snapshot.Favorites = make(map[string]map[string]time.Time)
	}
	return &snapshot, nil
}
