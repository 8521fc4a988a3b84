package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"mediareview/internal/models"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

type dataset struct {
	Users       map[string]models.User          `json:"users"`
	Media       map[string]models.MediaEntry    `json:"media"`
	Ratings     map[string]models.Rating        `json:"ratings"`
	RatingLikes map[string]map[string]time.Time `json:"ratingLikes"`
	Favorites   map[string]map[string]time.Time `json:"favorites"`
}

func newDataset() dataset {
	return dataset{
		Users:       make(map[string]models.User),
		Media:       make(map[string]models.MediaEntry),
		Ratings:     make(map[string]models.Rating),
		RatingLikes: make(map[string]map[string]time.Time),
		Favorites:   make(map[string]map[string]time.Time),
	}
}

// Storage keeps the dataset in memory and optionally persists every mutation
// as a JSON snapshot. Mutations clone the dataset, persist the clone, then
// swap it in, so concurrent readers never observe a half-applied change.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	clock    func() time.Time
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

// NewStorage constructs a Storage backed by the JSON file at path. An empty
// path keeps the dataset purely in memory.
func NewStorage(path string, opts ...Option) (*Storage, error) {
	s := &Storage{
		filePath: path,
		data:     newDataset(),
		clock:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyJSON(s)
		}
	}
	if path != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Storage) load() error {
	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read datastore: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	var data dataset
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decode datastore: %w", err)
	}
	merged := newDataset()
	for id, user := range data.Users {
		merged.Users[id] = user
	}
	for id, entry := range data.Media {
		merged.Media[id] = entry
	}
	for id, rating := range data.Ratings {
		merged.Ratings[id] = rating
	}
	for id, likes := range data.RatingLikes {
		merged.RatingLikes[id] = likes
	}
	for id, favorites := range data.Favorites {
		merged.Favorites[id] = favorites
	}
	s.data = merged
	return nil
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		return s.persistOverride(data)
	}
	if s.filePath == "" {
		return nil
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode datastore: %w", err)
	}
	dir := filepath.Dir(s.filePath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create datastore directory: %w", err)
		}
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write datastore: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("replace datastore: %w", err)
	}
	return nil
}

func cloneDataset(data dataset) dataset {
	cloned := newDataset()
	for id, user := range data.Users {
		cloned.Users[id] = user
	}
	for id, entry := range data.Media {
		cloned.Media[id] = entry
	}
	for id, rating := range data.Ratings {
		cloned.Ratings[id] = rating
	}
	for id, likes := range data.RatingLikes {
		inner := make(map[string]time.Time, len(likes))
		for userID, at := range likes {
			inner[userID] = at
		}
		cloned.RatingLikes[id] = inner
	}
	for userID, favorites := range data.Favorites {
		inner := make(map[string]time.Time, len(favorites))
		for mediaID, at := range favorites {
			inner[mediaID] = at
		}
		cloned.Favorites[userID] = inner
	}
	return cloned
}

// Ping reports datastore health. The in-memory store is healthy whenever the
// process is running.
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// CreateUserParams carries the fields required to register an account.
type CreateUserParams struct {
	UserName string
	FullName string
	Email    string
	Password string
}

// CreateUser registers a new account. The account named "admin" is granted
// the admin flag at creation.
func (s *Storage) CreateUser(params CreateUserParams) (models.User, error) {
	username := strings.TrimSpace(params.UserName)
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	if len(params.Password) < 8 {
		return models.User{}, errors.New("password must be at least 8 characters")
	}
	hashed, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	id := newID()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data.Users {
		if strings.EqualFold(existing.UserName, username) {
			return models.User{}, fmt.Errorf("username %s is taken", username)
		}
	}

	user := models.User{
		ID:           id,
		UserName:     username,
		FullName:     strings.TrimSpace(params.FullName),
		Email:        strings.TrimSpace(params.Email),
		PasswordHash: hashed,
		IsAdmin:      strings.EqualFold(username, "admin"),
		CreatedAt:    s.clock(),
	}

	updated := cloneDataset(s.data)
	updated.Users[id] = user
	if err := s.persistDataset(updated); err != nil {
		return models.User{}, err
	}
	s.data = updated
	return user, nil
}

// GetUser returns the account with the provided ID.
func (s *Storage) GetUser(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	return user, ok
}

// GetUserByName returns the account with the provided username, ignoring case.
func (s *Storage) GetUserByName(username string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findUserByNameLocked(username)
}

func (s *Storage) findUserByNameLocked(username string) (models.User, bool) {
	for _, user := range s.data.Users {
		if strings.EqualFold(user.UserName, username) {
			return user, true
		}
	}
	return models.User{}, false
}

// ListUsers returns every account sorted by creation time.
func (s *Storage) ListUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.data.Users))
	for _, user := range s.data.Users {
		users = append(users, user)
	}
	sortUsers(users)
	return users
}

// SetUserAdmin grants or revokes the admin flag for the named account.
func (s *Storage) SetUserAdmin(username string, admin bool) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.findUserByNameLocked(username)
	if !ok {
		return models.User{}, ErrNotFound
	}
	user.IsAdmin = admin

	updated := cloneDataset(s.data)
	updated.Users[user.ID] = user
	if err := s.persistDataset(updated); err != nil {
		return models.User{}, err
	}
	s.data = updated
	return user, nil
}

// SetUserPassword replaces the stored password hash for the provided account.
func (s *Storage) SetUserPassword(id, password string) (models.User, error) {
	if len(password) < 8 {
		return models.User{}, errors.New("password must be at least 8 characters")
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	user.PasswordHash = hashed

	updated := cloneDataset(s.data)
	updated.Users[id] = user
	if err := s.persistDataset(updated); err != nil {
		return models.User{}, err
	}
	s.data = updated
	return user, nil
}

func sortUsers(users []models.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].UserName < users[j].UserName
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
}
