package storage

import (
	"context"

	"mediareview/internal/auth"
	"mediareview/internal/models"
)

// Repository exposes the datastore operations required by the API handlers
// and the admin tooling. Both the JSON-backed memory store and the Postgres
// store satisfy it.
type Repository interface {
	Ping(ctx context.Context) error

	auth.CredentialVerifier
	AuthenticateUser(username, password string) (models.User, error)

	CreateUser(params CreateUserParams) (models.User, error)
	GetUser(id string) (models.User, bool)
	GetUserByName(username string) (models.User, bool)
	ListUsers() []models.User
	SetUserAdmin(username string, admin bool) (models.User, error)
	SetUserPassword(id, password string) (models.User, error)

	CreateMedia(params CreateMediaParams) (models.MediaEntry, error)
	GetMedia(id string) (models.MediaEntry, bool)
	ListMedia(filter MediaFilter) []models.MediaEntry
	ListMediaByCreator(userID string) []models.MediaEntry
	UpdateMedia(id string, update MediaUpdate) (models.MediaEntry, error)
	DeleteMedia(id string) error

	UpsertRating(mediaID, userID string, stars int, comment string) (models.Rating, bool, error)
	GetRating(id string) (models.Rating, bool)
	ListRatings(mediaID string, confirmedOnly bool) []models.Rating
	ListRatingsByUser(userID string) []models.Rating
	ListPendingRatings() []models.Rating
	DeleteRating(id string) error
	LikeRating(ratingID, userID string) (models.Rating, error)
	UnlikeRating(ratingID, userID string) (models.Rating, error)
	ConfirmRating(id string) (models.Rating, error)
	RatingSummary(mediaID string) (float64, int)

	AddFavorite(userID, mediaID string) error
	RemoveFavorite(userID, mediaID string) error
	ListFavorites(userID string) []models.Favorite
	CountFavorites(userID string) int

	TopMedia(limit int) []MediaRanking
	TopRaters(limit int) []RaterRanking
	RecommendFor(userID string, limit int) []Recommendation
	StatsFor(userID string) ProfileStats
}

var _ Repository = (*Storage)(nil)
