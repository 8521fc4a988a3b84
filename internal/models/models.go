package models

import (
	"strings"
	"time"
)

// User is a registered account. PasswordHash stores the encoded pbkdf2
// digest and is never returned to API clients.
type User struct {
	ID           string    `json:"id"`
	UserName     string    `json:"username"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MediaEntry is a catalog record that users rate and favorite.
type MediaEntry struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	MediaType      string     `json:"mediaType"`
	Genre          string     `json:"genre"`
	ReleaseYear    int        `json:"releaseYear"`
	AgeRestriction int        `json:"ageRestriction"`
	Description    string     `json:"description"`
	CreatorID      string     `json:"creatorId"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}

// Rating is a user's star verdict on a media entry. Comments stay hidden
// from public listings until an admin confirms them.
type Rating struct {
	ID        string     `json:"id"`
	MediaID   string     `json:"mediaId"`
	UserID    string     `json:"userId"`
	Stars     int        `json:"stars"`
	Comment   string     `json:"comment"`
	Confirmed bool       `json:"confirmed"`
	LikeCount int        `json:"likeCount"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Favorite marks a media entry as saved by a user.
type Favorite struct {
	UserID    string    `json:"userId"`
	MediaID   string    `json:"mediaId"`
	CreatedAt time.Time `json:"createdAt"`
}

// MediaTypes enumerates the accepted media categories.
var MediaTypes = []string{"movie", "tv_show", "game", "book"}

// AgeRestrictions enumerates the accepted age brackets.
var AgeRestrictions = []int{0, 6, 12, 16, 18}

// ValidMediaType reports whether the provided media type is accepted,
// ignoring case.
func ValidMediaType(mediaType string) bool {
	for _, known := range MediaTypes {
		if strings.EqualFold(known, mediaType) {
			return true
		}
	}
	return false
}

// ValidAgeRestriction reports whether the provided bracket is accepted.
func ValidAgeRestriction(age int) bool {
	for _, known := range AgeRestrictions {
		if age == known {
			return true
		}
	}
	return false
}

// ValidStars reports whether the star value is within the 1..5 scale.
func ValidStars(stars int) bool {
	return stars >= 1 && stars <= 5
}
