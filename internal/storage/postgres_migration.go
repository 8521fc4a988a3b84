package storage

import (
	"context"
	"fmt"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	full_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_username_lower_idx ON users (LOWER(username))`,
	`CREATE TABLE IF NOT EXISTS media_entries (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	media_type TEXT NOT NULL,
	genre TEXT NOT NULL DEFAULT '',
	release_year INTEGER NOT NULL DEFAULT 0,
	age_restriction INTEGER NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	creator_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ
)`,
	`CREATE INDEX IF NOT EXISTS media_entries_creator_idx ON media_entries (creator_id)`,
	`CREATE TABLE IF NOT EXISTS ratings (
	id TEXT PRIMARY KEY,
	media_id TEXT NOT NULL REFERENCES media_entries (id) ON DELETE CASCADE,
	user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	stars INTEGER NOT NULL,
	comment TEXT NOT NULL DEFAULT '',
	confirmed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ,
	UNIQUE (media_id, user_id)
)`,
	`CREATE INDEX IF NOT EXISTS ratings_user_idx ON ratings (user_id)`,
	`CREATE TABLE IF NOT EXISTS rating_likes (
	rating_id TEXT NOT NULL REFERENCES ratings (id) ON DELETE CASCADE,
	user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (rating_id, user_id)
)`,
	`CREATE TABLE IF NOT EXISTS favorites (
	user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	media_id TEXT NOT NULL REFERENCES media_entries (id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, media_id)
)`,
}

func (r *postgresRepository) migrate(ctx context.Context) error {
	for _, stmt := range migrationStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// SnapshotImporter is satisfied by repositories that can ingest a JSON
// dataset snapshot, used by the migration tool.
type SnapshotImporter interface {
	ImportSnapshot(ctx context.Context, snapshot Snapshot) error
}

// ImportSnapshot loads a JSON dataset snapshot into Postgres within a single
// transaction. Existing rows with matching keys are left untouched so the
// import can be re-run.
func (r *postgresRepository) ImportSnapshot(ctx context.Context, snapshot Snapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, user := range snapshot.Users {
		_, err := tx.Exec(ctx, `
INSERT INTO users (id, username, full_name, email, password_hash, is_admin, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING
`, user.ID, user.UserName, user.FullName, user.Email, user.PasswordHash, user.IsAdmin, user.CreatedAt)
		if err != nil {
			return fmt.Errorf("import user %s: %w", user.ID, err)
		}
	}
	for _, entry := range snapshot.Media {
		_, err := tx.Exec(ctx, `
INSERT INTO media_entries (id, title, media_type, genre, release_year, age_restriction, description, creator_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING
`, entry.ID, entry.Title, entry.MediaType, entry.Genre, entry.ReleaseYear, entry.AgeRestriction,
			entry.Description, entry.CreatorID, entry.CreatedAt, nullableTime(entry.UpdatedAt))
		if err != nil {
			return fmt.Errorf("import media entry %s: %w", entry.ID, err)
		}
	}
	for _, rating := range snapshot.Ratings {
		_, err := tx.Exec(ctx, `
INSERT INTO ratings (id, media_id, user_id, stars, comment, confirmed, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING
`, rating.ID, rating.MediaID, rating.UserID, rating.Stars, rating.Comment, rating.Confirmed,
			rating.CreatedAt, nullableTime(rating.UpdatedAt))
		if err != nil {
			return fmt.Errorf("import rating %s: %w", rating.ID, err)
		}
	}
	for ratingID, likes := range snapshot.RatingLikes {
		for userID, at := range likes {
			_, err := tx.Exec(ctx, `
INSERT INTO rating_likes (rating_id, user_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (rating_id, user_id) DO NOTHING
`, ratingID, userID, at)
			if err != nil {
				return fmt.Errorf("import like on rating %s: %w", ratingID, err)
			}
		}
	}
	for userID, favorites := range snapshot.Favorites {
		for mediaID, at := range favorites {
			_, err := tx.Exec(ctx, `
INSERT INTO favorites (user_id, media_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, media_id) DO NOTHING
`, userID, mediaID, at)
			if err != nil {
				return fmt.Errorf("import favorite for user %s: %w", userID, err)
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

var _ Repository = (*postgresRepository)(nil)
