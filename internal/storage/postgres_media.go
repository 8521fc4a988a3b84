package storage

import (
	"errors"
	"fmt"
	"strings"

	"mediareview/internal/models"

	"github.com/jackc/pgx/v5"
)

const mediaColumns = "id, title, media_type, genre, release_year, age_restriction, description, creator_id, created_at, updated_at"

func scanMedia(row pgx.Row) (models.MediaEntry, error) {
	var entry models.MediaEntry
	err := row.Scan(&entry.ID, &entry.Title, &entry.MediaType, &entry.Genre, &entry.ReleaseYear,
		&entry.AgeRestriction, &entry.Description, &entry.CreatorID, &entry.CreatedAt, &entry.UpdatedAt)
	return entry, err
}

func (r *postgresRepository) collectMedia(query string, args ...interface{}) []models.MediaEntry {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil
	}
	defer rows.Close()
	entries := make([]models.MediaEntry, 0)
	for rows.Next() {
		entry, err := scanMedia(rows)
		if err != nil {
			return nil
		}
		entries = append(entries, entry)
	}
	return entries
}

func (r *postgresRepository) CreateMedia(params CreateMediaParams) (models.MediaEntry, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.MediaEntry{}, errors.New("title is required")
	}
	mediaType := strings.ToLower(strings.TrimSpace(params.MediaType))
	if !models.ValidMediaType(mediaType) {
		return models.MediaEntry{}, fmt.Errorf("unknown media type %q", params.MediaType)
	}
	if !models.ValidAgeRestriction(params.AgeRestriction) {
		return models.MediaEntry{}, fmt.Errorf("unknown age restriction %d", params.AgeRestriction)
	}
	if _, ok := r.GetUser(params.CreatorID); !ok {
		return models.MediaEntry{}, fmt.Errorf("creator %s not found", params.CreatorID)
	}
	entry := models.MediaEntry{
		ID:             newID(),
		Title:          title,
		MediaType:      mediaType,
		Genre:          strings.TrimSpace(params.Genre),
		ReleaseYear:    params.ReleaseYear,
		AgeRestriction: params.AgeRestriction,
		Description:    strings.TrimSpace(params.Description),
		CreatorID:      params.CreatorID,
		CreatedAt:      r.cfg.Clock(),
	}
	ctx, cancel := r.acquireCtx()
	defer cancel()
	_, err := r.pool.Exec(ctx, `
INSERT INTO media_entries (id, title, media_type, genre, release_year, age_restriction, description, creator_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, entry.ID, entry.Title, entry.MediaType, entry.Genre, entry.ReleaseYear, entry.AgeRestriction, entry.Description, entry.CreatorID, entry.CreatedAt)
	if err != nil {
		return models.MediaEntry{}, fmt.Errorf("insert media entry: %w", err)
	}
	return entry, nil
}

func (r *postgresRepository) GetMedia(id string) (models.MediaEntry, bool) {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	entry, err := scanMedia(r.pool.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media_entries WHERE id = $1`, id))
	if err != nil {
		return models.MediaEntry{}, false
	}
	return entry, true
}

func (r *postgresRepository) ListMedia(filter MediaFilter) []models.MediaEntry {
	var (
		clauses []string
		args    []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if title := strings.TrimSpace(filter.Title); title != "" {
		clauses = append(clauses, "title ILIKE "+arg("%"+title+"%"))
	}
	if mediaType := strings.ToLower(strings.TrimSpace(filter.MediaType)); mediaType != "" {
		clauses = append(clauses, "media_type = "+arg(mediaType))
	}
	if genre := strings.TrimSpace(filter.Genre); genre != "" {
		clauses = append(clauses, "genre ILIKE "+arg("%"+genre+"%"))
	}
	if filter.MinYear > 0 {
		clauses = append(clauses, "release_year >= "+arg(filter.MinYear))
	}
	if filter.MaxYear > 0 {
		clauses = append(clauses, "release_year <= "+arg(filter.MaxYear))
	}
	if filter.hasMaxAge {
		clauses = append(clauses, "age_restriction <= "+arg(filter.MaxAgeRestriction))
	}
	if filter.MinRating > 0 {
		// Entries with no public ratings pass the threshold, so the filter
		// only drops entries whose visible average falls below it.
		clauses = append(clauses, `id IN (
SELECT m.id FROM media_entries m
LEFT JOIN ratings r ON r.media_id = m.id AND (r.comment = '' OR r.confirmed)
GROUP BY m.id HAVING AVG(r.stars) >= `+arg(filter.MinRating)+` OR AVG(r.stars) IS NULL)`)
	}
	query := `SELECT ` + mediaColumns + ` FROM media_entries`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, title"
	return r.collectMedia(query, args...)
}

func (r *postgresRepository) ListMediaByCreator(creatorID string) []models.MediaEntry {
	return r.collectMedia(`SELECT `+mediaColumns+` FROM media_entries WHERE creator_id = $1 ORDER BY created_at DESC, title`, creatorID)
}

func (r *postgresRepository) UpdateMedia(id string, update MediaUpdate) (models.MediaEntry, error) {
	entry, ok := r.GetMedia(id)
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
		mediaType := strings.ToLower(strings.TrimSpace(*update.MediaType))
		if !models.ValidMediaType(mediaType) {
			return models.MediaEntry{}, fmt.Errorf("unknown media type %q", *update.MediaType)
		}
		entry.MediaType = mediaType
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
	now := r.cfg.Clock()
	entry.UpdatedAt = &now

	ctx, cancel := r.acquireCtx()
	defer cancel()
	_, err := r.pool.Exec(ctx, `
UPDATE media_entries
SET title = $2, media_type = $3, genre = $4, release_year = $5, age_restriction = $6, description = $7, updated_at = $8
WHERE id = $1
`, entry.ID, entry.Title, entry.MediaType, entry.Genre, entry.ReleaseYear, entry.AgeRestriction, entry.Description, nullableTime(entry.UpdatedAt))
	if err != nil {
		return models.MediaEntry{}, fmt.Errorf("update media entry: %w", err)
	}
	return entry, nil
}

func (r *postgresRepository) DeleteMedia(id string) error {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM media_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete media entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
