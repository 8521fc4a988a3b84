package storage

import (
	"errors"
	"fmt"

	"mediareview/internal/models"

	"github.com/jackc/pgx/v5"
)

const ratingColumns = `r.id, r.media_id, r.user_id, r.stars, r.comment, r.confirmed, r.created_at, r.updated_at,
	(SELECT COUNT(*) FROM rating_likes rl WHERE rl.rating_id = r.id)`

func scanRating(row pgx.Row) (models.Rating, error) {
	var rating models.Rating
	err := row.Scan(&rating.ID, &rating.MediaID, &rating.UserID, &rating.Stars, &rating.Comment,
		&rating.Confirmed, &rating.CreatedAt, &rating.UpdatedAt, &rating.LikeCount)
	return rating, err
}

func (r *postgresRepository) collectRatings(query string, args ...interface{}) []models.Rating {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil
	}
	defer rows.Close()
	ratings := make([]models.Rating, 0)
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil
		}
		ratings = append(ratings, rating)
	}
	return ratings
}

func (r *postgresRepository) UpsertRating(mediaID, userID string, stars int, comment string) (models.Rating, bool, error) {
	if !models.ValidStars(stars) {
		return models.Rating{}, false, fmt.Errorf("stars must be between 1 and 5, got %d", stars)
	}
	if _, ok := r.GetMedia(mediaID); !ok {
		return models.Rating{}, false, ErrNotFound
	}
	if _, ok := r.GetUser(userID); !ok {
		return models.Rating{}, false, fmt.Errorf("user %s not found", userID)
	}

	now := r.cfg.Clock()
	ctx, cancel := r.acquireCtx()
	defer cancel()

	rating, err := scanRating(r.pool.QueryRow(ctx, `
UPDATE ratings r SET stars = $3, comment = $4, confirmed = FALSE, updated_at = $5
WHERE r.media_id = $1 AND r.user_id = $2
RETURNING `+ratingColumns, mediaID, userID, stars, comment, now))
	if err == nil {
		return rating, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Rating{}, false, fmt.Errorf("update rating: %w", err)
	}

	rating = models.Rating{
		ID:        newID(),
		MediaID:   mediaID,
		UserID:    userID,
		Stars:     stars,
		Comment:   comment,
		CreatedAt: now,
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO ratings (id, media_id, user_id, stars, comment, confirmed, created_at)
VALUES ($1, $2, $3, $4, $5, FALSE, $6)
`, rating.ID, rating.MediaID, rating.UserID, rating.Stars, rating.Comment, rating.CreatedAt)
	if err != nil {
		return models.Rating{}, false, fmt.Errorf("insert rating: %w", err)
	}
	return rating, true, nil
}

func (r *postgresRepository) GetRating(id string) (models.Rating, bool) {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	rating, err := scanRating(r.pool.QueryRow(ctx, `SELECT `+ratingColumns+` FROM ratings r WHERE r.id = $1`, id))
	if err != nil {
		return models.Rating{}, false
	}
	return rating, true
}

func (r *postgresRepository) ListRatings(mediaID string, confirmedOnly bool) []models.Rating {
	query := `SELECT ` + ratingColumns + ` FROM ratings r WHERE r.media_id = $1`
	if confirmedOnly {
		query += ` AND (r.comment = '' OR r.confirmed)`
	}
	query += ` ORDER BY r.created_at DESC, r.id`
	return r.collectRatings(query, mediaID)
}

func (r *postgresRepository) ListRatingsByUser(userID string) []models.Rating {
	return r.collectRatings(`SELECT `+ratingColumns+` FROM ratings r WHERE r.user_id = $1 ORDER BY r.created_at DESC, r.id`, userID)
}

func (r *postgresRepository) ListPendingRatings() []models.Rating {
	return r.collectRatings(`SELECT ` + ratingColumns + ` FROM ratings r WHERE r.comment <> '' AND NOT r.confirmed ORDER BY r.created_at, r.id`)
}

func (r *postgresRepository) DeleteRating(id string) error {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM ratings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) LikeRating(ratingID, userID string) (models.Rating, error) {
	rating, ok := r.GetRating(ratingID)
	if !ok {
		return models.Rating{}, ErrNotFound
	}
	if rating.UserID == userID {
		return models.Rating{}, ErrOwnRating
	}
	ctx, cancel := r.acquireCtx()
	defer cancel()
	_, err := r.pool.Exec(ctx, `
INSERT INTO rating_likes (rating_id, user_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (rating_id, user_id) DO NOTHING
`, ratingID, userID, r.cfg.Clock())
	if err != nil {
		return models.Rating{}, fmt.Errorf("like rating: %w", err)
	}
	rating, _ = r.GetRating(ratingID)
	return rating, nil
}

func (r *postgresRepository) UnlikeRating(ratingID, userID string) (models.Rating, error) {
	if _, ok := r.GetRating(ratingID); !ok {
		return models.Rating{}, ErrNotFound
	}
	ctx, cancel := r.acquireCtx()
	defer cancel()
	_, err := r.pool.Exec(ctx, `DELETE FROM rating_likes WHERE rating_id = $1 AND user_id = $2`, ratingID, userID)
	if err != nil {
		return models.Rating{}, fmt.Errorf("unlike rating: %w", err)
	}
	rating, _ := r.GetRating(ratingID)
	return rating, nil
}

func (r *postgresRepository) ConfirmRating(id string) (models.Rating, error) {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	rating, err := scanRating(r.pool.QueryRow(ctx, `
UPDATE ratings r SET confirmed = TRUE WHERE r.id = $1
RETURNING `+ratingColumns, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Rating{}, ErrNotFound
		}
		return models.Rating{}, fmt.Errorf("confirm rating: %w", err)
	}
	return rating, nil
}

func (r *postgresRepository) RatingSummary(mediaID string) (float64, int) {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	var (
		average float64
		count   int
	)
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(AVG(stars), 0), COUNT(*) FROM ratings
WHERE media_id = $1 AND (comment = '' OR confirmed)
`, mediaID).Scan(&average, &count)
	if err != nil {
		return 0, 0
	}
	return average, count
}
