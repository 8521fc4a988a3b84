package storage

import (
	"fmt"

	"mediareview/internal/models"
)

func (r *postgresRepository) AddFavorite(userID, mediaID string) error {
	if _, ok := r.GetMedia(mediaID); !ok {
		return ErrNotFound
	}
	if _, ok := r.GetUser(userID); !ok {
		return fmt.Errorf("user %s not found", userID)
	}
	ctx, cancel := r.acquireCtx()
	defer cancel()
	_, err := r.pool.Exec(ctx, `
INSERT INTO favorites (user_id, media_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, media_id) DO NOTHING
`, userID, mediaID, r.cfg.Clock())
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (r *postgresRepository) RemoveFavorite(userID, mediaID string) error {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	_, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND media_id = $2`, userID, mediaID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListFavorites(userID string) []models.Favorite {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	rows, err := r.pool.Query(ctx, `
SELECT user_id, media_id, created_at FROM favorites
WHERE user_id = $1
ORDER BY created_at DESC, media_id
`, userID)
	if err != nil {
		return nil
	}
	defer rows.Close()
	favorites := make([]models.Favorite, 0)
	for rows.Next() {
		var fav models.Favorite
		if err := rows.Scan(&fav.UserID, &fav.MediaID, &fav.CreatedAt); err != nil {
			return nil
		}
		favorites = append(favorites, fav)
	}
	return favorites
}

func (r *postgresRepository) CountFavorites(userID string) int {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM favorites WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0
	}
	return count
}
