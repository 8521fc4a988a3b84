package storage

func (r *postgresRepository) TopMedia(limit int) []MediaRanking {
	limit = clampLimit(limit, leaderboardMaxLimit)

	ctx, cancel := r.acquireCtx()
	defer cancel()
	rows, err := r.pool.Query(ctx, `
SELECT m.id, m.title, m.media_type, m.genre, m.release_year,
	AVG(rt.stars) AS average_rating, COUNT(*) AS rating_count
FROM media_entries m
JOIN ratings rt ON rt.media_id = m.id AND (rt.comment = '' OR rt.confirmed)
GROUP BY m.id, m.title, m.media_type, m.genre, m.release_year
HAVING COUNT(*) >= $1
ORDER BY average_rating DESC, rating_count DESC, m.title
LIMIT $2
`, leaderboardMinRatings, limit)
	if err != nil {
		return nil
	}
	defer rows.Close()

	rankings := make([]MediaRanking, 0)
	for rows.Next() {
		var row MediaRanking
		if err := rows.Scan(&row.MediaID, &row.Title, &row.MediaType, &row.Genre, &row.ReleaseYear,
			&row.AverageRating, &row.RatingCount); err != nil {
			return nil
		}
		row.AverageRating = round2(row.AverageRating)
		row.Rank = len(rankings) + 1
		rankings = append(rankings, row)
	}
	return rankings
}

func (r *postgresRepository) TopRaters(limit int) []RaterRanking {
	limit = clampLimit(limit, leaderboardMaxLimit)

	ctx, cancel := r.acquireCtx()
	defer cancel()
	rows, err := r.pool.Query(ctx, `
SELECT u.id, u.username, u.full_name,
	(SELECT COUNT(*) FROM ratings rt WHERE rt.user_id = u.id) AS total_ratings,
	(SELECT COUNT(*) FROM media_entries m WHERE m.creator_id = u.id) AS total_created,
	(SELECT COUNT(*) FROM rating_likes rl JOIN ratings rt ON rt.id = rl.rating_id WHERE rt.user_id = u.id) AS total_likes
FROM users u
WHERE EXISTS (SELECT 1 FROM ratings rt WHERE rt.user_id = u.id)
	OR EXISTS (SELECT 1 FROM media_entries m WHERE m.creator_id = u.id)
ORDER BY total_ratings + total_created * 2 DESC, u.username
LIMIT $1
`, limit)
	if err != nil {
		return nil
	}
	defer rows.Close()

	rankings := make([]RaterRanking, 0)
	for rows.Next() {
		var row RaterRanking
		if err := rows.Scan(&row.UserID, &row.UserName, &row.FullName,
			&row.TotalRatings, &row.TotalMediaCreated, &row.TotalLikesReceived); err != nil {
			return nil
		}
		row.Rank = len(rankings) + 1
		rankings = append(rankings, row)
	}
	return rankings
}

func (r *postgresRepository) RecommendFor(userID string, limit int) []Recommendation {
	limit = clampLimit(limit, recommendationMaxLimit)

	ctx, cancel := r.acquireCtx()
	defer cancel()
	rows, err := r.pool.Query(ctx, `
WITH preferred AS (
	SELECT DISTINCT m.genre, m.media_type
	FROM ratings rt
	JOIN media_entries m ON m.id = rt.media_id
	WHERE rt.user_id = $1 AND rt.stars >= $2
	UNION
	SELECT DISTINCT m.genre, m.media_type
	FROM favorites f
	JOIN media_entries m ON m.id = f.media_id
	WHERE f.user_id = $1
), seen AS (
	SELECT media_id FROM ratings WHERE user_id = $1
	UNION
	SELECT media_id FROM favorites WHERE user_id = $1
), rated AS (
	SELECT m.id, m.title, m.media_type, m.genre, m.release_year,
		AVG(rt.stars) AS average_rating, COUNT(*) AS rating_count
	FROM media_entries m
	JOIN ratings rt ON rt.media_id = m.id AND (rt.comment = '' OR rt.confirmed)
	WHERE m.id NOT IN (SELECT media_id FROM seen)
	GROUP BY m.id, m.title, m.media_type, m.genre, m.release_year
)
SELECT id, title, media_type, genre, release_year, average_rating, rating_count,
	CASE WHEN EXISTS (
		SELECT 1 FROM preferred p WHERE p.genre = rated.genre OR p.media_type = rated.media_type
	) THEN 2.0 ELSE 1.0 END AS multiplier
FROM rated
`, userID, preferenceStarThreshold)
	if err != nil {
		return nil
	}
	defer rows.Close()

	recommendations := make([]Recommendation, 0)
	for rows.Next() {
		var (
			rec        Recommendation
			avg        float64
			multiplier float64
		)
		if err := rows.Scan(&rec.MediaID, &rec.Title, &rec.MediaType, &rec.Genre, &rec.ReleaseYear,
			&avg, &rec.RatingCount, &multiplier); err != nil {
			return nil
		}
		rec.AverageRating = round2(avg)
		rec.Score = round2(avg*multiplier + float64(rec.RatingCount)*0.1)
		recommendations = append(recommendations, rec)
	}
	sortRecommendations(recommendations)
	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}
	return recommendations
}

func (r *postgresRepository) StatsFor(userID string) ProfileStats {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	var stats ProfileStats
	err := r.pool.QueryRow(ctx, `
SELECT
	(SELECT COUNT(*) FROM ratings WHERE user_id = $1),
	(SELECT COUNT(*) FROM media_entries WHERE creator_id = $1),
	(SELECT COUNT(*) FROM favorites WHERE user_id = $1),
	(SELECT COALESCE(AVG(stars), 0) FROM ratings WHERE user_id = $1),
	(SELECT COUNT(*) FROM rating_likes rl JOIN ratings rt ON rt.id = rl.rating_id WHERE rt.user_id = $1)
`, userID).Scan(&stats.TotalRatings, &stats.TotalMediaCreated, &stats.TotalFavorites,
		&stats.AverageStarsGiven, &stats.TotalLikesReceived)
	if err != nil {
		return ProfileStats{}
	}
	stats.AverageStarsGiven = round2(stats.AverageStarsGiven)
	return stats
}
