package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gcbaptista/tagsearch/model"
)

// Recommendations returns the cached rows for postID in rank order.
func (s *SQLiteStorage) Recommendations(ctx context.Context, postID int64) ([]model.PostRecommendation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, recommended_id, score, computed_at
		FROM post_recommendations WHERE post_id = ? ORDER BY rank
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recommendations for post %d: %w", postID, err)
	}
	defer rows.Close()

	var recs []model.PostRecommendation
	for rows.Next() {
		var r model.PostRecommendation
		var computed int64
		if err := rows.Scan(&r.PostID, &r.RecommendedID, &r.Score, &computed); err != nil {
			return nil, err
		}
		r.ComputedAt = fromMillis(computed)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// ReplaceRecommendations overwrites the row set for postID in one transaction.
// Concurrent writers for the same post converge on whichever commits last.
func (s *SQLiteStorage) ReplaceRecommendations(ctx context.Context, postID int64, recs []model.PostRecommendation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM post_recommendations WHERE post_id = ?", postID); err != nil {
			return fmt.Errorf("failed to clear recommendations for post %d: %w", postID, err)
		}
		if len(recs) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO post_recommendations (post_id, rank, recommended_id, score, computed_at)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for rank, r := range recs {
			if _, err := stmt.ExecContext(ctx, postID, rank, r.RecommendedID, r.Score, r.ComputedAt.UnixMilli()); err != nil {
				return fmt.Errorf("failed to store recommendation for post %d: %w", postID, err)
			}
		}
		return nil
	})
}

// ClearRecommendations drops every cached row and returns how many were removed.
func (s *SQLiteStorage) ClearRecommendations(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM post_recommendations")
	if err != nil {
		return 0, fmt.Errorf("failed to clear recommendations: %w", err)
	}
	return res.RowsAffected()
}

// CorpusCounts gathers the raw counters behind corpus statistics. MergedGroups is
// left for the caller, which owns fingerprinting.
func (s *SQLiteStorage) CorpusCounts(ctx context.Context) (*model.CorpusStats, error) {
	stats := &model.CorpusStats{
		TagsByCategory: make(map[model.TagCategory]int),
		GroupsBySource: make(map[string]int),
	}

	for _, c := range []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM posts", &stats.Posts},
		{"SELECT COUNT(*) FROM tags", &stats.Tags},
		{"SELECT COUNT(*) FROM post_groups", &stats.Groups},
		{"SELECT COUNT(DISTINCT post_id) FROM post_recommendations", &stats.RecommendedPosts},
	} {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count corpus: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT category, COUNT(*) FROM tags GROUP BY category")
	if err != nil {
		return nil, fmt.Errorf("failed to count tags by category: %w", err)
	}
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.TagsByCategory[model.TagCategory(category)] = n
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT source_type, COUNT(*) FROM post_groups GROUP BY source_type")
	if err != nil {
		return nil, fmt.Errorf("failed to count groups by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		stats.GroupsBySource[source] = n
	}
	return stats, rows.Err()
}
