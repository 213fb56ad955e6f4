package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	apperrors "github.com/gcbaptista/tagsearch/internal/errors"
	"github.com/gcbaptista/tagsearch/model"
)

// GetPost returns the post or a PostNotFoundError.
func (s *SQLiteStorage) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	var p model.Post
	var created int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, hash, file_size, created_at FROM posts WHERE id = ?", id).
		Scan(&p.ID, &p.Hash, &p.FileSize, &created)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewPostNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post %d: %w", id, err)
	}
	p.CreatedAt = fromMillis(created)
	return &p, nil
}

// AllPostIDs returns every post id in ascending order.
func (s *SQLiteStorage) AllPostIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM posts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return scanInt64s(rows)
}

// PostIDsForTag returns the ids of posts carrying the tag, ascending.
func (s *SQLiteStorage) PostIDsForTag(ctx context.Context, tagID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT post_id FROM post_tags WHERE tag_id = ? ORDER BY post_id", tagID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts for tag %d: %w", tagID, err)
	}
	return scanInt64s(rows)
}

// PostFileSizes returns file sizes keyed by post id.
func (s *SQLiteStorage) PostFileSizes(ctx context.Context, ids []int64) (map[int64]int64, error) {
	sizes := make(map[int64]int64, len(ids))
	for _, batch := range chunkIDs(ids, maxInParams) {
		rows, err := s.db.QueryContext(ctx,
			"SELECT id, file_size FROM posts WHERE id IN ("+placeholders(len(batch))+")",
			int64Args(batch)...)
		if err != nil {
			return nil, fmt.Errorf("failed to load file sizes: %w", err)
		}
		for rows.Next() {
			var id, size int64
			if err := rows.Scan(&id, &size); err != nil {
				rows.Close()
				return nil, err
			}
			sizes[id] = size
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return sizes, nil
}

// PostTagIDs returns the tag ids attached to a post.
func (s *SQLiteStorage) PostTagIDs(ctx context.Context, postID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT tag_id FROM post_tags WHERE post_id = ? ORDER BY tag_id", postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags for post %d: %w", postID, err)
	}
	return scanInt64s(rows)
}

// PostTagsForTags returns every (post, tag) pair for the given tags.
func (s *SQLiteStorage) PostTagsForTags(ctx context.Context, tagIDs []int64) ([]model.PostTag, error) {
	var pairs []model.PostTag
	for _, batch := range chunkIDs(tagIDs, maxInParams) {
		rows, err := s.db.QueryContext(ctx,
			"SELECT post_id, tag_id FROM post_tags WHERE tag_id IN ("+placeholders(len(batch))+")",
			int64Args(batch)...)
		if err != nil {
			return nil, fmt.Errorf("failed to load post tags: %w", err)
		}
		for rows.Next() {
			var pt model.PostTag
			if err := rows.Scan(&pt.PostID, &pt.TagID); err != nil {
				rows.Close()
				return nil, err
			}
			pairs = append(pairs, pt)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return pairs, nil
}

// EligiblePostIDs returns posts with at least one tag shared by another post.
func (s *SQLiteStorage) EligiblePostIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT pt.post_id
		FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
		WHERE t.post_count > 1
		ORDER BY pt.post_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible posts: %w", err)
	}
	return scanInt64s(rows)
}

// UpsertPosts inserts or updates posts by hash and replaces each post's tag set.
// Returned ids follow input order. Tag statistics are not refreshed here.
func (s *SQLiteStorage) UpsertPosts(ctx context.Context, posts []model.PostInput) ([]int64, error) {
	ids := make([]int64, 0, len(posts))
	now := s.now().UnixMilli()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		postStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO posts (hash, file_size, created_at) VALUES (?, ?, ?)
			ON CONFLICT(hash) DO UPDATE SET file_size = excluded.file_size
			RETURNING id
		`)
		if err != nil {
			return err
		}
		defer postStmt.Close()

		tagStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO tags (name, category) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET category = CASE WHEN ? = '' THEN tags.category ELSE excluded.category END
			RETURNING id
		`)
		if err != nil {
			return err
		}
		defer tagStmt.Close()

		for _, p := range posts {
			var postID int64
			if err := postStmt.QueryRowContext(ctx, p.Hash, p.FileSize, now).Scan(&postID); err != nil {
				return fmt.Errorf("failed to upsert post %s: %w", p.Hash, err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM post_tags WHERE post_id = ?", postID); err != nil {
				return fmt.Errorf("failed to reset tags of post %s: %w", p.Hash, err)
			}

			for _, tag := range p.Tags {
				category := tag.Category
				if category == "" {
					category = string(model.TagCategoryGeneral)
				}
				var tagID int64
				if err := tagStmt.QueryRowContext(ctx, tag.Name, category, tag.Category).Scan(&tagID); err != nil {
					return fmt.Errorf("failed to upsert tag %s: %w", tag.Name, err)
				}
				if _, err := tx.ExecContext(ctx,
					"INSERT OR IGNORE INTO post_tags (post_id, tag_id) VALUES (?, ?)", postID, tagID); err != nil {
					return fmt.Errorf("failed to tag post %s: %w", p.Hash, err)
				}
			}
			ids = append(ids, postID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// postIDsByHash resolves hashes inside a transaction; unknown hashes are a validation error.
func postIDsByHash(ctx context.Context, tx *sql.Tx, hashes []string) ([]int64, error) {
	ids := make([]int64, 0, len(hashes))
	var missing []string
	for _, h := range hashes {
		var id int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM posts WHERE hash = ?", h).Scan(&id)
		if err == sql.ErrNoRows {
			missing = append(missing, h)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve post %s: %w", h, err)
		}
		ids = append(ids, id)
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("post_hashes", "unknown post hashes: "+strings.Join(missing, ", "))
	}
	return ids, nil
}
