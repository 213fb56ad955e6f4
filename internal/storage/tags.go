package storage

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/gcbaptista/tagsearch/internal/errors"
	"github.com/gcbaptista/tagsearch/model"
)

const tagColumns = "id, name, category, post_count, idf_weight"

func scanTag(row interface{ Scan(...interface{}) error }) (model.Tag, error) {
	var t model.Tag
	var category string
	if err := row.Scan(&t.ID, &t.Name, &category, &t.PostCount, &t.IDFWeight); err != nil {
		return model.Tag{}, err
	}
	t.Category = model.TagCategory(category)
	return t, nil
}

// TagIDsByName resolves tag names to ids. Unknown names are absent from the result.
func (s *SQLiteStorage) TagIDsByName(ctx context.Context, names []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(names))
	for start := 0; start < len(names); start += maxInParams {
		end := start + maxInParams
		if end > len(names) {
			end = len(names)
		}
		batch := names[start:end]

		args := make([]interface{}, len(batch))
		for i, n := range batch {
			args[i] = n
		}

		rows, err := s.db.QueryContext(ctx,
			"SELECT id, name FROM tags WHERE name IN ("+placeholders(len(batch))+")", args...)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tag names: %w", err)
		}
		for rows.Next() {
			var id int64
			var name string
			if err := rows.Scan(&id, &name); err != nil {
				rows.Close()
				return nil, err
			}
			ids[name] = id
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// GetTagByName returns the named tag or ErrNotFound.
func (s *SQLiteStorage) GetTagByName(ctx context.Context, name string) (*model.Tag, error) {
	t, err := scanTag(s.db.QueryRowContext(ctx, "SELECT "+tagColumns+" FROM tags WHERE name = ?", name))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tag %s: %w", name, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag %s: %w", name, err)
	}
	return &t, nil
}

// TagsByID loads the given tags in ascending id order.
func (s *SQLiteStorage) TagsByID(ctx context.Context, ids []int64) ([]model.Tag, error) {
	var tags []model.Tag
	for _, batch := range chunkIDs(ids, maxInParams) {
		rows, err := s.db.QueryContext(ctx,
			"SELECT "+tagColumns+" FROM tags WHERE id IN ("+placeholders(len(batch))+") ORDER BY id",
			int64Args(batch)...)
		if err != nil {
			return nil, fmt.Errorf("failed to load tags: %w", err)
		}
		for rows.Next() {
			t, err := scanTag(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			tags = append(tags, t)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return tags, nil
}

// MatchTagNames returns up to limit tag names matching likePattern (escaped with '\'), by name.
func (s *SQLiteStorage) MatchTagNames(ctx context.Context, likePattern string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM tags WHERE name LIKE ? ESCAPE '\' ORDER BY name LIMIT ?`, likePattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to match tags: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// TagsWithPrefix returns up to limit tags whose name starts with prefix, most used first.
func (s *SQLiteStorage) TagsWithPrefix(ctx context.Context, prefix string, limit int) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+tagColumns+` FROM tags WHERE name LIKE ? ESCAPE '\' ORDER BY post_count DESC, name LIMIT ?`,
		escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// RefreshTagStats recomputes post_count and idf_weight for every tag.
func (s *SQLiteStorage) RefreshTagStats(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var totalPosts int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&totalPosts); err != nil {
			return fmt.Errorf("failed to count posts: %w", err)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT t.id, COUNT(pt.post_id)
			FROM tags t LEFT JOIN post_tags pt ON pt.tag_id = t.id
			GROUP BY t.id
		`)
		if err != nil {
			return fmt.Errorf("failed to count tag usage: %w", err)
		}
		type tagCount struct {
			id    int64
			count int
		}
		var counts []tagCount
		for rows.Next() {
			var c tagCount
			if err := rows.Scan(&c.id, &c.count); err != nil {
				rows.Close()
				return err
			}
			counts = append(counts, c)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, "UPDATE tags SET post_count = ?, idf_weight = ? WHERE id = ?")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range counts {
			if _, err := stmt.ExecContext(ctx, c.count, model.IDFWeight(totalPosts, c.count), c.id); err != nil {
				return fmt.Errorf("failed to update tag %d: %w", c.id, err)
			}
		}
		return nil
	})
}
