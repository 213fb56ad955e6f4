package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gcbaptista/tagsearch/model"
)

// GroupsWithMembers returns every group holding at least minMembers posts, with
// member ids in position order, ascending by group id.
func (s *SQLiteStorage) GroupsWithMembers(ctx context.Context, minMembers int) ([]model.GroupWithMembers, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.source_type, g.source_id, g.title, g.created_at
		FROM post_groups g
		WHERE (SELECT COUNT(*) FROM post_group_members m WHERE m.group_id = g.id) >= ?
		ORDER BY g.id
	`, minMembers)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var groups []model.GroupWithMembers
	index := make(map[int64]int)
	for rows.Next() {
		var g model.GroupWithMembers
		var created int64
		if err := rows.Scan(&g.ID, &g.SourceType, &g.SourceID, &g.Title, &created); err != nil {
			rows.Close()
			return nil, err
		}
		g.CreatedAt = fromMillis(created)
		index[g.ID] = len(groups)
		groups = append(groups, g)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}

	members, err := s.db.QueryContext(ctx,
		"SELECT group_id, post_id FROM post_group_members ORDER BY group_id, position")
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer members.Close()

	for members.Next() {
		var groupID, postID int64
		if err := members.Scan(&groupID, &postID); err != nil {
			return nil, err
		}
		if i, ok := index[groupID]; ok {
			groups[i].PostIDs = append(groups[i].PostIDs, postID)
		}
	}
	return groups, members.Err()
}

// GroupMates returns every other post sharing at least one group with postID.
func (s *SQLiteStorage) GroupMates(ctx context.Context, postID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT m2.post_id
		FROM post_group_members m1
		JOIN post_group_members m2 ON m2.group_id = m1.group_id
		WHERE m1.post_id = ? AND m2.post_id != ?
		ORDER BY m2.post_id
	`, postID, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group mates of post %d: %w", postID, err)
	}
	return scanInt64s(rows)
}

// UpsertGroup creates the group for (source_type, source_id), or replaces the
// membership of an existing one, with posts in the given order.
func (s *SQLiteStorage) UpsertGroup(ctx context.Context, group model.GroupInput) (int64, error) {
	var groupID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		postIDs, err := postIDsByHash(ctx, tx, group.PostHashes)
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO post_groups (source_type, source_id, title, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(source_type, source_id) DO UPDATE SET title = excluded.title
			RETURNING id
		`, group.SourceType, group.SourceID, group.Title, s.now().UnixMilli()).Scan(&groupID)
		if err != nil {
			return fmt.Errorf("failed to upsert group %s/%s: %w", group.SourceType, group.SourceID, err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM post_group_members WHERE group_id = ?", groupID); err != nil {
			return fmt.Errorf("failed to reset group %d: %w", groupID, err)
		}

		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO post_group_members (group_id, post_id, position) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for pos, postID := range postIDs {
			if _, err := stmt.ExecContext(ctx, groupID, postID, pos); err != nil {
				return fmt.Errorf("failed to add post %d to group %d: %w", postID, groupID, err)
			}
		}
		return nil
	})
	return groupID, err
}
