package model

import "time"

// Group is an imported, ordered sequence of posts from an external source.
type Group struct {
	ID         int64     `json:"id"`
	SourceType string    `json:"source_type"`
	SourceID   string    `json:"source_id"`
	Title      string    `json:"title,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// GroupWithMembers pairs a group with its member post ids in position order.
type GroupWithMembers struct {
	Group
	PostIDs []int64 `json:"post_ids"`
}

// GroupRef identifies one constituent group of a merged group
type GroupRef struct {
	ID         int64  `json:"id"`
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	Title      string `json:"title,omitempty"`
}

// MergedGroup is the read-time equivalence class of groups sharing the same
// ordered membership. It is never persisted.
type MergedGroup struct {
	Fingerprint    string     `json:"fingerprint"`
	Groups         []GroupRef `json:"groups"`
	PostCount      int        `json:"post_count"`
	PreviewPostIDs []int64    `json:"preview_post_ids"`
	MinGroupID     int64      `json:"min_group_id"`
}
