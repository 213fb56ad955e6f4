package model

import "time"

// Post is a single media item identified by its content hash.
type Post struct {
	ID        int64     `json:"id"`
	Hash      string    `json:"hash"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}

// PostTag is one (post, tag) association row
type PostTag struct {
	PostID int64
	TagID  int64
}

// TagInput names a tag attached to an imported post
type TagInput struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category,omitempty"`
}

// PostInput is one post in a bulk import. Posts are matched on Hash, so
// re-importing a hash replaces its tag set rather than creating a new post.
type PostInput struct {
	Hash     string     `json:"hash" binding:"required"`
	FileSize int64      `json:"file_size" binding:"gte=0"`
	Tags     []TagInput `json:"tags" binding:"dive"`
}

// GroupInput is an imported group referencing already imported posts by hash, in order.
type GroupInput struct {
	SourceType string   `json:"source_type" binding:"required"`
	SourceID   string   `json:"source_id" binding:"required"`
	Title      string   `json:"title,omitempty"`
	PostHashes []string `json:"post_hashes" binding:"required,min=1"`
}
