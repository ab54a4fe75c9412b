// Package models holds the payload types cached by the engine.
package models

import "time"

// Summary is the denormalized list-rendering view of a content item,
// stored per tier in a hash structure keyed by content ID.
type Summary struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	CommentCount  int       `json:"commentCount"`
	ReactionCount int       `json:"reactionCount"`
	ViewCount     int64     `json:"viewCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Detail is the full detail payload for a single content item. It is cached
// under its own key with an independent TTL and invalidated individually when
// the item mutates.
type Detail struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Author        string    `json:"author"`
	CommentCount  int       `json:"commentCount"`
	ReactionCount int       `json:"reactionCount"`
	ViewCount     int64     `json:"viewCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
