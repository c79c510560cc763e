package domain

import (
	"context"
	"time"
)

// PoetryLike represents a many-to-many relationship between a User and a Poetry.
// It's created when a user likes a poem and destroyed when the user unlikes it.
// A user can like a poem at most once, which the composite unique index enforces.
type PoetryLike struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"notNull;uniqueIndex:ux_user_poetry_likes_user_poetry,priority:1"`
	PoetryID  int64     `json:"poetry_id" gorm:"notNull;uniqueIndex:ux_user_poetry_likes_user_poetry,priority:2;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (PoetryLike) TableName() string { return "user_poetry_likes" }

// PoetryCollection is the same kind of edge as PoetryLike, for collected (bookmarked) poems.
type PoetryCollection struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"notNull;uniqueIndex:ux_user_poetry_collections_user_poetry,priority:1"`
	PoetryID  int64     `json:"poetry_id" gorm:"notNull;uniqueIndex:ux_user_poetry_collections_user_poetry,priority:2;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (PoetryCollection) TableName() string { return "user_poetry_collections" }

// InteractionService toggles likes and collections of poems.
// Every mutating method reports whether it changed anything. A duplicate like or a missing
// edge on removal is a no-op that returns false, never an error.
type InteractionService interface {
	Like(ctx context.Context, userID, poetryID int64) (bool, error)
	Unlike(ctx context.Context, userID, poetryID int64) (bool, error)
	Collect(ctx context.Context, userID, poetryID int64) (bool, error)
	Uncollect(ctx context.Context, userID, poetryID int64) (bool, error)
	CheckLiked(ctx context.Context, userID, poetryID int64) (bool, error)
	CheckCollected(ctx context.Context, userID, poetryID int64) (bool, error)
}
