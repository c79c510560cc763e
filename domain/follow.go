package domain

import (
	"context"
	"time"
)

// Follow represents a self-referential many-to-many relationship between two users.
// FollowerID is the user that follows, FolloweeID the user being followed.
// Both are plain foreign key columns; the pair is unique and a user cannot follow themself.
// Two users following each other are friends.
type Follow struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	FollowerID int64     `json:"follower_id" gorm:"notNull;uniqueIndex:ux_follows_pair,priority:1"`
	FolloweeID int64     `json:"followee_id" gorm:"notNull;uniqueIndex:ux_follows_pair,priority:2;index"`
	CreatedAt  time.Time `json:"created_at"`
}

// FollowCounts is the number of users a user follows and is followed by.
type FollowCounts struct {
	Following int64 `json:"following"`
	Followers int64 `json:"followers"`
}

// FollowService is a set of methods to manipulate and work with the Follow model.
type FollowService interface {
	Follow(ctx context.Context, followerID, followeeID int64) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID int64) (bool, error)
	IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error)
	Following(ctx context.Context, userID int64, page Page) ([]User, int64, error)
	Followers(ctx context.Context, userID int64, page Page) ([]User, int64, error)
	Friends(ctx context.Context, userID int64) ([]User, error)
	Counts(ctx context.Context, userID int64) (*FollowCounts, error)
}
