package domain

import (
	"context"
	"time"
)

// TargetType is the kind of entity a Comment or a Message points at.
type TargetType string

const (
	TargetPoetry  TargetType = "poetry"
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
	TargetUser    TargetType = "user"
)

type CommentStatus int8

const (
	CommentNormal  CommentStatus = 1
	CommentDeleted CommentStatus = 2
)

// Comment is a comment on a Poetry or a Post. A reply sets ParentID to the comment it answers.
// The parent is a plain nullable column; replies are loaded with their own query.
type Comment struct {
	ID         int64         `json:"id" gorm:"primaryKey"`
	UserID     int64         `json:"user_id" gorm:"notNull;index"`
	TargetType TargetType    `json:"target_type" gorm:"size:20;notNull;index:ix_comments_target,priority:1"`
	TargetID   int64         `json:"target_id" gorm:"notNull;index:ix_comments_target,priority:2"`
	ParentID   *int64        `json:"parent_id" gorm:"index"`
	Content    string        `json:"content" gorm:"type:text;notNull"`
	LikeCount  int64         `json:"like_count" gorm:"notNull;default:0"`
	ReplyCount int64         `json:"reply_count" gorm:"notNull;default:0"`
	Status     CommentStatus `json:"status" gorm:"notNull;default:1"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// CommentService is a set of methods to manipulate and work with the Comment model.
type CommentService interface {
	ByID(ctx context.Context, id int64) (*Comment, error)
	Create(ctx context.Context, comment *Comment) error
	// Update replaces the content of a comment. Only its author may do so.
	Update(ctx context.Context, userID, id int64, content string) (*Comment, error)
	Delete(ctx context.Context, userID, id int64) error
	// ByUser pages through the comments a user wrote, newest first.
	ByUser(ctx context.Context, userID int64, page Page) ([]Comment, int64, error)
	ListByTarget(ctx context.Context, targetType TargetType, targetID int64, page Page) ([]Comment, int64, error)
	Replies(ctx context.Context, parentID int64, page Page) ([]Comment, int64, error)
}
