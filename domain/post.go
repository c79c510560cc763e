package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

// PostType tells an original post apart from a post sharing a poem.
type PostType string

const (
	PostOriginal PostType = "original"
	PostShare    PostType = "share"
)

// Post is an entry of the social feed. A share post references the shared poem through PoetryID.
type Post struct {
	ID       int64          `json:"id" gorm:"primaryKey"`
	UserID   int64          `json:"user_id" gorm:"notNull;index"`
	Content  string         `json:"content" gorm:"type:text;notNull"`
	Images   datatypes.JSON `json:"images"`
	Tags     datatypes.JSON `json:"tags"`
	PoetryID *int64         `json:"poetry_id" gorm:"index"`
	Poetry   *Poetry        `json:"poetry,omitempty" gorm:"-"`
	Type     PostType       `json:"type" gorm:"size:20;notNull;default:original"`

	LikeCount    int64 `json:"like_count" gorm:"notNull;default:0"`
	CommentCount int64 `json:"comment_count" gorm:"notNull;default:0"`
	CollectCount int64 `json:"collect_count" gorm:"notNull;default:0"`
	ViewCount    int64 `json:"view_count" gorm:"notNull;default:0"`

	Status    Status    `json:"status" gorm:"notNull;default:1;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostFilter narrows down a post listing.
type PostFilter struct {
	Type   PostType `json:"type"`
	UserID *int64   `json:"user_id"`
	// OrderBy is one of created_at, like_count, view_count. Always descending.
	OrderBy string `json:"order_by"`
	Page
}

// PostUpdate holds the fields of a Post its owner may change.
type PostUpdate struct {
	Content *string         `json:"content"`
	Images  *datatypes.JSON `json:"images"`
	Tags    *datatypes.JSON `json:"tags"`
}

// PostService is a set of methods to manipulate and work with the Post model.
type PostService interface {
	Create(ctx context.Context, post *Post) error
	ByID(ctx context.Context, id int64) (*Post, error)
	List(ctx context.Context, filter PostFilter) ([]Post, int64, error)
	Update(ctx context.Context, userID, id int64, upd *PostUpdate) (*Post, error)
	Delete(ctx context.Context, userID, id int64) error
	IncrementView(ctx context.Context, id int64) error
	Following(ctx context.Context, userID int64, page Page) ([]Post, int64, error)
}
