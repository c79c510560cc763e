package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

// Status is the publication state of a Poetry or a Post.
type Status int8

const (
	StatusPublished Status = 1
	StatusDraft     Status = 2
	StatusDeleted   Status = 3
)

// Poetry is a poem. Dynasty and Type are optional, the empty string means the attribute is absent.
// The counters are denormalized and only ever changed through the counter ledger.
type Poetry struct {
	ID           int64          `json:"id" gorm:"primaryKey"`
	Title        string         `json:"title" gorm:"size:200;notNull;index"`
	Content      string         `json:"content" gorm:"type:text;notNull"`
	AuthorID     *int64         `json:"author_id" gorm:"index"`
	Author       *Author        `json:"author,omitempty" gorm:"-"`
	Dynasty      string         `json:"dynasty" gorm:"size:50;index"`
	Type         string         `json:"type" gorm:"size:50;index"`
	Tags         datatypes.JSON `json:"tags"`
	Translation  string         `json:"translation,omitempty" gorm:"type:text"`
	Annotation   string         `json:"annotation,omitempty" gorm:"type:text"`
	Appreciation string         `json:"appreciation,omitempty" gorm:"type:text"`
	Background   string         `json:"background,omitempty" gorm:"type:text"`

	ReadCount    int64 `json:"read_count" gorm:"notNull;default:0"`
	LikeCount    int64 `json:"like_count" gorm:"notNull;default:0"`
	CommentCount int64 `json:"comment_count" gorm:"notNull;default:0"`
	CollectCount int64 `json:"collect_count" gorm:"notNull;default:0"`

	Status    Status    `json:"status" gorm:"notNull;default:1;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PoetryFilter narrows down a poetry listing.
type PoetryFilter struct {
	Keyword  string `json:"keyword"`
	Dynasty  string `json:"dynasty"`
	Type     string `json:"type"`
	AuthorID *int64 `json:"author_id"`
	// SortBy is one of created_at, read_count, like_count, comment_count.
	SortBy string `json:"sort_by"`
	// Order is asc or desc.
	Order string `json:"order"`
	Page
}

// PoetryUpdate holds the fields of a Poetry that may be changed. Nil fields are left alone.
type PoetryUpdate struct {
	Title        *string         `json:"title"`
	Content      *string         `json:"content"`
	AuthorID     *int64          `json:"author_id"`
	Dynasty      *string         `json:"dynasty"`
	Type         *string         `json:"type"`
	Tags         *datatypes.JSON `json:"tags"`
	Translation  *string         `json:"translation"`
	Annotation   *string         `json:"annotation"`
	Appreciation *string         `json:"appreciation"`
	Background   *string         `json:"background"`
	Status       *Status         `json:"status"`
}

// PoetryService is a set of methods to manipulate and work with the Poetry model.
type PoetryService interface {
	ByID(ctx context.Context, id int64) (*Poetry, error)
	List(ctx context.Context, filter PoetryFilter) ([]Poetry, int64, error)
	Create(ctx context.Context, poetry *Poetry) error
	Update(ctx context.Context, id int64, upd *PoetryUpdate) (*Poetry, error)
	Delete(ctx context.Context, id int64) error
	IncrementRead(ctx context.Context, id int64) error
	LikedBy(ctx context.Context, userID int64, page Page) ([]Poetry, int64, error)
	CollectedBy(ctx context.Context, userID int64, page Page) ([]Poetry, int64, error)
}
