package domain

import (
	"context"
	"time"
)

// Author wrote one or more Poetries. Deleting an Author leaves its poems in place
// with their AuthorID cleared.
type Author struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100;notNull;index"`
	Dynasty   string    `json:"dynasty" gorm:"size:50;index"`
	Intro     string    `json:"intro,omitempty" gorm:"type:text"`
	BirthYear *int      `json:"birth_year,omitempty"`
	DeathYear *int      `json:"death_year,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HotAuthor is an Author with the number of published poems credited to them.
type HotAuthor struct {
	Author
	PoetryCount int64 `json:"poetry_count"`
}

type AuthorService interface {
	ByID(ctx context.Context, id int64) (*Author, error)
	List(ctx context.Context, dynasty string, page Page) ([]Author, int64, error)
	// Hot returns the authors with the most published poems.
	Hot(ctx context.Context, limit int) ([]HotAuthor, error)
	Create(ctx context.Context, author *Author) error
	Update(ctx context.Context, author *Author) error
	Delete(ctx context.Context, id int64) error
}
