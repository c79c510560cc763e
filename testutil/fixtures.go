package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"poetryHub/domain"
)

func SeedUser(tb testing.TB, db *gorm.DB, username string) *domain.User {
	tb.Helper()
	u := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		Nickname:     username,
		PasswordHash: "x",
		RememberHash: "remember-" + username,
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedAuthor(tb testing.TB, db *gorm.DB, name, dynasty string) *domain.Author {
	tb.Helper()
	a := &domain.Author{Name: name, Dynasty: dynasty}
	if err := db.Create(a).Error; err != nil {
		tb.Fatalf("seed author: %v", err)
	}
	return a
}

// SeedPoetry creates a published poem. Options run before the insert.
func SeedPoetry(tb testing.TB, db *gorm.DB, opts ...func(*domain.Poetry)) *domain.Poetry {
	tb.Helper()
	p := &domain.Poetry{
		Title:   "untitled",
		Content: "content",
		Status:  domain.StatusPublished,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("seed poetry: %v", err)
	}
	return p
}

// SeedPoetries creates n published poems titled "poem 0" to "poem n-1".
func SeedPoetries(tb testing.TB, db *gorm.DB, n int) []*domain.Poetry {
	tb.Helper()
	out := make([]*domain.Poetry, 0, n)
	for i := 0; i < n; i++ {
		title := fmt.Sprintf("poem %d", i)
		out = append(out, SeedPoetry(tb, db, func(p *domain.Poetry) { p.Title = title }))
	}
	return out
}

func SeedPost(tb testing.TB, db *gorm.DB, userID int64, content string) *domain.Post {
	tb.Helper()
	p := &domain.Post{UserID: userID, Content: content, Type: domain.PostOriginal, Status: domain.StatusPublished}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("seed post: %v", err)
	}
	return p
}

// SeedLike inserts a like edge directly, without touching counters.
func SeedLike(tb testing.TB, db *gorm.DB, userID, poetryID int64, at time.Time) {
	tb.Helper()
	if err := db.Create(&domain.PoetryLike{UserID: userID, PoetryID: poetryID, CreatedAt: at.UTC()}).Error; err != nil {
		tb.Fatalf("seed like: %v", err)
	}
}

// SeedCollection inserts a collection edge directly, without touching counters.
func SeedCollection(tb testing.TB, db *gorm.DB, userID, poetryID int64, at time.Time) {
	tb.Helper()
	if err := db.Create(&domain.PoetryCollection{UserID: userID, PoetryID: poetryID, CreatedAt: at.UTC()}).Error; err != nil {
		tb.Fatalf("seed collection: %v", err)
	}
}

// ReloadPoetry reads a poem back from the database, whatever its status.
func ReloadPoetry(tb testing.TB, db *gorm.DB, id int64) *domain.Poetry {
	tb.Helper()
	var p domain.Poetry
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		tb.Fatalf("reload poetry: %v", err)
	}
	return &p
}
