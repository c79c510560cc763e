package crud

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm"

	"poetryHub/domain"
)

const (
	// preferenceSample is how many recent likes and how many recent collections feed a profile.
	preferenceSample = 10
	// favoriteAuthors is how many top authors a profile keeps.
	favoriteAuthors = 3
)

// Personalized recommends published poems the user has not interacted with yet that match
// the user's favorite dynasty, type or authors. Users without usable history get the hot list.
func (rg *recommendGorm) Personalized(ctx context.Context, userID int64, limit int) ([]domain.Poetry, error) {
	seen, err := recentInteractions(ctx, rg.db, userID)
	if err != nil {
		return nil, err
	}
	if len(seen) == 0 {
		return rg.fallback(ctx, limit)
	}

	sources, err := sourcePoetries(ctx, rg.db, seen)
	if err != nil {
		return nil, err
	}
	profile := buildProfile(sources)
	if profile.Empty() {
		return rg.fallback(ctx, limit)
	}

	var clauses []string
	var args []interface{}
	if profile.Dynasty != "" {
		clauses = append(clauses, "dynasty = ?")
		args = append(args, profile.Dynasty)
	}
	if profile.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, profile.Type)
	}
	if len(profile.AuthorIDs) > 0 {
		clauses = append(clauses, "author_id IN ?")
		args = append(args, profile.AuthorIDs)
	}

	poetries := []domain.Poetry{}
	err = rg.db.WithContext(ctx).
		Where("status = ?", domain.StatusPublished).
		Where("id NOT IN ?", seen).
		Where("("+strings.Join(clauses, " OR ")+")", args...).
		Order("like_count DESC").
		Order("id ASC").
		Limit(limit).
		Find(&poetries).Error
	if err != nil {
		return nil, err
	}
	rg.metrics.ObserveRecommendation("personalized", "db")
	return poetries, attachAuthors(ctx, rg.db, poetries)
}

func (rg *recommendGorm) fallback(ctx context.Context, limit int) ([]domain.Poetry, error) {
	rg.metrics.ObserveRecommendation("personalized", "fallback")
	return rg.Hot(ctx, limit, rg.cfg.HotWindowDays)
}

// recentInteractions returns the ids of the user's most recently liked poems followed by the
// most recently collected ones, newest first within each, without duplicates.
func recentInteractions(ctx context.Context, db *gorm.DB, userID int64) ([]int64, error) {
	var liked, collected []int64
	err := db.WithContext(ctx).
		Model(&domain.PoetryLike{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(preferenceSample).
		Pluck("poetry_id", &liked).Error
	if err != nil {
		return nil, err
	}
	err = db.WithContext(ctx).
		Model(&domain.PoetryCollection{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(preferenceSample).
		Pluck("poetry_id", &collected).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(liked)+len(collected))
	out := make([]int64, 0, len(liked)+len(collected))
	for _, id := range append(liked, collected...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// sourcePoetries loads the non-deleted poems among ids, keeping the order of ids.
func sourcePoetries(ctx context.Context, db *gorm.DB, ids []int64) ([]domain.Poetry, error) {
	var found []domain.Poetry
	err := db.WithContext(ctx).
		Where("id IN ? AND status <> ?", ids, domain.StatusDeleted).
		Find(&found).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Poetry, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]domain.Poetry, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// buildProfile tallies dynasty, type and author over poems. Ties go to the value seen first.
func buildProfile(poetries []domain.Poetry) domain.PreferenceProfile {
	dynasties := newTally[string]()
	types := newTally[string]()
	authors := newTally[int64]()
	for _, p := range poetries {
		if p.Dynasty != "" {
			dynasties.add(p.Dynasty)
		}
		if p.Type != "" {
			types.add(p.Type)
		}
		if p.AuthorID != nil {
			authors.add(*p.AuthorID)
		}
	}

	var profile domain.PreferenceProfile
	if top := dynasties.top(1); len(top) > 0 {
		profile.Dynasty = top[0]
	}
	if top := types.top(1); len(top) > 0 {
		profile.Type = top[0]
	}
	profile.AuthorIDs = authors.top(favoriteAuthors)
	return profile
}

// tally counts occurrences and remembers the order keys were first seen in.
type tally[K comparable] struct {
	order  []K
	counts map[K]int
}

func newTally[K comparable]() *tally[K] {
	return &tally[K]{counts: make(map[K]int)}
}

func (t *tally[K]) add(k K) {
	if _, ok := t.counts[k]; !ok {
		t.order = append(t.order, k)
	}
	t.counts[k]++
}

// top returns up to n keys by descending count, first seen first on equal counts.
func (t *tally[K]) top(n int) []K {
	keys := append([]K(nil), t.order...)
	sort.SliceStable(keys, func(i, j int) bool {
		return t.counts[keys[i]] > t.counts[keys[j]]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
