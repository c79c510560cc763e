package search

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"poetryHub/domain"
)

// SQL searches poems with LIKE queries against the relational store.
// Its indexer methods do nothing since the rows already are the index.
type SQL struct {
	db *gorm.DB
}

var (
	_ domain.SearchService = &SQL{}
	_ domain.SearchIndexer = &SQL{}
)

func NewSQL(db *gorm.DB) *SQL {
	return &SQL{db: db}
}

func (s *SQL) EnsureIndex(context.Context) error                 { return nil }
func (s *SQL) IndexPoetry(context.Context, *domain.Poetry) error { return nil }
func (s *SQL) DeletePoetry(context.Context, int64) error         { return nil }

// BulkIndex reports every poem as indexed.
func (s *SQL) BulkIndex(_ context.Context, poetries []domain.Poetry) (int, error) {
	return len(poetries), nil
}

// Search matches the keyword in the title, content or author name of published poems.
// Hits are ordered by likes, then id. Scores are always zero.
func (s *SQL) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	q.Page = q.Page.Normalize()
	base := func() *gorm.DB {
		db := s.db.WithContext(ctx).
			Model(&domain.Poetry{}).
			Joins("LEFT JOIN authors ON authors.id = poetries.author_id").
			Where("poetries.status = ?", domain.StatusPublished)
		if kw := strings.TrimSpace(q.Keyword); kw != "" {
			like := "%" + kw + "%"
			db = db.Where("(poetries.title LIKE ? OR poetries.content LIKE ? OR authors.name LIKE ?)", like, like, like)
		}
		if q.Dynasty != "" {
			db = db.Where("poetries.dynasty = ?", q.Dynasty)
		}
		if q.Type != "" {
			db = db.Where("poetries.type = ?", q.Type)
		}
		if q.AuthorName != "" {
			db = db.Where("authors.name LIKE ?", "%"+q.AuthorName+"%")
		}
		for _, tag := range q.Tags {
			if tag = strings.TrimSpace(tag); tag != "" {
				db = db.Where("CAST(poetries.tags AS TEXT) LIKE ?", `%"`+tag+`"%`)
			}
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, err
	}
	var rows []struct {
		domain.Poetry
		AuthorName string
	}
	err := base().
		Select("poetries.*, authors.name AS author_name").
		Order("poetries.like_count DESC").
		Order("poetries.id ASC").
		Offset(q.Page.Offset()).
		Limit(q.Page.PageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := &domain.SearchResult{Total: total, Hits: make([]domain.SearchHit, 0, len(rows))}
	for _, r := range rows {
		p := r.Poetry
		if p.AuthorID != nil && r.AuthorName != "" {
			p.Author = &domain.Author{ID: *p.AuthorID, Name: r.AuthorName}
		}
		result.Hits = append(result.Hits, domain.SearchHit{Poetry: p})
	}
	return result, nil
}

// Suggest returns titles, then author names, that start with prefix.
func (s *SQL) Suggest(ctx context.Context, prefix string, size int) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []string{}, nil
	}
	sg := newSuggestions(size)
	like := prefix + "%"

	var titles []string
	err := s.db.WithContext(ctx).
		Model(&domain.Poetry{}).
		Where("status = ? AND title LIKE ?", domain.StatusPublished, like).
		Order("like_count DESC").
		Order("id ASC").
		Limit(sg.limit).
		Pluck("title", &titles).Error
	if err != nil {
		return nil, err
	}
	for _, t := range titles {
		sg.add(t)
	}

	var names []string
	err = s.db.WithContext(ctx).
		Model(&domain.Author{}).
		Where("name LIKE ?", like).
		Order("id ASC").
		Limit(sg.limit).
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		sg.add(n)
	}
	return sg.list(), nil
}
