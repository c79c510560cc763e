// Package search finds poems by keyword and filters, either through Elasticsearch
// or, when no cluster is configured, through SQL LIKE queries.
package search

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"poetryHub/domain"
)

// document is the shape of a poem inside the search index.
type document struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	AuthorID     *int64    `json:"author_id"`
	AuthorName   string    `json:"author_name,omitempty"`
	Dynasty      string    `json:"dynasty,omitempty"`
	Type         string    `json:"type,omitempty"`
	Tags         []string  `json:"tags"`
	ReadCount    int64     `json:"read_count"`
	LikeCount    int64     `json:"like_count"`
	CollectCount int64     `json:"collect_count"`
	Status       int8      `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newDocument(p *domain.Poetry) document {
	doc := document{
		ID:           p.ID,
		Title:        p.Title,
		Content:      p.Content,
		AuthorID:     p.AuthorID,
		Dynasty:      p.Dynasty,
		Type:         p.Type,
		Tags:         tagsOf(p.Tags),
		ReadCount:    p.ReadCount,
		LikeCount:    p.LikeCount,
		CollectCount: p.CollectCount,
		Status:       int8(p.Status),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.Author != nil {
		doc.AuthorName = p.Author.Name
	}
	return doc
}

func (d document) poetry() domain.Poetry {
	p := domain.Poetry{
		ID:           d.ID,
		Title:        d.Title,
		Content:      d.Content,
		AuthorID:     d.AuthorID,
		Dynasty:      d.Dynasty,
		Type:         d.Type,
		ReadCount:    d.ReadCount,
		LikeCount:    d.LikeCount,
		CollectCount: d.CollectCount,
		Status:       domain.Status(d.Status),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if len(d.Tags) > 0 {
		if b, err := json.Marshal(d.Tags); err == nil {
			p.Tags = datatypes.JSON(b)
		}
	}
	if d.AuthorID != nil && d.AuthorName != "" {
		p.Author = &domain.Author{ID: *d.AuthorID, Name: d.AuthorName, Dynasty: d.Dynasty}
	}
	return p
}

// tagsOf decodes a JSON array of tags. Anything else yields an empty list.
func tagsOf(raw datatypes.JSON) []string {
	tags := []string{}
	if len(raw) == 0 {
		return tags
	}
	if err := json.Unmarshal(raw, &tags); err != nil {
		return []string{}
	}
	return tags
}
