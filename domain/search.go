package domain

import "context"

// SearchQuery is a keyword search over published poems.
type SearchQuery struct {
	Keyword    string   `json:"keyword"`
	Dynasty    string   `json:"dynasty"`
	Type       string   `json:"type"`
	AuthorName string   `json:"author_name"`
	Tags       []string `json:"tags"`
	Page
}

type SearchHit struct {
	Poetry    Poetry              `json:"poetry"`
	Score     float64             `json:"score"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

type SearchResult struct {
	Total int64       `json:"total"`
	Hits  []SearchHit `json:"hits"`
}

// SearchService answers keyword queries. The recommendation code never depends on it.
type SearchService interface {
	Search(ctx context.Context, q SearchQuery) (*SearchResult, error)
	Suggest(ctx context.Context, prefix string, size int) ([]string, error)
}

// SearchIndexer keeps a search index in step with the poetries table.
type SearchIndexer interface {
	EnsureIndex(ctx context.Context) error
	IndexPoetry(ctx context.Context, p *Poetry) error
	DeletePoetry(ctx context.Context, id int64) error
	BulkIndex(ctx context.Context, poetries []Poetry) (int, error)
}
