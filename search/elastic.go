package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"poetryHub/domain"
	"poetryHub/logger"
)

// DefaultIndex is the index poems are stored in unless configured otherwise.
const DefaultIndex = "poetries"

// indexMapping mirrors document.
const indexMapping = `{
  "settings": {"number_of_shards": 1, "number_of_replicas": 0},
  "mappings": {
    "properties": {
      "id":            {"type": "long"},
      "title":         {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "content":       {"type": "text"},
      "author_id":     {"type": "long"},
      "author_name":   {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "dynasty":       {"type": "keyword"},
      "type":          {"type": "keyword"},
      "tags":          {"type": "keyword"},
      "read_count":    {"type": "integer"},
      "like_count":    {"type": "integer"},
      "collect_count": {"type": "integer"},
      "status":        {"type": "integer"},
      "created_at":    {"type": "date"},
      "updated_at":    {"type": "date"}
    }
  }
}`

// Elastic is the Elasticsearch backed search gateway.
// It implements both domain.SearchService and domain.SearchIndexer.
type Elastic struct {
	es    *elasticsearch.Client
	index string
	log   *logger.Logger
}

var (
	_ domain.SearchService = &Elastic{}
	_ domain.SearchIndexer = &Elastic{}
)

// NewElastic connects to the cluster at addresses. An empty index name uses DefaultIndex.
func NewElastic(addresses []string, index string, log *logger.Logger) (*Elastic, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	if index == "" {
		index = DefaultIndex
	}
	return &Elastic{
		es:    es,
		index: index,
		log:   log.With("service", "search", "index", index),
	}, nil
}

// EnsureIndex creates the poem index with its mapping if it does not exist yet.
func (e *Elastic) EnsureIndex(ctx context.Context) error {
	res, err := e.es.Indices.Exists([]string{e.index}, e.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index: %s", res.Status())
	}

	res, err = e.es.Indices.Create(e.index,
		e.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		e.es.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	e.log.Info("search index created")
	return nil
}

// IndexPoetry stores or replaces the document of p.
func (e *Elastic) IndexPoetry(ctx context.Context, p *domain.Poetry) error {
	body, err := json.Marshal(newDocument(p))
	if err != nil {
		return err
	}
	res, err := e.es.Index(e.index, bytes.NewReader(body),
		e.es.Index.WithDocumentID(strconv.FormatInt(p.ID, 10)),
		e.es.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index poetry %d: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index poetry", res)
	}
	return nil
}

// DeletePoetry removes a document. A missing document is not an error.
func (e *Elastic) DeletePoetry(ctx context.Context, id int64) error {
	res, err := e.es.Delete(e.index, strconv.FormatInt(id, 10), e.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete poetry %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return responseError("delete poetry", res)
	}
	return nil
}

// BulkIndex indexes poetries in one request and returns how many were stored.
func (e *Elastic) BulkIndex(ctx context.Context, poetries []domain.Poetry) (int, error) {
	if len(poetries) == 0 {
		return 0, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range poetries {
		meta := map[string]map[string]string{
			"index": {"_index": e.index, "_id": strconv.FormatInt(poetries[i].ID, 10)},
		}
		if err := enc.Encode(meta); err != nil {
			return 0, err
		}
		if err := enc.Encode(newDocument(&poetries[i])); err != nil {
			return 0, err
		}
	}

	res, err := e.es.Bulk(&buf, e.es.Bulk.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError("bulk index", res)
	}

	var out struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode bulk response: %w", err)
	}
	n := 0
	for _, item := range out.Items {
		for _, op := range item {
			if op.Status >= 200 && op.Status < 300 {
				n++
			}
		}
	}
	if out.Errors {
		e.log.Warn("bulk index partially failed", "indexed", n, "total", len(poetries))
	}
	return n, nil
}

// Search runs q against the index. Hits are ordered by relevance.
func (e *Elastic) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, err
	}
	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(bytes.NewReader(body)),
		e.es.Search.WithTrackTotalHits(true))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res)
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	result := &domain.SearchResult{
		Total: out.Hits.Total.Value,
		Hits:  make([]domain.SearchHit, 0, len(out.Hits.Hits)),
	}
	for _, h := range out.Hits.Hits {
		result.Hits = append(result.Hits, domain.SearchHit{
			Poetry:    h.Source.poetry(),
			Score:     h.Score,
			Highlight: h.Highlight,
		})
	}
	return result, nil
}

// Suggest returns distinct titles and author names starting with prefix.
func (e *Elastic) Suggest(ctx context.Context, prefix string, size int) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []string{}, nil
	}
	s := newSuggestions(size)
	body, err := json.Marshal(buildSuggestQuery(prefix, s.limit))
	if err != nil {
		return nil, err
	}
	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(bytes.NewReader(body)))
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("suggest", res)
	}
	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode suggest response: %w", err)
	}

	for _, h := range out.Hits.Hits {
		if strings.HasPrefix(h.Source.Title, prefix) {
			s.add(h.Source.Title)
		}
		if strings.HasPrefix(h.Source.AuthorName, prefix) {
			s.add(h.Source.AuthorName)
		}
	}
	return s.list(), nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score     float64             `json:"_score"`
			Source    document            `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

type query = map[string]interface{}

// buildQuery translates q into an Elasticsearch request body. Only published poems match.
func buildQuery(q domain.SearchQuery) query {
	q.Page = q.Page.Normalize()
	filter := []query{
		{"term": query{"status": int(domain.StatusPublished)}},
	}
	if q.Dynasty != "" {
		filter = append(filter, query{"term": query{"dynasty": q.Dynasty}})
	}
	if q.Type != "" {
		filter = append(filter, query{"term": query{"type": q.Type}})
	}
	for _, tag := range q.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			filter = append(filter, query{"term": query{"tags": tag}})
		}
	}
	if q.AuthorName != "" {
		filter = append(filter, query{"match": query{"author_name": q.AuthorName}})
	}

	boolQuery := query{"filter": filter}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		boolQuery["should"] = []query{
			{"match": query{"title": query{"query": kw, "boost": 2.0}}},
			{"match": query{"content": query{"query": kw}}},
			{"match": query{"author_name": query{"query": kw}}},
		}
		boolQuery["minimum_should_match"] = 1
	}

	return query{
		"query": query{"bool": boolQuery},
		"from":  q.Page.Offset(),
		"size":  q.Page.PageSize,
		"sort": []interface{}{
			query{"_score": query{"order": "desc"}},
			query{"id": query{"order": "asc"}},
		},
		"highlight": query{
			"fields": query{
				"title":   query{},
				"content": query{},
			},
		},
	}
}

func buildSuggestQuery(prefix string, size int) query {
	return query{
		"query": query{
			"bool": query{
				"should": []query{
					{"prefix": query{"title.keyword": prefix}},
					{"prefix": query{"author_name.keyword": prefix}},
				},
				"minimum_should_match": 1,
				"filter": []query{
					{"term": query{"status": int(domain.StatusPublished)}},
				},
			},
		},
		"_source": []string{"title", "author_name"},
		"size":    size,
	}
}

func responseError(op string, res *esapi.Response) error {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("%s: %s: %s", op, res.Status(), strings.TrimSpace(string(b)))
}
