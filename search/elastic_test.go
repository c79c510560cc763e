package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"poetryHub/domain"
	"poetryHub/logger"
)

func TestBuildQuery(t *testing.T) {
	q := buildQuery(domain.SearchQuery{
		Keyword: "moon",
		Dynasty: "Tang",
		Tags:    []string{"night", " "},
		Page:    domain.Page{Page: 3, PageSize: 10},
	})
	b, err := json.Marshal(q)
	require.NoError(t, err)

	var got struct {
		From  int `json:"from"`
		Size  int `json:"size"`
		Query struct {
			Bool struct {
				Filter             []map[string]map[string]interface{} `json:"filter"`
				Should             []map[string]interface{}            `json:"should"`
				MinimumShouldMatch int                                 `json:"minimum_should_match"`
			} `json:"bool"`
		} `json:"query"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, 20, got.From)
	require.Equal(t, 10, got.Size)
	require.Len(t, got.Query.Bool.Should, 3)
	require.Equal(t, 1, got.Query.Bool.MinimumShouldMatch)
	require.Len(t, got.Query.Bool.Filter, 3)
	require.Equal(t, float64(1), got.Query.Bool.Filter[0]["term"]["status"])
	require.Equal(t, "Tang", got.Query.Bool.Filter[1]["term"]["dynasty"])
	require.Equal(t, "night", got.Query.Bool.Filter[2]["term"]["tags"])
}

func TestBuildQueryWithoutKeyword(t *testing.T) {
	q := buildQuery(domain.SearchQuery{})
	boolQuery := q["query"].(query)["bool"].(query)
	_, hasShould := boolQuery["should"]
	require.False(t, hasShould)
	require.Equal(t, 0, q["from"])
	require.Equal(t, 20, q["size"])
}

// fakeCluster answers just enough of the Elasticsearch API for the gateway.
type fakeCluster struct {
	mu     sync.Mutex
	bodies map[string]string
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.bodies[r.Method+" "+r.URL.Path] = string(body)
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodHead:
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"result":"not_found"}`)
	case strings.HasSuffix(r.URL.Path, "/_search"):
		io.WriteString(w, `{"hits":{"total":{"value":1},"hits":[{"_score":1.5,
			"_source":{"id":7,"title":"Quiet Night Thought","author_id":3,"author_name":"Li Bai","tags":["moon"],"status":1},
			"highlight":{"title":["Quiet <em>Night</em> Thought"]}}]}}`)
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		io.WriteString(w, `{"errors":true,"items":[{"index":{"status":201}},{"index":{"status":400}}]}`)
	default:
		io.WriteString(w, `{"acknowledged":true,"result":"created"}`)
	}
}

func newFakeElastic(t *testing.T) (*Elastic, *fakeCluster) {
	t.Helper()
	fc := &fakeCluster{bodies: map[string]string{}}
	srv := httptest.NewServer(fc)
	t.Cleanup(srv.Close)
	e, err := NewElastic([]string{srv.URL}, "", logger.Nop())
	require.NoError(t, err)
	return e, fc
}

func TestElasticGateway(t *testing.T) {
	ctx := context.Background()
	e, fc := newFakeElastic(t)

	require.NoError(t, e.EnsureIndex(ctx))
	require.Contains(t, fc.bodies["PUT /poetries"], `"author_name"`)

	authorID := int64(3)
	p := &domain.Poetry{
		ID:       7,
		Title:    "Quiet Night Thought",
		AuthorID: &authorID,
		Author:   &domain.Author{ID: 3, Name: "Li Bai"},
		Tags:     datatypes.JSON(`["moon"]`),
		Status:   domain.StatusPublished,
	}
	require.NoError(t, e.IndexPoetry(ctx, p))
	require.Contains(t, fc.bodies["PUT /poetries/_doc/7"], `"author_name":"Li Bai"`)

	require.NoError(t, e.DeletePoetry(ctx, 7))

	res, err := e.Search(ctx, domain.SearchQuery{Keyword: "night"})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Total)
	require.Equal(t, int64(7), res.Hits[0].Poetry.ID)
	require.Equal(t, "Li Bai", res.Hits[0].Poetry.Author.Name)
	require.Equal(t, 1.5, res.Hits[0].Score)
	require.Equal(t, []string{"moon"}, tagsOf(res.Hits[0].Poetry.Tags))
	require.NotEmpty(t, res.Hits[0].Highlight["title"])

	n, err := e.BulkIndex(ctx, []domain.Poetry{*p, {ID: 8, Title: "x"}})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := e.Suggest(ctx, "Quiet", 5)
	require.NoError(t, err)
	require.Equal(t, []string{"Quiet Night Thought"}, got)
}
