package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"poetryHub/crud"
	"poetryHub/domain"
	"poetryHub/metrics"
	"poetryHub/search"
	"poetryHub/testutil"
)

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	return newTestServerWith(t, crud.RecommendConfig{HotWindowDays: crud.DefaultHotWindowDays})
}

// newTestServerWith is newTestServer with the given recommendation settings.
func newTestServerWith(t *testing.T, rcfg crud.RecommendConfig) (*Server, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	reg := prometheus.NewRegistry()
	sql := search.NewSQL(db)
	services, err := crud.NewServices(db, testutil.Logger(t),
		crud.WithMetrics(metrics.New(reg)),
		crud.WithSearch(sql, sql),
		crud.WithUser("pepper", "hmac-key"),
		crud.WithAuthor(),
		crud.WithPoetry(),
		crud.WithInteraction(),
		crud.WithRecommend(rcfg),
		crud.WithPost(),
		crud.WithComment(),
		crud.WithFollow(),
		crud.WithMessage(),
	)
	require.NoError(t, err)
	return NewServer(Config{}, testutil.Logger(t), services, reg), db
}

// do sends a request to s, with the given cookie when it is not nil.
func do(t *testing.T, s *Server, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

// register signs up a user and returns their remember token cookie.
func register(t *testing.T, s *Server, username string) *http.Cookie {
	t.Helper()
	rec := do(t, s, "POST", "/register", credentials{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == rememberCookie {
			return c
		}
	}
	t.Fatal("no remember token cookie")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestLikeEndpoints(t *testing.T) {
	s, db := newTestServer(t)
	cookie := register(t, s, "alice")
	p := testutil.SeedPoetry(t, db)
	path := fmt.Sprintf("/interactions/like/%d", p.ID)

	var res struct {
		Applied *bool `json:"applied"`
		Liked   bool  `json:"liked"`
	}

	rec := do(t, s, "POST", path, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &res)
	require.True(t, *res.Applied)
	require.True(t, res.Liked)

	// A repeated like is a no-op, not an error.
	rec = do(t, s, "POST", path, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &res)
	require.False(t, *res.Applied)
	require.Equal(t, int64(1), testutil.ReloadPoetry(t, db, p.ID).LikeCount)

	rec = do(t, s, "GET", path+"/check", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	res.Applied = nil
	decode(t, rec, &res)
	require.Nil(t, res.Applied)
	require.True(t, res.Liked)

	rec = do(t, s, "DELETE", path, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &res)
	require.True(t, *res.Applied)
	require.False(t, res.Liked)
	require.Equal(t, int64(0), testutil.ReloadPoetry(t, db, p.ID).LikeCount)

	rec = do(t, s, "POST", path, nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, "POST", fmt.Sprintf("/interactions/like/%d", p.ID+100), nil, cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollectAndListEndpoints(t *testing.T) {
	s, db := newTestServer(t)
	cookie := register(t, s, "alice")
	poems := testutil.SeedPoetries(t, db, 2)

	rec := do(t, s, "POST", fmt.Sprintf("/interactions/collect/%d", poems[1].ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, "GET", "/interactions/collections", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []domain.Poetry `json:"items"`
		Total int64           `json:"total"`
	}
	decode(t, rec, &page)
	require.Equal(t, int64(1), page.Total)
	require.Equal(t, poems[1].ID, page.Items[0].ID)
}

func TestRecommendParams(t *testing.T) {
	s, db := newTestServer(t)
	testutil.SeedPoetries(t, db, 3)

	for path, code := range map[string]int{
		"/recommend/hot":                     http.StatusOK,
		"/recommend/hot?limit=0":             http.StatusBadRequest,
		"/recommend/hot?limit=51":            http.StatusBadRequest,
		"/recommend/hot?days=366":            http.StatusBadRequest,
		"/recommend/hot?limit=abc":           http.StatusBadRequest,
		"/recommend/daily?limit=20":          http.StatusOK,
		"/recommend/daily?limit=21":          http.StatusBadRequest,
		"/recommend/similar/1?strategy=mood": http.StatusBadRequest,
		"/recommend/similar/999":             http.StatusNotFound,
		"/recommend/personalized":            http.StatusUnauthorized,
	} {
		rec := do(t, s, "GET", path, nil, nil)
		require.Equal(t, code, rec.Code, path)
	}

	rec := do(t, s, "GET", "/recommend/daily?limit=2", nil, nil)
	var daily []domain.Poetry
	decode(t, rec, &daily)
	require.Len(t, daily, 2)
}

func TestPersonalizedFallsBackToHot(t *testing.T) {
	s, db := newTestServer(t)
	cookie := register(t, s, "alice")
	testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.LikeCount = 1 })
	top := testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.LikeCount = 9 })

	rec := do(t, s, "GET", "/recommend/personalized?limit=5", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.Poetry
	decode(t, rec, &got)
	require.Len(t, got, 2)
	require.Equal(t, top.ID, got[0].ID)
}

func TestHotDefaultsToConfiguredWindow(t *testing.T) {
	s, db := newTestServerWith(t, crud.RecommendConfig{HotWindowDays: 30})
	cookie := register(t, s, "alice")
	old := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.LikeCount = 9
		p.CreatedAt = time.Now().AddDate(0, 0, -10)
	})
	fresh := testutil.SeedPoetry(t, db)

	ids := func(path string, cookie *http.Cookie) []int64 {
		t.Helper()
		rec := do(t, s, "GET", path, nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code, path)
		var got []domain.Poetry
		decode(t, rec, &got)
		out := []int64{}
		for _, p := range got {
			out = append(out, p.ID)
		}
		return out
	}

	hot := ids("/recommend/hot?limit=5", nil)
	require.Equal(t, []int64{old.ID, fresh.ID}, hot)
	require.Equal(t, hot, ids("/recommend/personalized?limit=5", cookie))

	// An explicit window still wins.
	require.Equal(t, []int64{fresh.ID}, ids("/recommend/hot?limit=5&days=7", nil))
}

func TestRandomEndpoint(t *testing.T) {
	s, db := newTestServer(t)
	poems := testutil.SeedPoetries(t, db, 3)

	rec := do(t, s, "GET", fmt.Sprintf("/recommend/random?limit=5&exclude_ids=%d,%d", poems[0].ID, poems[2].ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.Poetry
	decode(t, rec, &got)
	require.Len(t, got, 1)
	require.Equal(t, poems[1].ID, got[0].ID)

	for path, code := range map[string]int{
		"/recommend/random":                 http.StatusOK,
		"/recommend/random?limit=51":        http.StatusBadRequest,
		"/recommend/random?exclude_ids=a,1": http.StatusBadRequest,
		"/recommend/random?exclude_ids=0":   http.StatusBadRequest,
	} {
		rec := do(t, s, "GET", path, nil, nil)
		require.Equal(t, code, rec.Code, path)
	}
}

func TestHotAuthorsEndpoint(t *testing.T) {
	s, db := newTestServer(t)
	li := testutil.SeedAuthor(t, db, "Li Bai", "Tang")
	du := testutil.SeedAuthor(t, db, "Du Fu", "Tang")
	testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.AuthorID = &li.ID })
	for i := 0; i < 2; i++ {
		testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.AuthorID = &du.ID })
	}

	rec := do(t, s, "GET", "/authors/hot?limit=5", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.HotAuthor
	decode(t, rec, &got)
	require.Len(t, got, 2)
	require.Equal(t, du.ID, got[0].ID)
	require.Equal(t, int64(2), got[0].PoetryCount)
	require.Equal(t, li.ID, got[1].ID)

	rec = do(t, s, "GET", "/authors/hot?limit=0", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommentEndpoints(t *testing.T) {
	s, db := newTestServer(t)
	alice := register(t, s, "alice")
	bob := register(t, s, "bob")
	p := testutil.SeedPoetry(t, db)

	rec := do(t, s, "POST", "/comments", map[string]interface{}{
		"target_type": domain.TargetPoetry,
		"target_id":   p.ID,
		"content":     "lovely",
	}, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var comment domain.Comment
	decode(t, rec, &comment)
	path := fmt.Sprintf("/comments/%d", comment.ID)

	rec = do(t, s, "PUT", path, map[string]string{"content": "mine"}, bob)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, s, "PUT", path, map[string]string{"content": "lovelier"}, alice)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, "GET", path, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &comment)
	require.Equal(t, "lovelier", comment.Content)

	rec = do(t, s, "GET", "/comments/user/my", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []domain.Comment `json:"items"`
		Total int64            `json:"total"`
	}
	decode(t, rec, &page)
	require.Equal(t, int64(1), page.Total)
	require.Equal(t, comment.ID, page.Items[0].ID)

	rec = do(t, s, "GET", "/comments/user/my", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, "DELETE", path, nil, alice)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, "GET", path, nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessageGetAndDeleteEndpoints(t *testing.T) {
	s, db := newTestServer(t)
	alice := register(t, s, "alice")
	bob := register(t, s, "bob")

	var bobUser domain.User
	require.NoError(t, db.First(&bobUser, "username = ?", "bob").Error)
	rec := do(t, s, "POST", fmt.Sprintf("/follow/%d", bobUser.ID), nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)

	var msg domain.Message
	require.NoError(t, db.First(&msg, "user_id = ?", bobUser.ID).Error)
	path := fmt.Sprintf("/messages/%d", msg.ID)

	rec = do(t, s, "GET", path, nil, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Message
	decode(t, rec, &got)
	require.Equal(t, domain.MessageFollow, got.Type)

	rec = do(t, s, "GET", path, nil, alice)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, s, "DELETE", path, nil, alice)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, "DELETE", path, nil, bob)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, "GET", path, nil, bob)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginLogout(t *testing.T) {
	s, _ := newTestServer(t)
	cookie := register(t, s, "alice")

	rec := do(t, s, "GET", "/profile", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, "POST", "/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	// The old token has been rotated away.
	rec = do(t, s, "GET", "/profile", nil, cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, "POST", "/login", credentials{Email: "alice@example.com", Password: "wrong-pass"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, "POST", "/login", credentials{Email: "alice@example.com", Password: "password123"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Result().Cookies())
}

func TestFollowAndMessagesEndpoints(t *testing.T) {
	s, db := newTestServer(t)
	alice := register(t, s, "alice")
	bob := register(t, s, "bob")

	var bobUser domain.User
	require.NoError(t, db.First(&bobUser, "username = ?", "bob").Error)

	rec := do(t, s, "POST", fmt.Sprintf("/follow/%d", bobUser.ID), nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var fr followResponse
	decode(t, rec, &fr)
	require.True(t, fr.Applied)

	rec = do(t, s, "GET", "/messages/unread", nil, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	var unread unreadResponse
	decode(t, rec, &unread)
	require.Equal(t, int64(1), unread.Total)
	require.Equal(t, int64(1), unread.ByType[domain.MessageFollow])

	rec = do(t, s, "PUT", "/messages/read", nil, bob)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, "GET", "/messages?type=bogus", nil, bob)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, "GET", fmt.Sprintf("/users/%d", bobUser.ID), nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile struct {
		Followers   int64 `json:"follower_count"`
		IsFollowing *bool `json:"is_following"`
	}
	decode(t, rec, &profile)
	require.Equal(t, int64(1), profile.Followers)
	require.True(t, *profile.IsFollowing)
}

func TestSearchEndpoint(t *testing.T) {
	s, db := newTestServer(t)
	testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.Title = "Spring Dawn" })
	testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.Title = "Autumn Wind" })

	rec := do(t, s, "GET", "/search/poetries?keyword=Spring", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []domain.SearchHit `json:"items"`
		Total int64              `json:"total"`
	}
	decode(t, rec, &page)
	require.Equal(t, int64(1), page.Total)
	require.Equal(t, "Spring Dawn", page.Items[0].Poetry.Title)

	rec = do(t, s, "GET", "/search/suggest?prefix=Aut", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var suggestions []string
	decode(t, rec, &suggestions)
	require.Equal(t, []string{"Autumn Wind"}, suggestions)

	rec = do(t, s, "GET", "/search/suggest", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthMetricsAndRequestID(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, "GET", "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = do(t, s, "GET", "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
