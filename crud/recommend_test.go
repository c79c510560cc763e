package crud

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"poetryHub/cache"
	"poetryHub/domain"
	"poetryHub/errs"
	"poetryHub/metrics"
	"poetryHub/testutil"
)

func newRecommendService(t *testing.T, cfg RecommendConfig) *RecommendService {
	t.Helper()
	db := testutil.DB(t)
	return NewRecommendService(db, cfg, nil, nil, testutil.Logger(t))
}

func newMemoryCache(t *testing.T) *cache.Memory {
	t.Helper()
	mem, err := cache.NewMemory(0)
	require.NoError(t, err)
	t.Cleanup(mem.Close)
	return mem
}

func ids(poetries []domain.Poetry) []int64 {
	out := make([]int64, len(poetries))
	for i, p := range poetries {
		out[i] = p.ID
	}
	return out
}

func TestHotOrdersByScore(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{HotWindowDays: DefaultHotWindowDays})
	db := rs.db

	low := testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.LikeCount = 1 })
	high := testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.LikeCount = 10 })
	mid := testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.LikeCount = 5 })
	testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.LikeCount = 100
		p.Status = domain.StatusDraft
	})

	got, err := rs.Hot(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{high.ID, mid.ID, low.ID}, ids(got))
}

func TestHotUsesAllWeightedCounters(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{})
	db := rs.db

	// 0.4*5 = 2.0
	likes := testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.LikeCount = 5 })
	// 0.3*4 + 0.2*3 + 0.1*3 = 2.1
	mixed := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.CollectCount = 4
		p.ReadCount = 3
		p.CommentCount = 3
	})
	// view and reply counters don't count, 0.1*1 = 0.1
	comments := testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.CommentCount = 1 })

	got, err := rs.Hot(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{mixed.ID, likes.ID, comments.ID}, ids(got))
}

func TestHotTiesBreakByID(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{})
	ps := testutil.SeedPoetries(t, rs.db, 4)

	got, err := rs.Hot(ctx, 3, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{ps[0].ID, ps[1].ID, ps[2].ID}, ids(got))
}

func TestHotWindow(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{})
	db := rs.db
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	rs.now = func() time.Time { return now }

	recent := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.LikeCount = 1
		p.CreatedAt = now.Add(-2 * 24 * time.Hour)
	})
	old := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.LikeCount = 50
		p.CreatedAt = now.Add(-30 * 24 * time.Hour)
	})

	got, err := rs.Hot(ctx, 10, 7)
	require.NoError(t, err)
	require.Equal(t, []int64{recent.ID}, ids(got))

	got, err = rs.Hot(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{old.ID, recent.ID}, ids(got))
}

func TestHotValidation(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{})

	_, err := rs.Hot(ctx, 0, 7)
	require.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	_, err = rs.Hot(ctx, MaxRecommendLimit+1, 7)
	require.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	_, err = rs.Hot(ctx, 5, -1)
	require.Equal(t, errs.EINVALID, errs.ErrorCode(err))
}

func TestDailyIsStableWithinADay(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{})
	testutil.SeedPoetries(t, rs.db, 30)

	morning := time.Date(2024, 2, 1, 0, 5, 0, 0, time.UTC)
	evening := time.Date(2024, 2, 1, 23, 55, 0, 0, time.UTC)

	first, err := rs.DailyFor(ctx, morning, 10)
	require.NoError(t, err)
	second, err := rs.DailyFor(ctx, evening, 10)
	require.NoError(t, err)
	require.Len(t, first, 10)
	require.Equal(t, ids(first), ids(second))
}

func TestDailyChangesAcrossDays(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{})
	testutil.SeedPoetries(t, rs.db, 30)

	day1, err := rs.DailyFor(ctx, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), 30)
	require.NoError(t, err)
	day2, err := rs.DailyFor(ctx, time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC), 30)
	require.NoError(t, err)

	require.Len(t, day1, 30)
	require.Len(t, day2, 30)
	require.NotEqual(t, ids(day1), ids(day2))
	require.ElementsMatch(t, ids(day1), ids(day2))
}

func TestDailySkipsUnpublished(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{})
	published := testutil.SeedPoetry(t, rs.db)
	testutil.SeedPoetry(t, rs.db, func(p *domain.Poetry) { p.Status = domain.StatusDeleted })

	got, err := rs.Daily(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, []int64{published.ID}, ids(got))
}

func TestDailyCache(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	mem := newMemoryCache(t)
	m := metrics.New(prometheus.NewRegistry())
	rs := NewRecommendService(db, RecommendConfig{DailyCache: true}, mem, m, testutil.Logger(t))
	rs.now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }
	testutil.SeedPoetries(t, db, 5)

	first, err := rs.Daily(ctx, 3)
	require.NoError(t, err)
	_, err = mem.Get(ctx, "recommend:daily:20240201:3")
	require.NoError(t, err)

	// Served from the cache, so a new poem does not change today's list.
	testutil.SeedPoetries(t, db, 20)
	second, err := rs.Daily(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, ids(first), ids(second))
	require.Equal(t, 1.0, promtest.ToFloat64(m.Recommendations.WithLabelValues("daily", "cache")))
}

func TestSimilar(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{})
	db := rs.db
	li := testutil.SeedAuthor(t, db, "Li Bai", "Tang")

	src := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.AuthorID = &li.ID
		p.Dynasty = "Tang"
		p.Type = "jueju"
	})
	popular := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.AuthorID = &li.ID
		p.Dynasty = "Tang"
		p.LikeCount = 9
	})
	quiet := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.AuthorID = &li.ID
		p.LikeCount = 1
	})
	song := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.Dynasty = "Song"
		p.Type = "jueju"
		p.LikeCount = 3
	})

	got, err := rs.Similar(ctx, src.ID, domain.StrategyAuthor, 5)
	require.NoError(t, err)
	require.Equal(t, []int64{popular.ID, quiet.ID}, ids(got))
	require.NotNil(t, got[0].Author)
	require.Equal(t, "Li Bai", got[0].Author.Name)

	got, err = rs.Similar(ctx, src.ID, domain.StrategyDynasty, 5)
	require.NoError(t, err)
	require.Equal(t, []int64{popular.ID}, ids(got))

	got, err = rs.Similar(ctx, src.ID, domain.StrategyType, 5)
	require.NoError(t, err)
	require.Equal(t, []int64{song.ID}, ids(got))
}

func TestSimilarWithoutAttributeIsEmpty(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{})
	src := testutil.SeedPoetry(t, rs.db)
	testutil.SeedPoetries(t, rs.db, 3)

	got, err := rs.Similar(ctx, src.ID, domain.StrategyAuthor, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)

	got, err = rs.Similar(ctx, src.ID, domain.StrategyDynasty, 5)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSimilarErrors(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{})
	src := testutil.SeedPoetry(t, rs.db)

	_, err := rs.Similar(ctx, 12345, domain.StrategyAuthor, 5)
	require.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))

	_, err = rs.Similar(ctx, src.ID, domain.Strategy("rhyme"), 5)
	require.Equal(t, errs.EINVALID, errs.ErrorCode(err))
}

func TestDailyCacheDropsUnpublishedPoems(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	rs := NewRecommendService(db, RecommendConfig{DailyCache: true}, newMemoryCache(t), nil, testutil.Logger(t))
	rs.now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }
	testutil.SeedPoetries(t, db, 5)

	first, err := rs.Daily(ctx, 5)
	require.NoError(t, err)
	require.Len(t, first, 5)

	gone, hidden := first[1].ID, first[3].ID
	require.NoError(t, db.Model(&domain.Poetry{}).Where("id = ?", gone).Update("status", domain.StatusDeleted).Error)
	require.NoError(t, db.Model(&domain.Poetry{}).Where("id = ?", hidden).Update("status", domain.StatusDraft).Error)

	second, err := rs.Daily(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, []int64{first[0].ID, first[2].ID, first[4].ID}, ids(second))
}

func TestHotCacheDropsUnpublishedPoems(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	rs := NewRecommendService(db, RecommendConfig{HotCacheTTL: time.Minute}, newMemoryCache(t), nil, testutil.Logger(t))
	top := testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.LikeCount = 9 })
	next := testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.LikeCount = 3 })

	got, err := rs.Hot(ctx, 5, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{top.ID, next.ID}, ids(got))

	require.NoError(t, db.Model(&domain.Poetry{}).Where("id = ?", top.ID).Update("status", domain.StatusDeleted).Error)
	got, err = rs.Hot(ctx, 5, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{next.ID}, ids(got))
}

func TestCachedLoadOutlivesCancelledCaller(t *testing.T) {
	db := testutil.DB(t)
	mem := newMemoryCache(t)
	rs := NewRecommendService(db, RecommendConfig{HotCacheTTL: time.Minute}, mem, nil, testutil.Logger(t))
	p := testutil.SeedPoetry(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The shared load runs detached from the caller, so it still fills the cache.
	got, err := rs.Hot(ctx, 5, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{p.ID}, ids(got))
	_, err = mem.Get(context.Background(), "recommend:hot:5:0")
	require.NoError(t, err)
}

func TestRandom(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{})
	ps := testutil.SeedPoetries(t, rs.db, 6)
	testutil.SeedPoetry(t, rs.db, func(p *domain.Poetry) { p.Status = domain.StatusDraft })

	got, err := rs.Random(ctx, 10, nil)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{ps[0].ID, ps[1].ID, ps[2].ID, ps[3].ID, ps[4].ID, ps[5].ID}, ids(got))

	got, err = rs.Random(ctx, 3, []int64{ps[0].ID, ps[1].ID})
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.NotContains(t, ids(got), ps[0].ID)
	require.NotContains(t, ids(got), ps[1].ID)

	got, err = rs.Random(ctx, 5, []int64{ps[0].ID, ps[1].ID, ps[2].ID, ps[3].ID, ps[4].ID, ps[5].ID})
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = rs.Random(ctx, 0, nil)
	require.Equal(t, errs.EINVALID, errs.ErrorCode(err))
}

func TestHotWindowComesFromConfig(t *testing.T) {
	require.Equal(t, 30, newRecommendService(t, RecommendConfig{HotWindowDays: 30}).HotWindow())
	require.Equal(t, DefaultHotWindowDays, newRecommendService(t, RecommendConfig{HotWindowDays: -1}).HotWindow())
}
