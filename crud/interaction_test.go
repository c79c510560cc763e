package crud

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"poetryHub/domain"
	"poetryHub/errs"
	"poetryHub/metrics"
	"poetryHub/testutil"
)

func TestLikeScenario(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	a := testutil.SeedUser(t, db, "alice")
	p := testutil.SeedPoetry(t, db)
	is := NewInteractionService(db, NewCounterLedger(), nil)

	applied, err := is.Like(ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, int64(1), testutil.ReloadPoetry(t, db, p.ID).LikeCount)

	applied, err = is.Like(ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, int64(1), testutil.ReloadPoetry(t, db, p.ID).LikeCount)

	liked, err := is.CheckLiked(ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.True(t, liked)

	applied, err = is.Unlike(ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, int64(0), testutil.ReloadPoetry(t, db, p.ID).LikeCount)

	applied, err = is.Unlike(ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, int64(0), testutil.ReloadPoetry(t, db, p.ID).LikeCount)

	liked, err = is.CheckLiked(ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.False(t, liked)
}

func TestCollectRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	a := testutil.SeedUser(t, db, "alice")
	p := testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.CollectCount = 4 })
	is := NewInteractionService(db, NewCounterLedger(), nil)

	applied, err := is.Collect(ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, int64(5), testutil.ReloadPoetry(t, db, p.ID).CollectCount)

	collected, err := is.CheckCollected(ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.True(t, collected)

	// A like is a separate edge.
	liked, err := is.CheckLiked(ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.False(t, liked)

	applied, err = is.Uncollect(ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, int64(4), testutil.ReloadPoetry(t, db, p.ID).CollectCount)
}

func TestUnlikeWithDriftedCounterStaysAtZero(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	a := testutil.SeedUser(t, db, "alice")
	p := testutil.SeedPoetry(t, db)
	// The edge exists while the counter already reads zero.
	testutil.SeedLike(t, db, a.ID, p.ID, p.CreatedAt)
	is := NewInteractionService(db, NewCounterLedger(), nil)

	applied, err := is.Unlike(ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, int64(0), testutil.ReloadPoetry(t, db, p.ID).LikeCount)
}

func TestInteractionNotFound(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	a := testutil.SeedUser(t, db, "alice")
	deleted := testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.Status = domain.StatusDeleted })
	is := NewInteractionService(db, NewCounterLedger(), nil)

	_, err := is.Like(ctx, a.ID, 999)
	require.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))

	_, err = is.Collect(ctx, a.ID, deleted.ID)
	require.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))

	_, err = is.Like(ctx, 0, deleted.ID)
	require.Equal(t, errs.EINVALID, errs.ErrorCode(err))
}

func TestConcurrentDoubleLike(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	a := testutil.SeedUser(t, db, "alice")
	p := testutil.SeedPoetry(t, db)
	is := NewInteractionService(db, NewCounterLedger(), nil)

	const n = 8
	results := make([]bool, n)
	errList := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errList[i] = is.Like(ctx, a.ID, p.ID)
		}(i)
	}
	wg.Wait()

	appliedCount := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errList[i])
		if results[i] {
			appliedCount++
		}
	}
	require.Equal(t, 1, appliedCount)

	var edges int64
	require.NoError(t, db.Model(&domain.PoetryLike{}).Where("poetry_id = ?", p.ID).Count(&edges).Error)
	require.Equal(t, int64(1), edges)
	require.Equal(t, int64(1), testutil.ReloadPoetry(t, db, p.ID).LikeCount)
}

func TestLikesFromDifferentUsersAccumulate(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	p := testutil.SeedPoetry(t, db)
	is := NewInteractionService(db, NewCounterLedger(), nil)

	names := []string{"a", "b", "c", "d"}
	errList := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		u := testutil.SeedUser(t, db, name)
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errList[i] = is.Like(ctx, id, p.ID)
		}(i, u.ID)
	}
	wg.Wait()
	for _, err := range errList {
		require.NoError(t, err)
	}

	require.Equal(t, int64(4), testutil.ReloadPoetry(t, db, p.ID).LikeCount)
}

func TestInteractionMetrics(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	a := testutil.SeedUser(t, db, "alice")
	p := testutil.SeedPoetry(t, db)
	m := metrics.New(prometheus.NewRegistry())
	is := NewInteractionService(db, NewCounterLedger(), m)

	_, err := is.Like(ctx, a.ID, p.ID)
	require.NoError(t, err)
	_, err = is.Like(ctx, a.ID, p.ID)
	require.NoError(t, err)

	require.Equal(t, 1.0, promtest.ToFloat64(m.Interactions.WithLabelValues("like", "applied")))
	require.Equal(t, 1.0, promtest.ToFloat64(m.Interactions.WithLabelValues("like", "noop")))
}
