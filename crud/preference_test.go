package crud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"poetryHub/domain"
	"poetryHub/testutil"
)

func int64Ptr(v int64) *int64 { return &v }

func TestBuildProfileTiesGoToFirstSeen(t *testing.T) {
	poetries := []domain.Poetry{
		{ID: 1, Dynasty: "Song", Type: "ci", AuthorID: int64Ptr(7)},
		{ID: 2, Dynasty: "Tang", Type: "shi", AuthorID: int64Ptr(8)},
		{ID: 3, Dynasty: "Tang", Type: "ci", AuthorID: int64Ptr(9)},
		{ID: 4, Dynasty: "Song", Type: "shi", AuthorID: int64Ptr(10)},
		{ID: 5, AuthorID: int64Ptr(10)},
	}

	profile := buildProfile(poetries)
	require.Equal(t, "Song", profile.Dynasty)
	require.Equal(t, "ci", profile.Type)
	require.Equal(t, []int64{10, 7, 8}, profile.AuthorIDs)
}

func TestBuildProfileEmpty(t *testing.T) {
	profile := buildProfile([]domain.Poetry{{ID: 1}, {ID: 2}})
	require.True(t, profile.Empty())
}

func TestPersonalizedFallsBackToHot(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{HotWindowDays: DefaultHotWindowDays})
	db := rs.db
	u := testutil.SeedUser(t, db, "alice")
	testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.LikeCount = 3 })
	testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.CollectCount = 8 })
	testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.ReadCount = 1 })

	got, err := rs.Personalized(ctx, u.ID, 10)
	require.NoError(t, err)
	hot, err := rs.Hot(ctx, 10, DefaultHotWindowDays)
	require.NoError(t, err)
	require.Equal(t, ids(hot), ids(got))
	require.Len(t, got, 3)
}

func TestPersonalizedFallsBackWhenSourcesDeleted(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{HotWindowDays: DefaultHotWindowDays})
	db := rs.db
	u := testutil.SeedUser(t, db, "alice")
	gone := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.Dynasty = "Tang"
		p.Status = domain.StatusDeleted
	})
	testutil.SeedLike(t, db, u.ID, gone.ID, time.Now())
	testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.Dynasty = "Song" })

	got, err := rs.Personalized(ctx, u.ID, 10)
	require.NoError(t, err)
	hot, err := rs.Hot(ctx, 10, DefaultHotWindowDays)
	require.NoError(t, err)
	require.Equal(t, ids(hot), ids(got))
}

func TestPersonalizedPrefersFavoritesAndSkipsSeen(t *testing.T) {
	ctx := context.Background()
	rs := newRecommendService(t, RecommendConfig{})
	db := rs.db
	u := testutil.SeedUser(t, db, "alice")
	du := testutil.SeedAuthor(t, db, "Du Fu", "Tang")
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	liked1 := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.Dynasty = "Tang"
		p.Type = "lushi"
	})
	liked2 := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.Dynasty = "Tang"
		p.AuthorID = &du.ID
	})
	collected := testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.Dynasty = "Tang" })
	testutil.SeedLike(t, db, u.ID, liked1.ID, base)
	testutil.SeedLike(t, db, u.ID, liked2.ID, base.Add(time.Hour))
	testutil.SeedCollection(t, db, u.ID, collected.ID, base)

	tangPopular := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.Dynasty = "Tang"
		p.LikeCount = 20
	})
	byDuFu := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.Dynasty = "Song"
		p.AuthorID = &du.ID
		p.LikeCount = 5
	})
	lushi := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.Type = "lushi"
		p.LikeCount = 1
	})
	testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.Dynasty = "Song"
		p.LikeCount = 99
	})
	testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.Dynasty = "Tang"
		p.LikeCount = 50
		p.Status = domain.StatusDraft
	})

	got, err := rs.Personalized(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Equal(t, []int64{tangPopular.ID, byDuFu.ID, lushi.ID}, ids(got))
}

func TestRecentInteractionsOrderAndDedup(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	u := testutil.SeedUser(t, db, "alice")
	ps := testutil.SeedPoetries(t, db, 3)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	testutil.SeedLike(t, db, u.ID, ps[0].ID, base)
	testutil.SeedLike(t, db, u.ID, ps[1].ID, base.Add(time.Minute))
	testutil.SeedCollection(t, db, u.ID, ps[0].ID, base.Add(time.Hour))
	testutil.SeedCollection(t, db, u.ID, ps[2].ID, base)

	got, err := recentInteractions(ctx, db, u.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{ps[1].ID, ps[0].ID, ps[2].ID}, got)
}
