package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHotScore(t *testing.T) {
	p := &Poetry{LikeCount: 10, CollectCount: 5, ReadCount: 100, CommentCount: 3}
	require.Equal(t, int64(40+15+200+3), HotScoreFixed(p))
	require.InDelta(t, 25.8, HotScore(p), 1e-9)

	// Views and replies are not part of the score.
	require.Equal(t, 0.0, HotScore(&Poetry{}))
}

func TestDailySeed(t *testing.T) {
	day := time.Date(2024, time.March, 9, 23, 59, 0, 0, time.UTC)
	require.Equal(t, int64(20240309), DailySeed(day))

	// The seed follows the UTC date, not the local one.
	shanghai := time.FixedZone("CST", 8*3600)
	local := time.Date(2024, time.March, 10, 1, 0, 0, 0, shanghai)
	require.Equal(t, int64(20240309), DailySeed(local))
}

func TestPageNormalize(t *testing.T) {
	p := Page{}.Normalize()
	require.Equal(t, Page{Page: 1, PageSize: DefaultPageSize}, p)
	require.Equal(t, 0, p.Offset())

	p = Page{Page: 3, PageSize: 500}.Normalize()
	require.Equal(t, MaxPageSize, p.PageSize)
	require.Equal(t, 200, p.Offset())
}

func TestCounterEntityHas(t *testing.T) {
	require.True(t, EntityPoetry.Has(ReadCount))
	require.False(t, EntityPoetry.Has(ViewCount))
	require.True(t, EntityPost.Has(ViewCount))
	require.True(t, EntityComment.Has(ReplyCount))
	require.False(t, EntityComment.Has(CollectCount))
}

func TestStrategyValid(t *testing.T) {
	require.True(t, StrategyAuthor.Valid())
	require.False(t, Strategy("tag").Valid())
}
