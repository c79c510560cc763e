package domain

import (
	"context"
	"time"
)

// Strategy selects the attribute GetSimilar matches on.
type Strategy string

const (
	StrategyDynasty Strategy = "dynasty"
	StrategyAuthor  Strategy = "author"
	StrategyType    Strategy = "type"
)

func (s Strategy) Valid() bool {
	switch s {
	case StrategyDynasty, StrategyAuthor, StrategyType:
		return true
	}
	return false
}

// Hot score weights, scaled by 10 so ranking can be done in integer arithmetic.
const (
	HotWeightLike    = 4
	HotWeightCollect = 3
	HotWeightRead    = 2
	HotWeightComment = 1
)

// HotScore is 0.4*likes + 0.3*collections + 0.2*reads + 0.1*comments.
// Rankings order by the integer form HotScoreFixed, which sorts identically.
func HotScore(p *Poetry) float64 {
	return float64(HotScoreFixed(p)) / 10
}

// HotScoreFixed is ten times HotScore.
func HotScoreFixed(p *Poetry) int64 {
	return HotWeightLike*p.LikeCount +
		HotWeightCollect*p.CollectCount +
		HotWeightRead*p.ReadCount +
		HotWeightComment*p.CommentCount
}

// DailySeed is the UTC calendar date of t as the integer YYYYMMDD.
func DailySeed(t time.Time) int64 {
	t = t.UTC()
	return int64(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// PreferenceProfile is derived from a user's recent likes and collections. It is never stored.
type PreferenceProfile struct {
	Dynasty   string  `json:"dynasty"`
	Type      string  `json:"type"`
	AuthorIDs []int64 `json:"author_ids"`
}

// Empty reports whether no preference could be derived.
func (p PreferenceProfile) Empty() bool {
	return p.Dynasty == "" && p.Type == "" && len(p.AuthorIDs) == 0
}

// RecommendService ranks published poems. Every method returns a non-nil slice.
type RecommendService interface {
	Hot(ctx context.Context, limit, windowDays int) ([]Poetry, error)
	// HotWindow is the configured default window of Hot, in days. Zero means all time.
	HotWindow() int
	Daily(ctx context.Context, limit int) ([]Poetry, error)
	Random(ctx context.Context, limit int, excludeIDs []int64) ([]Poetry, error)
	Similar(ctx context.Context, poetryID int64, strategy Strategy, limit int) ([]Poetry, error)
	Personalized(ctx context.Context, userID int64, limit int) ([]Poetry, error)
}
