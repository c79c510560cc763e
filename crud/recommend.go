package crud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"poetryHub/cache"
	"poetryHub/domain"
	"poetryHub/errs"
	"poetryHub/logger"
	"poetryHub/metrics"
)

const (
	DefaultHotWindowDays = 7
	MaxRecommendLimit    = 50
)

// hotScoreOrder is domain.HotScoreFixed in SQL.
var hotScoreOrder = fmt.Sprintf("(%d*like_count + %d*collect_count + %d*read_count + %d*comment_count) DESC",
	domain.HotWeightLike, domain.HotWeightCollect, domain.HotWeightRead, domain.HotWeightComment)

// RecommendConfig tunes the RecommendService.
type RecommendConfig struct {
	// HotWindowDays is the window used when personalized recommendations fall back to hot.
	HotWindowDays int
	// HotCacheTTL caches hot lists for this long. Zero disables hot caching.
	HotCacheTTL time.Duration
	// DailyCache caches each day's list until the next UTC midnight.
	DailyCache bool
}

// RecommendService ranks published poems.
// It implements the domain.RecommendService interface.
type RecommendService struct {
	recommendValidator
}

// recommendValidator checks limits and strategies before handing over to recommendGorm.
type recommendValidator struct {
	recommendGorm
}

// recommendGorm runs the ranking queries. Results are read without locks and may
// reflect counters that are slightly stale.
type recommendGorm struct {
	db      *gorm.DB
	cfg     RecommendConfig
	cache   cache.Cache
	group   singleflight.Group
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// NewRecommendService returns an instance of RecommendService. c and m may be nil.
func NewRecommendService(db *gorm.DB, cfg RecommendConfig, c cache.Cache, m *metrics.Metrics, log *logger.Logger) *RecommendService {
	if cfg.HotWindowDays < 0 {
		cfg.HotWindowDays = DefaultHotWindowDays
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RecommendService{
		recommendValidator{
			recommendGorm{
				db:      db,
				cfg:     cfg,
				cache:   c,
				metrics: m,
				log:     log.With("service", "RecommendService"),
				now:     time.Now,
			},
		},
	}
}

// Ensure the RecommendService struct properly implements the domain.RecommendService interface.
var _ domain.RecommendService = &RecommendService{}

func (rv *recommendValidator) Hot(ctx context.Context, limit, windowDays int) ([]domain.Poetry, error) {
	if err := limitValid(limit); err != nil {
		return nil, err
	}
	if windowDays < 0 {
		return nil, errs.Errorf(errs.EINVALID, "The window must not be negative.")
	}
	return rv.recommendGorm.Hot(ctx, limit, windowDays)
}

func (rv *recommendValidator) Random(ctx context.Context, limit int, excludeIDs []int64) ([]domain.Poetry, error) {
	if err := limitValid(limit); err != nil {
		return nil, err
	}
	return rv.recommendGorm.Random(ctx, limit, excludeIDs)
}

func (rv *recommendValidator) Daily(ctx context.Context, limit int) ([]domain.Poetry, error) {
	if err := limitValid(limit); err != nil {
		return nil, err
	}
	return rv.recommendGorm.Daily(ctx, limit)
}

func (rv *recommendValidator) Similar(ctx context.Context, poetryID int64, strategy domain.Strategy, limit int) ([]domain.Poetry, error) {
	if err := limitValid(limit); err != nil {
		return nil, err
	}
	if !strategy.Valid() {
		return nil, errs.Errorf(errs.EINVALID, "Unknown strategy %q.", strategy)
	}
	return rv.recommendGorm.Similar(ctx, poetryID, strategy, limit)
}

func (rv *recommendValidator) Personalized(ctx context.Context, userID int64, limit int) ([]domain.Poetry, error) {
	if err := limitValid(limit); err != nil {
		return nil, err
	}
	if userID <= 0 {
		return nil, errs.UserIdValid
	}
	return rv.recommendGorm.Personalized(ctx, userID, limit)
}

// limitValid makes sure a list limit is within 1 and MaxRecommendLimit.
func limitValid(limit int) error {
	if limit <= 0 {
		return errs.LimitInvalid
	}
	if limit > MaxRecommendLimit {
		return errs.Errorf(errs.EINVALID, "The limit must not exceed %d.", MaxRecommendLimit)
	}
	return nil
}

// HotWindow is the window, in days, hot lists use when the caller does not pick one.
// Personalized recommendations fall back to the same window.
func (rg *recommendGorm) HotWindow() int {
	return rg.cfg.HotWindowDays
}

// Hot orders published poems by hot score, then id. A positive windowDays only
// considers poems created within that many days.
func (rg *recommendGorm) Hot(ctx context.Context, limit, windowDays int) ([]domain.Poetry, error) {
	key := fmt.Sprintf("recommend:hot:%d:%d", limit, windowDays)
	return rg.cached(ctx, "hot", key, rg.cfg.HotCacheTTL, func(ctx context.Context) ([]domain.Poetry, error) {
		return rg.hot(ctx, limit, windowDays)
	})
}

func (rg *recommendGorm) hot(ctx context.Context, limit, windowDays int) ([]domain.Poetry, error) {
	q := rg.db.WithContext(ctx).Where("status = ?", domain.StatusPublished)
	if windowDays > 0 {
		since := rg.now().UTC().Add(-time.Duration(windowDays) * 24 * time.Hour)
		q = q.Where("created_at >= ?", since)
	}
	poetries := []domain.Poetry{}
	err := q.Order(hotScoreOrder).Order("id ASC").Limit(limit).Find(&poetries).Error
	if err != nil {
		return nil, err
	}
	return poetries, attachAuthors(ctx, rg.db, poetries)
}

// Daily returns today's selection, the same for every call within one UTC day.
func (rg *recommendGorm) Daily(ctx context.Context, limit int) ([]domain.Poetry, error) {
	now := rg.now().UTC()
	var ttl time.Duration
	if rg.cfg.DailyCache {
		midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
		ttl = midnight.Sub(now)
	}
	key := fmt.Sprintf("recommend:daily:%d:%d", domain.DailySeed(now), limit)
	return rg.cached(ctx, "daily", key, ttl, func(ctx context.Context) ([]domain.Poetry, error) {
		return rg.DailyFor(ctx, now, limit)
	})
}

// DailyFor shuffles the ids of all published poems, in ascending order, with a
// math/rand source seeded by the YYYYMMDD integer of day's UTC date, and returns
// the first limit poems of the permutation.
func (rg *recommendGorm) DailyFor(ctx context.Context, day time.Time, limit int) ([]domain.Poetry, error) {
	var ids []int64
	err := rg.db.WithContext(ctx).
		Model(&domain.Poetry{}).
		Where("status = ?", domain.StatusPublished).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	r := rand.New(rand.NewSource(domain.DailySeed(day)))
	r.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return poetriesInOrder(ctx, rg.db, ids)
}

// Random returns up to limit published poems in random order, never one of excludeIDs.
// It is never cached.
func (rg *recommendGorm) Random(ctx context.Context, limit int, excludeIDs []int64) ([]domain.Poetry, error) {
	q := rg.db.WithContext(ctx).
		Model(&domain.Poetry{}).
		Where("status = ?", domain.StatusPublished)
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}
	var ids []int64
	if err := q.Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	rg.metrics.ObserveRecommendation("random", "db")
	return poetriesInOrder(ctx, rg.db, ids)
}

// Similar returns published poems sharing the strategy's attribute with the source poem,
// most liked first. A source without that attribute yields an empty list.
func (rg *recommendGorm) Similar(ctx context.Context, poetryID int64, strategy domain.Strategy, limit int) ([]domain.Poetry, error) {
	var src domain.Poetry
	err := rg.db.WithContext(ctx).First(&src, "id = ? AND status <> ?", poetryID, domain.StatusDeleted).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The poetry does not exist.")
		}
		return nil, err
	}

	q := rg.db.WithContext(ctx).Where("status = ? AND id <> ?", domain.StatusPublished, src.ID)
	switch strategy {
	case domain.StrategyDynasty:
		if src.Dynasty == "" {
			return []domain.Poetry{}, nil
		}
		q = q.Where("dynasty = ?", src.Dynasty)
	case domain.StrategyAuthor:
		if src.AuthorID == nil {
			return []domain.Poetry{}, nil
		}
		q = q.Where("author_id = ?", *src.AuthorID)
	case domain.StrategyType:
		if src.Type == "" {
			return []domain.Poetry{}, nil
		}
		q = q.Where("type = ?", src.Type)
	}

	poetries := []domain.Poetry{}
	if err := q.Order("like_count DESC").Order("id ASC").Limit(limit).Find(&poetries).Error; err != nil {
		return nil, err
	}
	rg.metrics.ObserveRecommendation("similar", "db")
	return poetries, attachAuthors(ctx, rg.db, poetries)
}

// cached serves a list from the cache when one is configured and ttl is positive.
// Cached lists are filtered against the poems' current status, so a poem unpublished
// or deleted since the list was stored drops out of it.
// Concurrent misses for the same key share a single load, which is not cancelled
// when the caller that started it goes away.
func (rg *recommendGorm) cached(ctx context.Context, kind, key string, ttl time.Duration, load func(context.Context) ([]domain.Poetry, error)) ([]domain.Poetry, error) {
	if rg.cache == nil || ttl <= 0 {
		rg.metrics.ObserveRecommendation(kind, "db")
		return load(ctx)
	}

	b, err := rg.cache.Get(ctx, key)
	switch {
	case err == nil:
		var poetries []domain.Poetry
		if err := json.Unmarshal(b, &poetries); err == nil {
			rg.metrics.ObserveCache("hit")
			rg.metrics.ObserveRecommendation(kind, "cache")
			return rg.stillPublished(ctx, poetries)
		}
		rg.log.Warn("discarding undecodable cache entry", "key", key)
	case errors.Is(err, cache.ErrMiss):
		rg.metrics.ObserveCache("miss")
	default:
		rg.metrics.ObserveCache("error")
		rg.log.Warn("cache get failed", "key", key, "error", err)
	}

	v, err, _ := rg.group.Do(key, func() (interface{}, error) {
		shared := context.WithoutCancel(ctx)
		poetries, err := load(shared)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(poetries); err == nil {
			if err := rg.cache.Set(shared, key, b, ttl); err != nil {
				rg.log.Warn("cache set failed", "key", key, "error", err)
			}
		}
		return poetries, nil
	})
	if err != nil {
		return nil, err
	}
	rg.metrics.ObserveRecommendation(kind, "db")
	return v.([]domain.Poetry), nil
}

// stillPublished drops the poems that are no longer published, keeping the order of the rest.
func (rg *recommendGorm) stillPublished(ctx context.Context, poetries []domain.Poetry) ([]domain.Poetry, error) {
	if len(poetries) == 0 {
		return poetries, nil
	}
	listed := make([]int64, len(poetries))
	for i, p := range poetries {
		listed[i] = p.ID
	}
	var published []int64
	err := rg.db.WithContext(ctx).
		Model(&domain.Poetry{}).
		Where("id IN ? AND status = ?", listed, domain.StatusPublished).
		Pluck("id", &published).Error
	if err != nil {
		return nil, err
	}
	keep := make(map[int64]bool, len(published))
	for _, id := range published {
		keep[id] = true
	}
	out := make([]domain.Poetry, 0, len(published))
	for _, p := range poetries {
		if keep[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

// poetriesInOrder loads the poems with the given ids and returns them in the order of ids.
func poetriesInOrder(ctx context.Context, db *gorm.DB, ids []int64) ([]domain.Poetry, error) {
	if len(ids) == 0 {
		return []domain.Poetry{}, nil
	}
	var found []domain.Poetry
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Poetry, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]domain.Poetry, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, attachAuthors(ctx, db, out)
}

// attachAuthors loads the authors of the given poems and sets their Author field.
func attachAuthors(ctx context.Context, db *gorm.DB, poetries []domain.Poetry) error {
	seen := make(map[int64]bool)
	var ids []int64
	for _, p := range poetries {
		if p.AuthorID != nil && !seen[*p.AuthorID] {
			seen[*p.AuthorID] = true
			ids = append(ids, *p.AuthorID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	var authors []domain.Author
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&authors).Error; err != nil {
		return err
	}
	byID := make(map[int64]*domain.Author, len(authors))
	for i := range authors {
		byID[authors[i].ID] = &authors[i]
	}
	for i := range poetries {
		if poetries[i].AuthorID != nil {
			poetries[i].Author = byID[*poetries[i].AuthorID]
		}
	}
	return nil
}
