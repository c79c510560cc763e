package crud

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"poetryHub/domain"
	"poetryHub/errs"
	"poetryHub/metrics"
)

// FollowService manages Follows.
// It implements the domain.FollowService interface.
type FollowService struct {
	followValidator
}

// followValidator runs validations on incoming Follow data.
// On success, it passes the data on to followGorm.
type followValidator struct {
	followGorm
}

// followGorm writes follow edges. A new follow and the notification it causes share a transaction.
type followGorm struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

// NewFollowService returns an instance of FollowService.
func NewFollowService(db *gorm.DB, m *metrics.Metrics) *FollowService {
	return &FollowService{
		followValidator{
			followGorm{
				db:      db,
				metrics: m,
			},
		},
	}
}

// Ensure the FollowService struct properly implements the domain.FollowService interface.
var _ domain.FollowService = &FollowService{}

// Follow makes followerID follow followeeID. Following yourself or someone already
// followed is a no-op.
func (fv *followValidator) Follow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	follow := &domain.Follow{FollowerID: followerID, FolloweeID: followeeID}
	if err := runFollowValFns(ctx, follow, fv.followerIdValid, fv.followeeExists); err != nil {
		return false, err
	}
	if followerID == followeeID {
		fv.metrics.ObserveInteraction("follow", false)
		return false, nil
	}
	applied, err := fv.followGorm.Follow(ctx, follow)
	if err != nil {
		return false, err
	}
	fv.metrics.ObserveInteraction("follow", applied)
	return applied, nil
}

func (fv *followValidator) Unfollow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	follow := &domain.Follow{FollowerID: followerID, FolloweeID: followeeID}
	if err := runFollowValFns(ctx, follow, fv.followerIdValid); err != nil {
		return false, err
	}
	applied, err := fv.followGorm.Unfollow(ctx, follow)
	if err != nil {
		return false, err
	}
	fv.metrics.ObserveInteraction("unfollow", applied)
	return applied, nil
}

func runFollowValFns(ctx context.Context, follow *domain.Follow, fns ...followValFn) error {
	for _, fn := range fns {
		if err := fn(ctx, follow); err != nil {
			return err
		}
	}
	return nil
}

type followValFn func(ctx context.Context, follow *domain.Follow) error

func (fv *followValidator) followerIdValid(_ context.Context, follow *domain.Follow) error {
	if follow.FollowerID <= 0 {
		return errs.UserIdValid
	}
	return nil
}

// followeeExists makes sure that the user to be followed actually exists.
func (fv *followValidator) followeeExists(ctx context.Context, follow *domain.Follow) error {
	err := fv.db.WithContext(ctx).Select("id").First(&domain.User{}, "id = ?", follow.FolloweeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.Errorf(errs.ENOTFOUND, "The followed user does not exist.")
		}
		return err
	}
	return nil
}

// Follow inserts the edge unless it exists and notifies the followee.
func (fg *followGorm) Follow(ctx context.Context, follow *domain.Follow) (bool, error) {
	var applied bool
	err := fg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(follow)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return nil
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		from := follow.FollowerID
		target := follow.FollowerID
		return notify(tx, &domain.Message{
			UserID:     follow.FolloweeID,
			FromUserID: &from,
			Type:       domain.MessageFollow,
			Title:      "New follower",
			TargetType: domain.TargetUser,
			TargetID:   &target,
		})
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (fg *followGorm) Unfollow(ctx context.Context, follow *domain.Follow) (bool, error) {
	res := fg.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", follow.FollowerID, follow.FolloweeID).
		Delete(&domain.Follow{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (fg *followGorm) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	var n int64
	err := fg.db.WithContext(ctx).
		Model(&domain.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&n).Error
	return n > 0, err
}

// Following pages through the users userID follows, most recently followed first.
func (fg *followGorm) Following(ctx context.Context, userID int64, page domain.Page) ([]domain.User, int64, error) {
	return fg.users(ctx, "follows.followee_id", "follows.follower_id", userID, page.Normalize())
}

// Followers pages through the users following userID, most recent first.
func (fg *followGorm) Followers(ctx context.Context, userID int64, page domain.Page) ([]domain.User, int64, error) {
	return fg.users(ctx, "follows.follower_id", "follows.followee_id", userID, page.Normalize())
}

func (fg *followGorm) users(ctx context.Context, joinCol, matchCol string, userID int64, page domain.Page) ([]domain.User, int64, error) {
	base := func() *gorm.DB {
		return fg.db.WithContext(ctx).
			Model(&domain.User{}).
			Joins("JOIN follows ON "+joinCol+" = users.id").
			Where(matchCol+" = ?", userID)
	}
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	users := []domain.User{}
	err := base().
		Select("users.*").
		Order("follows.created_at DESC").
		Order("follows.id DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Friends returns the users that userID follows and who follow userID back.
func (fg *followGorm) Friends(ctx context.Context, userID int64) ([]domain.User, error) {
	following := fg.db.Model(&domain.Follow{}).Select("followee_id").Where("follower_id = ?", userID)
	followers := fg.db.Model(&domain.Follow{}).Select("follower_id").Where("followee_id = ?", userID)
	users := []domain.User{}
	err := fg.db.WithContext(ctx).
		Where("id IN (?) AND id IN (?)", following, followers).
		Order("id ASC").
		Find(&users).Error
	return users, err
}

func (fg *followGorm) Counts(ctx context.Context, userID int64) (*domain.FollowCounts, error) {
	var counts domain.FollowCounts
	db := fg.db.WithContext(ctx)
	if err := db.Model(&domain.Follow{}).Where("follower_id = ?", userID).Count(&counts.Following).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Follow{}).Where("followee_id = ?", userID).Count(&counts.Followers).Error; err != nil {
		return nil, err
	}
	return &counts, nil
}
