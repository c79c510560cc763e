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

// InteractionService manages likes and collections of poems.
// It implements the domain.InteractionService interface.
type InteractionService struct {
	interactionValidator
}

// interactionValidator runs validations on incoming interaction data.
// On success, it passes the data on to interactionGorm.
// Otherwise, it returns the error of the validation that has failed.
type interactionValidator struct {
	interactionGorm
}

// interactionGorm writes edges and their counters. Each toggle is one transaction:
// the edge insert or delete and the counter adjustment commit or roll back together.
type interactionGorm struct {
	db      *gorm.DB
	ledger  *CounterLedger
	metrics *metrics.Metrics
}

// NewInteractionService returns an instance of InteractionService.
func NewInteractionService(db *gorm.DB, ledger *CounterLedger, m *metrics.Metrics) *InteractionService {
	return &InteractionService{
		interactionValidator{
			interactionGorm{
				db:      db,
				ledger:  ledger,
				metrics: m,
			},
		},
	}
}

// Ensure the InteractionService struct properly implements the domain.InteractionService interface.
var _ domain.InteractionService = &InteractionService{}

// edge is the data every interaction validation runs on.
type edge struct {
	userID   int64
	poetryID int64
}

// A edgeValFn is any function that takes in an edge and returns an error.
type edgeValFn func(ctx context.Context, e edge) error

// runEdgeValFns runs any number of edgeValFn on the passed in edge.
func runEdgeValFns(ctx context.Context, e edge, fns ...edgeValFn) error {
	for _, fn := range fns {
		if err := fn(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (iv *interactionValidator) Like(ctx context.Context, userID, poetryID int64) (bool, error) {
	e := edge{userID: userID, poetryID: poetryID}
	if err := runEdgeValFns(ctx, e, iv.userIdValid, iv.poetryExists); err != nil {
		return false, err
	}
	applied, err := iv.interactionGorm.add(ctx, &domain.PoetryLike{UserID: userID, PoetryID: poetryID}, poetryID, domain.LikeCount)
	if err != nil {
		return false, err
	}
	iv.metrics.ObserveInteraction("like", applied)
	return applied, nil
}

func (iv *interactionValidator) Unlike(ctx context.Context, userID, poetryID int64) (bool, error) {
	e := edge{userID: userID, poetryID: poetryID}
	if err := runEdgeValFns(ctx, e, iv.userIdValid, iv.poetryExists); err != nil {
		return false, err
	}
	applied, err := iv.interactionGorm.remove(ctx, &domain.PoetryLike{}, userID, poetryID, domain.LikeCount)
	if err != nil {
		return false, err
	}
	iv.metrics.ObserveInteraction("unlike", applied)
	return applied, nil
}

func (iv *interactionValidator) Collect(ctx context.Context, userID, poetryID int64) (bool, error) {
	e := edge{userID: userID, poetryID: poetryID}
	if err := runEdgeValFns(ctx, e, iv.userIdValid, iv.poetryExists); err != nil {
		return false, err
	}
	applied, err := iv.interactionGorm.add(ctx, &domain.PoetryCollection{UserID: userID, PoetryID: poetryID}, poetryID, domain.CollectCount)
	if err != nil {
		return false, err
	}
	iv.metrics.ObserveInteraction("collect", applied)
	return applied, nil
}

func (iv *interactionValidator) Uncollect(ctx context.Context, userID, poetryID int64) (bool, error) {
	e := edge{userID: userID, poetryID: poetryID}
	if err := runEdgeValFns(ctx, e, iv.userIdValid, iv.poetryExists); err != nil {
		return false, err
	}
	applied, err := iv.interactionGorm.remove(ctx, &domain.PoetryCollection{}, userID, poetryID, domain.CollectCount)
	if err != nil {
		return false, err
	}
	iv.metrics.ObserveInteraction("uncollect", applied)
	return applied, nil
}

func (iv *interactionValidator) CheckLiked(ctx context.Context, userID, poetryID int64) (bool, error) {
	if err := iv.userIdValid(ctx, edge{userID: userID}); err != nil {
		return false, err
	}
	return iv.interactionGorm.exists(ctx, &domain.PoetryLike{}, userID, poetryID)
}

func (iv *interactionValidator) CheckCollected(ctx context.Context, userID, poetryID int64) (bool, error) {
	if err := iv.userIdValid(ctx, edge{userID: userID}); err != nil {
		return false, err
	}
	return iv.interactionGorm.exists(ctx, &domain.PoetryCollection{}, userID, poetryID)
}

// userIdValid ensures that the userId is not empty.
func (iv *interactionValidator) userIdValid(_ context.Context, e edge) error {
	if e.userID <= 0 {
		return errs.UserIdValid
	}
	return nil
}

// poetryExists makes sure that the poem actually exists and has not been deleted.
func (iv *interactionValidator) poetryExists(ctx context.Context, e edge) error {
	var n int64
	err := iv.db.WithContext(ctx).
		Model(&domain.Poetry{}).
		Where("id = ? AND status <> ?", e.poetryID, domain.StatusDeleted).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The poetry does not exist.")
	}
	return nil
}

// add inserts the edge and increments the poem's counter. An edge that already exists,
// whether found by the insert or lost to a concurrent writer, leaves applied false.
func (ig *interactionGorm) add(ctx context.Context, edgeRow interface{}, poetryID int64, field domain.CounterField) (bool, error) {
	var applied bool
	err := ig.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(edgeRow)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return nil
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := ig.ledger.Adjust(tx, domain.EntityPoetry, poetryID, field, 1); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// remove deletes the edge and decrements the poem's counter. No edge means no change.
func (ig *interactionGorm) remove(ctx context.Context, model interface{}, userID, poetryID int64, field domain.CounterField) (bool, error) {
	var applied bool
	err := ig.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND poetry_id = ?", userID, poetryID).Delete(model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := ig.ledger.Adjust(tx, domain.EntityPoetry, poetryID, field, -1); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// exists reports whether the user has an edge of the given model to the poem.
func (ig *interactionGorm) exists(ctx context.Context, model interface{}, userID, poetryID int64) (bool, error) {
	var n int64
	err := ig.db.WithContext(ctx).
		Model(model).
		Where("user_id = ? AND poetry_id = ?", userID, poetryID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
