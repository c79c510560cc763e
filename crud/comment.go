package crud

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"poetryHub/domain"
	"poetryHub/errs"
)

const commentMaxLength = 1000

// CommentService manages Comments.
// It implements the domain.CommentService interface.
type CommentService struct {
	commentValidator
}

// commentValidator runs validations on incoming Comment data.
// On success, it passes the data on to commentGorm.
// Otherwise, it returns the error of the validation that has failed.
type commentValidator struct {
	commentGorm
}

// commentGorm writes comments together with the counters and notifications they cause.
type commentGorm struct {
	db     *gorm.DB
	ledger *CounterLedger
}

// NewCommentService returns an instance of CommentService.
func NewCommentService(db *gorm.DB, ledger *CounterLedger) *CommentService {
	return &CommentService{
		commentValidator{
			commentGorm{
				db:     db,
				ledger: ledger,
			},
		},
	}
}

var _ domain.CommentService = &CommentService{}

// Create runs validations needed for creating new Comment database records.
func (cv *commentValidator) Create(ctx context.Context, comment *domain.Comment) error {
	err := runCommentValFns(ctx, comment,
		cv.userIdValid,
		cv.contentRequired,
		cv.contentMaxLength,
		cv.targetTypeValid,
		cv.targetExists,
		cv.parentValid)
	if err != nil {
		return err
	}
	comment.Status = domain.CommentNormal
	return cv.commentGorm.Create(ctx, comment)
}

// ByID returns a comment that has not been deleted.
func (cv *commentValidator) ByID(ctx context.Context, id int64) (*domain.Comment, error) {
	if id <= 0 {
		return nil, errs.IdInvalid
	}
	return cv.commentGorm.byID(ctx, id)
}

// Update lets the author of a comment change its content.
func (cv *commentValidator) Update(ctx context.Context, userID, id int64, content string) (*domain.Comment, error) {
	comment, err := cv.commentGorm.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, errs.Errorf(errs.EFORBIDDEN, "You are not allowed to edit this comment.")
	}
	comment.Content = content
	err = runCommentValFns(ctx, comment,
		cv.contentRequired,
		cv.contentMaxLength)
	if err != nil {
		return nil, err
	}
	if err := cv.commentGorm.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (cv *commentValidator) ByUser(ctx context.Context, userID int64, page domain.Page) ([]domain.Comment, int64, error) {
	if userID <= 0 {
		return nil, 0, errs.UserIdValid
	}
	return cv.commentGorm.ByUser(ctx, userID, page.Normalize())
}

// Delete lets the author of a comment soft-delete it.
func (cv *commentValidator) Delete(ctx context.Context, userID, id int64) error {
	comment, err := cv.commentGorm.byID(ctx, id)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return errs.Errorf(errs.EFORBIDDEN, "You are not allowed to delete this comment.")
	}
	return cv.commentGorm.Delete(ctx, comment)
}

func (cv *commentValidator) ListByTarget(ctx context.Context, targetType domain.TargetType, targetID int64, page domain.Page) ([]domain.Comment, int64, error) {
	if err := cv.targetTypeValid(ctx, &domain.Comment{TargetType: targetType}); err != nil {
		return nil, 0, err
	}
	return cv.commentGorm.ListByTarget(ctx, targetType, targetID, page.Normalize())
}

func (cv *commentValidator) Replies(ctx context.Context, parentID int64, page domain.Page) ([]domain.Comment, int64, error) {
	return cv.commentGorm.Replies(ctx, parentID, page.Normalize())
}

func runCommentValFns(ctx context.Context, comment *domain.Comment, fns ...commentValFn) error {
	for _, fn := range fns {
		if err := fn(ctx, comment); err != nil {
			return err
		}
	}
	return nil
}

type commentValFn func(ctx context.Context, comment *domain.Comment) error

func (cv *commentValidator) userIdValid(_ context.Context, comment *domain.Comment) error {
	if comment.UserID <= 0 {
		return errs.UserIdValid
	}
	return nil
}

func (cv *commentValidator) contentRequired(_ context.Context, comment *domain.Comment) error {
	comment.Content = strings.TrimSpace(comment.Content)
	if comment.Content == "" {
		return errs.Errorf(errs.EINVALID, "Comment content must not be empty.")
	}
	return nil
}

func (cv *commentValidator) contentMaxLength(_ context.Context, comment *domain.Comment) error {
	if utf8.RuneCountInString(comment.Content) > commentMaxLength {
		return errs.Errorf(errs.EINVALID, "Comment max length is %d characters.", commentMaxLength)
	}
	return nil
}

func (cv *commentValidator) targetTypeValid(_ context.Context, comment *domain.Comment) error {
	switch comment.TargetType {
	case domain.TargetPoetry, domain.TargetPost:
		return nil
	}
	return errs.Errorf(errs.EINVALID, "Comments can only target a poetry or a post.")
}

// targetExists makes sure that the commented poem or post is published.
func (cv *commentValidator) targetExists(ctx context.Context, comment *domain.Comment) error {
	var model interface{} = &domain.Poetry{}
	if comment.TargetType == domain.TargetPost {
		model = &domain.Post{}
	}
	var n int64
	err := cv.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND status = ?", comment.TargetID, domain.StatusPublished).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The commented %s does not exist.", comment.TargetType)
	}
	return nil
}

// parentValid makes sure that a replied-to comment exists and belongs to the same target.
func (cv *commentValidator) parentValid(ctx context.Context, comment *domain.Comment) error {
	if comment.ParentID == nil {
		return nil
	}
	parent, err := cv.commentGorm.byID(ctx, *comment.ParentID)
	if err != nil {
		return err
	}
	if parent.TargetType != comment.TargetType || parent.TargetID != comment.TargetID {
		return errs.Errorf(errs.EINVALID, "A reply must target the same %s as its parent.", comment.TargetType)
	}
	return nil
}

// byID retrieves a comment that has not been deleted.
func (cg *commentGorm) byID(ctx context.Context, id int64) (*domain.Comment, error) {
	var comment domain.Comment
	err := cg.db.WithContext(ctx).First(&comment, "id = ? AND status = ?", id, domain.CommentNormal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The comment does not exist.")
		}
		return nil, err
	}
	return &comment, nil
}

func targetEntity(t domain.TargetType) domain.CounterEntity {
	if t == domain.TargetPost {
		return domain.EntityPost
	}
	return domain.EntityPoetry
}

// Create stores the comment, bumps the target's comment count and the parent's reply count,
// and notifies the post owner and the replied-to author.
func (cg *commentGorm) Create(ctx context.Context, comment *domain.Comment) error {
	return cg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if err := cg.ledger.Adjust(tx, targetEntity(comment.TargetType), comment.TargetID, domain.CommentCount, 1); err != nil {
			return err
		}

		recipients := map[int64]bool{}
		if comment.TargetType == domain.TargetPost {
			var owner int64
			if err := tx.Model(&domain.Post{}).Select("user_id").Where("id = ?", comment.TargetID).Scan(&owner).Error; err != nil {
				return err
			}
			recipients[owner] = true
		}
		if comment.ParentID != nil {
			if err := cg.ledger.Adjust(tx, domain.EntityComment, *comment.ParentID, domain.ReplyCount, 1); err != nil {
				return err
			}
			var parentOwner int64
			if err := tx.Model(&domain.Comment{}).Select("user_id").Where("id = ?", *comment.ParentID).Scan(&parentOwner).Error; err != nil {
				return err
			}
			recipients[parentOwner] = true
		}

		for _, to := range sortedKeys(recipients) {
			from := comment.UserID
			id := comment.ID
			err := notify(tx, &domain.Message{
				UserID:     to,
				FromUserID: &from,
				Type:       domain.MessageComment,
				Title:      "New comment",
				Content:    comment.Content,
				TargetType: domain.TargetComment,
				TargetID:   &id,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Update stores the new content of a comment that has not been deleted.
func (cg *commentGorm) Update(ctx context.Context, comment *domain.Comment) error {
	res := cg.db.WithContext(ctx).
		Model(comment).
		Where("status = ?", domain.CommentNormal).
		Update("content", comment.Content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The comment does not exist.")
	}
	return nil
}

// Delete soft-deletes the comment and takes back the counts Create added.
func (cg *commentGorm) Delete(ctx context.Context, comment *domain.Comment) error {
	return cg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Comment{}).
			Where("id = ? AND status = ?", comment.ID, domain.CommentNormal).
			Update("status", domain.CommentDeleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := cg.ledger.Adjust(tx, targetEntity(comment.TargetType), comment.TargetID, domain.CommentCount, -1); err != nil {
			return err
		}
		if comment.ParentID != nil {
			return cg.ledger.Adjust(tx, domain.EntityComment, *comment.ParentID, domain.ReplyCount, -1)
		}
		return nil
	})
}

// ListByTarget pages through the top level comments of a target, newest first.
func (cg *commentGorm) ListByTarget(ctx context.Context, targetType domain.TargetType, targetID int64, page domain.Page) ([]domain.Comment, int64, error) {
	q := cg.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("target_type = ? AND target_id = ? AND parent_id IS NULL AND status = ?",
			targetType, targetID, domain.CommentNormal)
	return cg.page(q, page, "DESC")
}

// Replies pages through the replies to a comment, oldest first.
func (cg *commentGorm) Replies(ctx context.Context, parentID int64, page domain.Page) ([]domain.Comment, int64, error) {
	q := cg.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("parent_id = ? AND status = ?", parentID, domain.CommentNormal)
	return cg.page(q, page, "ASC")
}

// ByUser pages through a user's comments on any target, newest first.
func (cg *commentGorm) ByUser(ctx context.Context, userID int64, page domain.Page) ([]domain.Comment, int64, error) {
	q := cg.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("user_id = ? AND status = ?", userID, domain.CommentNormal)
	return cg.page(q, page, "DESC")
}

func (cg *commentGorm) page(q *gorm.DB, page domain.Page, dir string) ([]domain.Comment, int64, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	comments := []domain.Comment{}
	err := q.Order("created_at " + dir).
		Order("id " + dir).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}
