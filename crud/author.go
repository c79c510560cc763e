package crud

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"poetryHub/domain"
	"poetryHub/errs"
)

// AuthorService manages Authors.
// It implements the domain.AuthorService interface.
type AuthorService struct {
	authorValidator
}

type authorValidator struct {
	authorGorm
}

type authorGorm struct {
	db *gorm.DB
}

// NewAuthorService returns an instance of AuthorService.
func NewAuthorService(db *gorm.DB) *AuthorService {
	return &AuthorService{
		authorValidator{
			authorGorm{
				db: db,
			},
		},
	}
}

var _ domain.AuthorService = &AuthorService{}

func (av *authorValidator) Create(ctx context.Context, author *domain.Author) error {
	if err := av.nameRequired(author); err != nil {
		return err
	}
	return av.authorGorm.Create(ctx, author)
}

func (av *authorValidator) Update(ctx context.Context, author *domain.Author) error {
	if author.ID <= 0 {
		return errs.IdInvalid
	}
	if err := av.nameRequired(author); err != nil {
		return err
	}
	return av.authorGorm.Update(ctx, author)
}

func (av *authorValidator) Hot(ctx context.Context, limit int) ([]domain.HotAuthor, error) {
	if err := limitValid(limit); err != nil {
		return nil, err
	}
	return av.authorGorm.Hot(ctx, limit)
}

func (av *authorValidator) nameRequired(author *domain.Author) error {
	author.Name = strings.TrimSpace(author.Name)
	if author.Name == "" {
		return errs.Errorf(errs.EINVALID, "A name is required.")
	}
	return nil
}

func (ag *authorGorm) ByID(ctx context.Context, id int64) (*domain.Author, error) {
	var author domain.Author
	err := ag.db.WithContext(ctx).First(&author, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The author does not exist.")
		}
		return nil, err
	}
	return &author, nil
}

func (ag *authorGorm) List(ctx context.Context, dynasty string, page domain.Page) ([]domain.Author, int64, error) {
	page = page.Normalize()
	q := ag.db.WithContext(ctx).Model(&domain.Author{})
	if dynasty != "" {
		q = q.Where("dynasty = ?", dynasty)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	authors := []domain.Author{}
	err := q.Order("id ASC").Offset(page.Offset()).Limit(page.PageSize).Find(&authors).Error
	if err != nil {
		return nil, 0, err
	}
	return authors, total, nil
}

// Hot ranks authors by their number of published poems, then by id. Authors
// without a published poem are left out.
func (ag *authorGorm) Hot(ctx context.Context, limit int) ([]domain.HotAuthor, error) {
	authors := []domain.HotAuthor{}
	err := ag.db.WithContext(ctx).
		Model(&domain.Author{}).
		Select("authors.*, COUNT(poetries.id) AS poetry_count").
		Joins("JOIN poetries ON poetries.author_id = authors.id AND poetries.status = ?", domain.StatusPublished).
		Group("authors.id").
		Order("poetry_count DESC").
		Order("authors.id ASC").
		Limit(limit).
		Scan(&authors).Error
	if err != nil {
		return nil, err
	}
	return authors, nil
}

func (ag *authorGorm) Create(ctx context.Context, author *domain.Author) error {
	return ag.db.WithContext(ctx).Create(author).Error
}

func (ag *authorGorm) Update(ctx context.Context, author *domain.Author) error {
	res := ag.db.WithContext(ctx).
		Model(author).
		Select("name", "dynasty", "intro", "birth_year", "death_year").
		Updates(author)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The author does not exist.")
	}
	return nil
}

// Delete removes the author and clears the author of every poem they wrote, in one transaction.
func (ag *authorGorm) Delete(ctx context.Context, id int64) error {
	return ag.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&domain.Poetry{}).
			Where("author_id = ?", id).
			UpdateColumn("author_id", gorm.Expr("NULL")).Error
		if err != nil {
			return err
		}
		res := tx.Delete(&domain.Author{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.Errorf(errs.ENOTFOUND, "The author does not exist.")
		}
		return nil
	})
}
