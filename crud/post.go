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

const postMaxLength = 2000

// PostService manages Posts.
// It implements the domain.PostService interface.
type PostService struct {
	postValidator
}

// postValidator runs validations on incoming Post data.
// On success, it passes the data on to postGorm.
// Otherwise, it returns the error of the validation that has failed.
type postValidator struct {
	postGorm
}

// postGorm runs CRUD operations on the database using incoming Post data.
type postGorm struct {
	db     *gorm.DB
	ledger *CounterLedger
}

// NewPostService returns an instance of PostService.
func NewPostService(db *gorm.DB, ledger *CounterLedger) *PostService {
	return &PostService{
		postValidator{
			postGorm{
				db:     db,
				ledger: ledger,
			},
		},
	}
}

// Ensure the PostService struct properly implements the domain.PostService interface.
var _ domain.PostService = &PostService{}

var postOrderColumns = map[string]bool{
	"created_at": true,
	"like_count": true,
	"view_count": true,
}

// Create runs validations needed for creating new Post database records.
func (pv *postValidator) Create(ctx context.Context, post *domain.Post) error {
	err := runPostValFns(ctx, post,
		pv.userIdValid,
		pv.typeDefault,
		pv.typeValid,
		pv.contentMinLength,
		pv.contentMaxLength,
		pv.sharedPoetryExists)
	if err != nil {
		return err
	}
	post.Status = domain.StatusPublished
	return pv.postGorm.Create(ctx, post)
}

// Update lets the owner of a post change its content, images and tags.
func (pv *postValidator) Update(ctx context.Context, userID, id int64, upd *domain.PostUpdate) (*domain.Post, error) {
	post, err := pv.ownedPost(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if upd != nil {
		if upd.Content != nil {
			post.Content = *upd.Content
		}
		if upd.Images != nil {
			post.Images = *upd.Images
		}
		if upd.Tags != nil {
			post.Tags = *upd.Tags
		}
	}
	if err := runPostValFns(ctx, post, pv.contentMinLength, pv.contentMaxLength); err != nil {
		return nil, err
	}
	if err := pv.postGorm.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete lets the owner of a post soft-delete it.
func (pv *postValidator) Delete(ctx context.Context, userID, id int64) error {
	if _, err := pv.ownedPost(ctx, userID, id); err != nil {
		return err
	}
	return pv.postGorm.Delete(ctx, id)
}

func (pv *postValidator) List(ctx context.Context, filter domain.PostFilter) ([]domain.Post, int64, error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if !postOrderColumns[filter.OrderBy] {
		return nil, 0, errs.Errorf(errs.EINVALID, "Cannot order by %q.", filter.OrderBy)
	}
	filter.Page = filter.Page.Normalize()
	return pv.postGorm.List(ctx, filter)
}

func (pv *postValidator) Following(ctx context.Context, userID int64, page domain.Page) ([]domain.Post, int64, error) {
	if userID <= 0 {
		return nil, 0, errs.UserIdValid
	}
	return pv.postGorm.Following(ctx, userID, page.Normalize())
}

// ownedPost loads a live post and makes sure userID owns it.
func (pv *postValidator) ownedPost(ctx context.Context, userID, id int64) (*domain.Post, error) {
	post, err := pv.postGorm.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, errs.Errorf(errs.EFORBIDDEN, "You are not allowed to change this post.")
	}
	return post, nil
}

// runPostValFns runs any number of functions of type postValFn on the passed in Post object.
func runPostValFns(ctx context.Context, post *domain.Post, fns ...postValFn) error {
	for _, fn := range fns {
		if err := fn(ctx, post); err != nil {
			return err
		}
	}
	return nil
}

// A postValFn is any function that takes in a pointer to a domain.Post object and returns an error.
type postValFn func(ctx context.Context, post *domain.Post) error

func (pv *postValidator) userIdValid(_ context.Context, post *domain.Post) error {
	if post.UserID <= 0 {
		return errs.UserIdValid
	}
	return nil
}

func (pv *postValidator) typeDefault(_ context.Context, post *domain.Post) error {
	if post.Type == "" {
		post.Type = domain.PostOriginal
	}
	return nil
}

func (pv *postValidator) typeValid(_ context.Context, post *domain.Post) error {
	switch post.Type {
	case domain.PostOriginal, domain.PostShare:
		return nil
	}
	return errs.Errorf(errs.EINVALID, "Unknown post type %q.", post.Type)
}

// contentMinLength makes sure that the content is not empty, unless the post shares a poem.
func (pv *postValidator) contentMinLength(_ context.Context, post *domain.Post) error {
	if post.Type == domain.PostShare {
		return nil
	}
	if strings.TrimSpace(post.Content) == "" {
		return errs.Errorf(errs.EINVALID, "Post content must not be empty.")
	}
	return nil
}

func (pv *postValidator) contentMaxLength(_ context.Context, post *domain.Post) error {
	if utf8.RuneCountInString(post.Content) > postMaxLength {
		return errs.Errorf(errs.EINVALID, "Post content max length is %d characters.", postMaxLength)
	}
	return nil
}

// sharedPoetryExists makes sure that a share post references a published poem.
func (pv *postValidator) sharedPoetryExists(ctx context.Context, post *domain.Post) error {
	if post.Type != domain.PostShare {
		return nil
	}
	if post.PoetryID == nil {
		return errs.Errorf(errs.EINVALID, "A shared post needs a poetry.")
	}
	var n int64
	err := pv.db.WithContext(ctx).
		Model(&domain.Poetry{}).
		Where("id = ? AND status = ?", *post.PoetryID, domain.StatusPublished).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The shared poetry does not exist.")
	}
	return nil
}

// ByID retrieves a live Post by ID, along with the poem it shares.
func (pg *postGorm) ByID(ctx context.Context, id int64) (*domain.Post, error) {
	var post domain.Post
	err := pg.db.WithContext(ctx).First(&post, "id = ? AND status <> ?", id, domain.StatusDeleted).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The post does not exist.")
		}
		return nil, err
	}
	list := []domain.Post{post}
	if err := pg.attachPoetries(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (pg *postGorm) List(ctx context.Context, filter domain.PostFilter) ([]domain.Post, int64, error) {
	q := pg.db.WithContext(ctx).Model(&domain.Post{}).Where("status = ?", domain.StatusPublished)
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	posts := []domain.Post{}
	err := q.Order(filter.OrderBy + " DESC").
		Order("id DESC").
		Offset(filter.Page.Offset()).
		Limit(filter.PageSize).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, pg.attachPoetries(ctx, posts)
}

// Following pages through the posts of the users userID follows, newest first.
func (pg *postGorm) Following(ctx context.Context, userID int64, page domain.Page) ([]domain.Post, int64, error) {
	followees := pg.db.Model(&domain.Follow{}).Select("followee_id").Where("follower_id = ?", userID)
	q := pg.db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("status = ? AND user_id IN (?)", domain.StatusPublished, followees)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	posts := []domain.Post{}
	err := q.Order("created_at DESC").
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, pg.attachPoetries(ctx, posts)
}

func (pg *postGorm) Create(ctx context.Context, post *domain.Post) error {
	if err := pg.db.WithContext(ctx).Create(post).Error; err != nil {
		return err
	}
	list := []domain.Post{*post}
	if err := pg.attachPoetries(ctx, list); err != nil {
		return err
	}
	post.Poetry = list[0].Poetry
	return nil
}

func (pg *postGorm) Update(ctx context.Context, post *domain.Post) error {
	return pg.db.WithContext(ctx).
		Model(post).
		Select("content", "images", "tags").
		Updates(post).Error
}

// Delete soft-deletes the post by setting its status to deleted.
func (pg *postGorm) Delete(ctx context.Context, id int64) error {
	return pg.db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ?", id).
		Update("status", domain.StatusDeleted).Error
}

// IncrementView counts one view of a live post.
func (pg *postGorm) IncrementView(ctx context.Context, id int64) error {
	return pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Post{}).Where("id = ? AND status = ?", id, domain.StatusPublished).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return errs.Errorf(errs.ENOTFOUND, "The post does not exist.")
		}
		return pg.ledger.Adjust(tx, domain.EntityPost, id, domain.ViewCount, 1)
	})
}

// attachPoetries sets the Poetry of every share post.
func (pg *postGorm) attachPoetries(ctx context.Context, posts []domain.Post) error {
	var ids []int64
	for _, p := range posts {
		if p.PoetryID != nil {
			ids = append(ids, *p.PoetryID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	poetries, err := poetriesInOrder(ctx, pg.db, ids)
	if err != nil {
		return err
	}
	byID := make(map[int64]*domain.Poetry, len(poetries))
	for i := range poetries {
		byID[poetries[i].ID] = &poetries[i]
	}
	for i := range posts {
		if posts[i].PoetryID != nil {
			posts[i].Poetry = byID[*posts[i].PoetryID]
		}
	}
	return nil
}
