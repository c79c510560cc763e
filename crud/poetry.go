package crud

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"poetryHub/domain"
	"poetryHub/errs"
	"poetryHub/logger"
)

// PoetryService manages Poetries.
// It implements the domain.PoetryService interface.
type PoetryService struct {
	poetryValidator
}

// poetryValidator runs validations on incoming Poetry data.
// On success, it passes the data on to poetryGorm.
// Otherwise, it returns the error of the validation that has failed.
type poetryValidator struct {
	poetryGorm
}

// poetryGorm runs CRUD operations on the database using incoming Poetry data.
// Writes are mirrored to the search index when an indexer is set; index failures are logged only.
type poetryGorm struct {
	db      *gorm.DB
	ledger  *CounterLedger
	indexer domain.SearchIndexer
	log     *logger.Logger
}

// NewPoetryService returns an instance of PoetryService. indexer may be nil.
func NewPoetryService(db *gorm.DB, ledger *CounterLedger, indexer domain.SearchIndexer, log *logger.Logger) *PoetryService {
	if log == nil {
		log = logger.Nop()
	}
	return &PoetryService{
		poetryValidator{
			poetryGorm{
				db:      db,
				ledger:  ledger,
				indexer: indexer,
				log:     log.With("service", "PoetryService"),
			},
		},
	}
}

// Ensure the PoetryService struct properly implements the domain.PoetryService interface.
var _ domain.PoetryService = &PoetryService{}

var poetrySortColumns = map[string]bool{
	"created_at":    true,
	"read_count":    true,
	"like_count":    true,
	"comment_count": true,
}

// Create runs validations needed for creating new Poetry database records.
func (pv *poetryValidator) Create(ctx context.Context, poetry *domain.Poetry) error {
	err := runPoetryValFns(ctx, poetry,
		pv.titleRequired,
		pv.titleMaxLength,
		pv.contentRequired,
		pv.statusDefault,
		pv.statusValid,
		pv.authorExists)
	if err != nil {
		return err
	}
	return pv.poetryGorm.Create(ctx, poetry)
}

// Update applies upd to the poem after validating the resulting record.
func (pv *poetryValidator) Update(ctx context.Context, id int64, upd *domain.PoetryUpdate) (*domain.Poetry, error) {
	poetry, err := pv.poetryGorm.byIDAnyStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	applyPoetryUpdate(poetry, upd)
	err = runPoetryValFns(ctx, poetry,
		pv.titleRequired,
		pv.titleMaxLength,
		pv.contentRequired,
		pv.statusValid,
		pv.authorExists)
	if err != nil {
		return nil, err
	}
	if err := pv.poetryGorm.Update(ctx, poetry); err != nil {
		return nil, err
	}
	return poetry, nil
}

// List validates the sort options of the filter and passes it on.
func (pv *poetryValidator) List(ctx context.Context, filter domain.PoetryFilter) ([]domain.Poetry, int64, error) {
	if filter.SortBy == "" {
		filter.SortBy = "created_at"
	}
	if !poetrySortColumns[filter.SortBy] {
		return nil, 0, errs.Errorf(errs.EINVALID, "Cannot sort by %q.", filter.SortBy)
	}
	switch strings.ToLower(filter.Order) {
	case "", "desc":
		filter.Order = "DESC"
	case "asc":
		filter.Order = "ASC"
	default:
		return nil, 0, errs.Errorf(errs.EINVALID, "The order must be asc or desc.")
	}
	filter.Page = filter.Page.Normalize()
	return pv.poetryGorm.List(ctx, filter)
}

func (pv *poetryValidator) LikedBy(ctx context.Context, userID int64, page domain.Page) ([]domain.Poetry, int64, error) {
	if userID <= 0 {
		return nil, 0, errs.UserIdValid
	}
	return pv.poetryGorm.edgeList(ctx, domain.PoetryLike{}.TableName(), userID, page.Normalize())
}

func (pv *poetryValidator) CollectedBy(ctx context.Context, userID int64, page domain.Page) ([]domain.Poetry, int64, error) {
	if userID <= 0 {
		return nil, 0, errs.UserIdValid
	}
	return pv.poetryGorm.edgeList(ctx, domain.PoetryCollection{}.TableName(), userID, page.Normalize())
}

// runPoetryValFns runs any number of functions of type poetryValFn on the passed in Poetry object.
func runPoetryValFns(ctx context.Context, poetry *domain.Poetry, fns ...poetryValFn) error {
	for _, fn := range fns {
		if err := fn(ctx, poetry); err != nil {
			return err
		}
	}
	return nil
}

// A poetryValFn is any function that takes in a pointer to a domain.Poetry object and returns an error.
type poetryValFn func(ctx context.Context, poetry *domain.Poetry) error

func (pv *poetryValidator) titleRequired(_ context.Context, poetry *domain.Poetry) error {
	poetry.Title = strings.TrimSpace(poetry.Title)
	if poetry.Title == "" {
		return errs.Errorf(errs.EINVALID, "A title is required.")
	}
	return nil
}

func (pv *poetryValidator) titleMaxLength(_ context.Context, poetry *domain.Poetry) error {
	if utf8.RuneCountInString(poetry.Title) > 200 {
		return errs.Errorf(errs.EINVALID, "Title max length is 200 characters.")
	}
	return nil
}

func (pv *poetryValidator) contentRequired(_ context.Context, poetry *domain.Poetry) error {
	if strings.TrimSpace(poetry.Content) == "" {
		return errs.Errorf(errs.EINVALID, "Content must not be empty.")
	}
	return nil
}

// statusDefault publishes new poems unless told otherwise.
func (pv *poetryValidator) statusDefault(_ context.Context, poetry *domain.Poetry) error {
	if poetry.Status == 0 {
		poetry.Status = domain.StatusPublished
	}
	return nil
}

func (pv *poetryValidator) statusValid(_ context.Context, poetry *domain.Poetry) error {
	switch poetry.Status {
	case domain.StatusPublished, domain.StatusDraft, domain.StatusDeleted:
		return nil
	}
	return errs.Errorf(errs.EINVALID, "Unknown status %d.", poetry.Status)
}

// authorExists makes sure that a referenced author actually exists.
func (pv *poetryValidator) authorExists(ctx context.Context, poetry *domain.Poetry) error {
	if poetry.AuthorID == nil {
		return nil
	}
	var n int64
	if err := pv.db.WithContext(ctx).Model(&domain.Author{}).Where("id = ?", *poetry.AuthorID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The author does not exist.")
	}
	return nil
}

func applyPoetryUpdate(p *domain.Poetry, upd *domain.PoetryUpdate) {
	if upd == nil {
		return
	}
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Content != nil {
		p.Content = *upd.Content
	}
	if upd.AuthorID != nil {
		if *upd.AuthorID <= 0 {
			p.AuthorID = nil
		} else {
			id := *upd.AuthorID
			p.AuthorID = &id
		}
	}
	if upd.Dynasty != nil {
		p.Dynasty = *upd.Dynasty
	}
	if upd.Type != nil {
		p.Type = *upd.Type
	}
	if upd.Tags != nil {
		p.Tags = *upd.Tags
	}
	if upd.Translation != nil {
		p.Translation = *upd.Translation
	}
	if upd.Annotation != nil {
		p.Annotation = *upd.Annotation
	}
	if upd.Appreciation != nil {
		p.Appreciation = *upd.Appreciation
	}
	if upd.Background != nil {
		p.Background = *upd.Background
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
}

// ByID retrieves a single published Poetry by ID, along with its author.
// If the record doesn't exist, it returns errs.ENOTFOUND.
func (pg *poetryGorm) ByID(ctx context.Context, id int64) (*domain.Poetry, error) {
	var poetry domain.Poetry
	err := pg.db.WithContext(ctx).First(&poetry, "id = ? AND status = ?", id, domain.StatusPublished).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The poetry does not exist.")
		}
		return nil, err
	}
	list := []domain.Poetry{poetry}
	if err := attachAuthors(ctx, pg.db, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (pg *poetryGorm) byIDAnyStatus(ctx context.Context, id int64) (*domain.Poetry, error) {
	var poetry domain.Poetry
	err := pg.db.WithContext(ctx).First(&poetry, "id = ? AND status <> ?", id, domain.StatusDeleted).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The poetry does not exist.")
		}
		return nil, err
	}
	return &poetry, nil
}

// List returns one page of published poems matching the filter and the total number of matches.
func (pg *poetryGorm) List(ctx context.Context, filter domain.PoetryFilter) ([]domain.Poetry, int64, error) {
	q := pg.db.WithContext(ctx).Model(&domain.Poetry{}).Where("status = ?", domain.StatusPublished)
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		like := "%" + kw + "%"
		q = q.Where("(title LIKE ? OR content LIKE ?)", like, like)
	}
	if filter.Dynasty != "" {
		q = q.Where("dynasty = ?", filter.Dynasty)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.AuthorID != nil {
		q = q.Where("author_id = ?", *filter.AuthorID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	poetries := []domain.Poetry{}
	err := q.Order(filter.SortBy + " " + filter.Order).
		Order("id ASC").
		Offset(filter.Page.Offset()).
		Limit(filter.PageSize).
		Find(&poetries).Error
	if err != nil {
		return nil, 0, err
	}
	return poetries, total, attachAuthors(ctx, pg.db, poetries)
}

// Create stores the data from the Poetry object in a new database record.
func (pg *poetryGorm) Create(ctx context.Context, poetry *domain.Poetry) error {
	if err := pg.db.WithContext(ctx).Create(poetry).Error; err != nil {
		return err
	}
	pg.index(ctx, poetry)
	return nil
}

// Update saves the editable columns of the poem. Counters are left to the ledger.
func (pg *poetryGorm) Update(ctx context.Context, poetry *domain.Poetry) error {
	err := pg.db.WithContext(ctx).
		Model(poetry).
		Select("title", "content", "author_id", "dynasty", "type", "tags",
			"translation", "annotation", "appreciation", "background", "status").
		Updates(poetry).Error
	if err != nil {
		return err
	}
	pg.index(ctx, poetry)
	return nil
}

// Delete soft-deletes the poem by setting its status to deleted.
func (pg *poetryGorm) Delete(ctx context.Context, id int64) error {
	res := pg.db.WithContext(ctx).
		Model(&domain.Poetry{}).
		Where("id = ? AND status <> ?", id, domain.StatusDeleted).
		Update("status", domain.StatusDeleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The poetry does not exist.")
	}
	if pg.indexer != nil {
		if err := pg.indexer.DeletePoetry(ctx, id); err != nil {
			pg.log.Warn("removing poetry from search index failed", "poetry_id", id, "error", err)
		}
	}
	return nil
}

// IncrementRead counts one read of a published poem.
func (pg *poetryGorm) IncrementRead(ctx context.Context, id int64) error {
	return pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Poetry{}).Where("id = ? AND status = ?", id, domain.StatusPublished).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return errs.Errorf(errs.ENOTFOUND, "The poetry does not exist.")
		}
		return pg.ledger.Adjust(tx, domain.EntityPoetry, id, domain.ReadCount, 1)
	})
}

// edgeList pages through the poems a user has an edge to in table, newest edge first.
func (pg *poetryGorm) edgeList(ctx context.Context, table string, userID int64, page domain.Page) ([]domain.Poetry, int64, error) {
	base := func() *gorm.DB {
		return pg.db.WithContext(ctx).
			Model(&domain.Poetry{}).
			Joins("JOIN "+table+" ON "+table+".poetry_id = poetries.id").
			Where(table+".user_id = ? AND poetries.status <> ?", userID, domain.StatusDeleted)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	poetries := []domain.Poetry{}
	err := base().
		Select("poetries.*").
		Order(table + ".created_at DESC").
		Order(table + ".id DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&poetries).Error
	if err != nil {
		return nil, 0, err
	}
	return poetries, total, attachAuthors(ctx, pg.db, poetries)
}

// index mirrors a published poem into the search index and drops any other.
func (pg *poetryGorm) index(ctx context.Context, poetry *domain.Poetry) {
	if pg.indexer == nil {
		return
	}
	var err error
	if poetry.Status == domain.StatusPublished {
		if poetry.AuthorID != nil && poetry.Author == nil {
			list := []domain.Poetry{*poetry}
			if err := attachAuthors(ctx, pg.db, list); err == nil {
				poetry.Author = list[0].Author
			}
		}
		err = pg.indexer.IndexPoetry(ctx, poetry)
	} else {
		err = pg.indexer.DeletePoetry(ctx, poetry.ID)
	}
	if err != nil {
		pg.log.Warn("search index update failed", "poetry_id", poetry.ID, "error", err)
	}
}
