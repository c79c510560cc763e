package crud

import (
	"gorm.io/gorm"

	"poetryHub/cache"
	"poetryHub/domain"
	"poetryHub/logger"
	"poetryHub/metrics"
)

// A ServicesConfig is any function that takes in a pointer to a Services
// object and returns an error. It's basically just wrapping the constructor
// method of any given crud service. It exists to be able to easily create
// the crud services using functional options in main.go.
// Options that provide shared dependencies (metrics, cache, search) must come
// before the services using them.
type ServicesConfig func(*Services) error

// Services is a container object holding pointers to all the crud services.
// The crud services all share the database connection provided by Services.
type Services struct {
	db      *gorm.DB
	log     *logger.Logger
	metrics *metrics.Metrics
	cache   cache.Cache
	ledger  *CounterLedger

	User        *UserService
	Author      *AuthorService
	Poetry      *PoetryService
	Interaction *InteractionService
	Recommend   *RecommendService
	Post        *PostService
	Comment     *CommentService
	Follow      *FollowService
	Message     *MessageService
	Search      domain.SearchService
	Indexer     domain.SearchIndexer
}

// NewServices returns a new Services object, containing any crud services
// it's told to create by one of the passed in ServicesConfig functions.
// It shares the passed in database connection with any crud service it creates.
func NewServices(db *gorm.DB, log *logger.Logger, cfgs ...ServicesConfig) (*Services, error) {
	if log == nil {
		log = logger.Nop()
	}
	s := Services{
		db:     db,
		log:    log,
		ledger: NewCounterLedger(),
	}
	for _, cfg := range cfgs {
		if err := cfg(&s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// WithMetrics makes the services report to m.
func WithMetrics(m *metrics.Metrics) ServicesConfig {
	return func(s *Services) error {
		s.metrics = m
		return nil
	}
}

// WithCache gives the recommendation service a cache for its lists.
func WithCache(c cache.Cache) ServicesConfig {
	return func(s *Services) error {
		s.cache = c
		return nil
	}
}

// WithSearch sets the search gateway and the indexer kept in step with poetry writes.
func WithSearch(search domain.SearchService, indexer domain.SearchIndexer) ServicesConfig {
	return func(s *Services) error {
		s.Search = search
		s.Indexer = indexer
		return nil
	}
}

// WithUser wraps the constructor of UserService, NewUserService.
func WithUser(pepper, hmacKey string) ServicesConfig {
	return func(s *Services) error {
		s.User = NewUserService(s.db, pepper, hmacKey)
		return nil
	}
}

// WithAuthor wraps the constructor of AuthorService, NewAuthorService.
func WithAuthor() ServicesConfig {
	return func(s *Services) error {
		s.Author = NewAuthorService(s.db)
		return nil
	}
}

// WithPoetry wraps the constructor of PoetryService, NewPoetryService.
func WithPoetry() ServicesConfig {
	return func(s *Services) error {
		s.Poetry = NewPoetryService(s.db, s.ledger, s.Indexer, s.log)
		return nil
	}
}

// WithInteraction wraps the constructor of InteractionService, NewInteractionService.
func WithInteraction() ServicesConfig {
	return func(s *Services) error {
		s.Interaction = NewInteractionService(s.db, s.ledger, s.metrics)
		return nil
	}
}

// WithRecommend wraps the constructor of RecommendService, NewRecommendService.
func WithRecommend(cfg RecommendConfig) ServicesConfig {
	return func(s *Services) error {
		s.Recommend = NewRecommendService(s.db, cfg, s.cache, s.metrics, s.log)
		return nil
	}
}

// WithPost wraps the constructor of PostService, NewPostService.
func WithPost() ServicesConfig {
	return func(s *Services) error {
		s.Post = NewPostService(s.db, s.ledger)
		return nil
	}
}

// WithComment wraps the constructor of CommentService, NewCommentService.
func WithComment() ServicesConfig {
	return func(s *Services) error {
		s.Comment = NewCommentService(s.db, s.ledger)
		return nil
	}
}

// WithFollow wraps the constructor of FollowService, NewFollowService.
func WithFollow() ServicesConfig {
	return func(s *Services) error {
		s.Follow = NewFollowService(s.db, s.metrics)
		return nil
	}
}

// WithMessage wraps the constructor of MessageService, NewMessageService.
func WithMessage() ServicesConfig {
	return func(s *Services) error {
		s.Message = NewMessageService(s.db)
		return nil
	}
}
