package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poetryHub/cache"
	"poetryHub/crud"
	"poetryHub/domain"
	"poetryHub/http"
	"poetryHub/logger"
	"poetryHub/metrics"
	"poetryHub/search"
)

// main is the app's entry point.
func main() {
	// "-prod" means we're running in production, where a config file is required.
	productionBool := flag.Bool("prod", false, "Provide this flag in production to ensure that a config file is provided before the application starts.")
	resetBool := flag.Bool("reset", false, "Drop and recreate every table before starting.")
	reindexBool := flag.Bool("reindex", false, "Push every published poem to the search index before starting.")
	flag.Parse()

	config, err := LoadConfig(*productionBool)
	must(err)

	log, err := logger.New(config.Logging.Mode)
	must(err)
	defer log.Sync()

	if err := run(config, log, *resetBool, *reindexBool); err != nil {
		log.Fatal("poetryHub stopped", "error", err)
	}
}

func run(config *Config, log *logger.Logger, reset, reindex bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open a database connection and execute migrations.
	db := NewDB(config.Database.ConnectionInfo())
	if err := Open(db, config.IsProd()); err != nil {
		return err
	}
	defer Close(db)
	migrate := AutoMigrate
	if reset {
		log.Warn("resetting database")
		migrate = DestructiveReset
	}
	if err := migrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	reg := metrics.NewRegistry()
	opts := []crud.ServicesConfig{crud.WithMetrics(metrics.New(reg))}

	// Recommendation lists are cached in redis when it is enabled, in process otherwise.
	if config.Redis.Enabled {
		rdb, err := cache.NewRedis(log, config.Redis.Addr, config.Redis.Password, config.Redis.DB, "poetryhub:")
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, crud.WithCache(rdb))
	} else {
		mem, err := cache.NewMemory(cache.DefaultMemoryBytes)
		if err != nil {
			return err
		}
		defer mem.Close()
		opts = append(opts, crud.WithCache(mem))
	}

	// Search goes to elasticsearch when it is enabled and falls back to SQL otherwise.
	var (
		searcher domain.SearchService
		indexer  domain.SearchIndexer
	)
	if config.Elasticsearch.Enabled {
		es, err := search.NewElastic(config.ElasticAddresses(), config.Elasticsearch.Index, log)
		if err != nil {
			return err
		}
		if err := es.EnsureIndex(ctx); err != nil {
			return err
		}
		searcher, indexer = es, es
	} else {
		sql := search.NewSQL(db.Gorm)
		searcher, indexer = sql, sql
	}
	opts = append(opts, crud.WithSearch(searcher, indexer))

	hotTTL, err := config.HotCacheTTL()
	if err != nil {
		return err
	}
	opts = append(opts,
		crud.WithUser(config.Auth.Pepper, config.Auth.HMACKey),
		crud.WithAuthor(),
		crud.WithPoetry(),
		crud.WithInteraction(),
		crud.WithRecommend(crud.RecommendConfig{
			HotWindowDays: config.Recommend.HotWindowDays,
			HotCacheTTL:   hotTTL,
			DailyCache:    config.Recommend.DailyCache,
		}),
		crud.WithPost(),
		crud.WithComment(),
		crud.WithFollow(),
		crud.WithMessage(),
	)

	// Start the crud services.
	services, err := crud.NewServices(db.Gorm, log, opts...)
	if err != nil {
		return err
	}

	if reindex {
		if err := reindexPoetries(ctx, services, indexer, log); err != nil {
			return err
		}
	}

	// Set up a webserver.
	httpCfg := http.Config{
		IsProd:  config.IsProd(),
		CSRFKey: config.Server.CSRFKey,
	}
	if u, err := url.Parse(config.Server.ClientURL); err == nil && u.Host != "" {
		httpCfg.TrustedOrigins = []string{u.Host}
	}
	server := http.NewServer(httpCfg, log, services, reg)

	// Serve the app.
	addr := fmt.Sprintf(":%d", config.Server.Port)
	log.Info("listening", "addr", addr, "env", config.Server.Env)
	return server.Run(ctx, addr)
}

// reindexPoetries pushes every published poem to the index, a page at a time.
func reindexPoetries(ctx context.Context, services *crud.Services, indexer domain.SearchIndexer, log *logger.Logger) error {
	start := time.Now()
	filter := domain.PoetryFilter{
		SortBy: "created_at",
		Order:  "asc",
		Page:   domain.Page{Page: 1, PageSize: 100},
	}
	var indexed int
	for {
		poetries, _, err := services.Poetry.List(ctx, filter)
		if err != nil {
			return err
		}
		if len(poetries) == 0 {
			break
		}
		n, err := indexer.BulkIndex(ctx, poetries)
		if err != nil {
			return fmt.Errorf("reindexing page %d: %w", filter.Page.Page, err)
		}
		indexed += n
		filter.Page.Page++
	}
	log.Info("reindexed poetries", "count", indexed, "took", time.Since(start))
	return nil
}

// must is a little helper for shortening the panic instruction.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
