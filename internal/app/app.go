// Package app assembles the recommendation components from configuration.
// Both binaries build one App and expose it through their own transport.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"magick-workers/internal/analyzer"
	"magick-workers/internal/api"
	"magick-workers/internal/cards"
	"magick-workers/internal/catalog"
	"magick-workers/internal/common/aws"
	"magick-workers/internal/common/camunda"
	"magick-workers/internal/common/config"
	"magick-workers/internal/common/database"
	"magick-workers/internal/common/logger"
	"magick-workers/internal/common/observability"
	"magick-workers/internal/models"
	"magick-workers/internal/recommend"
	"magick-workers/internal/tracking"

	cc "magick-workers/internal/workers/recommendation/classify-card"
	rn "magick-workers/internal/workers/recommendation/recommend-nearby"
	smm "magick-workers/internal/workers/recommendation/set-monetization-mode"
	tac "magick-workers/internal/workers/recommendation/track-affiliate-click"
)

const defaultConnectAttempts = 10

type Options struct {
	Config        *config.Config
	Logger        logger.Logger
	Observability *observability.Observability
	// ConnectAttempts bounds the retries for each backing store.
	ConnectAttempts int
	ConnectDelay    time.Duration
}

type App struct {
	Config        *config.Config
	Logger        logger.Logger
	Observability *observability.Observability

	Classifier *cards.Classifier
	Analyzer   *analyzer.Analyzer
	Affiliates *catalog.Affiliates
	Loader     catalog.Loader
	Engine     *recommend.Engine
	ModeStore  recommend.ModeStore
	Tracker    *tracking.Tracker

	Postgres      *database.PostgresClient
	Redis         *database.RedisClient
	Elasticsearch *database.ElasticsearchClient
	Firestore     *database.FirestoreClient
}

// New connects every store the configuration needs and wires the engine on
// top of them. Call Close when done.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.ConnectAttempts <= 0 {
		opts.ConnectAttempts = defaultConnectAttempts
	}
	if opts.ConnectDelay <= 0 {
		opts.ConnectDelay = 2 * time.Second
	}

	cfg := opts.Config
	a := &App{
		Config:        cfg,
		Logger:        opts.Logger,
		Observability: opts.Observability,
		Classifier:    cards.Default(),
		Analyzer:      analyzer.New(),
	}

	if err := a.connect(ctx, opts); err != nil {
		_ = a.Close()
		return nil, err
	}

	ids := make(map[string]string, len(cfg.Affiliate.Programs))
	for name, p := range cfg.Affiliate.Programs {
		ids[strings.ToLower(name)] = p.AffiliateID
	}
	a.Affiliates = catalog.NewAffiliates(ids)

	loader, err := a.buildLoader(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Loader = loader

	engineOpts := []recommend.Option{
		recommend.WithClassifier(a.Classifier),
		recommend.WithAnalyzer(a.Analyzer),
	}
	if a.Observability != nil {
		engineOpts = append(engineOpts, recommend.WithTracer(a.Observability.Tracer()))
	}
	a.Engine = recommend.NewEngine(loader, recommend.Config{
		MaxResults:    cfg.Recommendation.MaxResults,
		DefaultMarket: cfg.Recommendation.DefaultMarket,
		DefaultMode:   models.MonetizationMode(cfg.Recommendation.DefaultMode),
	}, a.Logger, engineOpts...)

	a.ModeStore = a.buildModeStore()

	tracker, err := a.buildTracker(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Tracker = tracker

	a.Logger.Info("application assembled", map[string]interface{}{
		"catalogSource": catalog.SourceName(loader),
		"modeStore":     cfg.Recommendation.ModeStore,
		"tracking":      cfg.Tracking.Enabled,
		"affiliates":    cfg.Affiliate.Enabled,
	})
	return a, nil
}

func (a *App) connect(ctx context.Context, opts Options) error {
	cfg := a.Config

	if cfg.NeedsPostgres() {
		err := camunda.RetryWithBackoff(ctx, opts.ConnectAttempts, opts.ConnectDelay, a.Logger, "PostgreSQL connection", func() error {
			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				_ = pg.Close()
				return err
			}
			a.Postgres = pg
			return nil
		})
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		a.Logger.Info("PostgreSQL connected", nil)
	}

	if cfg.NeedsRedis() {
		err := camunda.RetryWithBackoff(ctx, opts.ConnectAttempts, opts.ConnectDelay, a.Logger, "Redis connection", func() error {
			rdb, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := rdb.Ping(ctx); err != nil {
				_ = rdb.Close()
				return err
			}
			a.Redis = rdb
			return nil
		})
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		a.Logger.Info("Redis connected", nil)
	}

	if cfg.NeedsElasticsearch() {
		err := camunda.RetryWithBackoff(ctx, opts.ConnectAttempts, opts.ConnectDelay, a.Logger, "Elasticsearch connection", func() error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			a.Elasticsearch = es
			return nil
		})
		if err != nil {
			return fmt.Errorf("elasticsearch: %w", err)
		}
		a.Logger.Info("Elasticsearch connected", nil)
	}

	if cfg.Catalog.Source == config.CatalogSourceFirestore {
		fs, err := database.NewFirestore(ctx, cfg.Firestore)
		if err != nil {
			return fmt.Errorf("firestore: %w", err)
		}
		a.Firestore = fs
	}
	return nil
}

// buildLoader stacks the catalog decorators: primary source, redis snapshot
// cache, static fallback, then affiliate decoration.
func (a *App) buildLoader(ctx context.Context) (catalog.Loader, error) {
	cfg := a.Config
	static := catalog.NewStaticLoader(cfg.Catalog.StaticPath)

	var primary catalog.Loader
	switch cfg.Catalog.Source {
	case config.CatalogSourceStatic:
		primary = static
	case config.CatalogSourcePostgres:
		store := catalog.NewPostgresStore(a.Postgres.DB, a.Logger)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		primary = store
	case config.CatalogSourceElasticsearch:
		index := catalog.NewSearchIndex(a.Elasticsearch.Client, cfg.Database.Elasticsearch.Index, cfg.Catalog.MaxDocuments, a.Logger)
		if err := index.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		primary = index
	case config.CatalogSourceFirestore:
		primary = catalog.NewFirestoreLoader(a.Firestore.Client, cfg.Firestore.Collection, cfg.Catalog.MaxDocuments, a.Logger)
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}

	return a.decorateLoader(primary, static), nil
}

// decorateLoader caches only the primary's catalog, so a fallback served
// during an outage is never stored and a recovered primary is read again.
func (a *App) decorateLoader(primary, static catalog.Loader) catalog.Loader {
	cfg := a.Config
	loader := primary
	if cfg.Catalog.CacheTTL > 0 && a.Redis != nil {
		loader = catalog.NewCachedLoader(loader, a.Redis.Client, cfg.Catalog.CacheKey, config.GetDuration(cfg.Catalog.CacheTTL), a.Logger)
	}
	if cfg.Catalog.FallbackToStatic && cfg.Catalog.Source != config.CatalogSourceStatic {
		loader = catalog.NewFallbackLoader(loader, static, a.Logger)
	}
	if cfg.Affiliate.Enabled {
		loader = catalog.NewAffiliateLoader(loader, a.Affiliates)
	}
	return loader
}

func (a *App) buildModeStore() recommend.ModeStore {
	fallback := models.MonetizationMode(a.Config.Recommendation.DefaultMode)
	if a.Config.Recommendation.ModeStore == config.ModeStoreRedis && a.Redis != nil {
		return recommend.NewRedisModeStore(a.Redis.Client, a.Config.Recommendation.ModeKey, fallback)
	}
	return recommend.NewStaticModeStore(fallback)
}

// buildTracker always returns a tracker; without tracking enabled it only
// logs and counts clicks.
func (a *App) buildTracker(ctx context.Context) (*tracking.Tracker, error) {
	cfg := a.Config
	if !cfg.Tracking.Enabled || a.Postgres == nil {
		return tracking.NewTracker(nil, a.Logger), nil
	}

	var opts []tracking.Option
	if cfg.Integrations.AWS.SNS.Enabled && cfg.Tracking.SNSTopicARN != "" {
		client, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("sns: %w", err)
		}
		opts = append(opts, tracking.WithPublisher(aws.NewEventPublisher(client, cfg.Tracking.SNSTopicARN)))
	}

	tracker := tracking.NewTracker(a.Postgres.DB, a.Logger, opts...)
	if err := tracker.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return tracker, nil
}

// Checks lists the connected stores for health reporting.
func (a *App) Checks() map[string]api.Pinger {
	checks := make(map[string]api.Pinger)
	if a.Postgres != nil {
		checks["postgres"] = a.Postgres
	}
	if a.Redis != nil {
		checks["redis"] = a.Redis
	}
	if a.Elasticsearch != nil {
		checks["elasticsearch"] = a.Elasticsearch
	}
	return checks
}

func (a *App) Router() *gin.Engine {
	return api.NewRouter(api.Dependencies{
		Classifier: a.Classifier,
		Analyzer:   a.Analyzer,
		Engine:     a.Engine,
		ModeStore:  a.ModeStore,
		Tracker:    a.Tracker,
		Affiliates: a.Affiliates,
		Checks:     a.Checks(),
		Logger:     a.Logger,
	}, api.RouterOptions{
		CORSOrigins: a.Config.Server.CORSOrigins,
		Version:     a.Config.App.Version,
	})
}

// WorkerHandlers builds the job handler for every task type, keyed by task
// type.
func (a *App) WorkerHandlers() (map[string]camunda.JobHandler, error) {
	classify, err := cc.NewHandler(cc.HandlerOptions{
		AppConfig:     a.Config,
		Classifier:    a.Classifier,
		Analyzer:      a.Analyzer,
		Observability: a.Observability,
		Logger:        a.Logger,
	})
	if err != nil {
		return nil, err
	}

	nearby, err := rn.NewHandler(rn.HandlerOptions{
		AppConfig:     a.Config,
		Engine:        a.Engine,
		ModeStore:     a.ModeStore,
		Observability: a.Observability,
		Logger:        a.Logger,
	})
	if err != nil {
		return nil, err
	}

	setMode, err := smm.NewHandler(smm.HandlerOptions{
		AppConfig: a.Config,
		ModeStore: a.ModeStore,
		Logger:    a.Logger,
	})
	if err != nil {
		return nil, err
	}

	clicks, err := tac.NewHandler(tac.HandlerOptions{
		AppConfig: a.Config,
		Tracker:   a.Tracker,
		Logger:    a.Logger,
	})
	if err != nil {
		return nil, err
	}

	return map[string]camunda.JobHandler{
		cc.TaskType:  classify,
		rn.TaskType:  nearby,
		smm.TaskType: setMode,
		tac.TaskType: clicks,
	}, nil
}

func (a *App) Close() error {
	var errs []error
	if a.Postgres != nil {
		errs = append(errs, a.Postgres.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Firestore != nil {
		errs = append(errs, a.Firestore.Close())
	}
	return errors.Join(errs...)
}
