package app

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magick-workers/internal/catalog"
	"magick-workers/internal/common/config"
	"magick-workers/internal/common/database"
	"magick-workers/internal/common/logger"
	"magick-workers/internal/models"
	"magick-workers/internal/recommend"

	cc "magick-workers/internal/workers/recommendation/classify-card"
	rn "magick-workers/internal/workers/recommendation/recommend-nearby"
	smm "magick-workers/internal/workers/recommendation/set-monetization-mode"
	tac "magick-workers/internal/workers/recommendation/track-affiliate-click"
)

var landmarkCard = models.Card{
	Text:     "Go to a local landmark you've never visited and take a selfie.",
	Category: "Adventure Sparks",
	Type:     models.CardTypeMission,
}

func staticConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "magick-workers", Version: "test"},
		Catalog: config.CatalogConfig{Source: config.CatalogSourceStatic, CacheKey: "catalog:businesses"},
		Recommendation: config.RecommendationConfig{
			MaxResults:    3,
			DefaultMarket: "jacksonville",
			DefaultMode:   "affiliate",
			ModeStore:     config.ModeStoreMemory,
			ModeKey:       "recommend:monetization_mode",
		},
		Affiliate: config.AffiliateConfig{
			Enabled:  true,
			Programs: map[string]config.AffiliateProgramConfig{"Viator": {AffiliateID: "P00012345"}},
		},
		Workers: map[string]config.WorkerConfig{
			cc.TaskType: {Enabled: true, MaxJobsActive: 2, Timeout: 1000},
		},
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.ErrorContains(t, err, "config is required")
}

func TestNew_StaticCatalog(t *testing.T) {
	a, err := New(context.Background(), Options{Config: staticConfig(), Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Postgres)
	assert.Nil(t, a.Redis)
	assert.Empty(t, a.Checks())
	assert.IsType(t, &recommend.StaticModeStore{}, a.ModeStore)
	assert.IsType(t, &catalog.AffiliateLoader{}, a.Loader)
	assert.Equal(t, "static", catalog.SourceName(a.Loader))

	businesses, err := a.Engine.RecommendNearby(context.Background(), recommend.Request{
		Card:      landmarkCard,
		UserCity:  "Jacksonville",
		UserCoord: &models.GeoCoordinate{Lat: 30.3322, Lng: -81.6557},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, businesses)
	assert.LessOrEqual(t, len(businesses), 3)
}

func TestNew_RedisModeStoreAndCache(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := staticConfig()
	cfg.Database.Redis.Address = mr.Addr()
	cfg.Catalog.CacheTTL = 60000
	cfg.Recommendation.ModeStore = config.ModeStoreRedis

	a, err := New(context.Background(), Options{Config: cfg, Logger: logger.NewNoOpLogger()})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Redis)
	assert.Contains(t, a.Checks(), "redis")
	assert.IsType(t, &recommend.RedisModeStore{}, a.ModeStore)

	_, err = a.ModeStore.Set(context.Background(), models.MonetizationSponsor)
	require.NoError(t, err)
	val, err := mr.Get(cfg.Recommendation.ModeKey)
	require.NoError(t, err)
	assert.Equal(t, "sponsor", val)

	_, err = a.Loader.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, mr.Exists(cfg.Catalog.CacheKey))
}

func TestDecorateLoader_FallbackCatalogIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := staticConfig()
	cfg.Catalog.Source = config.CatalogSourcePostgres
	cfg.Catalog.FallbackToStatic = true
	cfg.Catalog.CacheTTL = 60000
	cfg.Affiliate.Enabled = false

	down := true
	primary := catalog.LoaderFunc(func(context.Context) ([]models.Business, error) {
		if down {
			return nil, stderrors.New("dial tcp: connection refused")
		}
		return []models.Business{{ID: "pg-river-tower", City: "Jacksonville", Source: models.SourceLocalSponsor}}, nil
	})
	static := catalog.LoaderFunc(func(context.Context) ([]models.Business, error) {
		return []models.Business{{ID: "static-river-tower", City: "Jacksonville", Source: models.SourceLocalSponsor}}, nil
	})

	a := &App{Config: cfg, Logger: logger.NewNoOpLogger(), Redis: &database.RedisClient{Client: client}}
	loader := a.decorateLoader(primary, static)

	got, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "static-river-tower", got[0].ID)
	assert.False(t, mr.Exists(cfg.Catalog.CacheKey))

	down = false
	got, err = loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pg-river-tower", got[0].ID)
	assert.True(t, mr.Exists(cfg.Catalog.CacheKey))

	down = true
	got, err = loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pg-river-tower", got[0].ID)
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := staticConfig()
	cfg.Database.Redis.Address = "127.0.0.1:1"
	cfg.Recommendation.ModeStore = config.ModeStoreRedis

	_, err := New(context.Background(), Options{
		Config:          cfg,
		Logger:          logger.NewNoOpLogger(),
		ConnectAttempts: 2,
		ConnectDelay:    time.Millisecond,
	})
	assert.ErrorContains(t, err, "redis")
}

func TestWorkerHandlers(t *testing.T) {
	a, err := New(context.Background(), Options{Config: staticConfig(), Logger: logger.NewNoOpLogger()})
	require.NoError(t, err)

	handlers, err := a.WorkerHandlers()
	require.NoError(t, err)
	assert.Len(t, handlers, 4)
	for _, taskType := range []string{cc.TaskType, rn.TaskType, smm.TaskType, tac.TaskType} {
		assert.Contains(t, handlers, taskType)
	}
}

func TestRouter(t *testing.T) {
	a, err := New(context.Background(), Options{Config: staticConfig(), Logger: logger.NewNoOpLogger()})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/monetization-mode", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"affiliate"`)
}
