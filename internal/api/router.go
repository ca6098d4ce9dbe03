// Package api serves the recommendation engine to the mobile client.
package api

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"magick-workers/internal/analyzer"
	"magick-workers/internal/cards"
	"magick-workers/internal/catalog"
	"magick-workers/internal/common/logger"
	"magick-workers/internal/models"
	"magick-workers/internal/recommend"
)

type Ranker interface {
	Rank(ctx context.Context, req recommend.Request) ([]recommend.ScoredBusiness, error)
}

type Tracker interface {
	Track(ctx context.Context, b models.Business, user *models.UserLocation) (models.AffiliateClick, error)
}

// Pinger is any backing store the health endpoint should check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Classifier *cards.Classifier
	Analyzer   *analyzer.Analyzer
	Engine     Ranker
	ModeStore  recommend.ModeStore
	// Tracker is optional; without it POST /v1/clicks answers 503.
	Tracker    Tracker
	Affiliates *catalog.Affiliates
	Checks     map[string]Pinger
	Logger     logger.Logger
}

type RouterOptions struct {
	CORSOrigins []string
	Version     string
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(deps Dependencies, opts RouterOptions) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if deps.Classifier == nil {
		deps.Classifier = cards.Default()
	}
	if deps.Analyzer == nil {
		deps.Analyzer = analyzer.New()
	}
	if deps.Affiliates == nil {
		deps.Affiliates = catalog.NewAffiliates(nil)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(MetricsMiddleware())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlerMiddleware(log))

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	h := &handlers{deps: deps, logger: log, version: opts.Version}

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/cards/classify", h.classifyCard)
		v1.POST("/recommendations", h.recommend)
		v1.GET("/monetization-mode", h.getMode)
		v1.PUT("/monetization-mode", h.setMode)
		v1.POST("/clicks", h.trackClick)
		v1.GET("/affiliate-programs", h.affiliatePrograms)
	}

	return r
}
