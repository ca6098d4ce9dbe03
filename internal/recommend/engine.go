// Package recommend ranks nearby businesses for a drawn card.
package recommend

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"magick-workers/internal/analyzer"
	"magick-workers/internal/cards"
	"magick-workers/internal/catalog"
	"magick-workers/internal/common/errors"
	"magick-workers/internal/common/logger"
	"magick-workers/internal/common/metrics"
	"magick-workers/internal/geo"
	"magick-workers/internal/models"
)

const (
	DefaultMaxResults = 3
	DefaultMarket     = "jacksonville"
)

// Classifier decides whether a card needs a recommendation at all.
type Classifier interface {
	Classify(card models.Card) models.CardMetadata
}

// Analyzer profiles a card for scoring.
type Analyzer interface {
	Analyze(card models.Card) models.CardProfile
}

type Config struct {
	MaxResults int
	// DefaultMarket is matched as a substring of the business city when no
	// business passes the location filter.
	DefaultMarket string
	DefaultMode   models.MonetizationMode
}

func DefaultConfig() Config {
	return Config{
		MaxResults:    DefaultMaxResults,
		DefaultMarket: DefaultMarket,
		DefaultMode:   models.MonetizationAffiliate,
	}
}

type Request struct {
	Card      models.Card
	UserCity  string
	UserCoord *models.GeoCoordinate
	// UserLocation fills UserCity and UserCoord when those are empty and
	// supplies the neighborhood.
	UserLocation *models.UserLocation
	// Mode is the monetization mode for this call; empty uses the engine
	// default.
	Mode models.MonetizationMode
}

func (r Request) city() string {
	if r.UserCity != "" {
		return r.UserCity
	}
	if r.UserLocation != nil {
		return r.UserLocation.City
	}
	return ""
}

func (r Request) coord() *models.GeoCoordinate {
	if r.UserCoord != nil {
		return r.UserCoord
	}
	if r.UserLocation != nil {
		return r.UserLocation.Coord
	}
	return nil
}

func (r Request) neighborhood() string {
	if r.UserLocation == nil {
		return ""
	}
	return strings.TrimSpace(r.UserLocation.Neighborhood)
}

// Engine is stateless between calls and safe for concurrent use.
type Engine struct {
	loader     catalog.Loader
	classifier Classifier
	analyzer   Analyzer
	config     Config
	logger     logger.Logger
	tracer     trace.Tracer
}

type Option func(*Engine)

func WithClassifier(c Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

func WithAnalyzer(a Analyzer) Option {
	return func(e *Engine) { e.analyzer = a }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

func NewEngine(loader catalog.Loader, cfg Config, log logger.Logger, opts ...Option) *Engine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if !cfg.DefaultMode.Valid() {
		cfg.DefaultMode = models.MonetizationAffiliate
	}
	cfg.DefaultMarket = strings.ToLower(strings.TrimSpace(cfg.DefaultMarket))

	e := &Engine{
		loader:     loader,
		classifier: cards.Default(),
		analyzer:   analyzer.New(),
		config:     cfg,
		logger:     log.WithFields(map[string]interface{}{"component": "recommend"}),
		tracer:     otel.Tracer("magick-workers/recommend"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RecommendNearby returns at most MaxResults businesses, best first.
func (e *Engine) RecommendNearby(ctx context.Context, req Request) ([]models.Business, error) {
	ranked, err := e.Rank(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]models.Business, len(ranked))
	for i, r := range ranked {
		out[i] = r.Business
	}
	return out, nil
}

// Rank is RecommendNearby with the per-business score breakdown.
func (e *Engine) Rank(ctx context.Context, req Request) ([]ScoredBusiness, error) {
	ctx, span := e.tracer.Start(ctx, "recommend.Rank")
	defer span.End()

	mode := req.Mode
	if mode == "" {
		mode = e.config.DefaultMode
	}

	// At-home cards return nothing whatever else the request carries.
	meta := e.classifier.Classify(req.Card)
	if !cards.RequiresVisit(meta) {
		if !mode.Valid() {
			mode = e.config.DefaultMode
		}
		span.SetAttributes(attribute.Bool("recommend.gated", true))
		metrics.RecommendationRequests.WithLabelValues("gated", string(mode)).Inc()
		return []ScoredBusiness{}, nil
	}

	if !mode.Valid() {
		return nil, errors.NewInvalidMonetizationModeError(string(mode))
	}
	span.SetAttributes(attribute.String("monetization.mode", string(mode)))

	start := time.Now()
	businesses, err := e.loader.Load(ctx)
	metrics.CatalogLoadDuration.WithLabelValues(catalog.SourceName(e.loader)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog load failed")
		metrics.RecommendationRequests.WithLabelValues("error", string(mode)).Inc()
		e.logger.Error("catalog load failed", map[string]interface{}{
			"source": catalog.SourceName(e.loader),
			"error":  err.Error(),
		})
		return nil, errors.NewCatalogLoadFailedError(catalog.SourceName(e.loader), err)
	}
	span.SetAttributes(attribute.Int("catalog.size", len(businesses)))

	pool, fellBack := e.eligible(businesses, req)
	if len(pool) == 0 {
		metrics.RecommendationRequests.WithLabelValues("empty", string(mode)).Inc()
		metrics.RecommendationResults.Observe(0)
		return []ScoredBusiness{}, nil
	}

	profile := e.analyzer.Analyze(req.Card)
	coord := req.coord()

	scored := make([]ScoredBusiness, 0, len(pool))
	for i, b := range pool {
		s := Score(b, profile, coord, mode)
		s.order = i
		scored = append(scored, s)
	}
	sortRanked(scored)

	if len(scored) > e.config.MaxResults {
		scored = scored[:e.config.MaxResults]
	}

	outcome := "ranked"
	if fellBack {
		outcome = "fallback_market"
	}
	metrics.RecommendationRequests.WithLabelValues(outcome, string(mode)).Inc()
	metrics.RecommendationResults.Observe(float64(len(scored)))
	span.SetAttributes(
		attribute.Int("recommend.eligible", len(pool)),
		attribute.Int("recommend.results", len(scored)),
		attribute.Bool("recommend.fallback_market", fellBack),
	)

	e.logger.Debug("ranked businesses", map[string]interface{}{
		"card":      truncate(req.Card.Text, 50),
		"tags":      profile.Tags,
		"keywords":  profile.Keywords,
		"intensity": profile.Intensity,
		"setting":   profile.Setting,
		"eligible":  len(pool),
		"results":   len(scored),
		"fallback":  fellBack,
	})

	return scored, nil
}

// eligible applies the location filter, falling back to the default market
// when nothing matches.
func (e *Engine) eligible(businesses []models.Business, req Request) ([]models.Business, bool) {
	city := strings.TrimSpace(req.city())
	neighborhood := strings.ToLower(req.neighborhood())
	coord := req.coord()

	pool := make([]models.Business, 0, len(businesses))
	for _, b := range businesses {
		if matchesLocation(b, city, neighborhood, coord) {
			pool = append(pool, b)
		}
	}
	if len(pool) > 0 || e.config.DefaultMarket == "" {
		return pool, false
	}

	for _, b := range businesses {
		if strings.Contains(strings.ToLower(b.City), e.config.DefaultMarket) {
			pool = append(pool, b)
		}
	}
	return pool, true
}

func matchesLocation(b models.Business, city, neighborhood string, coord *models.GeoCoordinate) bool {
	if city != "" && b.City != "" && strings.EqualFold(strings.TrimSpace(b.City), city) {
		return true
	}
	if neighborhood != "" && b.Neighborhood != "" && strings.Contains(strings.ToLower(b.Neighborhood), neighborhood) {
		return true
	}
	if d, ok := geo.DistanceBetween(coord, b.Coord); ok && d <= b.EffectiveRadiusKm() {
		return true
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
