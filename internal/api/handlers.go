package api

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"magick-workers/internal/cards"
	"magick-workers/internal/common/errors"
	"magick-workers/internal/common/logger"
	"magick-workers/internal/models"
	"magick-workers/internal/recommend"
)

type handlers struct {
	deps    Dependencies
	logger  logger.Logger
	version string
}

type classifyRequest struct {
	Card models.Card `json:"card"`
}

type classifyResponse struct {
	CardID              string              `json:"cardId"`
	Curated             bool                `json:"curated"`
	NeedsRecommendation bool                `json:"needsRecommendation"`
	Metadata            models.CardMetadata `json:"metadata"`
	Profile             models.CardProfile  `json:"profile"`
}

type recommendRequest struct {
	Card             models.Card           `json:"card"`
	UserCity         string                `json:"userCity"`
	UserCoord        *models.GeoCoordinate `json:"userCoord"`
	UserLocation     *models.UserLocation  `json:"userLocation"`
	MonetizationMode string                `json:"monetizationMode"`
	// Explain adds the score breakdown to each result.
	Explain bool `json:"explain"`
}

type recommendResponse struct {
	Businesses       []models.Business          `json:"businesses"`
	Scores           []recommend.ScoredBusiness `json:"scores,omitempty"`
	Count            int                        `json:"count"`
	MonetizationMode models.MonetizationMode    `json:"monetizationMode"`
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type clickRequest struct {
	Business     models.Business      `json:"business"`
	UserLocation *models.UserLocation `json:"userLocation"`
}

type clickResponse struct {
	ClickID   string    `json:"clickId"`
	TrackedAt time.Time `json:"trackedAt"`
	URL       string    `json:"url"`
}

func (h *handlers) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.deps.Checks))
	for name := range h.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.deps.Checks[name].Ping(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"version": h.version,
		"checks":  checks,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handlers) classifyCard(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInputValidationFailedError(err.Error()))
		return
	}
	if req.Card.IsZero() {
		_ = c.Error(errors.NewInvalidCardError("card text and category are empty"))
		return
	}

	meta := h.deps.Classifier.Classify(req.Card)
	cardID := req.Card.ID
	if cardID == "" {
		cardID = cards.Key(req.Card.Category, req.Card.Text)
	}

	SuccessResponse(c, http.StatusOK, "Card classified", classifyResponse{
		CardID:              cardID,
		Curated:             h.deps.Classifier.Curated(req.Card),
		NeedsRecommendation: cards.RequiresVisit(meta),
		Metadata:            meta,
		Profile:             h.deps.Analyzer.Analyze(req.Card),
	})
}

func (h *handlers) recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInputValidationFailedError(err.Error()))
		return
	}
	if err := validateCoord(req.UserCoord); err != nil {
		_ = c.Error(err)
		return
	}
	if req.UserLocation != nil {
		if err := validateCoord(req.UserLocation.Coord); err != nil {
			_ = c.Error(err)
			return
		}
	}

	ctx := c.Request.Context()
	mode, err := h.resolveMode(ctx, req.MonetizationMode)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ranked, err := h.deps.Engine.Rank(ctx, recommend.Request{
		Card:         req.Card,
		UserCity:     req.UserCity,
		UserCoord:    req.UserCoord,
		UserLocation: req.UserLocation,
		Mode:         mode,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := recommendResponse{
		Businesses:       make([]models.Business, len(ranked)),
		Count:            len(ranked),
		MonetizationMode: mode,
	}
	for i, r := range ranked {
		resp.Businesses[i] = r.Business
	}
	if req.Explain {
		resp.Scores = ranked
	}

	SuccessResponse(c, http.StatusOK, "Recommendations ranked", resp)
}

// resolveMode reads the stored mode unless the request overrides it. A
// failing store leaves the mode empty so the engine default applies.
func (h *handlers) resolveMode(ctx context.Context, override string) (models.MonetizationMode, error) {
	if override = strings.TrimSpace(override); override != "" {
		mode, err := recommend.ParseMode(strings.ToLower(override))
		if err != nil {
			return "", errors.NewInvalidMonetizationModeError(override)
		}
		return mode, nil
	}
	if h.deps.ModeStore == nil {
		return "", nil
	}
	mode, err := h.deps.ModeStore.Get(ctx)
	if err != nil {
		h.logger.Warn("monetization mode unavailable", map[string]interface{}{"error": err.Error()})
		return "", nil
	}
	return mode, nil
}

func (h *handlers) getMode(c *gin.Context) {
	if h.deps.ModeStore == nil {
		_ = c.Error(errors.NewModeStoreFailedError(errNotConfigured("mode store")))
		return
	}
	mode, err := h.deps.ModeStore.Get(c.Request.Context())
	if err != nil {
		_ = c.Error(errors.NewModeStoreFailedError(err))
		return
	}
	SuccessResponse(c, http.StatusOK, "Monetization mode", gin.H{"mode": mode})
}

func (h *handlers) setMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInputValidationFailedError(err.Error()))
		return
	}
	if h.deps.ModeStore == nil {
		_ = c.Error(errors.NewModeStoreFailedError(errNotConfigured("mode store")))
		return
	}

	mode, err := recommend.ParseMode(strings.ToLower(strings.TrimSpace(req.Mode)))
	if err != nil {
		_ = c.Error(errors.NewInvalidMonetizationModeError(req.Mode))
		return
	}

	prev, err := h.deps.ModeStore.Set(c.Request.Context(), mode)
	if err != nil {
		_ = c.Error(errors.NewModeStoreFailedError(err))
		return
	}

	h.logger.Info("monetization mode changed", map[string]interface{}{
		"mode":         mode,
		"previousMode": prev,
		"remoteAddr":   c.ClientIP(),
	})
	SuccessResponse(c, http.StatusOK, "Monetization mode updated", gin.H{"mode": mode, "previousMode": prev})
}

func (h *handlers) trackClick(c *gin.Context) {
	var req clickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInputValidationFailedError(err.Error()))
		return
	}
	if h.deps.Tracker == nil {
		ErrorResponse(c, http.StatusServiceUnavailable, "Click tracking is disabled", "TRACKING_DISABLED")
		return
	}

	click, err := h.deps.Tracker.Track(c.Request.Context(), req.Business, req.UserLocation)
	if err != nil {
		_ = c.Error(err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "Click tracked", clickResponse{
		ClickID:   click.ID,
		TrackedAt: click.ClickedAt,
		URL:       h.deps.Affiliates.DecorateURL(req.Business.Source, req.Business.URL, nil),
	})
}

func (h *handlers) affiliatePrograms(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "Affiliate programs", h.deps.Affiliates.ProgramStats())
}

func validateCoord(coord *models.GeoCoordinate) error {
	if coord == nil {
		return nil
	}
	if coord.Lat < -90 || coord.Lat > 90 || coord.Lng < -180 || coord.Lng > 180 {
		return errors.NewInvalidLocationError("coordinate out of range")
	}
	return nil
}

type notConfiguredError string

func (e notConfiguredError) Error() string { return string(e) + " is not configured" }

func errNotConfigured(what string) error { return notConfiguredError(what) }
