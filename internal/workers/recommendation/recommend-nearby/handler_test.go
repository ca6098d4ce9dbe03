package recommendnearby

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magick-workers/internal/catalog"
	"magick-workers/internal/common/errors"
	"magick-workers/internal/common/logger"
	"magick-workers/internal/models"
	"magick-workers/internal/recommend"
)

// ==========================
// Test Doubles
// ==========================

type stubRanker struct {
	requests []recommend.Request
	result   []recommend.ScoredBusiness
	err      error
}

func (s *stubRanker) Rank(_ context.Context, req recommend.Request) ([]recommend.ScoredBusiness, error) {
	s.requests = append(s.requests, req)
	return s.result, s.err
}

type brokenModeStore struct{}

func (brokenModeStore) Get(context.Context) (models.MonetizationMode, error) {
	return "", stderrors.New("redis: connection refused")
}

func (brokenModeStore) Set(context.Context, models.MonetizationMode) (models.MonetizationMode, error) {
	return "", stderrors.New("redis: connection refused")
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "card-drawn",
		ElementId:          "Activity_RecommendNearby",
		CustomHeaders:      "{}",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

var landmarkCard = models.Card{
	Text:     "Go to a local landmark you've never visited and take a selfie.",
	Category: "Adventure Sparks",
	Type:     models.CardTypeMission,
}

func newHandler(t *testing.T, ranker Ranker, modes recommend.ModeStore) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{Engine: ranker, ModeStore: modes, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h
}

// ==========================
// Handler Creation Tests
// ==========================

func TestNewHandler_RequiresEngine(t *testing.T) {
	_, err := NewHandler(HandlerOptions{Logger: logger.NewNoOpLogger()})
	assert.ErrorContains(t, err, "engine is required")

	_, err = NewHandler(HandlerOptions{
		Engine:       &stubRanker{},
		CustomConfig: &Config{MaxJobsActive: 1, Timeout: time.Second, DefaultMode: "free"},
	})
	assert.ErrorContains(t, err, "default_mode")
}

// ==========================
// Execute Tests
// ==========================

func TestExecute_WithEngine(t *testing.T) {
	businesses, err := catalog.Embedded()
	require.NoError(t, err)

	engine := recommend.NewEngine(catalog.LoaderFunc(func(context.Context) ([]models.Business, error) {
		return businesses, nil
	}), recommend.DefaultConfig(), logger.NewNoOpLogger())

	h := newHandler(t, engine, recommend.NewStaticModeStore(models.MonetizationSponsor))
	out, err := h.Execute(context.Background(), &Input{
		Card:      landmarkCard,
		UserCity:  "Jacksonville",
		UserCoord: &models.GeoCoordinate{Lat: 30.3322, Lng: -81.6557},
	})
	require.NoError(t, err)

	assert.Equal(t, models.MonetizationSponsor, out.MonetizationMode)
	assert.True(t, out.HasRecommendations)
	assert.Equal(t, len(out.Recommendations), out.Count)
	assert.LessOrEqual(t, out.Count, 3)
	for i := 1; i < len(out.Recommendations); i++ {
		assert.GreaterOrEqual(t, out.Recommendations[i-1].Score, out.Recommendations[i].Score)
	}
}

func TestExecute_AtHomeCardReturnsEmptyList(t *testing.T) {
	calls := 0
	engine := recommend.NewEngine(catalog.LoaderFunc(func(context.Context) ([]models.Business, error) {
		calls++
		return nil, nil
	}), recommend.DefaultConfig(), logger.NewNoOpLogger())

	out, err := newHandler(t, engine, nil).Execute(context.Background(), &Input{
		Card: models.Card{Text: "What's your 'happy' food?"},
	})
	require.NoError(t, err)

	assert.NotNil(t, out.Recommendations)
	assert.Zero(t, out.Count)
	assert.False(t, out.HasRecommendations)
	assert.Zero(t, calls)
}

func TestExecute_ModeResolution(t *testing.T) {
	ranker := &stubRanker{}
	h := newHandler(t, ranker, recommend.NewStaticModeStore(models.MonetizationSponsor))

	_, err := h.Execute(context.Background(), &Input{Card: landmarkCard, MonetizationMode: "affiliate"})
	require.NoError(t, err)
	_, err = h.Execute(context.Background(), &Input{Card: landmarkCard})
	require.NoError(t, err)
	out, err := h.Execute(context.Background(), &Input{Card: landmarkCard, MonetizationMode: " Affiliate "})
	require.NoError(t, err)

	require.Len(t, ranker.requests, 3)
	assert.Equal(t, models.MonetizationAffiliate, ranker.requests[0].Mode)
	assert.Equal(t, models.MonetizationSponsor, ranker.requests[1].Mode)
	assert.Equal(t, models.MonetizationAffiliate, ranker.requests[2].Mode)
	assert.Equal(t, models.MonetizationAffiliate, out.MonetizationMode)
}

func TestExecute_InvalidModeOverride(t *testing.T) {
	ranker := &stubRanker{}
	_, err := newHandler(t, ranker, nil).Execute(context.Background(), &Input{Card: landmarkCard, MonetizationMode: "premium"})

	assert.Equal(t, errors.ErrCodeInvalidMonetizationMode, errors.AsStandard(err).Code)
	assert.Empty(t, ranker.requests)
}

func TestExecute_BrokenModeStoreUsesDefault(t *testing.T) {
	ranker := &stubRanker{}
	out, err := newHandler(t, ranker, brokenModeStore{}).Execute(context.Background(), &Input{Card: landmarkCard})
	require.NoError(t, err)

	assert.Equal(t, models.MonetizationAffiliate, out.MonetizationMode)
	assert.Equal(t, models.MonetizationAffiliate, ranker.requests[0].Mode)
}

func TestExecute_PassesLocation(t *testing.T) {
	ranker := &stubRanker{}
	loc := &models.UserLocation{City: "Jacksonville Beach", Neighborhood: "Pablo Creek"}
	_, err := newHandler(t, ranker, nil).Execute(context.Background(), &Input{
		Card:         landmarkCard,
		UserLocation: loc,
	})
	require.NoError(t, err)
	assert.Same(t, loc, ranker.requests[0].UserLocation)
	assert.Equal(t, landmarkCard, ranker.requests[0].Card)
}

func TestExecute_EngineErrorPropagates(t *testing.T) {
	ranker := &stubRanker{err: errors.NewCatalogLoadFailedError("postgres", stderrors.New("timeout"))}
	_, err := newHandler(t, ranker, nil).Execute(context.Background(), &Input{Card: landmarkCard})

	stdErr := errors.AsStandard(err)
	assert.Equal(t, errors.ErrCodeCatalogLoadFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

// ==========================
// Input Parsing Tests
// ==========================

func TestParseInput(t *testing.T) {
	input, err := parseInput(createMockJob(1, map[string]interface{}{
		"card":         map[string]interface{}{"text": landmarkCard.Text, "category": landmarkCard.Category},
		"userCity":     "Jacksonville",
		"userCoord":    map[string]interface{}{"lat": 30.33, "lng": -81.65},
		"userLocation": nil,
	}))
	require.NoError(t, err)

	assert.Equal(t, "Jacksonville", input.UserCity)
	require.NotNil(t, input.UserCoord)
	assert.InDelta(t, 30.33, input.UserCoord.Lat, 1e-9)
	assert.Nil(t, input.UserLocation)
}

func TestParseInput_Invalid(t *testing.T) {
	card := map[string]interface{}{"text": landmarkCard.Text}
	tests := []struct {
		name      string
		variables map[string]interface{}
	}{
		{"missing card", map[string]interface{}{"userCity": "Jacksonville"}},
		{"latitude out of range", map[string]interface{}{"card": card, "userCoord": map[string]interface{}{"lat": 91, "lng": 0}}},
		{"coord missing lng", map[string]interface{}{"card": card, "userCoord": map[string]interface{}{"lat": 30}}},
		{"nested coord invalid", map[string]interface{}{"card": card, "userLocation": map[string]interface{}{"coord": map[string]interface{}{"lat": 0, "lng": 200}}}},
		{"city not a string", map[string]interface{}{"card": card, "userCity": 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseInput(createMockJob(2, tt.variables))
			assert.Equal(t, errors.ErrCodeInputValidationFailed, errors.AsStandard(err).Code)
		})
	}
}
