// internal/workers/recommendation/classify-card/handler.go
package classifycard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"magick-workers/internal/analyzer"
	"magick-workers/internal/cards"
	"magick-workers/internal/common/camunda"
	"magick-workers/internal/common/config"
	"magick-workers/internal/common/errors"
	"magick-workers/internal/common/logger"
	"magick-workers/internal/common/metrics"
	"magick-workers/internal/common/observability"
)

const TaskType = "classify-card"

type Handler struct {
	config     *Config
	classifier *cards.Classifier
	analyzer   *analyzer.Analyzer
	errors     *errors.ErrorHandler
	obs        *observability.Observability
	logger     logger.Logger
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Classifier    *cards.Classifier
	Analyzer      *analyzer.Analyzer
	Observability *observability.Observability
	CustomConfig  *Config
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	h := &Handler{
		config:     workerConfig,
		classifier: opts.Classifier,
		analyzer:   opts.Analyzer,
		errors:     errors.NewErrorHandler(log),
		obs:        opts.Observability,
		logger:     log,
	}
	if h.classifier == nil {
		h.classifier = cards.Default()
	}
	if h.analyzer == nil {
		h.analyzer = analyzer.New()
	}
	return h, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"workflowKey": job.GetProcessInstanceKey(),
	})

	input, err := parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err, startTime)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err, startTime)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	if h.obs != nil {
		h.obs.RecordJobProcessed(ctx, TaskType, "completed")
		h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "completed")
	}
}

func parseInput(job entities.Job) (*Input, error) {
	raw := []byte(job.GetVariables())
	if result := inputSchema.ValidateJSON(raw); !result.Valid {
		return nil, errors.NewInputValidationFailedError(result.Summary())
	}

	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInputValidationFailedError(err.Error())
	}
	return &input, nil
}

// Execute classifies the card. Unknown cards get the default at-home
// metadata rather than an error.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	card := input.Card
	if card.IsZero() {
		return nil, errors.NewInvalidCardError("card text and category are empty")
	}

	meta := h.classifier.Classify(card)
	cardID := card.ID
	if cardID == "" {
		cardID = cards.Key(card.Category, card.Text)
	}

	output := &Output{
		CardID:              cardID,
		Curated:             h.classifier.Curated(card),
		RecommendationType:  meta.RecommendationType,
		NeedsRecommendation: cards.RequiresVisit(meta),
		BusinessCategories:  meta.BusinessCategories,
		Intensity:           meta.Intensity,
		Setting:             meta.Setting,
		Tags:                meta.Tags,
		SpecificBusinesses:  meta.SpecificBusinesses,
	}
	if h.config.IncludeProfile {
		profile := h.analyzer.Analyze(card)
		output.Profile = &profile
	}

	h.logger.Info("card classified", map[string]interface{}{
		"cardId":              cardID,
		"curated":             output.Curated,
		"recommendationType":  output.RecommendationType,
		"needsRecommendation": output.NeedsRecommendation,
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	if err := camunda.CompleteJob(ctx, client, job, output, nil); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, startTime time.Time) {
	stdErr := h.errors.HandleJobError(ctx, client, job, err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	if h.obs != nil {
		h.obs.RecordJobProcessed(ctx, TaskType, "failed")
		h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "failed")
	}
}
