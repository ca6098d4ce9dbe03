// internal/workers/recommendation/recommend-nearby/handler.go
package recommendnearby

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"magick-workers/internal/common/camunda"
	"magick-workers/internal/common/config"
	"magick-workers/internal/common/errors"
	"magick-workers/internal/common/logger"
	"magick-workers/internal/common/metrics"
	"magick-workers/internal/common/observability"
	"magick-workers/internal/models"
	"magick-workers/internal/recommend"
)

const TaskType = "recommend-nearby"

// Ranker is the part of recommend.Engine this worker needs.
type Ranker interface {
	Rank(ctx context.Context, req recommend.Request) ([]recommend.ScoredBusiness, error)
}

type Handler struct {
	config *Config
	engine Ranker
	modes  recommend.ModeStore
	errors *errors.ErrorHandler
	obs    *observability.Observability
	logger logger.Logger
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Engine        Ranker
	ModeStore     recommend.ModeStore
	Observability *observability.Observability
	CustomConfig  *Config
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("%s: engine is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	modes := opts.ModeStore
	if modes == nil {
		modes = recommend.NewStaticModeStore(workerConfig.DefaultMode)
	}

	return &Handler{
		config: workerConfig,
		engine: opts.Engine,
		modes:  modes,
		errors: errors.NewErrorHandler(log),
		obs:    opts.Observability,
		logger: log,
	}, nil
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	mode, err := h.resolveMode(ctx, input.MonetizationMode)
	if err != nil {
		return nil, err
	}

	ranked, err := h.engine.Rank(ctx, recommend.Request{
		Card:         input.Card,
		UserCity:     input.UserCity,
		UserCoord:    input.UserCoord,
		UserLocation: input.UserLocation,
		Mode:         mode,
	})
	if err != nil {
		return nil, err
	}

	recs := make([]Recommendation, len(ranked))
	for i, r := range ranked {
		recs[i] = Recommendation{
			Business:   r.Business,
			Score:      r.Score,
			Factors:    r.Factors,
			DistanceKm: r.DistanceKm,
		}
	}

	h.logger.Info("recommendations ranked", map[string]interface{}{
		"count": len(recs),
		"mode":  mode,
		"city":  input.UserCity,
	})

	return &Output{
		Recommendations:    recs,
		Count:              len(recs),
		HasRecommendations: len(recs) > 0,
		MonetizationMode:   mode,
	}, nil
}

// resolveMode prefers the per-job override. A failing mode store degrades to
// the configured default instead of failing the recommendation.
func (h *Handler) resolveMode(ctx context.Context, override string) (models.MonetizationMode, error) {
	if override = strings.TrimSpace(override); override != "" {
		mode, err := recommend.ParseMode(strings.ToLower(override))
		if err != nil {
			return "", errors.NewInvalidMonetizationModeError(override)
		}
		return mode, nil
	}

	mode, err := h.modes.Get(ctx)
	if err != nil {
		h.logger.Warn("monetization mode unavailable, using default", map[string]interface{}{
			"error":   err.Error(),
			"default": h.config.DefaultMode,
		})
		return h.config.DefaultMode, nil
	}
	return mode, nil
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
