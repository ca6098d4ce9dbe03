package catalog

import (
	"context"

	"magick-workers/internal/common/logger"
	"magick-workers/internal/common/metrics"
	"magick-workers/internal/models"
)

// FallbackLoader substitutes the fallback catalog when the primary fails or
// comes back empty. The primary's error is only returned if the fallback
// fails too.
type FallbackLoader struct {
	primary  Loader
	fallback Loader
	logger   logger.Logger
}

func NewFallbackLoader(primary, fallback Loader, log logger.Logger) *FallbackLoader {
	return &FallbackLoader{
		primary:  primary,
		fallback: fallback,
		logger:   log.WithFields(map[string]interface{}{"component": "catalog.fallback"}),
	}
}

func (f *FallbackLoader) Name() string { return SourceName(f.primary) }

func (f *FallbackLoader) Load(ctx context.Context) ([]models.Business, error) {
	businesses, err := f.primary.Load(ctx)
	if err == nil && len(businesses) > 0 {
		return businesses, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	reason := "empty"
	fields := map[string]interface{}{
		"primary":  SourceName(f.primary),
		"fallback": SourceName(f.fallback),
	}
	if err != nil {
		reason = "error"
		fields["error"] = err.Error()
	}
	metrics.CatalogFallbacks.WithLabelValues(reason).Inc()
	f.logger.Warn("using fallback catalog", fields)

	out, fbErr := f.fallback.Load(ctx)
	if fbErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, fbErr
	}
	return out, nil
}
