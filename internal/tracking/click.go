// Package tracking records affiliate link clicks.
package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"

	"magick-workers/internal/common/errors"
	"magick-workers/internal/common/logger"
	"magick-workers/internal/common/metrics"
	"magick-workers/internal/models"
)

const (
	EventTypeClick = "affiliate.click"
	UnknownCity    = "unknown"
	// AreaPrecision keeps the stored user area at roughly 5km.
	AreaPrecision = 5
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS affiliate_clicks (
	id          UUID PRIMARY KEY,
	business_id TEXT NOT NULL,
	source      TEXT NOT NULL,
	city        TEXT NOT NULL DEFAULT '',
	user_city   TEXT NOT NULL,
	user_area   TEXT,
	commission  DOUBLE PRECISION NOT NULL DEFAULT 0,
	clicked_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS affiliate_clicks_source_idx ON affiliate_clicks (source, clicked_at);`

// Publisher fans click events out to analytics.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, payload interface{}) (string, error)
}

type Tracker struct {
	db        *sql.DB
	publisher Publisher
	logger    logger.Logger
	now       func() time.Time
}

type Option func(*Tracker)

func WithPublisher(p Publisher) Option {
	return func(t *Tracker) { t.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker persists to db when it is non-nil; otherwise clicks are only
// logged and counted.
func NewTracker(db *sql.DB, log logger.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "tracking"}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) EnsureSchema(ctx context.Context) error {
	if t.db == nil {
		return nil
	}
	if _, err := t.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create affiliate_clicks schema: %w", err)
	}
	return nil
}

// Track records a click on b. The user's coordinate is reduced to a coarse
// geohash before it is stored or published.
func (t *Tracker) Track(ctx context.Context, b models.Business, user *models.UserLocation) (models.AffiliateClick, error) {
	if strings.TrimSpace(b.ID) == "" {
		return models.AffiliateClick{}, errors.NewInputValidationFailedError("business id is required")
	}

	click := models.AffiliateClick{
		ID:         uuid.NewString(),
		BusinessID: b.ID,
		Source:     b.Source,
		City:       b.City,
		UserCity:   UnknownCity,
		Commission: b.Commission,
		ClickedAt:  t.now().UTC(),
	}
	if user != nil {
		if city := strings.TrimSpace(user.City); city != "" {
			click.UserCity = city
		}
		if user.Coord != nil {
			click.UserArea = geohash.EncodeWithPrecision(user.Coord.Lat, user.Coord.Lng, AreaPrecision)
		}
	}

	if t.db != nil {
		var area sql.NullString
		if click.UserArea != "" {
			area = sql.NullString{String: click.UserArea, Valid: true}
		}
		_, err := t.db.ExecContext(ctx, `
			INSERT INTO affiliate_clicks (id, business_id, source, city, user_city, user_area, commission, clicked_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			click.ID, click.BusinessID, click.Source, click.City, click.UserCity, area, click.Commission, click.ClickedAt,
		)
		if err != nil {
			return models.AffiliateClick{}, errors.NewClickTrackFailedError(b.ID, err)
		}
	}

	metrics.AffiliateClicks.WithLabelValues(metricSource(click.Source)).Inc()

	if t.publisher != nil {
		if _, err := t.publisher.PublishEvent(ctx, EventTypeClick, click); err != nil {
			t.logger.Warn("click event not published", map[string]interface{}{
				"clickId": click.ID,
				"error":   err.Error(),
			})
		}
	}

	t.logger.Info("affiliate click tracked", map[string]interface{}{
		"clickId":    click.ID,
		"businessId": click.BusinessID,
		"source":     click.Source,
		"userCity":   click.UserCity,
	})
	return click, nil
}

// metricSource keeps the clicks label to the known sources.
func metricSource(source string) string {
	switch s := strings.ToLower(strings.TrimSpace(source)); s {
	case models.SourceLocalSponsor, models.SourceViator, models.SourceGetYourGuide,
		models.SourceFever, models.SourceGroupon, models.SourceTicketmaster, models.SourceStubHub:
		return s
	default:
		return "unknown"
	}
}
