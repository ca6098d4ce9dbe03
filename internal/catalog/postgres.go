package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mmcloughlin/geohash"

	"magick-workers/internal/common/logger"
	"magick-workers/internal/models"
)

// GeohashPrecision is the cell size stored with each business, roughly 150m.
const GeohashPrecision = 7

const schemaSQL = `
CREATE TABLE IF NOT EXISTS businesses (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	city         TEXT NOT NULL DEFAULT '',
	neighborhood TEXT NOT NULL DEFAULT '',
	lat          DOUBLE PRECISION,
	lng          DOUBLE PRECISION,
	radius_km    DOUBLE PRECISION NOT NULL DEFAULT 0,
	source       TEXT NOT NULL DEFAULT '',
	tags         JSONB NOT NULL DEFAULT '[]',
	url          TEXT NOT NULL DEFAULT '',
	geohash      TEXT,
	deleted      BOOLEAN NOT NULL DEFAULT false,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS businesses_city_idx ON businesses (lower(city));
CREATE INDEX IF NOT EXISTS businesses_geohash_idx ON businesses (geohash);`

const upsertSQL = `
INSERT INTO businesses (id, name, city, neighborhood, lat, lng, radius_km, source, tags, url, geohash, deleted, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false, now())
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	city = EXCLUDED.city,
	neighborhood = EXCLUDED.neighborhood,
	lat = EXCLUDED.lat,
	lng = EXCLUDED.lng,
	radius_km = EXCLUDED.radius_km,
	source = EXCLUDED.source,
	tags = EXCLUDED.tags,
	url = EXCLUDED.url,
	geohash = EXCLUDED.geohash,
	deleted = false,
	updated_at = now()`

// PostgresStore reads the resolved catalog from the businesses table. Rows
// are the final record; sponsor overrides are merged before they land here.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "catalog.postgres"}),
	}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create businesses schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) ([]models.Business, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, city, neighborhood, lat, lng, radius_km, source, tags, url
		FROM businesses
		WHERE deleted = false
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query businesses: %w", err)
	}
	defer rows.Close()

	businesses := []models.Business{}
	for rows.Next() {
		var b models.Business
		var lat, lng sql.NullFloat64
		var tags []byte
		if err := rows.Scan(&b.ID, &b.Name, &b.City, &b.Neighborhood, &lat, &lng, &b.RadiusKm, &b.Source, &tags, &b.URL); err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}
		if lat.Valid && lng.Valid {
			b.Coord = &models.GeoCoordinate{Lat: lat.Float64, Lng: lng.Float64}
		}
		if err := json.Unmarshal(tags, &b.Tags); err != nil {
			s.logger.Warn("ignoring malformed tags", map[string]interface{}{
				"businessId": b.ID,
				"error":      err.Error(),
			})
			b.Tags = []string{}
		}
		businesses = append(businesses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate businesses: %w", err)
	}
	return businesses, nil
}

// Upsert writes businesses in one transaction and revives soft-deleted rows.
func (s *PostgresStore) Upsert(ctx context.Context, businesses []models.Business) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, b := range businesses {
		tags := b.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return 0, fmt.Errorf("encode tags for %s: %w", b.ID, err)
		}

		var lat, lng sql.NullFloat64
		var hash sql.NullString
		if b.Coord != nil {
			lat = sql.NullFloat64{Float64: b.Coord.Lat, Valid: true}
			lng = sql.NullFloat64{Float64: b.Coord.Lng, Valid: true}
			hash = sql.NullString{String: geohash.EncodeWithPrecision(b.Coord.Lat, b.Coord.Lng, GeohashPrecision), Valid: true}
		}

		if _, err := tx.ExecContext(ctx, upsertSQL,
			b.ID, b.Name, b.City, b.Neighborhood, lat, lng, b.RadiusKm, b.Source, string(tagsJSON), b.URL, hash,
		); err != nil {
			return 0, fmt.Errorf("upsert business %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}

	s.logger.Info("catalog imported", map[string]interface{}{"count": len(businesses)})
	return len(businesses), nil
}
