package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"magick-workers/internal/models"
)

//go:embed data/jacksonville_catalog.json
var embeddedCatalog []byte

// Record is the on-disk catalog format shared by the static catalog, the
// import tool and the search index. Coordinates are flat.
type Record struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	City         string   `json:"city"`
	Neighborhood string   `json:"neighborhood,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
	RadiusKm     float64  `json:"radius_km,omitempty"`
	Source       string   `json:"source"`
	Tags         []string `json:"tags"`
	URL          string   `json:"url"`
}

func (r Record) Business() models.Business {
	b := models.Business{
		ID:           r.ID,
		Name:         r.Name,
		City:         r.City,
		Neighborhood: r.Neighborhood,
		RadiusKm:     r.RadiusKm,
		Source:       strings.ToLower(strings.TrimSpace(r.Source)),
		Tags:         append([]string(nil), r.Tags...),
		URL:          r.URL,
	}
	if r.Lat != nil && r.Lng != nil {
		b.Coord = &models.GeoCoordinate{Lat: *r.Lat, Lng: *r.Lng}
	}
	return b
}

func RecordFromBusiness(b models.Business) Record {
	r := Record{
		ID:           b.ID,
		Name:         b.Name,
		City:         b.City,
		Neighborhood: b.Neighborhood,
		RadiusKm:     b.RadiusKm,
		Source:       b.Source,
		Tags:         append([]string(nil), b.Tags...),
		URL:          b.URL,
	}
	if b.Coord != nil {
		lat, lng := b.Coord.Lat, b.Coord.Lng
		r.Lat, r.Lng = &lat, &lng
	}
	return r
}

// ParseJSON decodes a catalog file. Entries need at least an id and a name.
func ParseJSON(data []byte) ([]models.Business, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(records))
	out := make([]models.Business, 0, len(records))
	for i, r := range records {
		if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("catalog entry %d: id and name are required", i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = struct{}{}
		out = append(out, r.Business())
	}
	return out, nil
}

// StaticLoader serves a catalog decoded once from a file or the embedded
// Jacksonville catalog.
type StaticLoader struct {
	path string

	once       sync.Once
	businesses []models.Business
	err        error
}

// NewStaticLoader reads path on first Load; an empty path uses the embedded
// catalog.
func NewStaticLoader(path string) *StaticLoader {
	return &StaticLoader{path: path}
}

func (l *StaticLoader) Name() string { return "static" }

func (l *StaticLoader) Load(ctx context.Context) ([]models.Business, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.once.Do(func() {
		data := embeddedCatalog
		if l.path != "" {
			data, l.err = os.ReadFile(l.path)
			if l.err != nil {
				l.err = fmt.Errorf("read catalog %s: %w", l.path, l.err)
				return
			}
		}
		l.businesses, l.err = ParseJSON(data)
	})
	if l.err != nil {
		return nil, l.err
	}
	return models.CloneBusinesses(l.businesses), nil
}

// Embedded returns a fresh copy of the built-in catalog.
func Embedded() ([]models.Business, error) {
	return ParseJSON(embeddedCatalog)
}
