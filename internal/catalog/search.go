package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"magick-workers/internal/common/logger"
	"magick-workers/internal/models"
)

const DefaultMaxDocuments = 1000

var ErrBulkIndexFailed = errors.New("bulk index reported item errors")

const indexMapping = `{
	"mappings": {
		"properties": {
			"id":           {"type": "keyword"},
			"name":         {"type": "text", "fields": {"raw": {"type": "keyword"}}},
			"city":         {"type": "keyword", "normalizer": "lowercase"},
			"neighborhood": {"type": "text"},
			"location":     {"type": "geo_point"},
			"radius_km":    {"type": "float"},
			"source":       {"type": "keyword"},
			"tags":         {"type": "keyword"},
			"url":          {"type": "keyword", "index": false}
		}
	},
	"settings": {
		"analysis": {
			"normalizer": {
				"lowercase": {"type": "custom", "filter": ["lowercase"]}
			}
		}
	}
}`

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type searchDocument struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	City         string    `json:"city"`
	Neighborhood string    `json:"neighborhood,omitempty"`
	Location     *geoPoint `json:"location,omitempty"`
	RadiusKm     float64   `json:"radius_km,omitempty"`
	Source       string    `json:"source"`
	Tags         []string  `json:"tags"`
	URL          string    `json:"url"`
}

func documentFromBusiness(b models.Business) searchDocument {
	doc := searchDocument{
		ID:           b.ID,
		Name:         b.Name,
		City:         b.City,
		Neighborhood: b.Neighborhood,
		RadiusKm:     b.RadiusKm,
		Source:       b.Source,
		Tags:         b.Tags,
		URL:          b.URL,
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if b.Coord != nil {
		doc.Location = &geoPoint{Lat: b.Coord.Lat, Lon: b.Coord.Lng}
	}
	return doc
}

func (d searchDocument) business() models.Business {
	b := models.Business{
		ID:           d.ID,
		Name:         d.Name,
		City:         d.City,
		Neighborhood: d.Neighborhood,
		RadiusKm:     d.RadiusKm,
		Source:       d.Source,
		Tags:         d.Tags,
		URL:          d.URL,
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	if d.Location != nil {
		b.Coord = &models.GeoCoordinate{Lat: d.Location.Lat, Lng: d.Location.Lon}
	}
	return b
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source searchDocument `json:"_source"`
			Sort   []interface{}  `json:"sort,omitempty"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchIndex keeps a geo-indexed copy of the catalog in Elasticsearch.
type SearchIndex struct {
	client  *elasticsearch.Client
	index   string
	maxDocs int
	logger  logger.Logger
}

func NewSearchIndex(client *elasticsearch.Client, index string, maxDocs int, log logger.Logger) *SearchIndex {
	if maxDocs <= 0 {
		maxDocs = DefaultMaxDocuments
	}
	return &SearchIndex{
		client:  client,
		index:   index,
		maxDocs: maxDocs,
		logger:  log.WithFields(map[string]interface{}{"component": "catalog.search", "index": index}),
	}
}

func (s *SearchIndex) Name() string { return "elasticsearch" }

// EnsureIndex creates the index with its geo_point mapping when missing.
func (s *SearchIndex) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.index, err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("check index %s: %s", s.index, res.Status())
	}

	res, err = s.client.Indices.Create(s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", s.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", s.index, res.String())
	}

	s.logger.Info("created search index", nil)
	return nil
}

// Index bulk-writes businesses keyed by ID and refreshes the index.
func (s *SearchIndex) Index(ctx context.Context, businesses []models.Business) (int, error) {
	if len(businesses) == 0 {
		return 0, nil
	}
	if err := s.EnsureIndex(ctx); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, b := range businesses {
		meta := map[string]interface{}{"index": map[string]interface{}{"_id": b.ID}}
		if err := enc.Encode(meta); err != nil {
			return 0, err
		}
		if err := enc.Encode(documentFromBusiness(b)); err != nil {
			return 0, fmt.Errorf("encode business %s: %w", b.ID, err)
		}
	}

	res, err := s.client.Bulk(&buf,
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithIndex(s.index),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return 0, fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("bulk index: %s", res.String())
	}

	var bulk struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
		return 0, fmt.Errorf("decode bulk response: %w", err)
	}
	if bulk.Errors {
		return 0, ErrBulkIndexFailed
	}

	s.logger.Info("catalog indexed", map[string]interface{}{"count": len(businesses)})
	return len(businesses), nil
}

// Load returns up to maxDocs businesses ordered by id.
func (s *SearchIndex) Load(ctx context.Context) ([]models.Business, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"sort":  []interface{}{map[string]interface{}{"id": "asc"}},
	}
	businesses, _, err := s.search(ctx, query, s.maxDocs)
	return businesses, err
}

// Nearby returns businesses within radiusKm of coord, closest first, with
// the distance Elasticsearch computed for each.
func (s *SearchIndex) Nearby(ctx context.Context, coord models.GeoCoordinate, radiusKm float64, size int) ([]models.Business, []float64, error) {
	if size <= 0 {
		size = 10
	}
	point := map[string]interface{}{"lat": coord.Lat, "lon": coord.Lng}
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": map[string]interface{}{
					"geo_distance": map[string]interface{}{
						"distance": fmt.Sprintf("%gkm", radiusKm),
						"location": point,
					},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{
				"_geo_distance": map[string]interface{}{
					"location": point,
					"order":    "asc",
					"unit":     "km",
				},
			},
		},
	}
	return s.search(ctx, query, size)
}

func (s *SearchIndex) search(ctx context.Context, query map[string]interface{}, size int) ([]models.Business, []float64, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, nil, fmt.Errorf("search %s: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, nil, fmt.Errorf("search %s: %s: %s", s.index, res.Status(), msg)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, nil, fmt.Errorf("decode search response: %w", err)
	}

	businesses := make([]models.Business, 0, len(parsed.Hits.Hits))
	distances := make([]float64, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		businesses = append(businesses, hit.Source.business())
		if len(hit.Sort) > 0 {
			if d, ok := hit.Sort[0].(float64); ok {
				distances = append(distances, d)
			}
		}
	}
	return businesses, distances, nil
}
