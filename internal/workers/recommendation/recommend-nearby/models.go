// internal/workers/recommendation/recommend-nearby/models.go
package recommendnearby

import (
	"magick-workers/internal/common/validation"
	"magick-workers/internal/models"
	"magick-workers/internal/recommend"
)

type Input struct {
	Card         models.Card           `json:"card"`
	UserCity     string                `json:"userCity,omitempty"`
	UserCoord    *models.GeoCoordinate `json:"userCoord,omitempty"`
	UserLocation *models.UserLocation  `json:"userLocation,omitempty"`
	// MonetizationMode overrides the stored mode for this job only.
	MonetizationMode string `json:"monetizationMode,omitempty"`
}

type Output struct {
	Recommendations    []Recommendation        `json:"recommendations"`
	Count              int                     `json:"count"`
	HasRecommendations bool                    `json:"hasRecommendations"`
	MonetizationMode   models.MonetizationMode `json:"monetizationMode"`
}

type Recommendation struct {
	Business   models.Business   `json:"business"`
	Score      float64           `json:"score"`
	Factors    recommend.Factors `json:"factors"`
	DistanceKm *float64          `json:"distanceKm,omitempty"`
}

var inputSchema = validation.MustCompile(`{
	"definitions": {
		"coord": {
			"type": ["object", "null"],
			"required": ["lat", "lng"],
			"properties": {
				"lat": {"type": "number", "minimum": -90, "maximum": 90},
				"lng": {"type": "number", "minimum": -180, "maximum": 180}
			}
		}
	},
	"type": "object",
	"required": ["card"],
	"properties": {
		"card": {
			"type": "object",
			"required": ["text"],
			"properties": {
				"id":       {"type": "string"},
				"text":     {"type": "string", "maxLength": 500},
				"category": {"type": "string"},
				"type":     {"type": "string", "enum": ["Question", "Mission", ""]}
			}
		},
		"userCity":  {"type": ["string", "null"], "maxLength": 100},
		"userCoord": {"$ref": "#/definitions/coord"},
		"userLocation": {
			"type": ["object", "null"],
			"properties": {
				"city":         {"type": "string"},
				"region":       {"type": "string"},
				"neighborhood": {"type": "string"},
				"zipCode":      {"type": "string"},
				"coord":        {"$ref": "#/definitions/coord"}
			}
		},
		"monetizationMode": {"type": ["string", "null"]}
	}
}`)
