// internal/workers/recommendation/track-affiliate-click/models.go
package trackaffiliateclick

import (
	"time"

	"magick-workers/internal/common/validation"
	"magick-workers/internal/models"
)

type Input struct {
	Business     models.Business      `json:"business"`
	UserLocation *models.UserLocation `json:"userLocation,omitempty"`
}

type Output struct {
	ClickID    string    `json:"clickId"`
	Source     string    `json:"source"`
	Commission float64   `json:"commission"`
	TrackedAt  time.Time `json:"trackedAt"`
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["business"],
	"properties": {
		"business": {
			"type": "object",
			"required": ["id", "source"],
			"properties": {
				"id":         {"type": "string", "minLength": 1},
				"source":     {"type": "string"},
				"city":       {"type": "string"},
				"commission": {"type": "number", "minimum": 0, "maximum": 1}
			}
		},
		"userLocation": {
			"type": ["object", "null"],
			"properties": {
				"city": {"type": "string"},
				"coord": {
					"type": ["object", "null"],
					"required": ["lat", "lng"],
					"properties": {
						"lat": {"type": "number", "minimum": -90, "maximum": 90},
						"lng": {"type": "number", "minimum": -180, "maximum": 180}
					}
				}
			}
		}
	}
}`)
