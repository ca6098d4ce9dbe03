// internal/workers/recommendation/classify-card/models.go
package classifycard

import (
	"magick-workers/internal/common/validation"
	"magick-workers/internal/models"
)

type Input struct {
	Card models.Card `json:"card"`
}

type Output struct {
	CardID              string                    `json:"cardId"`
	Curated             bool                      `json:"curated"`
	RecommendationType  models.RecommendationType `json:"recommendationType"`
	NeedsRecommendation bool                      `json:"needsRecommendation"`
	BusinessCategories  []string                  `json:"businessCategories"`
	Intensity           models.Intensity          `json:"intensity"`
	Setting             models.Setting            `json:"setting"`
	Tags                []string                  `json:"tags"`
	SpecificBusinesses  []string                  `json:"specificBusinesses,omitempty"`
	Profile             *models.CardProfile       `json:"profile,omitempty"`
}

// Process variables beyond "card" are allowed; Zeebe hands the worker the
// whole variable scope.
var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["card"],
	"properties": {
		"card": {
			"type": "object",
			"required": ["text"],
			"properties": {
				"id":       {"type": "string", "maxLength": 64},
				"text":     {"type": "string", "maxLength": 500},
				"category": {"type": "string", "maxLength": 100},
				"type":     {"type": "string", "enum": ["Question", "Mission", ""]}
			}
		}
	}
}`)
