// internal/workers/recommendation/set-monetization-mode/models.go
package setmonetizationmode

import (
	"magick-workers/internal/common/validation"
	"magick-workers/internal/models"
)

type Input struct {
	Mode string `json:"mode"`
	// ChangedBy is recorded in the log only.
	ChangedBy string `json:"changedBy,omitempty"`
}

type Output struct {
	Mode         models.MonetizationMode `json:"mode"`
	PreviousMode models.MonetizationMode `json:"previousMode"`
	Changed      bool                    `json:"changed"`
}

// The mode value itself is checked by recommend.ParseMode so an unknown mode
// surfaces as INVALID_MONETIZATION_MODE rather than a schema failure.
var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["mode"],
	"properties": {
		"mode":      {"type": "string", "minLength": 1, "maxLength": 32},
		"changedBy": {"type": ["string", "null"]}
	}
}`)
