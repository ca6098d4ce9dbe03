// internal/models/card.go
package models

type CardType string

const (
	CardTypeQuestion CardType = "Question"
	CardTypeMission  CardType = "Mission"
)

type RecommendationType string

const (
	RecommendationAtHome   RecommendationType = "at_home"
	RecommendationOutbound RecommendationType = "outbound"
	RecommendationHybrid   RecommendationType = "hybrid"
)

type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

type Setting string

const (
	SettingIndoor  Setting = "indoor"
	SettingOutdoor Setting = "outdoor"
	SettingAny     Setting = "any"
)

// Business categories used by the curated card taxonomy.
const (
	BusinessCategoryRestaurants    = "restaurants"
	BusinessCategoryEntertainment  = "entertainment"
	BusinessCategoryArtsCulture    = "arts_culture"
	BusinessCategoryOutdoor        = "outdoor"
	BusinessCategoryShopping       = "shopping"
	BusinessCategoryWellness       = "wellness"
	BusinessCategoryEducation      = "education"
	BusinessCategoryTransportation = "transportation"
	BusinessCategoryAccommodation  = "accommodation"
)

// Card is a prompt drawn by the user. ID is optional; when empty the
// classifier derives a stable key from Category and Text.
type Card struct {
	ID       string   `json:"id,omitempty"`
	Text     string   `json:"text"`
	Category string   `json:"category"`
	Type     CardType `json:"type"`
}

// IsZero reports whether the card carries no content at all.
func (c Card) IsZero() bool {
	return c.ID == "" && c.Text == "" && c.Category == ""
}

type CardMetadata struct {
	RecommendationType RecommendationType `json:"recommendationType" yaml:"recommendation_type"`
	BusinessCategories []string           `json:"businessCategories" yaml:"business_categories"`
	Intensity          Intensity          `json:"intensity" yaml:"intensity"`
	Setting            Setting            `json:"setting" yaml:"setting"`
	Tags               []string           `json:"tags" yaml:"tags"`
	SpecificBusinesses []string           `json:"specificBusinesses,omitempty" yaml:"specific_businesses"`
}

// CardProfile is the heuristic, text-derived view of a card used for scoring.
type CardProfile struct {
	Tags      []string  `json:"tags"`
	Keywords  []string  `json:"keywords"`
	Intensity Intensity `json:"intensity"`
	Setting   Setting   `json:"setting"`
}
