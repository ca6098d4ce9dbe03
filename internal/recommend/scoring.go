package recommend

import (
	"math"
	"sort"
	"strings"

	"magick-workers/internal/geo"
	"magick-workers/internal/models"
)

const (
	maxLocationScore  = 40.0
	flatLocationScore = 20.0
	distancePenalty   = 2.0 // points per km
	tagWeight         = 30.0
	keywordWeight     = 20.0
	sourceWeight      = 10.0
	settingBonus      = 5.0
	intensityBonus    = 3.0
)

// Factors breaks a score into its terms.
type Factors struct {
	Location         float64 `json:"location"`
	TagOverlap       float64 `json:"tagOverlap"`
	KeywordOverlap   float64 `json:"keywordOverlap"`
	SourcePreference float64 `json:"sourcePreference"`
	SettingBonus     float64 `json:"settingBonus"`
	IntensityBonus   float64 `json:"intensityBonus"`
}

func (f Factors) Total() float64 {
	return f.Location + f.TagOverlap + f.KeywordOverlap + f.SourcePreference + f.SettingBonus + f.IntensityBonus
}

// ScoredBusiness is a per-call projection of a catalog entry. The score never
// lands on the Business itself.
type ScoredBusiness struct {
	Business   models.Business `json:"business"`
	Score      float64         `json:"score"`
	Factors    Factors         `json:"factors"`
	SourceRank int             `json:"sourceRank"`
	DistanceKm *float64        `json:"distanceKm,omitempty"`

	order int
}

// Score computes the weighted score of b for a card profile.
func Score(b models.Business, profile models.CardProfile, userCoord *models.GeoCoordinate, mode models.MonetizationMode) ScoredBusiness {
	var f Factors
	var distance *float64

	if d, ok := geo.DistanceBetween(userCoord, b.Coord); ok {
		f.Location = math.Max(0, maxLocationScore-distancePenalty*d)
		distance = &d
	} else {
		f.Location = flatLocationScore
	}

	f.TagOverlap = tagOverlap(b.Tags, profile.Tags) * tagWeight
	f.KeywordOverlap = keywordOverlap(b.Tags, profile.Keywords) * keywordWeight

	rank := SourceRank(b.Source, mode)
	f.SourcePreference = float64(rank) * sourceWeight

	if profile.Setting != "" && profile.Setting != models.SettingAny && b.HasTag(string(profile.Setting)) {
		f.SettingBonus = settingBonus
	}

	switch {
	case profile.Intensity == models.IntensityHigh && b.HasTag("adventure"):
		f.IntensityBonus = intensityBonus
	case profile.Intensity == models.IntensityLow && b.HasTag("wellness"):
		f.IntensityBonus = intensityBonus
	}

	return ScoredBusiness{
		Business:   b.Clone(),
		Score:      f.Total(),
		Factors:    f,
		SourceRank: rank,
		DistanceKm: distance,
	}
}

// tagOverlap is the share of wanted tags the business carries. Business tags
// count once each.
func tagOverlap(businessTags, wanted []string) float64 {
	if len(wanted) == 0 {
		return 0
	}

	wantedSet := make(map[string]struct{}, len(wanted))
	for _, t := range wanted {
		wantedSet[t] = struct{}{}
	}

	matched := make(map[string]struct{})
	for _, t := range businessTags {
		if _, ok := wantedSet[t]; ok {
			matched[t] = struct{}{}
		}
	}
	return float64(len(matched)) / float64(len(wantedSet))
}

// keywordOverlap is the share of keywords found as a substring of at least
// one business tag.
func keywordOverlap(businessTags, keywords []string) float64 {
	hits := 0
	for _, k := range keywords {
		for _, t := range businessTags {
			if strings.Contains(t, k) {
				hits++
				break
			}
		}
	}
	return float64(hits) / math.Max(float64(len(keywords)), 1)
}

// sortRanked orders by score, then source rank, then name. Anything still
// tied keeps catalog order.
func sortRanked(scored []ScoredBusiness) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.SourceRank != b.SourceRank {
			return a.SourceRank > b.SourceRank
		}
		if a.Business.Name != b.Business.Name {
			return a.Business.Name < b.Business.Name
		}
		return a.order < b.order
	})
}
