// internal/analyzer/analyzer.go
package analyzer

import (
	"strings"

	"magick-workers/internal/models"
)

// Family maps one canonical tag to the words that imply it.
type Family struct {
	Tag      string
	Keywords []string
}

// CategoryRule seeds base tags when the card category contains Match.
type CategoryRule struct {
	Match string
	Tags  []string
}

// Families is scanned in order; each matching family contributes its tag once.
var Families = []Family{
	{Tag: "outdoor", Keywords: []string{"park", "outdoor", "walk", "hike", "beach", "sunset", "sunrise", "nature", "garden", "zoo", "arboretum"}},
	{Tag: "indoor", Keywords: []string{"museum", "gallery", "theater", "concert", "cooking", "class", "workshop", "studio", "library", "cafe", "restaurant"}},
	{Tag: "adventure", Keywords: []string{"explore", "discover", "adventure", "mission", "challenge", "boat", "tour", "escape", "thrill"}},
	{Tag: "creative", Keywords: []string{"art", "creative", "draw", "paint", "music", "poetry", "write", "craft", "design", "photography"}},
	{Tag: "bond", Keywords: []string{"together", "partner", "friend", "bond", "connection", "date", "couple", "team", "group"}},
	{Tag: "food", Keywords: []string{"eat", "food", "restaurant", "cafe", "cooking", "meal", "dining", "taste", "flavor"}},
	{Tag: "wellness", Keywords: []string{"peace", "quiet", "relax", "meditation", "wellness", "spa", "calm", "serene"}},
}

// CategoryRules are tried in order; the first match wins.
var CategoryRules = []CategoryRule{
	{Match: "adventure", Tags: []string{"adventure", "outdoor", "bond"}},
	{Match: "creative", Tags: []string{"creative", "indoor", "bond"}},
	{Match: "mirror", Tags: []string{"creative", "indoor", "wellness", "bond"}},
	{Match: "bond", Tags: []string{"bond", "indoor", "adventure", "creative"}},
	{Match: "spark", Tags: []string{"adventure", "creative", "bond", "food"}},
	{Match: "playful", Tags: []string{"adventure", "creative", "bond", "food"}},
}

var (
	fallbackCategoryTags = []string{"adventure", "bond", "creative"}
	emptyCardTags        = []string{"adventure", "bond"}

	highIntensityWords = []string{"extreme", "thrill", "adventure"}
	lowIntensityWords  = []string{"quiet", "peaceful", "calm"}
)

// Analyzer derives a heuristic profile from card text and category. It holds
// no state and is safe for concurrent use.
type Analyzer struct {
	families []Family
	rules    []CategoryRule
}

func New() *Analyzer {
	return &Analyzer{families: Families, rules: CategoryRules}
}

// Analyze returns the card's tags, detected keyword families, intensity and
// preferred setting.
func (a *Analyzer) Analyze(card models.Card) models.CardProfile {
	if card.Text == "" && card.Category == "" {
		return models.CardProfile{
			Tags:      append([]string(nil), emptyCardTags...),
			Keywords:  []string{},
			Intensity: models.IntensityMedium,
			Setting:   models.SettingAny,
		}
	}

	text := strings.ToLower(card.Text)
	category := strings.ToLower(card.Category)

	keywords := a.matchFamilies(text)

	return models.CardProfile{
		Tags:      union(a.baseTags(category), keywords),
		Keywords:  keywords,
		Intensity: intensity(text),
		Setting:   setting(keywords),
	}
}

func (a *Analyzer) matchFamilies(text string) []string {
	out := []string{}
	for _, f := range a.families {
		if containsAny(text, f.Keywords) {
			out = append(out, f.Tag)
		}
	}
	return out
}

func (a *Analyzer) baseTags(category string) []string {
	for _, r := range a.rules {
		if strings.Contains(category, r.Match) {
			return r.Tags
		}
	}
	return fallbackCategoryTags
}

// intensity: both scans run; high wins a tie.
func intensity(text string) models.Intensity {
	high := containsAny(text, highIntensityWords)
	low := containsAny(text, lowIntensityWords)

	switch {
	case high:
		return models.IntensityHigh
	case low:
		return models.IntensityLow
	default:
		return models.IntensityMedium
	}
}

func setting(keywords []string) models.Setting {
	var outdoor, indoor bool
	for _, k := range keywords {
		switch k {
		case "outdoor":
			outdoor = true
		case "indoor":
			indoor = true
		}
	}

	switch {
	case outdoor && !indoor:
		return models.SettingOutdoor
	case indoor && !outdoor:
		return models.SettingIndoor
	default:
		return models.SettingAny
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func union(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, t := range list {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
