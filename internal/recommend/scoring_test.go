package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"magick-workers/internal/geo"
	"magick-workers/internal/models"
)

func TestSourceRank(t *testing.T) {
	tests := []struct {
		source    string
		affiliate int
		sponsor   int
	}{
		{models.SourceLocalSponsor, 2, 3},
		{"Local-Sponsor", 2, 3},
		{models.SourceFever, 1, 1},
		{models.SourceViator, 1, 1},
		{models.SourceGetYourGuide, 1, 1},
		{models.SourceGroupon, 1, 1},
		{models.SourceTicketmaster, 0, 0},
		{models.SourceStubHub, 0, 0},
		{"yelp", 0, 0},
		{"", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.affiliate, SourceRank(tt.source, models.MonetizationAffiliate))
			assert.Equal(t, tt.sponsor, SourceRank(tt.source, models.MonetizationSponsor))
		})
	}
}

func TestScore_Location(t *testing.T) {
	here := models.GeoCoordinate{Lat: 30.3322, Lng: -81.6557}
	nearby := models.GeoCoordinate{Lat: 30.3600, Lng: -81.6557}
	far := models.GeoCoordinate{Lat: 29.9012, Lng: -81.3124}

	tests := []struct {
		name     string
		user     *models.GeoCoordinate
		business *models.GeoCoordinate
		expected float64
	}{
		{"same point", &here, &here, 40},
		{"a few km", &here, &nearby, 40 - 2*geo.DistanceKm(here, nearby)},
		{"beyond twenty km floors at zero", &here, &far, 0},
		{"no user coordinate", nil, &here, 20},
		{"no business coordinate", &here, nil, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := models.Business{Name: "x", Coord: tt.business}
			s := Score(b, models.CardProfile{}, tt.user, models.MonetizationAffiliate)
			assert.InDelta(t, tt.expected, s.Factors.Location, 1e-9)
		})
	}
}

func TestScore_TagOverlap(t *testing.T) {
	tests := []struct {
		name     string
		tags     []string
		wanted   []string
		expected float64
	}{
		{"all wanted", []string{"adventure", "outdoor"}, []string{"adventure", "outdoor"}, 30},
		{"half", []string{"outdoor", "food"}, []string{"outdoor", "bond"}, 15},
		{"duplicate business tags count once", []string{"outdoor", "outdoor"}, []string{"outdoor", "bond"}, 15},
		{"no wanted tags", []string{"outdoor"}, nil, 0},
		{"no business tags", nil, []string{"outdoor"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Score(models.Business{Tags: tt.tags}, models.CardProfile{Tags: tt.wanted}, nil, models.MonetizationAffiliate)
			assert.InDelta(t, tt.expected, s.Factors.TagOverlap, 1e-9)
		})
	}
}

func TestScore_KeywordOverlap(t *testing.T) {
	tests := []struct {
		name     string
		tags     []string
		keywords []string
		expected float64
	}{
		{"substring of a tag", []string{"outdoor-seating"}, []string{"outdoor"}, 20},
		{"one of two", []string{"food"}, []string{"food", "wellness"}, 10},
		{"no keywords", []string{"food"}, nil, 0},
		{"no tags", nil, []string{"food"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Score(models.Business{Tags: tt.tags}, models.CardProfile{Keywords: tt.keywords}, nil, models.MonetizationAffiliate)
			assert.InDelta(t, tt.expected, s.Factors.KeywordOverlap, 1e-9)
		})
	}
}

func TestScore_Bonuses(t *testing.T) {
	tests := []struct {
		name      string
		tags      []string
		profile   models.CardProfile
		setting   float64
		intensity float64
	}{
		{"outdoor setting", []string{"outdoor"}, models.CardProfile{Setting: models.SettingOutdoor}, 5, 0},
		{"any setting never pays", []string{"any"}, models.CardProfile{Setting: models.SettingAny}, 0, 0},
		{"setting not carried", []string{"indoor"}, models.CardProfile{Setting: models.SettingOutdoor}, 0, 0},
		{"high intensity adventure", []string{"adventure"}, models.CardProfile{Intensity: models.IntensityHigh}, 0, 3},
		{"low intensity wellness", []string{"wellness"}, models.CardProfile{Intensity: models.IntensityLow}, 0, 3},
		{"low intensity adventure", []string{"adventure"}, models.CardProfile{Intensity: models.IntensityLow}, 0, 0},
		{"medium intensity", []string{"adventure", "wellness"}, models.CardProfile{Intensity: models.IntensityMedium}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Score(models.Business{Tags: tt.tags}, tt.profile, nil, models.MonetizationAffiliate)
			assert.Equal(t, tt.setting, s.Factors.SettingBonus)
			assert.Equal(t, tt.intensity, s.Factors.IntensityBonus)
		})
	}
}

func TestScore_TotalIsSumOfFactors(t *testing.T) {
	b := models.Business{Name: "River Tower", Source: models.SourceLocalSponsor, Tags: []string{"outdoor", "adventure"}}
	profile := models.CardProfile{
		Tags:      []string{"adventure", "outdoor", "bond", "creative"},
		Keywords:  []string{"outdoor"},
		Intensity: models.IntensityHigh,
		Setting:   models.SettingOutdoor,
	}

	s := Score(b, profile, nil, models.MonetizationSponsor)

	// 20 location + 15 tags + 20 keywords + 30 source + 5 setting + 3 intensity
	assert.InDelta(t, 93.0, s.Score, 1e-9)
	assert.Equal(t, s.Factors.Total(), s.Score)
	assert.Equal(t, 3, s.SourceRank)
}

func TestScore_ClonesBusiness(t *testing.T) {
	coord := &models.GeoCoordinate{Lat: 1, Lng: 2}
	b := models.Business{Tags: []string{"a"}, Coord: coord}

	s := Score(b, models.CardProfile{}, nil, models.MonetizationAffiliate)
	s.Business.Tags[0] = "changed"
	s.Business.Coord.Lat = 99

	assert.Equal(t, "a", b.Tags[0])
	assert.Equal(t, 1.0, coord.Lat)
}
