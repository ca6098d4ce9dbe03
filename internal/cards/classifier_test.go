package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magick-workers/internal/models"
)

var (
	landmarkCard = models.Card{
		Text:     "Go to a local landmark you've never visited and take a selfie.",
		Category: "Adventure Sparks",
		Type:     models.CardTypeMission,
	}
	happyFoodCard = models.Card{
		Text:     "What's your 'happy' food?",
		Category: "Spark Questions",
		Type:     models.CardTypeQuestion,
	}
)

func TestDefault_LoadsEmbeddedTaxonomy(t *testing.T) {
	c := Default()
	require.NotNil(t, c)

	all := c.Cards()
	assert.Len(t, all, 43)

	outbound := 0
	for _, card := range all {
		assert.NotEmpty(t, card.ID)
		assert.Equal(t, Key(card.Category, card.Text), card.ID)
		if c.NeedsRecommendation(card) {
			outbound++
		}
	}
	assert.Equal(t, 21, outbound)
}

func TestClassify_CuratedCards(t *testing.T) {
	tests := []struct {
		name       string
		card       models.Card
		recType    models.RecommendationType
		categories []string
		tags       []string
		needs      bool
	}{
		{
			name:       "landmark mission is outbound",
			card:       landmarkCard,
			recType:    models.RecommendationOutbound,
			categories: []string{"entertainment"},
			tags:       []string{"adventure", "outdoor", "bond"},
			needs:      true,
		},
		{
			name:       "happy food question stays at home",
			card:       happyFoodCard,
			recType:    models.RecommendationAtHome,
			categories: []string{},
			tags:       []string{"food", "conversation", "bond"},
			needs:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := Classify(tt.card)
			assert.Equal(t, tt.recType, meta.RecommendationType)
			assert.Equal(t, tt.categories, meta.BusinessCategories)
			assert.Equal(t, tt.tags, meta.Tags)
			assert.Equal(t, tt.needs, NeedsRecommendation(tt.card))
			assert.Equal(t, tt.categories, BusinessCategories(tt.card))
		})
	}
}

func TestClassify_UnknownCardGetsDefault(t *testing.T) {
	card := models.Card{Text: "Describe your dream sandwich.", Category: "Spark Questions", Type: models.CardTypeQuestion}

	meta := Classify(card)

	assert.Equal(t, DefaultMetadata(), meta)
	assert.Equal(t, models.RecommendationAtHome, meta.RecommendationType)
	assert.Empty(t, meta.BusinessCategories)
	assert.Equal(t, models.IntensityMedium, meta.Intensity)
	assert.Equal(t, models.SettingAny, meta.Setting)
	assert.Equal(t, []string{"conversation", "bond"}, meta.Tags)
	assert.False(t, NeedsRecommendation(card))
	assert.False(t, Default().Curated(card))
}

func TestClassify_ZeroCard(t *testing.T) {
	assert.Equal(t, DefaultMetadata(), Classify(models.Card{}))
}

func TestClassify_TextDriftStillMatches(t *testing.T) {
	tests := []struct {
		name string
		card models.Card
	}{
		{"extra whitespace", models.Card{Text: "  Go to a local  landmark you've never visited\tand take a selfie. ", Category: "Adventure Sparks"}},
		{"case", models.Card{Text: "GO TO A LOCAL LANDMARK YOU'VE NEVER VISITED AND TAKE A SELFIE.", Category: "adventure sparks"}},
		{"curly apostrophe", models.Card{Text: "Go to a local landmark you’ve never visited and take a selfie.", Category: "Adventure Sparks"}},
		{"no category", models.Card{Text: "Go to a local landmark you've never visited and take a selfie."}},
		{"explicit id", models.Card{ID: Key("Adventure Sparks", landmarkCard.Text)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Default().Curated(tt.card))
			assert.Equal(t, models.RecommendationOutbound, Classify(tt.card).RecommendationType)
		})
	}
}

func TestClassify_ReturnsCopy(t *testing.T) {
	meta := Classify(landmarkCard)
	meta.Tags[0] = "mutated"
	meta.BusinessCategories = append(meta.BusinessCategories, "mutated")

	again := Classify(landmarkCard)
	assert.Equal(t, []string{"adventure", "outdoor", "bond"}, again.Tags)
	assert.Equal(t, []string{"entertainment"}, again.BusinessCategories)
}

func TestKey_Stable(t *testing.T) {
	a := Key("Adventure Sparks", "Take a walk.")
	b := Key(" adventure   sparks ", "take a WALK.")

	assert.Equal(t, a, b)
	assert.Len(t, a, 40)
	assert.NotEqual(t, a, Key("Creative Charms", "Take a walk."))
	// the separator keeps category and text from bleeding into each other
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
}

func TestRequiresVisit(t *testing.T) {
	tests := []struct {
		name     string
		meta     models.CardMetadata
		expected bool
	}{
		{"outbound", models.CardMetadata{RecommendationType: models.RecommendationOutbound}, true},
		{"hybrid", models.CardMetadata{RecommendationType: models.RecommendationHybrid}, true},
		{"at home", models.CardMetadata{RecommendationType: models.RecommendationAtHome}, false},
		{"empty", models.CardMetadata{}, false},
		{"outbound pinned at home", models.CardMetadata{RecommendationType: models.RecommendationOutbound, Tags: []string{"food", "at_home"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RequiresVisit(tt.meta))
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("custom taxonomy with ids", func(t *testing.T) {
		data := []byte(`
- id: hybrid-1
  text: "Plan a picnic or a movie night."
  category: "Bond Quests"
  type: Mission
  recommendation_type: hybrid
  tags: [bond]
`)
		c, err := Parse(data)
		require.NoError(t, err)

		meta := c.Classify(models.Card{ID: "hybrid-1"})
		assert.Equal(t, models.RecommendationHybrid, meta.RecommendationType)
		assert.Equal(t, models.IntensityMedium, meta.Intensity)
		assert.Equal(t, models.SettingAny, meta.Setting)
		assert.Equal(t, []string{}, meta.BusinessCategories)
		assert.True(t, c.NeedsRecommendation(models.Card{Text: "plan a picnic or a movie night."}))
		assert.Equal(t, "hybrid-1", c.Cards()[0].ID)
	})

	t.Run("errors", func(t *testing.T) {
		cases := map[string]string{
			"invalid yaml":   "- text: [",
			"empty text":     "- text: \"\"\n  recommendation_type: at_home\n",
			"unknown type":   "- text: hi\n  recommendation_type: sometimes\n",
			"duplicate card": "- text: hi\n  category: a\n  recommendation_type: at_home\n- text: HI\n  category: A\n  recommendation_type: outbound\n",
		}
		for name, data := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := Parse([]byte(data))
				assert.Error(t, err)
			})
		}
	})
}
