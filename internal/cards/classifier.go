// internal/cards/classifier.go
package cards

import (
	"crypto/sha1"
	_ "embed"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"magick-workers/internal/models"
)

//go:embed cards.yaml
var curatedYAML []byte

// tagAtHome on a curated card blocks recommendations regardless of its
// recommendation type.
const tagAtHome = "at_home"

type entry struct {
	ID                  string          `yaml:"id"`
	Text                string          `yaml:"text"`
	Category            string          `yaml:"category"`
	Type                models.CardType `yaml:"type"`
	models.CardMetadata `yaml:",inline"`
}

// Classifier resolves cards against the curated taxonomy. It is immutable
// after construction and safe for concurrent use.
type Classifier struct {
	cards  []models.Card
	byKey  map[string]models.CardMetadata
	byText map[string]models.CardMetadata
}

var (
	defaultOnce       sync.Once
	defaultClassifier *Classifier
)

// Default returns the classifier built from the embedded taxonomy.
func Default() *Classifier {
	defaultOnce.Do(func() {
		c, err := Parse(curatedYAML)
		if err != nil {
			panic(fmt.Sprintf("cards: embedded taxonomy: %v", err))
		}
		defaultClassifier = c
	})
	return defaultClassifier
}

// Parse builds a classifier from a YAML list of curated cards.
func Parse(data []byte) (*Classifier, error) {
	var entries []entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}

	c := &Classifier{
		cards:  make([]models.Card, 0, len(entries)),
		byKey:  make(map[string]models.CardMetadata, len(entries)*2),
		byText: make(map[string]models.CardMetadata, len(entries)),
	}

	for i, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			return nil, fmt.Errorf("entry %d: empty text", i)
		}
		if !validRecommendationType(e.RecommendationType) {
			return nil, fmt.Errorf("entry %d: unknown recommendation type %q", i, e.RecommendationType)
		}

		key := Key(e.Category, e.Text)
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("entry %d: duplicate card %q in %q", i, e.Text, e.Category)
		}

		meta := normalizeMetadata(e.CardMetadata)
		c.byKey[key] = meta
		if e.ID != "" {
			c.byKey[e.ID] = meta
		}
		// first occurrence wins for category-less lookups
		if _, seen := c.byText[normalize(e.Text)]; !seen {
			c.byText[normalize(e.Text)] = meta
		}

		id := e.ID
		if id == "" {
			id = key
		}
		c.cards = append(c.cards, models.Card{ID: id, Text: e.Text, Category: e.Category, Type: e.Type})
	}

	return c, nil
}

// Key is the stable identifier of a card: hex SHA-1 over the normalized
// category and text. Whitespace, case and curly quotes do not change it.
func Key(category, text string) string {
	h := sha1.New()
	h.Write([]byte(normalize(category)))
	h.Write([]byte{0})
	h.Write([]byte(normalize(text)))
	return hex.EncodeToString(h.Sum(nil))
}

// Classify returns the curated metadata for card, or DefaultMetadata when the
// card is not part of the taxonomy. The result is a copy.
func (c *Classifier) Classify(card models.Card) models.CardMetadata {
	if meta, ok := c.lookup(card); ok {
		return cloneMetadata(meta)
	}
	return DefaultMetadata()
}

// Curated reports whether the card is part of the taxonomy.
func (c *Classifier) Curated(card models.Card) bool {
	_, ok := c.lookup(card)
	return ok
}

// NeedsRecommendation reports whether the card should trigger a nearby
// business lookup at all.
func (c *Classifier) NeedsRecommendation(card models.Card) bool {
	return RequiresVisit(c.Classify(card))
}

func (c *Classifier) BusinessCategories(card models.Card) []string {
	return c.Classify(card).BusinessCategories
}

// Cards lists the curated cards in taxonomy order.
func (c *Classifier) Cards() []models.Card {
	return append([]models.Card(nil), c.cards...)
}

func (c *Classifier) lookup(card models.Card) (models.CardMetadata, bool) {
	if card.ID != "" {
		if meta, ok := c.byKey[card.ID]; ok {
			return meta, true
		}
	}
	if card.Text == "" {
		return models.CardMetadata{}, false
	}
	if card.Category != "" {
		if meta, ok := c.byKey[Key(card.Category, card.Text)]; ok {
			return meta, true
		}
	}
	meta, ok := c.byText[normalize(card.Text)]
	return meta, ok
}

// DefaultMetadata is returned for cards outside the taxonomy. Unknown cards
// never trigger outbound recommendations.
func DefaultMetadata() models.CardMetadata {
	return models.CardMetadata{
		RecommendationType: models.RecommendationAtHome,
		BusinessCategories: []string{},
		Intensity:          models.IntensityMedium,
		Setting:            models.SettingAny,
		Tags:               []string{"conversation", "bond"},
	}
}

// RequiresVisit is true for outbound and hybrid metadata unless the curated
// tags pin the card at home.
func RequiresVisit(meta models.CardMetadata) bool {
	for _, t := range meta.Tags {
		if t == tagAtHome {
			return false
		}
	}
	return meta.RecommendationType == models.RecommendationOutbound ||
		meta.RecommendationType == models.RecommendationHybrid
}

// Classify, NeedsRecommendation and BusinessCategories use the embedded
// taxonomy.
func Classify(card models.Card) models.CardMetadata {
	return Default().Classify(card)
}

func NeedsRecommendation(card models.Card) bool {
	return Default().NeedsRecommendation(card)
}

func BusinessCategories(card models.Card) []string {
	return Default().BusinessCategories(card)
}

var quoteFolder = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", `"`, "”", `"`,
)

func normalize(s string) string {
	s = quoteFolder.Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

func validRecommendationType(t models.RecommendationType) bool {
	switch t {
	case models.RecommendationAtHome, models.RecommendationOutbound, models.RecommendationHybrid:
		return true
	}
	return false
}

func normalizeMetadata(m models.CardMetadata) models.CardMetadata {
	if m.BusinessCategories == nil {
		m.BusinessCategories = []string{}
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	if m.Intensity == "" {
		m.Intensity = models.IntensityMedium
	}
	if m.Setting == "" {
		m.Setting = models.SettingAny
	}
	return m
}

func cloneMetadata(m models.CardMetadata) models.CardMetadata {
	out := m
	out.BusinessCategories = append([]string{}, m.BusinessCategories...)
	out.Tags = append([]string{}, m.Tags...)
	if m.SpecificBusinesses != nil {
		out.SpecificBusinesses = append([]string(nil), m.SpecificBusinesses...)
	}
	return out
}
