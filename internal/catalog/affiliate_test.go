package catalog

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magick-workers/internal/models"
)

func TestAffiliates_DecorateURL(t *testing.T) {
	a := NewAffiliates(map[string]string{
		models.SourceViator:  "V123",
		models.SourceGroupon: "G456",
	})

	tests := []struct {
		name     string
		program  string
		url      string
		extra    map[string]string
		expected map[string]string
	}{
		{
			name:    "viator with extras",
			program: "viator",
			url:     "https://www.viator.com/tours/x?lang=en",
			extra:   map[string]string{"location": "jacksonville", "activity": "jax-1"},
			expected: map[string]string{
				"lang":         "en",
				"pid":          "V123",
				"location":     "jacksonville",
				"activity":     "jax-1",
				"utm_source":   "magick_app",
				"utm_medium":   "affiliate",
				"utm_campaign": "viator",
			},
		},
		{
			name:    "groupon keeps its affiliate id in utm_source",
			program: "groupon",
			url:     "https://www.groupon.com/deals/x",
			expected: map[string]string{
				"utm_source":   "G456",
				"utm_medium":   "affiliate",
				"utm_campaign": "groupon",
			},
		},
		{
			name:    "no affiliate id configured",
			program: "fever",
			url:     "https://feverup.com/x",
			expected: map[string]string{
				"utm_source":   "magick_app",
				"utm_medium":   "affiliate",
				"utm_campaign": "fever",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := a.DecorateURL(tt.program, tt.url, tt.extra)
			u, err := url.Parse(out)
			require.NoError(t, err)

			got := map[string]string{}
			for k := range u.Query() {
				got[k] = u.Query().Get(k)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAffiliates_DecorateURLUnchanged(t *testing.T) {
	a := NewAffiliates(nil)

	assert.Equal(t, "https://example.com/x", a.DecorateURL("local-sponsor", "https://example.com/x", nil))
	assert.Equal(t, "not a url", a.DecorateURL("viator", "not a url", nil))
	assert.Equal(t, "", a.DecorateURL("viator", "", nil))
}

func TestAffiliates_Decorate(t *testing.T) {
	a := NewAffiliates(map[string]string{models.SourceViator: "V123"})
	in := []models.Business{
		{ID: "tour", Name: "Kayak", City: "Jacksonville Beach", Source: "viator", URL: "https://www.viator.com/k", Tags: []string{"outdoor"}},
		{ID: "deck", Name: "River Tower", Source: "local-sponsor", URL: "https://rivertower.example.com"},
	}

	out := a.Decorate(in)
	require.Len(t, out, 2)

	u, err := url.Parse(out[0].URL)
	require.NoError(t, err)
	assert.Equal(t, "V123", u.Query().Get("pid"))
	assert.Equal(t, "jacksonville-beach", u.Query().Get("location"))
	assert.Equal(t, "tour", u.Query().Get("activity"))
	assert.Equal(t, 0.08, out[0].Commission)
	assert.Equal(t, 30, out[0].CookieDurationDays)
	assert.True(t, out[0].APIAvailable)

	assert.Equal(t, "https://rivertower.example.com", out[1].URL)
	assert.Zero(t, out[1].Commission)

	// input untouched
	assert.Equal(t, "https://www.viator.com/k", in[0].URL)
	assert.Zero(t, in[0].Commission)
}

func TestAffiliates_ProgramStats(t *testing.T) {
	stats := NewAffiliates(nil).ProgramStats()
	require.Len(t, stats, 6)

	assert.Equal(t, ProgramStat{
		Program:        "viator",
		Name:           "Viator",
		Commission:     "8.0%",
		CookieDuration: "30 days",
		APIAvailable:   true,
	}, stats[0])
	assert.Equal(t, "groupon", stats[5].Program)
	assert.Equal(t, "10.0%", stats[2].Commission)
}

func TestAffiliateLoader(t *testing.T) {
	inner := &countingLoader{businesses: []models.Business{{ID: "x", Source: "fever", URL: "https://feverup.com/x"}}}
	l := NewAffiliateLoader(inner, NewAffiliates(nil))

	out, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out[0].URL, "utm_campaign=fever")
	assert.Equal(t, "counting", SourceName(l))

	inner.err = errors.New("boom")
	_, err = l.Load(context.Background())
	assert.EqualError(t, err, "boom")
}
