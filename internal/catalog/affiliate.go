package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"magick-workers/internal/models"
)

const (
	utmSource = "magick_app"
	utmMedium = "affiliate"
)

// Program describes an affiliate network. Program keys equal business
// sources.
type Program struct {
	Key                string  `json:"program"`
	Name               string  `json:"name"`
	Commission         float64 `json:"commission"`
	CookieDurationDays int     `json:"cookieDurationDays"`
	APIAvailable       bool    `json:"apiAvailable"`
	BaseURL            string  `json:"baseUrl"`
	TrackingParam      string  `json:"trackingParam"`
	AffiliateID        string  `json:"-"`
}

var defaultPrograms = []Program{
	{Key: models.SourceViator, Name: "Viator", Commission: 0.08, CookieDurationDays: 30, APIAvailable: true, BaseURL: "https://www.viator.com", TrackingParam: "pid"},
	{Key: models.SourceGetYourGuide, Name: "GetYourGuide", Commission: 0.09, CookieDurationDays: 31, APIAvailable: true, BaseURL: "https://www.getyourguide.com", TrackingParam: "partner_id"},
	{Key: models.SourceFever, Name: "Fever", Commission: 0.10, CookieDurationDays: 30, APIAvailable: false, BaseURL: "https://feverup.com", TrackingParam: "ref"},
	{Key: models.SourceTicketmaster, Name: "Ticketmaster", Commission: 0.01, CookieDurationDays: 7, APIAvailable: true, BaseURL: "https://www.ticketmaster.com", TrackingParam: "affiliate"},
	{Key: models.SourceStubHub, Name: "StubHub", Commission: 0.07, CookieDurationDays: 30, APIAvailable: false, BaseURL: "https://www.stubhub.com", TrackingParam: "aid"},
	{Key: models.SourceGroupon, Name: "Groupon", Commission: 0.06, CookieDurationDays: 30, APIAvailable: true, BaseURL: "https://www.groupon.com", TrackingParam: "utm_source"},
}

// ProgramStat is the display form of a program.
type ProgramStat struct {
	Program        string `json:"program"`
	Name           string `json:"name"`
	Commission     string `json:"commission"`
	CookieDuration string `json:"cookieDuration"`
	APIAvailable   bool   `json:"apiAvailable"`
}

// Affiliates decorates catalog links with affiliate tracking. It is
// read-only after construction.
type Affiliates struct {
	programs []Program
	byKey    map[string]Program
}

// NewAffiliates builds the program table; ids maps program key to the
// account's affiliate ID.
func NewAffiliates(ids map[string]string) *Affiliates {
	a := &Affiliates{byKey: make(map[string]Program, len(defaultPrograms))}
	for _, p := range defaultPrograms {
		p.AffiliateID = ids[p.Key]
		a.programs = append(a.programs, p)
		a.byKey[p.Key] = p
	}
	return a
}

func (a *Affiliates) Program(key string) (Program, bool) {
	p, ok := a.byKey[strings.ToLower(strings.TrimSpace(key))]
	return p, ok
}

// DecorateURL adds UTM parameters, extra, and the program's tracking
// parameter to rawURL. The tracking parameter is written last so an extra or
// UTM key can never replace the affiliate ID. Unknown programs and
// unparseable URLs come back unchanged.
func (a *Affiliates) DecorateURL(program, rawURL string, extra map[string]string) string {
	p, ok := a.Program(program)
	if !ok {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}

	q := u.Query()
	q.Set("utm_source", utmSource)
	q.Set("utm_medium", utmMedium)
	q.Set("utm_campaign", p.Key)
	for k, v := range extra {
		if v != "" {
			q.Set(k, v)
		}
	}
	if p.AffiliateID != "" {
		q.Set(p.TrackingParam, p.AffiliateID)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Decorate returns a copy of businesses with affiliate links and program
// terms filled in for every business sold through a program.
func (a *Affiliates) Decorate(businesses []models.Business) []models.Business {
	out := models.CloneBusinesses(businesses)
	for i := range out {
		b := &out[i]
		p, ok := a.Program(b.Source)
		if !ok {
			continue
		}
		b.URL = a.DecorateURL(p.Key, b.URL, map[string]string{
			"location": citySlug(b.City),
			"activity": b.ID,
		})
		b.Commission = p.Commission
		b.CookieDurationDays = p.CookieDurationDays
		b.APIAvailable = p.APIAvailable
	}
	return out
}

// ProgramStats lists the programs in a fixed order.
func (a *Affiliates) ProgramStats() []ProgramStat {
	stats := make([]ProgramStat, 0, len(a.programs))
	for _, p := range a.programs {
		stats = append(stats, ProgramStat{
			Program:        p.Key,
			Name:           p.Name,
			Commission:     fmt.Sprintf("%.1f%%", p.Commission*100),
			CookieDuration: fmt.Sprintf("%d days", p.CookieDurationDays),
			APIAvailable:   p.APIAvailable,
		})
	}
	return stats
}

func citySlug(city string) string {
	return strings.Join(strings.Fields(strings.ToLower(city)), "-")
}

// AffiliateLoader decorates whatever the inner loader returns.
type AffiliateLoader struct {
	inner      Loader
	affiliates *Affiliates
}

func NewAffiliateLoader(inner Loader, affiliates *Affiliates) *AffiliateLoader {
	return &AffiliateLoader{inner: inner, affiliates: affiliates}
}

func (l *AffiliateLoader) Name() string { return SourceName(l.inner) }

func (l *AffiliateLoader) Load(ctx context.Context) ([]models.Business, error) {
	businesses, err := l.inner.Load(ctx)
	if err != nil {
		return nil, err
	}
	return l.affiliates.Decorate(businesses), nil
}
