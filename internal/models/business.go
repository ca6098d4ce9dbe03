// internal/models/business.go
package models

const DefaultRadiusKm = 25.0

// Business sources. Affiliate programs share their program key with the source.
const (
	SourceLocalSponsor = "local-sponsor"
	SourceViator       = "viator"
	SourceGetYourGuide = "getyourguide"
	SourceFever        = "fever"
	SourceGroupon      = "groupon"
	SourceTicketmaster = "ticketmaster"
	SourceStubHub      = "stubhub"
)

type Business struct {
	ID           string         `json:"id" firestore:"id"`
	Name         string         `json:"name" firestore:"name"`
	City         string         `json:"city" firestore:"city"`
	Neighborhood string         `json:"neighborhood,omitempty" firestore:"neighborhood"`
	Coord        *GeoCoordinate `json:"coord,omitempty" firestore:"coord"`
	RadiusKm     float64        `json:"radius_km,omitempty" firestore:"radius_km"`
	Source       string         `json:"source" firestore:"source"`
	Tags         []string       `json:"tags" firestore:"tags"`
	URL          string         `json:"url" firestore:"url"`

	Commission         float64 `json:"commission,omitempty" firestore:"-"`
	CookieDurationDays int     `json:"cookieDurationDays,omitempty" firestore:"-"`
	APIAvailable       bool    `json:"apiAvailable,omitempty" firestore:"-"`
}

// EffectiveRadiusKm returns RadiusKm, or DefaultRadiusKm when unset.
func (b Business) EffectiveRadiusKm() float64 {
	if b.RadiusKm <= 0 {
		return DefaultRadiusKm
	}
	return b.RadiusKm
}

func (b Business) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers never share tag slices or coordinates.
func (b Business) Clone() Business {
	out := b
	if b.Tags != nil {
		out.Tags = make([]string, len(b.Tags))
		copy(out.Tags, b.Tags)
	}
	if b.Coord != nil {
		c := *b.Coord
		out.Coord = &c
	}
	return out
}

func CloneBusinesses(in []Business) []Business {
	if in == nil {
		return nil
	}
	out := make([]Business, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}
