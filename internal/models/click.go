// internal/models/click.go
package models

import "time"

type MonetizationMode string

const (
	MonetizationAffiliate MonetizationMode = "affiliate"
	MonetizationSponsor   MonetizationMode = "sponsor"
)

func (m MonetizationMode) Valid() bool {
	return m == MonetizationAffiliate || m == MonetizationSponsor
}

type AffiliateClick struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"itemId"`
	Source     string    `json:"source"`
	City       string    `json:"city"`
	UserCity   string    `json:"userLocation"`
	UserArea   string    `json:"userArea,omitempty"`
	Commission float64   `json:"commission"`
	ClickedAt  time.Time `json:"timestamp"`
}
