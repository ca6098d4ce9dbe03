// internal/models/location.go
package models

type GeoCoordinate struct {
	Lat float64 `json:"lat" firestore:"lat"`
	Lng float64 `json:"lng" firestore:"lng"`
}

// UserLocation is resolved outside this service; it is only ever read.
type UserLocation struct {
	City         string         `json:"city"`
	Region       string         `json:"region,omitempty"`
	Coord        *GeoCoordinate `json:"coord,omitempty"`
	Neighborhood string         `json:"neighborhood,omitempty"`
	ZipCode      string         `json:"zipCode,omitempty"`
}

const (
	DefaultCity   = "Jacksonville"
	DefaultRegion = "Florida"
)

// DefaultUserLocation is used when the device location could not be resolved.
func DefaultUserLocation() UserLocation {
	return UserLocation{City: DefaultCity, Region: DefaultRegion}
}
