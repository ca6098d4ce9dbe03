package geo

import (
	"math"

	"magick-workers/internal/models"
)

const earthRadiusKm = 6371.0

func toRadians(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}

// DistanceKm returns the great-circle distance between a and b using the
// haversine formula on a spherical Earth.
func DistanceKm(a, b models.GeoCoordinate) float64 {
	if a == b {
		return 0
	}

	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	// rounding can push h just outside [0,1] near antipodes
	h = math.Min(math.Max(h, 0), 1)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// DistanceBetween is DistanceKm for optional coordinates. ok is false when
// either side is missing.
func DistanceBetween(a, b *models.GeoCoordinate) (km float64, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}
	return DistanceKm(*a, *b), true
}
