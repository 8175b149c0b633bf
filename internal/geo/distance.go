// Package geo holds the flat great-circle math used for proximity and
// boundary checks.
package geo

import (
	"math"

	"github.com/dkeye/Nearby/internal/domain"
)

// EarthRadiusMeters is the mean Earth radius (6371 km).
const EarthRadiusMeters = 6371000.0

// DistanceMeters returns the haversine distance between a and b.
func DistanceMeters(a, b domain.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// clamp rounding noise so antipodal points don't produce NaN
	if h > 1 {
		h = 1
	}
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// WithinRadius reports whether point lies inside the circle around center.
func WithinRadius(point, center domain.Coordinate, radiusMeters float64) bool {
	return DistanceMeters(point, center) <= radiusMeters
}
