// Package geo holds the pure geometry used by spot creation: great-circle
// distance, the turning-angle difficulty heuristic and Catmull-Rom smoothing.
//
// Difficulty is classified from turning angles, not from point count alone.
package geo

import (
	"math"

	"drift-spot-service/internal/domain"
)

const EarthRadiusKm = 6371.0

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

// HaversineDistanceKm returns the great-circle distance between a and b.
func HaversineDistanceKm(a, b domain.Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// PathLengthKm sums the haversine legs of a path.
func PathLengthKm(points []domain.Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += HaversineDistanceKm(points[i-1], points[i])
	}
	return total
}

// ValidCoordinate reports whether c is a finite WGS84 coordinate.
func ValidCoordinate(c domain.Coordinate) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}
