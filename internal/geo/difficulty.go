package geo

import (
	"math"

	"drift-spot-service/internal/domain"

	"github.com/golang/geo/s1"
)

const (
	minPointsForAngles = 5

	hardPointCount   = 20
	mediumPointCount = 10

	hardAvgTurnDegrees   = 45.0
	mediumAvgTurnDegrees = 25.0
)

// bearing is measured as atan2(Δlng, Δlat), i.e. clockwise from north on a flat projection.
func bearing(from, to domain.Coordinate) s1.Angle {
	return s1.Angle(math.Atan2(to.Lng-from.Lng, to.Lat-from.Lat))
}

// turnDegrees returns the absolute change of heading at b, normalized to [0, 180].
func turnDegrees(a, b, c domain.Coordinate) float64 {
	diff := (bearing(a, b) - bearing(b, c)).Abs().Degrees()
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

// AverageTurnDegrees averages the turning angle over all interior points.
// Paths with fewer than 3 points have no interior and return 0.
func AverageTurnDegrees(points []domain.Coordinate) float64 {
	if len(points) < 3 {
		return 0
	}

	total := 0.0
	for i := 1; i < len(points)-1; i++ {
		total += turnDegrees(points[i-1], points[i], points[i+1])
	}
	return total / float64(len(points)-2)
}

// ClassifyDifficulty rates a route by length and twistiness. First match wins:
//
//	len < 5                 -> Easy
//	len > 20 || avg > 45°   -> Hard
//	len > 10 || avg > 25°   -> Medium
//	otherwise               -> Easy
func ClassifyDifficulty(waypoints []domain.Coordinate) domain.Difficulty {
	n := len(waypoints)
	if n < minPointsForAngles {
		return domain.DifficultyEasy
	}

	avg := AverageTurnDegrees(waypoints)

	switch {
	case n > hardPointCount || avg > hardAvgTurnDegrees:
		return domain.DifficultyHard
	case n > mediumPointCount || avg > mediumAvgTurnDegrees:
		return domain.DifficultyMedium
	default:
		return domain.DifficultyEasy
	}
}
