package geo

import "drift-spot-service/internal/domain"

const (
	splineSamplesPerSegment = 20
	splineStep              = 1.0 / splineSamplesPerSegment
)

func catmullRom(p0, p1, p2, p3, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	return 0.5 * (2*p1 +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(-p0+3*p1-3*p2+p3)*t3)
}

// CatmullRomPoint evaluates the uniform Catmull-Rom segment between p1 and p2
// at t in [0, 1], independently per axis.
func CatmullRomPoint(p0, p1, p2, p3 domain.Coordinate, t float64) domain.Coordinate {
	return domain.Coordinate{
		Lat: catmullRom(p0.Lat, p1.Lat, p2.Lat, p3.Lat, t),
		Lng: catmullRom(p0.Lng, p1.Lng, p2.Lng, p3.Lng, t),
	}
}

// SmoothPath interpolates a dense curve through points. Inputs with fewer than
// three points are returned unchanged (as a copy).
func SmoothPath(points []domain.Coordinate) []domain.Coordinate {
	if len(points) < 3 {
		return domain.CopyPath(points)
	}

	// Duplicate the endpoints so every original point has two neighbours.
	padded := make([]domain.Coordinate, 0, len(points)+2)
	padded = append(padded, points[0])
	padded = append(padded, points...)
	padded = append(padded, points[len(points)-1])

	out := make([]domain.Coordinate, 0, (len(padded)-3)*splineSamplesPerSegment+1)
	for i := 0; i+3 < len(padded); i++ {
		p0, p1, p2, p3 := padded[i], padded[i+1], padded[i+2], padded[i+3]
		for s := 0; s < splineSamplesPerSegment; s++ {
			out = append(out, CatmullRomPoint(p0, p1, p2, p3, float64(s)*splineStep))
		}
	}
	out = append(out, points[len(points)-1])

	return out
}
