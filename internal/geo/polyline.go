package geo

import (
	"fmt"

	"drift-spot-service/internal/domain"

	"github.com/twpayne/go-polyline"
)

// EncodePolyline encodes a path with the Google polyline algorithm (1e-5 precision).
func EncodePolyline(points []domain.Coordinate) string {
	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{p.Lat, p.Lng})
	}
	return string(polyline.EncodeCoords(coords))
}

func DecodePolyline(encoded string) ([]domain.Coordinate, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}

	out := make([]domain.Coordinate, 0, len(coords))
	for i, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("decode polyline: point %d has %d values", i, len(c))
		}
		out = append(out, domain.Coordinate{Lat: c[0], Lng: c[1]})
	}
	return out, nil
}
