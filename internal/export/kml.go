// Package export renders spots into formats consumed by mapping tools.
package export

import (
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/geo"
	"fmt"
	"io"

	"github.com/twpayne/go-kml/v3"
)

// WriteSpotsKML writes one LineString placemark per spot, in the given order.
// Spots with fewer than two points are skipped.
func WriteSpotsKML(w io.Writer, title string, spots ...*domain.Spot) error {
	docElements := []kml.Element{kml.Name(title)}

	for _, s := range spots {
		if s == nil || len(s.Points) < 2 {
			continue
		}

		coords := make([]kml.Coordinate, len(s.Points))
		for i, p := range s.Points {
			coords[i] = kml.Coordinate{Lon: p.Lng, Lat: p.Lat}
		}

		// The KML encoder escapes on its own; stored names are already escaped.
		docElements = append(docElements, kml.Placemark(
			kml.Name(domain.DisplayName(s.Name)),
			kml.Description(describe(s)),
			kml.LineString(
				kml.Coordinates(coords...),
			),
		))
	}

	doc := kml.KML(kml.Document(docElements...))
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("write kml: %w", err)
	}
	return nil
}

func describe(s *domain.Spot) string {
	return fmt.Sprintf("Difficulty: %s, length %.2f km, by %s",
		s.Difficulty, geo.PathLengthKm(s.Points), s.CreatorName)
}
