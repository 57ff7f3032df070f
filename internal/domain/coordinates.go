package domain

// Immutable geographic coordinate (latitude, longitude) in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Return coordinate as [lng, lat] for GeoJSON/OSRM compatibility.
func (c Coordinate) LngLat() []float64 { return []float64{c.Lng, c.Lat} }

// Build a Coordinate from a GeoJSON [lng, lat] pair.
func FromLngLat(pair []float64) (Coordinate, bool) {
	if len(pair) < 2 {
		return Coordinate{}, false
	}
	return Coordinate{Lat: pair[1], Lng: pair[0]}, true
}

// CopyPath returns an independent copy of a coordinate sequence.
func CopyPath(path []Coordinate) []Coordinate {
	if path == nil {
		return nil
	}
	out := make([]Coordinate, len(path))
	copy(out, path)
	return out
}
