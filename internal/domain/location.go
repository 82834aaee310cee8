package domain

import "math"

// Location is a point given in degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates are within latitude/longitude bounds.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// DistanceTo returns the planar Euclidean distance in degrees.
// Good enough for ranking candidates that are all near the same pickup.
func (l Location) DistanceTo(other Location) float64 {
	dLat := l.Lat - other.Lat
	dLng := l.Lng - other.Lng
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// Place describes a pickup or destination. Location is optional.
type Place struct {
	Name     string    `json:"name"`
	Location *Location `json:"location,omitempty"`
}
