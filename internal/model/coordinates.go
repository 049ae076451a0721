package model

import "fieldops/internal/geo"

// Coordinates is an optional GPS reading attached to a request.
type Coordinates struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// NewCoordinates builds a complete reading.
func NewCoordinates(lat, lng float64) Coordinates {
	return Coordinates{Latitude: &lat, Longitude: &lng}
}

// Present reports whether both latitude and longitude were supplied.
func (c Coordinates) Present() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// Point converts a present reading to a geo.Point.
func (c Coordinates) Point() (geo.Point, bool) {
	if !c.Present() {
		return geo.Point{}, false
	}
	return geo.Point{Latitude: *c.Latitude, Longitude: *c.Longitude}, true
}
