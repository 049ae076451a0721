package geo

import "strings"

// Regions maps a region name to its reference coordinates.
// Lookups are case-insensitive.
type Regions map[string]Point

// DefaultRegions is used when no regions file is configured.
func DefaultRegions() Regions {
	return Regions{
		"nairobi": {Latitude: -1.2921, Longitude: 36.8219},
		"mombasa": {Latitude: -4.0435, Longitude: 39.6682},
	}
}

// Add registers a region, replacing any existing entry with the same name.
func (r Regions) Add(name string, p Point) {
	r[normalize(name)] = p
}

// Lookup returns the reference point for name.
func (r Regions) Lookup(name string) (Point, bool) {
	if r == nil {
		return Point{}, false
	}
	p, ok := r[normalize(name)]
	return p, ok
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
