package domain

import (
	"math"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

const earthRadiusMiles = 3959.0

// USFCenter is the map and search center on the USF campus.
var USFCenter = Point{Lat: 37.7765, Lon: -122.4505}

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// IsZero reports whether either coordinate is unset.
// Zero lat or lon never occurs in San Francisco and marks a failed geocode.
func (p Point) IsZero() bool {
	return p.Lat == 0 || p.Lon == 0
}

// Geohash returns the 12-character geohash of p.
func (p Point) Geohash() string {
	return geohash.Encode(p.Lat, p.Lon)
}

// HaversineMiles returns the great-circle distance between a and b in miles.
func HaversineMiles(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// WithinMiles reports whether p lies within radius miles of center (inclusive).
func WithinMiles(center, p Point, radius float64) bool {
	return HaversineMiles(center, p) <= radius
}

// Centroid returns the arithmetic mean of points. The zero Point is returned for an empty slice.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(points))
	return Point{Lat: lat / n, Lon: lon / n}
}

// round rounds v to the given number of decimal places, halves to even.
func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(v*scale) / scale
}
