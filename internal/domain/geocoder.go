package domain

import "context"

// GeocodingResult is a resolved street address.
type GeocodingResult struct {
	Address          string
	Point            Point
	FormattedAddress string
	Matched          bool
}

// Geocoder resolves a single San Francisco street address to coordinates.
type Geocoder interface {
	// Geocode returns an unmatched result, not an error, when the provider has no answer.
	Geocode(ctx context.Context, address string) (GeocodingResult, error)
}

// BatchGeocoder resolves many addresses in one request.
type BatchGeocoder interface {
	GeocodeBatch(ctx context.Context, addresses []string) ([]GeocodingResult, error)
}
