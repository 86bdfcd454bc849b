package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves place names to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a place name, optionally qualified by a
	// region, to coordinates.
	ForwardGeocode(ctx context.Context, name, region string) (GeocodingResult, error)
}
