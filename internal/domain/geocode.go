package domain

import (
	"context"
	"log/slog"
)

// LocateCounty resolves a county name to coordinates. It returns false when
// the geocoder is nil, the county is unknown, the lookup fails or the
// provider has no match; failures are logged, never returned.
func LocateCounty(ctx context.Context, county, region string, geocoder Geocoder, logger *slog.Logger) (Geo, bool) {
	if geocoder == nil || IsUnknown(county) {
		return Geo{}, false
	}

	result, err := geocoder.ForwardGeocode(ctx, county, region)
	if err != nil {
		logger.Warn("county geocoding failed",
			"county", county,
			"region", region,
			"error", err,
		)
		return Geo{}, false
	}
	if result.Lat == 0 && result.Lon == 0 {
		return Geo{}, false
	}
	return Geo{Lat: result.Lat, Lon: result.Lon}, true
}
