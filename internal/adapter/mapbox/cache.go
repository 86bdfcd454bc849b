package mapbox

import (
	"context"

	"github.com/couchcryptid/water-accounting-dashboard/internal/cache"
	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *cache.LRU[string, domain.GeocodingResult]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   cache.NewLRU[string, domain.GeocodingResult](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, name, region string) (domain.GeocodingResult, error) {
	key := name + "|" + region
	if result, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ForwardGeocode(ctx, name, region)
	if err != nil {
		return result, err
	}
	// Empty results are not cached so a later reload can retry them.
	if result.FormattedAddress != "" {
		c.cache.Put(key, result)
	}
	return result, nil
}
