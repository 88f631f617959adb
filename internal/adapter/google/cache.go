package google

import (
	"context"
	"strings"

	"github.com/bluele/gcache"
	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/couchcryptid/sf-parking-risk-service/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   gcache.Cache
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder. maxEntries
// below 1 is raised to 1.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &CachedGeocoder{
		inner:   inner,
		cache:   gcache.New(maxEntries).LRU().Build(),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	key := strings.ToUpper(strings.TrimSpace(address))
	if v, err := c.cache.Get(key); err == nil {
		if result, ok := v.(domain.GeocodingResult); ok {
			c.count("hit")
			result.Address = address
			return result, nil
		}
	}
	c.count("miss")

	result, err := c.inner.Geocode(ctx, address)
	if err != nil {
		return result, err
	}
	// Only cache matches so "not found" answers can be retried later.
	if result.Matched {
		_ = c.cache.Set(key, result)
	}
	return result, nil
}

func (c *CachedGeocoder) count(result string) {
	if c.metrics != nil {
		c.metrics.GeocodeCache.WithLabelValues(result).Inc()
	}
}
