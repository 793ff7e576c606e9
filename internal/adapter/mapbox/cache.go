package mapbox

import (
	"context"
	"fmt"
	"math"

	"github.com/couchcryptid/hazard-map-service/internal/domain"
	"github.com/couchcryptid/hazard-map-service/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// cellKey is a point rounded to four decimals (~11 m), so the repeated
// observations of one event share a cache entry.
type cellKey struct {
	lat, lon int64
}

func cellOf(at domain.Geo) cellKey {
	return cellKey{lat: int64(math.Round(at.Lat * 1e4)), lon: int64(math.Round(at.Lon * 1e4))}
}

// CachedGeocoder keeps recently resolved places in an LRU cache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	places  *lru.Cache[cellKey, domain.Place]
	metrics *observability.Metrics
}

// NewCachedGeocoder wraps inner with a cache of at most maxEntries places.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) (*CachedGeocoder, error) {
	places, err := lru.New[cellKey, domain.Place](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create place cache: %w", err)
	}
	return &CachedGeocoder{inner: inner, places: places, metrics: metrics}, nil
}

// PlaceAt serves from the cache when possible. Errors and empty places are
// not cached.
func (c *CachedGeocoder) PlaceAt(ctx context.Context, at domain.Geo) (domain.Place, error) {
	key := cellOf(at)
	if place, ok := c.places.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return place, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	place, err := c.inner.PlaceAt(ctx, at)
	if err != nil || place.Empty() {
		return place, err
	}
	c.places.Add(key, place)
	return place, nil
}
