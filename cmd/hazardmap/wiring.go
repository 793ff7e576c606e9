package main

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/hazard-map-service/internal/adapter/mapbox"
	"github.com/couchcryptid/hazard-map-service/internal/config"
	"github.com/couchcryptid/hazard-map-service/internal/domain"
	"github.com/couchcryptid/hazard-map-service/internal/mapview"
	"github.com/couchcryptid/hazard-map-service/internal/observability"
)

// newGeocoder returns the popup geocoder, or nil when Mapbox is disabled
// (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
func newGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (domain.Geocoder, error) {
	if !cfg.MapboxEnabled {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("mapbox geocoding disabled")
		return nil, nil
	}

	client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
	cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
	if err != nil {
		return nil, fmt.Errorf("create geocode cache: %w", err)
	}
	metrics.GeocodeEnabled.Set(1)
	logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	return cached, nil
}

// newSurface builds the map surface from the configured view. Mapbox raster
// tiles replace OpenStreetMap when a token is configured.
func newSurface(cfg *config.Config) *mapview.Surface {
	tiles := mapview.OSMTiles()
	if cfg.MapboxToken != "" {
		tiles = mapview.MapboxTiles(cfg.MapboxToken)
	}
	view := mapview.View{
		Center: mapview.Center{Lat: cfg.MapCenterLat, Lon: cfg.MapCenterLon},
		Zoom:   cfg.MapZoom,
	}
	return mapview.New(view, tiles)
}
