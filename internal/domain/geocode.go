package domain

import (
	"context"
	"log/slog"
)

// EnrichWithPlace puts the name of the area around the marker in its popup.
// A nil geocoder, an error, or an empty place leaves the marker unchanged.
func EnrichWithPlace(ctx context.Context, marker Marker, geocoder Geocoder, logger *slog.Logger) Marker {
	if geocoder == nil {
		return marker
	}

	place, err := geocoder.PlaceAt(ctx, marker.Geo)
	if err != nil {
		logger.Warn("place lookup failed",
			"event_id", marker.EventID,
			"lat", marker.Geo.Lat,
			"lon", marker.Geo.Lon,
			"error", err,
		)
		return marker
	}

	if place.Label != "" {
		marker.Popup.PlaceName = place.Label
	} else {
		marker.Popup.PlaceName = place.Name
	}
	return marker
}
