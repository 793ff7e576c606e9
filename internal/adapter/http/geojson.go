package http

import (
	"net/http"
	"strconv"

	"github.com/couchcryptid/hazard-map-service/internal/domain"
	"github.com/couchcryptid/hazard-map-service/internal/mapview"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// FeatureCollection is a GeoJSON collection of marker points.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one marker as a GeoJSON point feature.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Point          `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Point is a GeoJSON point; Coordinates are [lon, lat].
type Point struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(markers []mapview.PlacedMarker) FeatureCollection {
	features := make([]Feature, 0, len(markers))

	for _, pm := range markers {
		m := pm.Marker
		features = append(features, Feature{
			Type: "Feature",
			Geometry: Point{
				Type:        "Point",
				Coordinates: []float64{m.Geo.Lon, m.Geo.Lat},
			},
			Properties: markerProperties(pm.Handle, m),
		})
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

func markerProperties(h mapview.Handle, m domain.Marker) map[string]any {
	props := map[string]any{
		"handle":   string(h),
		"id":       m.EventID,
		"title":    m.Title,
		"category": m.Category,
		"glyph":    m.Glyph,
		"icon":     m.Icon,
		"popup":    m.Popup.HTML(),
	}
	if m.Popup.PlaceName != "" {
		props["place"] = m.Popup.PlaceName
	}
	return props
}

type stateResponse struct {
	View        mapview.View      `json:"view"`
	Tiles       mapview.TileLayer `json:"tiles"`
	Revision    uint64            `json:"revision"`
	MarkerCount int               `json:"marker_count"`
}

func (s *Server) handleMarkers(w http.ResponseWriter, _ *http.Request) {
	state := s.surface.Snapshot()
	w.Header().Set("X-Map-Revision", strconv.FormatUint(state.Revision, 10))
	sharedobs.WriteJSON(w, http.StatusOK, toGeoJSON(state.Markers))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	state := s.surface.Snapshot()
	sharedobs.WriteJSON(w, http.StatusOK, stateResponse{
		View:        state.View,
		Tiles:       state.Tiles,
		Revision:    state.Revision,
		MarkerCount: len(state.Markers),
	})
}
