package domain

import (
	"encoding/json"
	"math"
)

// EventsResponse is the top-level EONET v3 events document.
type EventsResponse struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Link        string  `json:"link"`
	Events      []Event `json:"events"`
}

// Event is a single EONET natural event.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"` // null upstream decodes to ""
	Link        string     `json:"link"`
	Closed      string     `json:"closed,omitempty"`
	Categories  []Category `json:"categories"`
	Sources     []Source   `json:"sources"`
	Geometry    []Geometry `json:"geometry"`
}

// Category labels the kind of hazard, e.g. {"id":"wildfires","title":"Wildfires"}.
type Category struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Source links an event to the agency that reported it.
type Source struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Geometry is one dated observation of an event. Coordinates are kept raw
// because their nesting depends on Type.
type Geometry struct {
	Date           string          `json:"date"`
	Type           string          `json:"type"`
	Coordinates    json.RawMessage `json:"coordinates"`
	MagnitudeValue *float64        `json:"magnitudeValue,omitempty"`
	MagnitudeUnit  string          `json:"magnitudeUnit,omitempty"`
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point decodes the coordinates as a [lon, lat] pair. It reports false for
// any other arity or shape.
func (g Geometry) Point() (Geo, bool) {
	if len(g.Coordinates) == 0 {
		return Geo{}, false
	}
	var pair []float64
	if err := json.Unmarshal(g.Coordinates, &pair); err != nil {
		return Geo{}, false
	}
	if len(pair) != 2 || math.IsNaN(pair[0]) || math.IsNaN(pair[1]) {
		return Geo{}, false
	}
	return Geo{Lat: pair[1], Lon: pair[0]}, true
}

// Location returns the point of the first geometry entry.
func (e Event) Location() (Geo, bool) {
	if len(e.Geometry) == 0 {
		return Geo{}, false
	}
	return e.Geometry[0].Point()
}

// PrimaryCategory returns the first category title, or "" when there is none.
func (e Event) PrimaryCategory() string {
	if len(e.Categories) == 0 {
		return ""
	}
	return e.Categories[0].Title
}

// PrimarySourceURL returns the URL of the first source, or "" when there is none.
func (e Event) PrimarySourceURL() string {
	if len(e.Sources) == 0 {
		return ""
	}
	return e.Sources[0].URL
}
