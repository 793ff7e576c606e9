package domain

import (
	"bytes"
	"html/template"
	"time"
)

const (
	// NoDescription replaces a missing event description in popups.
	NoDescription = "No description available"
	// NoSourceURL is the popup link target when an event lists no sources.
	NoSourceURL = "#"

	iconClassName = "emoji-icon"
)

var popupTemplate = template.Must(template.New("popup").Parse(
	`<div class="event-popup">` +
		`<strong>{{.Glyph}} {{.Title}}</strong><br>` +
		`<p>{{.Description}}</p>` +
		`{{if .PlaceName}}<p class="event-place">{{.PlaceName}}</p>{{end}}` +
		`<a href="{{.SourceURL}}" target="_blank" rel="noopener">More information</a>` +
		`</div>`))

// Icon describes an emoji div icon in the shape Leaflet's L.divIcon expects.
type Icon struct {
	ClassName   string `json:"className"`
	HTML        string `json:"html"`
	Size        [2]int `json:"iconSize"`
	Anchor      [2]int `json:"iconAnchor"`
	PopupAnchor [2]int `json:"popupAnchor"`
}

// NewIcon wraps a glyph in a 64x64 div icon anchored at (16, 32).
func NewIcon(glyph string) Icon {
	return Icon{
		ClassName:   iconClassName,
		HTML:        "<div>" + template.HTMLEscapeString(glyph) + "</div>",
		Size:        [2]int{64, 64},
		Anchor:      [2]int{16, 32},
		PopupAnchor: [2]int{0, -32},
	}
}

// Popup is the content bound to a marker.
type Popup struct {
	Glyph       string `json:"glyph"`
	Title       string `json:"title"`
	Description string `json:"description"`
	SourceURL   string `json:"source_url"`
	PlaceName   string `json:"place_name,omitempty"`
}

// HTML renders the popup with contextual escaping of every event field.
func (p Popup) HTML() string {
	var buf bytes.Buffer
	if err := popupTemplate.Execute(&buf, p); err != nil {
		return template.HTMLEscapeString(p.Title)
	}
	return buf.String()
}

// Marker is a point annotation for one event.
type Marker struct {
	EventID  string `json:"event_id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Glyph    string `json:"glyph"`
	Geo      Geo    `json:"geo"`
	Icon     Icon   `json:"icon"`
	Popup    Popup  `json:"popup"`
}

// NewMarker builds the marker for an event. It reports false when the event
// has no geometry or its first coordinate pair is malformed.
func NewMarker(event Event) (Marker, bool) {
	geo, ok := event.Location()
	if !ok {
		return Marker{}, false
	}

	category := event.PrimaryCategory()
	glyph := Glyph(category)

	description := event.Description
	if description == "" {
		description = NoDescription
	}
	sourceURL := event.PrimarySourceURL()
	if sourceURL == "" {
		sourceURL = NoSourceURL
	}

	return Marker{
		EventID:  event.ID,
		Title:    event.Title,
		Category: category,
		Glyph:    glyph,
		Geo:      geo,
		Icon:     NewIcon(glyph),
		Popup: Popup{
			Glyph:       glyph,
			Title:       event.Title,
			Description: description,
			SourceURL:   sourceURL,
		},
	}, true
}

// MarkerSet is the outcome of one load cycle, handed to publishers.
type MarkerSet struct {
	Filter   Filter    `json:"filter"`
	Markers  []Marker  `json:"markers"`
	LoadedAt time.Time `json:"loaded_at"`
}

// MarkerSummary is the compact form of a marker sent to downstream consumers.
type MarkerSummary struct {
	EventID   string  `json:"event_id" yaml:"event_id"`
	Title     string  `json:"title" yaml:"title"`
	Category  string  `json:"category" yaml:"category"`
	Glyph     string  `json:"glyph" yaml:"glyph"`
	Lat       float64 `json:"lat" yaml:"lat"`
	Lon       float64 `json:"lon" yaml:"lon"`
	SourceURL string  `json:"source_url" yaml:"source_url"`
	PlaceName string  `json:"place_name,omitempty" yaml:"place_name,omitempty"`
}

// Summary returns the compact form of m.
func (m Marker) Summary() MarkerSummary {
	return MarkerSummary{
		EventID:   m.EventID,
		Title:     m.Title,
		Category:  m.Category,
		Glyph:     m.Glyph,
		Lat:       m.Geo.Lat,
		Lon:       m.Geo.Lon,
		SourceURL: m.Popup.SourceURL,
		PlaceName: m.Popup.PlaceName,
	}
}
