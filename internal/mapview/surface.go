// Package mapview holds the server-side map surface that browsers mirror: a
// single view, a base tile layer, and the markers currently drawn on it.
package mapview

import (
	"sync"

	"github.com/couchcryptid/hazard-map-service/internal/domain"
	"github.com/google/uuid"
)

const (
	// OSMTileURL is the default OpenStreetMap base layer.
	OSMTileURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	// OSMAttribution credits OpenStreetMap for the default tiles.
	OSMAttribution = "&copy; OpenStreetMap contributors"

	mapboxTileURL     = "https://api.mapbox.com/styles/v1/mapbox/streets-v12/tiles/{z}/{x}/{y}?access_token="
	mapboxAttribution = "&copy; Mapbox &copy; OpenStreetMap contributors"
)

// Handle identifies a marker placed on the surface.
type Handle string

// Center is the initial map center.
type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// View is the initial center and zoom of the map.
type View struct {
	Center Center `json:"center"`
	Zoom   int    `json:"zoom"`
}

// TileLayer is the base layer attached at startup.
type TileLayer struct {
	URLTemplate string `json:"url"`
	Attribution string `json:"attribution"`
}

// DefaultView centers on the Iberian peninsula.
func DefaultView() View {
	return View{Center: Center{Lat: 40.4165, Lon: -3.7026}, Zoom: 6}
}

// OSMTiles returns the OpenStreetMap base layer.
func OSMTiles() TileLayer {
	return TileLayer{URLTemplate: OSMTileURL, Attribution: OSMAttribution}
}

// MapboxTiles returns Mapbox street tiles for the given access token.
func MapboxTiles(token string) TileLayer {
	return TileLayer{URLTemplate: mapboxTileURL + token, Attribution: mapboxAttribution}
}

// PlacedMarker is a marker together with the handle it was drawn under.
type PlacedMarker struct {
	Handle Handle        `json:"handle"`
	Marker domain.Marker `json:"marker"`
}

// State is an immutable snapshot of the surface.
type State struct {
	View     View           `json:"view"`
	Tiles    TileLayer      `json:"tiles"`
	Markers  []PlacedMarker `json:"markers"`
	Revision uint64         `json:"revision"`
}

// Surface owns the map view and its marker layer. It is safe for concurrent use.
type Surface struct {
	view  View
	tiles TileLayer

	mu          sync.RWMutex
	order       []Handle
	markers     map[Handle]domain.Marker
	revision    uint64
	subscribers map[chan State]struct{}
}

// New initializes a surface with its view and base tile layer.
func New(view View, tiles TileLayer) *Surface {
	return &Surface{
		view:        view,
		tiles:       tiles,
		markers:     make(map[Handle]domain.Marker),
		subscribers: make(map[chan State]struct{}),
	}
}

// Add draws a marker and returns its handle.
func (s *Surface) Add(m domain.Marker) Handle {
	h := Handle(uuid.NewString())

	s.mu.Lock()
	s.markers[h] = m
	s.order = append(s.order, h)
	s.revision++
	s.publishLocked()
	s.mu.Unlock()

	return h
}

// Remove erases a marker. It reports false for unknown handles.
func (s *Surface) Remove(h Handle) bool {
	s.mu.Lock()
	if _, ok := s.markers[h]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.markers, h)
	for i, oh := range s.order {
		if oh == h {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.revision++
	s.publishLocked()
	s.mu.Unlock()

	return true
}

// Len returns the number of drawn markers.
func (s *Surface) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns the current state of the surface.
func (s *Surface) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that receives the newest state after every
// change. A slow reader only ever sees the latest state. Call cancel to stop.
func (s *Surface) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

func (s *Surface) snapshotLocked() State {
	markers := make([]PlacedMarker, 0, len(s.order))
	for _, h := range s.order {
		markers = append(markers, PlacedMarker{Handle: h, Marker: s.markers[h]})
	}
	return State{
		View:     s.view,
		Tiles:    s.tiles,
		Markers:  markers,
		Revision: s.revision,
	}
}

// publishLocked hands the current state to every subscriber, replacing any
// state the subscriber has not consumed yet. s.mu must be held for writing.
func (s *Surface) publishLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	state := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
		}
	}
}
