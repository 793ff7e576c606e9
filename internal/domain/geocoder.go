package domain

import "context"

// Place is the named area around a marker, as reported by a geocoding provider.
type Place struct {
	Label     string  // full label, e.g. "Hilo, Hawaii, United States"
	Name      string  // short name, e.g. "Hilo"
	Relevance float64 // 0.0–1.0
}

// Empty reports whether the provider found nothing to show.
func (p Place) Empty() bool { return p.Label == "" && p.Name == "" }

// Geocoder resolves marker coordinates to place names for popups.
type Geocoder interface {
	PlaceAt(ctx context.Context, at Geo) (Place, error)
}
