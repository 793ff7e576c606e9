package loader

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/hazard-map-service/internal/domain"
	"github.com/couchcryptid/hazard-map-service/internal/mapview"
	"golang.org/x/sync/errgroup"
)

const (
	placeLookupConcurrency = 8
	// defaultPlaceBudget caps the time spent naming places in one AddAll.
	// Markers not reached by then are drawn without a place name.
	defaultPlaceBudget = 20 * time.Second
)

// Surface is the part of the map the registry draws on.
type Surface interface {
	Add(m domain.Marker) mapview.Handle
	Remove(h mapview.Handle) bool
}

// Registry tracks the markers currently drawn on a surface, in draw order.
// It is cleared and rebuilt on every load, never patched.
type Registry struct {
	surface  Surface
	geocoder domain.Geocoder
	logger   *slog.Logger
	handles  []mapview.Handle

	placeBudget time.Duration
}

// NewRegistry creates an empty registry for a surface. Pass a nil geocoder to
// skip place names in popups.
func NewRegistry(surface Surface, geocoder domain.Geocoder, logger *slog.Logger) *Registry {
	return &Registry{
		surface:  surface,
		geocoder: geocoder,
		logger:   logger,

		placeBudget: defaultPlaceBudget,
	}
}

// Len returns the number of markers the registry has drawn.
func (r *Registry) Len() int { return len(r.handles) }

// Clear removes every registered marker from the surface and empties the
// registry. It returns the number of markers removed.
func (r *Registry) Clear() int {
	n := len(r.handles)
	for _, h := range r.handles {
		r.surface.Remove(h)
	}
	r.handles = nil
	return n
}

// AddAll draws a marker for every event with a usable point and returns the
// drawn markers in event order. Events without one are skipped and counted.
func (r *Registry) AddAll(ctx context.Context, events []domain.Event) ([]domain.Marker, int) {
	drawn := make([]domain.Marker, 0, len(events))
	skipped := 0

	for _, event := range events {
		m, ok := domain.NewMarker(event)
		if !ok {
			r.logger.Debug("event skipped, no usable geometry", "event_id", event.ID)
			skipped++
			continue
		}
		drawn = append(drawn, m)
	}

	r.namePlaces(ctx, drawn)

	for _, m := range drawn {
		r.handles = append(r.handles, r.surface.Add(m))
	}
	return drawn, skipped
}

// namePlaces looks up popup place names concurrently, in place.
func (r *Registry) namePlaces(ctx context.Context, markers []domain.Marker) {
	if r.geocoder == nil || len(markers) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.placeBudget)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(placeLookupConcurrency)
	for i := range markers {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			markers[i] = domain.EnrichWithPlace(ctx, markers[i], r.geocoder, r.logger)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		r.logger.Warn("place lookups cut short", "markers", len(markers), "budget", r.placeBudget)
	}
}
