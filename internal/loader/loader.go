package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/hazard-map-service/internal/domain"
	"github.com/couchcryptid/hazard-map-service/internal/observability"
)

// NoticeNoEvents is shown when a load returns zero events.
const NoticeNoEvents = "No events were found for the selected dates."

// EventSource fetches events for a filter.
type EventSource interface {
	FetchEvents(ctx context.Context, filter domain.Filter) ([]domain.Event, error)
}

// Notifier surfaces a message to the people looking at the map.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Publisher receives the marker set after each load cycle. A cycle that ends
// with an empty map publishes an empty set.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, set domain.MarkerSet) error
}

// Result summarizes one load cycle.
type Result struct {
	Filter   domain.Filter `json:"filter"`
	Removed  int           `json:"removed"`
	Fetched  int           `json:"fetched"`
	Drawn    int           `json:"drawn"`
	Skipped  int           `json:"skipped"`
	Notice   string        `json:"notice,omitempty"`
	LoadedAt time.Time     `json:"loaded_at"`
}

// Loader runs the marker refresh cycle: clear, fetch, draw.
type Loader struct {
	source     EventSource
	registry   *Registry
	notifier   Notifier
	publishers []Publisher
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu    sync.Mutex // serializes load cycles
	ready atomic.Bool
	last  atomic.Pointer[Result]

	publishTimeout time.Duration
	out            outbox
}

// New creates a Loader. A nil notifier drops notices.
func New(source EventSource, registry *Registry, notifier Notifier, logger *slog.Logger, metrics *observability.Metrics, publishers ...Publisher) *Loader {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &Loader{
		source:     source,
		registry:   registry,
		notifier:   notifier,
		publishers: publishers,
		logger:     logger,
		metrics:    metrics,

		publishTimeout: DefaultPublishTimeout,
	}
}

// CheckReadiness returns nil once a load cycle has completed.
func (l *Loader) CheckReadiness(_ context.Context) error {
	if !l.ready.Load() {
		return errors.New("no load cycle has completed yet")
	}
	return nil
}

// Last returns the result of the most recent load cycle, if any.
func (l *Loader) Last() (Result, bool) {
	r := l.last.Load()
	if r == nil {
		return Result{}, false
	}
	return *r, true
}

// Load replaces every drawn marker with markers for the events matching the
// filter. The fetch is not cancelled with ctx; the HTTP client timeout bounds it.
// On a fetch or decode failure the map is left empty and the error is returned.
// Publishers are fed in the background and never delay the next cycle.
func (l *Loader) Load(ctx context.Context, filter domain.Filter) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	res := Result{Filter: filter}

	res.Removed = l.registry.Clear()
	l.metrics.MarkersDrawn.Set(0)

	start := clock.Now()
	events, err := l.source.FetchEvents(ctx, filter)
	l.metrics.FetchDuration.Observe(clock.Since(start).Seconds())
	if err != nil {
		l.metrics.Loads.WithLabelValues("error").Inc()
		l.logger.Error("load events failed",
			"error", err,
			"filter_start", filter.StartDate,
			"filter_end", filter.EndDate,
			"filter_limit", filter.Limit,
		)
		l.enqueue(domain.MarkerSet{Filter: filter, LoadedAt: clock.Now()})
		return res, fmt.Errorf("load events: %w", err)
	}
	res.Fetched = len(events)

	if len(events) == 0 {
		res.Notice = NoticeNoEvents
		l.notifier.Notify(ctx, NoticeNoEvents)
		l.metrics.Loads.WithLabelValues("empty").Inc()
		l.finish(&res)
		l.enqueue(domain.MarkerSet{Filter: filter, LoadedAt: res.LoadedAt})
		return res, nil
	}

	drawn, skipped := l.registry.AddAll(ctx, events)
	res.Drawn = len(drawn)
	res.Skipped = skipped
	l.metrics.MarkersDrawn.Set(float64(res.Drawn))
	l.metrics.EventsSkipped.Add(float64(skipped))
	l.metrics.Loads.WithLabelValues("drawn").Inc()
	l.finish(&res)

	l.logger.Info("markers drawn",
		"fetched", res.Fetched,
		"drawn", res.Drawn,
		"skipped", res.Skipped,
		"removed", res.Removed,
	)

	l.enqueue(domain.MarkerSet{Filter: filter, Markers: drawn, LoadedAt: res.LoadedAt})
	return res, nil
}

func (l *Loader) finish(res *Result) {
	res.LoadedAt = clock.Now()
	saved := *res
	l.last.Store(&saved)
	l.ready.Store(true)
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, string) {}
