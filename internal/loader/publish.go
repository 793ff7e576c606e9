package loader

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/hazard-map-service/internal/domain"
	"golang.org/x/sync/errgroup"
)

// DefaultPublishTimeout bounds one hand-off of a marker set to the publishers.
const DefaultPublishTimeout = 10 * time.Second

// outbox holds the newest marker set waiting for the publishers. At most one
// drain goroutine runs, so sets reach every publisher in load order. A set
// replaced while still waiting is never sent.
type outbox struct {
	mu      sync.Mutex
	pending *domain.MarkerSet
	done    chan struct{} // non-nil while a drain goroutine runs
}

// SetPublishTimeout changes how long publishers get for each marker set.
// Call it before the first Load.
func (l *Loader) SetPublishTimeout(d time.Duration) {
	if d > 0 {
		l.publishTimeout = d
	}
}

// Flush waits until every queued marker set has been handed to the publishers,
// or ctx is done.
func (l *Loader) Flush(ctx context.Context) error {
	for {
		l.out.mu.Lock()
		done := l.out.done
		l.out.mu.Unlock()
		if done == nil {
			return nil
		}

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// enqueue queues set for publishing without waiting for any publisher.
func (l *Loader) enqueue(set domain.MarkerSet) {
	if len(l.publishers) == 0 {
		return
	}

	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.pending != nil {
		l.logger.Debug("queued marker set superseded", "loaded_at", l.out.pending.LoadedAt)
	}
	l.out.pending = &set
	if l.out.done != nil {
		return
	}
	l.out.done = make(chan struct{})
	go l.drain(l.out.done)
}

func (l *Loader) drain(done chan struct{}) {
	for {
		l.out.mu.Lock()
		set := l.out.pending
		l.out.pending = nil
		if set == nil {
			l.out.done = nil
			l.out.mu.Unlock()
			close(done)
			return
		}
		l.out.mu.Unlock()

		l.publish(*set)
	}
}

// publish hands the marker set to every publisher concurrently. Failures are
// logged and counted; they never touch the registry.
func (l *Loader) publish(set domain.MarkerSet) {
	ctx, cancel := context.WithTimeout(context.Background(), l.publishTimeout)
	defer cancel()

	var g errgroup.Group
	for _, p := range l.publishers {
		g.Go(func() error {
			if err := p.Publish(ctx, set); err != nil {
				l.metrics.PublishErrors.WithLabelValues(p.Name()).Inc()
				l.logger.Warn("publish marker set failed", "sink", p.Name(), "markers", len(set.Markers), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
