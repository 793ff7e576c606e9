package http

import (
	"context"
	"sync"
)

// Notices delivers user-visible messages. A map-level message reaches the
// request that triggered it (as a flash) and every connected live-update
// client. Messages meant for one form submit go through RequestScoped.
type Notices struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

// NewNotices creates an empty notice hub.
func NewNotices() *Notices {
	return &Notices{subs: make(map[chan string]struct{})}
}

// Notify records message on the request collector in ctx, if any, and
// broadcasts it to subscribers. Subscribers that are not keeping up miss it.
func (n *Notices) Notify(ctx context.Context, message string) {
	collect(ctx, message)

	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- message:
		default:
		}
	}
}

// RequestScoped returns a notifier that only flashes the message back to the
// request that triggered it. Nothing is broadcast.
func (n *Notices) RequestScoped() RequestNotifier { return RequestNotifier{} }

// RequestNotifier flashes messages to the triggering request only.
type RequestNotifier struct{}

// Notify records message on the request collector in ctx, if any.
func (RequestNotifier) Notify(ctx context.Context, message string) {
	collect(ctx, message)
}

// Subscribe returns a channel of broadcast notices. Call cancel to stop.
func (n *Notices) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 8)

	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, ch)
			n.mu.Unlock()
		})
	}
}

type collectorKey struct{}

type collector struct {
	mu   sync.Mutex
	msgs []string
}

func withCollector(ctx context.Context) (context.Context, *collector) {
	c := &collector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

func collect(ctx context.Context, msg string) {
	if c, ok := ctx.Value(collectorKey{}).(*collector); ok {
		c.add(msg)
	}
}

func (c *collector) add(msg string) {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
}

func (c *collector) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}
