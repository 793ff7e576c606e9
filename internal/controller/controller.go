// Package controller turns date-range form actions into marker loads.
package controller

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/couchcryptid/hazard-map-service/internal/domain"
)

// NoticeMissingDates is shown by the strict form when either date is blank.
const NoticeMissingDates = "Please select both a start date and an end date."

// Form mirrors the start-date, end-date and event-count inputs.
type Form struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Count     string `json:"count"`
}

// LoadFunc runs one load cycle for a filter.
type LoadFunc func(ctx context.Context, filter domain.Filter) error

// Notifier surfaces a message to the people looking at the map.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Options selects the form variant.
type Options struct {
	// RequireBothDates refuses to load unless both dates are filled in.
	// Otherwise missing dates mean "load everything".
	RequireBothDates bool
}

// Controller holds the current form values and the last filter it requested.
type Controller struct {
	load     LoadFunc
	notifier Notifier
	opts     Options

	mu     sync.Mutex
	fields Form
	filter domain.Filter
}

// New creates a Controller with empty fields.
func New(load LoadFunc, notifier Notifier, opts Options) *Controller {
	return &Controller{load: load, notifier: notifier, opts: opts}
}

// Submit stores the form values and loads markers for them. The strict
// variant shows a notice instead of loading when a date is missing.
func (c *Controller) Submit(ctx context.Context, form Form) error {
	form = Form{
		StartDate: strings.TrimSpace(form.StartDate),
		EndDate:   strings.TrimSpace(form.EndDate),
		Count:     strings.TrimSpace(form.Count),
	}

	c.mu.Lock()
	c.fields = form
	c.mu.Unlock()

	if c.opts.RequireBothDates && (form.StartDate == "" || form.EndDate == "") {
		c.notify(ctx, NoticeMissingDates)
		return nil
	}

	return c.run(ctx, domain.Filter{
		StartDate: form.StartDate,
		EndDate:   form.EndDate,
		Limit:     parseCount(form.Count),
	})
}

// ClearFilter empties every field and reloads without a filter.
func (c *Controller) ClearFilter(ctx context.Context) error {
	c.mu.Lock()
	c.fields = Form{}
	c.mu.Unlock()

	return c.run(ctx, domain.Filter{})
}

// LoadInitial is the unfiltered load performed when the page first opens.
func (c *Controller) LoadInitial(ctx context.Context) error {
	return c.run(ctx, domain.Filter{})
}

// Reload repeats the last requested load.
func (c *Controller) Reload(ctx context.Context) error {
	return c.run(ctx, c.CurrentFilter())
}

// Fields returns the current form values.
func (c *Controller) Fields() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields
}

// CurrentFilter returns the filter of the last load the controller requested.
func (c *Controller) CurrentFilter() domain.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

func (c *Controller) run(ctx context.Context, filter domain.Filter) error {
	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()

	return c.load(ctx, filter)
}

func (c *Controller) notify(ctx context.Context, message string) {
	if c.notifier != nil {
		c.notifier.Notify(ctx, message)
	}
}

// parseCount returns 0 (no limit) for a blank, non-numeric or non-positive count.
func parseCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
