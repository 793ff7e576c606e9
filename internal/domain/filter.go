package domain

import (
	"net/url"
	"strconv"
)

// Filter narrows an event load. The zero value loads everything.
type Filter struct {
	StartDate string `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Limit     int    `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// HasDateRange reports whether both dates are set.
func (f Filter) HasDateRange() bool {
	return f.StartDate != "" && f.EndDate != ""
}

// Query returns the EONET query parameters for the filter. Parameters are
// only sent when both dates are present; limit rides along when positive.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if !f.HasDateRange() {
		return q
	}
	q.Set("start", f.StartDate)
	q.Set("end", f.EndDate)
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}
