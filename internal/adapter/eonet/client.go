package eonet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/hazard-map-service/internal/domain"
)

// DefaultBaseURL is the public EONET v3 events endpoint.
const DefaultBaseURL = "https://eonet.gsfc.nasa.gov/api/v3/events"

// ErrDecode marks a response body that could not be parsed as an events document.
var ErrDecode = errors.New("decode eonet response")

// Client fetches natural events from the EONET API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an EONET client. The timeout bounds each request.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// URL returns the request URL for a filter.
func (c *Client) URL(filter domain.Filter) string {
	q := filter.Query()
	if len(q) == 0 {
		return c.baseURL
	}
	return c.baseURL + "?" + q.Encode()
}

// FetchEvents issues a single GET for the filter and decodes the events.
func (c *Client) FetchEvents(ctx context.Context, filter domain.Filter) ([]domain.Event, error) {
	fullURL := c.URL(filter)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eonet request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("eonet API error: status %d: %s", resp.StatusCode, body)
	}

	var doc domain.EventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	c.logger.Debug("eonet events fetched", "url", fullURL, "events", len(doc.Events))
	return doc.Events, nil
}
