package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/hazard-map-service/internal/domain"
	"github.com/couchcryptid/hazard-map-service/internal/observability"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Hazards sit in forests, oceans and mountain ranges, so street-level types
// rarely match. Ask for the coarse areas only.
const placeTypes = "place,locality,region,country"

// Client looks up popup place names with the Mapbox reverse geocoding API.
// It implements domain.Geocoder.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox client with the given request timeout.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		metrics:    metrics,
		logger:     logger,
	}
}

// PlaceAt returns the best-matching area around the point.
func (c *Client) PlaceAt(ctx context.Context, at domain.Geo) (domain.Place, error) {
	place, err := c.lookup(ctx, at)
	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
	case place.Empty():
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	return place, err
}

// placeURL builds the reverse query. Mapbox takes the point as "lon,lat".
func (c *Client) placeURL(at domain.Geo) string {
	point := strconv.FormatFloat(at.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(at.Lat, 'f', 6, 64)
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("limit", "1")
	q.Set("types", placeTypes)
	return c.baseURL + "/" + point + ".json?" + q.Encode()
}

func (c *Client) lookup(ctx context.Context, at domain.Geo) (domain.Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.placeURL(at), nil)
	if err != nil {
		return domain.Place{}, fmt.Errorf("build mapbox request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Place{}, fmt.Errorf("mapbox request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Place{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return domain.Place{}, fmt.Errorf("decode mapbox response: %w", err)
	}
	if len(fc.Features) == 0 {
		c.logger.Debug("no place near marker", "lat", at.Lat, "lon", at.Lon)
		return domain.Place{}, nil
	}

	best := fc.Features[0]
	return domain.Place{
		Label:     best.PlaceName,
		Name:      best.Text,
		Relevance: best.Relevance,
	}, nil
}

type featureCollection struct {
	Features []placeFeature `json:"features"`
}

type placeFeature struct {
	PlaceName string  `json:"place_name"`
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
}
