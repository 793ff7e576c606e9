package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/hazard-map-service/internal/adapter/http"
	"github.com/couchcryptid/hazard-map-service/internal/controller"
	"github.com/couchcryptid/hazard-map-service/internal/domain"
	"github.com/couchcryptid/hazard-map-service/internal/mapview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const emptyNotice = "No events were found for the selected dates."

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type fixture struct {
	srv     *httpadapter.Server
	surface *mapview.Surface
	notices *httpadapter.Notices
	ctrl    *controller.Controller
	filters []domain.Filter
	// emptyResult makes the fake load report no events.
	emptyResult bool
	loadErr     error
}

func newFixture(t *testing.T, strict bool, readyErr error) *fixture {
	t.Helper()
	f := &fixture{
		surface: mapview.New(mapview.DefaultView(), mapview.OSMTiles()),
		notices: httpadapter.NewNotices(),
	}
	load := func(ctx context.Context, filter domain.Filter) error {
		f.filters = append(f.filters, filter)
		if f.emptyResult {
			f.notices.Notify(ctx, emptyNotice)
		}
		return f.loadErr
	}
	f.ctrl = controller.New(load, f.notices.RequestScoped(), controller.Options{RequireBothDates: strict})

	srv, err := httpadapter.NewServer(":0", httpadapter.Deps{
		Controller: f.ctrl,
		Surface:    f.surface,
		Notices:    f.notices,
		Ready:      &mockReadiness{err: readyErr},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	f.srv = srv
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func testMarker(id, category string, lon, lat float64) domain.Marker {
	m, _ := domain.NewMarker(domain.Event{
		ID:         id,
		Title:      id + " title",
		Categories: []domain.Category{{Title: category}},
		Geometry:   []domain.Geometry{{Type: "Point", Coordinates: json.RawMessage(`[` + ftoa(lon) + `,` + ftoa(lat) + `]`)}},
	})
	return m
}

func ftoa(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	f := newFixture(t, false, nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	f := newFixture(t, false, nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	f := newFixture(t, false, errors.New("no load cycle has completed yet"))
	rec := f.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no load cycle has completed yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, false, nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- page and form ---

func TestIndexRendersFormAndLegend(t *testing.T) {
	f := newFixture(t, false, nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="start-date"`)
	assert.Contains(t, body, `id="end-date"`)
	assert.Contains(t, body, `id="event-count"`)
	assert.Contains(t, body, `id="clear-filter" formaction="/clear-filter" formnovalidate`)
	assert.Contains(t, body, `id="map"`)
	assert.Contains(t, body, "🔥 Wildfires")
	assert.Contains(t, body, "❓ Other")
}

func TestUnknownPathIs404(t *testing.T) {
	f := newFixture(t, false, nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFilterSubmitsAndRedirects(t *testing.T) {
	f := newFixture(t, false, nil)

	rec := f.do(postForm("/filter", url.Values{
		"start-date":  {"2023-01-01"},
		"end-date":    {"2023-01-31"},
		"event-count": {"4"},
	}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	require.Len(t, f.filters, 1)
	assert.Equal(t, domain.Filter{StartDate: "2023-01-01", EndDate: "2023-01-31", Limit: 4}, f.filters[0])

	page := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, page.Body.String(), `value="2023-01-01"`)
	assert.Contains(t, page.Body.String(), `value="2023-01-31"`)
}

func TestFilterLoadErrorStillRedirects(t *testing.T) {
	f := newFixture(t, false, nil)
	f.loadErr = errors.New("eonet down")

	rec := f.do(postForm("/filter", url.Values{}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, rec.Result().Cookies(), "fetch failures are not shown to the user")
}

func TestStrictFilterFlashesNotice(t *testing.T) {
	f := newFixture(t, true, nil)

	rec := f.do(postForm("/filter", url.Values{"start-date": {"2023-01-01"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, f.filters)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	page := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		page.AddCookie(c)
	}
	first := f.do(page)
	assert.Contains(t, first.Body.String(), controller.NoticeMissingDates)

	again := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range first.Result().Cookies() {
		again.AddCookie(c)
	}
	assert.NotContains(t, f.do(again).Body.String(), controller.NoticeMissingDates, "flash is shown once")
}

func TestStrictFilterNoticeIsNotBroadcast(t *testing.T) {
	f := newFixture(t, true, nil)
	live, cancel := f.notices.Subscribe()
	defer cancel()

	rec := f.do(postForm("/filter", url.Values{"end-date": {"2023-01-31"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.NotEmpty(t, rec.Result().Cookies(), "the submitter still gets the flash")

	select {
	case msg := <-live:
		t.Fatalf("validation notice reached other viewers: %q", msg)
	default:
	}
}

func TestEmptyResultIsBroadcast(t *testing.T) {
	f := newFixture(t, false, nil)
	f.emptyResult = true
	live, cancel := f.notices.Subscribe()
	defer cancel()

	f.do(postForm("/filter", url.Values{}))

	select {
	case msg := <-live:
		assert.Equal(t, emptyNotice, msg)
	default:
		t.Fatal("map-level notice was not broadcast")
	}
}

func TestEmptyResultFlashesNotice(t *testing.T) {
	f := newFixture(t, false, nil)
	f.emptyResult = true

	rec := f.do(postForm("/filter", url.Values{"start-date": {"1900-01-01"}, "end-date": {"1900-01-02"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	page := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		page.AddCookie(c)
	}
	assert.Contains(t, f.do(page).Body.String(), emptyNotice)
}

func TestClearFilter(t *testing.T) {
	f := newFixture(t, false, nil)
	f.do(postForm("/filter", url.Values{"start-date": {"2023-01-01"}, "end-date": {"2023-01-31"}}))

	rec := f.do(postForm("/clear-filter", url.Values{}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, f.filters, 2)
	assert.Equal(t, domain.Filter{}, f.filters[1])
	assert.Equal(t, controller.Form{}, f.ctrl.Fields())
}

// --- API ---

func TestMarkersGeoJSON(t *testing.T) {
	f := newFixture(t, false, nil)
	f.surface.Add(testMarker("EONET_1", "Wildfires", -120.5, 38.25))
	f.surface.Add(testMarker("EONET_2", "Mystery", 10, 20))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/markers", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-Map-Revision"))

	var fc httpadapter.FeatureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	assert.Equal(t, "Point", first.Geometry.Type)
	assert.Equal(t, []float64{-120.5, 38.25}, first.Geometry.Coordinates)
	assert.Equal(t, "EONET_1", first.Properties["id"])
	assert.Equal(t, "🔥", first.Properties["glyph"])
	assert.Contains(t, first.Properties["popup"], "EONET_1 title")
	assert.Equal(t, "❓", fc.Features[1].Properties["glyph"])
}

func TestMarkersEmpty(t *testing.T) {
	f := newFixture(t, false, nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/markers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, rec.Body.String())
}

func TestState(t *testing.T) {
	f := newFixture(t, false, nil)
	f.surface.Add(testMarker("EONET_1", "Volcanoes", 1, 2))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		View struct {
			Center struct{ Lat, Lon float64 } `json:"center"`
			Zoom   int                        `json:"zoom"`
		} `json:"view"`
		Tiles struct {
			URL string `json:"url"`
		} `json:"tiles"`
		Revision    uint64 `json:"revision"`
		MarkerCount int    `json:"marker_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 40.4165, body.View.Center.Lat, 1e-9)
	assert.InDelta(t, -3.7026, body.View.Center.Lon, 1e-9)
	assert.Equal(t, 6, body.View.Zoom)
	assert.Equal(t, mapview.OSMTileURL, body.Tiles.URL)
	assert.Equal(t, uint64(1), body.Revision)
	assert.Equal(t, 1, body.MarkerCount)
}
