//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/hazard-map-service/internal/adapter/eonet"
	"github.com/couchcryptid/hazard-map-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-map-service/internal/config"
	"github.com/couchcryptid/hazard-map-service/internal/domain"
	"github.com/couchcryptid/hazard-map-service/internal/loader"
	"github.com/couchcryptid/hazard-map-service/internal/mapview"
	"github.com/couchcryptid/hazard-map-service/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kafkamod "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testTopic = "test-hazard-markers"

const eonetFixture = `{
  "title": "EONET Events",
  "events": [
    {
      "id": "EONET_6470",
      "title": "Kilauea Volcano, United States",
      "categories": [{"id": "volcanoes", "title": "Volcanoes"}],
      "sources": [{"id": "SIVolcano", "url": "https://volcano.si.edu/volcano.cfm?vn=332010"}],
      "geometry": [{"date": "2023-01-05T00:00:00Z", "type": "Point", "coordinates": [-155.287, 19.421]}]
    },
    {
      "id": "EONET_6471",
      "title": "Iceberg D28",
      "categories": [{"id": "seaLakeIce", "title": "Sea and Lake Ice"}],
      "sources": [],
      "geometry": []
    },
    {
      "id": "EONET_6472",
      "title": "Park Fire, California",
      "description": "Evacuations ordered.",
      "categories": [{"id": "wildfires", "title": "Wildfires"}],
      "sources": [{"id": "InciWeb", "url": "https://inciweb.wildfire.gov/incident-information/cabtu-park"}],
      "geometry": [{"date": "2023-01-20T00:00:00Z", "type": "Point", "coordinates": [-121.8, 39.8]}]
    }
  ]
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := kafkamod.Run(ctx, "confluentinc/confluent-local:7.5.0", kafkamod.WithClusterID("hazard-map-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestLoadPublishesMarkersToKafka runs a load cycle against a fake EONET
// endpoint and reads the drawn markers back from Kafka.
func TestLoadPublishesMarkersToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	var gotQuery string
	eonetSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, eonetFixture)
	}))
	t.Cleanup(eonetSrv.Close)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	surface := mapview.New(mapview.DefaultView(), mapview.OSMTiles())
	source := eonet.NewClient(eonetSrv.URL, 10*time.Second, discardLogger())
	l := loader.New(source, loader.NewRegistry(surface, nil, discardLogger()), nil,
		discardLogger(), observability.NewMetricsForTesting(), writer)

	res, err := l.Load(ctx, domain.Filter{StartDate: "2023-01-01", EndDate: "2023-01-31", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 2, res.Drawn)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "end=2023-01-31&limit=10&start=2023-01-01", gotQuery)
	assert.Equal(t, 2, surface.Len())
	require.NoError(t, l.Flush(ctx))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := map[string]domain.MarkerSummary{}
	headers := map[string]map[string]string{}
	for range 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read marker message")

		var summary domain.MarkerSummary
		require.NoError(t, json.Unmarshal(msg.Value, &summary))
		got[string(msg.Key)] = summary

		h := make(map[string]string, len(msg.Headers))
		for _, kv := range msg.Headers {
			h[kv.Key] = string(kv.Value)
		}
		headers[string(msg.Key)] = h
	}

	require.Contains(t, got, "EONET_6470")
	require.Contains(t, got, "EONET_6472")
	assert.NotContains(t, got, "EONET_6471")

	volcano := got["EONET_6470"]
	assert.Equal(t, "🌋", volcano.Glyph)
	assert.InDelta(t, 19.421, volcano.Lat, 1e-9)
	assert.InDelta(t, -155.287, volcano.Lon, 1e-9)
	assert.Equal(t, "Volcanoes", headers["EONET_6470"]["category"])
	assert.Equal(t, res.LoadedAt.Format(time.RFC3339), headers["EONET_6470"]["loaded_at"])

	assert.Equal(t, "🔥", got["EONET_6472"].Glyph)
}
