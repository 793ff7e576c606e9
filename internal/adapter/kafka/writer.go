package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hazard-map-service/internal/config"
	"github.com/couchcryptid/hazard-map-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes drawn markers to a Kafka topic, one message per marker.
// It implements loader.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured marker topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Publish writes every marker in the set in a single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, set domain.MarkerSet) error {
	if len(set.Markers) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(set.Markers))
	for i := range set.Markers {
		msg, err := serializeToMessage(set.Markers[i], set.LoadedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write marker messages: %w", err)
	}
	w.logger.Debug("markers published", "sink", "kafka", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a marker summary into a Kafka message keyed by
// event ID.
func serializeToMessage(marker domain.Marker, loadedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(marker.Summary())
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize marker: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(marker.EventID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(marker.Category)},
			{Key: "loaded_at", Value: []byte(loadedAt.Format(time.RFC3339))},
		},
	}, nil
}
