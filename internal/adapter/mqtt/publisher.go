// Package mqtt publishes the drawn marker set as retained MQTT messages.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/hazard-map-service/internal/config"
	"github.com/couchcryptid/hazard-map-service/internal/domain"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	qosAtLeastOnce = 1
	connectTimeout = 10 * time.Second

	// While the client is reconnecting, paho holds QoS 1 tokens until the
	// broker is back. ackTimeout caps how long Publish waits for one.
	ackTimeout = 10 * time.Second
)

// ErrAckTimeout is returned when the broker does not acknowledge a message in time.
var ErrAckTimeout = errors.New("no broker acknowledgement")

// client is the part of the paho client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Publisher writes the marker summary to <prefix>/markers and the marker
// count to <prefix>/count. Both are retained so new subscribers see the
// current map immediately. It implements loader.Publisher.
type Publisher struct {
	client     client
	prefix     string
	ackTimeout time.Duration
	logger     *slog.Logger
}

type markersPayload struct {
	LoadedAt time.Time              `json:"loaded_at"`
	Filter   domain.Filter          `json:"filter"`
	Markers  []domain.MarkerSummary `json:"markers"`
}

// Connect dials the configured broker and returns a ready publisher.
func Connect(cfg *config.Config, logger *slog.Logger) (*Publisher, error) {
	broker := cfg.MQTTBroker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.OnConnect = func(pahomqtt.Client) {
		logger.Info("mqtt connected", "broker", broker)
	}
	opts.OnConnectionLost = func(_ pahomqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "broker", broker, "error", err)
	}

	c := pahomqtt.NewClient(opts)
	if token := c.Connect(); !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to mqtt broker %s: timed out", broker)
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, err)
	}

	return newPublisher(c, cfg.MQTTTopicPrefix, logger), nil
}

func newPublisher(c client, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:     c,
		prefix:     strings.TrimSuffix(prefix, "/"),
		ackTimeout: ackTimeout,
		logger:     logger,
	}
}

// Name identifies the sink in logs and metrics.
func (p *Publisher) Name() string { return "mqtt" }

// Publish sends the marker summary and count. An empty set is published too,
// so retained subscribers see the map being cleared.
func (p *Publisher) Publish(ctx context.Context, set domain.MarkerSet) error {
	summaries := make([]domain.MarkerSummary, len(set.Markers))
	for i, m := range set.Markers {
		summaries[i] = m.Summary()
	}
	payload, err := json.Marshal(markersPayload{
		LoadedAt: set.LoadedAt,
		Filter:   set.Filter,
		Markers:  summaries,
	})
	if err != nil {
		return fmt.Errorf("serialize marker summary: %w", err)
	}

	if err := p.publish(ctx, p.prefix+"/markers", payload); err != nil {
		return err
	}
	if err := p.publish(ctx, p.prefix+"/count", []byte(strconv.Itoa(len(summaries)))); err != nil {
		return err
	}
	p.logger.Debug("markers published", "sink", "mqtt", "count", len(summaries))
	return nil
}

// Close disconnects, allowing in-flight messages 250ms to complete.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func (p *Publisher) publish(ctx context.Context, topic string, payload []byte) error {
	token := p.client.Publish(topic, qosAtLeastOnce, true, payload)

	timer := time.NewTimer(p.ackTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("publish %s: %w", topic, ErrAckTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
