package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// EONET event source.
	EONETURL     string
	EONETTimeout time.Duration

	// Initial map view.
	MapCenterLat float64
	MapCenterLon float64
	MapZoom      int

	// FormRequireBothDates selects the strict form variant, which refuses to
	// load unless both dates are filled in.
	FormRequireBothDates bool
	SessionKey           []byte

	// RefreshSchedule is a 5-field cron expression; empty disables refresh.
	RefreshSchedule string

	// Mapbox reverse geocoding for popups and tiles.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Optional marker publishers.
	KafkaBrokers    []string
	KafkaTopic      string
	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string
	PublishTimeout  time.Duration
}

// KafkaEnabled reports whether the Kafka marker publisher is configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// MQTTEnabled reports whether the MQTT marker publisher is configured.
func (c *Config) MQTTEnabled() bool { return c.MQTTBroker != "" }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	eonetTimeout, err := parsePositiveDuration("EONET_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	publishTimeout, err := parsePositiveDuration("PUBLISH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	mapboxCacheSize, err := parsePositiveInt("MAPBOX_CACHE_SIZE", "1000")
	if err != nil {
		return nil, err
	}

	lat, err := parseFloat("MAP_CENTER_LAT", "40.4165")
	if err != nil {
		return nil, err
	}
	lon, err := parseFloat("MAP_CENTER_LON", "-3.7026")
	if err != nil {
		return nil, err
	}
	zoom, err := strconv.Atoi(sharedcfg.EnvOrDefault("MAP_ZOOM", "6"))
	if err != nil || zoom < 0 || zoom > 22 {
		return nil, errors.New("invalid MAP_ZOOM")
	}

	var kafkaBrokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		kafkaBrokers = sharedcfg.ParseBrokers(v)
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		EONETURL:     sharedcfg.EnvOrDefault("EONET_URL", "https://eonet.gsfc.nasa.gov/api/v3/events"),
		EONETTimeout: eonetTimeout,

		MapCenterLat: lat,
		MapCenterLon: lon,
		MapZoom:      zoom,

		FormRequireBothDates: os.Getenv("FORM_REQUIRE_BOTH_DATES") == "true",
		SessionKey:           []byte(os.Getenv("SESSION_KEY")),
		RefreshSchedule:      os.Getenv("REFRESH_SCHEDULE"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,

		KafkaBrokers:    kafkaBrokers,
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "hazard-markers"),
		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTClientID:    sharedcfg.EnvOrDefault("MQTT_CLIENT_ID", "hazard-map-service"),
		MQTTTopicPrefix: sharedcfg.EnvOrDefault("MQTT_TOPIC_PREFIX", "hazardmap"),
		PublishTimeout:  publishTimeout,
	}

	if cfg.EONETURL == "" {
		return nil, errors.New("EONET_URL is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.RefreshSchedule); err != nil {
			return nil, fmt.Errorf("invalid REFRESH_SCHEDULE: %w", err)
		}
	}
	if len(cfg.SessionKey) > 0 && len(cfg.SessionKey) < 32 {
		return nil, errors.New("SESSION_KEY must be at least 32 bytes")
	}

	return cfg, nil
}

func parsePositiveDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parseFloat(name, def string) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(name, def), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func parsePositiveInt(name, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(name, def))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}
