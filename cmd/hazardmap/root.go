package main

import (
	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hazardmap",
		Short: "Natural hazard events from NASA EONET on an interactive map",
		Long: `hazardmap draws natural hazard events reported by NASA's EONET service
as emoji markers on a Leaflet map.

Configuration comes from environment variables (EONET_URL, HTTP_ADDR,
MAPBOX_TOKEN, KAFKA_BROKERS, MQTT_BROKER, ...).`,
		Version:       Version + " (" + GitCommit + ")",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newEventsCmd())
	root.AddCommand(newCategoriesCmd())
	return root
}
