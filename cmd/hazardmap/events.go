package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/hazard-map-service/internal/adapter/eonet"
	"github.com/couchcryptid/hazard-map-service/internal/config"
	"github.com/couchcryptid/hazard-map-service/internal/domain"
	"github.com/couchcryptid/hazard-map-service/internal/loader"
	"github.com/couchcryptid/hazard-map-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// eventsReport is the result of one load cycle as printed by the events command.
type eventsReport struct {
	Filter   domain.Filter          `json:"filter" yaml:"filter"`
	Fetched  int                    `json:"fetched" yaml:"fetched"`
	Drawn    int                    `json:"drawn" yaml:"drawn"`
	Skipped  int                    `json:"skipped" yaml:"skipped"`
	Notice   string                 `json:"notice,omitempty" yaml:"notice,omitempty"`
	LoadedAt time.Time              `json:"loaded_at" yaml:"loaded_at"`
	Markers  []domain.MarkerSummary `json:"markers" yaml:"markers"`
}

type eventsOptions struct {
	start  string
	end    string
	limit  int
	output string
}

func newEventsCmd() *cobra.Command {
	var opts eventsOptions

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Run one load cycle and print the markers it draws",
		Long: `Fetches events from EONET for the optional date range, builds the same
markers the map shows, and prints them. Dates are only sent when both
--start and --end are given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := opts.output
			if format == "" {
				format = defaultFormat()
			}
			if err := validateFormat(format); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			filter := domain.Filter{StartDate: opts.start, EndDate: opts.end, Limit: opts.limit}
			report, err := runEvents(cmd.Context(), cfg, filter, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), format, report)
		},
	}

	cmd.Flags().StringVar(&opts.start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "maximum number of events (with --start and --end)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output format: table, json or yaml (default table on a terminal, json otherwise)")
	return cmd
}

// runEvents performs one load cycle against an in-memory surface. Logs and
// notices go to stderr.
func runEvents(ctx context.Context, cfg *config.Config, filter domain.Filter, stderr io.Writer) (eventsReport, error) {
	logger := observability.NewWriterLogger(stderr, cfg)
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())

	geocoder, err := newGeocoder(cfg, metrics, logger)
	if err != nil {
		return eventsReport{}, err
	}

	surface := newSurface(cfg)
	source := eonet.NewClient(cfg.EONETURL, cfg.EONETTimeout, logger)
	l := loader.New(source, loader.NewRegistry(surface, geocoder, logger), writerNotifier{stderr}, logger, metrics)

	res, err := l.Load(ctx, filter)
	if err != nil {
		return eventsReport{}, err
	}

	state := surface.Snapshot()
	markers := make([]domain.MarkerSummary, len(state.Markers))
	for i, pm := range state.Markers {
		markers[i] = pm.Marker.Summary()
	}
	return eventsReport{
		Filter:   res.Filter,
		Fetched:  res.Fetched,
		Drawn:    res.Drawn,
		Skipped:  res.Skipped,
		Notice:   res.Notice,
		LoadedAt: res.LoadedAt,
		Markers:  markers,
	}, nil
}

func defaultFormat() string {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "table"
	}
	return "json"
}

func validateFormat(format string) error {
	switch format {
	case "table", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

func printReport(w io.Writer, format string, report eventsReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		return printTable(w, report)
	}
}

func printTable(w io.Writer, report eventsReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GLYPH\tCATEGORY\tLAT\tLON\tID\tTITLE")
	for _, m := range report.Markers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.Glyph, orDash(m.Category),
			strconv.FormatFloat(m.Lat, 'f', 4, 64), strconv.FormatFloat(m.Lon, 'f', 4, 64),
			m.EventID, m.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d drawn, %d skipped, %d fetched\n", report.Drawn, report.Skipped, report.Fetched)
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// writerNotifier prints notices on their own line.
type writerNotifier struct {
	w io.Writer
}

func (n writerNotifier) Notify(_ context.Context, message string) {
	fmt.Fprintln(n.w, message)
}
