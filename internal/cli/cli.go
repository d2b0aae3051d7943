package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/ocd-events/internal/config"
	"github.com/pfrederiksen/ocd-events/internal/logger"
	"github.com/pfrederiksen/ocd-events/internal/metrics"
	"github.com/pfrederiksen/ocd-events/internal/scraper"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig       string
	flagBaseURL      string
	flagJurisdiction string
	flagFormat       string
	flagOutput       string
	flagTimeout      time.Duration
	flagMetricsFile  string
	flagSwapSources  bool
	flagDoubleFetch  bool
	flagLogLevel     string
	flagVerbose      bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ocd-events",
		Short: "Emit upcoming public meetings from the Open Civic Data API",
		Long: `A CLI tool that pages through the Open Civic Data event API for one
jurisdiction, enriches every event with its location and sources, and
streams normalized OCD event records to stdout.`,
		RunE:          runFetch,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	d := config.Default()

	// Define flags
	cmd.Flags().StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&flagBaseURL, "base-url", d.BaseURL, "OCD API root")
	cmd.Flags().StringVar(&flagJurisdiction, "jurisdiction", d.Jurisdiction, "OCD jurisdiction id")
	cmd.Flags().StringVar(&flagFormat, "format", string(FormatJSON), "Output format: json, ndjson, text or ics")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write records to this file instead of stdout")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", d.Timeout, "Per-request timeout")
	cmd.Flags().StringVar(&flagMetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	cmd.Flags().BoolVar(&flagSwapSources, "swap-sources", d.Compat.SwapSources, "Swap the first and third source (compatibility)")
	cmd.Flags().BoolVar(&flagDoubleFetch, "double-fetch", d.Compat.DoubleFetch, "Fetch the detail resource separately for location and sources (compatibility)")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", d.Log.Level, "Log level: debug, info, warn or error")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging (same as --log-level debug)")

	return cmd
}

// buildConfig layers defaults, the optional config file and explicitly set flags
func buildConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = flagBaseURL
		if !strings.HasSuffix(cfg.BaseURL, "/") {
			cfg.BaseURL += "/"
		}
	}
	if flags.Changed("jurisdiction") {
		cfg.Jurisdiction = flagJurisdiction
	}
	if flags.Changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile = flagMetricsFile
	}
	if flags.Changed("swap-sources") {
		cfg.Compat.SwapSources = flagSwapSources
	}
	if flags.Changed("double-fetch") {
		cfg.Compat.DoubleFetch = flagDoubleFetch
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}
	if flagVerbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runFetch is the main command logic
func runFetch(cmd *cobra.Command, args []string) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if !format.Valid() {
		return fmt.Errorf("invalid format: %s (must be json, ndjson, text or ics)", flagFormat)
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log := logger.New(level, cmd.ErrOrStderr())
	logger.SetDefault(log)

	var out io.Writer = cmd.OutOrStdout()
	var file *outputFile
	if flagOutput != "" {
		file, err = createOutputFile(flagOutput)
		if err != nil {
			return err
		}
		defer file.discard()
		out = file
	}

	m := metrics.New()
	sc := scraper.New(cfg, scraper.WithLogger(log), scraper.WithMetrics(m))

	log.Debug("Starting walk", logger.Fields{
		"base_url":     cfg.BaseURL,
		"jurisdiction": cfg.Jurisdiction,
		"format":       string(format),
		"swap_sources": cfg.Compat.SwapSources,
		"double_fetch": cfg.Compat.DoubleFetch,
	})

	walkErr := writeEvents(cmd.Context(), sc, out, format)

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Error("Failed to write metrics", logger.Fields{"path": cfg.Metrics.Textfile}, err)
		}
	}

	if walkErr != nil {
		return walkErr
	}
	if file != nil {
		return file.commit()
	}
	return nil
}

// outputFile is written under a temporary name and renamed into place only
// after a complete walk, so a failed run leaves any previous file untouched.
type outputFile struct {
	*os.File
	path string
	done bool
}

func createOutputFile(path string) (*outputFile, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	return &outputFile{File: f, path: path}, nil
}

func (o *outputFile) commit() error {
	o.done = true
	if err := o.Chmod(0644); err != nil {
		o.Close()
		os.Remove(o.Name())
		return fmt.Errorf("writing output file: %w", err)
	}
	if err := o.Close(); err != nil {
		os.Remove(o.Name())
		return fmt.Errorf("writing output file: %w", err)
	}
	if err := os.Rename(o.Name(), o.path); err != nil {
		os.Remove(o.Name())
		return fmt.Errorf("writing output file: %w", err)
	}
	return nil
}

// discard removes the temporary file unless commit ran
func (o *outputFile) discard() {
	if o.done {
		return
	}
	o.Close()
	os.Remove(o.Name())
}

// writeEvents streams every event from sc to out
func writeEvents(ctx context.Context, sc *scraper.Scraper, out io.Writer, format OutputFormat) error {
	rw, err := NewRecordWriter(out, format, time.Now())
	if err != nil {
		return err
	}

	for evt, err := range sc.Events(ctx) {
		if err != nil {
			return fmt.Errorf("fetching events: %w", err)
		}
		if err := rw.WriteEvent(evt); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	if err := rw.Close(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(ExitError)
	}
}
