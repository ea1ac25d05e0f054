package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/emissions-impact-etl/internal/adapter/charts"
	"github.com/couchcryptid/emissions-impact-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/emissions-impact-etl/internal/adapter/export"
	httpadapter "github.com/couchcryptid/emissions-impact-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/emissions-impact-etl/internal/adapter/kafka"
	"github.com/couchcryptid/emissions-impact-etl/internal/adapter/tui"
	"github.com/couchcryptid/emissions-impact-etl/internal/config"
	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
	"github.com/couchcryptid/emissions-impact-etl/internal/observability"
	"github.com/couchcryptid/emissions-impact-etl/internal/pipeline"
	"github.com/couchcryptid/emissions-impact-etl/internal/report"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// flags holds command-line overrides. Flags win over the environment.
type flags struct {
	envFile    string
	years      string
	view       string
	top        int
	industrial bool
	strict     bool
	out        string
	format     string
}

// app is the state shared by every subcommand once configuration is loaded.
type app struct {
	flags flags
	cfg   *config.Config

	view      domain.View
	selection domain.Selection
	logger    *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "emissions-etl [file]",
		Short:         "Weight greenhouse-gas emissions by GWP and environmental damage",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: a.runReport,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.envFile, "env-file", ".env", "optional KEY=value file loaded before the environment is read")
	pf.StringVar(&a.flags.years, "years", "", "comma-separated years to include (default all)")
	pf.StringVar(&a.flags.view, "view", "original", "quantity to chart: original, gwp or combined")
	pf.IntVar(&a.flags.top, "top", domain.DefaultTopN, "number of top classifications (overrides TOP_N)")
	pf.BoolVar(&a.flags.industrial, "industrial", false, "only industrial classifications")
	pf.BoolVar(&a.flags.strict, "strict", false, "fail on unparsable numbers (overrides STRICT_PARSE)")

	root.AddCommand(
		&cobra.Command{
			Use:   "report [file]",
			Short: "Print key metrics, the per-year table and the top classifications",
			Args:  cobra.MaximumNArgs(1),
			RunE:  a.runReport,
		},
		a.exportCmd(),
		&cobra.Command{
			Use:   "dashboard [file]",
			Short: "Open the interactive terminal dashboard",
			Args:  cobra.MaximumNArgs(1),
			RunE:  a.runDashboard,
		},
		&cobra.Command{
			Use:   "serve [file]",
			Short: "Serve the dashboard API with health, readiness and metrics endpoints",
			Args:  cobra.MaximumNArgs(1),
			RunE:  a.runServe,
		},
		&cobra.Command{
			Use:   "publish [file]",
			Short: "Publish every derived record to the Kafka sink topic",
			Args:  cobra.MaximumNArgs(1),
			RunE:  a.runPublish,
		},
		&cobra.Command{
			Use:   "gases",
			Short: "Describe the weighted gases and the constants in use",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return report.RenderGases(cmd.OutOrStdout(), a.cfg.GasConstants)
			},
		},
	)

	return root
}

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the charts, derived.csv and emissions.xlsx to the output directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runExport,
	}
	cmd.Flags().StringVar(&a.flags.out, "out", "", "output directory (overrides OUTPUT_DIR)")
	cmd.Flags().StringVar(&a.flags.format, "format", "", "chart format: png or svg (overrides CHART_FORMAT)")
	return cmd
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.flags.envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fs := cmd.Flags()
	if fs.Changed("top") {
		if a.flags.top < 1 || a.flags.top > domain.MaxTopN {
			return fmt.Errorf("invalid --top: must be 1-%d", domain.MaxTopN)
		}
		cfg.TopN = a.flags.top
	}
	if fs.Changed("strict") {
		cfg.StrictParse = a.flags.strict
	}
	if a.flags.out != "" {
		cfg.OutputDir = a.flags.out
	}
	if a.flags.format != "" {
		cfg.ChartFormat = strings.ToLower(a.flags.format)
	}

	a.view, err = domain.ParseView(a.flags.view)
	if err != nil {
		return fmt.Errorf("invalid --view: %w", err)
	}
	years, err := domain.ParseYears(a.flags.years)
	if err != nil {
		return fmt.Errorf("invalid --years: %w", err)
	}
	a.selection = domain.Selection{Years: years, Industrial: a.flags.industrial}

	a.cfg = cfg
	a.logger = observability.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	return nil
}

func (a *app) inputPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if a.cfg.InputPath != "" {
		return a.cfg.InputPath, nil
	}
	return "", errors.New("no input file: pass a path or set INPUT_PATH")
}

// newPipeline builds a one-shot pipeline whose metrics go to a private
// registry.
func (a *app) newPipeline(loaders ...pipeline.Loader) *pipeline.Pipeline {
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	transformer := pipeline.NewTransformer(a.cfg.GasConstants, a.cfg.TopN, a.cfg.StrictParse, a.logger)
	return pipeline.New(csvfile.NewReader(), transformer, a.logger, metrics, loaders...)
}

// load runs a one-shot pipeline over the input file.
func (a *app) load(cmd *cobra.Command, args []string, loaders ...pipeline.Loader) (domain.Dataset, error) {
	path, err := a.inputPath(args)
	if err != nil {
		return domain.Dataset{}, err
	}
	ds, err := a.newPipeline(loaders...).Run(cmd.Context(), path)
	if err != nil {
		return domain.Dataset{}, err
	}
	if ds.Empty {
		a.logger.Info("no records with a year", "path", path)
	}
	return ds, nil
}

func (a *app) runReport(cmd *cobra.Command, args []string) error {
	ds, err := a.load(cmd, args)
	if err != nil {
		return err
	}
	return report.Render(cmd.OutOrStdout(), ds, report.Options{
		View:      a.view,
		Selection: a.selection,
		TopN:      a.cfg.TopN,
	})
}

func (a *app) runExport(cmd *cobra.Command, args []string) error {
	chartExporter, err := charts.NewExporter(a.cfg.OutputDir, a.cfg.ChartFormat, a.view, a.cfg.TopN, a.logger)
	if err != nil {
		return err
	}
	tables := export.NewWriter(a.cfg.OutputDir, a.cfg.GasConstants, a.logger)

	ds, err := a.load(cmd, args, a.narrow(tables), a.narrow(chartExporter))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if ds.Empty {
		fmt.Fprintln(out, report.EmptyMessage)
	}
	fmt.Fprintf(out, "exported %d records to %s\n", len(a.selection.Apply(ds.Records)), a.cfg.OutputDir)
	return nil
}

func (a *app) narrow(next pipeline.Loader) selected {
	return selected{selection: a.selection, topN: a.cfg.TopN, next: next}
}

func (a *app) runDashboard(cmd *cobra.Command, args []string) error {
	ds, err := a.load(cmd, args)
	if err != nil {
		return err
	}
	return tui.Run(ds, tui.Options{
		View:       a.view,
		Industrial: a.selection.Industrial,
		Years:      a.selection.Years,
		TopN:       a.cfg.TopN,
	})
}

func (a *app) runPublish(cmd *cobra.Command, args []string) error {
	if !a.cfg.KafkaEnabled {
		return errors.New("publish requires KAFKA_BROKERS (and KAFKA_ENABLED not false)")
	}

	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	writer := kafkaadapter.NewWriter(a.cfg, a.logger, metrics)
	defer func() {
		if err := writer.Close(); err != nil {
			a.logger.Error("kafka writer close error", "error", err)
		}
	}()

	ds, err := a.load(cmd, args, a.narrow(writer))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published %d records to %s\n",
		len(a.selection.Apply(ds.Records)), a.cfg.KafkaSinkTopic)
	return nil
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	path, err := a.inputPath(args)
	if err != nil {
		return err
	}

	// The server logs to stdout like the other long-running services.
	logger := sharedobs.NewLogger(a.cfg.LogLevel, a.cfg.LogFormat)
	metrics := observability.NewMetrics()

	extractor := pipeline.NewCachedExtractor(csvfile.NewReader(), a.cfg.LoadCacheSize, metrics)
	transformer := pipeline.NewTransformer(a.cfg.GasConstants, a.cfg.TopN, a.cfg.StrictParse, logger)
	p := pipeline.New(extractor, transformer, logger, metrics)

	srv := httpadapter.NewServer(a.cfg.HTTPAddr, p, httpadapter.API{
		Runner:       p,
		InputPath:    path,
		GasConstants: a.cfg.GasConstants,
		TopN:         a.cfg.TopN,
	}, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Warm the cache and flip readiness.
	go func() {
		if _, err := p.Run(ctx, path); err != nil {
			logger.Error("initial pipeline run failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

// selected narrows a dataset to the command-line selection and recomputes its
// statistics before handing it to the wrapped loader.
type selected struct {
	selection domain.Selection
	topN      int
	next      pipeline.Loader
}

func (s selected) Load(ctx context.Context, ds domain.Dataset) error {
	ds.Records = s.selection.Apply(ds.Records)
	stats, err := domain.SummarizeTop(ds.Records, s.topN)
	if err != nil && !errors.Is(err, domain.ErrEmptyDataset) {
		return err
	}
	ds.Stats = stats
	ds.Empty = len(ds.Records) == 0
	return s.next.Load(ctx, ds)
}
