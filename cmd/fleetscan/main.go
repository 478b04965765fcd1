package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"fleetscan/internal/analysis"
	"fleetscan/internal/channelmap"
	"fleetscan/internal/config"
	"fleetscan/internal/logging"
	"fleetscan/internal/report"
	"fleetscan/internal/store"
	"fleetscan/internal/timespec"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "Path to the configuration file")
	vehicleID  = flag.String("vehicle", "", "Vehicle identifier (overrides run.vehicleID)")
	startDate  = flag.String("start-date", "", "Start date YYYY-MM-DD (overrides run.startDate)")
	startTime  = flag.String("start-time", "", "Start time HH:MM:SS (overrides run.startTime)")
	endDate    = flag.String("end-date", "", "End date YYYY-MM-DD (overrides run.endDate)")
	endTime    = flag.String("end-time", "", "End time HH:MM:SS (overrides run.endTime)")
	timezone   = flag.String("timezone", "", "IANA timezone name (overrides run.timezone)")
	mapFile    = flag.String("channel-map", "", "Channel map file (overrides run.channelMapFile)")
	outputCSV  = flag.String("output", "", "Output CSV path, '-' for stdout (overrides run.outputCSV)")
	aggregate  = flag.Bool("aggregate", false, "Use server-side aggregate counts instead of windowed analysis")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration from %s: %v\n", *configFile, err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync() // Flush buffered logs on exit
	}()
	sugar := logger.Sugar()
	sugar.Infow("Configuration loaded", "path", *configFile)

	// Time-spec validation is fatal and happens before any store contact.
	instRange, err := timespec.ResolveRange(
		cfg.Run.StartDate, cfg.Run.StartTime,
		cfg.Run.EndDate, cfg.Run.EndTime,
		cfg.Run.Timezone,
	)
	if err != nil {
		sugar.Fatalw("Invalid time specification", "error", err)
	}
	sugar.Infow("Analysis range resolved",
		"start_utc", instRange.Start,
		"end_utc", instRange.End,
		"vehicle_id", cfg.Run.VehicleID,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		sugar.Infow("Received signal, cancelling run...", "signal", sig.String())
		cancel()
	}()

	client, err := store.NewElasticClient(store.Options{
		Addresses:    cfg.Store.Addresses,
		Username:     cfg.Store.Username,
		Password:     cfg.Store.Password,
		IndexPattern: cfg.Store.IndexPattern,
		TimeField:    cfg.Store.TimeField,
		VehicleField: cfg.Store.VehicleField,
	}, logger.Named("store"))
	if err != nil {
		sugar.Fatalw("Failed to connect to telemetry store", "error", err)
	}
	sugar.Info("Connected to telemetry store")

	cm, err := loadChannelMap(ctx, cfg, client, logger)
	if err != nil {
		sugar.Fatalw("Failed to build channel map", "error", err)
	}
	sugar.Infow("Channel map ready", "measurements", len(cm))

	runner := analysis.NewRunner(client, logger.Named("runner"))
	params := analysis.Params{
		VehicleID:    cfg.Run.VehicleID,
		Range:        instRange,
		WindowSize:   cfg.Analysis.WindowSize,
		RowCap:       cfg.Analysis.RowCap,
		GapThreshold: cfg.Analysis.GapThreshold,
		CarryGaps:    cfg.Analysis.CarryGapsAcrossWindows,
	}

	var results []analysis.Result
	if cfg.Run.Aggregate {
		results, err = runner.RunAggregate(ctx, cm, params)
	} else {
		results, err = runner.Run(ctx, cm, params)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		sugar.Fatalw("Analysis run failed", "error", err)
	}
	if errors.Is(err, context.Canceled) {
		sugar.Info("Run cancelled; writing partial results")
	}

	var rows []report.Row
	for _, res := range results {
		if !cfg.Run.Aggregate {
			sugar.Infow("Effective duration",
				"measurement", res.Measurement,
				"effective", res.EffectiveDuration,
				"range", instRange.Length(),
			)
		}
		rows = append(rows, report.Rows(cm, res)...)
	}

	if err := writeResults(cfg, rows); err != nil {
		sugar.Fatalw("Failed to write results", "error", err)
	}

	publishResults(ctx, cfg, rows, logger)

	sugar.Infow("Run finished", "measurements", len(results), "rows", len(rows))
}

func applyFlagOverrides(cfg *config.Config) {
	if *vehicleID != "" {
		cfg.Run.VehicleID = *vehicleID
	}
	if *startDate != "" {
		cfg.Run.StartDate = *startDate
	}
	if *startTime != "" {
		cfg.Run.StartTime = *startTime
	}
	if *endDate != "" {
		cfg.Run.EndDate = *endDate
	}
	if *endTime != "" {
		cfg.Run.EndTime = *endTime
	}
	if *timezone != "" {
		cfg.Run.Timezone = *timezone
	}
	if *mapFile != "" {
		cfg.Run.ChannelMapFile = *mapFile
	}
	if *outputCSV != "" {
		cfg.Run.OutputCSV = *outputCSV
	}
	if *aggregate {
		cfg.Run.Aggregate = true
	}
}

// loadChannelMap prefers the configured map file; without one it falls back
// to store discovery, grouping each measurement's fields under a single
// synthetic channel.
func loadChannelMap(ctx context.Context, cfg *config.Config, client store.Client, logger *zap.Logger) (channelmap.Map, error) {
	if cfg.Run.ChannelMapFile != "" {
		logger.Sugar().Infow("Loading channel map from file", "path", cfg.Run.ChannelMapFile)
		return channelmap.Load(cfg.Run.ChannelMapFile)
	}

	logger.Sugar().Info("No channel map file configured, discovering measurements from store")
	measurements, err := client.Measurements(ctx)
	if err != nil {
		return nil, err
	}

	discovered := make(map[string][]string, len(measurements))
	for _, m := range measurements {
		fields, err := client.Fields(ctx, m)
		if err != nil {
			return nil, err
		}
		discovered[m] = fields
	}
	return channelmap.FromDiscovery(discovered), nil
}

func writeResults(cfg *config.Config, rows []report.Row) error {
	path := cfg.Run.OutputCSV
	if path == "-" {
		return report.WriteCSV(os.Stdout, rows)
	}
	if path == "" {
		path = report.DefaultFilename(cfg.Run.VehicleID, cfg.Run.StartDate, cfg.Run.StartTime, cfg.Run.EndTime)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	return report.WriteCSV(f, rows)
}

// publishResults best-effort publishes to Kafka when brokers are configured;
// a publish failure is logged, not fatal, since the CSV is already written.
func publishResults(ctx context.Context, cfg *config.Config, rows []report.Row, logger *zap.Logger) {
	if len(cfg.Publisher.Brokers) == 0 {
		return
	}
	sugar := logger.Sugar()

	pub, err := report.NewPublisher(cfg.Publisher, logger.Named("publisher"))
	if err != nil {
		sugar.Errorw("Failed to create result publisher", "error", err)
		return
	}
	defer func() {
		if err := pub.Close(); err != nil {
			sugar.Warnw("Failed to close result publisher", "error", err)
		}
	}()

	if err := pub.Publish(ctx, cfg.Run.VehicleID, rows); err != nil {
		sugar.Errorw("Failed to publish result rows", "error", err)
	}
}
