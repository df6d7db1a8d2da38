package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-profiler/pkg/config"
	"github.com/ekaya-inc/ekaya-profiler/pkg/embeddings"
	"github.com/ekaya-inc/ekaya-profiler/pkg/logging"
	"github.com/ekaya-inc/ekaya-profiler/pkg/repositories"
	"github.com/ekaya-inc/ekaya-profiler/pkg/services"
	"github.com/ekaya-inc/ekaya-profiler/pkg/temporal"
	"github.com/ekaya-inc/ekaya-profiler/pkg/workerpool"
)

// Version is set at build time via ldflags
var Version = "dev"

const usage = `Usage: ekaya-profiler [-config path] [command]

Commands:
  run     Profile every column that still needs a profile (default)
  worker  Host partition activities for temporal execution mode
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file (empty reads the environment only)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	command := "run"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.Load(Version, *configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("command", command),
		zap.String("data_source", cfg.DataSource),
		zap.String("data_source_path", cfg.DataSourcePath),
		zap.String("profiles_out_path", cfg.ProfilesOutPath),
		zap.Bool("replace_existing_profiles", cfg.ReplaceExistingProfiles),
		zap.String("execution_mode", cfg.Execution.Mode),
		zap.Int("workers", cfg.Execution.Workers),
		zap.Int("columns_per_partition", cfg.Execution.ColumnsPerPartition))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "run":
		err = runProfiling(ctx, cfg, logger)
	case "worker":
		err = runWorker(cfg, logger)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", zap.String("command", command), zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// newPartitionWorker wires the per-partition processing shared by both
// execution modes.
func newPartitionWorker(cfg *config.Config, logger *zap.Logger) (*services.PartitionWorker, repositories.ProfileRepository) {
	repo := repositories.NewFileProfileRepository(cfg.ProfilesOutPath)
	loader := embeddings.NewLoader(cfg.Models, nil, logger)
	detector := services.NewTypeDetector(services.DefaultTypeDetectorConfig())
	return services.NewPartitionWorker(loader, repo, detector, logger), repo
}

func runProfiling(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	start := time.Now()
	partitionWorker, repo := newPartitionWorker(cfg, logger)

	var executor services.Executor
	switch cfg.Execution.Mode {
	case config.ExecutionModeTemporal:
		c, err := temporal.Dial(cfg.Temporal, logger)
		if err != nil {
			return err
		}
		defer c.Close()
		executor = temporal.NewExecutor(c, temporal.NewManifest(cfg.Temporal.ManifestPath), cfg.Temporal, logger)
	default:
		pool := workerpool.New(workerpool.Config{MaxConcurrent: cfg.Execution.Workers}, logger)
		executor = services.NewLocalExecutor(pool, partitionWorker, logger)
	}

	pipeline := services.NewProfilingPipeline(
		services.PipelineConfig{
			DataSource:          cfg.DataSource,
			DataSourcePath:      cfg.DataSourcePath,
			ColumnsPerPartition: cfg.Execution.ColumnsPerPartition,
		},
		services.NewCatalogService(logger),
		services.NewResumeFilter(repo, cfg.ReplaceExistingProfiles, logger),
		executor,
		logger,
	)

	summary, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("Profiling finished",
		zap.String("run_id", summary.RunID),
		zap.Int("discovered", summary.Discovered),
		zap.Int("skipped", summary.Skipped),
		zap.Int("scheduled", summary.Scheduled),
		zap.Int("partitions", summary.Partitions),
		zap.Int("failed_partitions", summary.FailedPartitions),
		zap.Duration("elapsed", time.Since(start)))

	if summary.FailedPartitions > 0 {
		return fmt.Errorf("%d of %d partitions failed; rerun to retry their columns",
			summary.FailedPartitions, summary.Partitions)
	}
	return nil
}

func runWorker(cfg *config.Config, logger *zap.Logger) error {
	if cfg.Execution.Mode != config.ExecutionModeTemporal {
		return errors.New("the worker command requires execution.mode: temporal")
	}

	c, err := temporal.Dial(cfg.Temporal, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	partitionWorker, _ := newPartitionWorker(cfg, logger)
	w := temporal.NewWorker(c, cfg.Temporal, cfg.Execution.Workers, temporal.NewActivities(partitionWorker, logger))

	logger.Info("Temporal worker starting",
		zap.String("host_port", cfg.Temporal.TemporalHostPort()),
		zap.String("namespace", cfg.Temporal.Namespace),
		zap.String("task_queue", cfg.Temporal.TaskQueue),
		zap.String("manifest_path", cfg.Temporal.ManifestPath),
		zap.Int("max_partitions", cfg.Execution.Workers))

	return w.Run(worker.InterruptCh())
}
