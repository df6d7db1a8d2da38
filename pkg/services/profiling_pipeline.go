package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
)

// PipelineConfig holds the per-run inputs of the profiling pipeline.
type PipelineConfig struct {
	DataSource          string
	DataSourcePath      string
	ColumnsPerPartition int
}

// ProfilingPipeline runs catalog → resume filter → partitioner → executor.
type ProfilingPipeline struct {
	cfg      PipelineConfig
	catalog  CatalogService
	filter   *ResumeFilter
	executor Executor
	logger   *zap.Logger
}

// NewProfilingPipeline creates a profiling pipeline.
func NewProfilingPipeline(
	cfg PipelineConfig,
	catalog CatalogService,
	filter *ResumeFilter,
	executor Executor,
	logger *zap.Logger,
) *ProfilingPipeline {
	return &ProfilingPipeline{
		cfg:      cfg,
		catalog:  catalog,
		filter:   filter,
		executor: executor,
		logger:   logger.Named("profiling-pipeline"),
	}
}

// Run profiles every column under the dataset root that still needs it.
// Failed partitions are counted in the summary and do not fail the run;
// catalog and resume errors, and cancellation, do.
func (p *ProfilingPipeline) Run(ctx context.Context) (*models.RunSummary, error) {
	start := time.Now()
	summary := &models.RunSummary{RunID: uuid.New().String()}
	logger := p.logger.With(zap.String("run_id", summary.RunID))

	items, err := p.catalog.Discover(ctx, p.cfg.DataSourcePath, p.cfg.DataSource)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	summary.Discovered = len(items)

	kept, skipped, err := p.filter.Apply(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("resume filter: %w", err)
	}
	summary.Skipped = skipped
	summary.Scheduled = len(kept)

	partitions := PartitionWorkItems(summary.RunID, kept, p.cfg.ColumnsPerPartition)
	summary.Partitions = len(partitions)

	if len(partitions) == 0 {
		logger.Info("Nothing to profile",
			zap.Int("discovered", summary.Discovered),
			zap.Int("skipped", summary.Skipped))
		return summary, nil
	}

	logger.Info("Starting profiling run",
		zap.Int("discovered", summary.Discovered),
		zap.Int("skipped", summary.Skipped),
		zap.Int("scheduled", summary.Scheduled),
		zap.Int("partitions", summary.Partitions))

	result, err := p.executor.Execute(ctx, partitions)
	summary.FailedPartitions = result.FailedPartitions
	if err != nil {
		return summary, fmt.Errorf("execute partitions: %w", err)
	}

	logger.Info("Profiling run complete",
		zap.Int("partitions", summary.Partitions),
		zap.Int("failed_partitions", summary.FailedPartitions),
		zap.Duration("elapsed", time.Since(start)))

	return summary, nil
}
