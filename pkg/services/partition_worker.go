package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-profiler/pkg/embeddings"
	"github.com/ekaya-inc/ekaya-profiler/pkg/logging"
	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
	"github.com/ekaya-inc/ekaya-profiler/pkg/repositories"
	"github.com/ekaya-inc/ekaya-profiler/pkg/tabular"
)

// ModelLoader loads a fresh model set for one partition.
type ModelLoader interface {
	Load(ctx context.Context) (*embeddings.Models, error)
}

// PartitionProcessor profiles every column of a partition.
type PartitionProcessor interface {
	ProcessPartition(ctx context.Context, partition models.Partition) error
}

// PartitionWorker loads models once per partition and then profiles the
// partition's columns one after another. A failing column is logged and
// skipped; only model loading and cancellation fail the partition.
type PartitionWorker struct {
	loader     ModelLoader
	repo       repositories.ProfileRepository
	detector   *TypeDetector
	readColumn func(models.Table, string) (*models.Column, error)
	create     ProfileCreateFunc
	logger     *zap.Logger
}

// NewPartitionWorker creates a partition worker.
func NewPartitionWorker(loader ModelLoader, repo repositories.ProfileRepository, detector *TypeDetector, logger *zap.Logger) *PartitionWorker {
	return &PartitionWorker{
		loader:     loader,
		repo:       repo,
		detector:   detector,
		readColumn: tabular.ReadColumn,
		create:     CreateProfile,
		logger:     logger.Named("partition-worker"),
	}
}

var _ PartitionProcessor = (*PartitionWorker)(nil)

// ProcessPartition profiles the partition's columns. Profiles go to the
// repository; nothing is returned but the partition-level error.
func (w *PartitionWorker) ProcessPartition(ctx context.Context, partition models.Partition) error {
	start := time.Now()
	logger := w.logger.With(
		zap.String("run_id", partition.RunID),
		zap.Int("partition", partition.Index))

	m, err := w.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("partition %d: %w", partition.Index, err)
	}

	profiled, failed := 0, 0
	for _, item := range partition.Items {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("partition %d canceled after %d of %d columns: %w",
				partition.Index, profiled+failed, len(partition.Items), err)
		}

		dataType, err := w.profileColumn(ctx, m, item)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("partition %d: %w", partition.Index, err)
			}
			failed++
			logger.Warn("Failed to profile column",
				zap.String("column", logging.Truncate(item.ColumnName)),
				zap.String("table", item.Table.Path),
				zap.String("key", item.Identity().Key()),
				zap.Error(err))
			continue
		}
		profiled++
		logger.Debug("Profiled column",
			zap.String("column", logging.Truncate(item.ColumnName)),
			zap.String("table", item.Table.Path),
			zap.String("data_type", string(dataType)))
	}

	logger.Info("Partition complete",
		zap.Int("columns", len(partition.Items)),
		zap.Int("profiled", profiled),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}

// profileColumn reads, detects, creates and stores one column. A panic
// anywhere in those steps is returned as an error.
func (w *PartitionWorker) profileColumn(ctx context.Context, m *embeddings.Models, item models.WorkItem) (dataType models.ColumnDataType, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while profiling column: %v", r)
			w.logger.Debug("Recovered panic", zap.ByteString("stack", debug.Stack()))
		}
	}()

	col, err := w.readColumn(item.Table, item.ColumnName)
	if err != nil {
		return "", err
	}

	dataType = w.detector.Detect(col, m)
	profile, err := w.create(ProfileInput{
		Item:       item,
		Column:     col,
		DataType:   dataType,
		Models:     m,
		SampleSize: w.detector.SampleSize(),
	})
	if err != nil {
		return dataType, fmt.Errorf("create %s profile: %w", dataType, err)
	}

	if err := w.repo.Save(ctx, profile); err != nil {
		return dataType, fmt.Errorf("save profile: %w", err)
	}
	return dataType, nil
}
