package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-profiler/pkg/services"
)

// Activities hosts the partition activity on a worker process.
type Activities struct {
	processor services.PartitionProcessor
	logger    *zap.Logger
}

// NewActivities creates the activity host.
func NewActivities(processor services.PartitionProcessor, logger *zap.Logger) *Activities {
	return &Activities{
		processor: processor,
		logger:    logger.Named("temporal-activities"),
	}
}

// ProfilePartition loads one partition from the run manifest and profiles it
// on this worker.
func (a *Activities) ProfilePartition(ctx context.Context, ref PartitionRef) error {
	start := time.Now()
	info := activity.GetInfo(ctx)

	partition, err := ReadPartition(ref.ManifestDir, ref.Index)
	if err != nil {
		a.logger.Error("Failed to load partition",
			zap.String("run_id", ref.RunID),
			zap.Int("partition", ref.Index),
			zap.String("manifest", ref.ManifestDir),
			zap.Error(err))
		return err
	}
	if partition.RunID != ref.RunID {
		return fmt.Errorf("manifest %s belongs to run %s, not %s", ref.ManifestDir, partition.RunID, ref.RunID)
	}

	a.logger.Info("Starting partition activity",
		zap.String("run_id", partition.RunID),
		zap.Int("partition", partition.Index),
		zap.Int("columns", len(partition.Items)),
		zap.String("workflow_id", info.WorkflowExecution.ID),
		zap.Int32("attempt", info.Attempt))

	if err := a.processor.ProcessPartition(ctx, partition); err != nil {
		a.logger.Error("Partition activity failed",
			zap.String("run_id", partition.RunID),
			zap.Int("partition", partition.Index),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return err
	}
	return nil
}
