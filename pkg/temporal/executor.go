package temporal

import (
	"context"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-profiler/pkg/config"
	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
	"github.com/ekaya-inc/ekaya-profiler/pkg/services"
)

const cancelTimeout = 10 * time.Second

// Executor runs partitions through ProfileColumnsWorkflow on remote workers.
type Executor struct {
	client   client.Client
	manifest *Manifest
	cfg      config.TemporalConfig
	logger   *zap.Logger
}

// NewExecutor creates a Temporal-backed executor. Partitions are written to
// the manifest before the workflow starts.
func NewExecutor(c client.Client, manifest *Manifest, cfg config.TemporalConfig, logger *zap.Logger) *Executor {
	return &Executor{
		client:   c,
		manifest: manifest,
		cfg:      cfg,
		logger:   logger.Named("temporal-executor"),
	}
}

var _ services.Executor = (*Executor)(nil)

// WorkflowID returns the workflow ID used for a run.
func WorkflowID(runID string) string {
	return "profile-columns-" + runID
}

// Execute writes the manifest, starts the workflow and blocks until it
// completes. When ctx is canceled the workflow is canceled too. The manifest
// is removed once the workflow can no longer read it.
func (e *Executor) Execute(ctx context.Context, partitions []models.Partition) (models.ExecutionResult, error) {
	if len(partitions) == 0 {
		return models.ExecutionResult{}, nil
	}
	runID := partitions[0].RunID

	dir, err := e.manifest.Write(ctx, runID, partitions)
	if err != nil {
		e.removeManifest(runID)
		return models.ExecutionResult{}, fmt.Errorf("failed to write partition manifest: %w", err)
	}

	opts := client.StartWorkflowOptions{
		ID:                    WorkflowID(runID),
		TaskQueue:             e.cfg.TaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	input := ProfileColumnsInput{
		RunID:              runID,
		ManifestDir:        dir,
		PartitionCount:     len(partitions),
		PartitionsPerBatch: e.cfg.PartitionsPerBatch,
		PartitionTimeout:   e.cfg.PartitionTimeout,
	}

	run, err := e.client.ExecuteWorkflow(ctx, opts, ProfileColumnsWorkflowName, input)
	if err != nil {
		e.removeManifest(runID)
		return models.ExecutionResult{}, fmt.Errorf("failed to start profiling workflow: %w", err)
	}

	e.logger.Info("Started profiling workflow",
		zap.String("workflow_id", run.GetID()),
		zap.String("workflow_run_id", run.GetRunID()),
		zap.String("task_queue", e.cfg.TaskQueue),
		zap.String("manifest", dir),
		zap.Int("partitions", len(partitions)))

	var result models.ExecutionResult
	if err := run.Get(ctx, &result); err != nil {
		if ctx.Err() != nil {
			e.cancel(run)
		}
		e.logger.Warn("Keeping partition manifest of unfinished workflow",
			zap.String("workflow_id", run.GetID()),
			zap.String("manifest", dir))
		return result, fmt.Errorf("profiling workflow %s: %w", run.GetID(), err)
	}

	e.removeManifest(runID)
	return result, nil
}

func (e *Executor) removeManifest(runID string) {
	if err := e.manifest.Remove(runID); err != nil {
		e.logger.Warn("Failed to remove partition manifest", zap.String("run_id", runID), zap.Error(err))
	}
}

// cancel requests workflow cancellation after the caller's context is gone.
func (e *Executor) cancel(run client.WorkflowRun) {
	ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
	defer cancel()

	if err := e.client.CancelWorkflow(ctx, run.GetID(), run.GetRunID()); err != nil {
		e.logger.Warn("Failed to cancel profiling workflow",
			zap.String("workflow_id", run.GetID()),
			zap.Error(err))
		return
	}
	e.logger.Info("Canceled profiling workflow", zap.String("workflow_id", run.GetID()))
}
