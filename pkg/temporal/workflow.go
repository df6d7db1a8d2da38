// Package temporal runs profiling partitions as Temporal activities so that
// any number of worker processes can share one run.
//
// Partitions live in a manifest on shared storage. Workflow inputs and
// activity arguments carry manifest references only, and the partitions of a
// run are spread over child workflows of bounded size so no single history
// grows with the size of the run.
package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
)

// =============================================================================
// WORKFLOW AND ACTIVITY NAMES
// =============================================================================

const (
	ProfileColumnsWorkflowName        = "profileColumnsWorkflow"
	ProfilePartitionBatchWorkflowName = "profilePartitionBatchWorkflow"
	ProfilePartitionActivityName      = "profilePartition"
)

// DefaultPartitionTimeout bounds one partition activity when the input does
// not set a timeout.
const DefaultPartitionTimeout = 2 * time.Hour

// DefaultPartitionsPerBatch is the number of partitions one batch workflow
// schedules. Each activity adds three events to the batch history, which
// keeps a full batch far below Temporal's history limits.
const DefaultPartitionsPerBatch = 500

// ProfileColumnsInput is the input for ProfileColumnsWorkflow.
type ProfileColumnsInput struct {
	RunID              string        `json:"runId"`
	ManifestDir        string        `json:"manifestDir"`
	PartitionCount     int           `json:"partitionCount"`
	PartitionsPerBatch int           `json:"partitionsPerBatch"`
	PartitionTimeout   time.Duration `json:"partitionTimeout"`
}

// PartitionBatchInput is the input for ProfilePartitionBatchWorkflow. It
// covers partitions [First, First+Count).
type PartitionBatchInput struct {
	RunID            string        `json:"runId"`
	ManifestDir      string        `json:"manifestDir"`
	First            int           `json:"first"`
	Count            int           `json:"count"`
	PartitionTimeout time.Duration `json:"partitionTimeout"`
}

// PartitionRef points the partition activity at one manifest entry.
type PartitionRef struct {
	RunID       string `json:"runId"`
	ManifestDir string `json:"manifestDir"`
	Index       int    `json:"index"`
}

// partitionActivityOptions never retries: a failed partition is reported and
// picked up by the next incremental run instead.
func partitionActivityOptions(timeout time.Duration) workflow.ActivityOptions {
	if timeout <= 0 {
		timeout = DefaultPartitionTimeout
	}
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
}

// batchBounds splits count partitions into batches of at most size.
func batchBounds(count, size int) [][2]int {
	if size < 1 {
		size = DefaultPartitionsPerBatch
	}
	var out [][2]int
	for first := 0; first < count; first += size {
		out = append(out, [2]int{first, min(size, count-first)})
	}
	return out
}

// ProfileColumnsWorkflow starts one batch workflow per slice of the manifest
// and sums their results. A failed batch counts all of its partitions as
// failed; nothing is retried.
func ProfileColumnsWorkflow(ctx workflow.Context, input ProfileColumnsInput) (models.ExecutionResult, error) {
	logger := workflow.GetLogger(ctx)
	parentID := workflow.GetInfo(ctx).WorkflowExecution.ID

	batches := batchBounds(input.PartitionCount, input.PartitionsPerBatch)
	futures := make([]workflow.ChildWorkflowFuture, len(batches))
	for i, b := range batches {
		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: fmt.Sprintf("%s-batch-%d", parentID, i),
		})
		futures[i] = workflow.ExecuteChildWorkflow(childCtx, ProfilePartitionBatchWorkflowName, PartitionBatchInput{
			RunID:            input.RunID,
			ManifestDir:      input.ManifestDir,
			First:            b[0],
			Count:            b[1],
			PartitionTimeout: input.PartitionTimeout,
		})
	}

	result := models.ExecutionResult{Partitions: input.PartitionCount}
	for i, future := range futures {
		var batch models.ExecutionResult
		if err := future.Get(ctx, &batch); err != nil {
			result.FailedPartitions += batches[i][1]
			logger.Error("Partition batch failed",
				"run_id", input.RunID,
				"first_partition", batches[i][0],
				"partitions", batches[i][1],
				"error", err)
			continue
		}
		result.FailedPartitions += batch.FailedPartitions
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	logger.Info("Profiling workflow complete",
		"run_id", input.RunID,
		"batches", len(batches),
		"partitions", result.Partitions,
		"failed_partitions", result.FailedPartitions)

	return result, nil
}

// ProfilePartitionBatchWorkflow schedules one activity per partition of its
// slice, all at once, and waits for every one of them. A failed partition is
// counted, not propagated.
func ProfilePartitionBatchWorkflow(ctx workflow.Context, input PartitionBatchInput) (models.ExecutionResult, error) {
	logger := workflow.GetLogger(ctx)
	actCtx := workflow.WithActivityOptions(ctx, partitionActivityOptions(input.PartitionTimeout))

	futures := make([]workflow.Future, input.Count)
	for i := range futures {
		futures[i] = workflow.ExecuteActivity(actCtx, ProfilePartitionActivityName, PartitionRef{
			RunID:       input.RunID,
			ManifestDir: input.ManifestDir,
			Index:       input.First + i,
		})
	}

	result := models.ExecutionResult{Partitions: input.Count}
	for i, future := range futures {
		if err := future.Get(ctx, nil); err != nil {
			result.FailedPartitions++
			logger.Error("Partition failed",
				"run_id", input.RunID,
				"partition", input.First+i,
				"error", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}
