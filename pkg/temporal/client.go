package temporal

import (
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-profiler/pkg/config"
)

// Dial connects to the Temporal frontend.
func Dial(cfg config.TemporalConfig, logger *zap.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHostPort(),
		Namespace: cfg.Namespace,
		Logger:    NewLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal at %s: %w", cfg.HostPort, err)
	}
	return c, nil
}

// NewWorker creates a worker on the profiling task queue with the workflow and
// the partition activity registered. maxPartitions bounds how many partitions
// this process profiles at once.
func NewWorker(c client.Client, cfg config.TemporalConfig, maxPartitions int, activities *Activities) worker.Worker {
	w := worker.New(c, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: maxPartitions,
	})
	w.RegisterWorkflowWithOptions(ProfileColumnsWorkflow, workflow.RegisterOptions{Name: ProfileColumnsWorkflowName})
	w.RegisterWorkflowWithOptions(ProfilePartitionBatchWorkflow, workflow.RegisterOptions{Name: ProfilePartitionBatchWorkflowName})
	w.RegisterActivityWithOptions(activities.ProfilePartition, activity.RegisterOptions{Name: ProfilePartitionActivityName})
	return w
}
