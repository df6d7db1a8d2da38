package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
	"github.com/ekaya-inc/ekaya-profiler/pkg/workerpool"
)

// Executor runs the partitions of one run and reports how they completed.
// Partitions are independent and may finish in any order.
type Executor interface {
	Execute(ctx context.Context, partitions []models.Partition) (models.ExecutionResult, error)
}

// LocalExecutor runs partitions in this process on a bounded worker pool.
type LocalExecutor struct {
	pool      *workerpool.Pool
	processor PartitionProcessor
	logger    *zap.Logger
}

// NewLocalExecutor creates an in-process executor.
func NewLocalExecutor(pool *workerpool.Pool, processor PartitionProcessor, logger *zap.Logger) *LocalExecutor {
	return &LocalExecutor{
		pool:      pool,
		processor: processor,
		logger:    logger.Named("local-executor"),
	}
}

var _ Executor = (*LocalExecutor)(nil)

func (e *LocalExecutor) Execute(ctx context.Context, partitions []models.Partition) (models.ExecutionResult, error) {
	tasks := make([]workerpool.Task, len(partitions))
	for i, p := range partitions {
		tasks[i] = workerpool.Task{
			ID:      fmt.Sprintf("partition-%d", p.Index),
			Execute: func(ctx context.Context) error { return e.processor.ProcessPartition(ctx, p) },
		}
	}

	results := e.pool.Run(ctx, tasks, func(completed, total int) {
		e.logger.Debug("Partition finished", zap.Int("completed", completed), zap.Int("total", total))
	})

	res := models.ExecutionResult{Partitions: len(partitions)}
	for _, r := range results {
		if r.Err != nil {
			res.FailedPartitions++
			e.logger.Error("Partition failed", zap.String("partition", r.ID), zap.Error(r.Err))
		}
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}
