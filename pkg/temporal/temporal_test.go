package temporal

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-profiler/pkg/config"
	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
)

// fakeProcessor records the partitions it profiles.
type fakeProcessor struct {
	mu   sync.Mutex
	seen []int
	fail map[int]error
}

func (p *fakeProcessor) ProcessPartition(ctx context.Context, partition models.Partition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, partition.Index)
	return p.fail[partition.Index]
}

func testPartitions(n int) []models.Partition {
	parts := make([]models.Partition, n)
	for i := range parts {
		parts[i] = models.Partition{
			RunID: "run-1",
			Index: i,
			Items: []models.WorkItem{{
				ColumnName: "id",
				Table: models.Table{
					DataSource:  "local",
					DatasetName: "reviews",
					Path:        "/data/reviews/t1.csv",
					Format:      models.TableFormatCSV,
				},
			}},
		}
	}
	return parts
}

// writeManifest stores n test partitions and returns the run directory.
func writeManifest(t *testing.T, n int) (*Manifest, string) {
	t.Helper()
	manifest := NewManifest(t.TempDir())
	dir, err := manifest.Write(context.Background(), "run-1", testPartitions(n))
	require.NoError(t, err)
	return manifest, dir
}

func newWorkflowEnv(t *testing.T, proc *fakeProcessor) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := NewActivities(proc, zap.NewNop())
	env.RegisterWorkflowWithOptions(ProfileColumnsWorkflow, workflow.RegisterOptions{Name: ProfileColumnsWorkflowName})
	env.RegisterWorkflowWithOptions(ProfilePartitionBatchWorkflow, workflow.RegisterOptions{Name: ProfilePartitionBatchWorkflowName})
	env.RegisterActivityWithOptions(acts.ProfilePartition, activity.RegisterOptions{Name: ProfilePartitionActivityName})
	return env
}

func TestProfileColumnsWorkflow_RunsEveryPartition(t *testing.T) {
	proc := &fakeProcessor{}
	env := newWorkflowEnv(t, proc)
	_, dir := writeManifest(t, 5)

	env.ExecuteWorkflow(ProfileColumnsWorkflowName, ProfileColumnsInput{
		RunID:              "run-1",
		ManifestDir:        dir,
		PartitionCount:     5,
		PartitionsPerBatch: 2,
		PartitionTimeout:   time.Hour,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result models.ExecutionResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, models.ExecutionResult{Partitions: 5, FailedPartitions: 0}, result)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, proc.seen)
}

func TestProfileColumnsWorkflow_FailedPartitionsAreCountedNotRetried(t *testing.T) {
	proc := &fakeProcessor{fail: map[int]error{
		1: errors.New("model artifact invalid"),
		2: errors.New("partition 2 canceled"),
	}}
	env := newWorkflowEnv(t, proc)
	_, dir := writeManifest(t, 3)

	env.ExecuteWorkflow(ProfileColumnsWorkflowName, ProfileColumnsInput{
		RunID:          "run-1",
		ManifestDir:    dir,
		PartitionCount: 3,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError(), "partition failures do not fail the workflow")

	var result models.ExecutionResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, 3, result.Partitions)
	assert.Equal(t, 2, result.FailedPartitions)
	assert.Len(t, proc.seen, 3, "each partition runs exactly once")
}

func TestProfileColumnsWorkflow_MissingManifestEntryFailsThatPartition(t *testing.T) {
	proc := &fakeProcessor{}
	env := newWorkflowEnv(t, proc)
	_, dir := writeManifest(t, 2)

	env.ExecuteWorkflow(ProfileColumnsWorkflowName, ProfileColumnsInput{
		RunID:              "run-1",
		ManifestDir:        dir,
		PartitionCount:     3,
		PartitionsPerBatch: 2,
	})

	require.True(t, env.IsWorkflowCompleted())
	var result models.ExecutionResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, models.ExecutionResult{Partitions: 3, FailedPartitions: 1}, result)
	assert.ElementsMatch(t, []int{0, 1}, proc.seen)
}

func TestProfileColumnsWorkflow_NoPartitions(t *testing.T) {
	env := newWorkflowEnv(t, &fakeProcessor{})
	env.ExecuteWorkflow(ProfileColumnsWorkflowName, ProfileColumnsInput{RunID: "run-1"})

	require.True(t, env.IsWorkflowCompleted())
	var result models.ExecutionResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, models.ExecutionResult{}, result)
}

func TestBatchBounds(t *testing.T) {
	tests := []struct {
		name  string
		count int
		size  int
		want  [][2]int
	}{
		{"empty", 0, 10, nil},
		{"single batch", 3, 10, [][2]int{{0, 3}}},
		{"exact multiple", 4, 2, [][2]int{{0, 2}, {2, 2}}},
		{"remainder", 5, 2, [][2]int{{0, 2}, {2, 2}, {4, 1}}},
		{"zero size uses default", 1200, 0, [][2]int{{0, 500}, {500, 500}, {1000, 200}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, batchBounds(tt.count, tt.size))
		})
	}
}

func TestBatchBounds_LargeRunStaysWithinHistoryLimits(t *testing.T) {
	// 300k columns at 10 per partition.
	batches := batchBounds(30000, DefaultPartitionsPerBatch)
	assert.Len(t, batches, 60)
	for _, b := range batches {
		assert.LessOrEqual(t, b[1]*3, 51200/10, "batch history stays well under the event limit")
	}
}

func TestPartitionActivityOptions(t *testing.T) {
	opts := partitionActivityOptions(0)
	assert.Equal(t, DefaultPartitionTimeout, opts.StartToCloseTimeout)
	require.NotNil(t, opts.RetryPolicy)
	assert.Equal(t, int32(1), opts.RetryPolicy.MaximumAttempts)

	assert.Equal(t, 30*time.Minute, partitionActivityOptions(30*time.Minute).StartToCloseTimeout)
}

func TestProfilePartitionActivity(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()

	proc := &fakeProcessor{fail: map[int]error{1: errors.New("boom")}}
	acts := NewActivities(proc, zap.NewNop())
	env.RegisterActivity(acts.ProfilePartition)
	_, dir := writeManifest(t, 2)

	_, err := env.ExecuteActivity(acts.ProfilePartition, PartitionRef{RunID: "run-1", ManifestDir: dir, Index: 0})
	require.NoError(t, err)

	_, err = env.ExecuteActivity(acts.ProfilePartition, PartitionRef{RunID: "run-1", ManifestDir: dir, Index: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = env.ExecuteActivity(acts.ProfilePartition, PartitionRef{RunID: "run-2", ManifestDir: dir, Index: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs to run run-1")

	assert.Equal(t, []int{0, 1}, proc.seen, "a foreign manifest is never profiled")
}

func TestManifest_WriteAndRead(t *testing.T) {
	manifest := NewManifest(t.TempDir())
	parts := testPartitions(3)

	dir, err := manifest.Write(context.Background(), "run-1", parts)
	require.NoError(t, err)
	assert.Equal(t, manifest.RunDir("run-1"), dir)

	got, err := ReadPartition(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, parts[2], got)

	_, err = ReadPartition(dir, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	require.NoError(t, manifest.Remove("run-1"))
	_, err = os.Stat(dir)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Error(t, manifest.Remove(""))
}

func TestManifest_WriteStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewManifest(t.TempDir()).Write(ctx, "run-1", testPartitions(2))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutor_StartsWorkflowAndWaits(t *testing.T) {
	cfg := config.TemporalConfig{TaskQueue: "column-profiling", PartitionTimeout: 45 * time.Minute, PartitionsPerBatch: 100}
	manifest := NewManifest(t.TempDir())
	parts := testPartitions(3)

	run := &mocks.WorkflowRun{}
	run.On("GetID").Return(WorkflowID("run-1"))
	run.On("GetRunID").Return("temporal-run")
	run.On("Get", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(1).(*models.ExecutionResult) = models.ExecutionResult{Partitions: 3, FailedPartitions: 1}
	}).Return(nil)

	c := &mocks.Client{}
	c.On("ExecuteWorkflow",
		mock.Anything,
		mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
			return o.ID == "profile-columns-run-1" &&
				o.TaskQueue == "column-profiling" &&
				o.WorkflowIDReusePolicy == enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE
		}),
		ProfileColumnsWorkflowName,
		mock.MatchedBy(func(in ProfileColumnsInput) bool {
			if in.RunID != "run-1" || in.PartitionCount != 3 || in.PartitionsPerBatch != 100 ||
				in.PartitionTimeout != 45*time.Minute || in.ManifestDir != manifest.RunDir("run-1") {
				return false
			}
			// The manifest is complete before the workflow starts.
			p, err := ReadPartition(in.ManifestDir, 2)
			return err == nil && p.Index == 2
		}),
	).Return(run, nil)

	executor := NewExecutor(c, manifest, cfg, zap.NewNop())
	result, err := executor.Execute(context.Background(), parts)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionResult{Partitions: 3, FailedPartitions: 1}, result)

	c.AssertExpectations(t)
	run.AssertExpectations(t)

	_, err = os.Stat(manifest.RunDir("run-1"))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "manifest is removed after the workflow completes")
}

func TestExecutor_StartFailure(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	manifest := NewManifest(t.TempDir())
	executor := NewExecutor(c, manifest, config.TemporalConfig{TaskQueue: "q"}, zap.NewNop())
	_, err := executor.Execute(context.Background(), testPartitions(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = os.Stat(manifest.RunDir("run-1"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestExecutor_ManifestWriteFailure(t *testing.T) {
	// A file where the manifest root should be.
	root := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0644))

	c := &mocks.Client{}
	executor := NewExecutor(c, NewManifest(root), config.TemporalConfig{TaskQueue: "q"}, zap.NewNop())
	_, err := executor.Execute(context.Background(), testPartitions(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "partition manifest")
	c.AssertNotCalled(t, "ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecutor_CancelsWorkflowWhenContextIsDone(t *testing.T) {
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return(WorkflowID("run-1"))
	run.On("GetRunID").Return("temporal-run")

	ctx, cancel := context.WithCancel(context.Background())
	run.On("Get", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(context.Canceled)

	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(run, nil)
	c.On("CancelWorkflow", mock.Anything, WorkflowID("run-1"), "temporal-run").Return(nil)

	manifest := NewManifest(t.TempDir())
	executor := NewExecutor(c, manifest, config.TemporalConfig{TaskQueue: "q"}, zap.NewNop())
	_, err := executor.Execute(ctx, testPartitions(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	c.AssertCalled(t, "CancelWorkflow", mock.Anything, WorkflowID("run-1"), "temporal-run")

	_, err = os.Stat(manifest.RunDir("run-1"))
	assert.NoError(t, err, "manifest of an unfinished workflow is kept")
}

func TestExecutor_NoPartitions(t *testing.T) {
	c := &mocks.Client{}
	executor := NewExecutor(c, NewManifest(t.TempDir()), config.TemporalConfig{TaskQueue: "q"}, zap.NewNop())

	result, err := executor.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionResult{}, result)
	c.AssertNotCalled(t, "ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNewLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewLogger(zap.New(core))

	logger.Info("Worker started", "TaskQueue", "column-profiling")
	logger.Warn("Poll failed", "attempt", 2)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "temporal-sdk", entries[0].LoggerName)
	assert.Equal(t, "column-profiling", entries[0].ContextMap()["TaskQueue"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(2), entries[1].ContextMap()["attempt"])
}
