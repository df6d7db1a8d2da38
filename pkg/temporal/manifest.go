package temporal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
)

// Manifest stores the partitions of a run as one JSON file each, so workflow
// inputs and activity arguments carry only a directory and an index. The
// manifest root must be visible to every worker at the same path.
type Manifest struct {
	root string
}

// NewManifest creates a manifest store rooted at dir.
func NewManifest(dir string) *Manifest {
	return &Manifest{root: filepath.Clean(dir)}
}

// RunDir returns the directory holding the partitions of runID.
func (m *Manifest) RunDir(runID string) string {
	return filepath.Join(m.root, runID)
}

// Write stores every partition of a run and returns the run directory.
func (m *Manifest) Write(ctx context.Context, runID string, partitions []models.Partition) (string, error) {
	dir := m.RunDir(runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create manifest directory %s: %w", dir, err)
	}

	for _, p := range partitions {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := writePartition(dir, p); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// Remove deletes the run directory.
func (m *Manifest) Remove(runID string) error {
	if runID == "" {
		return errors.New("refusing to remove manifest without a run ID")
	}
	if err := os.RemoveAll(m.RunDir(runID)); err != nil {
		return fmt.Errorf("failed to remove manifest for run %s: %w", runID, err)
	}
	return nil
}

func partitionPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("partition-%06d.json", index))
}

func writePartition(dir string, p models.Partition) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal partition %d: %w", p.Index, err)
	}

	tmp, err := os.CreateTemp(dir, ".partition-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for partition %d: %w", p.Index, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write partition %d: %w", p.Index, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close partition %d: %w", p.Index, err)
	}
	if err := os.Rename(tmpPath, partitionPath(dir, p.Index)); err != nil {
		return fmt.Errorf("failed to store partition %d: %w", p.Index, err)
	}
	return nil
}

// ReadPartition loads one partition from a run directory.
func ReadPartition(dir string, index int) (models.Partition, error) {
	var p models.Partition

	data, err := os.ReadFile(partitionPath(dir, index))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, fmt.Errorf("partition %d is not in manifest %s: %w", index, dir, err)
		}
		return p, fmt.Errorf("failed to read partition %d: %w", index, err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to decode partition %d: %w", index, err)
	}
	if p.Index != index {
		return p, fmt.Errorf("manifest file for partition %d holds partition %d", index, p.Index)
	}
	return p, nil
}
