package services

import "github.com/ekaya-inc/ekaya-profiler/pkg/models"

// DefaultColumnsPerPartition is the target partition size. Models are loaded
// once per partition, so the load cost is shared by about this many columns.
const DefaultColumnsPerPartition = 10

// PartitionWorkItems splits items into max(1, N/columnsPerPartition)
// contiguous partitions whose sizes differ by at most one. No items yields no
// partitions.
func PartitionWorkItems(runID string, items []models.WorkItem, columnsPerPartition int) []models.Partition {
	n := len(items)
	if n == 0 {
		return nil
	}
	if columnsPerPartition < 1 {
		columnsPerPartition = DefaultColumnsPerPartition
	}

	count := max(1, n/columnsPerPartition)
	base, extra := n/count, n%count

	partitions := make([]models.Partition, 0, count)
	offset := 0
	for i := 0; i < count; i++ {
		size := base
		if i < extra {
			size++
		}
		partitions = append(partitions, models.Partition{
			RunID: runID,
			Index: i,
			Items: items[offset : offset+size : offset+size],
		})
		offset += size
	}
	return partitions
}
