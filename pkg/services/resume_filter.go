package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
	"github.com/ekaya-inc/ekaya-profiler/pkg/repositories"
)

// ResumeFilter decides which work items still need profiling.
//
// In replace mode every stored profile is deleted first and all items are
// kept. In incremental mode items whose key is already stored are dropped.
// Only the identity key is compared; changed source data is not detected.
type ResumeFilter struct {
	repo    repositories.ProfileRepository
	replace bool
	logger  *zap.Logger
}

// NewResumeFilter creates a resume filter.
func NewResumeFilter(repo repositories.ProfileRepository, replace bool, logger *zap.Logger) *ResumeFilter {
	return &ResumeFilter{
		repo:    repo,
		replace: replace,
		logger:  logger.Named("resume-filter"),
	}
}

// Apply returns the items to profile and the number skipped. Items that share
// an identity with an earlier item are dropped too, so two partitions never
// write the same key in one run.
func (f *ResumeFilter) Apply(ctx context.Context, items []models.WorkItem) ([]models.WorkItem, int, error) {
	existing := map[string]struct{}{}

	if f.replace {
		if err := f.repo.Reset(ctx); err != nil {
			return nil, 0, fmt.Errorf("failed to reset profiles: %w", err)
		}
		f.logger.Info("Removed existing profiles (replace mode)")
	} else {
		keys, err := f.repo.ExistingKeys(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list existing profiles: %w", err)
		}
		existing = keys
	}

	kept := make([]models.WorkItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	alreadyProfiled, duplicates := 0, 0

	for _, item := range items {
		key := item.Identity().Key()
		if _, ok := existing[key]; ok {
			alreadyProfiled++
			continue
		}
		if _, ok := seen[key]; ok {
			duplicates++
			f.logger.Warn("Skipping column with duplicate identity",
				zap.String("column_id", item.Identity().String()),
				zap.String("path", item.Table.Path))
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, item)
	}

	f.logger.Info("Resume filter applied",
		zap.Bool("replace", f.replace),
		zap.Int("discovered", len(items)),
		zap.Int("already_profiled", alreadyProfiled),
		zap.Int("duplicates", duplicates),
		zap.Int("scheduled", len(kept)))

	return kept, alreadyProfiled + duplicates, nil
}
