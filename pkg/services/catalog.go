package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-profiler/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
	"github.com/ekaya-inc/ekaya-profiler/pkg/tabular"
)

// CatalogService enumerates column work items under a dataset root.
//
// Every direct sub-directory of the root is a dataset. Every non-empty
// .csv or .parquet file below a dataset directory is a table. Only table
// headers are read.
type CatalogService interface {
	// Discover returns one work item per (table, column), in lexical path
	// order. Tables whose header cannot be read are skipped with a warning.
	Discover(ctx context.Context, root, dataSource string) ([]models.WorkItem, error)
}

type catalogService struct {
	readHeader func(models.Table) ([]string, error)
	logger     *zap.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(logger *zap.Logger) CatalogService {
	return &catalogService{
		readHeader: tabular.ReadHeader,
		logger:     logger.Named("catalog"),
	}
}

func (s *catalogService) Discover(ctx context.Context, root, dataSource string) ([]models.WorkItem, error) {
	start := time.Now()

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidDatasetRoot, root, err)
	}

	var items []models.WorkItem
	tables, skipped := 0, 0

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dataset := entry.Name()

		err := filepath.WalkDir(filepath.Join(root, dataset), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.logger.Warn("Skipping unreadable path", zap.String("path", path), zap.Error(err))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				if path != filepath.Join(root, dataset) && strings.HasPrefix(d.Name(), ".") {
					return fs.SkipDir
				}
				return nil
			}

			format, ok := models.TableFormatForPath(path)
			if !ok || !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil || info.Size() == 0 {
				return nil
			}

			table := models.Table{
				DataSource:  dataSource,
				DatasetName: dataset,
				Path:        path,
				Format:      format,
			}
			header, err := s.readHeader(table)
			if err != nil {
				skipped++
				s.logger.Warn("Skipping table with unreadable header",
					zap.String("path", path),
					zap.Error(err))
				return nil
			}

			tables++
			for _, column := range header {
				items = append(items, models.WorkItem{ColumnName: column, Table: table})
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk dataset %s: %w", dataset, err)
		}
	}

	s.logger.Info("Catalog complete",
		zap.String("root", root),
		zap.Int("tables", tables),
		zap.Int("skipped_tables", skipped),
		zap.Int("columns", len(items)),
		zap.Duration("elapsed", time.Since(start)))

	return items, nil
}
