package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
)

const profileExt = ".json"

// ProfileRepository defines the interface for column profile storage.
// It is the only component that writes profiles.
type ProfileRepository interface {
	// Save writes a profile keyed by its identity, replacing any earlier
	// record for the same key, including one stored under another data type.
	Save(ctx context.Context, profile *models.ColumnProfile) error

	// ExistingKeys returns the keys of every stored profile.
	ExistingKeys(ctx context.Context) (map[string]struct{}, error)

	// Reset deletes every stored profile.
	Reset(ctx context.Context) error
}

// fileProfileRepository stores each profile at <root>/<data_type>/<key>.json.
type fileProfileRepository struct {
	root string
}

// NewFileProfileRepository creates a profile repository rooted at dir.
func NewFileProfileRepository(dir string) ProfileRepository {
	return &fileProfileRepository{root: filepath.Clean(dir)}
}

// Save writes the profile to a temp file in the target directory and renames it
// into place, so readers never observe a partial record.
func (r *fileProfileRepository) Save(ctx context.Context, profile *models.ColumnProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if profile.Key == "" {
		return fmt.Errorf("profile for %s has no key", profile.ColumnID)
	}
	if !models.IsValidColumnDataType(profile.DataType) {
		return fmt.Errorf("profile %s has invalid data type %q", profile.Key, profile.DataType)
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile %s: %w", profile.Key, err)
	}

	// A rerun may detect a different type for the same column.
	for _, t := range models.ValidColumnDataTypes {
		if t == profile.DataType {
			continue
		}
		stale := r.path(t, profile.Key)
		if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove stale profile %s: %w", stale, err)
		}
	}

	dir := filepath.Join(r.root, string(profile.DataType))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create profile directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+profile.Key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for profile %s: %w", profile.Key, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file for profile %s: %w", profile.Key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for profile %s: %w", profile.Key, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions on profile %s: %w", profile.Key, err)
	}

	dest := r.path(profile.DataType, profile.Key)
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp → %s: %w", dest, err)
	}
	return nil
}

// ExistingKeys walks the output location once. A missing location has no keys.
func (r *fileProfileRepository) ExistingKeys(ctx context.Context) (map[string]struct{}, error) {
	keys := make(map[string]struct{})

	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == r.root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") || filepath.Ext(d.Name()) != profileExt {
			return nil
		}
		keys[strings.TrimSuffix(d.Name(), profileExt)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan profiles in %s: %w", r.root, err)
	}

	return keys, nil
}

// Reset removes the output location and recreates it empty.
func (r *fileProfileRepository) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.root == "." || r.root == string(filepath.Separator) {
		return fmt.Errorf("refusing to reset profile location %q", r.root)
	}
	if err := os.RemoveAll(r.root); err != nil {
		return fmt.Errorf("failed to remove profiles in %s: %w", r.root, err)
	}
	if err := os.MkdirAll(r.root, 0755); err != nil {
		return fmt.Errorf("failed to create profile location %s: %w", r.root, err)
	}
	return nil
}

func (r *fileProfileRepository) path(t models.ColumnDataType, key string) string {
	return filepath.Join(r.root, string(t), key+profileExt)
}
