package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-profiler/pkg/embeddings"
	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
	"github.com/ekaya-inc/ekaya-profiler/pkg/testhelpers"
)

// ============================================================================
// Shared fixtures for services tests
// ============================================================================

// loadFixtureModels writes the fixture models into a temp dir and loads them.
func loadFixtureModels(t *testing.T) *embeddings.Models {
	t.Helper()
	cfg := testhelpers.WriteModels(t, t.TempDir())
	m, err := embeddings.NewLoader(cfg, nil, zap.NewNop()).Load(context.Background())
	require.NoError(t, err)
	return m
}

// reviewSentences returns n short reviews built from the fixture vocabulary.
func reviewSentences(n int) []string {
	subjects := []string{"the food", "the service", "the staff", "our room", "the coffee", "the view", "the dessert"}
	verbs := []string{"was", "is", "was really", "was not", "was very"}
	adjectives := []string{"great", "good", "bad", "terrible", "friendly", "slow", "clean", "amazing", "cold", "expensive"}
	endings := []string{" .", " and we would come back again .", " !", " but the price was cheap ."}

	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s %s %s%s",
			subjects[i%len(subjects)],
			verbs[(i/len(subjects))%len(verbs)],
			adjectives[(i*3)%len(adjectives)],
			endings[i%len(endings)])
	}
	return out
}

// writeReviewTable writes the t1.csv fixture: an id column 1..100 and a
// free-text review column.
func writeReviewTable(t *testing.T, path string) {
	t.Helper()
	lines := []string{"id,review"}
	for i, review := range reviewSentences(100) {
		lines = append(lines, fmt.Sprintf("%d,%s", i+1, review))
	}
	testhelpers.WriteCSV(t, path, lines...)
}

func columnFrom(name string, kind models.ValueKind, values ...string) *models.Column {
	return &models.Column{Name: name, Kind: kind, Total: len(values), Values: values}
}

func workItem(root, dataset, table, column string) models.WorkItem {
	return models.WorkItem{
		ColumnName: column,
		Table: models.Table{
			DataSource:  "local",
			DatasetName: dataset,
			Path:        filepath.Join(root, dataset, table),
			Format:      models.TableFormatCSV,
		},
	}
}

func itemNames(items []models.WorkItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Table.TableName() + ":" + item.ColumnName
	}
	return out
}

// ============================================================================
// In-memory profile repository
// ============================================================================

type memoryProfileRepo struct {
	mu          sync.Mutex
	profiles    map[string]*models.ColumnProfile
	saveErr     error
	failOnSave  string // column name whose save fails
	resetCalls  int
	existingErr error
}

func newMemoryProfileRepo() *memoryProfileRepo {
	return &memoryProfileRepo{profiles: make(map[string]*models.ColumnProfile)}
}

func (r *memoryProfileRepo) Save(ctx context.Context, p *models.ColumnProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if r.failOnSave != "" && strings.EqualFold(p.ColumnName, r.failOnSave) {
		return fmt.Errorf("disk full")
	}
	r.profiles[p.Key] = p
	return nil
}

func (r *memoryProfileRepo) ExistingKeys(ctx context.Context) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existingErr != nil {
		return nil, r.existingErr
	}
	keys := make(map[string]struct{}, len(r.profiles))
	for k := range r.profiles {
		keys[k] = struct{}{}
	}
	return keys, nil
}

func (r *memoryProfileRepo) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetCalls++
	r.profiles = make(map[string]*models.ColumnProfile)
	return nil
}

func (r *memoryProfileRepo) byColumn(name string) *models.ColumnProfile {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.ColumnName == name {
			return p
		}
	}
	return nil
}

func (r *memoryProfileRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.profiles)
}

// ============================================================================
// Model loader stub
// ============================================================================

type stubModelLoader struct {
	mu     sync.Mutex
	models *embeddings.Models
	err    error
	calls  int
}

func (l *stubModelLoader) Load(ctx context.Context) (*embeddings.Models, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.models, nil
}
