package embeddings

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-profiler/pkg/apperrors"
)

// gazetteerFile is the on-disk layout of the named-entity model:
//
//	version: "2024.1"
//	entities:
//	  PERSON: ["Ada Lovelace", "Alan Turing"]
//	  GPE: ["Norway", "New York"]
type gazetteerFile struct {
	Version  string              `yaml:"version"`
	Entities map[string][]string `yaml:"entities"`
}

// Recognizer labels values that name a known entity. Matching is on the whole
// value, case-insensitive, with internal whitespace collapsed.
type Recognizer struct {
	version string
	labels  []string
	entries map[string]string
}

// NewRecognizer builds a recognizer from label → entity names. When a name is
// listed under several labels the lexically smallest label wins.
func NewRecognizer(version string, entities map[string][]string) *Recognizer {
	r := &Recognizer{version: version, entries: make(map[string]string)}
	for label := range entities {
		r.labels = append(r.labels, label)
	}
	sort.Strings(r.labels)

	for _, label := range r.labels {
		for _, name := range entities[label] {
			key := normalizeEntity(name)
			if key == "" {
				continue
			}
			if _, exists := r.entries[key]; !exists {
				r.entries[key] = label
			}
		}
	}
	return r
}

// LoadRecognizer reads a YAML gazetteer.
func LoadRecognizer(path string) (*Recognizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrModelNotFound, path)
		}
		return nil, err
	}

	var g gazetteerFile
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrModelInvalid, path, err)
	}
	if len(g.Entities) == 0 {
		return nil, fmt.Errorf("%w: %s: no entities", apperrors.ErrModelInvalid, path)
	}
	return NewRecognizer(g.Version, g.Entities), nil
}

// Recognize returns the entity label of value, if value is a known entity.
func (r *Recognizer) Recognize(value string) (string, bool) {
	label, ok := r.entries[normalizeEntity(value)]
	return label, ok
}

// Labels returns the known labels in sorted order.
func (r *Recognizer) Labels() []string { return r.labels }

// Len returns the number of known entity names.
func (r *Recognizer) Len() int { return len(r.entries) }

// Version identifies the gazetteer release.
func (r *Recognizer) Version() string { return r.version }

func normalizeEntity(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
