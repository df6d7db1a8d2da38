// Package testhelpers provides fixtures for testing ekaya-profiler components.
package testhelpers

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ekaya-inc/ekaya-profiler/pkg/config"
)

// Fixture model dimensions.
const (
	WordVectorDim     = 4
	NLEmbeddingHidden = 6
	NLEmbeddingDim    = 5
)

// Vocabulary is the word list of the fixture word vectors.
var Vocabulary = []string{
	"the", "a", "an", "and", "but", "was", "is", "were", "very", "really", "not",
	"food", "service", "staff", "room", "place", "price", "meal", "coffee", "view",
	"great", "good", "bad", "terrible", "friendly", "slow", "clean", "dirty", "cheap",
	"expensive", "amazing", "cold", "hot", "would", "come", "back", "again", "never",
	"i", "we", "they", "it", "loved", "hated", "enjoyed", "recommend", "this", "to",
	"everyone", "with", "our", "my", "stay", "visit", "table", "waiter", "dessert",
	".", ",", "!",
	// Entity tokens, so named-entity columns have in-vocabulary words.
	"oslo", "berlin", "paris", "new", "york", "tokyo", "lima", "norway", "google", "microsoft",
}

// Entities is the fixture NER gazetteer.
var Entities = map[string][]string{
	"PERSON": {"Ada Lovelace", "Alan Turing", "Grace Hopper", "Linus Torvalds", "Margaret Hamilton"},
	"GPE":    {"Norway", "Oslo", "Berlin", "Paris", "New York", "Tokyo", "Lima"},
	"ORG":    {"Google", "Microsoft", "Red Cross", "UNESCO"},
}

// Vector returns the deterministic fixture vector for a word.
func Vector(word string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(word))
	seed := float64(h.Sum32() % 1000)
	vec := make([]float32, WordVectorDim)
	for i := range vec {
		vec[i] = float32(math.Sin(seed + float64(i)))
	}
	return vec
}

// WriteModels writes the fixture word vectors, both natural-language networks
// and the NER gazetteer into dir and returns a config pointing at them.
func WriteModels(t *testing.T, dir string) config.ModelsConfig {
	t.Helper()

	cfg := config.ModelsConfig{
		WordVectorsPath:      filepath.Join(dir, "words.vec"),
		NLEmbeddingModelPath: filepath.Join(dir, "nl_embedding.json"),
		NLScalingModelPath:   filepath.Join(dir, "nl_scaling.json"),
		NERModelPath:         filepath.Join(dir, "ner.yaml"),
	}

	var vec strings.Builder
	fmt.Fprintf(&vec, "%d %d\n", len(Vocabulary), WordVectorDim)
	for _, w := range Vocabulary {
		vec.WriteString(w)
		for _, v := range Vector(w) {
			fmt.Fprintf(&vec, " %.6f", v)
		}
		vec.WriteString("\n")
	}
	writeFile(t, cfg.WordVectorsPath, []byte(vec.String()))

	writeFile(t, cfg.NLEmbeddingModelPath, NetworkJSON(t, "nl-embedding", WordVectorDim, NLEmbeddingHidden, "relu"))
	writeFile(t, cfg.NLScalingModelPath, NetworkJSON(t, "nl-scaling", NLEmbeddingHidden, NLEmbeddingDim, "tanh"))
	writeFile(t, cfg.NERModelPath, GazetteerYAML())

	return cfg
}

// NetworkJSON returns a single-layer network with deterministic weights.
func NetworkJSON(t *testing.T, name string, in, out int, activation string) []byte {
	t.Helper()

	weights := make([][]float64, out)
	bias := make([]float64, out)
	for j := range weights {
		weights[j] = make([]float64, in)
		for k := range weights[j] {
			weights[j][k] = math.Cos(float64(j*in+k)) / float64(in)
		}
		bias[j] = 0.01 * float64(j)
	}

	data, err := json.Marshal(map[string]any{
		"name":    name,
		"version": "test-1",
		"layers": []map[string]any{
			{"weights": weights, "bias": bias, "activation": activation},
		},
	})
	if err != nil {
		t.Fatalf("failed to marshal network: %v", err)
	}
	return data
}

// GazetteerYAML renders Entities as a NER model file.
func GazetteerYAML() []byte {
	var b strings.Builder
	b.WriteString("version: \"test-1\"\nentities:\n")
	for _, label := range []string{"GPE", "ORG", "PERSON"} {
		fmt.Fprintf(&b, "  %s:\n", label)
		for _, name := range Entities[label] {
			fmt.Fprintf(&b, "    - %q\n", name)
		}
	}
	return []byte(b.String())
}

// WriteCSV writes a CSV file with the given lines, creating parent directories.
func WriteCSV(t *testing.T, path string, lines ...string) {
	t.Helper()
	writeFile(t, path, []byte(strings.Join(lines, "\n")+"\n"))
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
