package services

import (
	"strings"

	"github.com/ekaya-inc/ekaya-profiler/pkg/embeddings"
	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
)

// DefaultSampleSize is the number of non-missing values type detection
// inspects unless configured otherwise.
const DefaultSampleSize = 1000

// TypeDetectorConfig holds the detection thresholds.
type TypeDetectorConfig struct {
	SampleSize         int     // Max non-missing values inspected (default: 1000)
	DateRatio          float64 // Share of values that must parse as dates (default: 0.9)
	NamedEntityRatio   float64 // Share of values that must be known entities (default: 0.5)
	MinMeanTokens      float64 // Mean tokens per value for free text (default: 3)
	MinVocabularyRatio float64 // Share of tokens found in the word vectors for free text (default: 0.6)
}

// DefaultTypeDetectorConfig returns the default thresholds.
func DefaultTypeDetectorConfig() TypeDetectorConfig {
	return TypeDetectorConfig{
		SampleSize:         DefaultSampleSize,
		DateRatio:          0.9,
		NamedEntityRatio:   0.5,
		MinMeanTokens:      3,
		MinVocabularyRatio: 0.6,
	}
}

// booleanVocabularies are the accepted true/false spellings, compared in
// lower case. A column must use a single vocabulary.
var booleanVocabularies = []map[string]bool{
	{"true": true, "false": false},
	{"yes": true, "no": false},
	{"y": true, "n": false},
	{"t": true, "f": false},
}

// TypeDetector classifies coerced columns. It only reads the models and is
// deterministic for a given column and model set.
type TypeDetector struct {
	cfg TypeDetectorConfig
}

// NewTypeDetector creates a type detector.
func NewTypeDetector(cfg TypeDetectorConfig) *TypeDetector {
	if cfg.SampleSize < 1 {
		cfg.SampleSize = DefaultTypeDetectorConfig().SampleSize
	}
	return &TypeDetector{cfg: cfg}
}

// SampleSize returns the number of values Detect inspects.
func (d *TypeDetector) SampleSize() int {
	return d.cfg.SampleSize
}

// Detect returns exactly one data type for col. Checks run from the most
// specific type to the most generic one.
func (d *TypeDetector) Detect(col *models.Column, m *embeddings.Models) models.ColumnDataType {
	switch {
	case col.NonMissing() == 0:
		return models.ColumnDataTypeUnknown

	case col.Kind == models.ValueKindBool:
		return models.ColumnDataTypeBoolean

	case col.Kind == models.ValueKindInt || col.Kind == models.ValueKindFloat:
		return d.detectNumeric(col)

	default:
		return d.detectText(col, m)
	}
}

// detectNumeric treats 0/1-only columns as boolean flags.
func (d *TypeDetector) detectNumeric(col *models.Column) models.ColumnDataType {
	if hasOnlyBinaryNumbers(col.Numbers) {
		return models.ColumnDataTypeBoolean
	}
	if col.Kind == models.ValueKindInt {
		return models.ColumnDataTypeInt
	}
	return models.ColumnDataTypeFloat
}

func (d *TypeDetector) detectText(col *models.Column, m *embeddings.Models) models.ColumnDataType {
	sample := strideSample(col.Values, d.cfg.SampleSize)

	if booleanVocabulary(sample) != nil {
		return models.ColumnDataTypeBoolean
	}
	if ratio(sample, isDate) >= d.cfg.DateRatio {
		return models.ColumnDataTypeDate
	}
	if m != nil && m.NER != nil && ratio(sample, func(v string) bool { _, ok := m.NER.Recognize(v); return ok }) >= d.cfg.NamedEntityRatio {
		return models.ColumnDataTypeNamedEntity
	}
	if m != nil && m.WordVectors != nil && d.isNaturalLanguage(sample, m.WordVectors) {
		return models.ColumnDataTypeNaturalLanguageText
	}
	return models.ColumnDataTypeString
}

func (d *TypeDetector) isNaturalLanguage(sample []string, wv *embeddings.WordVectors) bool {
	tokens, known := 0, 0
	for _, v := range sample {
		for _, tok := range embeddings.Tokenize(v) {
			tokens++
			if wv.Contains(tok) {
				known++
			}
		}
	}
	if tokens == 0 {
		return false
	}
	meanTokens := float64(tokens) / float64(len(sample))
	return meanTokens >= d.cfg.MinMeanTokens && float64(known)/float64(tokens) >= d.cfg.MinVocabularyRatio
}

func hasOnlyBinaryNumbers(numbers []float64) bool {
	if len(numbers) == 0 {
		return false
	}
	for _, n := range numbers {
		if n != 0 && n != 1 {
			return false
		}
	}
	return true
}

// booleanVocabulary returns the single vocabulary covering every value, or nil.
func booleanVocabulary(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	for _, vocab := range booleanVocabularies {
		all := true
		for _, v := range values {
			if _, ok := vocab[strings.ToLower(strings.TrimSpace(v))]; !ok {
				all = false
				break
			}
		}
		if all {
			return vocab
		}
	}
	return nil
}

func isDate(v string) bool {
	_, ok := parseDate(v)
	return ok
}

func ratio(values []string, pred func(string) bool) float64 {
	if len(values) == 0 {
		return 0
	}
	n := 0
	for _, v := range values {
		if pred(v) {
			n++
		}
	}
	return float64(n) / float64(len(values))
}
