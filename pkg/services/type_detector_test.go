package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
	"github.com/ekaya-inc/ekaya-profiler/pkg/tabular"
)

func TestTypeDetector_Detect(t *testing.T) {
	m := loadFixtureModels(t)
	detector := NewTypeDetector(DefaultTypeDetectorConfig())

	tests := []struct {
		name  string
		cells []string
		want  models.ColumnDataType
	}{
		{"all missing", []string{"", "NA", "null"}, models.ColumnDataTypeUnknown},
		{"ints", []string{"1", "2", "3", "40"}, models.ColumnDataTypeInt},
		{"floats", []string{"1.5", "2", "3.25"}, models.ColumnDataTypeFloat},
		{"bool literals", []string{"True", "False", "true"}, models.ColumnDataTypeBoolean},
		{"zero one flags", []string{"0", "1", "1", "0"}, models.ColumnDataTypeBoolean},
		{"yes no", []string{"yes", "No", "YES"}, models.ColumnDataTypeBoolean},
		{"mixed boolean vocabularies", []string{"yes", "false"}, models.ColumnDataTypeString},
		{"iso dates", []string{"2021-01-05", "2021-02-11", "2022-12-31"}, models.ColumnDataTypeDate},
		{"us dates", []string{"1/5/2021", "12/31/2022", "7/4/1999"}, models.ColumnDataTypeDate},
		{"entities", []string{"Oslo", "Ada Lovelace", "Google", "Paris"}, models.ColumnDataTypeNamedEntity},
		{"mostly entities", []string{"Oslo", "Berlin", "Lima", "somewhere"}, models.ColumnDataTypeNamedEntity},
		{"free text", reviewSentences(50), models.ColumnDataTypeNaturalLanguageText},
		{"codes", []string{"AB-123", "XQ-992", "ZZ-001"}, models.ColumnDataTypeString},
		{"short known words", []string{"good", "bad", "good"}, models.ColumnDataTypeString},
		{"long unknown words", []string{"lorem ipsum dolor sit", "amet consectetur adipiscing elit"}, models.ColumnDataTypeString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := tabular.Coerce("c", tt.cells)
			assert.Equal(t, tt.want, detector.Detect(col, m))
		})
	}
}

func TestTypeDetector_ResultIsAlwaysValid(t *testing.T) {
	m := loadFixtureModels(t)
	detector := NewTypeDetector(DefaultTypeDetectorConfig())

	for _, cells := range [][]string{
		{"x"}, {"1"}, {""}, {"2021-01-01"}, {"Oslo"}, {"-", "?"},
	} {
		got := detector.Detect(tabular.Coerce("c", cells), m)
		assert.True(t, models.IsValidColumnDataType(got), "detected %q for %v", got, cells)
	}
}

func TestTypeDetector_WithoutModelsFallsBackToString(t *testing.T) {
	detector := NewTypeDetector(DefaultTypeDetectorConfig())
	col := tabular.Coerce("c", reviewSentences(10))
	assert.Equal(t, models.ColumnDataTypeString, detector.Detect(col, nil))
}

func TestTypeDetector_IsDeterministic(t *testing.T) {
	m := loadFixtureModels(t)
	detector := NewTypeDetector(TypeDetectorConfig{SampleSize: 7, DateRatio: 0.9, NamedEntityRatio: 0.5, MinMeanTokens: 3, MinVocabularyRatio: 0.6})

	col := tabular.Coerce("c", reviewSentences(200))
	first := detector.Detect(col, m)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, detector.Detect(col, m))
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		year int
	}{
		{"2021-03-04", true, 2021},
		{"2021-03-04T10:11:12Z", true, 2021},
		{"2021-03-04 10:11:12", true, 2021},
		{"Mar 4, 2021", true, 2021},
		{"04-Mar-2021", true, 2021},
		{"3/4/21", true, 2021},
		{"3/4/75", true, 1975},
		{"20210304", true, 2021},
		{"hello world", false, 0},
		{"2021", false, 0},
		{"13/45/2021", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.year, got.Year())
			}
		})
	}
}
