package models

import "slices"

// ============================================================================
// Column Data Types
// ============================================================================

// ColumnDataType is the fine-grained semantic type detected for a column.
// Every profiled column carries exactly one of these values.
type ColumnDataType string

const (
	ColumnDataTypeInt                 ColumnDataType = "int"
	ColumnDataTypeFloat               ColumnDataType = "float"
	ColumnDataTypeBoolean             ColumnDataType = "boolean"
	ColumnDataTypeDate                ColumnDataType = "date"
	ColumnDataTypeNamedEntity         ColumnDataType = "named_entity"
	ColumnDataTypeNaturalLanguageText ColumnDataType = "natural_language_text"
	ColumnDataTypeString              ColumnDataType = "string"
	ColumnDataTypeUnknown             ColumnDataType = "unknown"
)

// ValidColumnDataTypes contains all valid column data type values.
var ValidColumnDataTypes = []ColumnDataType{
	ColumnDataTypeInt,
	ColumnDataTypeFloat,
	ColumnDataTypeBoolean,
	ColumnDataTypeDate,
	ColumnDataTypeNamedEntity,
	ColumnDataTypeNaturalLanguageText,
	ColumnDataTypeString,
	ColumnDataTypeUnknown,
}

// IsValidColumnDataType checks if the given type is part of the closed enumeration.
func IsValidColumnDataType(t ColumnDataType) bool {
	return slices.Contains(ValidColumnDataTypes, t)
}

// IsNumeric reports whether the type holds numeric measurements.
func (t ColumnDataType) IsNumeric() bool {
	return t == ColumnDataTypeInt || t == ColumnDataTypeFloat
}

// IsTextual reports whether the type's embedding is derived from word vectors.
func (t ColumnDataType) IsTextual() bool {
	return t == ColumnDataTypeNamedEntity || t == ColumnDataTypeNaturalLanguageText
}

// Fixed embedding dimensions for the types whose embeddings are computed in
// closed form. Named-entity embeddings have the word-vector dimension and
// natural-language embeddings have the scaling network's output dimension.
const (
	NumericEmbeddingDim = 16
	BooleanEmbeddingDim = 2
	DateEmbeddingDim    = 19
	StringEmbeddingDim  = 64
)

// ============================================================================
// Value Kinds
// ============================================================================

// ValueKind is the storage kind a column ends up with after best-effort coercion.
type ValueKind string

const (
	ValueKindInt    ValueKind = "int"
	ValueKindFloat  ValueKind = "float"
	ValueKindBool   ValueKind = "bool"
	ValueKindString ValueKind = "string"
)

// Column is a single table column after coercion. Values holds every
// non-missing entry as text; Numbers, Ints and Bools are filled only for the
// matching kinds and are index-aligned with Values. Int columns carry both
// Numbers and the exact Ints.
type Column struct {
	Name    string
	Kind    ValueKind
	Total   int
	Missing int
	Values  []string
	Numbers []float64
	Ints    []int64
	Bools   []bool
}

// NonMissing returns the number of non-missing entries.
func (c *Column) NonMissing() int {
	return len(c.Values)
}

// DistinctCount returns the number of distinct non-missing values.
func (c *Column) DistinctCount() int {
	seen := make(map[string]struct{}, len(c.Values))
	for _, v := range c.Values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
