package models

// ============================================================================
// Column Profile
// ============================================================================

// ColumnProfile is the persisted output record for one column. It is built
// once by a profile creator and never modified afterwards.
type ColumnProfile struct {
	ColumnID  string `json:"column_id"`
	Key       string `json:"key"`
	DatasetID string `json:"dataset_id"`
	TableID   string `json:"table_id"`

	Origin      string `json:"origin"`
	DatasetName string `json:"dataset_name"`
	TableName   string `json:"table_name"`
	Path        string `json:"path"`
	ColumnName  string `json:"column_name"`

	DataType ColumnDataType `json:"data_type"`

	TotalValuesCount    int `json:"total_values_count"`
	DistinctValuesCount int `json:"distinct_values_count"`
	MissingValuesCount  int `json:"missing_values_count"`

	// Exactly one statistics block is set, matching DataType.
	NumericStats     *NumericStats     `json:"numeric_stats,omitempty"`
	BooleanStats     *BooleanStats     `json:"boolean_stats,omitempty"`
	DateStats        *DateStats        `json:"date_stats,omitempty"`
	StringStats      *StringStats      `json:"string_stats,omitempty"`
	NamedEntityStats *NamedEntityStats `json:"named_entity_stats,omitempty"`
	TextStats        *TextStats        `json:"text_stats,omitempty"`

	Embedding    []float64 `json:"embedding"`
	EmbeddingDim int       `json:"embedding_dim"`
}

// NumericStats summarizes int and float columns. Int columns also carry the
// exact extremes, which Min and Max cannot hold past 2^53.
type NumericStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	IntMin *int64  `json:"int_min,omitempty"`
	IntMax *int64  `json:"int_max,omitempty"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	IQR    float64 `json:"iqr"`
	StdDev float64 `json:"std_dev"`
}

// BooleanStats summarizes boolean columns.
type BooleanStats struct {
	TrueRatio float64 `json:"true_ratio"`
}

// DateStats summarizes date columns. Timestamps are RFC 3339.
type DateStats struct {
	Earliest     string `json:"earliest"`
	Latest       string `json:"latest"`
	DistinctDays int    `json:"distinct_days"`
}

// StringStats summarizes short-text (categorical) columns.
type StringStats struct {
	MinLength    int      `json:"min_length"`
	MaxLength    int      `json:"max_length"`
	MeanLength   float64  `json:"mean_length"`
	SampleValues []string `json:"sample_values,omitempty"`
}

// NamedEntityStats summarizes named-entity columns.
type NamedEntityStats struct {
	// LabelRatios maps entity labels (PERSON, ORG, GPE...) to the share of
	// sampled values recognized with that label.
	LabelRatios  map[string]float64 `json:"label_ratios"`
	SampleValues []string           `json:"sample_values,omitempty"`
}

// TextStats summarizes natural-language text columns.
type TextStats struct {
	VocabularySize     int      `json:"vocabulary_size"`
	MeanTokensPerValue float64  `json:"mean_tokens_per_value"`
	SampleTokens       []string `json:"sample_tokens,omitempty"`
}

// ============================================================================
// Partitions and Runs
// ============================================================================

// Partition is a contiguous slice of the filtered work list handled by one
// partition worker.
type Partition struct {
	RunID string     `json:"run_id"`
	Index int        `json:"index"`
	Items []WorkItem `json:"items"`
}

// ExecutionResult reports how partitions of a run completed.
type ExecutionResult struct {
	Partitions       int `json:"partitions"`
	FailedPartitions int `json:"failed_partitions"`
}

// RunSummary reports the outcome of one profiling run.
type RunSummary struct {
	RunID            string `json:"run_id"`
	Discovered       int    `json:"discovered"`
	Skipped          int    `json:"skipped"`
	Scheduled        int    `json:"scheduled"`
	Partitions       int    `json:"partitions"`
	FailedPartitions int    `json:"failed_partitions"`
}
