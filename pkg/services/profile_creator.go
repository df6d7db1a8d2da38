package services

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-profiler/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-profiler/pkg/embeddings"
	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
)

// ProfileInput is everything a profile creator needs for one column.
type ProfileInput struct {
	Item     models.WorkItem
	Column   *models.Column
	DataType models.ColumnDataType
	Models   *embeddings.Models
	// SampleSize is the detector's sample size. Creators that re-derive a
	// detection decision look at the same sample. Zero means the default.
	SampleSize int
}

// ProfileCreateFunc builds the profile of one column of a given data type.
type ProfileCreateFunc func(in ProfileInput) (*models.ColumnProfile, error)

// ProfileCreators maps each profiled data type to its creator. Unknown
// (all-missing) columns have no entry and are dropped.
var ProfileCreators = map[models.ColumnDataType]ProfileCreateFunc{
	models.ColumnDataTypeInt:                 createNumericProfile,
	models.ColumnDataTypeFloat:               createNumericProfile,
	models.ColumnDataTypeBoolean:             createBooleanProfile,
	models.ColumnDataTypeDate:                createDateProfile,
	models.ColumnDataTypeString:              createStringProfile,
	models.ColumnDataTypeNamedEntity:         createNamedEntityProfile,
	models.ColumnDataTypeNaturalLanguageText: createNaturalLanguageProfile,
}

// CreateProfile dispatches to the creator registered for in.DataType.
func CreateProfile(in ProfileInput) (*models.ColumnProfile, error) {
	create, ok := ProfileCreators[in.DataType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrNoProfileCreator, in.DataType)
	}
	return create(in)
}

// EmbeddingDim returns the documented embedding dimension for a data type.
// Model-derived dimensions come from m.
func EmbeddingDim(t models.ColumnDataType, m *embeddings.Models) int {
	switch t {
	case models.ColumnDataTypeInt, models.ColumnDataTypeFloat:
		return models.NumericEmbeddingDim
	case models.ColumnDataTypeBoolean:
		return models.BooleanEmbeddingDim
	case models.ColumnDataTypeDate:
		return models.DateEmbeddingDim
	case models.ColumnDataTypeString:
		return models.StringEmbeddingDim
	case models.ColumnDataTypeNamedEntity:
		return m.WordVectors.Dim()
	case models.ColumnDataTypeNaturalLanguageText:
		return m.NLEmbeddingDim()
	default:
		return 0
	}
}

// newBaseProfile fills the fields shared by every data type.
func newBaseProfile(in ProfileInput) *models.ColumnProfile {
	id := in.Item.Identity()
	return &models.ColumnProfile{
		ColumnID:            id.String(),
		Key:                 id.Key(),
		DatasetID:           in.Item.Table.DatasetID(),
		TableID:             in.Item.Table.TableID(),
		Origin:              in.Item.Table.DataSource,
		DatasetName:         in.Item.Table.DatasetName,
		TableName:           in.Item.Table.TableName(),
		Path:                in.Item.Table.Path,
		ColumnName:          in.Item.ColumnName,
		DataType:            in.DataType,
		TotalValuesCount:    in.Column.Total,
		DistinctValuesCount: in.Column.DistinctCount(),
		MissingValuesCount:  in.Column.Missing,
	}
}

func setEmbedding(p *models.ColumnProfile, embedding []float64) {
	p.Embedding = embedding
	p.EmbeddingDim = len(embedding)
}
