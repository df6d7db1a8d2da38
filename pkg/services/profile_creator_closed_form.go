package services

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-profiler/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
)

// createNumericProfile handles int and float columns. The embedding is 16
// evenly spaced quantiles of sign(x)·log(1+|x|), which keeps columns of very
// different magnitudes comparable.
func createNumericProfile(in ProfileInput) (*models.ColumnProfile, error) {
	nums := in.Column.Numbers
	if len(nums) == 0 {
		return nil, fmt.Errorf("%w: no numeric values", apperrors.ErrEmptySample)
	}

	sorted := sortedCopy(nums)
	p := newBaseProfile(in)
	p.NumericStats = &models.NumericStats{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean(nums),
		Median: quantile(sorted, 0.5),
		IQR:    quantile(sorted, 0.75) - quantile(sorted, 0.25),
		StdDev: stdDev(nums),
	}
	if ints := in.Column.Ints; len(ints) > 0 {
		lo, hi := slices.Min(ints), slices.Max(ints)
		p.NumericStats.IntMin, p.NumericStats.IntMax = &lo, &hi
	}

	// The transform is monotonic, so quantiles of the sorted input map
	// directly onto quantiles of the transformed values.
	embedding := make([]float64, models.NumericEmbeddingDim)
	for i := range embedding {
		q := quantile(sorted, float64(i)/float64(models.NumericEmbeddingDim-1))
		embedding[i] = signedLog1p(q)
	}
	setEmbedding(p, embedding)
	return p, nil
}

func signedLog1p(x float64) float64 {
	return math.Copysign(math.Log1p(math.Abs(x)), x)
}

// createBooleanProfile handles bool columns, 0/1 numeric columns and string
// columns written in one true/false vocabulary.
func createBooleanProfile(in ProfileInput) (*models.ColumnProfile, error) {
	values := booleanValues(in.Column, in.SampleSize)
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no boolean values", apperrors.ErrEmptySample)
	}

	trues := 0
	for _, v := range values {
		if v {
			trues++
		}
	}
	trueRatio := float64(trues) / float64(len(values))

	p := newBaseProfile(in)
	p.BooleanStats = &models.BooleanStats{TrueRatio: trueRatio}
	setEmbedding(p, []float64{trueRatio, 1 - trueRatio})
	return p, nil
}

// booleanValues converts the column to booleans. The vocabulary comes from
// the same sample type detection used. Values outside it are ignored.
func booleanValues(col *models.Column, sampleSize int) []bool {
	switch col.Kind {
	case models.ValueKindBool:
		return col.Bools
	case models.ValueKindInt, models.ValueKindFloat:
		out := make([]bool, 0, len(col.Numbers))
		for _, n := range col.Numbers {
			if n == 0 || n == 1 {
				out = append(out, n == 1)
			}
		}
		return out
	}

	if sampleSize < 1 {
		sampleSize = DefaultSampleSize
	}
	vocab := booleanVocabulary(strideSample(col.Values, sampleSize))
	if vocab == nil {
		return nil
	}
	out := make([]bool, 0, len(col.Values))
	for _, v := range col.Values {
		if b, ok := vocab[strings.ToLower(strings.TrimSpace(v))]; ok {
			out = append(out, b)
		}
	}
	return out
}

// createDateProfile computes the date range and a calendar embedding:
// 12 month frequencies followed by 7 weekday frequencies (Sunday first).
// Values that do not parse are ignored.
func createDateProfile(in ProfileInput) (*models.ColumnProfile, error) {
	var earliest, latest time.Time
	days := make(map[string]struct{})
	embedding := make([]float64, models.DateEmbeddingDim)
	parsed := 0

	for _, v := range in.Column.Values {
		t, ok := parseDate(v)
		if !ok {
			continue
		}
		if parsed == 0 || t.Before(earliest) {
			earliest = t
		}
		if parsed == 0 || t.After(latest) {
			latest = t
		}
		parsed++
		days[t.Format("2006-01-02")] = struct{}{}
		embedding[int(t.Month())-1]++
		embedding[12+int(t.Weekday())]++
	}
	if parsed == 0 {
		return nil, fmt.Errorf("%w: no parseable dates", apperrors.ErrEmptySample)
	}
	for i := range embedding {
		embedding[i] /= float64(parsed)
	}

	p := newBaseProfile(in)
	p.DateStats = &models.DateStats{
		Earliest:     earliest.Format(time.RFC3339),
		Latest:       latest.Format(time.RFC3339),
		DistinctDays: len(days),
	}
	setEmbedding(p, embedding)
	return p, nil
}
