package tabular

import (
	"math"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
)

// missingValues are the cell texts treated as missing. This is the usual
// dataframe NA set plus a lone space, '?' and '-', which show up as
// placeholders in scraped datasets.
var missingValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
	" ": {}, "?": {}, "-": {},
}

// IsMissing reports whether a cell is a missing-value marker.
func IsMissing(cell string) bool {
	_, ok := missingValues[cell]
	return ok
}

var boolLiterals = map[string]bool{
	"True": true, "TRUE": true, "true": true,
	"False": false, "FALSE": false, "false": false,
}

// Coerce converts raw cells into a typed column. Missing markers are counted
// and dropped. The remaining cells become:
//   - bool when every value is a true/false literal
//   - int when every value is written as a base-10 integer that fits int64
//   - float when every value parses as a number
//   - string otherwise
func Coerce(name string, cells []string) *models.Column {
	col := &models.Column{
		Name:  name,
		Kind:  models.ValueKindString,
		Total: len(cells),
	}

	for _, c := range cells {
		if IsMissing(c) {
			col.Missing++
			continue
		}
		col.Values = append(col.Values, c)
	}
	if len(col.Values) == 0 {
		return col
	}

	if bools, ok := parseBools(col.Values); ok {
		col.Kind = models.ValueKindBool
		col.Bools = bools
		return col
	}

	if numbers, ints, ok := parseNumbers(col.Values); ok {
		col.Numbers = numbers
		col.Ints = ints
		if ints != nil {
			col.Kind = models.ValueKindInt
		} else {
			col.Kind = models.ValueKindFloat
		}
	}
	return col
}

func parseBools(values []string) ([]bool, bool) {
	out := make([]bool, len(values))
	for i, v := range values {
		b, ok := boolLiterals[v]
		if !ok {
			return nil, false
		}
		out[i] = b
	}
	return out, true
}

// parseNumbers parses every value as a finite number. Integral-ness comes
// from the text: ints is nil unless every value parses with ParseInt, so
// "1.0" is a float and large IDs keep their exact value.
func parseNumbers(values []string) (numbers []float64, ints []int64, ok bool) {
	numbers = make([]float64, len(values))
	ints = make([]int64, len(values))
	for i, v := range values {
		v = strings.TrimSpace(v)
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			if ints != nil {
				ints[i] = n
			}
			numbers[i] = float64(n)
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, nil, false
		}
		ints = nil
		numbers[i] = f
	}
	return numbers, ints, true
}
