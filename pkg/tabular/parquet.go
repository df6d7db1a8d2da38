package tabular

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/ekaya-inc/ekaya-profiler/pkg/apperrors"
)

const parquetReaderParallelism = 4

func openParquet(path string) (*reader.ParquetReader, func(), error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, nil, err
	}
	pr, err := reader.NewParquetColumnReader(fr, parquetReaderParallelism)
	if err != nil {
		fr.Close()
		return nil, nil, err
	}
	return pr, func() {
		pr.ReadStop()
		fr.Close()
	}, nil
}

// readParquetHeader returns the names of the top-level primitive columns in
// footer order. Nested groups are skipped; they have no single-column form.
func readParquetHeader(path string) ([]string, error) {
	pr, done, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer done()

	elements := pr.Footer.GetSchema()
	if len(elements) == 0 {
		return nil, fmt.Errorf("parquet footer has no schema")
	}

	var names []string
	// elements[0] is the root; walk its direct children and skip over the
	// descendants of any group.
	for i := 1; i < len(elements); {
		el := elements[i]
		if el.GetNumChildren() == 0 {
			names = append(names, el.GetName())
			i++
			continue
		}
		i = skipParquetGroup(elements, i)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("parquet schema has no primitive columns")
	}
	return names, nil
}

// skipParquetGroup returns the index just past the group at i and all of its
// descendants.
func skipParquetGroup(elements []*parquet.SchemaElement, i int) int {
	pending := 1
	for pending > 0 && i < len(elements) {
		pending += int(elements[i].GetNumChildren()) - 1
		i++
	}
	return i
}

func readParquetColumn(path, column string) ([]string, error) {
	header, err := readParquetHeader(path)
	if err != nil {
		return nil, err
	}
	if columnIndex(header, column) < 0 {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrColumnNotFound, column)
	}

	pr, done, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer done()

	numRows := pr.GetNumRows()
	if numRows == 0 {
		return nil, nil
	}

	colPath := common.ReformPathStr(pr.SchemaHandler.GetRootExName() + "." + column)
	values, _, _, err := pr.ReadColumnByPath(colPath, numRows)
	if err != nil {
		return nil, fmt.Errorf("failed to read column %q: %w", column, err)
	}

	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = formatParquetValue(v)
	}
	return cells, nil
}

// formatParquetValue renders a decoded parquet value as text. Nulls become
// the empty string, which coercion treats as missing.
func formatParquetValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return formatFloat(float64(val), 32)
	case float64:
		return formatFloat(val, 64)
	default:
		return fmt.Sprint(val)
	}
}

// formatFloat keeps a decimal point on integral floats so a DOUBLE column
// of whole numbers is still coerced to float.
func formatFloat(f float64, bitSize int) string {
	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	if strings.ContainsAny(s, ".eEnN") {
		return s
	}
	return s + ".0"
}
