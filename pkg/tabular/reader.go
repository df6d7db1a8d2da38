package tabular

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-profiler/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
)

// parserAttempt is one way of reading a table. Attempts for a format are tried
// in order and the first success wins.
type parserAttempt struct {
	name       string
	readHeader func(path string) ([]string, error)
	readColumn func(path, column string) ([]string, error)
}

func attemptsFor(format models.TableFormat) ([]parserAttempt, error) {
	switch format {
	case models.TableFormatCSV:
		attempts := make([]parserAttempt, len(csvDialects))
		for i, d := range csvDialects {
			attempts[i] = parserAttempt{name: d.name, readHeader: d.readHeader, readColumn: d.readColumn}
		}
		return attempts, nil
	case models.TableFormatParquet:
		return []parserAttempt{{name: "parquet", readHeader: readParquetHeader, readColumn: readParquetColumn}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, format)
	}
}

// guard turns a panic inside a decoder into an error. The parquet decoder
// panics on some truncated footers.
func guard(read func() ([]string, error)) (cells []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return read()
}

// ReadHeader returns the normalized column names of a table without reading
// its rows.
func ReadHeader(table models.Table) ([]string, error) {
	attempts, err := attemptsFor(table.Format)
	if err != nil {
		return nil, err
	}

	failed := make([]AttemptError, 0, len(attempts))
	for _, a := range attempts {
		names, err := guard(func() ([]string, error) { return a.readHeader(table.Path) })
		if err == nil {
			return NormalizeHeader(names), nil
		}
		failed = append(failed, AttemptError{Parser: a.name, Err: err})
	}
	return nil, &UnparseableColumnError{Path: table.Path, Attempts: failed}
}

// ReadRawColumn returns the cells of one column as text, in row order.
func ReadRawColumn(table models.Table, column string) ([]string, error) {
	attempts, err := attemptsFor(table.Format)
	if err != nil {
		return nil, err
	}

	failed := make([]AttemptError, 0, len(attempts))
	for _, a := range attempts {
		cells, err := guard(func() ([]string, error) { return a.readColumn(table.Path, column) })
		if err == nil {
			return cells, nil
		}
		failed = append(failed, AttemptError{Parser: a.name, Err: err})
	}
	return nil, &UnparseableColumnError{Path: table.Path, Column: column, Attempts: failed}
}

// ReadColumn reads one column of a table and coerces it.
func ReadColumn(table models.Table, column string) (*models.Column, error) {
	cells, err := ReadRawColumn(table, column)
	if err != nil {
		return nil, err
	}
	return Coerce(column, cells), nil
}
