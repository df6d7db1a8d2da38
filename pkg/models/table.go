package models

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"path/filepath"
	"strings"
)

// TableFormat identifies how a table file is encoded on disk.
type TableFormat string

const (
	TableFormatCSV     TableFormat = "csv"
	TableFormatParquet TableFormat = "parquet"
)

// TableFormatForPath returns the format for a file path based on its
// extension, and false when the file is not a supported tabular file.
func TableFormatForPath(path string) (TableFormat, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return TableFormatCSV, true
	case ".parquet":
		return TableFormatParquet, true
	default:
		return "", false
	}
}

// Table is a discovered tabular file. Tables are never mutated after discovery.
type Table struct {
	DataSource  string      `json:"data_source"`
	DatasetName string      `json:"dataset_name"`
	Path        string      `json:"path"`
	Format      TableFormat `json:"format"`
}

// TableName returns the file name of the table, which is how tables are named
// in column identities.
func (t Table) TableName() string {
	return filepath.Base(t.Path)
}

// DatasetID returns the identifier of the dataset owning this table.
func (t Table) DatasetID() string {
	return joinIdentity(t.DataSource, t.DatasetName)
}

// TableID returns the identifier of this table.
func (t Table) TableID() string {
	return joinIdentity(t.DataSource, t.DatasetName, "dataResource", t.TableName())
}

// WorkItem pairs a column name with the table it belongs to. Work items only
// live between discovery and the partition worker that profiles them.
type WorkItem struct {
	ColumnName string `json:"column_name"`
	Table      Table  `json:"table"`
}

// Identity returns the column identity of this work item.
func (w WorkItem) Identity() ColumnIdentity {
	return NewColumnIdentity(w.Table.DataSource, w.Table.DatasetName, w.Table.TableName(), w.ColumnName)
}

// ColumnIdentity names a (data source, dataset, table, column) tuple.
type ColumnIdentity struct {
	DataSource  string
	DatasetName string
	TableName   string
	ColumnName  string
}

// NewColumnIdentity builds a column identity.
func NewColumnIdentity(dataSource, datasetName, tableName, columnName string) ColumnIdentity {
	return ColumnIdentity{
		DataSource:  dataSource,
		DatasetName: datasetName,
		TableName:   tableName,
		ColumnName:  columnName,
	}
}

// String returns the column ID, e.g. "kaggle/titanic/dataResource/train.csv/Age".
// Every segment is path-escaped so separators inside names cannot collide.
func (c ColumnIdentity) String() string {
	return joinIdentity(c.DataSource, c.DatasetName, "dataResource", c.TableName, c.ColumnName)
}

// Key returns the profile key: the hex MD5 digest of the column ID. The key is
// stable across processes and machines, which is what incremental runs rely on.
func (c ColumnIdentity) Key() string {
	sum := md5.Sum([]byte(c.String()))
	return hex.EncodeToString(sum[:])
}

func joinIdentity(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.Join(escaped, "/")
}
