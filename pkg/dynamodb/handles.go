// Package dynamodb implements a query engine connector that reads
// DynamoDB-style tables from a key-value table store.
package dynamodb

import (
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/jugaji/presto-dynamodb/pkg/spi"
)

// ColumnHandle locates a column in the rows a cursor produces
type ColumnHandle struct {
	ConnectorID string `json:"connector_id"`
	// ColumnName is the engine visible name
	ColumnName string `json:"column_name"`
	// AttributeName is the item attribute the column reads
	AttributeName string   `json:"attribute_name"`
	ColumnType    spi.Type `json:"column_type"`
	// OrdinalPosition is the column's index in the table's column list
	OrdinalPosition int `json:"ordinal_position"`
}

// Name returns the engine visible column name
func (h ColumnHandle) Name() string {
	return h.ColumnName
}

// Metadata returns the engine column metadata of the handle
func (h ColumnHandle) Metadata() spi.ColumnMetadata {
	return spi.ColumnMetadata{Name: h.ColumnName, Type: h.ColumnType}
}

// TableHandle identifies a table of the connector
type TableHandle struct {
	ConnectorID string `json:"connector_id"`
	SchemaName  string `json:"schema_name"`
	TableName   string `json:"table_name"`
}

// SchemaTableName returns the qualified name of the table
func (h TableHandle) SchemaTableName() spi.SchemaTableName {
	return spi.SchemaTableName{Schema: h.SchemaName, Table: h.TableName}
}

// Split is one parallel scan segment of a table
type Split struct {
	ConnectorID   string `json:"connector_id"`
	SchemaName    string `json:"schema_name"`
	TableName     string `json:"table_name"`
	Segment       int    `json:"segment"`
	TotalSegments int    `json:"total_segments"`
}

// Info describes the split
func (s Split) Info() map[string]interface{} {
	return map[string]interface{}{
		"connector_id":   s.ConnectorID,
		"schema":         s.SchemaName,
		"table":          s.TableName,
		"segment":        s.Segment,
		"total_segments": s.TotalSegments,
	}
}

// NormalizeColumnName maps an attribute name to its engine column name
func NormalizeColumnName(attributeName string) string {
	return strings.ToLower(strcase.ToSnake(attributeName))
}
