package spi

import (
	"fmt"
	"strings"
)

// Type identifies the engine-side type of a column
type Type string

// Supported column types
const (
	Boolean Type = "boolean"
	Bigint  Type = "bigint"
	Double  Type = "double"
	Varchar Type = "varchar"
)

// String returns the SQL name of the type
func (t Type) String() string {
	return string(t)
}

// ParseType converts a SQL type name into a Type
func ParseType(name string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(name))) {
	case Boolean:
		return Boolean, nil
	case Bigint:
		return Bigint, nil
	case Double:
		return Double, nil
	case Varchar:
		return Varchar, nil
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidArgument, name)
	}
}

// SchemaTableName is a fully qualified table name
type SchemaTableName struct {
	Schema string
	Table  string
}

// String returns schema.table
func (n SchemaTableName) String() string {
	return n.Schema + "." + n.Table
}

// ColumnMetadata describes a column as seen by the engine
type ColumnMetadata struct {
	Name   string
	Type   Type
	Hidden bool
}

// TableMetadata describes a table as seen by the engine
type TableMetadata struct {
	Table   SchemaTableName
	Columns []ColumnMetadata
}
