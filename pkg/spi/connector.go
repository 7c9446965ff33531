package spi

import "context"

// ColumnHandle is an opaque connector-specific column reference
type ColumnHandle interface {
	// Name returns the engine visible column name
	Name() string
}

// TableHandle is an opaque connector-specific table reference
type TableHandle interface {
	// SchemaTableName returns the qualified name of the table
	SchemaTableName() SchemaTableName
}

// Split is a unit of parallel work over a table
type Split interface {
	// Info returns a human readable description of the split
	Info() map[string]interface{}
}

// Metadata exposes the catalog of a connector
type Metadata interface {
	ListSchemaNames(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, schema string) ([]SchemaTableName, error)
	TableHandle(ctx context.Context, name SchemaTableName) (TableHandle, error)
	TableMetadata(ctx context.Context, table TableHandle) (TableMetadata, error)
	ColumnHandles(ctx context.Context, table TableHandle) (map[string]ColumnHandle, error)
}

// SplitManager partitions a table into splits
type SplitManager interface {
	Splits(ctx context.Context, table TableHandle) ([]Split, error)
}

// RecordSetProvider creates record sets for splits
type RecordSetProvider interface {
	RecordSet(ctx context.Context, split Split, columns []ColumnHandle) (RecordSet, error)
}

// Connector bundles the services a catalog is made of
type Connector interface {
	Metadata() Metadata
	SplitManager() SplitManager
	RecordSetProvider() RecordSetProvider

	// Shutdown releases the connector's resources
	Shutdown(ctx context.Context) error
}

// ConnectorFactory creates connectors for catalogs
type ConnectorFactory interface {
	// Name is the connector name used in catalog files
	Name() string

	// Create builds a connector for the given catalog and properties
	Create(catalog string, properties map[string]string) (Connector, error)
}
