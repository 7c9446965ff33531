package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jugaji/presto-dynamodb/pkg/spi"
)

// Metadata exposes the tables of the store as engine tables
type Metadata struct {
	connectorID string
	client      *Client
}

var _ spi.Metadata = (*Metadata)(nil)

// NewMetadata creates the metadata service of a connector
func NewMetadata(connectorID string, client *Client) *Metadata {
	return &Metadata{connectorID: connectorID, client: client}
}

func (m *Metadata) ListSchemaNames(ctx context.Context) ([]string, error) {
	return m.client.SchemaNames(), nil
}

// ListTables lists the tables of a schema, or of every schema when schema is empty
func (m *Metadata) ListTables(ctx context.Context, schema string) ([]spi.SchemaTableName, error) {
	schemas := []string{schema}
	if schema == "" {
		schemas = m.client.SchemaNames()
	}

	var tables []spi.SchemaTableName
	for _, s := range schemas {
		names, err := m.client.TableNames(ctx, s)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			tables = append(tables, spi.SchemaTableName{Schema: s, Table: name})
		}
	}
	return tables, nil
}

// TableHandle returns a handle for an existing table
func (m *Metadata) TableHandle(ctx context.Context, name spi.SchemaTableName) (spi.TableHandle, error) {
	if _, err := m.client.Table(ctx, name.Schema, name.Table); err != nil {
		return nil, err
	}
	return TableHandle{
		ConnectorID: m.connectorID,
		SchemaName:  name.Schema,
		TableName:   name.Table,
	}, nil
}

func (m *Metadata) TableMetadata(ctx context.Context, handle spi.TableHandle) (spi.TableMetadata, error) {
	th, err := m.tableHandle(handle)
	if err != nil {
		return spi.TableMetadata{}, err
	}

	table, err := m.client.Table(ctx, th.SchemaName, th.TableName)
	if err != nil {
		return spi.TableMetadata{}, err
	}
	return spi.TableMetadata{
		Table:   th.SchemaTableName(),
		Columns: table.ColumnsMetadata(),
	}, nil
}

// ColumnHandles returns the handles of a table's columns keyed by column name.
// Ordinal positions follow the table's column order.
func (m *Metadata) ColumnHandles(ctx context.Context, handle spi.TableHandle) (map[string]spi.ColumnHandle, error) {
	columns, err := m.OrderedColumnHandles(ctx, handle)
	if err != nil {
		return nil, err
	}

	handles := make(map[string]spi.ColumnHandle, len(columns))
	for _, col := range columns {
		handles[col.ColumnName] = col
	}
	return handles, nil
}

// OrderedColumnHandles returns the column handles of a table in ordinal order
func (m *Metadata) OrderedColumnHandles(ctx context.Context, handle spi.TableHandle) ([]ColumnHandle, error) {
	th, err := m.tableHandle(handle)
	if err != nil {
		return nil, err
	}

	table, err := m.client.Table(ctx, th.SchemaName, th.TableName)
	if err != nil {
		return nil, err
	}

	columns := make([]ColumnHandle, len(table.Columns))
	for i, col := range table.Columns {
		columns[i] = ColumnHandle{
			ConnectorID:     m.connectorID,
			ColumnName:      col.Name,
			AttributeName:   col.AttributeName,
			ColumnType:      col.Type,
			OrdinalPosition: i,
		}
	}
	return columns, nil
}

// ListTableColumns returns the columns of every table matching prefix. An
// empty prefix table matches every table of the schema, an empty schema every schema.
func (m *Metadata) ListTableColumns(ctx context.Context, prefix spi.SchemaTableName) (map[spi.SchemaTableName][]spi.ColumnMetadata, error) {
	var names []spi.SchemaTableName
	if prefix.Table != "" {
		names = []spi.SchemaTableName{prefix}
	} else {
		var err error
		if names, err = m.ListTables(ctx, prefix.Schema); err != nil {
			return nil, err
		}
	}

	columns := make(map[spi.SchemaTableName][]spi.ColumnMetadata, len(names))
	for _, name := range names {
		table, err := m.client.Table(ctx, name.Schema, name.Table)
		if err != nil {
			// tables can disappear between listing and describing
			if errors.Is(err, spi.ErrNotFound) {
				continue
			}
			return nil, err
		}
		columns[name] = table.ColumnsMetadata()
	}
	return columns, nil
}

func (m *Metadata) tableHandle(handle spi.TableHandle) (TableHandle, error) {
	switch h := handle.(type) {
	case TableHandle:
		return h, nil
	case *TableHandle:
		return *h, nil
	default:
		return TableHandle{}, fmt.Errorf("%w: unexpected table handle %T", spi.ErrInvalidArgument, handle)
	}
}
