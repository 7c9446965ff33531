package dynamodb

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jugaji/presto-dynamodb/pkg/spi"
	"github.com/jugaji/presto-dynamodb/pkg/telemetry"
)

// RecordSetProvider creates record sets reading splits through a Client
type RecordSetProvider struct {
	connectorID string
	client      *Client
	batchSize   int
}

var _ spi.RecordSetProvider = (*RecordSetProvider)(nil)

// NewRecordSetProvider creates a record set provider
func NewRecordSetProvider(connectorID string, client *Client, batchSize int) *RecordSetProvider {
	return &RecordSetProvider{
		connectorID: connectorID,
		client:      client,
		batchSize:   batchSize,
	}
}

// RecordSet projects columns out of a split
func (p *RecordSetProvider) RecordSet(ctx context.Context, split spi.Split, columns []spi.ColumnHandle) (spi.RecordSet, error) {
	var s Split
	switch v := split.(type) {
	case Split:
		s = v
	case *Split:
		s = *v
	default:
		return nil, fmt.Errorf("%w: unexpected split %T", spi.ErrInvalidArgument, split)
	}
	if s.ConnectorID != p.connectorID {
		return nil, fmt.Errorf("%w: split belongs to connector %q", spi.ErrInvalidArgument, s.ConnectorID)
	}

	handles := make([]ColumnHandle, len(columns))
	for i, col := range columns {
		switch h := col.(type) {
		case ColumnHandle:
			handles[i] = h
		case *ColumnHandle:
			handles[i] = *h
		default:
			return nil, fmt.Errorf("%w: unexpected column handle %T", spi.ErrInvalidArgument, col)
		}
	}

	return NewRecordSet(p.client, s, handles, p.batchSize), nil
}

// RecordSet is the projection of a split onto a list of columns
type RecordSet struct {
	client      *Client
	split       Split
	columns     []ColumnHandle
	columnTypes []spi.Type
	batchSize   int
}

var _ spi.RecordSet = (*RecordSet)(nil)

// NewRecordSet creates a record set
func NewRecordSet(client *Client, split Split, columns []ColumnHandle, batchSize int) *RecordSet {
	types := make([]spi.Type, len(columns))
	for i, col := range columns {
		types[i] = col.ColumnType
	}
	return &RecordSet{
		client:      client,
		split:       split,
		columns:     columns,
		columnTypes: types,
		batchSize:   batchSize,
	}
}

func (r *RecordSet) ColumnTypes() []spi.Type {
	return r.columnTypes
}

// Cursor starts scanning the split. The cursor span lasts until the cursor is closed.
func (r *RecordSet) Cursor(ctx context.Context) (spi.RecordCursor, error) {
	ctx, span := r.client.telemetry.StartSpan(ctx, telemetry.SpanCursor,
		attribute.String(telemetry.AttrTable, r.split.TableName),
		attribute.Int(telemetry.AttrSegment, r.split.Segment),
	)

	data, err := r.client.Scan(ctx, r.split, r.batchSize)
	if err != nil {
		telemetry.EndSpan(span, err)
		return nil, err
	}

	cursor, err := NewRecordCursor(r.split.TableName, r.columns, data,
		WithCursorContext(ctx),
		WithCursorSpan(span),
		WithCursorLogger(r.client.base),
		WithCursorTelemetry(r.client.telemetry),
	)
	if err != nil {
		data.Close()
		telemetry.EndSpan(span, err)
		return nil, err
	}
	return cursor, nil
}
