package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	item "github.com/jugaji/presto-dynamodb/pkg/attribute"
	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/spi"
	"github.com/jugaji/presto-dynamodb/pkg/telemetry"
)

// cursorTotalBytes is reported as both the total and the completed byte count
const cursorTotalBytes = 100

// RecordCursor reads the rows of a table scan. Each item of the pre-fetched
// batches becomes a row of text fields indexed by column ordinal position;
// the typed readers coerce that text to the declared column type.
type RecordCursor struct {
	tableName     string
	columnHandles []ColumnHandle
	// fieldToColumnIndex maps a projected field to its ordinal position
	fieldToColumnIndex []int
	rowWidth           int

	tableData ItemBatchIterator
	batch     []item.Item
	position  int

	fields     []string
	totalBytes int64
	rows       int64
	batches    int64
	err        error
	advanced   bool
	closed     bool

	ctx       context.Context
	span      trace.Span
	logger    log.Logger
	telemetry telemetry.Telemetry
}

var _ spi.RecordCursor = (*RecordCursor)(nil)

// CursorOption configures a RecordCursor
type CursorOption func(*RecordCursor)

// WithCursorContext sets the context used for telemetry
func WithCursorContext(ctx context.Context) CursorOption {
	return func(c *RecordCursor) {
		c.ctx = ctx
	}
}

// WithCursorLogger sets the cursor logger
func WithCursorLogger(logger log.Logger) CursorOption {
	return func(c *RecordCursor) {
		c.logger = logger
	}
}

// WithCursorTelemetry sets the cursor telemetry
func WithCursorTelemetry(tel telemetry.Telemetry) CursorOption {
	return func(c *RecordCursor) {
		c.telemetry = tel
	}
}

// WithCursorSpan hands the cursor a span that ends when the cursor is closed
func WithCursorSpan(span trace.Span) CursorOption {
	return func(c *RecordCursor) {
		c.span = span
	}
}

// NewRecordCursor creates a cursor over the batches of tableData, projecting
// columnHandles. A nil tableData yields no rows.
func NewRecordCursor(tableName string, columnHandles []ColumnHandle, tableData ItemBatchIterator, opts ...CursorOption) (*RecordCursor, error) {
	fieldToColumnIndex := make([]int, len(columnHandles))
	rowWidth := 0
	for i, handle := range columnHandles {
		if handle.OrdinalPosition < 0 {
			return nil, fmt.Errorf("%w: column %s has negative ordinal position %d",
				spi.ErrInvalidArgument, handle.ColumnName, handle.OrdinalPosition)
		}
		fieldToColumnIndex[i] = handle.OrdinalPosition
		if handle.OrdinalPosition >= rowWidth {
			rowWidth = handle.OrdinalPosition + 1
		}
	}

	if tableData == nil {
		tableData = NewSliceBatchIterator()
	}

	c := &RecordCursor{
		tableName:          tableName,
		columnHandles:      columnHandles,
		fieldToColumnIndex: fieldToColumnIndex,
		rowWidth:           rowWidth,
		tableData:          tableData,
		totalBytes:         cursorTotalBytes,
		ctx:                context.Background(),
		logger:             log.NewNop(),
		telemetry:          telemetry.NewNoop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithFields(map[string]interface{}{
		"component": telemetry.ComponentCursor,
		"table":     tableName,
	})

	return c, nil
}

func (c *RecordCursor) TotalBytes() int64 {
	return c.totalBytes
}

func (c *RecordCursor) CompletedBytes() int64 {
	return c.totalBytes
}

func (c *RecordCursor) ReadTimeNanos() int64 {
	return 0
}

func (c *RecordCursor) checkField(field int) error {
	if field < 0 || field >= len(c.columnHandles) {
		return fmt.Errorf("%w: invalid field index %d", spi.ErrInvalidArgument, field)
	}
	return nil
}

// Type returns the declared type of a field
func (c *RecordCursor) Type(field int) (spi.Type, error) {
	if err := c.checkField(field); err != nil {
		return "", err
	}
	return c.columnHandles[field].ColumnType, nil
}

// AdvanceNextPosition moves to the next row, fetching the next non-empty
// batch when the current one is used up. It returns false at the end of the
// data, after Close, or when fetching fails; Err reports the failure.
func (c *RecordCursor) AdvanceNextPosition() bool {
	if c.closed || c.err != nil {
		return false
	}
	c.advanced = true

	for c.position >= len(c.batch) {
		if !c.tableData.Next() {
			if err := c.tableData.Err(); err != nil {
				c.err = fmt.Errorf("failed to read table %s: %w", c.tableName, err)
			}
			c.batch = nil
			c.fields = nil
			return false
		}
		c.batch = c.tableData.Batch()
		c.position = 0
		c.batches++
	}

	c.fields = c.rowFields(c.batch[c.position])
	c.position++
	c.rows++
	return true
}

// rowFields lays out the text of each projected attribute at its ordinal position
func (c *RecordCursor) rowFields(it item.Item) []string {
	fields := make([]string, c.rowWidth)
	for _, handle := range c.columnHandles {
		fields[handle.OrdinalPosition] = it[handle.AttributeName].Text()
	}
	return fields
}

func (c *RecordCursor) fieldValue(field int) (string, error) {
	if c.fields == nil {
		if c.advanced {
			return "", fmt.Errorf("%w: cursor has no current row", spi.ErrIllegalState)
		}
		return "", fmt.Errorf("%w: cursor has not been advanced yet", spi.ErrIllegalState)
	}
	return c.fields[c.fieldToColumnIndex[field]], nil
}

func (c *RecordCursor) checkFieldType(field int, expected spi.Type) error {
	actual, err := c.Type(field)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("%w: expected field %d to be type %s but is %s", spi.ErrInvalidArgument, field, expected, actual)
	}
	return nil
}

// typedValue checks the field type and returns the text of the field
func (c *RecordCursor) typedValue(field int, expected spi.Type) (string, error) {
	if err := c.checkFieldType(field, expected); err != nil {
		return "", err
	}
	return c.fieldValue(field)
}

// Boolean reports whether the field text is "true", ignoring case
func (c *RecordCursor) Boolean(field int) (bool, error) {
	value, err := c.typedValue(field, spi.Boolean)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(value, "true"), nil
}

func (c *RecordCursor) Long(field int) (int64, error) {
	value, err := c.typedValue(field, spi.Bigint)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %d: %w", field, err)
	}
	return n, nil
}

func (c *RecordCursor) Double(field int) (float64, error) {
	value, err := c.typedValue(field, spi.Double)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("field %d: %w", field, err)
	}
	return f, nil
}

// Slice returns the UTF-8 bytes of a varchar field
func (c *RecordCursor) Slice(field int) ([]byte, error) {
	value, err := c.typedValue(field, spi.Varchar)
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

// Object is not supported by this cursor
func (c *RecordCursor) Object(field int) (interface{}, error) {
	return nil, fmt.Errorf("%w: object access to field %d", spi.ErrUnsupported, field)
}

// IsNull reports whether the field text is empty. Missing attributes read as empty.
func (c *RecordCursor) IsNull(field int) (bool, error) {
	if err := c.checkField(field); err != nil {
		return false, err
	}
	value, err := c.fieldValue(field)
	if err != nil {
		return false, err
	}
	return value == "", nil
}

func (c *RecordCursor) Err() error {
	return c.err
}

// Close releases the batch iterator. Closing twice is a no-op.
func (c *RecordCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.fields = nil
	c.batch = nil

	err := c.tableData.Close()

	attrs := []attribute.KeyValue{
		attribute.String(telemetry.AttrComponent, telemetry.ComponentCursor),
		attribute.String(telemetry.AttrTable, c.tableName),
	}
	c.telemetry.RecordCounter(c.ctx, telemetry.MetricCursorRows, c.rows, attrs...)
	c.telemetry.RecordCounter(c.ctx, telemetry.MetricCursorBatches, c.batches, attrs...)
	c.logger.Debug("Closed cursor after %d rows in %d batches", c.rows, c.batches)

	if err != nil {
		err = fmt.Errorf("failed to close table data: %w", err)
	}
	if c.span != nil {
		c.span.SetAttributes(
			attribute.Int64(telemetry.AttrRows, c.rows),
			attribute.Int64(telemetry.AttrBatches, c.batches),
		)
		telemetry.EndSpan(c.span, errors.Join(c.err, err))
	}
	return err
}
