package spi

import "context"

// RecordCursor iterates over the rows of a record set one position at a time.
// Fields are addressed by their position in the projected column list.
type RecordCursor interface {
	// TotalBytes returns the number of bytes the cursor expects to read
	TotalBytes() int64

	// CompletedBytes returns the number of bytes read so far
	CompletedBytes() int64

	// ReadTimeNanos returns the time spent reading
	ReadTimeNanos() int64

	// Type returns the type of the given field
	Type(field int) (Type, error)

	// AdvanceNextPosition moves to the next row, returning false at the end
	AdvanceNextPosition() bool

	// Boolean returns the value of a boolean field
	Boolean(field int) (bool, error)

	// Long returns the value of a bigint field
	Long(field int) (int64, error)

	// Double returns the value of a double field
	Double(field int) (float64, error)

	// Slice returns the value of a varchar field
	Slice(field int) ([]byte, error)

	// Object returns the value of a structural field
	Object(field int) (interface{}, error)

	// IsNull reports whether the field is null in the current row
	IsNull(field int) (bool, error)

	// Err returns the error that stopped the cursor, if any
	Err() error

	// Close releases resources held by the cursor
	Close() error
}

// RecordSet is a projected set of rows from a single split
type RecordSet interface {
	// ColumnTypes returns the types of the projected columns
	ColumnTypes() []Type

	// Cursor starts reading the record set
	Cursor(ctx context.Context) (RecordCursor, error)
}
