// Package store defines the key-value table store the connector reads from.
//
// A table is a set of items addressed by the value of a key attribute. Tables
// live in an ordered key-value engine: descriptors under one prefix and items
// under a per-table prefix, so a table scan is a single range iteration.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/jugaji/presto-dynamodb/pkg/attribute"
	"github.com/jugaji/presto-dynamodb/pkg/spi"
)

var (
	// ErrTableNotFound is returned when a table does not exist
	ErrTableNotFound = errors.New("table not found")

	// ErrTableExists is returned when creating a table that already exists
	ErrTableExists = errors.New("table already exists")

	// ErrInvalidTable is returned for malformed table descriptors
	ErrInvalidTable = errors.New("invalid table descriptor")

	// ErrInvalidSegment is returned for out of range scan segments
	ErrInvalidSegment = errors.New("invalid scan segment")

	// ErrMissingKey is returned when an item lacks its key attribute
	ErrMissingKey = errors.New("item is missing its key attribute")

	// ErrClosed is returned when using a closed store
	ErrClosed = errors.New("store is closed")
)

// ColumnDefinition declares a column of a table
type ColumnDefinition struct {
	Name string   `json:"name"`
	Type spi.Type `json:"type"`
}

// TableDescriptor describes a table. Columns are optional; tables without
// declared columns have their schema inferred by readers.
type TableDescriptor struct {
	Name         string             `json:"name"`
	KeyAttribute string             `json:"key_attribute"`
	Columns      []ColumnDefinition `json:"columns,omitempty"`
}

// Validate checks that the descriptor is well formed
func (d TableDescriptor) Validate() error {
	if d.Name == "" || strings.ContainsRune(d.Name, 0) {
		return fmt.Errorf("%w: invalid table name %q", ErrInvalidTable, d.Name)
	}
	if d.KeyAttribute == "" {
		return fmt.Errorf("%w: table %s has no key attribute", ErrInvalidTable, d.Name)
	}

	if len(d.Columns) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(d.Columns))
	for _, col := range d.Columns {
		if col.Name == "" {
			return fmt.Errorf("%w: table %s has a column without a name", ErrInvalidTable, d.Name)
		}
		if seen[col.Name] {
			return fmt.Errorf("%w: duplicate column %q in table %s", ErrInvalidTable, col.Name, d.Name)
		}
		seen[col.Name] = true

		if _, err := spi.ParseType(string(col.Type)); err != nil {
			return fmt.Errorf("%w: column %q: %v", ErrInvalidTable, col.Name, err)
		}
	}

	if !seen[d.KeyAttribute] {
		return fmt.Errorf("%w: key attribute %q is not a declared column", ErrInvalidTable, d.KeyAttribute)
	}
	return nil
}

// ScanOptions configures a scan. TotalSegments splits the table into disjoint
// segments by key hash; zero or one means the whole table.
type ScanOptions struct {
	Segment       int
	TotalSegments int
	// Limit caps the number of returned items, zero means no limit
	Limit int
}

// Validate checks the segment numbers
func (o ScanOptions) Validate() error {
	if o.Segment < 0 || o.TotalSegments < 0 || o.Limit < 0 {
		return fmt.Errorf("%w: negative scan option", ErrInvalidSegment)
	}
	if o.TotalSegments <= 1 && o.Segment != 0 {
		return fmt.Errorf("%w: segment %d without total segments", ErrInvalidSegment, o.Segment)
	}
	if o.TotalSegments > 1 && o.Segment >= o.TotalSegments {
		return fmt.Errorf("%w: segment %d out of range [0, %d)", ErrInvalidSegment, o.Segment, o.TotalSegments)
	}
	return nil
}

// Includes reports whether the item with the given primary key belongs to the scanned segment
func (o ScanOptions) Includes(primaryKey []byte) bool {
	if o.TotalSegments <= 1 {
		return true
	}
	return xxhash.Sum64(primaryKey)%uint64(o.TotalSegments) == uint64(o.Segment)
}

// Scanner iterates through the items of a table
type Scanner interface {
	// Next advances the scanner to the next item
	Next() bool
	// Key returns the primary key of the current item, valid until the next call to Next
	Key() []byte
	// Item returns the current item
	Item() attribute.Item
	// Error returns any error that occurred during iteration
	Error() error
	// Close releases resources associated with the scanner
	Close() error
}

// Store is a key-value table store
type Store interface {
	// CreateTable registers a new table
	CreateTable(ctx context.Context, desc TableDescriptor) error
	// DescribeTable returns the descriptor of a table
	DescribeTable(ctx context.Context, name string) (TableDescriptor, error)
	// ListTables returns the table names in sorted order
	ListTables(ctx context.Context) ([]string, error)
	// PutItem inserts or replaces an item
	PutItem(ctx context.Context, table string, item attribute.Item) error
	// Scan iterates the items of a table or of one of its segments
	Scan(ctx context.Context, table string, opts ScanOptions) (Scanner, error)
	// Close releases the store
	Close() error
}
