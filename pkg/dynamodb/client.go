package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.opentelemetry.io/otel/attribute"

	item "github.com/jugaji/presto-dynamodb/pkg/attribute"
	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/config"
	"github.com/jugaji/presto-dynamodb/pkg/spi"
	"github.com/jugaji/presto-dynamodb/pkg/store"
	"github.com/jugaji/presto-dynamodb/pkg/telemetry"
)

// Column is a column of a table as exposed to the engine
type Column struct {
	Name          string
	AttributeName string
	Type          spi.Type
}

// Table is the engine view of a store table
type Table struct {
	Name         string
	KeyAttribute string
	Columns      []Column
}

// ColumnsMetadata returns the engine metadata of the table's columns
func (t *Table) ColumnsMetadata() []spi.ColumnMetadata {
	columns := make([]spi.ColumnMetadata, len(t.Columns))
	for i, col := range t.Columns {
		columns[i] = spi.ColumnMetadata{Name: col.Name, Type: col.Type}
	}
	return columns
}

// Client wraps a table store with schema resolution and batched scans
type Client struct {
	store     store.Store
	cfg       *config.Config
	cache     *ristretto.Cache
	base      log.Logger // logger without the component field, handed to cursors
	logger    log.Logger
	telemetry telemetry.Telemetry
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithLogger sets the client logger
func WithLogger(logger log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTelemetry sets the client telemetry
func WithTelemetry(tel telemetry.Telemetry) ClientOption {
	return func(c *Client) {
		c.telemetry = tel
	}
}

// NewClient creates a client over st. The client owns the store.
func NewClient(st store.Store, cfg *config.Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}

	c := &Client{
		store:     st,
		cfg:       cfg,
		cache:     cache,
		logger:    log.NewNop(),
		telemetry: telemetry.NewNoop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.base = c.logger
	c.logger = c.logger.WithField("component", telemetry.ComponentClient)

	return c, nil
}

// SchemaNames returns the schemas served by the client
func (c *Client) SchemaNames() []string {
	return []string{c.cfg.SchemaName}
}

func (c *Client) checkSchema(schema string) error {
	if schema != c.cfg.SchemaName {
		return fmt.Errorf("%w: schema %q", spi.ErrNotFound, schema)
	}
	return nil
}

// TableNames returns the tables of a schema
func (c *Client) TableNames(ctx context.Context, schema string) ([]string, error) {
	if err := c.checkSchema(schema); err != nil {
		return nil, err
	}

	names, err := c.store.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return names, nil
}

// Table resolves the columns of a table, inferring them from a sample of
// items when the table declares none. Results are cached.
func (c *Client) Table(ctx context.Context, schema, tableName string) (_ *Table, err error) {
	ctx, span := c.telemetry.StartSpan(ctx, telemetry.SpanTableLookup,
		attribute.String(telemetry.AttrTable, tableName))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := c.checkSchema(schema); err != nil {
		return nil, err
	}

	key := schema + "." + tableName
	if cached, ok := c.cache.Get(key); ok {
		span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
		c.recordLookup(ctx, tableName, true)
		return cached.(*Table), nil
	}
	span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, false))
	c.recordLookup(ctx, tableName, false)

	desc, err := c.store.DescribeTable(ctx, tableName)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: table %s: %v", spi.ErrNotFound, key, err)
		}
		return nil, fmt.Errorf("failed to describe table %s: %w", key, err)
	}

	table := &Table{Name: desc.Name, KeyAttribute: desc.KeyAttribute}
	if len(desc.Columns) > 0 {
		table.Columns = c.declaredColumns(desc)
	} else {
		table.Columns, err = c.inferColumns(ctx, desc)
		if err != nil {
			return nil, err
		}
	}

	if c.cfg.MetadataCacheTTL > 0 {
		c.cache.SetWithTTL(key, table, 1, c.cfg.MetadataCacheTTL)
	}
	return table, nil
}

func (c *Client) recordLookup(ctx context.Context, table string, hit bool) {
	c.telemetry.RecordCounter(ctx, telemetry.MetricMetadataLookups, 1,
		attribute.String(telemetry.AttrTable, table),
		attribute.Bool(telemetry.AttrCacheHit, hit),
	)
}

func (c *Client) declaredColumns(desc store.TableDescriptor) []Column {
	var columns []Column
	seen := make(map[string]bool, len(desc.Columns))
	for _, col := range desc.Columns {
		columns = c.appendColumn(columns, seen, desc.Name, col.Name, col.Type)
	}
	return columns
}

// appendColumn adds a column unless its normalized name is already taken
func (c *Client) appendColumn(columns []Column, seen map[string]bool, table, attributeName string, typ spi.Type) []Column {
	name := NormalizeColumnName(attributeName)
	if seen[name] {
		c.logger.Warn("Skipping attribute %s of table %s: column %s already exists", attributeName, table, name)
		return columns
	}
	seen[name] = true
	return append(columns, Column{Name: name, AttributeName: attributeName, Type: typ})
}

// inferColumns samples up to SampleSize items. The key attribute comes first
// and the rest follow in name order. Attributes seen with conflicting types,
// or only ever null, become varchar.
func (c *Client) inferColumns(ctx context.Context, desc store.TableDescriptor) (_ []Column, err error) {
	start := time.Now()
	ctx, span := c.telemetry.StartSpan(ctx, telemetry.SpanInferSchema,
		attribute.String(telemetry.AttrTable, desc.Name))
	defer func() { telemetry.EndSpan(span, err) }()

	scanner, err := c.store.Scan(ctx, desc.Name, store.ScanOptions{Limit: c.cfg.SampleSize})
	if err != nil {
		return nil, fmt.Errorf("failed to sample table %s: %w", desc.Name, err)
	}
	defer scanner.Close()

	types := map[string]spi.Type{desc.KeyAttribute: ""}
	sampled := 0
	for scanner.Next() {
		sampled++
		for name, value := range scanner.Item() {
			types[name] = mergeType(types[name], value)
		}
	}
	if err := scanner.Error(); err != nil {
		return nil, fmt.Errorf("failed to sample table %s: %w", desc.Name, err)
	}

	names := make([]string, 0, len(types))
	for name := range types {
		if name != desc.KeyAttribute {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	names = append([]string{desc.KeyAttribute}, names...)

	var columns []Column
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		typ := types[name]
		if typ == "" {
			typ = spi.Varchar
		}
		columns = c.appendColumn(columns, seen, desc.Name, name, typ)
	}

	span.SetAttributes(attribute.Int(telemetry.AttrSampledItems, sampled))
	c.logger.Debug("Inferred %d columns for %s from %d items in %s",
		len(columns), desc.Name, sampled, time.Since(start))
	return columns, nil
}

// mergeType combines the type seen so far for an attribute with a new value
func mergeType(current spi.Type, value item.Value) spi.Type {
	inferred, ok := item.InferType(value)
	if !ok {
		return current
	}
	switch {
	case current == "" || current == inferred:
		return inferred
	case (current == spi.Bigint && inferred == spi.Double) || (current == spi.Double && inferred == spi.Bigint):
		return spi.Double
	default:
		return spi.Varchar
	}
}

// Scan starts a batched scan of a split
func (c *Client) Scan(ctx context.Context, split Split, batchSize int) (_ ItemBatchIterator, err error) {
	ctx, span := c.telemetry.StartSpan(ctx, telemetry.SpanScan,
		attribute.String(telemetry.AttrTable, split.TableName),
		attribute.Int(telemetry.AttrSegment, split.Segment),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if err := c.checkSchema(split.SchemaName); err != nil {
		return nil, err
	}

	start := time.Now()
	scanner, err := c.store.Scan(ctx, split.TableName, store.ScanOptions{
		Segment:       split.Segment,
		TotalSegments: split.TotalSegments,
	})
	telemetry.RecordDuration(ctx, c.telemetry, telemetry.MetricScanDuration, start,
		attribute.String(telemetry.AttrTable, split.TableName),
		attribute.Int(telemetry.AttrSegment, split.Segment),
		attribute.String(telemetry.AttrStatus, telemetry.Status(err)),
	)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: table %s: %v", spi.ErrNotFound, split.TableName, err)
		}
		return nil, fmt.Errorf("failed to scan %s segment %d: %w", split.TableName, split.Segment, err)
	}

	c.logger.Debug("Scanning %s segment %d/%d in batches of %d",
		split.TableName, split.Segment, split.TotalSegments, batchSize)
	return newScanBatchIterator(scanner, batchSize), nil
}

// InvalidateTable drops the cached metadata of a table
func (c *Client) InvalidateTable(schema, tableName string) {
	c.cache.Del(schema + "." + tableName)
}

// Close releases the cache and the store
func (c *Client) Close() error {
	c.cache.Close()
	return c.store.Close()
}
