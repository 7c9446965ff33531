package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/config"
	"github.com/jugaji/presto-dynamodb/pkg/dynamodb"
	"github.com/jugaji/presto-dynamodb/pkg/spi"
	"github.com/jugaji/presto-dynamodb/pkg/store"
)

const nullText = "NULL"

var (
	ErrInvalidQuery = errors.New("invalid query")

	queryPattern = regexp.MustCompile(`(?is)^\s*SELECT\s+(.+?)\s+FROM\s+([A-Za-z0-9_.\-]+)(?:\s+LIMIT\s+(\d+))?\s*;?\s*$`)
)

// Query is a projection over a single table
type Query struct {
	// Columns are the projected column names, empty means every column
	Columns []string
	Table   spi.SchemaTableName
	// Limit caps the printed rows, zero means no limit
	Limit int
}

// ParseQuery parses SELECT <columns|*> FROM [schema.]table [LIMIT n].
// Unqualified tables are resolved in defaultSchema.
func ParseQuery(text, defaultSchema string) (Query, error) {
	m := queryPattern.FindStringSubmatch(text)
	if m == nil {
		return Query{}, fmt.Errorf("%w: expected SELECT <columns> FROM <table> [LIMIT n]", ErrInvalidQuery)
	}

	var q Query
	if projection := strings.TrimSpace(m[1]); projection != "*" {
		for _, col := range strings.Split(projection, ",") {
			col = strings.ToLower(strings.TrimSpace(col))
			if col == "" || col == "*" {
				return Query{}, fmt.Errorf("%w: bad column list %q", ErrInvalidQuery, projection)
			}
			q.Columns = append(q.Columns, col)
		}
	}

	q.Table = spi.SchemaTableName{Schema: defaultSchema, Table: m[2]}
	if schema, table, ok := strings.Cut(m[2], "."); ok {
		if schema == "" || table == "" || strings.Contains(table, ".") {
			return Query{}, fmt.Errorf("%w: bad table name %q", ErrInvalidQuery, m[2])
		}
		q.Table = spi.SchemaTableName{Schema: schema, Table: table}
	}

	if m[3] != "" {
		limit, err := strconv.Atoi(m[3])
		if err != nil {
			return Query{}, fmt.Errorf("%w: bad limit %q", ErrInvalidQuery, m[3])
		}
		q.Limit = limit
	}
	return q, nil
}

// Session reads tables through a dynamodb connector
type Session struct {
	connector *dynamodb.Connector
	schema    string
}

func newSession(cfg *config.Config, st store.Store, logger log.Logger) (*Session, error) {
	connector, err := dynamodb.NewConnector(cfg, st, dynamodb.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &Session{connector: connector, schema: cfg.SchemaName}, nil
}

// Close shuts the connector down, closing its store
func (s *Session) Close() error {
	return s.connector.Shutdown(context.Background())
}

// Tables prints the tables of the session schema
func (s *Session) Tables(ctx context.Context, out io.Writer) error {
	tables, err := s.connector.Metadata().ListTables(ctx, s.schema)
	if err != nil {
		return err
	}
	for _, table := range tables {
		fmt.Fprintln(out, table.Table)
	}
	return nil
}

// Describe prints the columns of a table
func (s *Session) Describe(ctx context.Context, out io.Writer, table string) error {
	name := spi.SchemaTableName{Schema: s.schema, Table: table}
	if schema, t, ok := strings.Cut(table, "."); ok {
		name = spi.SchemaTableName{Schema: schema, Table: t}
	}

	metadata := s.connector.DynamoMetadata()
	handle, err := metadata.TableHandle(ctx, name)
	if err != nil {
		return err
	}
	columns, err := metadata.OrderedColumnHandles(ctx, handle)
	if err != nil {
		return err
	}

	w := newTabWriter(out)
	fmt.Fprintln(w, "COLUMN\tTYPE\tATTRIBUTE")
	for _, col := range columns {
		fmt.Fprintf(w, "%s\t%s\t%s\n", col.ColumnName, col.ColumnType, col.AttributeName)
	}
	return w.Flush()
}

// Execute runs the query and prints the rows as a table. It returns the
// number of printed rows.
func (s *Session) Execute(ctx context.Context, out io.Writer, q Query) (int, error) {
	metadata := s.connector.DynamoMetadata()
	handle, err := metadata.TableHandle(ctx, q.Table)
	if err != nil {
		return 0, err
	}

	columns, err := s.projection(ctx, handle, q.Columns)
	if err != nil {
		return 0, err
	}

	splits, err := s.connector.SplitManager().Splits(ctx, handle)
	if err != nil {
		return 0, err
	}

	w := newTabWriter(out)
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Name()
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	rows := 0
	for _, split := range splits {
		if q.Limit > 0 && rows >= q.Limit {
			break
		}
		n, err := s.readSplit(ctx, w, split, columns, q.Limit-rows, q.Limit > 0)
		rows += n
		if err != nil {
			w.Flush()
			return rows, err
		}
	}
	return rows, w.Flush()
}

// projection resolves the requested columns, or every column in ordinal order
func (s *Session) projection(ctx context.Context, handle spi.TableHandle, names []string) ([]spi.ColumnHandle, error) {
	metadata := s.connector.DynamoMetadata()
	if len(names) == 0 {
		ordered, err := metadata.OrderedColumnHandles(ctx, handle)
		if err != nil {
			return nil, err
		}
		columns := make([]spi.ColumnHandle, len(ordered))
		for i, col := range ordered {
			columns[i] = col
		}
		return columns, nil
	}

	available, err := metadata.ColumnHandles(ctx, handle)
	if err != nil {
		return nil, err
	}
	columns := make([]spi.ColumnHandle, len(names))
	for i, name := range names {
		col, ok := available[name]
		if !ok {
			return nil, fmt.Errorf("%w: column %q does not exist in %s", ErrInvalidQuery, name, handle.SchemaTableName())
		}
		columns[i] = col
	}
	return columns, nil
}

func (s *Session) readSplit(ctx context.Context, w io.Writer, split spi.Split, columns []spi.ColumnHandle, remaining int, limited bool) (int, error) {
	recordSet, err := s.connector.RecordSetProvider().RecordSet(ctx, split, columns)
	if err != nil {
		return 0, err
	}
	cursor, err := recordSet.Cursor(ctx)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	rows := 0
	fields := make([]string, len(columns))
	for (!limited || rows < remaining) && cursor.AdvanceNextPosition() {
		for i := range columns {
			text, err := formatField(cursor, i)
			if err != nil {
				return rows, err
			}
			fields[i] = text
		}
		fmt.Fprintln(w, strings.Join(fields, "\t"))
		rows++
	}
	return rows, cursor.Err()
}

// formatField renders a field of the current row using its typed accessor
func formatField(cursor spi.RecordCursor, field int) (string, error) {
	null, err := cursor.IsNull(field)
	if err != nil {
		return "", err
	}
	if null {
		return nullText, nil
	}

	typ, err := cursor.Type(field)
	if err != nil {
		return "", err
	}

	switch typ {
	case spi.Boolean:
		v, err := cursor.Boolean(field)
		return strconv.FormatBool(v), err
	case spi.Bigint:
		v, err := cursor.Long(field)
		return strconv.FormatInt(v, 10), err
	case spi.Double:
		v, err := cursor.Double(field)
		return strconv.FormatFloat(v, 'g', -1, 64), err
	case spi.Varchar:
		v, err := cursor.Slice(field)
		return string(v), err
	default:
		v, err := cursor.Object(field)
		return fmt.Sprint(v), err
	}
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a SELECT query against a table",
		Long: `Query reads a table through the connector and prints the projected rows.
The supported form is: SELECT <columns|*> FROM [schema.]table [LIMIT n]`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(cfg *config.Config, st store.Store, logger log.Logger) error {
				q, err := ParseQuery(strings.Join(args, " "), cfg.SchemaName)
				if err != nil {
					return err
				}

				session, err := newSession(cfg, st, logger)
				if err != nil {
					return err
				}
				defer session.Close()

				_, err = session.Execute(cmd.Context(), cmd.OutOrStdout(), q)
				return err
			})
		},
	}
}
