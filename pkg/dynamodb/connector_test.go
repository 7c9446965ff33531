package dynamodb

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jugaji/presto-dynamodb/pkg/spi"
	"github.com/jugaji/presto-dynamodb/pkg/store"
	"github.com/jugaji/presto-dynamodb/pkg/store/storetest"
)

func newUsersConnector(t *testing.T, users int) *Connector {
	t.Helper()

	st := openTestStore(t)
	ctx := context.Background()
	if err := st.CreateTable(ctx, storetest.UsersTable); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	for i := 0; i < users; i++ {
		if err := st.PutItem(ctx, "users", storetest.User(i)); err != nil {
			t.Fatalf("PutItem failed: %v", err)
		}
	}

	connector, err := NewConnector(testConfig(), st)
	if err != nil {
		t.Fatalf("NewConnector failed: %v", err)
	}
	t.Cleanup(func() { connector.Shutdown(context.Background()) })
	return connector
}

func TestMetadata(t *testing.T) {
	connector := newUsersConnector(t, 0)
	metadata := connector.Metadata()
	ctx := context.Background()

	schemas, err := metadata.ListSchemaNames(ctx)
	if err != nil {
		t.Fatalf("ListSchemaNames failed: %v", err)
	}
	if diff := cmp.Diff([]string{"default"}, schemas); diff != "" {
		t.Errorf("Schemas mismatch (-want +got):\n%s", diff)
	}

	tables, err := metadata.ListTables(ctx, "")
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	users := spi.SchemaTableName{Schema: "default", Table: "users"}
	if diff := cmp.Diff([]spi.SchemaTableName{users}, tables); diff != "" {
		t.Errorf("Tables mismatch (-want +got):\n%s", diff)
	}

	handle, err := metadata.TableHandle(ctx, users)
	if err != nil {
		t.Fatalf("TableHandle failed: %v", err)
	}
	if handle.SchemaTableName() != users {
		t.Errorf("Unexpected handle name %v", handle.SchemaTableName())
	}

	tableMetadata, err := metadata.TableMetadata(ctx, handle)
	if err != nil {
		t.Fatalf("TableMetadata failed: %v", err)
	}
	wantColumns := []spi.ColumnMetadata{
		{Name: "id", Type: spi.Varchar},
		{Name: "age", Type: spi.Bigint},
		{Name: "active", Type: spi.Boolean},
	}
	if diff := cmp.Diff(wantColumns, tableMetadata.Columns); diff != "" {
		t.Errorf("Columns mismatch (-want +got):\n%s", diff)
	}

	handles, err := metadata.ColumnHandles(ctx, handle)
	if err != nil {
		t.Fatalf("ColumnHandles failed: %v", err)
	}
	age, ok := handles["age"].(ColumnHandle)
	if !ok {
		t.Fatalf("Expected an age column handle, got %v", handles)
	}
	want := ColumnHandle{ConnectorID: "test", ColumnName: "age", AttributeName: "age", ColumnType: spi.Bigint, OrdinalPosition: 1}
	if diff := cmp.Diff(want, age); diff != "" {
		t.Errorf("Column handle mismatch (-want +got):\n%s", diff)
	}

	columns, err := connector.DynamoMetadata().ListTableColumns(ctx, spi.SchemaTableName{Schema: "default"})
	if err != nil {
		t.Fatalf("ListTableColumns failed: %v", err)
	}
	if diff := cmp.Diff(wantColumns, columns[users]); diff != "" {
		t.Errorf("Listed columns mismatch (-want +got):\n%s", diff)
	}

	if _, err := metadata.TableHandle(ctx, spi.SchemaTableName{Schema: "default", Table: "missing"}); !errors.Is(err, spi.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// readAll reads the id and age of every row of every split
func readAll(t *testing.T, connector *Connector) map[string]int64 {
	t.Helper()
	ctx := context.Background()

	handle, err := connector.Metadata().TableHandle(ctx, spi.SchemaTableName{Schema: "default", Table: "users"})
	if err != nil {
		t.Fatalf("TableHandle failed: %v", err)
	}
	handles, err := connector.Metadata().ColumnHandles(ctx, handle)
	if err != nil {
		t.Fatalf("ColumnHandles failed: %v", err)
	}
	columns := []spi.ColumnHandle{handles["id"], handles["age"]}

	splits, err := connector.SplitManager().Splits(ctx, handle)
	if err != nil {
		t.Fatalf("Splits failed: %v", err)
	}

	rows := make(map[string]int64)
	for _, split := range splits {
		recordSet, err := connector.RecordSetProvider().RecordSet(ctx, split, columns)
		if err != nil {
			t.Fatalf("RecordSet failed: %v", err)
		}
		if diff := cmp.Diff([]spi.Type{spi.Varchar, spi.Bigint}, recordSet.ColumnTypes()); diff != "" {
			t.Errorf("Column types mismatch (-want +got):\n%s", diff)
		}

		cursor, err := recordSet.Cursor(ctx)
		if err != nil {
			t.Fatalf("Cursor failed: %v", err)
		}
		for cursor.AdvanceNextPosition() {
			id, err := cursor.Slice(0)
			if err != nil {
				t.Fatalf("Slice failed: %v", err)
			}
			age, err := cursor.Long(1)
			if err != nil {
				t.Fatalf("Long failed: %v", err)
			}
			if _, dup := rows[string(id)]; dup {
				t.Errorf("Row %s returned by more than one split", id)
			}
			rows[string(id)] = age
		}
		if err := cursor.Err(); err != nil {
			t.Fatalf("Cursor error: %v", err)
		}
		if err := cursor.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}
	return rows
}

func TestConnectorReadsAllSplits(t *testing.T) {
	connector := newUsersConnector(t, 25)

	splits, err := connector.SplitManager().Splits(context.Background(), TableHandle{ConnectorID: "test", SchemaName: "default", TableName: "users"})
	if err != nil {
		t.Fatalf("Splits failed: %v", err)
	}
	if len(splits) != 4 {
		t.Fatalf("Expected 4 splits, got %d", len(splits))
	}
	for i, split := range splits {
		s := split.(Split)
		if s.Segment != i || s.TotalSegments != 4 {
			t.Errorf("Split %d has segment %d/%d", i, s.Segment, s.TotalSegments)
		}
	}

	rows := readAll(t, connector)
	if len(rows) != 25 {
		t.Fatalf("Expected 25 rows, got %d", len(rows))
	}
	if rows["user-007"] != 27 {
		t.Errorf("Expected user-007 to be 27, got %d", rows["user-007"])
	}
}

func TestRecordSetProviderRejectsForeignHandles(t *testing.T) {
	connector := newUsersConnector(t, 1)
	ctx := context.Background()
	provider := connector.RecordSetProvider()

	if _, err := provider.RecordSet(ctx, Split{ConnectorID: "other", SchemaName: "default", TableName: "users"}, nil); !errors.Is(err, spi.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for a foreign split, got %v", err)
	}

	type otherSplit struct{ Split }
	if _, err := provider.RecordSet(ctx, otherSplit{}, nil); !errors.Is(err, spi.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for an unknown split type, got %v", err)
	}

	if _, err := connector.SplitManager().Splits(ctx, TableHandle{ConnectorID: "other", SchemaName: "default", TableName: "users"}); !errors.Is(err, spi.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for a foreign table handle, got %v", err)
	}
}

func TestFactory(t *testing.T) {
	names := spi.Factories()
	if i := sort.SearchStrings(names, ConnectorName); i == len(names) || names[i] != ConnectorName {
		t.Fatalf("Expected %q in registered factories %v", ConnectorName, names)
	}

	connector, err := spi.Create(ConnectorName, "ddb", map[string]string{
		"store-driver":   "pebble",
		"store-dsn":      store.MemoryDSN,
		"total-segments": "2",
		"compression":    "zstd",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer connector.Shutdown(context.Background())

	c := connector.(*Connector)
	if c.splitManager.connectorID != "ddb" {
		t.Errorf("Expected the catalog name as connector id, got %s", c.splitManager.connectorID)
	}
	if c.splitManager.totalSegments != 2 {
		t.Errorf("Expected 2 segments, got %d", c.splitManager.totalSegments)
	}

	if _, err := spi.Create(ConnectorName, "bad", map[string]string{"store-driver": "nope"}); err == nil {
		t.Error("Expected an error for an unknown store driver")
	}
	if _, err := spi.Create(ConnectorName, "bad", map[string]string{"batch-size": "-1"}); err == nil {
		t.Error("Expected an error for an invalid batch size")
	}
}
