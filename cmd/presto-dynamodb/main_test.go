package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/config"
	"github.com/jugaji/presto-dynamodb/pkg/spi"
	"github.com/jugaji/presto-dynamodb/pkg/store"
	"github.com/jugaji/presto-dynamodb/pkg/store/badgerstore"
	"github.com/jugaji/presto-dynamodb/pkg/store/storetest"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Query
	}{
		{
			name:  "star",
			input: "SELECT * FROM users",
			want:  Query{Table: spi.SchemaTableName{Schema: "default", Table: "users"}},
		},
		{
			name:  "columns and limit",
			input: "select Id, age FROM users LIMIT 5;",
			want: Query{
				Columns: []string{"id", "age"},
				Table:   spi.SchemaTableName{Schema: "default", Table: "users"},
				Limit:   5,
			},
		},
		{
			name:  "qualified table",
			input: "SELECT id FROM other.users",
			want: Query{
				Columns: []string{"id"},
				Table:   spi.SchemaTableName{Schema: "other", Table: "users"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuery(tt.input, "default")
			if err != nil {
				t.Fatalf("ParseQuery failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Query mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseQueryErrors(t *testing.T) {
	inputs := []string{
		"",
		"SELECT FROM users",
		"SELECT id users",
		"SELECT id, FROM users",
		"SELECT id FROM a.b.c",
		"SELECT id FROM users LIMIT x",
		"DELETE FROM users",
	}
	for _, input := range inputs {
		if _, err := ParseQuery(input, "default"); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("ParseQuery(%q): expected ErrInvalidQuery, got %v", input, err)
		}
	}
}

func TestTableDescriptor(t *testing.T) {
	desc, err := tableDescriptor("users", "id", []string{"id:varchar", "age:BIGINT"})
	if err != nil {
		t.Fatalf("tableDescriptor failed: %v", err)
	}
	want := store.TableDescriptor{
		Name:         "users",
		KeyAttribute: "id",
		Columns: []store.ColumnDefinition{
			{Name: "id", Type: spi.Varchar},
			{Name: "age", Type: spi.Bigint},
		},
	}
	if diff := cmp.Diff(want, desc); diff != "" {
		t.Errorf("Descriptor mismatch (-want +got):\n%s", diff)
	}

	if _, err := tableDescriptor("users", "id", []string{"id"}); err == nil {
		t.Error("Expected error for column without type")
	}
	if _, err := tableDescriptor("users", "id", []string{"id:blob"}); !errors.Is(err, spi.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for unknown type, got %v", err)
	}
	if _, err := tableDescriptor("users", "id", []string{"age:bigint"}); !errors.Is(err, store.ErrInvalidTable) {
		t.Errorf("Expected ErrInvalidTable for undeclared key, got %v", err)
	}
}

func newTestSession(t *testing.T) (*Session, store.Store) {
	t.Helper()

	st, err := badgerstore.Open(store.MemoryDSN, store.Options{})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	cfg := config.NewDefaultConfig()
	cfg.TotalSegments = 1
	session, err := newSession(cfg, st, log.NewNop())
	if err != nil {
		st.Close()
		t.Fatalf("Failed to create session: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session, st
}

func TestLoadAndQuery(t *testing.T) {
	session, st := newTestSession(t)
	ctx := context.Background()

	if err := st.CreateTable(ctx, storetest.UsersTable); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	input := `{"id":{"S":"user-001"},"age":{"N":"21"},"active":{"BOOL":true}}

{"id":{"S":"user-002"},"age":{"N":"22"}}
{"id":{"S":"user-003"},"age":{"N":"23"},"active":{"BOOL":false}}
`
	count, err := loadItems(ctx, st, "users", strings.NewReader(input))
	if err != nil {
		t.Fatalf("loadItems failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("Expected 3 loaded items, got %d", count)
	}

	var out bytes.Buffer
	rows, err := session.Execute(ctx, &out, Query{
		Table: spi.SchemaTableName{Schema: "default", Table: "users"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if rows != 3 {
		t.Errorf("Expected 3 rows, got %d", rows)
	}

	var got [][]string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		got = append(got, strings.Fields(line))
	}
	want := [][]string{
		{"id", "age", "active"},
		{"user-001", "21", "true"},
		{"user-002", "22", "NULL"},
		{"user-003", "23", "false"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Output mismatch (-want +got):\n%s", diff)
	}

	out.Reset()
	rows, err = session.Execute(ctx, &out, Query{
		Columns: []string{"age"},
		Table:   spi.SchemaTableName{Schema: "default", Table: "users"},
		Limit:   2,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if rows != 2 {
		t.Errorf("Expected 2 rows, got %d", rows)
	}
	if got := strings.Fields(out.String()); !cmp.Equal(got, []string{"age", "21", "22"}) {
		t.Errorf("Unexpected limited output %q", got)
	}
}

func TestLoadItemsErrors(t *testing.T) {
	_, st := newTestSession(t)
	ctx := context.Background()

	if err := st.CreateTable(ctx, storetest.UsersTable); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	count, err := loadItems(ctx, st, "users", strings.NewReader("{\"id\":{\"S\":\"a\"}}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Expected error on line 2, got %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 item loaded before the error, got %d", count)
	}

	if _, err := loadItems(ctx, st, "missing", strings.NewReader("{\"id\":{\"S\":\"a\"}}\n")); !errors.Is(err, store.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func TestShellCommands(t *testing.T) {
	session, st := newTestSession(t)
	ctx := context.Background()

	if err := st.CreateTable(ctx, storetest.UsersTable); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := st.PutItem(ctx, "users", storetest.User(1)); err != nil {
		t.Fatalf("PutItem failed: %v", err)
	}

	var out bytes.Buffer
	if err := handleShellLine(ctx, session, &out, ".tables"); err != nil {
		t.Fatalf(".tables failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "users" {
		t.Errorf("Expected users, got %q", got)
	}

	out.Reset()
	if err := handleShellLine(ctx, session, &out, ".describe users"); err != nil {
		t.Fatalf(".describe failed: %v", err)
	}
	if !strings.Contains(out.String(), "bigint") {
		t.Errorf("Expected bigint column in %q", out.String())
	}

	out.Reset()
	if err := handleShellLine(ctx, session, &out, "SELECT id, age FROM users"); err != nil {
		t.Fatalf("SELECT failed: %v", err)
	}
	if !strings.Contains(out.String(), "user-001") || !strings.Contains(out.String(), "(1 rows") {
		t.Errorf("Unexpected query output %q", out.String())
	}

	if err := handleShellLine(ctx, session, &out, "SELECT nope FROM users"); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("Expected ErrInvalidQuery for unknown column, got %v", err)
	}
	if err := handleShellLine(ctx, session, &out, "SELECT * FROM missing"); !errors.Is(err, spi.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing table, got %v", err)
	}
	if err := handleShellLine(ctx, session, &out, ".exit"); !errors.Is(err, errExit) {
		t.Errorf("Expected errExit, got %v", err)
	}
	if err := handleShellLine(ctx, session, &out, "PUT a b"); err == nil {
		t.Error("Expected error for unknown command")
	}
}
