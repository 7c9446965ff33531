// Package storetest holds behavioural tests shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jugaji/presto-dynamodb/pkg/attribute"
	"github.com/jugaji/presto-dynamodb/pkg/spi"
	"github.com/jugaji/presto-dynamodb/pkg/store"
)

// Opener creates an empty store for a single test
type Opener func(t *testing.T) store.Store

// UsersTable is the descriptor used by the shared tests
var UsersTable = store.TableDescriptor{
	Name:         "users",
	KeyAttribute: "id",
	Columns: []store.ColumnDefinition{
		{Name: "id", Type: spi.Varchar},
		{Name: "age", Type: spi.Bigint},
		{Name: "active", Type: spi.Boolean},
	},
}

// User builds a test item
func User(i int) attribute.Item {
	return attribute.Item{
		"id":     attribute.String(fmt.Sprintf("user-%03d", i)),
		"age":    attribute.Int(int64(20 + i)),
		"active": attribute.Bool(i%2 == 0),
	}
}

// Run runs the shared store tests
func Run(t *testing.T, open Opener) {
	t.Run("CreateAndDescribe", func(t *testing.T) { testCreateAndDescribe(t, open(t)) })
	t.Run("ListTables", func(t *testing.T) { testListTables(t, open(t)) })
	t.Run("PutAndScan", func(t *testing.T) { testPutAndScan(t, open(t)) })
	t.Run("Segments", func(t *testing.T) { testSegments(t, open(t)) })
	t.Run("Errors", func(t *testing.T) { testErrors(t, open(t)) })
}

func testCreateAndDescribe(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	if err := s.CreateTable(ctx, UsersTable); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := s.CreateTable(ctx, UsersTable); !errors.Is(err, store.ErrTableExists) {
		t.Errorf("Expected ErrTableExists, got %v", err)
	}

	desc, err := s.DescribeTable(ctx, "users")
	if err != nil {
		t.Fatalf("DescribeTable failed: %v", err)
	}
	if diff := cmp.Diff(UsersTable, desc); diff != "" {
		t.Errorf("Descriptor mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.DescribeTable(ctx, "missing"); !errors.Is(err, store.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func testListTables(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	for _, name := range []string{"orders", "users", "events"} {
		if err := s.CreateTable(ctx, store.TableDescriptor{Name: name, KeyAttribute: "id"}); err != nil {
			t.Fatalf("CreateTable(%s) failed: %v", name, err)
		}
	}

	names, err := s.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if diff := cmp.Diff([]string{"events", "orders", "users"}, names); diff != "" {
		t.Errorf("Table names mismatch (-want +got):\n%s", diff)
	}
}

func scanAll(t *testing.T, s store.Store, opts store.ScanOptions) map[string]attribute.Item {
	t.Helper()

	scanner, err := s.Scan(context.Background(), "users", opts)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	defer scanner.Close()

	items := make(map[string]attribute.Item)
	for scanner.Next() {
		items[string(scanner.Key())] = scanner.Item()
	}
	if err := scanner.Error(); err != nil {
		t.Fatalf("Scanner error: %v", err)
	}
	return items
}

func testPutAndScan(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	if err := s.CreateTable(ctx, UsersTable); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	// a second table must not leak into scans of the first
	if err := s.CreateTable(ctx, store.TableDescriptor{Name: "users2", KeyAttribute: "id"}); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := s.PutItem(ctx, "users2", User(99)); err != nil {
		t.Fatalf("PutItem failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		if err := s.PutItem(ctx, "users", User(i)); err != nil {
			t.Fatalf("PutItem failed: %v", err)
		}
	}

	// replace an existing item
	updated := User(3)
	updated["age"] = attribute.Int(99)
	if err := s.PutItem(ctx, "users", updated); err != nil {
		t.Fatalf("PutItem failed: %v", err)
	}

	items := scanAll(t, s, store.ScanOptions{})
	if len(items) != 10 {
		t.Fatalf("Expected 10 items, got %d", len(items))
	}
	if diff := cmp.Diff(updated, items["user-003"]); diff != "" {
		t.Errorf("Updated item mismatch (-want +got):\n%s", diff)
	}

	limited := scanAll(t, s, store.ScanOptions{Limit: 4})
	if len(limited) != 4 {
		t.Errorf("Expected 4 items with limit, got %d", len(limited))
	}
}

func testSegments(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	if err := s.CreateTable(ctx, UsersTable); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	for i := 0; i < 50; i++ {
		if err := s.PutItem(ctx, "users", User(i)); err != nil {
			t.Fatalf("PutItem failed: %v", err)
		}
	}

	const total = 4
	var keys []string
	for segment := 0; segment < total; segment++ {
		for key := range scanAll(t, s, store.ScanOptions{Segment: segment, TotalSegments: total}) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)
	if len(keys) != 50 {
		t.Fatalf("Expected segments to cover 50 items, got %d", len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i] == keys[i-1] {
			t.Errorf("Key %s returned by more than one segment", keys[i])
		}
	}
}

func testErrors(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	if _, err := s.Scan(ctx, "missing", store.ScanOptions{}); !errors.Is(err, store.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound from Scan, got %v", err)
	}
	if err := s.PutItem(ctx, "missing", User(1)); !errors.Is(err, store.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound from PutItem, got %v", err)
	}

	if err := s.CreateTable(ctx, UsersTable); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := s.PutItem(ctx, "users", attribute.Item{"age": attribute.Int(1)}); !errors.Is(err, store.ErrMissingKey) {
		t.Errorf("Expected ErrMissingKey, got %v", err)
	}
	if _, err := s.Scan(ctx, "users", store.ScanOptions{Segment: 4, TotalSegments: 4}); !errors.Is(err, store.ErrInvalidSegment) {
		t.Errorf("Expected ErrInvalidSegment, got %v", err)
	}
	if err := s.CreateTable(ctx, store.TableDescriptor{Name: "bad"}); !errors.Is(err, store.ErrInvalidTable) {
		t.Errorf("Expected ErrInvalidTable, got %v", err)
	}
}
