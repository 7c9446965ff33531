package pebblestore

import (
	"context"
	"testing"

	"github.com/jugaji/presto-dynamodb/pkg/store"
	"github.com/jugaji/presto-dynamodb/pkg/store/storetest"
)

func TestPebbleStoreInMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(store.MemoryDSN, store.Options{})
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		return s
	})
}

func TestPebbleStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := store.Open(DriverName, dir, store.Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.CreateTable(ctx, storetest.UsersTable); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := s.PutItem(ctx, "users", storetest.User(i)); err != nil {
			t.Fatalf("PutItem failed: %v", err)
		}
	}

	names, err := s.ListTables(ctx)
	if err != nil || len(names) != 1 || names[0] != "users" {
		t.Errorf("ListTables = %v, %v", names, err)
	}
}
