package store_test

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/jugaji/presto-dynamodb/pkg/attribute"
	"github.com/jugaji/presto-dynamodb/pkg/store"
	"github.com/jugaji/presto-dynamodb/pkg/store/storetest"
)

// memEngine is a sorted in-memory engine used to test KVStore in isolation
type memEngine struct {
	data map[string][]byte
}

func newMemEngine() *memEngine {
	return &memEngine{data: make(map[string][]byte)}
}

func (e *memEngine) Get(key []byte) ([]byte, bool, error) {
	v, ok := e.data[string(key)]
	return v, ok, nil
}

func (e *memEngine) Set(key, value []byte) error {
	e.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (e *memEngine) NewIterator(lower, upper []byte) (store.RawIterator, error) {
	var keys []string
	for k := range e.data {
		if bytes.Compare([]byte(k), lower) >= 0 && (upper == nil || bytes.Compare([]byte(k), upper) < 0) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return &memIterator{engine: e, keys: keys, pos: -1}, nil
}

func (e *memEngine) Close() error { return nil }

type memIterator struct {
	engine *memEngine
	keys   []string
	pos    int
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *memIterator) Key() []byte   { return []byte(it.keys[it.pos]) }
func (it *memIterator) Value() []byte { return it.engine.data[it.keys[it.pos]] }
func (it *memIterator) Error() error  { return nil }
func (it *memIterator) Close() error  { return nil }

func openMem(t *testing.T) store.Store {
	s, err := store.NewKVStore(newMemEngine(), store.Options{Compression: attribute.CompressionZstd})
	if err != nil {
		t.Fatalf("NewKVStore failed: %v", err)
	}
	return s
}

func TestKVStore(t *testing.T) {
	storetest.Run(t, openMem)
}

func TestKVStoreClosed(t *testing.T) {
	s := openMem(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}

	if _, err := s.ListTables(context.Background()); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestScanCancelled(t *testing.T) {
	s := openMem(t)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.CreateTable(ctx, storetest.UsersTable); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.PutItem(ctx, "users", storetest.User(i)); err != nil {
			t.Fatalf("PutItem failed: %v", err)
		}
	}

	scanner, err := s.Scan(ctx, "users", store.ScanOptions{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	defer scanner.Close()

	if !scanner.Next() {
		t.Fatal("Expected a first item")
	}
	cancel()
	if scanner.Next() {
		t.Error("Expected scan to stop after cancellation")
	}
	if !errors.Is(scanner.Error(), context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", scanner.Error())
	}
}

func TestScanOptionsValidate(t *testing.T) {
	valid := []store.ScanOptions{
		{},
		{TotalSegments: 1},
		{Segment: 3, TotalSegments: 4},
		{Limit: 10},
	}
	for _, opts := range valid {
		if err := opts.Validate(); err != nil {
			t.Errorf("Expected %+v to be valid, got %v", opts, err)
		}
	}

	invalid := []store.ScanOptions{
		{Segment: -1, TotalSegments: 2},
		{Segment: 1},
		{Segment: 2, TotalSegments: 2},
		{Limit: -1},
	}
	for _, opts := range invalid {
		if err := opts.Validate(); !errors.Is(err, store.ErrInvalidSegment) {
			t.Errorf("Expected ErrInvalidSegment for %+v, got %v", opts, err)
		}
	}
}

func TestDriverRegistry(t *testing.T) {
	store.Register("test-mem", func(dsn string, opts store.Options) (store.Store, error) {
		return store.NewKVStore(newMemEngine(), opts)
	})

	s, err := store.Open("test-mem", "", store.Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Close()

	found := false
	for _, name := range store.Drivers() {
		if name == "test-mem" {
			found = true
		}
	}
	if !found {
		t.Errorf("Registered driver missing from %v", store.Drivers())
	}

	if _, err := store.Open("nope", "", store.Options{}); err == nil {
		t.Error("Expected error for unknown driver")
	}
}
