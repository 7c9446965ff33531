// Package pebblestore provides a table store backed by Pebble.
package pebblestore

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/store"
)

// DriverName is the name the driver registers under
const DriverName = "pebble"

func init() {
	store.Register(DriverName, Open)
}

// Open opens a Pebble backed store in dir, or in memory for store.MemoryDSN
func Open(dir string, opts store.Options) (store.Store, error) {
	if dir == "" {
		return nil, errors.New("directory cannot be empty")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	pebbleOpts := &pebble.Options{
		Logger: &pebbleLogger{logger: logger.WithField("engine", "pebble")},
	}
	if dir == store.MemoryDSN {
		pebbleOpts.FS = vfs.NewMem()
		dir = ""
	}

	db, err := pebble.Open(dir, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("could not open pebble at '%s': %w", dir, err)
	}

	s, err := store.NewKVStore(&Engine{db: db}, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Engine adapts a Pebble database to store.Engine
type Engine struct {
	db *pebble.DB
}

// Get returns a copy of the value stored under key
func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	value, closer, err := e.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	return append([]byte(nil), value...), true, nil
}

// Set stores value under key and syncs the write
func (e *Engine) Set(key, value []byte) error {
	return e.db.Set(key, value, pebble.Sync)
}

// NewIterator iterates keys in [lower, upper)
func (e *Engine) NewIterator(lower, upper []byte) (store.RawIterator, error) {
	it := e.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	return &iterator{it: it}, nil
}

// Close closes the database
func (e *Engine) Close() error {
	return e.db.Close()
}

type iterator struct {
	it      *pebble.Iterator
	started bool
}

func (i *iterator) Next() bool {
	if !i.started {
		i.started = true
		return i.it.First()
	}
	return i.it.Next()
}

func (i *iterator) Key() []byte   { return i.it.Key() }
func (i *iterator) Value() []byte { return i.it.Value() }
func (i *iterator) Error() error  { return i.it.Error() }
func (i *iterator) Close() error  { return i.it.Close() }

// pebbleLogger routes Pebble's logging through the connector logger
type pebbleLogger struct {
	logger log.Logger
}

func (l *pebbleLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(format, args...)
}

func (l *pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.logger.Fatal(format, args...)
}
