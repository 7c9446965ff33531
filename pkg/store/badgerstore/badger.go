// Package badgerstore provides a table store backed by Badger.
package badgerstore

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/store"
)

// DriverName is the name the driver registers under
const DriverName = "badger"

func init() {
	store.Register(DriverName, Open)
}

// Open opens a Badger backed store at path, or in memory for store.MemoryDSN
func Open(path string, opts store.Options) (store.Store, error) {
	if path == "" {
		return nil, errors.New("path cannot be empty")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	var badgerOpts badger.Options
	if path == store.MemoryDSN {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(path)
	}
	badgerOpts = badgerOpts.WithLogger(&badgerLogger{logger: logger.WithField("engine", "badger")})

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("could not open badger at '%s': %w", path, err)
	}

	s, err := store.NewKVStore(&Engine{db: db}, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Engine adapts a Badger database to store.Engine
type Engine struct {
	db *badger.DB
}

// Get returns the value stored under key
func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores value under key
func (e *Engine) Set(key, value []byte) error {
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// NewIterator iterates keys in [lower, upper) from a read-only transaction
func (e *Engine) NewIterator(lower, upper []byte) (store.RawIterator, error) {
	txn := e.db.NewTransaction(false)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	return &iterator{txn: txn, it: it, lower: lower, upper: upper}, nil
}

// Close closes the database
func (e *Engine) Close() error {
	return e.db.Close()
}

type iterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	lower   []byte
	upper   []byte
	started bool
	key     []byte
	value   []byte
	err     error
}

func (i *iterator) Next() bool {
	if i.err != nil {
		return false
	}

	if !i.started {
		i.it.Seek(i.lower)
		i.started = true
	} else {
		i.it.Next()
	}

	if !i.it.Valid() {
		return false
	}

	item := i.it.Item()
	if i.upper != nil && bytes.Compare(item.Key(), i.upper) >= 0 {
		return false
	}

	i.key = item.KeyCopy(i.key[:0])
	i.value, i.err = item.ValueCopy(i.value[:0])
	return i.err == nil
}

func (i *iterator) Key() []byte   { return i.key }
func (i *iterator) Value() []byte { return i.value }
func (i *iterator) Error() error  { return i.err }

func (i *iterator) Close() error {
	i.it.Close()
	i.txn.Discard()
	return nil
}

// badgerLogger routes Badger's logging through the connector logger
type badgerLogger struct {
	logger log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(format, args...)
}
