package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jugaji/presto-dynamodb/pkg/attribute"
	"github.com/jugaji/presto-dynamodb/pkg/common/log"
)

// Options configures a store opened through a driver
type Options struct {
	Compression attribute.Compression
	Logger      log.Logger
}

// KVStore implements Store on top of an ordered Engine
type KVStore struct {
	engine Engine
	codec  *attribute.Codec
	logger log.Logger

	mu     sync.Mutex // serializes table creation
	closed bool
}

// NewKVStore creates a table store on top of the engine. The store owns the engine.
func NewKVStore(engine Engine, opts Options) (*KVStore, error) {
	codec, err := attribute.NewCodec(opts.Compression)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &KVStore{
		engine: engine,
		codec:  codec,
		logger: logger.WithField("component", "store"),
	}, nil
}

func (s *KVStore) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// CreateTable registers a new table
func (s *KVStore) CreateTable(ctx context.Context, desc TableDescriptor) error {
	if err := desc.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("failed to marshal table descriptor: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	_, exists, err := s.engine.Get(descriptorKey(desc.Name))
	if err != nil {
		return fmt.Errorf("failed to read table descriptor: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrTableExists, desc.Name)
	}

	if err := s.engine.Set(descriptorKey(desc.Name), data); err != nil {
		return fmt.Errorf("failed to write table descriptor: %w", err)
	}

	s.logger.Info("Created table %s with key attribute %s", desc.Name, desc.KeyAttribute)
	return nil
}

// DescribeTable returns the descriptor of a table
func (s *KVStore) DescribeTable(ctx context.Context, name string) (TableDescriptor, error) {
	if err := s.checkOpen(); err != nil {
		return TableDescriptor{}, err
	}

	data, exists, err := s.engine.Get(descriptorKey(name))
	if err != nil {
		return TableDescriptor{}, fmt.Errorf("failed to read table descriptor: %w", err)
	}
	if !exists {
		return TableDescriptor{}, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}

	var desc TableDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return TableDescriptor{}, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return desc, nil
}

// ListTables returns the table names in sorted order
func (s *KVStore) ListTables(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	prefix := descriptorPrefix()
	it, err := s.engine.NewIterator(prefix, prefixUpperBound(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer it.Close()

	var names []string
	for it.Next() {
		names = append(names, string(it.Key()[len(prefix):]))
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return names, nil
}

// PutItem inserts or replaces an item
func (s *KVStore) PutItem(ctx context.Context, table string, item attribute.Item) error {
	desc, err := s.DescribeTable(ctx, table)
	if err != nil {
		return err
	}

	primaryKey, err := item.KeyBytes(desc.KeyAttribute)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingKey, err)
	}

	data, err := s.codec.Encode(item)
	if err != nil {
		return err
	}

	if err := s.engine.Set(itemKey(table, primaryKey), data); err != nil {
		return fmt.Errorf("failed to write item: %w", err)
	}
	return nil
}

// Scan iterates the items of a table or of one of its segments
func (s *KVStore) Scan(ctx context.Context, table string, opts ScanOptions) (Scanner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.DescribeTable(ctx, table); err != nil {
		return nil, err
	}

	prefix := itemPrefix(table)
	it, err := s.engine.NewIterator(prefix, prefixUpperBound(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}

	s.logger.Debug("Scanning table %s segment %d/%d", table, opts.Segment, opts.TotalSegments)

	return &kvScanner{
		ctx:       ctx,
		it:        it,
		codec:     s.codec,
		opts:      opts,
		prefixLen: len(prefix),
	}, nil
}

// Close closes the engine
func (s *KVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.codec.Close()
	return s.engine.Close()
}

// kvScanner decodes the items of a raw iterator, filtering by segment
type kvScanner struct {
	ctx       context.Context
	it        RawIterator
	codec     *attribute.Codec
	opts      ScanOptions
	prefixLen int

	key    []byte
	item   attribute.Item
	count  int
	err    error
	closed bool
}

// Next advances the scanner to the next item
func (s *kvScanner) Next() bool {
	if s.closed || s.err != nil {
		return false
	}
	if s.opts.Limit > 0 && s.count >= s.opts.Limit {
		return false
	}

	for s.it.Next() {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return false
		}

		primaryKey := s.it.Key()[s.prefixLen:]
		if !s.opts.Includes(primaryKey) {
			continue
		}

		item, err := s.codec.Decode(s.it.Value())
		if err != nil {
			s.err = fmt.Errorf("failed to decode item %q: %w", primaryKey, err)
			return false
		}

		s.key = append(s.key[:0], primaryKey...)
		s.item = item
		s.count++
		return true
	}

	if err := s.it.Error(); err != nil {
		s.err = err
	}
	return false
}

// Key returns the primary key of the current item
func (s *kvScanner) Key() []byte {
	return s.key
}

// Item returns the current item
func (s *kvScanner) Item() attribute.Item {
	return s.item
}

// Error returns any error that occurred during iteration
func (s *kvScanner) Error() error {
	return s.err
}

// Close releases the underlying iterator
func (s *kvScanner) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.it.Close()
}

// IsNotFound reports whether err means a missing table
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTableNotFound)
}
