package dynamodb

import (
	"github.com/jugaji/presto-dynamodb/pkg/attribute"
	"github.com/jugaji/presto-dynamodb/pkg/store"
)

// ItemBatchIterator yields pre-fetched batches of items
type ItemBatchIterator interface {
	// Next fetches the next batch, returning false when there are no more
	Next() bool
	// Batch returns the current batch
	Batch() []attribute.Item
	// Err returns the error that stopped iteration, if any
	Err() error
	// Close releases the iterator
	Close() error
}

// scanBatchIterator groups the items of a store scanner into batches
type scanBatchIterator struct {
	scanner   store.Scanner
	batchSize int
	batch     []attribute.Item
	done      bool
	closed    bool
}

func newScanBatchIterator(scanner store.Scanner, batchSize int) *scanBatchIterator {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &scanBatchIterator{
		scanner:   scanner,
		batchSize: batchSize,
	}
}

func (it *scanBatchIterator) Next() bool {
	if it.closed || it.done {
		return false
	}

	// batches are handed to the cursor, so each one gets a fresh slice
	batch := make([]attribute.Item, 0, it.batchSize)
	for len(batch) < it.batchSize {
		if !it.scanner.Next() {
			it.done = true
			break
		}
		batch = append(batch, it.scanner.Item())
	}

	if len(batch) == 0 {
		it.batch = nil
		return false
	}
	it.batch = batch
	return true
}

func (it *scanBatchIterator) Batch() []attribute.Item {
	return it.batch
}

func (it *scanBatchIterator) Err() error {
	return it.scanner.Error()
}

func (it *scanBatchIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.batch = nil
	return it.scanner.Close()
}

// sliceBatchIterator iterates over batches held in memory
type sliceBatchIterator struct {
	batches [][]attribute.Item
	pos     int
	current []attribute.Item
	closed  bool
}

// NewSliceBatchIterator returns an iterator over in-memory batches
func NewSliceBatchIterator(batches ...[]attribute.Item) ItemBatchIterator {
	return &sliceBatchIterator{batches: batches}
}

func (it *sliceBatchIterator) Next() bool {
	if it.closed || it.pos >= len(it.batches) {
		it.current = nil
		return false
	}
	it.current = it.batches[it.pos]
	it.pos++
	return true
}

func (it *sliceBatchIterator) Batch() []attribute.Item {
	return it.current
}

func (it *sliceBatchIterator) Err() error {
	return nil
}

func (it *sliceBatchIterator) Close() error {
	it.closed = true
	it.current = nil
	return nil
}
