package store

// Engine is the ordered key-value engine a table store is built on
type Engine interface {
	// Get returns the value stored under key
	Get(key []byte) ([]byte, bool, error)
	// Set stores value under key
	Set(key, value []byte) error
	// NewIterator iterates keys in [lower, upper) in ascending order.
	// A nil upper bound means no upper bound.
	NewIterator(lower, upper []byte) (RawIterator, error)
	// Close releases the engine
	Close() error
}

// RawIterator walks raw key-value pairs. The first call to Next positions the
// iterator on the first pair. Keys and values may be reused by the next call.
type RawIterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}
