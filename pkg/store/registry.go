package store

import (
	"fmt"
	"sort"
	"sync"
)

// Driver opens a store from a data source name
type Driver func(dsn string, opts Options) (Store, error)

// MemoryDSN asks file based drivers for an in-memory store
const MemoryDSN = ":memory:"

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name. Drivers register themselves in init.
func Register(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = driver
}

// Open opens a store with the named driver
func Open(name, dsn string, opts Options) (Store, error) {
	driversMu.RLock()
	driver, exists := drivers[name]
	driversMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("store driver %q not registered", name)
	}

	return driver(dsn, opts)
}

// Drivers lists the registered driver names
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
