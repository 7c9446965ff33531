package spi

import (
	"fmt"
	"sort"
	"sync"
)

// Registry keeps track of available connector factories
type Registry interface {
	// Register adds a connector factory to the registry
	Register(factory ConnectorFactory)

	// Create instantiates a connector by factory name
	Create(name, catalog string, properties map[string]string) (Connector, error)

	// Factories returns the registered factory names in sorted order
	Factories() []string
}

// registry implements the Registry interface
type registry struct {
	mu        sync.RWMutex
	factories map[string]ConnectorFactory
}

// NewRegistry creates a new connector registry
func NewRegistry() Registry {
	return &registry{
		factories: make(map[string]ConnectorFactory),
	}
}

// DefaultRegistry is the default global registry instance
var DefaultRegistry = NewRegistry()

// Register adds a connector factory to the registry
func (r *registry) Register(factory ConnectorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[factory.Name()] = factory
}

// Create instantiates a connector by factory name
func (r *registry) Create(name, catalog string, properties map[string]string) (Connector, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: connector %q not registered", ErrNotFound, name)
	}

	return factory.Create(catalog, properties)
}

// Factories returns the registered factory names in sorted order
func (r *registry) Factories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Register adds a factory to the default registry
func Register(factory ConnectorFactory) {
	DefaultRegistry.Register(factory)
}

// Create creates a connector using the default registry
func Create(name, catalog string, properties map[string]string) (Connector, error) {
	return DefaultRegistry.Create(name, catalog, properties)
}

// Factories returns the factory names in the default registry
func Factories() []string {
	return DefaultRegistry.Factories()
}
