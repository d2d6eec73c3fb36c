package driver

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a Factory from the driver section of the config.
type Constructor func(options map[string]string) (Factory, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register makes a driver available by name. It panics on duplicates, like
// database/sql.
func Register(name string, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if c == nil {
		panic("driver: Register constructor is nil")
	}
	if _, dup := registry[name]; dup {
		panic("driver: Register called twice for " + name)
	}
	registry[name] = c
}

// Open looks up name and builds its factory.
func Open(name string, options map[string]string) (Factory, error) {
	registryMu.RLock()
	c, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown driver %q (available: %v)", name, Names())
	}
	return c(options)
}

// Names lists registered drivers in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
