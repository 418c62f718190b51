package source

import (
	"fmt"
	"sort"
)

// Constructor builds a Source for a location with a registered scheme.
type Constructor func(location string, opts Options) Source

var registry = map[string]Constructor{}

// Register adds a source constructor under the given URL scheme.
func Register(scheme string, ctor Constructor) {
	registry[scheme] = ctor
}

// Get returns the source constructor for the given URL scheme.
func Get(scheme string) (Constructor, error) {
	ctor, ok := registry[scheme]
	if !ok {
		return nil, fmt.Errorf("source: unsupported scheme: %s", scheme)
	}
	return ctor, nil
}

// Schemes returns the registered URL schemes in sorted order.
func Schemes() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
