package pii

import (
	"fmt"
	"sort"
)

// Config holds the engine's routing options.
type Config struct {
	// Aliases routes extra field names onto an existing policy. The target is
	// either a category name ("phone", "national_id", ...) or a built-in field
	// name ("aadhar", "upi_id", ...).
	Aliases map[string]string `yaml:"aliases" json:"aliases,omitempty"`
}

// DefaultConfig returns a config with no aliases.
func DefaultConfig() Config {
	return Config{}
}

// buildRoutes merges the aliases into the default table.
func (c Config) buildRoutes(handlers map[Category]handler) (map[string]Category, error) {
	routes := DefaultRoutes()
	defaults := DefaultRoutes()

	names := make([]string, 0, len(c.Aliases))
	for name := range c.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := c.Aliases[name]
		if name == "" {
			return nil, fmt.Errorf("routing alias for %q: empty field name", target)
		}
		cat := Category(target)
		if _, ok := handlers[cat]; !ok {
			var known bool
			cat, known = defaults[target]
			if !known {
				return nil, fmt.Errorf("routing alias %q: unknown target %q", name, target)
			}
		}
		routes[name] = cat
	}
	return routes, nil
}
