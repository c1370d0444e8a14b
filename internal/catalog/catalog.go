// Package catalog loads the whitelist of device fields exported as metrics.
//
// A catalog is loaded once at startup and never mutated afterwards. Entry order
// follows the source document and drives the order of rendered samples.
package catalog

import (
	"fmt"
	"strings"
)

// Kind is the metric kind of one catalog entry.
type Kind string

const (
	// KindCounter renders a counter sample.
	KindCounter Kind = "counter"
	// KindGauge renders a gauge sample.
	KindGauge Kind = "gauge"
	// KindEnum renders a gauge sample from a categorical value.
	KindEnum Kind = "enum"
	// KindSubMetric whitelists a field that is never rendered itself.
	KindSubMetric Kind = "sub_metric"
)

// Known reports whether k is one of the supported kinds.
func (k Kind) Known() bool {
	switch k {
	case KindCounter, KindGauge, KindEnum, KindSubMetric:
		return true
	default:
		return false
	}
}

// Entry is one exported field.
type Entry struct {
	Name        string
	Kind        Kind
	Description string
}

// Catalog is the immutable, ordered whitelist plus optional mapping overrides.
type Catalog struct {
	entries  []Entry
	mappings map[string]map[string]int
}

// New builds a catalog from ordered entries.
// Params: entries in rendering order; mappings optional per-field value codes.
// Returns: catalog or error on empty/duplicate names or negative codes.
func New(entries []Entry, mappings map[string]map[string]int) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("whitelist is empty")
	}

	c := &Catalog{
		entries:  make([]Entry, 0, len(entries)),
		mappings: make(map[string]map[string]int, len(mappings)),
	}
	seen := make(map[string]struct{}, len(entries))

	for idx, entry := range entries {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("whitelist[%d]: empty name", idx)
		}
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("whitelist: duplicate name %q", name)
		}
		entry.Name = name
		entry.Kind = Kind(strings.ToLower(strings.TrimSpace(string(entry.Kind))))
		seen[name] = struct{}{}
		c.entries = append(c.entries, entry)
	}

	for field, table := range mappings {
		name := strings.TrimSpace(field)
		if name == "" {
			return nil, fmt.Errorf("mappings: empty field name")
		}
		copied := make(map[string]int, len(table))
		for value, code := range table {
			if code < 0 {
				return nil, fmt.Errorf("mappings.%s.%s: code must be >= 0, got %d", name, value, code)
			}
			copied[value] = code
		}
		c.mappings[name] = copied
	}

	return c, nil
}

// Entries returns a copy of the entries in catalog order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Names returns entry names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for _, entry := range c.entries {
		names = append(names, entry.Name)
	}
	return names
}

// Mappings returns a copy of the mapping overrides carried by the catalog source.
func (c *Catalog) Mappings() map[string]map[string]int {
	out := make(map[string]map[string]int, len(c.mappings))
	for field, table := range c.mappings {
		copied := make(map[string]int, len(table))
		for value, code := range table {
			copied[value] = code
		}
		out[field] = copied
	}
	return out
}
