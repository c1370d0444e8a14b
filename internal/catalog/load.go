package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"acexporter/internal/ordered"
)

const (
	whitelistKey = "whitelist"
	mappingsKey  = "mappings"
)

// Format identifies a catalog source encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// LoadError reports a catalog that cannot be used; it is fatal at startup.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load catalog: %v", e.Err)
	}
	return fmt.Sprintf("load catalog %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// entrySource is the per-entry shape shared by all encodings.
type entrySource struct {
	Name        string `json:"name" yaml:"name" toml:"name"`
	Type        string `json:"type" yaml:"type" toml:"type"`
	Description string `json:"description" yaml:"description" toml:"description"`
}

// tomlSource is the TOML layout; TOML tables are unordered so entries are an array.
type tomlSource struct {
	Whitelist []entrySource             `toml:"whitelist"`
	Mappings  map[string]map[string]int `toml:"mappings"`
}

// Load reads and parses a catalog file; the format follows the file extension.
// Params: path to a .json, .yaml/.yml or .toml catalog.
// Returns: immutable catalog or *LoadError.
func Load(path string) (*Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	cat, err := Parse(raw, format)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return cat, nil
}

// FormatFromPath selects the catalog format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported catalog extension %q (want .json, .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// Parse decodes catalog bytes of the given format.
// Params: raw source bytes; format encoding.
// Returns: catalog or decode/validation error.
func Parse(raw []byte, format Format) (*Catalog, error) {
	var (
		entries  []Entry
		mappings map[string]map[string]int
		err      error
	)

	switch format {
	case FormatJSON:
		entries, mappings, err = parseJSON(raw)
	case FormatYAML:
		entries, mappings, err = parseYAML(raw)
	case FormatTOML:
		entries, mappings, err = parseTOML(raw)
	default:
		err = fmt.Errorf("unsupported catalog format %q", format)
	}
	if err != nil {
		return nil, err
	}

	return New(entries, mappings)
}

// parseJSON reads {"whitelist": {name: {type, description}}, "mappings": {...}}.
// Params: raw JSON bytes.
// Returns: ordered entries, optional mappings, decode error.
func parseJSON(raw []byte) ([]Entry, map[string]map[string]int, error) {
	root, err := ordered.Members(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("decode JSON: %w", err)
	}

	whitelistRaw, ok := ordered.Find(root, whitelistKey)
	if !ok {
		return nil, nil, fmt.Errorf("missing %q key", whitelistKey)
	}
	members, err := ordered.Members(whitelistRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", whitelistKey, err)
	}

	entries := make([]Entry, 0, len(members))
	for _, member := range members {
		var src entrySource
		if err := json.Unmarshal(member.Raw, &src); err != nil {
			return nil, nil, fmt.Errorf("%s.%s: %w", whitelistKey, member.Key, err)
		}
		entries = append(entries, Entry{Name: member.Key, Kind: Kind(src.Type), Description: src.Description})
	}

	var mappings map[string]map[string]int
	if mappingsRaw, ok := ordered.Find(root, mappingsKey); ok {
		if err := json.Unmarshal(mappingsRaw, &mappings); err != nil {
			return nil, nil, fmt.Errorf("decode %s: %w", mappingsKey, err)
		}
	}

	return entries, mappings, nil
}

// parseYAML reads the JSON layout expressed in YAML, keeping mapping order from the node tree.
// Params: raw YAML bytes.
// Returns: ordered entries, optional mappings, decode error.
func parseYAML(raw []byte) ([]Entry, map[string]map[string]int, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("decode YAML: root must be a mapping")
	}
	root := doc.Content[0]

	whitelist := yamlChild(root, whitelistKey)
	if whitelist == nil {
		return nil, nil, fmt.Errorf("missing %q key", whitelistKey)
	}
	if whitelist.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("%s must be a mapping", whitelistKey)
	}

	entries := make([]Entry, 0, len(whitelist.Content)/2)
	for idx := 0; idx+1 < len(whitelist.Content); idx += 2 {
		name := whitelist.Content[idx].Value
		var src entrySource
		if err := whitelist.Content[idx+1].Decode(&src); err != nil {
			return nil, nil, fmt.Errorf("%s.%s: %w", whitelistKey, name, err)
		}
		entries = append(entries, Entry{Name: name, Kind: Kind(src.Type), Description: src.Description})
	}

	var mappings map[string]map[string]int
	if node := yamlChild(root, mappingsKey); node != nil {
		if err := node.Decode(&mappings); err != nil {
			return nil, nil, fmt.Errorf("decode %s: %w", mappingsKey, err)
		}
	}

	return entries, mappings, nil
}

// yamlChild returns the value node for key in a mapping node.
func yamlChild(mapping *yaml.Node, key string) *yaml.Node {
	for idx := 0; idx+1 < len(mapping.Content); idx += 2 {
		if mapping.Content[idx].Value == key {
			return mapping.Content[idx+1]
		}
	}
	return nil
}

// parseTOML reads [[whitelist]] array entries and an optional [mappings] table.
// Params: raw TOML bytes.
// Returns: ordered entries, optional mappings, decode error.
func parseTOML(raw []byte) ([]Entry, map[string]map[string]int, error) {
	var src tomlSource
	if err := toml.NewDecoder(bytes.NewReader(raw)).Decode(&src); err != nil {
		return nil, nil, fmt.Errorf("decode TOML: %w", err)
	}
	if src.Whitelist == nil {
		return nil, nil, fmt.Errorf("missing [[%s]] entries", whitelistKey)
	}

	entries := make([]Entry, 0, len(src.Whitelist))
	for _, item := range src.Whitelist {
		entries = append(entries, Entry{Name: item.Name, Kind: Kind(item.Type), Description: item.Description})
	}
	return entries, src.Mappings, nil
}
