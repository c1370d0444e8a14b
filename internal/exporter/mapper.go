package exporter

import (
	"strconv"
	"strings"
)

// UnmappedCode is returned for categorical values missing from their mapping table.
// It overlaps with the first known code of most tables; see UnmappedValueError.
const UnmappedCode = 0

// MappingTables maps canonical field name to known value -> stable numeric code.
type MappingTables map[string]map[string]int

// DefaultMappings returns the built-in categorical tables for Samsung air conditioners.
// Codes are part of the exported contract and must stay stable across releases.
func DefaultMappings() MappingTables {
	return MappingTables{
		"air_conditioner_mode": {"cool": 0, "dry": 1, "wind": 2, "auto": 3, "heat": 4},
		"ac_optional_mode":     {"off": 0, "sleep": 1, "quiet": 2, "smart": 3, "speed": 4},
		"fan_mode":             {"auto": 0, "low": 1, "medium": 2, "high": 3, "turbo": 4},
		"fan_oscillation_mode": {"fixed": 0, "all": 1, "vertical": 2, "horizontal": 3},
		"dust_filter_status":   {"normal": 0, "wash": 1},
		"auto_cleaning_mode":   {"off": 0, "on": 1},
		"switch":               {"off": 0, "on": 1},
		"status":               {"ready": 0, "notready": 1},
		"spi_mode":             {"off": 0, "on": 1},
	}
}

// Mapper resolves raw status values into numeric sample values.
// Immutable after construction; safe for concurrent use.
type Mapper struct {
	tables MappingTables
}

// NewMapper builds a mapper from base tables with per-field overrides.
// Params: base tables (usually DefaultMappings); overrides replace whole tables by field name
// and are expected to be validated by the catalog loader.
// Returns: mapper owning copies of the tables.
func NewMapper(base MappingTables, overrides MappingTables) *Mapper {
	tables := make(MappingTables, len(base)+len(overrides))
	for _, src := range []MappingTables{base, overrides} {
		for field, table := range src {
			copied := make(map[string]int, len(table))
			for value, code := range table {
				copied[value] = code
			}
			tables[field] = copied
		}
	}
	return &Mapper{tables: tables}
}

// Resolve converts one raw value into a sample value.
// Params: name canonical field name; raw scalar value from the flattened set.
// Returns: numeric value and nil; UnmappedCode with *UnmappedValueError for unknown
// categorical values (value usable); 0 with *SkippedFieldError for non-numeric
// values of unmapped fields (value unusable).
func (m *Mapper) Resolve(name string, raw Scalar) (float64, error) {
	if table, ok := m.tables[name]; ok {
		value := raw.String()
		if code, known := table[value]; known {
			return float64(code), nil
		}
		return UnmappedCode, &UnmappedValueError{Field: name, Value: value}
	}

	switch raw.Kind {
	case KindNumber:
		return raw.Num, nil
	case KindBool:
		if raw.Bool {
			return 1, nil
		}
		return 0, nil
	case KindString:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(raw.Str), 64); err == nil {
			return parsed, nil
		}
	}

	return 0, &SkippedFieldError{Field: name, Kind: raw.Kind, Value: raw.String()}
}
