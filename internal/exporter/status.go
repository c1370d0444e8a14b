package exporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"acexporter/internal/ordered"
)

// MaxStatusBytes is the maximum accepted size for one raw status payload.
const MaxStatusBytes = 4 << 20

// ScalarKind identifies the shape of a scalar status value.
type ScalarKind uint8

const (
	// KindNull is a JSON null or an absent value.
	KindNull ScalarKind = iota
	// KindString is a text value.
	KindString
	// KindNumber is a numeric value.
	KindNumber
	// KindBool is a boolean value.
	KindBool
	// KindOpaque is an array or a mapping nested deeper than one level; kept as raw JSON text.
	KindOpaque
)

// String returns a readable kind name.
func (k ScalarKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Value is a raw status value: either Scalar or Nested.
type Value interface {
	isValue()
}

// Scalar is one leaf status value.
// Params: Kind selects which of Str/Num/Bool is meaningful; opaque values keep raw JSON in Str.
// Returns: tagged scalar.
type Scalar struct {
	Kind ScalarKind
	Str  string
	Num  float64
	Bool bool
}

func (Scalar) isValue() {}

// StringValue builds a string scalar.
func StringValue(s string) Scalar { return Scalar{Kind: KindString, Str: s} }

// NumberValue builds a numeric scalar.
func NumberValue(n float64) Scalar { return Scalar{Kind: KindNumber, Num: n} }

// BoolValue builds a boolean scalar.
func BoolValue(b bool) Scalar { return Scalar{Kind: KindBool, Bool: b} }

// NullValue builds a null scalar.
func NullValue() Scalar { return Scalar{Kind: KindNull} }

// String renders the scalar the way it is looked up in mapping tables and logged.
func (s Scalar) String() string {
	switch s.Kind {
	case KindString, KindOpaque:
		return s.Str
	case KindNumber:
		return strconv.FormatFloat(s.Num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(s.Bool)
	default:
		return "null"
	}
}

// NestedField is one member of a nested status mapping.
type NestedField struct {
	Name  string
	Value Scalar
}

// Nested is a one-level status mapping in source order.
type Nested []NestedField

func (Nested) isValue() {}

// Field is one top-level member of a raw status document.
type Field struct {
	Name  string
	Value Value
}

// Document is one raw device status in source order.
// Built fresh per scrape and discarded after rendering.
type Document []Field

// ParseDocument parses one raw status JSON object keeping member order.
// Params: payload raw JSON object bytes.
// Returns: ordered document or decode error; payloads above MaxStatusBytes are rejected.
func ParseDocument(payload []byte) (Document, error) {
	if len(payload) > MaxStatusBytes {
		return nil, fmt.Errorf("status payload exceeds %d bytes", MaxStatusBytes)
	}
	members, err := ordered.Members(payload)
	if err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}

	doc := make(Document, 0, len(members))
	for _, member := range members {
		value, err := ParseValue(member.Raw)
		if err != nil {
			return nil, fmt.Errorf("status field %q: %w", member.Key, err)
		}
		doc = append(doc, Field{Name: member.Key, Value: value})
	}
	return doc, nil
}

// ParseValue converts one raw JSON value into a status value.
// Objects become Nested one level deep; anything below is kept opaque.
// Params: raw JSON value bytes.
// Returns: Scalar or Nested value, or decode error.
func ParseValue(raw []byte) (Value, error) {
	if !ordered.IsObject(raw) {
		return parseScalar(raw)
	}

	members, err := ordered.Members(raw)
	if err != nil {
		return nil, err
	}

	nested := make(Nested, 0, len(members))
	for _, member := range members {
		scalar, err := parseScalar(member.Raw)
		if err != nil {
			return nil, fmt.Errorf("nested field %q: %w", member.Key, err)
		}
		nested = append(nested, NestedField{Name: member.Key, Value: scalar})
	}
	return nested, nil
}

// parseScalar converts a JSON leaf into Scalar; objects and arrays become opaque.
// Params: raw JSON value bytes.
// Returns: scalar value or decode error.
func parseScalar(raw []byte) (Scalar, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Scalar{}, fmt.Errorf("empty JSON value")
	}

	switch trimmed[0] {
	case '{', '[':
		if !json.Valid(trimmed) {
			return Scalar{}, fmt.Errorf("invalid JSON value")
		}
		return Scalar{Kind: KindOpaque, Str: string(trimmed)}, nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Scalar{}, fmt.Errorf("decode string: %w", err)
		}
		return StringValue(s), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return Scalar{}, fmt.Errorf("decode bool: %w", err)
		}
		return BoolValue(b), nil
	case 'n':
		if string(trimmed) != "null" {
			return Scalar{}, fmt.Errorf("invalid JSON value")
		}
		return NullValue(), nil
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return Scalar{}, fmt.Errorf("decode number: %w", err)
		}
		f, err := n.Float64()
		if err != nil {
			return Scalar{}, fmt.Errorf("decode number %q: %w", n.String(), err)
		}
		return NumberValue(f), nil
	}
}
