// Package ordered decodes JSON objects without losing member order.
package ordered

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Member is one object member with its undecoded value.
// Params: Key is the member name; Raw holds the JSON value bytes.
// Returns: ordered object member.
type Member struct {
	Key string
	Raw json.RawMessage
}

// Members decodes a JSON object into members in document order.
// Params: raw JSON object bytes.
// Returns: members in source order or decode error when raw is not an object.
func Members(raw []byte) ([]Member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read object start: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	members := make([]Member, 0, 8)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read member name: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected member name token %v", keyTok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("read member %q: %w", key, err)
		}
		members = append(members, Member{Key: key, Raw: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read object end: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}

	return members, nil
}

// IsObject reports whether raw JSON starts an object.
// Params: raw JSON value bytes.
// Returns: true when the first non-space byte is '{'.
func IsObject(raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Find returns the raw value of the first member named key.
// Params: members decoded object; key member name.
// Returns: raw value and true when present.
func Find(members []Member, key string) (json.RawMessage, bool) {
	for _, member := range members {
		if member.Key == key {
			return member.Raw, true
		}
	}
	return nil, false
}
