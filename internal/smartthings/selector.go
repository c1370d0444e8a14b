package smartthings

import (
	"fmt"
	"strings"

	"acexporter/internal/exporter"
	"acexporter/internal/match"
)

// Selector accepts devices whose id, name and label match the configured
// wildcard patterns. Matching ignores case; an empty pattern accepts anything.
type Selector struct {
	id    match.WildcardPattern
	name  match.WildcardPattern
	label match.WildcardPattern

	hasID    bool
	hasName  bool
	hasLabel bool

	desc string
}

// NewSelector compiles device patterns.
// Params: id, name and label wildcard patterns; empty values are ignored.
// Returns: selector usable as exporter.DeviceSelector.
func NewSelector(id, name, label string) Selector {
	s := Selector{}
	s.id, s.hasID = match.CompileWildcardFold(id)
	s.name, s.hasName = match.CompileWildcardFold(name)
	s.label, s.hasLabel = match.CompileWildcardFold(label)

	parts := make([]string, 0, 3)
	if s.hasID {
		parts = append(parts, fmt.Sprintf("id=%q", strings.TrimSpace(id)))
	}
	if s.hasName {
		parts = append(parts, fmt.Sprintf("name=%q", strings.TrimSpace(name)))
	}
	if s.hasLabel {
		parts = append(parts, fmt.Sprintf("label=%q", strings.TrimSpace(label)))
	}
	if len(parts) == 0 {
		s.desc = "any device"
	} else {
		s.desc = strings.Join(parts, " ")
	}
	return s
}

// Match reports whether device satisfies every configured pattern.
func (s Selector) Match(device exporter.DeviceRef) bool {
	if s.hasID && !s.id.Match(device.ID) {
		return false
	}
	if s.hasName && !s.name.Match(device.Name) {
		return false
	}
	if s.hasLabel && !s.label.Match(device.Label) {
		return false
	}
	return true
}

func (s Selector) String() string {
	return s.desc
}
