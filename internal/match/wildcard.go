// Package match implements '*' wildcard matching for device selection.
package match

import "strings"

// WildcardPattern is a compiled '*' wildcard matcher.
// Params: internal split parts, anchor flags and case folding.
// Returns: reusable matcher for many Match calls.
type WildcardPattern struct {
	parts         []string
	anchoredStart bool
	anchoredEnd   bool
	matchAll      bool
	fold          bool
}

// CompileWildcardFold compiles a pattern that ignores letter case.
// Params: pattern may contain '*' wildcards.
// Returns: compiled matcher and false when pattern is empty.
func CompileWildcardFold(pattern string) (WildcardPattern, bool) {
	return compile(pattern, true)
}

func compile(pattern string, fold bool) (WildcardPattern, bool) {
	p := strings.TrimSpace(pattern)
	if p == "" {
		return WildcardPattern{}, false
	}
	if strings.Trim(p, "*") == "" {
		return WildcardPattern{matchAll: true}, true
	}
	if fold {
		p = strings.ToLower(p)
	}

	return WildcardPattern{
		parts:         strings.Split(p, "*"),
		anchoredStart: !strings.HasPrefix(p, "*"),
		anchoredEnd:   !strings.HasSuffix(p, "*"),
		fold:          fold,
	}, true
}

// Match evaluates compiled wildcard pattern against value.
// Params: value is compared text.
// Returns: true on pattern match.
func (p WildcardPattern) Match(value string) bool {
	if p.matchAll {
		return true
	}
	if len(p.parts) == 0 {
		return false
	}
	if p.fold {
		value = strings.ToLower(value)
	}
	if len(p.parts) == 1 {
		return value == p.parts[0]
	}

	cursor := 0
	partIndex := 0

	if p.anchoredStart {
		startPart := p.parts[0]
		if !strings.HasPrefix(value, startPart) {
			return false
		}
		cursor = len(startPart)
		partIndex = 1
	}

	lastIndex := len(p.parts) - 1
	loopLimit := len(p.parts)
	if p.anchoredEnd {
		loopLimit = lastIndex
	}

	for ; partIndex < loopLimit; partIndex++ {
		segment := p.parts[partIndex]
		if segment == "" {
			continue
		}
		offset := strings.Index(value[cursor:], segment)
		if offset < 0 {
			return false
		}
		cursor += offset + len(segment)
	}

	if p.anchoredEnd {
		endPart := p.parts[lastIndex]
		if endPart == "" {
			return true
		}
		// the suffix must not overlap text already consumed by earlier parts
		return len(value)-len(endPart) >= cursor && strings.HasSuffix(value, endPart)
	}

	return true
}
