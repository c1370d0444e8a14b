package exporter

import (
	"regexp"
	"strings"
)

var (
	acronymBoundary = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	wordBoundary    = regexp.MustCompile(`([a-z\d])([A-Z])`)
)

// Canonicalize converts a compound field name (camelCase, PascalCase, kebab-case)
// into the lower snake_case form used by the catalog.
// Params: raw field name as reported by the device.
// Returns: canonical name; characters outside the rules pass through.
//
// For instance "airConditionerMode" -> "air_conditioner_mode",
// "HTTPStatus" -> "http_status", "dust-filter" -> "dust_filter".
func Canonicalize(raw string) string {
	name := acronymBoundary.ReplaceAllString(raw, "${1}_${2}")
	name = wordBoundary.ReplaceAllString(name, "${1}_${2}")
	name = strings.ReplaceAll(name, "-", "_")
	return strings.ToLower(name)
}
