package exporter

import "fmt"

// FetchError reports a scrape whose status fetch failed.
// The whole scrape fails; the server keeps serving.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch device status: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MissingMetricError reports a catalog entry without a value in the flattened set.
type MissingMetricError struct {
	Field string
}

func (e *MissingMetricError) Error() string {
	return fmt.Sprintf("metric %q missing from device status", e.Field)
}

// UnmappedValueError reports a categorical value absent from its mapping table.
// It is a warning: the resolved value is the fallback code 0.
type UnmappedValueError struct {
	Field string
	Value string
}

func (e *UnmappedValueError) Error() string {
	return fmt.Sprintf("%s/%s not mapped - returning %d", e.Field, e.Value, UnmappedCode)
}

// SkippedFieldError reports an unmapped field whose value is not numeric.
type SkippedFieldError struct {
	Field string
	Kind  ScalarKind
	Value string
}

func (e *SkippedFieldError) Error() string {
	return fmt.Sprintf("field %q has non-numeric %s value %q", e.Field, e.Kind, e.Value)
}

// CatalogConfigError reports a catalog entry with an unsupported kind.
type CatalogConfigError struct {
	Field string
	Kind  string
}

func (e *CatalogConfigError) Error() string {
	return fmt.Sprintf("unknown type %q at %s", e.Kind, e.Field)
}
