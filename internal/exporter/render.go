package exporter

import (
	"errors"
	"io"
	"log/slog"

	"acexporter/internal/catalog"
)

// DefaultPrefix is prepended to every rendered metric name.
const DefaultPrefix = "smartthings_ac_"

// SampleType is the exposition type of one sample.
type SampleType uint8

const (
	// SampleCounter is a monotonically increasing sample.
	SampleCounter SampleType = iota
	// SampleGauge is a point-in-time sample.
	SampleGauge
)

// String returns the exposition type name.
func (t SampleType) String() string {
	if t == SampleCounter {
		return "counter"
	}
	return "gauge"
}

// Sample is one rendered metric value.
type Sample struct {
	Name  string
	Field string
	Help  string
	Type  SampleType
	Value float64
}

// Snapshot is the ordered result of one scrape.
// Issues lists field-level problems; none of them fail the scrape.
type Snapshot struct {
	Samples []Sample
	Issues  []error
}

// Renderer turns a flattened metric set into samples following the catalog.
// Stateless between calls; safe for concurrent use.
type Renderer struct {
	prefix string
	mapper *Mapper
	logger *slog.Logger
}

// NewRenderer creates a renderer.
// Params: prefix for metric names; mapper for value resolution; logger for field diagnostics (nil discards).
// Returns: renderer instance.
func NewRenderer(prefix string, mapper *Mapper, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Renderer{prefix: prefix, mapper: mapper, logger: logger}
}

// Render emits one sample per renderable catalog entry in catalog order.
// Missing fields, non-numeric values and unknown kinds are skipped and logged;
// unmapped categorical values render as UnmappedCode with a warning.
// Params: cat immutable catalog; flat flattened metric set for this scrape.
// Returns: snapshot with samples and field-level issues.
func (r *Renderer) Render(cat *catalog.Catalog, flat Flattened) Snapshot {
	entries := cat.Entries()
	snap := Snapshot{Samples: make([]Sample, 0, len(entries))}

	for _, entry := range entries {
		if !entry.Kind.Known() {
			issue := &CatalogConfigError{Field: entry.Name, Kind: string(entry.Kind)}
			r.logger.Warn("catalog entry skipped", slog.String("field", entry.Name), slog.String("error", issue.Error()))
			snap.Issues = append(snap.Issues, issue)
			continue
		}
		if entry.Kind == catalog.KindSubMetric {
			continue
		}
		sampleType := SampleGauge
		if entry.Kind == catalog.KindCounter {
			sampleType = SampleCounter
		}

		raw, ok := flat[entry.Name]
		if !ok {
			issue := &MissingMetricError{Field: entry.Name}
			r.logger.Warn("metric missing", slog.String("field", entry.Name), slog.String("error", issue.Error()))
			snap.Issues = append(snap.Issues, issue)
			continue
		}

		value, err := r.mapper.Resolve(entry.Name, raw)
		if err != nil {
			var unmapped *UnmappedValueError
			if !errors.As(err, &unmapped) {
				r.logger.Warn("field skipped", slog.String("field", entry.Name), slog.String("error", err.Error()))
				snap.Issues = append(snap.Issues, err)
				continue
			}
			r.logger.Info("value not mapped", slog.String("field", entry.Name), slog.String("value", unmapped.Value), slog.Int("code", UnmappedCode))
			snap.Issues = append(snap.Issues, err)
		}

		snap.Samples = append(snap.Samples, Sample{
			Name:  r.prefix + entry.Name,
			Field: entry.Name,
			Help:  entry.Description,
			Type:  sampleType,
			Value: value,
		})
	}

	return snap
}
