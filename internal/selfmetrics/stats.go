// Package selfmetrics exposes the exporter's own scrape and process metrics.
package selfmetrics

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"acexporter/internal/exporter"
)

// Namespace prefixes every self metric.
const Namespace = "acexporter"

const (
	resultSuccess = "success"
	resultError   = "error"

	issueMissing       = "missing"
	issueUnmapped      = "unmapped"
	issueSkipped       = "skipped"
	issueCatalogConfig = "catalog_config"
	issueOther         = "other"
)

// Stats tracks scrape outcomes and field-level issues.
type Stats struct {
	scrapes  *prometheus.CounterVec
	duration prometheus.Histogram
	issues   *prometheus.CounterVec
	process  *processCollector
}

// New creates self metrics.
// Params: withProcess enables gopsutil process gauges; logger receives read failures (nil discards).
// Returns: stats ready to Register.
func New(withProcess bool, logger *slog.Logger) *Stats {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Stats{
		scrapes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "scrapes_total",
			Help:      "Device scrapes by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "scrape_duration_seconds",
			Help:      "Time spent fetching and rendering one device snapshot.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "field_issues_total",
			Help:      "Field-level problems met while rendering snapshots.",
		}, []string{"kind"}),
	}
	for _, result := range []string{resultSuccess, resultError} {
		s.scrapes.WithLabelValues(result)
	}
	for _, kind := range []string{issueMissing, issueUnmapped, issueSkipped, issueCatalogConfig, issueOther} {
		s.issues.WithLabelValues(kind)
	}
	if withProcess {
		s.process = newProcessCollector(Namespace, logger)
	}
	return s
}

// Register adds all collectors to reg.
// Params: reg target registerer.
// Returns: first registration error.
func (s *Stats) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{s.scrapes, s.duration, s.issues}
	if s.process != nil {
		collectors = append(collectors, s.process)
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// ObserveScrape records one finished scrape.
// Params: snap rendered snapshot; err fetch error; elapsed wall time of the scrape.
// Returns: none.
func (s *Stats) ObserveScrape(snap exporter.Snapshot, err error, elapsed time.Duration) {
	s.duration.Observe(elapsed.Seconds())
	if err != nil {
		s.scrapes.WithLabelValues(resultError).Inc()
		return
	}
	s.scrapes.WithLabelValues(resultSuccess).Inc()

	for _, issue := range snap.Issues {
		s.issues.WithLabelValues(issueKind(issue)).Inc()
	}
}

func issueKind(err error) string {
	var (
		missing  *exporter.MissingMetricError
		unmapped *exporter.UnmappedValueError
		skipped  *exporter.SkippedFieldError
		config   *exporter.CatalogConfigError
	)
	switch {
	case errors.As(err, &missing):
		return issueMissing
	case errors.As(err, &unmapped):
		return issueUnmapped
	case errors.As(err, &skipped):
		return issueSkipped
	case errors.As(err, &config):
		return issueCatalogConfig
	default:
		return issueOther
	}
}
