package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"acexporter/internal/exporter"
)

// ScrapeObserver is told about every finished scrape.
type ScrapeObserver interface {
	ObserveScrape(snap exporter.Snapshot, err error, elapsed time.Duration)
}

// Collector is the per-request bridge between one Collect call and a prometheus registry.
// It is unchecked: sample names come from the catalog at scrape time.
type Collector struct {
	ctx       context.Context
	exporter  *exporter.Exporter
	observers []ScrapeObserver
	logger    *slog.Logger
}

// NewCollector binds a collector to one request.
// Params: ctx scrape deadline; exp snapshot source; observers scrape hooks; logger diagnostics.
// Returns: collector ready for registry.Register.
func NewCollector(ctx context.Context, exp *exporter.Exporter, observers []ScrapeObserver, logger *slog.Logger) *Collector {
	return &Collector{ctx: ctx, exporter: exp, observers: observers, logger: logger}
}

// Describe sends nothing so the registry treats the collector as unchecked.
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

// Collect performs one scrape and streams its samples; a fetch failure becomes an invalid metric.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	started := time.Now()
	snap, err := c.exporter.Collect(c.ctx)
	elapsed := time.Since(started)

	for _, observer := range c.observers {
		observer.ObserveScrape(snap, err, elapsed)
	}

	if err != nil {
		c.logger.Error("scrape failed", slog.String("error", err.Error()), slog.Duration("elapsed", elapsed))
		desc := prometheus.NewDesc(c.exporter.Prefix()+"up", "Whether the last device fetch succeeded.", nil, nil)
		ch <- prometheus.NewInvalidMetric(desc, err)
		return
	}

	for _, sample := range snap.Samples {
		help := sample.Help
		if help == "" {
			help = "SmartThings attribute " + sample.Field + "."
		}
		valueType := prometheus.GaugeValue
		if sample.Type == exporter.SampleCounter {
			valueType = prometheus.CounterValue
		}

		metric, err := prometheus.NewConstMetric(prometheus.NewDesc(sample.Name, help, nil, nil), valueType, sample.Value)
		if err != nil {
			c.logger.Warn("sample rejected", slog.String("metric", sample.Name), slog.String("error", err.Error()))
			continue
		}
		ch <- metric
	}

	c.logger.Debug("scrape finished",
		slog.Int("samples", len(snap.Samples)),
		slog.Int("issues", len(snap.Issues)),
		slog.Duration("elapsed", elapsed),
	)
}
