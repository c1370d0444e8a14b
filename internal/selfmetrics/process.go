package selfmetrics

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goprocess "github.com/shirou/gopsutil/v4/process"
)

const processReadTimeout = 2 * time.Second

// processCollector reports CPU, resident memory and descriptor usage of the exporter itself.
// Params: gopsutil process handle resolved lazily for the current pid.
// Returns: prometheus collector with three gauges.
type processCollector struct {
	mu     sync.Mutex
	proc   *goprocess.Process
	logger *slog.Logger

	cpu *prometheus.Desc
	rss *prometheus.Desc
	fds *prometheus.Desc
}

func newProcessCollector(namespace string, logger *slog.Logger) *processCollector {
	return &processCollector{
		logger: logger,
		cpu: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "cpu_percent"),
			"CPU usage of the exporter process in percent of one core.",
			nil, nil,
		),
		rss: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "resident_memory_bytes"),
			"Resident memory of the exporter process.",
			nil, nil,
		),
		fds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "open_fds"),
			"Open file descriptors of the exporter process.",
			nil, nil,
		),
	}
}

func (c *processCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cpu
	ch <- c.rss
	ch <- c.fds
}

// Collect reads current process counters; unreadable values are left out.
// Params: ch receives const gauges.
// Returns: none.
func (c *processCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), processReadTimeout)
	defer cancel()

	proc, err := c.process(ctx)
	if err != nil {
		c.logger.Debug("self process lookup failed", slog.String("error", err.Error()))
		return
	}

	if percent, err := proc.CPUPercentWithContext(ctx); err == nil {
		ch <- prometheus.MustNewConstMetric(c.cpu, prometheus.GaugeValue, percent)
	} else {
		c.logger.Debug("self cpu read failed", slog.String("error", err.Error()))
	}

	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		ch <- prometheus.MustNewConstMetric(c.rss, prometheus.GaugeValue, float64(mem.RSS))
	} else if err != nil {
		c.logger.Debug("self memory read failed", slog.String("error", err.Error()))
	}

	// not implemented on every platform
	if fds, err := proc.NumFDsWithContext(ctx); err == nil {
		ch <- prometheus.MustNewConstMetric(c.fds, prometheus.GaugeValue, float64(fds))
	}
}

func (c *processCollector) process(ctx context.Context) (*goprocess.Process, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc != nil {
		return c.proc, nil
	}
	proc, err := goprocess.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	c.proc = proc
	return proc, nil
}
