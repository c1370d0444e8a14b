package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"acexporter/internal/catalog"
	"acexporter/internal/exporter"
	"acexporter/internal/selfmetrics"
)

type fakeSource struct {
	payload string
	err     error
	stall   chan struct{}
}

func (s *fakeSource) FetchDeviceStatus(ctx context.Context, _ exporter.DeviceSelector) (exporter.Document, error) {
	if s.stall != nil {
		select {
		case <-s.stall:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return exporter.ParseDocument([]byte(s.payload))
}

func newTestExporter(t *testing.T, source exporter.StatusSource) *exporter.Exporter {
	t.Helper()

	cat, err := catalog.New([]catalog.Entry{
		{Name: "fan_mode", Kind: catalog.KindEnum, Description: "Fan mode code"},
		{Name: "power", Kind: catalog.KindCounter, Description: "Energy meter"},
		{Name: "power_consumption", Kind: catalog.KindSubMetric},
	}, nil)
	if err != nil {
		t.Fatalf("catalog.New() error: %v", err)
	}
	mapper := exporter.NewMapper(exporter.DefaultMappings(), nil)
	anyDevice := exporter.SelectorFunc(func(exporter.DeviceRef) bool { return true })

	exp, err := exporter.New(cat, mapper, source, anyDevice, exporter.Options{Prefix: exporter.DefaultPrefix}, nil)
	if err != nil {
		t.Fatalf("exporter.New() error: %v", err)
	}
	return exp
}

func scrape(t *testing.T, handler http.Handler, path string) (int, string) {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return rec.Code, string(body)
}

func TestMetricsEndpointRendersSnapshot(t *testing.T) {
	stats := selfmetrics.New(false, nil)
	global := prometheus.NewRegistry()
	if err := stats.Register(global); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	handler := NewHandler(newTestExporter(t, &fakeSource{payload: `{"fanMode":"high","power":42,"powerConsumption":{"energy":1}}`}), Options{
		MetricsPath:   "/metrics",
		ScrapeTimeout: time.Second,
		Global:        global,
		Observers:     []ScrapeObserver{stats},
	}, nil)

	code, body := scrape(t, handler, "/metrics")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", code, body)
	}
	for _, fragment := range []string{
		"# HELP smartthings_ac_fan_mode Fan mode code",
		"# TYPE smartthings_ac_fan_mode gauge",
		"smartthings_ac_fan_mode 3",
		"# TYPE smartthings_ac_power counter",
		"smartthings_ac_power 42",
		`acexporter_scrapes_total{result="success"} 1`,
	} {
		if !strings.Contains(body, fragment) {
			t.Fatalf("expected %q in body:\n%s", fragment, body)
		}
	}
	if strings.Contains(body, "smartthings_ac_power_consumption") {
		t.Fatalf("sub_metric entry must not be exposed:\n%s", body)
	}
}

func TestMetricsEndpointFailsOnFetchError(t *testing.T) {
	handler := NewHandler(newTestExporter(t, &fakeSource{err: errors.New("token rejected")}), Options{}, nil)

	code, body := scrape(t, handler, "/metrics")
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", code, body)
	}
	if !strings.Contains(body, "token rejected") {
		t.Fatalf("expected fetch error in body:\n%s", body)
	}
}

func TestMetricsEndpointHonoursScrapeTimeout(t *testing.T) {
	source := &fakeSource{stall: make(chan struct{})}
	defer close(source.stall)
	handler := NewHandler(newTestExporter(t, source), Options{ScrapeTimeout: 50 * time.Millisecond}, nil)

	started := time.Now()
	code, body := scrape(t, handler, "/metrics")
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", code, body)
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("scrape did not respect timeout: %v", elapsed)
	}
}

func TestAuxiliaryRoutes(t *testing.T) {
	handler := NewHandler(newTestExporter(t, &fakeSource{payload: `{}`}), Options{MetricsPath: "/scrape"}, nil)

	if code, body := scrape(t, handler, "/healthz"); code != http.StatusOK || body != "ok" {
		t.Fatalf("unexpected /healthz response %d %q", code, body)
	}
	if code, body := scrape(t, handler, "/"); code != http.StatusOK || !strings.Contains(body, `href="/scrape"`) {
		t.Fatalf("unexpected landing page %d %q", code, body)
	}
	if code, _ := scrape(t, handler, "/metrics"); code != http.StatusNotFound {
		t.Fatalf("expected default path to be unrouted, got %d", code)
	}
}

func TestCollectorMetricTypes(t *testing.T) {
	exp := newTestExporter(t, &fakeSource{payload: `{"FanMode":"turbo","Power":7}`})
	registry := prometheus.NewRegistry()
	if err := registry.Register(NewCollector(context.Background(), exp, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	want := map[string]dto.MetricType{
		"smartthings_ac_fan_mode": dto.MetricType_GAUGE,
		"smartthings_ac_power":    dto.MetricType_COUNTER,
	}
	if len(families) != len(want) {
		t.Fatalf("unexpected family count: %d", len(families))
	}
	for _, family := range families {
		typ, ok := want[family.GetName()]
		if !ok || family.GetType() != typ {
			t.Fatalf("unexpected family %s type %v", family.GetName(), family.GetType())
		}
	}
}
