package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"acexporter/internal/catalog"
	"acexporter/internal/config"
	"acexporter/internal/exporter"
	"acexporter/internal/grpchealth"
	"acexporter/internal/logging"
	"acexporter/internal/selfmetrics"
	"acexporter/internal/server"
	"acexporter/internal/smartthings"
)

// Runtime defines runtime inputs required to start the exporter.
// Params: ConfigPath points to the TOML configuration file or directory (optional);
// Overrides carries command-line values.
// Returns: Runtime value used by Run.
type Runtime struct {
	ConfigPath string
	Overrides  config.Overrides
}

type runner interface {
	Run(context.Context) error
	Addr() string
}

type healthRunner interface {
	runner
	server.ScrapeObserver
}

type runDeps struct {
	loadConfig  func(string, config.Overrides) (*config.Config, error)
	newLogger   func(config.LogConfig) (*slog.Logger, func(), error)
	loadCatalog func(string) (*catalog.Catalog, error)
	newSource   func(config.SmartThingsConfig, *slog.Logger) (exporter.StatusSource, error)
	listenHTTP  func(string, http.Handler, *slog.Logger) (runner, error)
	listenGRPC  func(string, *slog.Logger) (healthRunner, error)
}

// CheckResult summarizes a configuration check.
type CheckResult struct {
	CatalogPath string
	Entries     int
	Selector    string
}

// Run loads configuration and catalog, then serves scrapes until ctx is done.
// Params: ctx controls lifecycle; rt provides runtime inputs.
// Returns: startup or serve error, nil on graceful stop.
func Run(ctx context.Context, rt Runtime) error {
	return runWithDeps(ctx, rt, defaultRunDeps())
}

// Check loads configuration and catalog without binding any listener or contacting the API,
// so no SmartThings token is needed.
// Params: rt provides runtime inputs.
// Returns: check summary or the first load error.
func Check(rt Runtime) (CheckResult, error) {
	cfg, err := config.Parse(rt.ConfigPath, rt.Overrides)
	if err != nil {
		return CheckResult{}, fmt.Errorf("load config: %w", err)
	}
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return CheckResult{}, err
	}

	selector := selectorFromConfig(cfg.SmartThings.Device)
	return CheckResult{CatalogPath: cfg.Catalog.Path, Entries: cat.Len(), Selector: selector.String()}, nil
}

// runWithDeps executes runtime lifecycle using injectable dependencies.
// Params: ctx controls lifecycle; rt runtime inputs; deps startup dependencies.
// Returns: runtime error or nil on graceful stop.
func runWithDeps(ctx context.Context, rt Runtime, deps runDeps) error {
	cfg, err := deps.loadConfig(rt.ConfigPath, rt.Overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closeLogger, err := deps.newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLogger()

	// The catalog is loaded before any listener is bound; a bad catalog never opens a port.
	cat, err := deps.loadCatalog(cfg.Catalog.Path)
	if err != nil {
		logger.Error("catalog load failed", slog.String("error", err.Error()))
		return err
	}

	exp, err := buildExporter(cfg, cat, deps, logger)
	if err != nil {
		logger.Error("exporter init failed", slog.String("error", err.Error()))
		return err
	}

	global := prometheus.NewRegistry()
	var observers []server.ScrapeObserver
	if cfg.SelfMetrics.Enabled != nil && *cfg.SelfMetrics.Enabled {
		stats := selfmetrics.New(true, logger)
		if err := stats.Register(global); err != nil {
			return fmt.Errorf("register self metrics: %w", err)
		}
		if err := global.Register(collectors.NewGoCollector()); err != nil {
			return fmt.Errorf("register go collector: %w", err)
		}
		observers = append(observers, stats)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runners := make([]runner, 0, 3)
	bindFailed := func(what string, err error) error {
		cancel()
		releaseRunners(runCtx, runners)
		return fmt.Errorf("start %s: %w", what, err)
	}

	if cfg.Pprof.Enabled {
		debug, err := deps.listenHTTP(cfg.Pprof.Listen, server.NewPprofHandler(), logger)
		if err != nil {
			return bindFailed("pprof server", err)
		}
		runners = append(runners, debug)
		logger.Info("pprof server bound", slog.String("addr", debug.Addr()))
	}

	if cfg.GRPCHealth.Enabled {
		health, err := deps.listenGRPC(cfg.GRPCHealth.Listen, logger)
		if err != nil {
			return bindFailed("grpc health", err)
		}
		observers = append(observers, health)
		runners = append(runners, health)
		logger.Info("grpc health server bound", slog.String("addr", health.Addr()))
	}

	handler := server.NewHandler(exp, server.Options{
		MetricsPath:   cfg.HTTP.Path,
		ScrapeTimeout: cfg.HTTP.ScrapeTimeout.Duration,
		Global:        global,
		Observers:     observers,
	}, logger)

	httpServer, err := deps.listenHTTP(cfg.HTTP.Listen, handler, logger)
	if err != nil {
		return bindFailed("http server", err)
	}
	runners = append(runners, httpServer)

	logStartup(logger, cfg, cat, httpServer.Addr())

	done := make(chan error, len(runners))
	for _, r := range runners {
		go func(r runner) {
			done <- r.Run(runCtx)
		}(r)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-done:
		if runErr == nil {
			runErr = errors.New("server exited without context cancellation")
		}
	}

	cancel()
	remaining := len(runners)
	if runErr != nil {
		remaining--
	}
	for i := 0; i < remaining; i++ {
		if err := <-done; err != nil && runErr == nil {
			runErr = err
		}
	}

	if runErr != nil && ctx.Err() == nil {
		logger.Error("exporter stopped unexpectedly", slog.String("error", runErr.Error()))
		return fmt.Errorf("serve: %w", runErr)
	}

	reason := "canceled"
	if ctx.Err() != nil {
		reason = ctx.Err().Error()
	}
	logger.Info("exporter stopped", slog.String("reason", reason))
	return nil
}

// releaseRunners closes listeners of runners that were bound but never started.
// Params: ctx is an already canceled lifecycle context; runners bound servers.
// Returns: none.
func releaseRunners(ctx context.Context, runners []runner) {
	for _, r := range runners {
		_ = r.Run(ctx)
	}
}

// defaultRunDeps provides production runtime dependencies.
// Params: none.
// Returns: dependency set used by Run.
func defaultRunDeps() runDeps {
	return runDeps{
		loadConfig:  config.Load,
		newLogger:   logging.New,
		loadCatalog: catalog.Load,
		newSource: func(cfg config.SmartThingsConfig, logger *slog.Logger) (exporter.StatusSource, error) {
			return smartthings.NewClient(smartthings.Options{
				BaseURL:   cfg.BaseURL,
				Token:     cfg.Token,
				Timeout:   cfg.Timeout.Duration,
				Component: cfg.Component,
				Refresh:   cfg.Refresh,
			}, logger)
		},
		listenHTTP: func(listen string, handler http.Handler, logger *slog.Logger) (runner, error) {
			return server.NewHTTPServer(listen, handler, logger)
		},
		listenGRPC: func(listen string, logger *slog.Logger) (healthRunner, error) {
			return grpchealth.New(listen, logger)
		},
	}
}

// buildExporter wires mapper, status source and selector around the loaded catalog.
// Params: cfg validated config; cat loaded catalog; deps source factory; logger diagnostics.
// Returns: exporter or wiring error.
func buildExporter(cfg *config.Config, cat *catalog.Catalog, deps runDeps, logger *slog.Logger) (*exporter.Exporter, error) {
	mapper := exporter.NewMapper(exporter.DefaultMappings(), cat.Mappings())

	source, err := deps.newSource(cfg.SmartThings, logger)
	if err != nil {
		return nil, fmt.Errorf("build smartthings client: %w", err)
	}

	return exporter.New(cat, mapper, source, selectorFromConfig(cfg.SmartThings.Device), exporter.Options{
		Prefix: cfg.Catalog.Prefix,
	}, logger)
}

func selectorFromConfig(device config.DeviceConfig) smartthings.Selector {
	return smartthings.NewSelector(device.ID, device.Name, device.Label)
}

// logStartup emits initial startup metadata.
// Params: logger is initialized slog logger; cfg is validated runtime config; cat loaded catalog;
// addr bound scrape address.
// Returns: none.
func logStartup(logger *slog.Logger, cfg *config.Config, cat *catalog.Catalog, addr string) {
	logger.Info(
		"exporter started",
		slog.String("listen", addr),
		slog.String("path", cfg.HTTP.Path),
		slog.String("catalog", cfg.Catalog.Path),
		slog.Int("entries", cat.Len()),
		slog.String("device", selectorFromConfig(cfg.SmartThings.Device).String()),
		slog.Duration("scrape_timeout", cfg.HTTP.ScrapeTimeout.Duration),
	)
}
