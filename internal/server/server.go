// Package server exposes device snapshots over HTTP for Prometheus scrapes.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"acexporter/internal/exporter"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

var landingPage = template.Must(template.New("landing").Parse(`<html>
<head><title>SmartThings A/C exporter</title></head>
<body>
<h1>SmartThings A/C exporter</h1>
<p><a href="{{.}}">Metrics</a></p>
</body>
</html>
`))

// Options configures the HTTP routes.
// Params: MetricsPath scrape route; ScrapeTimeout per-request deadline; Global process-wide metrics
// gathered with every scrape; Observers scrape hooks.
// Returns: handler options.
type Options struct {
	MetricsPath   string
	ScrapeTimeout time.Duration
	Global        prometheus.Gatherer
	Observers     []ScrapeObserver
}

// NewHandler builds the gin engine serving /metrics, /healthz and the landing page.
// Params: exp snapshot source; opts route options; logger diagnostics (nil discards).
// Returns: HTTP handler.
func NewHandler(exp *exporter.Exporter, opts Options, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET(opts.MetricsPath, func(c *gin.Context) {
		ctx := c.Request.Context()
		if opts.ScrapeTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.ScrapeTimeout)
			defer cancel()
		}

		registry := prometheus.NewRegistry()
		if err := registry.Register(NewCollector(ctx, exp, opts.Observers, logger)); err != nil {
			c.String(http.StatusInternalServerError, "register collector: %v", err)
			return
		}

		gatherers := prometheus.Gatherers{registry}
		if opts.Global != nil {
			gatherers = append(gatherers, opts.Global)
		}

		promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{
			ErrorHandling: promhttp.HTTPErrorOnError,
			ErrorLog:      slog.NewLogLogger(logger.Handler(), slog.LevelError),
		}).ServeHTTP(c.Writer, c.Request)
	})

	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	engine.GET("/", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Status(http.StatusOK)
		if err := landingPage.Execute(c.Writer, opts.MetricsPath); err != nil {
			logger.Warn("landing page render failed", slog.String("error", err.Error()))
		}
	})

	return engine
}

// HTTPServer runs an HTTP server tied to a lifecycle context.
// Params: listen address, handler, and logger for diagnostics.
// Returns: runnable HTTP server instance.
type HTTPServer struct {
	listen string
	ln     net.Listener
	server *http.Server
	logger *slog.Logger
}

// NewHTTPServer creates an HTTP server and binds to the listen address.
// Params: listen address in host:port; handler HTTP handler; logger root logger.
// Returns: server instance or bind error.
func NewHTTPServer(listen string, handler http.Handler, logger *slog.Logger) (*HTTPServer, error) {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, fmt.Errorf("listen %q: %w", listen, err)
	}

	return &HTTPServer{
		listen: listen,
		ln:     ln,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger,
	}, nil
}

// Addr returns the bound address.
func (s *HTTPServer) Addr() string {
	return s.ln.Addr().String()
}

// Run starts serving and shuts down on context cancellation.
// Params: ctx lifecycle context.
// Returns: nil on graceful stop; error on early serve failures.
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(s.ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		err := <-errCh
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.logger.Error("http server stopped unexpectedly", slog.String("listen", s.listen), slog.String("error", err.Error()))
		return err
	}
}
