// Package grpchealth serves grpc.health.v1 with the device fetch outcome.
package grpchealth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"acexporter/internal/exporter"
)

// Service is the health service name reflecting the last device fetch.
const Service = "acexporter"

const stopTimeout = 3 * time.Second

// Server runs a grpc health endpoint tied to a lifecycle context.
// Params: bound listener, grpc server and health state.
// Returns: runnable health server.
type Server struct {
	listen string
	ln     net.Listener
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// New binds the listen address and registers the health service.
// Params: listen host:port; logger diagnostics.
// Returns: server or bind error.
func New(listen string, logger *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, fmt.Errorf("listen %q: %w", listen, err)
	}

	hs := health.NewServer()
	// unknown until the first scrape finishes
	hs.SetServingStatus(Service, healthpb.HealthCheckResponse_UNKNOWN)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		listen: listen,
		ln:     ln,
		grpc:   gs,
		health: hs,
		logger: logger,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// ObserveScrape flips the service status after every scrape.
// Params: err is the fetch error of the finished scrape; other params are ignored.
// Returns: none.
func (s *Server) ObserveScrape(_ exporter.Snapshot, err error, _ time.Duration) {
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(Service, status)
}

// Run serves until ctx is done.
// Params: ctx lifecycle context.
// Returns: nil on graceful stop; serve error otherwise.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpc.Serve(s.ln)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		stopped := make(chan struct{})
		go func() {
			s.grpc.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(stopTimeout):
			s.grpc.Stop()
		}
		err := <-errCh
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case err := <-errCh:
		s.logger.Error("grpc health server stopped unexpectedly", slog.String("listen", s.listen), slog.String("error", err.Error()))
		return err
	}
}
