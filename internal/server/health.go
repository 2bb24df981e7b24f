package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/elskow/authflow/internal/config"
	"github.com/elskow/authflow/internal/database"
	"github.com/elskow/authflow/internal/notify"
)

// AuthServiceName is the service name reported by the gRPC health server.
const AuthServiceName = "authflow.Auth"

const defaultCheckInterval = 15 * time.Second

// Checker pings every backing dependency.
type Checker struct {
	pingers map[string]notify.Pinger
	timeout time.Duration
}

func NewChecker(manager *database.Manager, dispatcher notify.Dispatcher) *Checker {
	c := &Checker{
		pingers: map[string]notify.Pinger{"database": manager},
		timeout: 5 * time.Second,
	}
	if p, ok := dispatcher.(notify.Pinger); ok {
		c.pingers["notify"] = p
	}
	return c
}

func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var errs []error
	for name, p := range c.pingers {
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// HealthServer serves grpc.health.v1 for orchestrators, refreshing its
// status from the Checker on a fixed interval.
type HealthServer struct {
	config     *config.GRPCConfig
	host       string
	log        *zap.Logger
	grpcServer *grpc.Server
	health     *health.Server
	checker    *Checker
	stop       chan struct{}
}

func NewHealthServer(cfg *config.AppConfig, log *zap.Logger, checker *Checker) *HealthServer {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	if cfg.GRPC.EnableReflection {
		reflection.Register(grpcServer)
	}

	return &HealthServer{
		config:     &cfg.GRPC,
		host:       cfg.Server.Host,
		log:        log,
		grpcServer: grpcServer,
		health:     healthServer,
		checker:    checker,
		stop:       make(chan struct{}),
	}
}

func (h *HealthServer) Start() error {
	addr := net.JoinHostPort(h.host, h.config.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	h.log.Info("Starting gRPC health server",
		zap.String("address", addr),
		zap.Bool("reflection_enabled", h.config.EnableReflection))

	h.refresh(context.Background())
	go h.watch()

	if err := h.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

func (h *HealthServer) Stop() {
	h.log.Info("shutting down gRPC health server")
	close(h.stop)
	h.health.Shutdown()
	h.grpcServer.GracefulStop()
}

func (h *HealthServer) watch() {
	interval := h.config.HealthCheckInterval
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.refresh(context.Background())
		}
	}
}

func (h *HealthServer) refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.checker.Check(ctx); err != nil {
		h.log.Warn("dependency check failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(AuthServiceName, status)
	return status
}
