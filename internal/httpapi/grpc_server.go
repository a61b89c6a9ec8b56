package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"scentshop.org/internal/obs"
)

// GRPCHealth exposes the standard grpc.health.v1 service for load balancers,
// backed by the same readiness probe as /readyz.
type GRPCHealth struct {
	*health.Server

	readiness readinessChecker
	version   string
}

// NewGRPCHealth creates the health service. Status starts as NOT_SERVING
// until the first Refresh.
func NewGRPCHealth(r readinessChecker, version string) *GRPCHealth {
	if r == nil {
		r = ReadyProbe{}
	}
	h := &GRPCHealth{Server: health.NewServer(), readiness: r, version: version}
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register attaches the health service to srv.
func (h *GRPCHealth) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, h.Server)
}

// Refresh runs the readiness probe once and publishes the result.
func (h *GRPCHealth) Refresh(ctx context.Context) error {
	status := healthpb.HealthCheckResponse_SERVING
	err := h.readiness.Check(ctx)
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	obs.SetReady(err == nil)
	h.SetServingStatus("", status)
	h.SetServingStatus(serviceName, status)
	return err
}

// Watch refreshes every interval until ctx is done, then marks the service
// as shutting down.
func (h *GRPCHealth) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := h.Refresh(probeCtx); err != nil && ctx.Err() == nil {
			obs.Warn("grpc_health_not_ready", map[string]any{
				"version": h.version,
				"error":   err,
			})
		}
		cancel()
		select {
		case <-ctx.Done():
			h.Shutdown()
			return
		case <-t.C:
		}
	}
}
