package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	sdkgrpc "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HubService is the health service name reported for the broadcast hub.
const HubService = "chathub.Hub"

// HealthServer exposes grpc.health.v1 and reflection for the hub process.
type HealthServer struct {
	log    *slog.Logger
	server *grpc.Server
	health *health.Server
}

func NewHealthServer(log *slog.Logger, opts ...grpc.ServerOption) *HealthServer {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(sdkgrpc.UnaryLoggingInterceptor(log)),
	}, opts...)
	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(HubService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpc_health_v1.RegisterHealthServer(s, hs)
	reflection.Register(s)
	return &HealthServer{log: log, server: s, health: hs}
}

// Serve marks the hub SERVING and blocks until the server stops.
func (h *HealthServer) Serve(listener net.Listener) error {
	h.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	h.health.SetServingStatus(HubService, grpc_health_v1.HealthCheckResponse_SERVING)
	for name := range h.server.GetServiceInfo() {
		h.log.Debug("gRPC exposed service", "name", name)
	}
	if err := h.server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("gRPC server error: %w", err)
	}
	return nil
}

// Drain reports NOT_SERVING for every service. Later status updates are ignored.
func (h *HealthServer) Drain() {
	h.health.Shutdown()
}

func (h *HealthServer) Stop() {
	h.server.GracefulStop()
}

func (h *HealthServer) Shutdown() {
	h.Drain()
	h.Stop()
}
