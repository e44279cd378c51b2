// Package grpc hosts the gRPC health endpoint polled by process supervisors.
package grpc

import (
	"fmt"
	"net"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer is a gRPC server that exposes only the standard health service.
type HealthServer struct {
	server   *gogrpc.Server
	health   *health.Server
	listener net.Listener
}

// ListenHealth binds addr and prepares a health server. The overall ("")
// service reports SERVING immediately; named services start NOT_SERVING.
func ListenHealth(addr string, services ...string) (*HealthServer, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("health address is required")
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	server := gogrpc.NewServer(gogrpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	for _, service := range services {
		healthServer.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}

	return &HealthServer{server: server, health: healthServer, listener: listener}, nil
}

// Addr returns the bound listener address.
func (s *HealthServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve blocks until Stop is called.
func (s *HealthServer) Serve() error {
	return s.server.Serve(s.listener)
}

// SetServing flips a named service between SERVING and NOT_SERVING.
func (s *HealthServer) SetServing(service string, serving bool) {
	if s == nil {
		return
	}
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
}

// Stop marks every service NOT_SERVING and drains the server.
func (s *HealthServer) Stop() {
	if s == nil {
		return
	}
	s.health.Shutdown()
	s.server.GracefulStop()
}
