package grpc

import (
	"context"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthServerReportsNamedServiceStatus(t *testing.T) {
	server, err := ListenHealth("127.0.0.1:0", "autohide.bridge")
	if err != nil {
		t.Fatalf("listen health: %v", err)
	}
	go func() { _ = server.Serve() }()
	t.Cleanup(server.Stop)

	conn, err := gogrpc.NewClient(server.Addr().String(), gogrpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial health: %v", err)
	}
	defer conn.Close()
	client := grpc_health_v1.NewHealthClient(conn)

	if got := check(t, client, ""); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("overall status = %s, want SERVING", got)
	}
	if got := check(t, client, "autohide.bridge"); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("bridge status = %s, want NOT_SERVING", got)
	}

	server.SetServing("autohide.bridge", true)
	if got := check(t, client, "autohide.bridge"); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("bridge status = %s, want SERVING", got)
	}
}

func TestListenHealthRequiresAddress(t *testing.T) {
	if _, err := ListenHealth(" "); err == nil {
		t.Fatal("expected address error")
	}
}

func TestNilHealthServerIsSafe(t *testing.T) {
	var server *HealthServer
	server.SetServing("x", true)
	server.Stop()
}

func check(t *testing.T, client grpc_health_v1.HealthClient, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("health check %q: %v", service, err)
	}
	return resp.GetStatus()
}
