package grpc

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall
// ("") status.
const ServiceName = "forms"

type Server struct {
	srv    *grpc.Server
	health *health.Server
	bind   string
}

// NewGrpc builds a server exposing the standard health service. Both
// statuses start as NOT_SERVING until Watch sees the platform become ready.
func NewGrpc(bind string) *Server {
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &Server{srv: srv, health: hs, bind: bind}
}

// Watch flips the health status to SERVING once ready is closed.
func (v *Server) Watch(ctx context.Context, ready <-chan struct{}) {
	go func() {
		select {
		case <-ready:
			v.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			v.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
			log.Debug().Msg("Health status is now serving.")
		case <-ctx.Done():
		}
	}()
}

func (v *Server) Listen() error {
	listener, err := net.Listen("tcp", v.bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", v.bind, err)
	}
	return v.srv.Serve(listener)
}

// Stop marks everything NOT_SERVING and drains in-flight calls.
func (v *Server) Stop() {
	v.health.Shutdown()
	v.srv.GracefulStop()
}
