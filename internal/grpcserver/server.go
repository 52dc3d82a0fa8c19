// Package grpcserver exposes the standard gRPC health service. The serving
// status follows periodic pings of the storage.
package grpcserver

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/patric-chuzhbe/todoapi/internal/grpcserver/interceptor"
)

// ServiceName is the health service name reported besides the overall "" one.
const ServiceName = "todoapi"

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// NewServer returns a gRPC server with the health service registered.
func NewServer(healthServer *health.Server) *grpc.Server {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor(healthCheckMethod),
		),
	)
	healthpb.RegisterHealthServer(server, healthServer)

	return server
}

// NewGRPCServer listens on addr and returns the server to run on it.
func NewGRPCServer(addr string, healthServer *health.Server) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	return NewServer(healthServer), lis, nil
}
