package grpc_control

import (
	"fmt"
	"net"

	"candle-relay/src/logger"

	"google.golang.org/grpc"
)

// Server hosts the control service on its own listener.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	Logger     *logger.Logger
}

// Listen binds addr and registers svc. Serve must be called to accept calls.
func Listen(addr string, svc RelayControlServer, l *logger.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return NewServer(lis, svc, l), nil
}

// NewServer registers svc on a fresh grpc.Server bound to lis.
func NewServer(lis net.Listener, svc RelayControlServer, l *logger.Logger) *Server {
	s := grpc.NewServer()
	RegisterRelayControlServer(s, svc)
	return &Server{grpcServer: s, listener: lis, Logger: l}
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until Stop.
func (s *Server) Serve() error {
	s.Logger.Info("gRPC control server listening on %s", s.Addr())
	if err := s.grpcServer.Serve(s.listener); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// Stop drains in-flight calls.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
