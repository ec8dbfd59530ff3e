package main

import (
	"context"
	"fmt"

	"candle-relay/src/config"
	datasource "candle-relay/src/data_source"
	"candle-relay/src/grpc_control"
	"candle-relay/src/logger"
	"candle-relay/src/market"
	"candle-relay/src/server"
)

// -----------------------------------------------------------------------------

// startServers launches HTTP/WebSocket and, when a port is set, gRPC control.
func startServers(
	srv *server.FastAPIServer,
	ms *market.MarketService,
	multiSource *datasource.MultiSourceManager,
	conf *config.Config,
	appLogger *logger.Logger,
) *grpc_control.Server {

	// 1. FastAPIServer
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	if conf.GrpcPort == 0 {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", conf.GrpcHost, conf.GrpcPort)
	svc := grpc_control.NewControlService(conf, ms, multiSource, appLogger.Named("ControlService"))
	grpcServer, err := grpc_control.Listen(addr, svc, appLogger.Named("GrpcServer"))
	if err != nil {
		appLogger.Critical("failed to listen for gRPC: %v", err)
		return nil
	}
	go func() {
		if err := grpcServer.Serve(); err != nil {
			appLogger.Critical("failed to serve gRPC: %v", err)
		}
	}()
	return grpcServer
}

// -----------------------------------------------------------------------------

func stopServers(ctx context.Context, srv *server.FastAPIServer, grpcServer *grpc_control.Server, appLogger *logger.Logger) {
	if grpcServer != nil {
		grpcServer.Stop()
	}
	if err := srv.Stop(ctx); err != nil {
		appLogger.Warning("HTTP shutdown: %v", err)
	}
}
