package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"candle-relay/src/config"
	datasource "candle-relay/src/data_source"
	"candle-relay/src/helpers"
	"candle-relay/src/logger"
	"candle-relay/src/models"
	"candle-relay/src/server"
)

const appVersion = "1.0.0"

// -----------------------------------------------------------------------------

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf.LogLevel, conf.Name)
	defer appLogger.Sync()

	tracer := setupTelemetry(conf, appLogger)

	// 4. Market state
	conf.Market.MaxMemoryMB = helpers.ResolveMemoryLimitMB(conf.Market.MaxMemoryMB)
	appLogger.Info("Series memory limit set to: %d MB", conf.Market.MaxMemoryMB)
	marketService, err := setupMarket(conf, appLogger)
	if err != nil {
		os.Exit(1)
	}

	// 5. Storage and mirrors
	db, err := setupDatabase(conf, appLogger)
	if err != nil {
		os.Exit(1)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sinks := setupSinks(ctx, conf, db, appLogger)

	// 6. Servers (the hub is registered as a sink before any source runs)
	srv := server.NewFastAPIServer(conf.MConfig, marketService, tracer, appLogger.Named("FastAPIServer"))
	marketService.AddSink(srv.Hub())
	for _, sink := range sinks {
		marketService.AddSink(sink)
	}

	multiSource, err := setupDataSources(conf, tracer, appLogger)
	if err != nil {
		os.Exit(1)
	}
	grpcServer := startServers(srv, marketService, multiSource, conf, appLogger)

	// 7. Sources and pump
	var wg sync.WaitGroup
	records := make(chan models.MIngest, conf.Hub.InboxBuffer)
	if err := multiSource.Start(ctx, records, &wg); err != nil {
		appLogger.Critical("Failed to start data sources: %v", err)
	}
	var pumpWg sync.WaitGroup
	pumpWg.Add(1)
	go datasource.Pump(ctx, records, marketService, appLogger.Named("Pump"), &pumpWg)

	// 8. Wait for a signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Received %v, shutting down...", sig)

	cancel()
	if err := multiSource.Stop(); err != nil {
		appLogger.Warning("Stopping sources: %v", err)
	}
	wg.Wait()
	pumpWg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	stopServers(shutdownCtx, srv, grpcServer, appLogger)

	for _, sink := range sinks {
		sink.Stop()
	}
	if db != nil {
		if err := db.Close(); err != nil {
			appLogger.Warning("Closing database: %v", err)
		}
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		appLogger.Warning("Tracer shutdown: %v", err)
	}
	appLogger.Info("Shutdown complete.")
}
