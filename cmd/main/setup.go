package main

import (
	"context"
	"fmt"
	"time"

	"candle-relay/src/config"
	datasource "candle-relay/src/data_source"
	"candle-relay/src/helpers"
	"candle-relay/src/interfaces"
	"candle-relay/src/logger"
	"candle-relay/src/market"
	"candle-relay/src/storage"
	"candle-relay/src/telemetry"
)

// managedSink is an event sink with its own worker.
type managedSink interface {
	interfaces.IEventSink
	Stop()
}

// -----------------------------------------------------------------------------

// setupTelemetry falls back to a no-op tracer when the exporter cannot start.
func setupTelemetry(conf *config.Config, appLogger *logger.Logger) *telemetry.Tracer {
	tracer, err := telemetry.NewTracer(conf.Telemetry.TracingEnabled, conf.Name, appVersion)
	if err != nil {
		appLogger.Warning("Tracing disabled: %v", err)
		return telemetry.NewNopTracer()
	}
	return tracer
}

// -----------------------------------------------------------------------------

func setupMarket(conf *config.Config, appLogger *logger.Logger) (*market.MarketService, error) {
	ms, err := market.NewMarketService(conf.Market, appLogger.Named("MarketService"))
	if err != nil {
		appLogger.Critical("Failed to init market state: %v", err)
		return nil, err
	}
	appLogger.Info("Aggregating ticks into %v", ms.AggregateTimeframes())
	return ms, nil
}

// -----------------------------------------------------------------------------

// setupDatabase initializes the archive database. Returns nil for db_type none.
func setupDatabase(conf *config.Config, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	var db interfaces.IDatabase

	switch conf.Storage.DBType {
	case "postgres":
		db = storage.NewPostgresDB(conf.Storage, conf.Name, appLogger.Named("PostgresDB"))
	case "sqlite":
		db = storage.NewAsyncSQLiteDB(conf.Storage, appLogger.Named("SQLiteDB"))
	default:
		appLogger.Info("Archive disabled")
		return nil, nil
	}

	err := helpers.RetryWithBackoff("database initialize", 3, 500*time.Millisecond, db.Initialize)
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupSinks starts the archive writer and the redis mirror when configured.
// A redis outage at startup only disables the mirror.
func setupSinks(ctx context.Context, conf *config.Config, db interfaces.IDatabase, appLogger *logger.Logger) []managedSink {
	var sinks []managedSink

	if db != nil {
		flush := time.Duration(conf.Storage.FlushIntervalSeconds) * time.Second
		archiver := storage.NewArchiver(db, flush, 0, appLogger.Named("Archiver"))
		archiver.Start()
		sinks = append(sinks, archiver)
	}

	if conf.Redis.Enabled {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		client, err := storage.NewRedisClient(pingCtx, conf.Redis)
		if err != nil {
			appLogger.Error("Redis mirror disabled: %v", err)
		} else {
			mirror := storage.NewRedisMirror(client, conf.Redis.ChannelPrefix, 0, appLogger.Named("RedisMirror"))
			mirror.Start()
			sinks = append(sinks, mirror)
		}
	}

	return sinks
}

// -----------------------------------------------------------------------------

// setupDataSources builds the configured sources and wraps them in a manager.
// Having no sources is fine: HTTP, gRPC and Kafka-less deployments push data in.
func setupDataSources(conf *config.Config, tracer *telemetry.Tracer, appLogger *logger.Logger) (*datasource.MultiSourceManager, error) {
	appLogger.Info("Initializing data sources...")
	sources, err := datasource.BuildSources(conf.DataSource, tracer, appLogger)
	if err != nil {
		appLogger.Critical("Failed to build data sources: %v", err)
		return nil, fmt.Errorf("data sources: %w", err)
	}
	for _, s := range sources {
		appLogger.Info("Added source: %s (IsRealTime: %v)", s.Name(), s.IsRealTime())
	}
	return datasource.NewMultiSourceManager(sources, appLogger.Named("MultiSourceManager")), nil
}
