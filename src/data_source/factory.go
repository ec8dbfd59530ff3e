package datasource

import (
	"context"
	"fmt"
	"sync"

	"candle-relay/src/data_source/kafkafeed"
	"candle-relay/src/data_source/mockfeed"
	"candle-relay/src/interfaces"
	"candle-relay/src/logger"
	"candle-relay/src/models"
	"candle-relay/src/telemetry"
)

// BuildSources instantiates every configured source.
func BuildSources(cfg models.MDataSourceConfig, tracer *telemetry.Tracer, l *logger.Logger) ([]interfaces.IDataSource, error) {
	sources := make([]interfaces.IDataSource, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		switch sc.Type {
		case "mock":
			sources = append(sources, mockfeed.NewMockSource(sc, l.Named("MockSource-"+sc.Name)))
		case "kafka":
			sources = append(sources, kafkafeed.NewKafkaSource(sc, tracer, l.Named("KafkaSource-"+sc.Name)))
		default:
			return nil, fmt.Errorf("source '%s' has unsupported type '%s'", sc.Name, sc.Type)
		}
	}
	return sources, nil
}

// -----------------------------------------------------------------------------

// Ingester is what the pump feeds records into.
type Ingester interface {
	Ingest(rec models.MIngest) error
}

// Pump drains records into the ingester until ctx is done. Rejected records
// are logged at debug level; one bad record never stops the pump.
func Pump(ctx context.Context, in <-chan models.MIngest, target Ingester, l *logger.Logger, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-in:
			if err := target.Ingest(rec); err != nil {
				l.Debug("Record from %s rejected: %v", rec.Source, err)
			}
		}
	}
}
