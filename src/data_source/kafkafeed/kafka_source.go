package kafkafeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"candle-relay/src/helpers"
	"candle-relay/src/logger"
	"candle-relay/src/models"
	"candle-relay/src/telemetry"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the source uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// -----------------------------------------------------------------------------
// KafkaSource consumes JSON ingest envelopes ({"type": "tick"|"candle"|
// "candles"|"signal", ...}) from one topic. Undecodable messages are logged
// and skipped.
// -----------------------------------------------------------------------------

type KafkaSource struct {
	SourceConfig models.MSourceConfig
	Logger       *logger.Logger
	Tracer       *telemetry.Tracer

	newReader func() MessageReader
	reader    MessageReader
	isRunning atomic.Bool
	skipped   atomic.Int64
	cancel    context.CancelFunc
	mu        sync.Mutex
}

// -----------------------------------------------------------------------------

func NewKafkaSource(cfg models.MSourceConfig, tracer *telemetry.Tracer, l *logger.Logger) *KafkaSource {
	if tracer == nil {
		tracer = telemetry.NewNopTracer()
	}
	s := &KafkaSource{SourceConfig: cfg, Logger: l, Tracer: tracer}
	s.newReader = func() MessageReader {
		rc := kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}
		if cfg.GroupID == "" {
			rc.StartOffset = kafka.LastOffset
		}
		return kafka.NewReader(rc)
	}
	return s
}

// NewKafkaSourceWithReader uses a caller-supplied reader factory.
func NewKafkaSourceWithReader(cfg models.MSourceConfig, newReader func() MessageReader, l *logger.Logger) *KafkaSource {
	return &KafkaSource{SourceConfig: cfg, Logger: l, Tracer: telemetry.NewNopTracer(), newReader: newReader}
}

// -----------------------------------------------------------------------------

func (s *KafkaSource) Name() string {
	return s.SourceConfig.Name
}

func (s *KafkaSource) IsRealTime() bool {
	return true
}

// Skipped returns how many messages could not be decoded.
func (s *KafkaSource) Skipped() int64 {
	return s.skipped.Load()
}

// -----------------------------------------------------------------------------

func (s *KafkaSource) Start(parentCtx context.Context, out chan<- models.MIngest, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning.Load() {
		return fmt.Errorf("source %s is already running", s.Name())
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel
	s.reader = s.newReader()
	s.isRunning.Store(true)

	wg.Add(1)
	go s.consume(ctx, s.reader, out, wg)
	s.Logger.Info("Started KafkaSource: %s (topic %s)", s.Name(), s.SourceConfig.Topic)
	return nil
}

// -----------------------------------------------------------------------------

func (s *KafkaSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning.Load() {
		return fmt.Errorf("source %s is not running", s.Name())
	}
	s.cancel()
	s.isRunning.Store(false)
	s.Logger.Info("Stopped KafkaSource: %s", s.Name())
	return nil
}

// -----------------------------------------------------------------------------

func (s *KafkaSource) consume(ctx context.Context, reader MessageReader, out chan<- models.MIngest, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if err := reader.Close(); err != nil {
			s.Logger.Warning("Closing kafka reader for %s: %v", s.Name(), err)
		}
	}()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			s.Logger.Error("Kafka read failed on %s: %v", s.Name(), err)
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}

		_, span := s.Tracer.StartSpan(ctx, "kafka.consume", "topic", msg.Topic, "source", s.Name())
		rec, err := DecodeMessage(msg.Value)
		telemetry.EndSpan(span, err)
		if err != nil {
			s.skipped.Add(1)
			s.Logger.Warning("Skipping message at offset %d: %v", msg.Offset, err)
			continue
		}
		rec.Source = s.Name()

		select {
		case out <- rec:
		case <-ctx.Done():
			return
		}
	}
}

// -----------------------------------------------------------------------------

// DecodeMessage parses one JSON envelope into an ingest record.
func DecodeMessage(value []byte) (models.MIngest, error) {
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()

	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return models.MIngest{}, helpers.NewValidationError("invalid JSON: %v", err)
	}
	return helpers.ParseIngestPayload(payload)
}
