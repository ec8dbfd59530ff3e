package grpc_control

import (
	"context"
	"encoding/json"
	"errors"

	"candle-relay/src/config"
	datasource "candle-relay/src/data_source"
	"candle-relay/src/helpers"
	"candle-relay/src/logger"
	"candle-relay/src/market"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ControlService implements RelayControlServer over the market service and
// the source manager.
type ControlService struct {
	Config     *config.Config
	Market     *market.MarketService
	DataSource *datasource.MultiSourceManager
	Logger     *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	cfg *config.Config,
	ms *market.MarketService,
	ds *datasource.MultiSourceManager,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Config:     cfg,
		Market:     ms,
		DataSource: ds,
		Logger:     log,
	}
}

var _ RelayControlServer = (*ControlService)(nil)

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(map[string]interface{}{
		"name":       s.Config.Name,
		"symbols":    s.Market.SymbolCount(),
		"timeframes": s.Market.AggregateTimeframes(),
		"metrics":    s.Market.Metrics(),
		"sources":    s.sources(),
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSources(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(map[string]interface{}{"sources": s.sources()})
}

func (s *ControlService) sources() []datasource.SourceStatus {
	if s.DataSource == nil {
		return []datasource.SourceStatus{}
	}
	return s.DataSource.GetAllSources()
}

// -----------------------------------------------------------------------------

func (s *ControlService) StartSource(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := stringField(req, "name")
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	if s.DataSource == nil {
		return nil, status.Error(codes.FailedPrecondition, "no source manager")
	}
	if err := s.DataSource.StartSource(name); err != nil {
		return nil, status.Errorf(codes.FailedPrecondition, "start %s: %v", name, err)
	}
	s.Logger.Info("Source %s started via control API", name)
	return toStruct(map[string]interface{}{"ok": true, "name": name})
}

func (s *ControlService) StopSource(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := stringField(req, "name")
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	if s.DataSource == nil {
		return nil, status.Error(codes.FailedPrecondition, "no source manager")
	}
	if err := s.DataSource.StopSource(name); err != nil {
		return nil, status.Errorf(codes.FailedPrecondition, "stop %s: %v", name, err)
	}
	s.Logger.Info("Source %s stopped via control API", name)
	return toStruct(map[string]interface{}{"ok": true, "name": name})
}

// -----------------------------------------------------------------------------

func (s *ControlService) QuerySeries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	symbol := stringField(req, "symbol")
	tf := stringField(req, "tf")
	if symbol == "" || tf == "" {
		return nil, status.Error(codes.InvalidArgument, "symbol and tf are required")
	}
	limit := s.Config.Market.DefaultQueryLimit
	if v, ok := req.GetFields()["limit"]; ok {
		limit = int(v.GetNumberValue())
	}

	candles, err := s.Market.QuerySeries(symbol, tf, limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]interface{}{"symbol": symbol, "tf": tf, "candles": candles})
}

func (s *ControlService) QueryLatestTick(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	symbol := stringField(req, "symbol")
	if symbol == "" {
		return toStruct(map[string]interface{}{"ticks": s.Market.QueryLatestTicks()})
	}
	tick, ok := s.Market.QueryLatestTick(symbol)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no tick for %s", symbol)
	}
	return toStruct(map[string]interface{}{"tick": tick})
}

// -----------------------------------------------------------------------------

// SubmitRecord ingests one record shaped like a Kafka envelope
// ({"type": "tick", ...}).
func (s *ControlService) SubmitRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rec, err := helpers.ParseIngestPayload(req.AsMap())
	if err != nil {
		return nil, toStatus(err)
	}
	rec.Source = "grpc"
	if err := s.Market.Ingest(rec); err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]interface{}{"ok": true})
}

// -----------------------------------------------------------------------------

func stringField(req *structpb.Struct, key string) string {
	if v, ok := req.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

// toStruct goes through JSON so struct tags decide the field names.
func toStruct(v map[string]interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func toStatus(err error) error {
	var stale *helpers.StaleDataError
	var invalid *helpers.ValidationError
	var unknown *helpers.UnknownTimeframeError
	switch {
	case errors.As(err, &stale):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &invalid), errors.As(err, &unknown):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
