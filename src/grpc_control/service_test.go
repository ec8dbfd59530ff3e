package grpc_control

import (
	"context"
	"net"
	"testing"

	"candle-relay/src/config"
	datasource "candle-relay/src/data_source"
	"candle-relay/src/logger"
	"candle-relay/src/market"
	"candle-relay/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestClient(t *testing.T) (*RelayControlClient, *market.MarketService) {
	t.Helper()
	cfg := &config.Config{MConfig: &models.MConfig{
		Name: "relay-test",
		Market: models.MMarketConfig{
			SeriesCapacity:      50,
			MaxQueryLimit:       100,
			DefaultQueryLimit:   10,
			AggregateTimeframes: []string{"1m"},
		},
	}}
	ms, err := market.NewMarketService(cfg.Market, nil)
	require.NoError(t, err)
	ds := datasource.NewMultiSourceManager(nil, logger.NewNopLogger())

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(lis, NewControlService(cfg, ms, ds, logger.NewNopLogger()), logger.NewNopLogger())
	go srv.Serve()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewRelayControlClient(conn), ms
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

// -----------------------------------------------------------------------------

func TestGetStatus(t *testing.T) {
	client, _ := newTestClient(t)

	res, err := client.GetStatus(context.Background())
	require.NoError(t, err)

	m := res.AsMap()
	assert.Equal(t, "relay-test", m["name"])
	assert.Equal(t, []interface{}{"1m"}, m["timeframes"])
	assert.Equal(t, []interface{}{}, m["sources"])

	list, err := client.ListSources(context.Background())
	require.NoError(t, err)
	assert.Contains(t, list.AsMap(), "sources")
}

func TestSubmitRecordThenQuery(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	for i, price := range []float64{10, 12, 9} {
		_, err := client.SubmitRecord(ctx, mustStruct(t, map[string]interface{}{
			"type":   "tick",
			"symbol": "EURUSD_",
			"bid":    price,
			"ask":    price,
			"time":   float64(1_699_920_000_000 + int64(i)*10_000),
		}))
		require.NoError(t, err)
	}

	res, err := client.QuerySeries(ctx, mustStruct(t, map[string]interface{}{"symbol": "EURUSD", "tf": "1m"}))
	require.NoError(t, err)
	candles := res.AsMap()["candles"].([]interface{})
	require.Len(t, candles, 1)
	bar := candles[0].(map[string]interface{})
	assert.Equal(t, 10.0, bar["open"])
	assert.Equal(t, 12.0, bar["high"])
	assert.Equal(t, 9.0, bar["low"])
	assert.Equal(t, 9.0, bar["close"])
	assert.Equal(t, 3.0, bar["volume"])

	tick, err := client.QueryLatestTick(ctx, mustStruct(t, map[string]interface{}{"symbol": "EURUSD"}))
	require.NoError(t, err)
	assert.Equal(t, 9.0, tick.AsMap()["tick"].(map[string]interface{})["mid"])

	all, err := client.QueryLatestTick(ctx, mustStruct(t, map[string]interface{}{}))
	require.NoError(t, err)
	assert.Len(t, all.AsMap()["ticks"], 1)
}

func TestErrorCodes(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	testCases := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{
			name: "unknown record type",
			call: func() error {
				_, err := client.SubmitRecord(ctx, mustStruct(t, map[string]interface{}{"type": "order"}))
				return err
			},
			code: codes.InvalidArgument,
		},
		{
			name: "invalid tick",
			call: func() error {
				_, err := client.SubmitRecord(ctx, mustStruct(t, map[string]interface{}{"type": "tick", "symbol": "X"}))
				return err
			},
			code: codes.InvalidArgument,
		},
		{
			name: "stale candle",
			call: func() error {
				bar := func(ts float64) *structpb.Struct {
					return mustStruct(t, map[string]interface{}{
						"type": "candle", "symbol": "XAUUSD", "tf": "1m", "time": ts,
						"open": 1.0, "high": 1.0, "low": 1.0, "close": 1.0,
					})
				}
				if _, err := client.SubmitRecord(ctx, bar(1_699_920_120)); err != nil {
					return err
				}
				_, err := client.SubmitRecord(ctx, bar(1_699_920_000))
				return err
			},
			code: codes.FailedPrecondition,
		},
		{
			name: "missing tick",
			call: func() error {
				_, err := client.QueryLatestTick(ctx, mustStruct(t, map[string]interface{}{"symbol": "NOPE"}))
				return err
			},
			code: codes.NotFound,
		},
		{
			name: "query without tf",
			call: func() error {
				_, err := client.QuerySeries(ctx, mustStruct(t, map[string]interface{}{"symbol": "EURUSD"}))
				return err
			},
			code: codes.InvalidArgument,
		},
		{
			name: "query unknown tf",
			call: func() error {
				_, err := client.QuerySeries(ctx, mustStruct(t, map[string]interface{}{"symbol": "EURUSD", "tf": "2m"}))
				return err
			},
			code: codes.InvalidArgument,
		},
		{
			name: "start unnamed source",
			call: func() error {
				_, err := client.StartSource(ctx, mustStruct(t, map[string]interface{}{}))
				return err
			},
			code: codes.InvalidArgument,
		},
		{
			name: "stop unknown source",
			call: func() error {
				_, err := client.StopSource(ctx, mustStruct(t, map[string]interface{}{"name": "ghost"}))
				return err
			},
			code: codes.FailedPrecondition,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)
			assert.Equal(t, tc.code, status.Code(err))
		})
	}
}
