package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"candle-relay/src/logger"
	"candle-relay/src/market"
	"candle-relay/src/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*FastAPIServer, *market.MarketService) {
	t.Helper()
	cfg := &models.MConfig{
		Name:     "candle-relay-test",
		Host:     "127.0.0.1",
		Port:     18787,
		LogLevel: "ERROR",
		Market: models.MMarketConfig{
			SeriesCapacity:      50,
			MaxQueryLimit:       100,
			DefaultQueryLimit:   2,
			AggregateTimeframes: []string{"1m", "5m"},
		},
		Hub: models.MHubConfig{SendBuffer: 64, InboxBuffer: 64, HeartbeatIntervalSeconds: 15, WriteTimeoutSeconds: 2},
	}
	ms, err := market.NewMarketService(cfg.Market, nil)
	require.NoError(t, err)

	srv := NewFastAPIServer(cfg, ms, nil, logger.NewNopLogger())
	ms.AddSink(srv.Hub())
	srv.Hub().Start()
	t.Cleanup(srv.Hub().Stop)
	return srv, ms
}

func do(t *testing.T, srv *FastAPIServer, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

// -----------------------------------------------------------------------------

func TestPostTick(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		wantStatus int
		wantOK     bool
	}{
		{name: "valid", body: `{"symbol":"EURUSD_","bid":1.0950,"ask":1.0952,"time":1699920000000}`, wantStatus: http.StatusOK, wantOK: true},
		{name: "numeric strings", body: `{"symbol":"XAUUSD","bid":"2000.1","ask":"2000.3"}`, wantStatus: http.StatusOK, wantOK: true},
		{name: "missing ask", body: `{"symbol":"EURUSD","bid":1.0950}`, wantStatus: http.StatusBadRequest},
		{name: "empty symbol", body: `{"symbol":"","bid":1,"ask":1}`, wantStatus: http.StatusBadRequest},
		{name: "bad time", body: `{"symbol":"EURUSD","bid":1,"ask":1,"time":"yesterday"}`, wantStatus: http.StatusBadRequest},
		{name: "invalid json", body: `{`, wantStatus: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t)
			status, body := do(t, srv, http.MethodPost, "/tick", tc.body)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantOK, body["ok"])
		})
	}
}

func TestPostTick_StaleIsConflict(t *testing.T) {
	srv, _ := newTestServer(t)

	status, _ := do(t, srv, http.MethodPost, "/tick", `{"symbol":"EURUSD","bid":1,"ask":1,"time":1699920120000}`)
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, srv, http.MethodPost, "/tick", `{"symbol":"EURUSD","bid":1,"ask":1,"time":1699920000000}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["ok"])
}

func TestGetTick(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/tick", `{"symbol":"EURUSD_","bid":1.0950,"ask":1.0952}`)

	status, body := do(t, srv, http.MethodGet, "/tick?symbol=EURUSD", "")
	require.Equal(t, http.StatusOK, status)
	tick := body["tick"].(map[string]interface{})
	assert.Equal(t, "EURUSD", tick["symbol"])
	assert.InDelta(t, 1.0951, tick["mid"].(float64), 1e-9)

	_, body = do(t, srv, http.MethodGet, "/tick?symbol=NOPE", "")
	assert.Nil(t, body["tick"])
	assert.Equal(t, true, body["ok"])

	_, body = do(t, srv, http.MethodGet, "/tick", "")
	assert.Len(t, body["ticks"], 1)
}

func TestPostCandleAndGetCandles(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, ts := range []string{"1699920000", "1699920060", "1699920120"} {
		status, _ := do(t, srv, http.MethodPost, "/candle",
			`{"symbol":"XAUUSD","tf":"1m","time":`+ts+`,"open":1,"high":2,"low":0.5,"close":1.5,"volume":10}`)
		require.Equal(t, http.StatusOK, status)
	}

	status, body := do(t, srv, http.MethodGet, "/candles?symbol=XAUUSD_&tf=1M", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "XAUUSD", body["symbol"])
	assert.Equal(t, "1m", body["tf"])
	candles := body["candles"].([]interface{})
	require.Len(t, candles, 2, "default limit from config")
	assert.Equal(t, float64(1_699_920_120_000), candles[1].(map[string]interface{})["time"])

	_, body = do(t, srv, http.MethodGet, "/candles?symbol=XAUUSD&tf=1m&limit=3", "")
	assert.Len(t, body["candles"], 3)

	status, _ = do(t, srv, http.MethodGet, "/candles?symbol=XAUUSD", "")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = do(t, srv, http.MethodGet, "/candles?symbol=XAUUSD&tf=2m", "")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = do(t, srv, http.MethodGet, "/candles?symbol=XAUUSD&tf=1m&limit=x", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPostCandle_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)

	status, _ := do(t, srv, http.MethodPost, "/candle", `{"symbol":"XAUUSD","tf":"7m","open":1,"high":1,"low":1,"close":1}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, srv, http.MethodPost, "/candle", `{"symbol":"XAUUSD","tf":"1m","open":1,"high":1,"low":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPostCandles(t *testing.T) {
	srv, ms := newTestServer(t)

	body := `{"symbol":"EURUSD","timeframe":"1m","candles":[
		{"time":1699920060,"open":2,"high":2,"low":2,"close":2},
		{"time":1699920000,"open":1,"high":1,"low":1,"close":1},
		{"time":1699920070,"open":3,"high":3,"low":3,"close":3},
		{"time":1699920120,"open":9,"high":1,"low":1,"close":1},
		"garbage"
	]}`
	status, out := do(t, srv, http.MethodPost, "/candles", body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), out["count"])

	series, _ := ms.QuerySeries("EURUSD", "1m", 10)
	require.Len(t, series, 2)
	assert.Equal(t, 3.0, series[1].Close)

	status, _ = do(t, srv, http.MethodPost, "/candles", `{"symbol":"EURUSD","tf":"1m","candles":[]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = do(t, srv, http.MethodPost, "/candles", `{"symbol":"EURUSD","tf":"1m"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPostSignal(t *testing.T) {
	srv, ms := newTestServer(t)

	status, _ := do(t, srv, http.MethodPost, "/signal", `{"symbol":"XAUUSD","tf":"1h","signal":"BUY","meta":{"score":0.9}}`)
	require.Equal(t, http.StatusOK, status)

	sig, ok := ms.QuerySignal("XAUUSD", "1h")
	require.True(t, ok)
	assert.Equal(t, "BUY", sig.Label)
	assert.Equal(t, 0.9, sig.Meta["score"])

	status, _ = do(t, srv, http.MethodPost, "/signal", `{"symbol":"XAUUSD","tf":"1h"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStatusEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/tick", `{"symbol":"EURUSD","bid":1,"ask":1,"time":1699920000000}`)
	do(t, srv, http.MethodPost, "/tick", `{"symbol":"EURUSD","bid":1,"ask":1}`)

	status, health := do(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, health["ok"])
	assert.Equal(t, float64(1), health["symbols"])

	_, metrics := do(t, srv, http.MethodGet, "/api/metrics", "")
	ingest := metrics["ingest"].(map[string]interface{})
	assert.Equal(t, float64(2), ingest["accepted"])

	_, cfg := do(t, srv, http.MethodGet, "/api/config", "")
	assert.Equal(t, []interface{}{"1m", "5m"}, cfg["timeframes"])

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	var stats []models.MSeriesStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Len(t, stats, 2)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/tick", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocketEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(waitFor))

	var snap models.MOutbound
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, models.EventSnapshot, snap.Type)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "subscribe", "symbols": []string{"XAUUSD"}}))
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, models.EventSnapshot, snap.Type)

	do(t, srv, http.MethodPost, "/tick", `{"symbol":"EURUSD","bid":1,"ask":1}`)
	do(t, srv, http.MethodPost, "/tick", `{"symbol":"XAUUSD_","bid":2000,"ask":2001}`)

	var ev models.MOutbound
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, models.EventTick, ev.Type)
	assert.Equal(t, "XAUUSD", ev.Symbol)
	assert.Equal(t, 2000.5, ev.Tick.Mid)
}
