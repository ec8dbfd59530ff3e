package storage

import (
	"path/filepath"
	"testing"
	"time"

	"candle-relay/src/logger"
	"candle-relay/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *AsyncSQLiteDB {
	t.Helper()
	db := NewAsyncSQLiteDB(models.MStorageConfig{
		DBPath:            filepath.Join(t.TempDir(), "nested", "archive.db"),
		DataRetentionDays: 7,
	}, logger.NewNopLogger())
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_SaveAndLoadCandles(t *testing.T) {
	db := newTestSQLite(t)

	base := time.Now().UnixMilli() / 60_000 * 60_000
	var candles []models.MCandle
	for i := int64(0); i < 5; i++ {
		candles = append(candles, models.MCandle{
			Symbol: "EURUSD", Timeframe: "1m", Time: base + i*60_000,
			Open: 1, High: 2, Low: 0.5, Close: float64(i), Volume: 3,
		})
	}
	require.NoError(t, db.SaveCandles(candles))

	// Upsert on (symbol, tf, time).
	candles[4].Close = 42
	require.NoError(t, db.SaveCandles(candles[4:]))

	loaded, err := db.LoadCandles("EURUSD", "1m", 3)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, base+2*60_000, loaded[0].Time)
	assert.Equal(t, 42.0, loaded[2].Close)

	other, err := db.LoadCandles("EURUSD", "5m", 3)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLite_TicksSignalsAndCleanup(t *testing.T) {
	db := newTestSQLite(t)

	now := time.Now().UnixMilli()
	old := time.Now().AddDate(0, 0, -30).UnixMilli()
	require.NoError(t, db.SaveTicks([]models.MTick{
		{Symbol: "EURUSD", Bid: 1, Ask: 1.2, Mid: 1.1, Time: now},
		{Symbol: "EURUSD", Bid: 1, Ask: 1.2, Mid: 1.1, Time: old},
	}))
	require.NoError(t, db.SaveCandles([]models.MCandle{
		{Symbol: "EURUSD", Timeframe: "1m", Time: old, Open: 1, High: 1, Low: 1, Close: 1},
	}))

	require.NoError(t, db.SaveSignals([]models.MSignal{
		{Symbol: "EURUSD", Timeframe: "1h", Label: "BUY", Time: now, Meta: map[string]interface{}{"score": 1}},
	}))
	require.NoError(t, db.SaveSignals([]models.MSignal{
		{Symbol: "EURUSD", Timeframe: "1h", Label: "SELL", Time: now + 1},
	}))

	var label string
	require.NoError(t, db.DB.Get(&label, "SELECT signal FROM signals WHERE symbol = ? AND tf = ?", "EURUSD", "1h"))
	assert.Equal(t, "SELL", label)

	require.NoError(t, db.CleanupOldData())

	var ticks, candles int
	require.NoError(t, db.DB.Get(&ticks, "SELECT COUNT(*) FROM ticks"))
	require.NoError(t, db.DB.Get(&candles, "SELECT COUNT(*) FROM candles"))
	assert.Equal(t, 1, ticks)
	assert.Equal(t, 0, candles)
}

func TestSQLite_EmptyBatchesAreNoops(t *testing.T) {
	db := newTestSQLite(t)

	assert.NoError(t, db.SaveTicks(nil))
	assert.NoError(t, db.SaveCandles(nil))
	assert.NoError(t, db.SaveSignals(nil))
}
