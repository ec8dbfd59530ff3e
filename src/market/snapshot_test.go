package market

import (
	"sync"
	"testing"

	"candle-relay/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type symbolSet map[string]bool

func (s symbolSet) Matches(symbol string) bool {
	return len(s) == 0 || s[symbol]
}

func TestSnapshot_Filtered(t *testing.T) {
	ms, _ := newTestService(t)
	_, _ = ms.SubmitTick(tickAt("XAUUSD", 2000, 0))
	_, _ = ms.SubmitTick(tickAt("EURUSD", 1.1, 0))
	_, _ = ms.SubmitSignal(models.MSignalInput{Symbol: "XAUUSD", Timeframe: "1m", Label: "BUY"})
	_, _ = ms.SubmitSignal(models.MSignalInput{Symbol: "EURUSD", Timeframe: "1m", Label: "SELL"})

	snap := ms.Snapshot(symbolSet{"XAUUSD": true})
	assert.Len(t, snap.Ticks, 1)
	assert.Contains(t, snap.Ticks, "XAUUSD")
	assert.Equal(t, []string{"XAUUSD__1m"}, keysOf(snap.Candles))
	assert.Contains(t, snap.Signals, "XAUUSD__1m")
	assert.NotContains(t, snap.Signals, "EURUSD__1m")

	all := ms.Snapshot(symbolSet{})
	assert.Len(t, all.Ticks, 2)
	assert.Len(t, all.Candles, 2)
	assert.Len(t, all.Signals, 2)
}

func keysOf(m map[string][]models.MCandle) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestSnapshot_ReflectsLastTick(t *testing.T) {
	ms, _ := newTestService(t)
	prices := []float64{5, 6, 4, 7, 3}
	for i, p := range prices {
		_, err := ms.SubmitTick(tickAt("XAUUSD", p, int64(i)*5_000))
		require.NoError(t, err)
	}

	snap := ms.Snapshot(symbolSet{"XAUUSD": true})
	assert.Equal(t, 3.0, snap.Ticks["XAUUSD"].Mid)
	assert.Equal(t, t0+20_000, snap.Ticks["XAUUSD"].Time)

	series := snap.Candles["XAUUSD__1m"]
	require.Len(t, series, 1)
	assert.Equal(t, 3.0, series[0].Close)
	assert.Equal(t, 7.0, series[0].High)
	assert.Equal(t, 3.0, series[0].Low)
}

// orderedQueue stands in for the hub inbox: snapshots and broadcasts land in
// one ordered list.
type orderedQueue struct {
	mu     sync.Mutex
	events []*models.MOutbound
}

func (q *orderedQueue) Publish(event *models.MOutbound) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
}

func TestAttach_SnapshotPrecedesLaterEvents(t *testing.T) {
	ms, _ := newTestService(t)
	queue := &orderedQueue{}
	ms.AddSink(queue)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_, _ = ms.SubmitTick(tickAt("XAUUSD", float64(i), int64(i)*100))
		}
	}()
	ms.Attach(symbolSet{}, queue.Publish)
	wg.Wait()

	queue.mu.Lock()
	defer queue.mu.Unlock()

	snapIdx := -1
	for i, ev := range queue.events {
		if ev.Type == models.EventSnapshot {
			snapIdx = i
			break
		}
	}
	require.GreaterOrEqual(t, snapIdx, 0)

	// Replaying the events queued after the snapshot onto it must land on the
	// final state: nothing missing, nothing applied twice.
	snap := queue.events[snapIdx].Snapshot
	volume := 0.0
	if series := snap.Candles["XAUUSD__1m"]; len(series) > 0 {
		volume = series[len(series)-1].Volume
	}
	for _, ev := range queue.events[snapIdx+1:] {
		switch ev.Type {
		case models.EventBarNew:
			volume = ev.Candle.Volume
		case models.EventBarUpdate:
			assert.Equal(t, volume+1, ev.Candle.Volume)
			volume = ev.Candle.Volume
		}
	}

	final, _ := ms.QuerySeries("XAUUSD", "1m", 1)
	require.Len(t, final, 1)
	assert.Equal(t, final[0].Volume, volume)
}

func TestHistory(t *testing.T) {
	ms, _ := newTestService(t)
	for i := int64(0); i < 4; i++ {
		_, _ = ms.SubmitTick(tickAt("XAUUSD_", 1, i*60_000))
	}

	var ev *models.MOutbound
	require.NoError(t, ms.History("XAUUSD", "1M", 2, func(h *models.MOutbound) { ev = h }))
	require.NotNil(t, ev)
	assert.Equal(t, models.EventHistory, ev.Type)
	assert.Equal(t, "XAUUSD", ev.Symbol)
	assert.Equal(t, "1m", ev.Timeframe)
	require.Len(t, ev.Candles, 2)
	assert.Equal(t, t0+180_000, ev.Candles[1].Time)

	deliver := func(*models.MOutbound) { t.Fatal("rejected request must not deliver") }
	assert.Error(t, ms.History("XAUUSD", "bad", 2, deliver))
	assert.Error(t, ms.History("", "1m", 2, deliver))
}
