package utils

import (
	"testing"
	"time"

	"candle-relay/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eurusd1m = models.MSeriesKey{Symbol: "EURUSD", Timeframe: "1m"}

func TestMemoryManager_CapacityBound(t *testing.T) {
	mm := NewMemoryManager(0, 5, nil)
	for i := int64(0); i < 20; i++ {
		mm.Append(eurusd1m, bar(i*60_000, float64(i)))
	}

	all := mm.Read(eurusd1m, 0)
	require.Len(t, all, 5)
	assert.Equal(t, []int64{900_000, 960_000, 1_020_000, 1_080_000, 1_140_000}, times(all))
	assert.Equal(t, []int64{1_080_000, 1_140_000}, times(mm.Read(eurusd1m, 2)))
}

func TestMemoryManager_UnknownSeries(t *testing.T) {
	mm := NewMemoryManager(0, 5, nil)

	_, ok := mm.Last(eurusd1m)
	assert.False(t, ok)
	assert.False(t, mm.ReplaceLast(eurusd1m, bar(0, 1)))
	assert.Empty(t, mm.Read(eurusd1m, 10))
	assert.Empty(t, mm.Keys())
}

func TestMemoryManager_KeysSorted(t *testing.T) {
	mm := NewMemoryManager(0, 5, nil)
	mm.Append(models.MSeriesKey{Symbol: "XAUUSD", Timeframe: "5m"}, bar(0, 1))
	mm.Append(models.MSeriesKey{Symbol: "EURUSD", Timeframe: "5m"}, bar(0, 1))
	mm.Append(eurusd1m, bar(0, 1))

	assert.Equal(t, []models.MSeriesKey{
		{Symbol: "EURUSD", Timeframe: "1m"},
		{Symbol: "EURUSD", Timeframe: "5m"},
		{Symbol: "XAUUSD", Timeframe: "5m"},
	}, mm.Keys())
	assert.Equal(t, 3, mm.SymbolCount())
}

func TestMemoryManager_ShrinksOverLimit(t *testing.T) {
	mm := NewMemoryManager(10, 400, nil)
	mm.heapMB = func() float64 { return 50 }

	for i := int64(0); i < 300; i++ {
		mm.Append(eurusd1m, bar(i, float64(i)))
	}

	// The guard ran at mutations 100, 200 and 300: 400 -> 200 -> 100 -> 50.
	assert.Equal(t, 50, mm.DataStreams[eurusd1m].Capacity())
	assert.Equal(t, MinSeriesCapacity, mm.MaxDataPoints)

	last, ok := mm.Last(eurusd1m)
	require.True(t, ok)
	assert.Equal(t, int64(299), last.Time)
}

func TestMemoryManager_NoShrinkUnderLimit(t *testing.T) {
	mm := NewMemoryManager(10, 400, nil)
	mm.heapMB = func() float64 { return 1 }
	mm.Append(eurusd1m, bar(0, 1))

	assert.False(t, mm.CheckMemoryLimits())
	assert.Equal(t, 400, mm.DataStreams[eurusd1m].Capacity())
}

func TestMemoryManager_SmallCapacityNeverGrows(t *testing.T) {
	mm := NewMemoryManager(10, 20, nil)
	mm.heapMB = func() float64 { return 50 }
	mm.Append(eurusd1m, bar(0, 1))

	mm.CheckMemoryLimits()
	assert.Equal(t, 20, mm.DataStreams[eurusd1m].Capacity())
	assert.Equal(t, 20, mm.MaxDataPoints)
}

func TestMemoryManager_ReleaseRunsOffCallerAndCoalesces(t *testing.T) {
	mm := NewMemoryManager(10, 400, nil)
	mm.heapMB = func() float64 { return 50 }
	mm.Append(eurusd1m, bar(0, 1))

	started := make(chan struct{}, 4)
	unblock := make(chan struct{})
	mm.release = func() {
		started <- struct{}{}
		<-unblock
	}

	done := make(chan bool)
	go func() { done <- mm.CheckMemoryLimits() }()
	select {
	case shrunk := <-done:
		assert.True(t, shrunk)
	case <-time.After(time.Second):
		t.Fatal("CheckMemoryLimits waited for the collection")
	}
	<-started

	// A second shrink while the first collection is in flight starts none.
	assert.True(t, mm.CheckMemoryLimits())
	assert.Equal(t, 100, mm.DataStreams[eurusd1m].Capacity())
	close(unblock)

	assert.Eventually(t, func() bool { return !mm.releasing.Load() }, time.Second, 5*time.Millisecond)
	assert.Len(t, started, 0)
}
