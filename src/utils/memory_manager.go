package utils

import (
	"runtime"
	"runtime/debug"
	"sort"
	"sync/atomic"

	"candle-relay/src/logger"
	"candle-relay/src/models"
)

// -----------------------------------------------------------------------------
// MemoryManager is the series store: one RingBuffer per (symbol, timeframe).
//
// It holds no lock of its own. The market state lock serializes every call,
// so a mutation and the event it produces are never interleaved with another.
// -----------------------------------------------------------------------------

type MemoryManager struct {
	DataStreams   map[models.MSeriesKey]*RingBuffer
	MaxMemoryMB   int
	MaxDataPoints int
	Logger        *logger.Logger

	mutations int
	heapMB    func() float64
	release   func()
	releasing atomic.Bool
}

// -----------------------------------------------------------------------------

// NewMemoryManager creates a store whose series hold at most maxDataPoints
// candles. maxMemoryMB <= 0 disables the memory guard.
func NewMemoryManager(maxMemoryMB, maxDataPoints int, l *logger.Logger) *MemoryManager {
	if maxDataPoints <= 0 {
		maxDataPoints = DefaultSeriesCapacity
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	mm := &MemoryManager{
		DataStreams:   make(map[models.MSeriesKey]*RingBuffer),
		MaxMemoryMB:   maxMemoryMB,
		MaxDataPoints: maxDataPoints,
		Logger:        l,
	}
	mm.heapMB = mm.GetProcessMemoryMB
	mm.release = func() {
		runtime.GC()
		debug.FreeOSMemory()
	}
	return mm
}

// -----------------------------------------------------------------------------

func (mm *MemoryManager) buffer(key models.MSeriesKey) *RingBuffer {
	rb, ok := mm.DataStreams[key]
	if !ok {
		rb = NewRingBuffer(mm.MaxDataPoints)
		mm.DataStreams[key] = rb
	}
	return rb
}

// -----------------------------------------------------------------------------

// Append adds a candle to the end of the series, evicting the oldest when full.
func (mm *MemoryManager) Append(key models.MSeriesKey, c models.MCandle) {
	mm.buffer(key).Append(c)
	mm.afterMutation()
}

// -----------------------------------------------------------------------------

// ReplaceLast overwrites the newest candle. Returns false on an empty series.
func (mm *MemoryManager) ReplaceLast(key models.MSeriesKey, c models.MCandle) bool {
	rb, ok := mm.DataStreams[key]
	if !ok {
		return false
	}
	return rb.ReplaceLast(c)
}

// -----------------------------------------------------------------------------

// Replace swaps the whole series for candles (already sorted), keeping the
// newest ones that fit.
func (mm *MemoryManager) Replace(key models.MSeriesKey, candles []models.MCandle) {
	mm.buffer(key).Reset(candles)
	mm.afterMutation()
}

// -----------------------------------------------------------------------------

// Last returns a copy of the newest candle of the series.
func (mm *MemoryManager) Last(key models.MSeriesKey) (models.MCandle, bool) {
	rb, ok := mm.DataStreams[key]
	if !ok {
		return models.MCandle{}, false
	}
	return rb.Last()
}

// -----------------------------------------------------------------------------

// Read returns the limit most recent candles, oldest first. limit <= 0 reads all.
func (mm *MemoryManager) Read(key models.MSeriesKey, limit int) []models.MCandle {
	rb, ok := mm.DataStreams[key]
	if !ok {
		return []models.MCandle{}
	}
	if limit <= 0 {
		return rb.GetAll()
	}
	return rb.GetLatest(limit)
}

// -----------------------------------------------------------------------------

// Keys returns every non-empty series key sorted by symbol then timeframe.
func (mm *MemoryManager) Keys() []models.MSeriesKey {
	keys := make([]models.MSeriesKey, 0, len(mm.DataStreams))
	for k, rb := range mm.DataStreams {
		if rb.Size() > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Symbol != keys[j].Symbol {
			return keys[i].Symbol < keys[j].Symbol
		}
		return keys[i].Timeframe < keys[j].Timeframe
	})
	return keys
}

// -----------------------------------------------------------------------------

// SymbolCount returns number of series with data
func (mm *MemoryManager) SymbolCount() int {
	return len(mm.Keys())
}

// -----------------------------------------------------------------------------

func (mm *MemoryManager) afterMutation() {
	if mm.MaxMemoryMB <= 0 {
		return
	}
	mm.mutations++
	if mm.mutations%ShrinkCheckEvery == 0 {
		mm.CheckMemoryLimits()
	}
}

// -----------------------------------------------------------------------------

// CheckMemoryLimits halves every ring (not below MinSeriesCapacity) when heap
// usage exceeds MaxMemoryMB. Returns true if anything shrank.
//
// Capacity only ever shrinks: series keep their reduced size for the life of
// the process. Returning memory to the OS runs on its own goroutine so the
// caller's lock is not held across a collection.
func (mm *MemoryManager) CheckMemoryLimits() bool {
	currentMemory := mm.heapMB()
	if currentMemory <= float64(mm.MaxMemoryMB) {
		return false
	}

	mm.Logger.Warning("Memory usage %.1fMB exceeds limit %dMB. Shrinking series.",
		currentMemory, mm.MaxMemoryMB)

	shrunk := false
	for _, rb := range mm.DataStreams {
		if rb.Capacity() <= MinSeriesCapacity {
			continue
		}
		newCapacity := rb.Capacity() / 2
		if newCapacity < MinSeriesCapacity {
			newCapacity = MinSeriesCapacity
		}
		rb.Resize(newCapacity)
		shrunk = true
	}

	if mm.MaxDataPoints > MinSeriesCapacity {
		mm.MaxDataPoints /= 2
		if mm.MaxDataPoints < MinSeriesCapacity {
			mm.MaxDataPoints = MinSeriesCapacity
		}
	}

	mm.releaseAsync()
	return shrunk
}

// releaseAsync starts at most one background collection at a time.
func (mm *MemoryManager) releaseAsync() {
	if !mm.releasing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer mm.releasing.Store(false)
		mm.release()
	}()
}

// -----------------------------------------------------------------------------

// GetProcessMemoryMB gets current heap usage in MB
func (mm *MemoryManager) GetProcessMemoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / 1024 / 1024
}

// -----------------------------------------------------------------------------

// Cleanup clears all data
func (mm *MemoryManager) Cleanup() {
	mm.DataStreams = make(map[models.MSeriesKey]*RingBuffer)
}
