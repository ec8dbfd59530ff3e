package market

import (
	"candle-relay/src/analysis"
	"candle-relay/src/interfaces"
	"candle-relay/src/models"
	"candle-relay/src/utils"
)

// -----------------------------------------------------------------------------

// buildSnapshot assembles ticks, series and signals matching filter.
// Caller must hold at least the read lock.
func (s *MarketService) buildSnapshot(filter interfaces.ISymbolFilter) *models.MSnapshot {
	snap := &models.MSnapshot{
		Ticks:   make(map[string]models.MTick),
		Candles: make(map[string][]models.MCandle),
		Signals: make(map[string]models.MSignal),
	}

	for sym, tick := range s.ticks.All() {
		if filter.Matches(sym) {
			snap.Ticks[sym] = tick
		}
	}

	for _, key := range s.series.Keys() {
		if filter.Matches(key.Symbol) {
			snap.Candles[key.String()] = s.series.Read(key, 0)
		}
	}

	for key, sig := range s.signals.All() {
		if filter.Matches(key.Symbol) {
			snap.Signals[key.String()] = sig
		}
	}

	return snap
}

// -----------------------------------------------------------------------------

// Attach builds a snapshot for filter and passes it to deliver while the read
// lock is still held. Every event emitted after the snapshot therefore reaches
// sinks after deliver returns, so a subscriber that enqueues the snapshot in
// the same ordered queue as broadcasts neither misses nor duplicates the
// in-flight bucket.
func (s *MarketService) Attach(filter interfaces.ISymbolFilter, deliver func(*models.MOutbound)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deliver(&models.MOutbound{
		Type:     models.EventSnapshot,
		Time:     s.now().UnixMilli(),
		Snapshot: s.buildSnapshot(filter),
	})
}

// -----------------------------------------------------------------------------

// Snapshot returns the current state filtered by filter.
func (s *MarketService) Snapshot(filter interfaces.ISymbolFilter) *models.MSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buildSnapshot(filter)
}

// -----------------------------------------------------------------------------

// History answers a history request with only the requested series. Like
// Attach, deliver runs under the read lock so the reply is ordered before any
// event emitted by a later mutation.
func (s *MarketService) History(symbol, tf string, limit int, deliver func(*models.MOutbound)) error {
	sym := utils.NormalizeSymbol(symbol)
	if sym == "" {
		return errEmptySymbol
	}
	timeframe, err := analysis.ParseTimeframe(tf)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	deliver(&models.MOutbound{
		Type:      models.EventHistory,
		Symbol:    sym,
		Timeframe: timeframe.Name,
		Time:      s.now().UnixMilli(),
		Candles:   s.series.Read(models.MSeriesKey{Symbol: sym, Timeframe: timeframe.Name}, s.clampLimit(limit)),
	})
	return nil
}
