package market

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"candle-relay/src/analysis"
	"candle-relay/src/analysis/core"
	"candle-relay/src/helpers"
	"candle-relay/src/interfaces"
	"candle-relay/src/logger"
	"candle-relay/src/models"
	"candle-relay/src/utils"
)

var errEmptySymbol = helpers.NewValidationError("symbol is empty")

// -----------------------------------------------------------------------------
// MarketService owns the process-wide market state: latest ticks, signals and
// candle series. A single RWMutex guards all of it. Mutations take the write
// lock and publish their events to every sink before releasing it, so per-key
// event order always equals mutation order. Reads take the read lock.
// -----------------------------------------------------------------------------

type MarketService struct {
	mu      sync.RWMutex
	ticks   *TickTable
	signals *SignalTable
	series  *utils.MemoryManager
	facade  *analysis.AnalysisFacade

	aggregate     []analysis.Timeframe
	capacity      int
	maxQueryLimit int

	sinks []interfaces.IEventSink
	now   func() time.Time

	accepted atomic.Int64
	rejected atomic.Int64
	stale    atomic.Int64

	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewMarketService creates an empty market state from the market config.
func NewMarketService(cfg models.MMarketConfig, l *logger.Logger) (*MarketService, error) {
	if l == nil {
		l = logger.NewNopLogger()
	}

	aggregate := make([]analysis.Timeframe, 0, len(cfg.AggregateTimeframes))
	seen := make(map[string]struct{})
	for _, tag := range cfg.AggregateTimeframes {
		tf, err := analysis.ParseTimeframe(tag)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[tf.Name]; dup {
			continue
		}
		seen[tf.Name] = struct{}{}
		aggregate = append(aggregate, tf)
	}

	capacity := cfg.SeriesCapacity
	if capacity <= 0 {
		capacity = utils.DefaultSeriesCapacity
	}
	maxLimit := cfg.MaxQueryLimit
	if maxLimit <= 0 {
		maxLimit = 2000
	}

	return &MarketService{
		ticks:         NewTickTable(),
		signals:       NewSignalTable(),
		series:        utils.NewMemoryManager(cfg.MaxMemoryMB, capacity, l.Named("SeriesStore")),
		facade:        analysis.NewAnalysisFacade(l),
		aggregate:     aggregate,
		capacity:      capacity,
		maxQueryLimit: maxLimit,
		now:           time.Now,
		Logger:        l,
	}, nil
}

// -----------------------------------------------------------------------------

// AddSink registers an event consumer. Call before ingestion starts.
func (s *MarketService) AddSink(sink interfaces.IEventSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// SetClock replaces the wall clock used for missing timestamps.
func (s *MarketService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AggregateTimeframes returns the timeframes ticks are folded into.
func (s *MarketService) AggregateTimeframes() []string {
	names := make([]string, len(s.aggregate))
	for i, tf := range s.aggregate {
		names[i] = tf.Name
	}
	return names
}

// emit publishes to all sinks. Caller holds the write lock.
func (s *MarketService) emit(event *models.MOutbound) {
	for _, sink := range s.sinks {
		sink.Publish(event)
	}
}

// resolveTime returns ts, or now when ts was not supplied. Caller holds a lock.
func (s *MarketService) resolveTime(ts models.MTimestamp) int64 {
	if ts == 0 {
		return s.now().UnixMilli()
	}
	return int64(ts)
}

// record updates the outcome counters for err.
func (s *MarketService) record(err error) error {
	if err == nil {
		s.accepted.Add(1)
		return nil
	}
	var stale *helpers.StaleDataError
	if errors.As(err, &stale) {
		s.stale.Add(1)
	} else {
		s.rejected.Add(1)
	}
	s.Logger.Debug("ingest rejected: %v", err)
	return err
}

// -----------------------------------------------------------------------------

// SubmitTick validates a tick, stores it as the latest for its symbol and
// folds its mid price into every aggregate timeframe. A tick that is stale
// for any timeframe is rejected as a whole.
func (s *MarketService) SubmitTick(in models.MTickInput) (*models.MTick, error) {
	tick, err := s.validateTick(in)
	if err != nil {
		return nil, s.record(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tick.Time = s.resolveTime(in.Time)
	agg := s.facade.Aggregator

	for _, tf := range s.aggregate {
		key := models.MSeriesKey{Symbol: tick.Symbol, Timeframe: tf.Name}
		if last, ok := s.series.Last(key); ok {
			if err := agg.CheckFresh(&last, key, tf, tick.Time); err != nil {
				return nil, s.record(err)
			}
		}
	}

	s.ticks.Put(tick)
	tickCopy := tick
	s.emit(&models.MOutbound{
		Type:   models.EventTick,
		Symbol: tick.Symbol,
		Time:   tick.Time,
		Tick:   &tickCopy,
	})

	for _, tf := range s.aggregate {
		key := models.MSeriesKey{Symbol: tick.Symbol, Timeframe: tf.Name}

		var lastPtr *models.MCandle
		if last, ok := s.series.Last(key); ok {
			lastPtr = &last
		}

		candle, kind, err := agg.Fold(lastPtr, key, tf, tick.Mid, tick.Time)
		if err != nil {
			// CheckFresh above makes this unreachable.
			s.Logger.Error("fold %s: %v", key, err)
			continue
		}

		if kind == models.EventBarNew {
			s.series.Append(key, candle)
		} else {
			s.series.ReplaceLast(key, candle)
		}

		candleCopy := candle
		s.emit(&models.MOutbound{
			Type:      kind,
			Symbol:    key.Symbol,
			Timeframe: key.Timeframe,
			Time:      candle.Time,
			Candle:    &candleCopy,
		})
	}

	s.record(nil)
	return &tick, nil
}

func (s *MarketService) validateTick(in models.MTickInput) (models.MTick, error) {
	sym := utils.NormalizeSymbol(in.Symbol)
	if sym == "" {
		return models.MTick{}, errEmptySymbol
	}
	if !core.IsFinite(in.Bid, in.Ask) {
		return models.MTick{}, helpers.NewValidationError("%s: bid and ask must be finite numbers", sym)
	}

	// A supplied mid is only used when finite; otherwise it is derived.
	mid := core.Mid(in.Bid, in.Ask)
	if in.Mid != nil && core.IsFinite(*in.Mid) {
		mid = *in.Mid
	}

	return models.MTick{Symbol: sym, Bid: in.Bid, Ask: in.Ask, Mid: mid}, nil
}

// -----------------------------------------------------------------------------

// SubmitCandle upserts one pre-aggregated bar: same bucket as the newest bar
// replaces it, a newer bucket appends, an older one is stale.
func (s *MarketService) SubmitCandle(in models.MCandleInput) (*models.MCandle, error) {
	candle, tf, err := validateCandle(in)
	if err != nil {
		return nil, s.record(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candle.Time = analysis.BucketStart(s.resolveTime(in.Time), tf)
	key := candle.Key()

	var lastPtr *models.MCandle
	if last, ok := s.series.Last(key); ok {
		lastPtr = &last
	}

	kind, err := s.facade.Aggregator.Upsert(lastPtr, candle)
	if err != nil {
		return nil, s.record(err)
	}

	if kind == models.EventBarNew {
		s.series.Append(key, candle)
	} else {
		s.series.ReplaceLast(key, candle)
	}

	candleCopy := candle
	s.emit(&models.MOutbound{
		Type:      kind,
		Symbol:    key.Symbol,
		Timeframe: key.Timeframe,
		Time:      candle.Time,
		Candle:    &candleCopy,
	})

	s.record(nil)
	return &candle, nil
}

// validateCandle checks a raw bar. Time is left for the caller to resolve.
func validateCandle(in models.MCandleInput) (models.MCandle, analysis.Timeframe, error) {
	sym := utils.NormalizeSymbol(in.Symbol)
	if sym == "" {
		return models.MCandle{}, analysis.Timeframe{}, errEmptySymbol
	}
	tf, err := analysis.ParseTimeframe(in.Timeframe)
	if err != nil {
		return models.MCandle{}, analysis.Timeframe{}, err
	}
	if !core.IsFinite(in.Open, in.High, in.Low, in.Close) {
		return models.MCandle{}, tf, helpers.NewValidationError("%s %s: OHLC must be finite numbers", sym, tf.Name)
	}
	if !core.IsValidOHLC(in.Open, in.High, in.Low, in.Close) {
		return models.MCandle{}, tf, helpers.NewValidationError(
			"%s %s: inconsistent OHLC o=%v h=%v l=%v c=%v", sym, tf.Name, in.Open, in.High, in.Low, in.Close)
	}

	volume := 0.0
	if in.Volume != nil && core.IsFinite(*in.Volume) {
		volume = *in.Volume
	}
	if volume < 0 {
		return models.MCandle{}, tf, helpers.NewValidationError("%s %s: negative volume", sym, tf.Name)
	}

	return models.MCandle{
		Symbol:    sym,
		Timeframe: tf.Name,
		Open:      in.Open,
		High:      in.High,
		Low:       in.Low,
		Close:     in.Close,
		Volume:    volume,
	}, tf, nil
}

// -----------------------------------------------------------------------------

// SubmitCandleBatch replaces a whole series with a batch: invalid entries are
// dropped, times aligned, the rest sorted, de-duplicated (latest wins) and
// truncated to capacity. Fails if nothing valid remains.
func (s *MarketService) SubmitCandleBatch(in models.MCandleBatchInput) ([]models.MCandle, error) {
	sym := utils.NormalizeSymbol(in.Symbol)
	if sym == "" {
		return nil, s.record(errEmptySymbol)
	}
	tf, err := analysis.ParseTimeframe(in.Timeframe)
	if err != nil {
		return nil, s.record(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	valid := make([]models.MCandle, 0, len(in.Candles))
	for _, raw := range in.Candles {
		raw.Symbol = sym
		raw.Timeframe = tf.Name
		candle, _, err := validateCandle(raw)
		if err != nil {
			continue
		}
		candle.Time = s.resolveTime(raw.Time)
		valid = append(valid, candle)
	}

	if len(valid) == 0 {
		return nil, s.record(helpers.NewValidationError("%s %s: no valid candles in batch", sym, tf.Name))
	}

	normalized := s.facade.Resampler.NormalizeBatch(valid, tf, s.capacity)
	key := models.MSeriesKey{Symbol: sym, Timeframe: tf.Name}
	s.series.Replace(key, normalized)

	stored := s.series.Read(key, 0)
	s.emit(&models.MOutbound{
		Type:      models.EventCandles,
		Symbol:    sym,
		Timeframe: tf.Name,
		Time:      stored[len(stored)-1].Time,
		Candles:   stored,
	})

	s.record(nil)
	return s.series.Read(key, 0), nil
}

// -----------------------------------------------------------------------------

// SubmitSignal overwrites the last signal for (symbol, timeframe).
func (s *MarketService) SubmitSignal(in models.MSignalInput) (*models.MSignal, error) {
	sym := utils.NormalizeSymbol(in.Symbol)
	if sym == "" {
		return nil, s.record(errEmptySymbol)
	}
	if in.Timeframe == "" {
		return nil, s.record(helpers.NewValidationError("%s: timeframe is empty", sym))
	}
	tf, err := analysis.ParseTimeframe(in.Timeframe)
	if err != nil {
		return nil, s.record(err)
	}
	if in.Label == "" {
		return nil, s.record(helpers.NewValidationError("%s %s: signal label is empty", sym, tf.Name))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sig := models.MSignal{
		Symbol:    sym,
		Timeframe: tf.Name,
		Label:     in.Label,
		Time:      s.resolveTime(in.Time),
		Meta:      in.Meta,
	}
	if sig.Meta == nil {
		sig.Meta = map[string]interface{}{}
	}
	s.signals.Put(sig)

	stored, _ := s.signals.Get(models.MSeriesKey{Symbol: sym, Timeframe: tf.Name})
	s.emit(&models.MOutbound{
		Type:      models.EventSignal,
		Symbol:    sym,
		Timeframe: tf.Name,
		Time:      sig.Time,
		Signal:    &stored,
	})

	s.record(nil)
	out, _ := s.signals.Get(models.MSeriesKey{Symbol: sym, Timeframe: tf.Name})
	return &out, nil
}

// -----------------------------------------------------------------------------

// Ingest dispatches a decoded record from a data source.
func (s *MarketService) Ingest(rec models.MIngest) error {
	var err error
	switch rec.Kind {
	case models.IngestTick:
		if rec.Tick == nil {
			return helpers.NewValidationError("tick record without payload")
		}
		_, err = s.SubmitTick(*rec.Tick)
	case models.IngestCandle:
		if rec.Candle == nil {
			return helpers.NewValidationError("candle record without payload")
		}
		_, err = s.SubmitCandle(*rec.Candle)
	case models.IngestCandles:
		if rec.Batch == nil {
			return helpers.NewValidationError("candles record without payload")
		}
		_, err = s.SubmitCandleBatch(*rec.Batch)
	case models.IngestSignal:
		if rec.Signal == nil {
			return helpers.NewValidationError("signal record without payload")
		}
		_, err = s.SubmitSignal(*rec.Signal)
	default:
		return helpers.NewValidationError("unknown record kind %q", rec.Kind)
	}
	return err
}

// -----------------------------------------------------------------------------

func (s *MarketService) clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > s.maxQueryLimit {
		return s.maxQueryLimit
	}
	return limit
}

// QuerySeries returns the newest limit candles (clamped to [1, max]), oldest first.
func (s *MarketService) QuerySeries(symbol, tf string, limit int) ([]models.MCandle, error) {
	sym := utils.NormalizeSymbol(symbol)
	if sym == "" {
		return nil, errEmptySymbol
	}
	timeframe, err := analysis.ParseTimeframe(tf)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.series.Read(models.MSeriesKey{Symbol: sym, Timeframe: timeframe.Name}, s.clampLimit(limit)), nil
}

// QueryLatestTick returns the latest tick for symbol.
func (s *MarketService) QueryLatestTick(symbol string) (models.MTick, bool) {
	sym := utils.NormalizeSymbol(symbol)
	if sym == "" {
		return models.MTick{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticks.Get(sym)
}

// QueryLatestTicks returns the latest tick of every symbol.
func (s *MarketService) QueryLatestTicks() map[string]models.MTick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticks.All()
}

// QuerySignal returns the last signal for (symbol, tf).
func (s *MarketService) QuerySignal(symbol, tf string) (models.MSignal, bool) {
	sym := utils.NormalizeSymbol(symbol)
	timeframe, err := analysis.ParseTimeframe(tf)
	if sym == "" || err != nil {
		return models.MSignal{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signals.Get(models.MSeriesKey{Symbol: sym, Timeframe: timeframe.Name})
}

// -----------------------------------------------------------------------------

// SeriesStats computes close statistics for every stored series.
func (s *MarketService) SeriesStats() []models.MSeriesStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.series.Keys()
	out := make([]models.MSeriesStats, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.facade.SeriesStats(key, s.series.Read(key, 0)))
	}
	return out
}

// Metrics returns the ingest outcome counters.
func (s *MarketService) Metrics() models.MProcessingMetrics {
	return models.MProcessingMetrics{
		Accepted: s.accepted.Load(),
		Rejected: s.rejected.Load(),
		Stale:    s.stale.Load(),
	}
}

// SymbolCount returns the number of symbols with a latest tick.
func (s *MarketService) SymbolCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticks.Len()
}
