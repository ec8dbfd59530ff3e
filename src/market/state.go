package market

import (
	"candle-relay/src/models"
)

// -----------------------------------------------------------------------------
// TickTable holds the latest tick per symbol. Overwrite-only.
// -----------------------------------------------------------------------------

type TickTable struct {
	ticks map[string]models.MTick
}

func NewTickTable() *TickTable {
	return &TickTable{ticks: make(map[string]models.MTick)}
}

func (t *TickTable) Put(tick models.MTick) {
	t.ticks[tick.Symbol] = tick
}

func (t *TickTable) Get(symbol string) (models.MTick, bool) {
	tick, ok := t.ticks[symbol]
	return tick, ok
}

// All returns a copy of the table.
func (t *TickTable) All() map[string]models.MTick {
	out := make(map[string]models.MTick, len(t.ticks))
	for k, v := range t.ticks {
		out[k] = v
	}
	return out
}

func (t *TickTable) Len() int {
	return len(t.ticks)
}

// -----------------------------------------------------------------------------
// SignalTable holds the last signal per (symbol, timeframe). Overwrite-only.
// -----------------------------------------------------------------------------

type SignalTable struct {
	signals map[models.MSeriesKey]models.MSignal
}

func NewSignalTable() *SignalTable {
	return &SignalTable{signals: make(map[models.MSeriesKey]models.MSignal)}
}

func (t *SignalTable) Put(sig models.MSignal) {
	t.signals[models.MSeriesKey{Symbol: sig.Symbol, Timeframe: sig.Timeframe}] = copySignal(sig)
}

func (t *SignalTable) Get(key models.MSeriesKey) (models.MSignal, bool) {
	sig, ok := t.signals[key]
	if !ok {
		return models.MSignal{}, false
	}
	return copySignal(sig), true
}

// All returns a copy of the table.
func (t *SignalTable) All() map[models.MSeriesKey]models.MSignal {
	out := make(map[models.MSeriesKey]models.MSignal, len(t.signals))
	for k, v := range t.signals {
		out[k] = copySignal(v)
	}
	return out
}

// copySignal detaches the top-level meta map so callers cannot mutate stored state.
func copySignal(sig models.MSignal) models.MSignal {
	if sig.Meta == nil {
		return sig
	}
	meta := make(map[string]interface{}, len(sig.Meta))
	for k, v := range sig.Meta {
		meta[k] = v
	}
	sig.Meta = meta
	return sig
}
