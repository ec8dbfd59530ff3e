package utils

import (
	"sync"
	"time"

	"candle-relay/src/logger"
)

// MarketScheduler tracks which symbols are currently in session.
type MarketScheduler struct {
	Calendars  map[string]*TradingCalendar
	DefaultMIC string
	Logger     *logger.Logger
	mu         sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(symbols []string, defaultMIC string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars:  make(map[string]*TradingCalendar),
		DefaultMIC: defaultMIC,
		Logger:     l,
	}
	ms.MapSymbolsToCalendars(symbols)
	return ms
}

// -----------------------------------------------------------------------------

// MapSymbolsToCalendars rebuilds the symbol -> calendar mapping.
// Symbols sharing a MIC share one calendar.
func (ms *MarketScheduler) MapSymbolsToCalendars(symbols []string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.Calendars = make(map[string]*TradingCalendar)
	byMIC := make(map[string]*TradingCalendar)

	for _, symbol := range symbols {
		mic := MICForSymbol(symbol, ms.DefaultMIC)
		cal, ok := byMIC[mic]
		if !ok {
			cal = GetCalendar(mic)
			byMIC[mic] = cal
		}
		ms.Calendars[symbol] = cal
	}

	ms.Logger.Info("MarketScheduler: Mapped %d symbols to %d unique calendars.",
		len(symbols), len(byMIC))
}

// -----------------------------------------------------------------------------

// IsSymbolOpen reports whether symbol trades at t. Unknown symbols are open.
func (ms *MarketScheduler) IsSymbolOpen(symbol string, t time.Time) bool {
	ms.mu.RLock()
	cal, ok := ms.Calendars[symbol]
	ms.mu.RUnlock()

	if !ok {
		return true
	}
	return cal.IsOpenOnMinute(t)
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if ANY tracked markets are open at t
func (ms *MarketScheduler) AnyMarketOpen(t time.Time) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, cal := range ms.Calendars {
		if cal.IsOpenOnMinute(t) {
			return true
		}
	}
	return false
}
