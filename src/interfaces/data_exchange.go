package interfaces

import "candle-relay/src/models"

// -----------------------------------------------------------------------------
// IEventSink receives every outbound event the market service produces.
// -----------------------------------------------------------------------------

type IEventSink interface {
	// -----------------------------------------------------------------------------
	// Publish hands over one event. It is called with the market state lock
	// held, in mutation order, and must not wait on network I/O.
	Publish(event *models.MOutbound)
}

// -----------------------------------------------------------------------------
// ISymbolFilter decides which instruments a subscriber is interested in.
// -----------------------------------------------------------------------------

type ISymbolFilter interface {
	// Matches reports whether events for symbol pass the filter.
	Matches(symbol string) bool
}

// -----------------------------------------------------------------------------
// IMarketView is the read side the websocket hub needs from the market state.
// -----------------------------------------------------------------------------

type IMarketView interface {
	// Attach builds a snapshot for filter and hands it to deliver while the
	// state is still locked against writers.
	Attach(filter ISymbolFilter, deliver func(*models.MOutbound))

	// History hands one series, as a history event, to deliver while the
	// state is still locked against writers.
	History(symbol, tf string, limit int, deliver func(*models.MOutbound)) error
}
