package interfaces

//go:generate mockgen -source=database.go -destination=mock/mock_database.go -package=mock

import "candle-relay/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the event archive.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveTicks inserts a batch of ticks.
	SaveTicks(ticks []models.MTick) error

	// -----------------------------------------------------------------------------

	// SaveCandles upserts candles keyed by (symbol, timeframe, time).
	SaveCandles(candles []models.MCandle) error

	// -----------------------------------------------------------------------------

	// SaveSignals upserts the latest signal per (symbol, timeframe).
	SaveSignals(signals []models.MSignal) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes rows older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
