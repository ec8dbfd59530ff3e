package interfaces

import (
	"context"
	"sync"

	"candle-relay/src/models"
)

// -----------------------------------------------------------------------------
// IDataSource produces ingest records from an upstream feed.
// -----------------------------------------------------------------------------

type IDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// IsRealTime returns true if the source streams live data
	IsRealTime() bool

	// -----------------------------------------------------------------------------

	// Start begins producing records
	// ctx: controls the lifecycle (cancellation stops the source)
	// out: channel to push records to
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, out chan<- models.MIngest, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Stop terminates the source and releases its resources.
	Stop() error
}
