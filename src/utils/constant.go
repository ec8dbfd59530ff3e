package utils

// -----------------------------------------------------------------------------

// Series sizing used by the memory guard.
const (
	DefaultSeriesCapacity = 800
	MinSeriesCapacity     = 50

	// ShrinkCheckEvery is how many mutations pass between memory checks.
	ShrinkCheckEvery = 100
)
