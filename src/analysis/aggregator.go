package analysis

import (
	"candle-relay/src/helpers"
	"candle-relay/src/models"
)

// TickVolume is the volume contributed by one tick in tick-driven mode.
const TickVolume = 1.0

// -----------------------------------------------------------------------------
// CandleAggregator folds samples into the newest candle of a series.
//
// The series' last element is the aggregator state: no element means Empty,
// otherwise the last element is the Open bucket. The aggregator never touches
// storage; it tells the caller whether to append or replace the last element.
// -----------------------------------------------------------------------------

type CandleAggregator struct{}

// -----------------------------------------------------------------------------

// Fold applies one tick-driven sample. last is nil for an empty series.
// Returns the candle to store and EventBarNew (append) or EventBarUpdate
// (replace last). A sample older than the open bucket is a StaleDataError.
func (a *CandleAggregator) Fold(last *models.MCandle, key models.MSeriesKey, tf Timeframe, price float64, ts int64) (models.MCandle, models.MEventType, error) {
	bucket := BucketStart(ts, tf)

	if last == nil || bucket > last.Time {
		return models.MCandle{
			Symbol:    key.Symbol,
			Timeframe: key.Timeframe,
			Time:      bucket,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    TickVolume,
		}, models.EventBarNew, nil
	}

	if bucket < last.Time {
		return models.MCandle{}, "", helpers.NewStaleDataError(
			"%s sample at %d precedes open bucket %d", key, ts, last.Time)
	}

	next := *last
	if price > next.High {
		next.High = price
	}
	if price < next.Low {
		next.Low = price
	}
	next.Close = price
	next.Volume += TickVolume
	return next, models.EventBarUpdate, nil
}

// -----------------------------------------------------------------------------

// CheckFresh reports whether a sample at ts may be folded into the series
// whose newest candle is last.
func (a *CandleAggregator) CheckFresh(last *models.MCandle, key models.MSeriesKey, tf Timeframe, ts int64) error {
	if last == nil {
		return nil
	}
	if bucket := BucketStart(ts, tf); bucket < last.Time {
		return helpers.NewStaleDataError("%s sample at %d precedes open bucket %d", key, ts, last.Time)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Upsert decides how a pre-aggregated bar (already bucket-aligned) enters the
// series: same bucket replaces, newer appends, older is stale.
func (a *CandleAggregator) Upsert(last *models.MCandle, bar models.MCandle) (models.MEventType, error) {
	switch {
	case last == nil || bar.Time > last.Time:
		return models.EventBarNew, nil
	case bar.Time == last.Time:
		return models.EventBarUpdate, nil
	default:
		return "", helpers.NewStaleDataError(
			"%s bar at %d precedes newest stored bar %d", bar.Key(), bar.Time, last.Time)
	}
}
