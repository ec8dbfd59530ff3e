package analysis

import (
	"sort"

	"candle-relay/src/models"
)

// TimeSeriesResampler turns raw bar batches into a well-formed series.
type TimeSeriesResampler struct{}

// -----------------------------------------------------------------------------

// NormalizeBatch aligns every bar to its bucket, stable-sorts by time,
// collapses runs of equal times to the last bar of the run, and keeps the
// newest capacity bars. The input slice is not modified.
func (r *TimeSeriesResampler) NormalizeBatch(bars []models.MCandle, tf Timeframe, capacity int) []models.MCandle {
	if len(bars) == 0 {
		return []models.MCandle{}
	}

	sorted := make([]models.MCandle, len(bars))
	copy(sorted, bars)
	for i := range sorted {
		sorted[i].Time = BucketStart(sorted[i].Time, tf)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})

	out := sorted[:0]
	for _, bar := range sorted {
		if n := len(out); n > 0 && out[n-1].Time == bar.Time {
			out[n-1] = bar
			continue
		}
		out = append(out, bar)
	}

	if capacity > 0 && len(out) > capacity {
		out = out[len(out)-capacity:]
	}

	result := make([]models.MCandle, len(out))
	copy(result, out)
	return result
}

// -----------------------------------------------------------------------------

// SearchSorted finds the insertion index of ts in a time-ordered series.
// side "left" returns the first index with Time >= ts, "right" the first with Time > ts.
func SearchSorted(series []models.MCandle, ts int64, side string) int {
	if side == "left" {
		return sort.Search(len(series), func(i int) bool {
			return series[i].Time >= ts
		})
	}
	return sort.Search(len(series), func(i int) bool {
		return series[i].Time > ts
	})
}
