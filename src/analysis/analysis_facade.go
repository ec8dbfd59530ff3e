package analysis

import (
	"candle-relay/src/analysis/core"
	"candle-relay/src/logger"
	"candle-relay/src/models"
)

// AnalysisFacade bundles the candle-level computations the service exposes:
// tick folding, batch normalization and series statistics.
type AnalysisFacade struct {
	Aggregator *CandleAggregator
	Resampler  *TimeSeriesResampler
	Logger     *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(log *logger.Logger) *AnalysisFacade {
	return &AnalysisFacade{
		Aggregator: &CandleAggregator{},
		Resampler:  &TimeSeriesResampler{},
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// SeriesStats summarizes closes: change since the first bar, mean/std of
// closes and the z-score of the last close.
func (a *AnalysisFacade) SeriesStats(key models.MSeriesKey, candles []models.MCandle) models.MSeriesStats {
	stats := models.MSeriesStats{
		Symbol:    key.Symbol,
		Timeframe: key.Timeframe,
		Count:     len(candles),
	}
	if len(candles) == 0 {
		return stats
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	last := closes[len(closes)-1]
	mean, std := core.CalculateMeanStd(closes)

	stats.LastClose = last
	stats.ChangePct = core.CalculateChangePercent(last, closes[0])
	stats.MeanClose = mean
	stats.StdClose = std
	stats.ZScore = core.CalculateZScore(last, mean, std)
	return stats
}
