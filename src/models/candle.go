package models

// MSeriesKey identifies one candle series.
type MSeriesKey struct {
	Symbol    string
	Timeframe string
}

// String renders the key the way snapshots index series, e.g. "EURUSD__1m".
func (k MSeriesKey) String() string {
	return k.Symbol + "__" + k.Timeframe
}

// MCandle is one OHLC bar. Time is the bucket start.
type MCandle struct {
	Symbol    string  `json:"symbol"`
	Timeframe string  `json:"tf"`
	Time      int64   `json:"time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Key returns the series the candle belongs to.
func (c MCandle) Key() MSeriesKey {
	return MSeriesKey{Symbol: c.Symbol, Timeframe: c.Timeframe}
}

// MCandleInput is an unvalidated pre-aggregated bar.
type MCandleInput struct {
	Symbol    string     `json:"symbol"`
	Timeframe string     `json:"tf"`
	Time      MTimestamp `json:"time,omitempty"`
	Open      float64    `json:"open"`
	High      float64    `json:"high"`
	Low       float64    `json:"low"`
	Close     float64    `json:"close"`
	Volume    *float64   `json:"volume,omitempty"`
}

// MCandleBatchInput replaces a whole series.
type MCandleBatchInput struct {
	Symbol    string         `json:"symbol"`
	Timeframe string         `json:"tf"`
	Candles   []MCandleInput `json:"candles"`
}
