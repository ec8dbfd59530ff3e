package models

// MProcessingMetrics counts ingest outcomes since start.
type MProcessingMetrics struct {
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
	Stale    int64 `json:"stale"`
}

// MHubMetrics counts distribution outcomes since start.
type MHubMetrics struct {
	Connections int   `json:"connections"`
	Delivered   int64 `json:"delivered"`
	Dropped     int64 `json:"dropped"`
	Evicted     int64 `json:"evicted"`
}

// MSeriesStats summarizes the closes of one series.
type MSeriesStats struct {
	Symbol    string  `json:"symbol"`
	Timeframe string  `json:"tf"`
	Count     int     `json:"count"`
	LastClose float64 `json:"last_close"`
	ChangePct float64 `json:"change_pct"`
	MeanClose float64 `json:"mean_close"`
	StdClose  float64 `json:"std_close"`
	ZScore    float64 `json:"zscore"`
}
