package models

// MSignal is the last labeled event for a (symbol, timeframe).
type MSignal struct {
	Symbol    string                 `json:"symbol"`
	Timeframe string                 `json:"tf"`
	Label     string                 `json:"signal"`
	Time      int64                  `json:"time"`
	Meta      map[string]interface{} `json:"meta"`
}

// MSignalInput is an unvalidated signal.
type MSignalInput struct {
	Symbol    string                 `json:"symbol"`
	Timeframe string                 `json:"tf"`
	Label     string                 `json:"signal"`
	Time      MTimestamp             `json:"time,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}
