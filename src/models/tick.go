package models

// MTick is the latest bid/ask observation for a symbol.
type MTick struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Mid    float64 `json:"mid"`
	Time   int64   `json:"time"`
}

// MTickInput is an unvalidated tick as handed over by a transport.
type MTickInput struct {
	Symbol string     `json:"symbol"`
	Bid    float64    `json:"bid"`
	Ask    float64    `json:"ask"`
	Mid    *float64   `json:"mid,omitempty"`
	Time   MTimestamp `json:"time,omitempty"`
}
