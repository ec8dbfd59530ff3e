package models

// -----------------------------------------------------------------------------
// Outbound events
// -----------------------------------------------------------------------------

type MEventType string

const (
	EventTick      MEventType = "tick"
	EventBarNew    MEventType = "bar_new"
	EventBarUpdate MEventType = "bar_update"
	EventCandles   MEventType = "candles"
	EventSignal    MEventType = "signal"
	EventSnapshot  MEventType = "snapshot"
	EventHistory   MEventType = "history"
)

// MOutbound is the single message shape pushed to subscribers. Exactly one
// payload field is set, matching Type.
type MOutbound struct {
	Type      MEventType `json:"type"`
	Symbol    string     `json:"symbol,omitempty"`
	Timeframe string     `json:"tf,omitempty"`
	Time      int64      `json:"time"`
	Tick      *MTick     `json:"tick,omitempty"`
	Candle    *MCandle   `json:"candle,omitempty"`
	Candles   []MCandle  `json:"candles,omitempty"`
	Signal    *MSignal   `json:"signal,omitempty"`
	Snapshot  *MSnapshot `json:"snapshot,omitempty"`
}

// Routable reports whether the event goes through symbol filtering.
// Snapshots and history responses are addressed to one connection only.
func (m *MOutbound) Routable() bool {
	return m.Type != EventSnapshot && m.Type != EventHistory
}

// -----------------------------------------------------------------------------
// Snapshot (point-in-time state for one connection)
// -----------------------------------------------------------------------------

type MSnapshot struct {
	Ticks   map[string]MTick     `json:"ticks"`
	Candles map[string][]MCandle `json:"candles"`
	Signals map[string]MSignal   `json:"signals"`
}

// -----------------------------------------------------------------------------
// Client commands
// -----------------------------------------------------------------------------

const (
	CommandSubscribe      = "subscribe"
	CommandUnsubscribe    = "unsubscribe"
	CommandGetCandles     = "get_candles"
	CommandHistoryRequest = "history_request"
)

type MClientCommand struct {
	Type      string   `json:"type"`
	Symbols   []string `json:"symbols"`
	Symbol    string   `json:"symbol"`
	Timeframe string   `json:"tf"`
	Limit     int      `json:"limit"`
}

// -----------------------------------------------------------------------------
// Ingest envelope (data sources -> market service)
// -----------------------------------------------------------------------------

type MIngestKind string

const (
	IngestTick    MIngestKind = "tick"
	IngestCandle  MIngestKind = "candle"
	IngestCandles MIngestKind = "candles"
	IngestSignal  MIngestKind = "signal"
)

type MIngest struct {
	Kind   MIngestKind
	Source string
	Tick   *MTickInput
	Candle *MCandleInput
	Batch  *MCandleBatchInput
	Signal *MSignalInput
}
