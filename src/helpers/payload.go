package helpers

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"candle-relay/src/models"
)

// Loosely typed payload decoding shared by the HTTP, gRPC and Kafka ingest
// paths. Numbers may arrive as JSON numbers or numeric strings; a missing or
// unparsable number decodes to NaN so validation rejects it.

// -----------------------------------------------------------------------------

// ParseTickPayload decodes {symbol, bid, ask, mid?, time?}.
func ParseTickPayload(data map[string]interface{}) (models.MTickInput, error) {
	ts, err := safeTime(data)
	if err != nil {
		return models.MTickInput{}, err
	}
	return models.MTickInput{
		Symbol: safeString(data, "symbol"),
		Bid:    safeFloat64(data, "bid"),
		Ask:    safeFloat64(data, "ask"),
		Mid:    optionalFloat64(data, "mid"),
		Time:   models.MTimestamp(ts),
	}, nil
}

// -----------------------------------------------------------------------------

// ParseCandlePayload decodes {symbol, tf, time, open, high, low, close, volume?}.
func ParseCandlePayload(data map[string]interface{}) (models.MCandleInput, error) {
	ts, err := safeTime(data)
	if err != nil {
		return models.MCandleInput{}, err
	}
	return models.MCandleInput{
		Symbol:    safeString(data, "symbol"),
		Timeframe: timeframeField(data),
		Time:      models.MTimestamp(ts),
		Open:      safeFloat64(data, "open"),
		High:      safeFloat64(data, "high"),
		Low:       safeFloat64(data, "low"),
		Close:     safeFloat64(data, "close"),
		Volume:    optionalFloat64(data, "volume"),
	}, nil
}

// -----------------------------------------------------------------------------

// ParseCandleBatchPayload decodes {symbol, tf, candles: [...]}. Entries that
// are not objects or carry an unparsable time are skipped; the rest are
// validated later.
func ParseCandleBatchPayload(data map[string]interface{}) (models.MCandleBatchInput, error) {
	batch := models.MCandleBatchInput{
		Symbol:    safeString(data, "symbol"),
		Timeframe: timeframeField(data),
	}

	raw, ok := data["candles"].([]interface{})
	if !ok {
		return batch, NewValidationError("candles must be an array")
	}

	batch.Candles = make([]models.MCandleInput, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		c, err := ParseCandlePayload(m)
		if err != nil {
			continue
		}
		batch.Candles = append(batch.Candles, c)
	}
	return batch, nil
}

// -----------------------------------------------------------------------------

// ParseSignalPayload decodes {symbol, tf, signal, time?, meta?}.
func ParseSignalPayload(data map[string]interface{}) (models.MSignalInput, error) {
	ts, err := safeTime(data)
	if err != nil {
		return models.MSignalInput{}, err
	}
	meta, _ := data["meta"].(map[string]interface{})
	return models.MSignalInput{
		Symbol:    safeString(data, "symbol"),
		Timeframe: timeframeField(data),
		Label:     safeString(data, "signal"),
		Time:      models.MTimestamp(ts),
		Meta:      meta,
	}, nil
}

// -----------------------------------------------------------------------------

// ParseIngestPayload decodes an envelope whose "type" field selects the
// record kind: tick, candle, candles or signal.
func ParseIngestPayload(data map[string]interface{}) (models.MIngest, error) {
	kind := models.MIngestKind(strings.ToLower(safeString(data, "type")))
	out := models.MIngest{Kind: kind}

	switch kind {
	case models.IngestTick:
		in, err := ParseTickPayload(data)
		if err != nil {
			return out, err
		}
		out.Tick = &in
	case models.IngestCandle:
		in, err := ParseCandlePayload(data)
		if err != nil {
			return out, err
		}
		out.Candle = &in
	case models.IngestCandles:
		in, err := ParseCandleBatchPayload(data)
		if err != nil {
			return out, err
		}
		out.Batch = &in
	case models.IngestSignal:
		in, err := ParseSignalPayload(data)
		if err != nil {
			return out, err
		}
		out.Signal = &in
	default:
		return out, NewValidationError("unknown record type %q", kind)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func safeString(data map[string]interface{}, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

func timeframeField(data map[string]interface{}) string {
	if tf := safeString(data, "tf"); tf != "" {
		return tf
	}
	return safeString(data, "timeframe")
}

func safeTime(data map[string]interface{}) (int64, error) {
	v, ok := data["time"]
	if !ok {
		return 0, nil
	}
	if n, isNum := v.(json.Number); isNum {
		v = n.String()
	}
	ts, err := models.ParseTimestamp(v)
	if err != nil {
		return 0, NewValidationError("%v", err)
	}
	return ts, nil
}

// -----------------------------------------------------------------------------

func safeFloat64(data map[string]interface{}, key string) float64 {
	if f := optionalFloat64(data, key); f != nil {
		return *f
	}
	return math.NaN()
}

func optionalFloat64(data map[string]interface{}, key string) *float64 {
	val, ok := data[key]
	if !ok || val == nil {
		return nil
	}

	var f float64
	switch v := val.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			f = math.NaN()
		} else {
			f = parsed
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			f = math.NaN()
		} else {
			f = parsed
		}
	default:
		f = math.NaN()
	}
	return &f
}
