package analysis

import (
	"strings"
	"time"

	"candle-relay/src/helpers"
)

// Timeframe is a fixed bucket length identified by its tag.
type Timeframe struct {
	Name     string
	LengthMS int64
}

// Duration returns the bucket length as a time.Duration.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.LengthMS) * time.Millisecond
}

// Supported timeframes
var (
	Timeframe1m  = Timeframe{Name: "1m", LengthMS: time.Minute.Milliseconds()}
	Timeframe5m  = Timeframe{Name: "5m", LengthMS: (5 * time.Minute).Milliseconds()}
	Timeframe15m = Timeframe{Name: "15m", LengthMS: (15 * time.Minute).Milliseconds()}
	Timeframe30m = Timeframe{Name: "30m", LengthMS: (30 * time.Minute).Milliseconds()}
	Timeframe1h  = Timeframe{Name: "1h", LengthMS: time.Hour.Milliseconds()}
	Timeframe4h  = Timeframe{Name: "4h", LengthMS: (4 * time.Hour).Milliseconds()}
	Timeframe1d  = Timeframe{Name: "1d", LengthMS: (24 * time.Hour).Milliseconds()}
	Timeframe1w  = Timeframe{Name: "1w", LengthMS: (7 * 24 * time.Hour).Milliseconds()}
)

// AllTimeframes in ascending bucket length.
var AllTimeframes = []Timeframe{
	Timeframe1m, Timeframe5m, Timeframe15m, Timeframe30m,
	Timeframe1h, Timeframe4h, Timeframe1d, Timeframe1w,
}

var timeframeRegistry = make(map[string]Timeframe)

func init() {
	for _, tf := range AllTimeframes {
		timeframeRegistry[tf.Name] = tf
	}
}

// -----------------------------------------------------------------------------

// ParseTimeframe resolves a tag such as "15m" or " 1H ". Unknown tags are an
// error, never a default.
func ParseTimeframe(tag string) (Timeframe, error) {
	tf, ok := timeframeRegistry[strings.ToLower(strings.TrimSpace(tag))]
	if !ok {
		return Timeframe{}, helpers.NewUnknownTimeframeError(tag)
	}
	return tf, nil
}

// GetAllTimeframeNames returns all supported tags in ascending length.
func GetAllTimeframeNames() []string {
	names := make([]string, 0, len(AllTimeframes))
	for _, tf := range AllTimeframes {
		names = append(names, tf.Name)
	}
	return names
}

// -----------------------------------------------------------------------------

// BucketStart returns floor(ts / L) * L for epoch milliseconds.
func BucketStart(ts int64, tf Timeframe) int64 {
	start, _ := CalculateWindowBoundaries(ts, tf.LengthMS)
	return start
}

// CalculateWindowBoundaries returns the [start, end) window containing ts.
func CalculateWindowBoundaries(ts int64, window int64) (int64, int64) {
	rem := ts % window
	if rem < 0 {
		rem += window
	}
	start := ts - rem
	return start, start + window
}
